package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omaraldhaheri/zaina-backend/api/controllers"
	webhookcontrollers "github.com/omaraldhaheri/zaina-backend/api/controllers/webhooks"
	"github.com/omaraldhaheri/zaina-backend/api/middleware"
	"github.com/omaraldhaheri/zaina-backend/internal/checkout"
	"github.com/omaraldhaheri/zaina-backend/internal/mailer"
	"github.com/omaraldhaheri/zaina-backend/internal/orders"
	stripewebhook "github.com/omaraldhaheri/zaina-backend/internal/webhooks/stripe"
	"github.com/omaraldhaheri/zaina-backend/pkg/config"
	"github.com/omaraldhaheri/zaina-backend/pkg/firestore"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
	"github.com/omaraldhaheri/zaina-backend/pkg/redis"
	"github.com/omaraldhaheri/zaina-backend/pkg/stripe"
)

// Deps carries everything the HTTP surface needs, constructed once in
// cmd/api and passed in explicitly.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	OrderStore      orders.Store
	CheckoutService *checkout.Service
	WebhookService  *stripewebhook.Service
	WebhookGuard    *stripewebhook.IdempotencyGuard
	StripeClient    *stripe.Client
	Dispatcher      *mailer.Dispatcher
	StorePinger     firestore.Pinger
	CachePinger     redis.Pinger
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()

	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	r.Get("/health", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, deps.StorePinger, deps.CachePinger, logg))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/vat/calculate", controllers.VATCalculate(logg))
		r.Post("/calculate-vat", controllers.CalculateVAT(logg))

		r.Get("/receipt/{orderId}", controllers.GetReceipt(deps.OrderStore, deps.Dispatcher, logg))

		r.Route("/payment", func(r chi.Router) {
			r.Post("/create-intent", controllers.CreatePaymentIntent(deps.CheckoutService, logg))
			r.Post("/refund", controllers.RefundPayment(deps.CheckoutService, logg))
			r.Post("/webhook", webhookcontrollers.StripeWebhook(deps.WebhookService, deps.StripeClient, deps.WebhookGuard, logg))
			r.Get("/{paymentIntentId}", controllers.GetPaymentIntent(deps.CheckoutService, logg))
		})

		r.Post("/orders/cod", controllers.CreateCODOrder(deps.CheckoutService, logg))
	})

	return r
}
