package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/omaraldhaheri/zaina-backend/api/routes"
	"github.com/omaraldhaheri/zaina-backend/internal/checkout"
	"github.com/omaraldhaheri/zaina-backend/internal/mailer"
	"github.com/omaraldhaheri/zaina-backend/internal/orders"
	"github.com/omaraldhaheri/zaina-backend/internal/payments"
	"github.com/omaraldhaheri/zaina-backend/internal/receipts"
	stripewebhook "github.com/omaraldhaheri/zaina-backend/internal/webhooks/stripe"
	"github.com/omaraldhaheri/zaina-backend/pkg/config"
	"github.com/omaraldhaheri/zaina-backend/pkg/firestore"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
	"github.com/omaraldhaheri/zaina-backend/pkg/metrics"
	"github.com/omaraldhaheri/zaina-backend/pkg/redis"
	"github.com/omaraldhaheri/zaina-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fsClient, err := firestore.New(ctx, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap firestore", err)
		os.Exit(1)
	}
	defer func() {
		if err := fsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing firestore", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	store, err := orders.NewStore(fsClient.DB())
	if err != nil {
		logg.Error(ctx, "failed to create order store", err)
		os.Exit(1)
	}

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	mailService, err := mailer.NewService(mailer.ServiceParams{
		Converter: receipts.NewConverter(logg),
		SMTP:      cfg.SMTP,
		Receipts:  cfg.Receipts,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create mail service", err)
		os.Exit(1)
	}

	dispatcher := mailer.NewDispatcher(mailService, paymentMetrics, cfg.Receipts, logg)
	dispatcher.Start(ctx)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Store:      store,
		Gateway:    payments.NewGateway(stripeClient),
		Dispatcher: dispatcher,
		Metrics:    paymentMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    paymentMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Redis.IdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(ctx, "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:          cfg,
			Logger:          logg,
			OrderStore:      store,
			CheckoutService: checkoutService,
			WebhookService:  webhookService,
			WebhookGuard:    webhookGuard,
			StripeClient:    stripeClient,
			Dispatcher:      dispatcher,
			StorePinger:     fsClient,
			CachePinger:     redisClient,
		}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx := context.Background()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(startCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	dispatcher.Wait()
	logg.Info(context.Background(), "api server stopped")
}
