package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/omaraldhaheri/zaina-backend/api/responses"
	pkgerrors "github.com/omaraldhaheri/zaina-backend/pkg/errors"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
	"github.com/omaraldhaheri/zaina-backend/pkg/types"
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

// StripeWebhook receives signed gateway events. A bad signature is rejected
// with a plain-text 400 before any payload parsing; everything downstream of
// verification answers JSON.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard stripeWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		event, err := webhook.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			if logg != nil {
				logg.Warn(ctx, "webhook signature verification failed")
			}
			responses.WritePlainError(w, http.StatusBadRequest, "signature verification failed")
			return
		}
		if logg != nil {
			ctx = logg.WithEventID(ctx, event.ID)
		}

		if guard != nil {
			alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if alreadyProcessed {
				if logg != nil {
					logg.Info(ctx, "duplicate stripe event acknowledged")
				}
				writeReceived(w)
				return
			}
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			if guard != nil {
				_ = guard.Delete(ctx, event.ID)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("stripe event %s processed", event.ID))
		}
		writeReceived(w)
	}
}

// writeReceived answers with the acknowledgment body the gateway expects.
func writeReceived(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(types.WebhookAck{Received: true})
}
