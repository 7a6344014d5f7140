package payments

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/refund"

	pkgstripe "github.com/omaraldhaheri/zaina-backend/pkg/stripe"
)

// Gateway exposes the subset of Stripe payment operations the checkout and
// webhook services need. The narrow surface keeps both services testable
// against fakes.
type Gateway interface {
	CreateIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CreateRefund(ctx context.Context, chargeID string, amount *int64, reason string) (*stripe.Refund, error)
}

type stripeGateway struct{}

// NewGateway wraps the initialized Stripe client. It returns nil when the
// client is nil so callers fail fast at wiring time.
func NewGateway(api *pkgstripe.Client) Gateway {
	if api == nil {
		return nil
	}
	return &stripeGateway{}
}

func (g *stripeGateway) CreateIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.New(params)
}

// RetrieveIntent fetches an intent with its latest charge expanded so the
// refund path can resolve the charge without a second round trip.
func (g *stripeGateway) RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")
	return paymentintent.Get(id, params)
}

// CreateRefund refunds a charge. A nil amount refunds the full charge.
func (g *stripeGateway) CreateRefund(ctx context.Context, chargeID string, amount *int64, reason string) (*stripe.Refund, error) {
	params := &stripe.RefundParams{
		Charge: stripe.String(chargeID),
	}
	params.Context = ctx
	if amount != nil {
		params.Amount = stripe.Int64(*amount)
	}
	if reason != "" {
		params.Reason = stripe.String(reason)
	}
	return refund.New(params)
}
