package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/omaraldhaheri/zaina-backend/internal/orders"
	"github.com/omaraldhaheri/zaina-backend/internal/receipts"
	"github.com/omaraldhaheri/zaina-backend/pkg/enums"
	pkgerrors "github.com/omaraldhaheri/zaina-backend/pkg/errors"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
	"github.com/omaraldhaheri/zaina-backend/pkg/metrics"
)

type receiptDispatcher interface {
	Enqueue(ctx context.Context, order *orders.Order, orderID, svg string) bool
}

type ServiceParams struct {
	Store      orders.Store
	Dispatcher receiptDispatcher
	Metrics    *metrics.PaymentMetrics
	Logger     *logger.Logger
}

// Service applies verified Stripe events to order state. Events that cannot
// be matched to an order are acknowledged with a warning rather than
// errored, so the gateway does not retry deliveries we can never resolve.
type Service struct {
	store      orders.Store
	dispatcher receiptDispatcher
	metrics    *metrics.PaymentMetrics
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order store required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		store:      params.Store,
		dispatcher: params.Dispatcher,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithEventID(ctx, event.ID)

	var err error
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		err = s.handleIntentSucceeded(ctx, event)
	case stripe.EventTypePaymentIntentPaymentFailed:
		err = s.handleIntentFailed(ctx, event)
	case stripe.EventTypeChargeRefunded:
		err = s.handleChargeRefunded(ctx, event)
	default:
		// Unknown event types are acknowledged, not errors.
		s.metrics.IncWebhookEvent(string(event.Type), "ignored")
		return nil
	}

	outcome := "processed"
	if err != nil {
		outcome = "failed"
	}
	s.metrics.IncWebhookEvent(string(event.Type), outcome)
	return err
}

// resolveOrder loads the order named in the intent metadata. A missing id or
// an id that does not resolve is a warning and a nil order: failing the
// webhook would only trigger pointless gateway retries. A store outage is
// different — that error propagates so the delivery fails, the idempotency
// mark is released, and the gateway redelivers once the store is back.
func (s *Service) resolveOrder(ctx context.Context, intentMetadata map[string]string) (string, *orders.Order, error) {
	orderID := intentMetadata["order_id"]
	if orderID == "" {
		s.logg.Warn(ctx, "event carries no order id, acknowledging without action")
		return "", nil, nil
	}
	ctx = s.logg.WithOrderID(ctx, orderID)
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
			s.logg.Warn(ctx, "event references unknown order, acknowledging without action")
			return "", nil, nil
		}
		return "", nil, err
	}
	return orderID, order, nil
}

func (s *Service) handleIntentSucceeded(ctx context.Context, event *stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	ctx = s.logg.WithPaymentIntentID(ctx, intent.ID)

	orderID, order, err := s.resolveOrder(ctx, intent.Metadata)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	ctx = s.logg.WithOrderID(ctx, orderID)
	if order.Status.Terminal() {
		s.logg.Warn(ctx, "order already in terminal status "+string(order.Status)+", acknowledging without action")
		return nil
	}

	chargeID := ""
	if intent.LatestCharge != nil {
		chargeID = intent.LatestCharge.ID
	}
	paymentData := &orders.PaymentData{ChargeID: chargeID, Method: enums.PaymentMethodCard}

	fields := map[string]any{
		"status":      enums.OrderStatusPaid,
		"paymentData": paymentData,
	}
	if err := s.store.UpdateOrder(ctx, orderID, fields); err != nil {
		return err
	}
	order.Status = enums.OrderStatusPaid
	order.PaymentData = paymentData
	s.logg.Info(ctx, "order marked paid")

	// Everything past the paid transition is bookkeeping: the payment is
	// settled, so failures here are logged and swallowed.
	record := orders.PaymentRecord{
		OrderID:         orderID,
		PaymentIntentID: intent.ID,
		ChargeID:        chargeID,
		Amount:          intent.Amount,
		Currency:        string(intent.Currency),
		Method:          enums.PaymentMethodCard,
		Metadata:        intent.Metadata,
	}
	if err := s.store.RecordPayment(ctx, orderID, record); err != nil {
		s.logg.Error(ctx, "payment record write failed", err)
	}

	if !order.IsGuest() {
		if err := s.store.ClearCart(ctx, order.UserID); err != nil {
			s.logg.Error(ctx, "cart clear failed after payment", err)
		}
	}

	if s.dispatcher != nil {
		s.dispatcher.Enqueue(ctx, order, orderID, receipts.Render(order, orderID))
	}
	return nil
}

func (s *Service) handleIntentFailed(ctx context.Context, event *stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	ctx = s.logg.WithPaymentIntentID(ctx, intent.ID)

	orderID, order, err := s.resolveOrder(ctx, intent.Metadata)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	ctx = s.logg.WithOrderID(ctx, orderID)
	if order.Status.Terminal() {
		s.logg.Warn(ctx, "order already in terminal status "+string(order.Status)+", acknowledging without action")
		return nil
	}

	if err := s.store.UpdateOrder(ctx, orderID, map[string]any{"status": enums.OrderStatusPaymentFailed}); err != nil {
		return err
	}
	s.logg.Info(ctx, "order marked payment_failed")
	return nil
}

func (s *Service) handleChargeRefunded(ctx context.Context, event *stripe.Event) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode charge event")
	}

	order, err := s.store.FindOrderByChargeID(ctx, charge.ID)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
			s.logg.Warn(s.logg.WithField(ctx, "charge_id", charge.ID), "refunded charge matches no order, acknowledging without action")
			return nil
		}
		return err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	full := charge.AmountRefunded >= charge.Amount
	status := enums.OrderStatusPartiallyRefunded
	if full {
		status = enums.OrderStatusRefunded
	}

	fields := map[string]any{
		"status":       status,
		"refundAmount": charge.AmountRefunded,
	}
	if err := s.store.UpdateOrder(ctx, order.ID, fields); err != nil {
		return err
	}
	s.logg.Info(ctx, "order marked "+string(status))

	record := orders.RefundRecord{
		OrderID:  order.ID,
		ChargeID: charge.ID,
		Amount:   charge.AmountRefunded,
		Full:     full,
	}
	if err := s.store.RecordRefund(ctx, order.ID, record); err != nil {
		s.logg.Error(ctx, "refund record write failed", err)
	}
	return nil
}
