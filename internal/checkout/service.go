package checkout

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/omaraldhaheri/zaina-backend/internal/orders"
	"github.com/omaraldhaheri/zaina-backend/internal/payments"
	"github.com/omaraldhaheri/zaina-backend/internal/receipts"
	"github.com/omaraldhaheri/zaina-backend/internal/vat"
	"github.com/omaraldhaheri/zaina-backend/pkg/enums"
	pkgerrors "github.com/omaraldhaheri/zaina-backend/pkg/errors"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
	"github.com/omaraldhaheri/zaina-backend/pkg/metrics"
)

const defaultCurrency = "aed"

type receiptDispatcher interface {
	Enqueue(ctx context.Context, order *orders.Order, orderID, svg string) bool
}

// ServiceParams wires the lifecycle controller's collaborators.
type ServiceParams struct {
	Store      orders.Store
	Gateway    payments.Gateway
	Dispatcher receiptDispatcher
	Metrics    *metrics.PaymentMetrics
	Logger     *logger.Logger
}

// Service drives the checkout side of the order lifecycle: intent creation,
// intent polling, refunds, and cash-on-delivery orders.
type Service struct {
	store      orders.Store
	gateway    payments.Gateway
	dispatcher receiptDispatcher
	metrics    *metrics.PaymentMetrics
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order store required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		store:      params.Store,
		gateway:    params.Gateway,
		dispatcher: params.Dispatcher,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

// CreateIntentInput is the checkout request. Amount is the pre-tax subtotal
// in minor units; VAT is added on top before the intent is created.
type CreateIntentInput struct {
	Amount    int64
	Currency  string
	UserID    string
	Metadata  map[string]string
	Shipping  *orders.ShippingAddress
	CartItems []orders.LineItem
}

// CreateIntentResult is returned to the storefront so the browser can
// complete authorization directly with the gateway.
type CreateIntentResult struct {
	ClientSecret    string
	PaymentIntentID string
	OrderID         string
	Breakdown       vat.Breakdown
}

// CreateIntent computes the VAT breakdown, creates a pending order, then a
// payment intent for the tax-inclusive total carrying the order id in its
// metadata. A gateway failure leaves the order pending with no money moved;
// the caller may retry, at the cost of a duplicate pending order.
func (s *Service) CreateIntent(ctx context.Context, input CreateIntentInput) (*CreateIntentResult, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer of fils")
	}
	if input.UserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	currency := input.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	breakdown := vat.Compute(input.Amount)
	order := s.buildOrder(input, currency, breakdown, enums.OrderStatusPending, nil)

	orderID, err := s.store.CreatePendingOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	intent, err := s.gateway.CreateIntent(ctx, s.intentParams(orderID, currency, breakdown, input))
	if err != nil {
		s.metrics.IncIntentCreated("failed")
		s.logg.Error(ctx, "payment intent creation failed, order stays pending", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create payment intent")
	}

	if err := s.store.UpdateOrder(ctx, orderID, map[string]any{"paymentIntentId": intent.ID}); err != nil {
		return nil, err
	}

	s.metrics.IncIntentCreated("created")
	s.logg.Info(s.logg.WithPaymentIntentID(ctx, intent.ID), "payment intent created")

	return &CreateIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		OrderID:         orderID,
		Breakdown:       breakdown,
	}, nil
}

func (s *Service) buildOrder(input CreateIntentInput, currency string, breakdown vat.Breakdown, status enums.OrderStatus, paymentData *orders.PaymentData) *orders.Order {
	metadata := make(map[string]string, len(input.Metadata))
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	rate, _ := breakdown.Rate.Float64()
	return &orders.Order{
		UserID:                input.UserID,
		Items:                 input.CartItems,
		Currency:              currency,
		SubtotalAmount:        breakdown.SubtotalAmount,
		VATAmount:             breakdown.VATAmount,
		TotalAmount:           breakdown.TotalAmount,
		VATRate:               rate,
		VATPercentage:         breakdown.RateLabel,
		TaxRegistrationNumber: vat.RegistrationNumber,
		Shipping:              input.Shipping,
		Metadata:              metadata,
		Status:                status,
		PaymentData:           paymentData,
	}
}

func (s *Service) intentParams(orderID, currency string, breakdown vat.Breakdown, input CreateIntentInput) *stripe.PaymentIntentParams {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(breakdown.TotalAmount),
		Currency: stripe.String(currency),
		Description: stripe.String(fmt.Sprintf(
			"Subtotal %s + VAT (%s) %s = %s",
			vat.FormatMinorWithCurrency(breakdown.SubtotalAmount),
			breakdown.RateLabel,
			vat.FormatMinorWithCurrency(breakdown.VATAmount),
			vat.FormatMinorWithCurrency(breakdown.TotalAmount),
		)),
	}
	params.AddMetadata("order_id", orderID)
	params.AddMetadata("user_id", input.UserID)
	params.AddMetadata("subtotal_amount", fmt.Sprintf("%d", breakdown.SubtotalAmount))
	params.AddMetadata("vat_amount", fmt.Sprintf("%d", breakdown.VATAmount))
	params.AddMetadata("vat_rate", breakdown.RateLabel)
	params.AddMetadata("tax_registration_number", vat.RegistrationNumber)
	for k, v := range input.Metadata {
		params.AddMetadata(k, v)
	}
	if input.Shipping != nil {
		params.Shipping = &stripe.ShippingDetailsParams{
			Name:  stripe.String(input.Shipping.Name),
			Phone: stripe.String(input.Shipping.Phone),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(input.Shipping.Line1),
				Line2:      stripe.String(input.Shipping.Line2),
				City:       stripe.String(input.Shipping.City),
				State:      stripe.String(input.Shipping.State),
				PostalCode: stripe.String(input.Shipping.PostalCode),
				Country:    stripe.String(input.Shipping.Country),
			},
		}
	}
	return params
}

// GetIntent polls the gateway for an intent's current state.
func (s *Service) GetIntent(ctx context.Context, paymentIntentID string) (*stripe.PaymentIntent, error) {
	if paymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	intent, err := s.gateway.RetrieveIntent(ctx, paymentIntentID)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "retrieve payment intent")
	}
	return intent, nil
}

// RefundInput describes a refund request. A nil Amount refunds the full
// charge, which is what decides refunded versus partially_refunded.
type RefundInput struct {
	PaymentIntentID string
	Amount          *int64
	Reason          string
}

// RefundResult is returned to the caller after the gateway accepts the
// refund.
type RefundResult struct {
	RefundID string
	Status   string
}

// Refund resolves the intent's latest charge and refunds it. The order, when
// the intent's metadata names one, moves to refunded or partially_refunded;
// a bookkeeping failure after the gateway accepted the refund is logged but
// not surfaced, so the caller cannot be tricked into refunding twice.
func (s *Service) Refund(ctx context.Context, input RefundInput) (*RefundResult, error) {
	if input.PaymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	ctx = s.logg.WithPaymentIntentID(ctx, input.PaymentIntentID)

	intent, err := s.gateway.RetrieveIntent(ctx, input.PaymentIntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "retrieve payment intent")
	}
	if intent.LatestCharge == nil || intent.LatestCharge.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no charge to refund")
	}

	refund, err := s.gateway.CreateRefund(ctx, intent.LatestCharge.ID, input.Amount, input.Reason)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create refund")
	}

	full := input.Amount == nil
	status := enums.OrderStatusRefunded
	kind := "full"
	if !full {
		status = enums.OrderStatusPartiallyRefunded
		kind = "partial"
	}
	s.metrics.IncRefund(kind)

	if orderID := intent.Metadata["order_id"]; orderID != "" {
		s.applyRefundToOrder(s.logg.WithOrderID(ctx, orderID), orderID, intent.LatestCharge.ID, refund, status, full, input.Reason)
	} else {
		s.logg.Warn(ctx, "refunded intent carries no order id, skipping order update")
	}

	return &RefundResult{RefundID: refund.ID, Status: string(refund.Status)}, nil
}

func (s *Service) applyRefundToOrder(ctx context.Context, orderID, chargeID string, refund *stripe.Refund, status enums.OrderStatus, full bool, reason string) {
	fields := map[string]any{
		"status":       status,
		"refundId":     refund.ID,
		"refundAmount": refund.Amount,
	}
	if err := s.store.UpdateOrder(ctx, orderID, fields); err != nil {
		s.logg.Error(ctx, "order refund update failed after gateway refund", err)
		return
	}
	record := orders.RefundRecord{
		OrderID:  orderID,
		RefundID: refund.ID,
		ChargeID: chargeID,
		Amount:   refund.Amount,
		Full:     full,
		Reason:   reason,
	}
	if err := s.store.RecordRefund(ctx, orderID, record); err != nil {
		s.logg.Error(ctx, "refund record write failed", err)
	}
}

// CreateCODOrder creates a cash-on-delivery order. No gateway intent exists,
// so the order starts in processing rather than pending, the cart is cleared
// immediately, and the receipt email is queued right away.
func (s *Service) CreateCODOrder(ctx context.Context, input CreateIntentInput) (string, vat.Breakdown, error) {
	if input.Amount <= 0 {
		return "", vat.Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer of fils")
	}
	if input.UserID == "" {
		return "", vat.Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	currency := input.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	breakdown := vat.Compute(input.Amount)
	order := s.buildOrder(input, currency, breakdown, enums.OrderStatusProcessing, &orders.PaymentData{Method: enums.PaymentMethodCOD})

	orderID, err := s.store.CreatePendingOrder(ctx, order)
	if err != nil {
		return "", vat.Breakdown{}, err
	}
	ctx = s.logg.WithOrderID(ctx, orderID)
	s.logg.Info(ctx, "cash-on-delivery order created")

	if !order.IsGuest() {
		if err := s.store.ClearCart(ctx, order.UserID); err != nil {
			s.logg.Error(ctx, "cart clear failed after cod order", err)
		}
	}

	if s.dispatcher != nil {
		s.dispatcher.Enqueue(ctx, order, orderID, receipts.Render(order, orderID))
	}

	return orderID, breakdown, nil
}
