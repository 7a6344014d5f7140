package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/omaraldhaheri/zaina-backend/api/responses"
	"github.com/omaraldhaheri/zaina-backend/api/validators"
	"github.com/omaraldhaheri/zaina-backend/internal/checkout"
	"github.com/omaraldhaheri/zaina-backend/internal/orders"
	"github.com/omaraldhaheri/zaina-backend/internal/vat"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
)

type createIntentRequest struct {
	Amount    int64                    `json:"amount" validate:"required,gt=0"`
	Currency  string                   `json:"currency"`
	UserID    string                   `json:"userId" validate:"required"`
	Metadata  map[string]string        `json:"metadata"`
	Shipping  *orders.ShippingAddress  `json:"shipping"`
	CartItems []orders.LineItem        `json:"cartItems"`
}

type createIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	OrderID         string `json:"orderId"`
	Subtotal        string `json:"subtotal"`
	VAT             string `json:"vat"`
	Total           string `json:"total"`
}

// CreatePaymentIntent starts a card checkout: pending order first, then the
// gateway intent for the tax-inclusive total.
func CreatePaymentIntent(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createIntentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		res, err := svc.CreateIntent(ctx, checkout.CreateIntentInput{
			Amount:    req.Amount,
			Currency:  req.Currency,
			UserID:    req.UserID,
			Metadata:  req.Metadata,
			Shipping:  req.Shipping,
			CartItems: req.CartItems,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, createIntentResponse{
			ClientSecret:    res.ClientSecret,
			PaymentIntentID: res.PaymentIntentID,
			OrderID:         res.OrderID,
			Subtotal:        vat.FormatMinorWithCurrency(res.Breakdown.SubtotalAmount),
			VAT:             vat.FormatMinorWithCurrency(res.Breakdown.VATAmount),
			Total:           vat.FormatMinorWithCurrency(res.Breakdown.TotalAmount),
		})
	}
}

type paymentIntentResponse struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Created  int64             `json:"created"`
	Metadata map[string]string `json:"metadata"`
}

// GetPaymentIntent lets the storefront poll an intent's state after the
// browser hand-off.
func GetPaymentIntent(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		intent, err := svc.GetIntent(ctx, chi.URLParam(r, "paymentIntentId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentIntentResponse{
			ID:       intent.ID,
			Amount:   intent.Amount,
			Currency: string(intent.Currency),
			Status:   string(intent.Status),
			Created:  intent.Created,
			Metadata: intent.Metadata,
		})
	}
}

type refundRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
	Amount          *int64 `json:"amount" validate:"omitempty,gt=0"`
	Reason          string `json:"reason"`
}

type refundResponse struct {
	RefundID string `json:"refundId"`
	Status   string `json:"status"`
}

// RefundPayment refunds an intent's latest charge; an omitted amount means
// a full refund.
func RefundPayment(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		res, err := svc.Refund(ctx, checkout.RefundInput{
			PaymentIntentID: req.PaymentIntentID,
			Amount:          req.Amount,
			Reason:          req.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, refundResponse{RefundID: res.RefundID, Status: res.Status})
	}
}
