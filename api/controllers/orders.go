package controllers

import (
	"net/http"

	"github.com/omaraldhaheri/zaina-backend/api/responses"
	"github.com/omaraldhaheri/zaina-backend/api/validators"
	"github.com/omaraldhaheri/zaina-backend/internal/checkout"
	"github.com/omaraldhaheri/zaina-backend/internal/vat"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
)

type codOrderResponse struct {
	OrderID  string `json:"orderId"`
	Status   string `json:"status"`
	Subtotal string `json:"subtotal"`
	VAT      string `json:"vat"`
	Total    string `json:"total"`
}

// CreateCODOrder places a cash-on-delivery order. No gateway intent is
// involved; the order is created directly in processing.
func CreateCODOrder(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createIntentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, breakdown, err := svc.CreateCODOrder(ctx, checkout.CreateIntentInput{
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

		responses.WriteSuccessStatus(w, http.StatusCreated, codOrderResponse{
			OrderID:  orderID,
			Status:   "processing",
			Subtotal: vat.FormatMinorWithCurrency(breakdown.SubtotalAmount),
			VAT:      vat.FormatMinorWithCurrency(breakdown.VATAmount),
			Total:    vat.FormatMinorWithCurrency(breakdown.TotalAmount),
		})
	}
}
