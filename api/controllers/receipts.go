package controllers

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/omaraldhaheri/zaina-backend/api/responses"
	"github.com/omaraldhaheri/zaina-backend/internal/orders"
	"github.com/omaraldhaheri/zaina-backend/internal/receipts"
	"github.com/omaraldhaheri/zaina-backend/internal/vat"
	pkgerrors "github.com/omaraldhaheri/zaina-backend/pkg/errors"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
)

type orderLoader interface {
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
}

type receiptEnqueuer interface {
	Enqueue(ctx context.Context, order *orders.Order, orderID, svg string) bool
}

type receiptResponse struct {
	Receipt  string `json:"receipt"`
	MimeType string `json:"mimeType"`
	Order    struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Subtotal string `json:"subtotal"`
		VAT      string `json:"vat"`
		Total    string `json:"total"`
	} `json:"order"`
}

// GetReceipt returns the order's receipt as base64 SVG and queues the
// receipt email as a side effect.
func GetReceipt(store orderLoader, dispatcher receiptEnqueuer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID := chi.URLParam(r, "orderId")
		if orderID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id required"))
			return
		}
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID)
		}

		order, err := store.GetOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		svg := receipts.Render(order, orderID)
		if dispatcher != nil {
			dispatcher.Enqueue(ctx, order, orderID, svg)
		}

		var resp receiptResponse
		resp.Receipt = base64.StdEncoding.EncodeToString([]byte(svg))
		resp.MimeType = "image/svg+xml"
		resp.Order.ID = orderID
		resp.Order.Status = string(order.Status)
		resp.Order.Subtotal = vat.FormatMinorWithCurrency(order.SubtotalAmount)
		resp.Order.VAT = vat.FormatMinorWithCurrency(order.VATAmount)
		resp.Order.Total = vat.FormatMinorWithCurrency(order.TotalAmount)

		responses.WriteSuccess(w, resp)
	}
}
