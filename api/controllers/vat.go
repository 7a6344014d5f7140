package controllers

import (
	"net/http"

	"github.com/omaraldhaheri/zaina-backend/api/responses"
	"github.com/omaraldhaheri/zaina-backend/api/validators"
	"github.com/omaraldhaheri/zaina-backend/internal/vat"
	pkgerrors "github.com/omaraldhaheri/zaina-backend/pkg/errors"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
)

type vatCalculateRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

type vatComplianceBlock struct {
	RateLabel          string `json:"vatRate"`
	RegistrationNumber string `json:"taxRegistrationNumber"`
	Currency           string `json:"currency"`
}

type vatCalculateResponse struct {
	Subtotal   string             `json:"subtotal"`
	VAT        string             `json:"vat"`
	Total      string             `json:"total"`
	Compliance vatComplianceBlock `json:"compliance"`
}

// VATCalculate returns a display-ready VAT breakdown. The amount is the
// pre-tax subtotal in fils; VAT is added on top.
func VATCalculate(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req vatCalculateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if req.Amount <= 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer of fils"))
			return
		}

		b := vat.Compute(req.Amount)
		responses.WriteSuccess(w, vatCalculateResponse{
			Subtotal: vat.FormatMinorWithCurrency(b.SubtotalAmount),
			VAT:      vat.FormatMinorWithCurrency(b.VATAmount),
			Total:    vat.FormatMinorWithCurrency(b.TotalAmount),
			Compliance: vatComplianceBlock{
				RateLabel:          b.RateLabel,
				RegistrationNumber: vat.RegistrationNumber,
				Currency:           vat.CurrencyCode,
			},
		})
	}
}

type calculateVATRequest struct {
	Subtotal int64 `json:"subtotal" validate:"required,gt=0"`
}

type calculateVATResponse struct {
	Calculation struct {
		Subtotal string `json:"subtotal"`
		VAT      string `json:"vat"`
		Total    string `json:"total"`
	} `json:"calculation"`
	Breakdown struct {
		SubtotalAmount int64   `json:"subtotalAmount"`
		VATAmount      int64   `json:"vatAmount"`
		TotalAmount    int64   `json:"totalAmount"`
		Rate           float64 `json:"vatRate"`
		RateLabel      string  `json:"vatPercentage"`
	} `json:"breakdown"`
}

// CalculateVAT returns both display strings and the raw minor-unit
// breakdown, for callers that persist the numbers.
func CalculateVAT(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req calculateVATRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if req.Subtotal <= 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must be a positive integer of fils"))
			return
		}

		b := vat.Compute(req.Subtotal)
		rate, _ := b.Rate.Float64()

		var resp calculateVATResponse
		resp.Calculation.Subtotal = vat.FormatMinorWithCurrency(b.SubtotalAmount)
		resp.Calculation.VAT = vat.FormatMinorWithCurrency(b.VATAmount)
		resp.Calculation.Total = vat.FormatMinorWithCurrency(b.TotalAmount)
		resp.Breakdown.SubtotalAmount = b.SubtotalAmount
		resp.Breakdown.VATAmount = b.VATAmount
		resp.Breakdown.TotalAmount = b.TotalAmount
		resp.Breakdown.Rate = rate
		resp.Breakdown.RateLabel = b.RateLabel

		responses.WriteSuccess(w, resp)
	}
}
