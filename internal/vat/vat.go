package vat

import (
	"github.com/shopspring/decimal"
)

// UAE VAT is a fixed statutory rate; the rate and the store's FTA tax
// registration number are compiled in rather than configured.
const (
	RateLabel          = "5%"
	RegistrationNumber = "100247018900003"
	CurrencyCode       = "AED"
)

// Rate is the VAT fraction applied on top of pre-tax subtotals.
var Rate = decimal.New(5, -2)

// Breakdown is the value object embedded into orders and API responses.
// Amounts are minor currency units (fils).
type Breakdown struct {
	SubtotalAmount int64
	VATAmount      int64
	TotalAmount    int64
	Rate           decimal.Decimal
	RateLabel      string
}

// Compute derives the VAT breakdown for a pre-tax subtotal in minor units.
// The subtotal is always treated as tax-exclusive; VAT is added on top,
// never backed out of a tax-inclusive total. Rounding is half away from
// zero, so a given subtotal always produces the same total.
func Compute(subtotal int64) Breakdown {
	vatAmount := decimal.NewFromInt(subtotal).Mul(Rate).Round(0).IntPart()
	return Breakdown{
		SubtotalAmount: subtotal,
		VATAmount:      vatAmount,
		TotalAmount:    subtotal + vatAmount,
		Rate:           Rate,
		RateLabel:      RateLabel,
	}
}

// FormatMinor renders a minor-unit amount as a two-decimal major-unit string.
func FormatMinor(amount int64) string {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// FormatMinorWithCurrency renders an amount with the display currency suffix.
func FormatMinorWithCurrency(amount int64) string {
	return FormatMinor(amount) + " " + CurrencyCode
}
