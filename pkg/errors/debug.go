package errors

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"
)

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	StripeCode      string `json:"stripe_code,omitempty"`
	StripeType      string `json:"stripe_type,omitempty"`
	StripeRequestID string `json:"stripe_request_id,omitempty"`
	StripeStatus    int    `json:"stripe_status,omitempty"`
	StripeMessage   string `json:"stripe_message,omitempty"`
}

// Dump flattens an error chain for structured logging, pulling out the
// gateway's own diagnostics when a Stripe API error is in the chain.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		d.StripeCode = string(stripeErr.Code)
		d.StripeType = string(stripeErr.Type)
		d.StripeRequestID = stripeErr.RequestID
		d.StripeStatus = stripeErr.HTTPStatusCode
		d.StripeMessage = stripeErr.Msg
	}

	return d
}
