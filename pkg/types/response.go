// Package types defines the JSON shapes of the storefront API. Every handler
// answers either a data envelope or an error envelope; the payment webhook is
// the one exception and answers the acknowledgment the gateway expects.
package types

// SuccessEnvelope wraps a handler payload under the data key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape: a stable code, a safe message, and
// optional structured details (field-level validation errors and the like).
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// WebhookAck is the body written back to the payment gateway once a webhook
// delivery has been verified and applied (or deliberately ignored).
type WebhookAck struct {
	Received bool `json:"received"`
}
