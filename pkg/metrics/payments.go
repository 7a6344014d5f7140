package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records counters for the payment and receipt pipeline.
type PaymentMetrics struct {
	intentsCreated *prometheus.CounterVec
	webhookEvents  *prometheus.CounterVec
	refunds        *prometheus.CounterVec
	receiptEmails  *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intents_created_total",
		Help: "Payment intents created, by outcome.",
	}, []string{"outcome"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Gateway webhook events received, by type and outcome.",
	}, []string{"type", "outcome"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Refunds issued, by kind (full/partial).",
	}, []string{"kind"})
	emails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "receipt_emails_total",
		Help: "Receipt emails attempted, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(intents, events, refunds, emails)
	return &PaymentMetrics{
		intentsCreated: intents,
		webhookEvents:  events,
		refunds:        refunds,
		receiptEmails:  emails,
	}
}

// IncIntentCreated increments the intent counter for the given outcome.
func (m *PaymentMetrics) IncIntentCreated(outcome string) {
	if m == nil || m.intentsCreated == nil {
		return
	}
	m.intentsCreated.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncWebhookEvent increments the webhook counter for the given event type and outcome.
func (m *PaymentMetrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// IncRefund increments the refund counter for the given kind.
func (m *PaymentMetrics) IncRefund(kind string) {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncReceiptEmail increments the receipt email counter for the given outcome.
func (m *PaymentMetrics) IncReceiptEmail(outcome string) {
	if m == nil || m.receiptEmails == nil {
		return
	}
	m.receiptEmails.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
