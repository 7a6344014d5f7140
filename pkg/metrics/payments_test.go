package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPaymentMetricsExportCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPaymentMetrics(reg)

	metrics.IncIntentCreated("success")
	metrics.IncWebhookEvent("payment_intent.succeeded", "processed")
	metrics.IncWebhookEvent("payment_intent.succeeded", "processed")
	metrics.IncRefund("full")
	metrics.IncReceiptEmail("sent")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "payment_intents_created_total", "outcome", "success"); err != nil {
		t.Fatalf("fetch intents: %v", err)
	} else if got != 1 {
		t.Fatalf("expected intents=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "webhook_events_total", "type", "payment_intent.succeeded"); err != nil {
		t.Fatalf("fetch events: %v", err)
	} else if got != 2 {
		t.Fatalf("expected events=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "refunds_total", "kind", "full"); err != nil {
		t.Fatalf("fetch refunds: %v", err)
	} else if got != 1 {
		t.Fatalf("expected refunds=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "receipt_emails_total", "outcome", "sent"); err != nil {
		t.Fatalf("fetch emails: %v", err)
	} else if got != 1 {
		t.Fatalf("expected emails=1, got %f", got)
	}
}

func TestPaymentMetricsNilSafe(t *testing.T) {
	var metrics *PaymentMetrics
	metrics.IncIntentCreated("success")
	metrics.IncWebhookEvent("x", "y")
	metrics.IncRefund("partial")
	metrics.IncReceiptEmail("")

	empty := NewPaymentMetrics(nil)
	empty.IncIntentCreated("success")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
