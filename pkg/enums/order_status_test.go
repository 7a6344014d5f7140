package enums

import "testing"

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{
		OrderStatusPending, OrderStatusPaid, OrderStatusPaymentFailed,
		OrderStatusProcessing, OrderStatusRefunded, OrderStatusPartiallyRefunded,
	} {
		if !s.Valid() {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if OrderStatus("").Valid() {
		t.Fatalf("empty status should not be valid")
	}
	if OrderStatus("shipped").Valid() {
		t.Fatalf("unknown status should not be valid")
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if !OrderStatusRefunded.Terminal() {
		t.Fatalf("refunded should be terminal")
	}
	if !OrderStatusPaymentFailed.Terminal() {
		t.Fatalf("payment_failed should be terminal")
	}
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusProcessing, OrderStatusPartiallyRefunded} {
		if s.Terminal() {
			t.Fatalf("%s should allow further transitions", s)
		}
	}
}
