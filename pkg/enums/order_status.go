package enums

// OrderStatus tracks the order lifecycle. Transitions only move forward:
// pending -> paid | payment_failed, paid -> refunded | partially_refunded.
// COD orders are created directly in processing.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusPaid              OrderStatus = "paid"
	OrderStatusPaymentFailed     OrderStatus = "payment_failed"
	OrderStatusProcessing        OrderStatus = "processing"
	OrderStatusRefunded          OrderStatus = "refunded"
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusPaymentFailed,
		OrderStatusProcessing, OrderStatusRefunded, OrderStatusPartiallyRefunded:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further payment transition applies.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusRefunded, OrderStatusPaymentFailed:
		return true
	default:
		return false
	}
}
