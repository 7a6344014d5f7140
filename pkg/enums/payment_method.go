package enums

// PaymentMethod identifies how an order was (or will be) paid.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCOD  PaymentMethod = "cod"
)
