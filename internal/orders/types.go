package orders

import (
	"strings"
	"time"

	"github.com/omaraldhaheri/zaina-backend/pkg/enums"
)

// GuestUserID is the sentinel buyer id for unauthenticated checkouts.
const GuestUserID = "guest"

// LineItem is an immutable snapshot of a cart item at checkout time.
// Prices are minor currency units (fils).
type LineItem struct {
	ProductID    string `firestore:"productId" json:"productId"`
	Name         string `firestore:"name" json:"name"`
	UnitPrice    int64  `firestore:"unitPrice" json:"unitPrice"`
	Quantity     int64  `firestore:"quantity" json:"quantity"`
	Size         string `firestore:"size,omitempty" json:"size,omitempty"`
	Color        string `firestore:"color,omitempty" json:"color,omitempty"`
	DisplayColor string `firestore:"displayColor,omitempty" json:"displayColor,omitempty"`
	Image        string `firestore:"image,omitempty" json:"image,omitempty"`
}

// ShippingAddress is the structured delivery address on an order.
type ShippingAddress struct {
	Name       string `firestore:"name,omitempty" json:"name,omitempty"`
	Phone      string `firestore:"phone,omitempty" json:"phone,omitempty"`
	Line1      string `firestore:"line1,omitempty" json:"line1,omitempty"`
	Line2      string `firestore:"line2,omitempty" json:"line2,omitempty"`
	City       string `firestore:"city,omitempty" json:"city,omitempty"`
	State      string `firestore:"state,omitempty" json:"state,omitempty"`
	PostalCode string `firestore:"postalCode,omitempty" json:"postalCode,omitempty"`
	Country    string `firestore:"country,omitempty" json:"country,omitempty"`
}

// PaymentData is written once the gateway confirms payment.
type PaymentData struct {
	ChargeID string              `firestore:"chargeId,omitempty" json:"chargeId,omitempty"`
	Method   enums.PaymentMethod `firestore:"method,omitempty" json:"method,omitempty"`
}

// Order is the central entity. Amounts are fixed at creation and never
// recomputed; only Status, RefundID, RefundAmount, PaymentData, and
// UpdatedAt mutate afterwards.
type Order struct {
	ID string `firestore:"-" json:"id"`

	UserID                string            `firestore:"userId" json:"userId"`
	Items                 []LineItem        `firestore:"items" json:"items"`
	Currency              string            `firestore:"currency" json:"currency"`
	SubtotalAmount        int64             `firestore:"subtotalAmount" json:"subtotalAmount"`
	VATAmount             int64             `firestore:"vatAmount" json:"vatAmount"`
	TotalAmount           int64             `firestore:"totalAmount" json:"totalAmount"`
	VATRate               float64           `firestore:"vatRate" json:"vatRate"`
	VATPercentage         string            `firestore:"vatPercentage" json:"vatPercentage"`
	TaxRegistrationNumber string            `firestore:"taxRegistrationNumber" json:"taxRegistrationNumber"`
	Shipping              *ShippingAddress  `firestore:"shipping,omitempty" json:"shipping,omitempty"`
	Metadata              map[string]string `firestore:"metadata,omitempty" json:"metadata,omitempty"`
	PaymentIntentID       string            `firestore:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
	Status                enums.OrderStatus `firestore:"status" json:"status"`
	PaymentData           *PaymentData      `firestore:"paymentData,omitempty" json:"paymentData,omitempty"`
	RefundID              string            `firestore:"refundId,omitempty" json:"refundId,omitempty"`
	RefundAmount          int64             `firestore:"refundAmount,omitempty" json:"refundAmount,omitempty"`
	CreatedAt             time.Time         `firestore:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time         `firestore:"updatedAt" json:"updatedAt"`
}

// PaymentRecord is the bookkeeping document written when a payment settles,
// keyed by order id so re-delivered webhooks merge instead of duplicating.
type PaymentRecord struct {
	OrderID         string              `firestore:"orderId" json:"orderId"`
	PaymentIntentID string              `firestore:"paymentIntentId" json:"paymentIntentId"`
	ChargeID        string              `firestore:"chargeId,omitempty" json:"chargeId,omitempty"`
	Amount          int64               `firestore:"amount" json:"amount"`
	Currency        string              `firestore:"currency" json:"currency"`
	Method          enums.PaymentMethod `firestore:"method" json:"method"`
	Metadata        map[string]string   `firestore:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt       time.Time           `firestore:"createdAt" json:"createdAt"`
}

// RefundRecord is the bookkeeping document for a refund, keyed by order id.
type RefundRecord struct {
	OrderID   string    `firestore:"orderId" json:"orderId"`
	RefundID  string    `firestore:"refundId" json:"refundId"`
	ChargeID  string    `firestore:"chargeId,omitempty" json:"chargeId,omitempty"`
	Amount    int64     `firestore:"amount" json:"amount"`
	Full      bool      `firestore:"full" json:"full"`
	Reason    string    `firestore:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

// IsGuest reports whether the order belongs to an unauthenticated buyer.
// Upstream callers are inconsistent about where they stash the flag, so all
// known locations are checked.
func (o *Order) IsGuest() bool {
	if o == nil {
		return true
	}
	if o.UserID == "" || o.UserID == GuestUserID {
		return true
	}
	for _, key := range []string{"isGuestOrder", "is_guest_order", "guestOrder"} {
		if v, ok := o.Metadata[key]; ok && strings.EqualFold(v, "true") {
			return true
		}
	}
	return false
}

// CustomerEmail resolves the recipient address across the metadata fields
// different order-creation flows populate. Empty means no address known.
func (o *Order) CustomerEmail() string {
	if o == nil {
		return ""
	}
	for _, key := range []string{"customerEmail", "customer_email", "userEmail", "email"} {
		if v := strings.TrimSpace(o.Metadata[key]); v != "" {
			return v
		}
	}
	return ""
}

// CustomerName resolves a display name, preferring metadata over shipping.
func (o *Order) CustomerName() string {
	if o == nil {
		return ""
	}
	for _, key := range []string{"customerName", "customer_name", "name"} {
		if v := strings.TrimSpace(o.Metadata[key]); v != "" {
			return v
		}
	}
	if o.Shipping != nil {
		return strings.TrimSpace(o.Shipping.Name)
	}
	return ""
}
