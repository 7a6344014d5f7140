package orders

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pkgerrors "github.com/omaraldhaheri/zaina-backend/pkg/errors"
)

const (
	ordersCollection   = "orders"
	paymentsCollection = "payments"
	refundsCollection  = "refunds"
	usersCollection    = "users"
	cartSubcollection  = "cart"
)

// Store is the document-store surface the lifecycle controller depends on.
// Reads report missing documents as CodeNotFound; writes that merge
// (UpdateOrder, RecordPayment, RecordRefund) tolerate re-application.
type Store interface {
	CreatePendingOrder(ctx context.Context, order *Order) (string, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	UpdateOrder(ctx context.Context, orderID string, fields map[string]any) error
	FindOrderByChargeID(ctx context.Context, chargeID string) (*Order, error)
	RecordPayment(ctx context.Context, orderID string, record PaymentRecord) error
	RecordRefund(ctx context.Context, orderID string, record RefundRecord) error
	ClearCart(ctx context.Context, userID string) error
}

type firestoreStore struct {
	client *firestore.Client
}

// NewStore wraps a Firestore client as the order store adapter.
func NewStore(client *firestore.Client) (Store, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "firestore client required")
	}
	return &firestoreStore{client: client}, nil
}

func (s *firestoreStore) CreatePendingOrder(ctx context.Context, order *Order) (string, error) {
	if order == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	ref := s.client.Collection(ordersCollection).NewDoc()
	if _, err := ref.Create(ctx, order); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pending order")
	}
	order.ID = ref.ID
	return ref.ID, nil
}

func (s *firestoreStore) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	snap, err := s.client.Collection(ordersCollection).Doc(orderID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return decodeOrder(snap)
}

// UpdateOrder merge-sets the provided fields; unrelated fields on the order
// document survive. updatedAt is stamped on every call.
func (s *firestoreStore) UpdateOrder(ctx context.Context, orderID string, fields map[string]any) error {
	if orderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if len(fields) == 0 {
		return nil
	}
	merged := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["updatedAt"] = time.Now().UTC()

	_, err := s.client.Collection(ordersCollection).Doc(orderID).Set(ctx, merged, firestore.MergeAll)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	return nil
}

func (s *firestoreStore) FindOrderByChargeID(ctx context.Context, chargeID string) (*Order, error) {
	if chargeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge id required")
	}
	it := s.client.Collection(ordersCollection).
		Where("paymentData.chargeId", "==", chargeID).
		Limit(1).
		Documents(ctx)
	defer it.Stop()

	snap, err := it.Next()
	if err == iterator.Done {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for charge")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query order by charge")
	}
	return decodeOrder(snap)
}

func (s *firestoreStore) RecordPayment(ctx context.Context, orderID string, record PaymentRecord) error {
	if orderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	record.OrderID = orderID
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.client.Collection(paymentsCollection).Doc(orderID).Set(ctx, record, firestore.MergeAll)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
	}
	return nil
}

func (s *firestoreStore) RecordRefund(ctx context.Context, orderID string, record RefundRecord) error {
	if orderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	record.OrderID = orderID
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.client.Collection(refundsCollection).Doc(orderID).Set(ctx, record, firestore.MergeAll)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund")
	}
	return nil
}

// ClearCart removes every document in the buyer's cart subcollection inside
// a single transaction, so the cart is either fully cleared or untouched.
func (s *firestoreStore) ClearCart(ctx context.Context, userID string) error {
	if userID == "" || userID == GuestUserID {
		return nil
	}
	cart := s.client.Collection(usersCollection).Doc(userID).Collection(cartSubcollection)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		it := tx.Documents(cart)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			if err := tx.Delete(snap.Ref); err != nil {
				return err
			}
		}
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func decodeOrder(snap *firestore.DocumentSnapshot) (*Order, error) {
	var order Order
	if err := snap.DataTo(&order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode order document")
	}
	if !order.Status.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order document carries unknown status "+string(order.Status))
	}
	order.ID = snap.Ref.ID
	return &order, nil
}
