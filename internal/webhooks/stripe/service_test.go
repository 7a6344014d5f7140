package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/omaraldhaheri/zaina-backend/internal/orders"
	"github.com/omaraldhaheri/zaina-backend/pkg/enums"
	pkgerrors "github.com/omaraldhaheri/zaina-backend/pkg/errors"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
)

type fakeStore struct {
	orders       map[string]*orders.Order
	byCharge     map[string]*orders.Order
	updates      map[string][]map[string]any
	payments     map[string]orders.PaymentRecord
	refunds      map[string]orders.RefundRecord
	clearedCarts []string
	getErr       error
	updateErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   map[string]*orders.Order{},
		byCharge: map[string]*orders.Order{},
		updates:  map[string][]map[string]any{},
		payments: map[string]orders.PaymentRecord{},
		refunds:  map[string]orders.RefundRecord{},
	}
}

func (f *fakeStore) CreatePendingOrder(ctx context.Context, order *orders.Order) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeStore) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	order, ok := f.orders[orderID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (f *fakeStore) UpdateOrder(ctx context.Context, orderID string, fields map[string]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[orderID] = append(f.updates[orderID], fields)
	if order, ok := f.orders[orderID]; ok {
		if status, ok := fields["status"].(enums.OrderStatus); ok {
			order.Status = status
		}
	}
	return nil
}

func (f *fakeStore) FindOrderByChargeID(ctx context.Context, chargeID string) (*orders.Order, error) {
	order, ok := f.byCharge[chargeID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (f *fakeStore) RecordPayment(ctx context.Context, orderID string, record orders.PaymentRecord) error {
	f.payments[orderID] = record
	return nil
}

func (f *fakeStore) RecordRefund(ctx context.Context, orderID string, record orders.RefundRecord) error {
	f.refunds[orderID] = record
	return nil
}

func (f *fakeStore) ClearCart(ctx context.Context, userID string) error {
	f.clearedCarts = append(f.clearedCarts, userID)
	return nil
}

type fakeDispatcher struct {
	enqueued []string
}

func (f *fakeDispatcher) Enqueue(ctx context.Context, order *orders.Order, orderID, svg string) bool {
	f.enqueued = append(f.enqueued, orderID)
	return true
}

func newTestService(t *testing.T, store *fakeStore, dispatcher *fakeDispatcher) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	params := ServiceParams{Store: store, Logger: logg}
	if dispatcher != nil {
		params.Dispatcher = dispatcher
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func pendingOrder(userID string) *orders.Order {
	return &orders.Order{
		ID:             "ord-1",
		UserID:         userID,
		Currency:       "aed",
		SubtotalAmount: 10000,
		VATAmount:      500,
		TotalAmount:    10500,
		Status:         enums.OrderStatusPending,
		Metadata:       map[string]string{"customerEmail": "mariam@example.com"},
	}
}

func intentSucceededEvent(t *testing.T, orderID string) *stripe.Event {
	t.Helper()
	intent := stripe.PaymentIntent{
		ID:           "pi_1",
		Amount:       10500,
		Currency:     stripe.CurrencyAED,
		LatestCharge: &stripe.Charge{ID: "ch_1"},
		Metadata:     map[string]string{},
	}
	if orderID != "" {
		intent.Metadata["order_id"] = orderID
	}
	raw, err := json.Marshal(intent)
	require.NoError(t, err)
	return &stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventTypePaymentIntentSucceeded,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestIntentSucceededTransitionsOrderToPaid(t *testing.T) {
	store := newFakeStore()
	store.orders["ord-1"] = pendingOrder("user-1")
	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, store, dispatcher)

	err := svc.HandleEvent(context.Background(), intentSucceededEvent(t, "ord-1"))
	require.NoError(t, err)

	require.Len(t, store.updates["ord-1"], 1)
	fields := store.updates["ord-1"][0]
	require.Equal(t, enums.OrderStatusPaid, fields["status"])
	payment := fields["paymentData"].(*orders.PaymentData)
	require.Equal(t, "ch_1", payment.ChargeID)
	require.Equal(t, enums.PaymentMethodCard, payment.Method)

	require.Equal(t, int64(10500), store.payments["ord-1"].Amount)
	require.Equal(t, []string{"user-1"}, store.clearedCarts)
	require.Equal(t, []string{"ord-1"}, dispatcher.enqueued)
}

func TestIntentSucceededIsIdempotentOnRedelivery(t *testing.T) {
	store := newFakeStore()
	store.orders["ord-1"] = pendingOrder("user-1")
	svc := newTestService(t, store, nil)

	event := intentSucceededEvent(t, "ord-1")
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	require.Equal(t, enums.OrderStatusPaid, store.orders["ord-1"].Status)
	// The merge is keyed on order id: re-delivery rewrites the same record
	// instead of duplicating it.
	require.Len(t, store.payments, 1)
}

func TestIntentSucceededGuestOrderSkipsCartClear(t *testing.T) {
	store := newFakeStore()
	store.orders["ord-1"] = pendingOrder(orders.GuestUserID)
	svc := newTestService(t, store, nil)

	require.NoError(t, svc.HandleEvent(context.Background(), intentSucceededEvent(t, "ord-1")))
	require.Empty(t, store.clearedCarts)
}

func TestMissingOrderIDIsAcknowledged(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, nil)

	err := svc.HandleEvent(context.Background(), intentSucceededEvent(t, ""))
	require.NoError(t, err)
	require.Empty(t, store.updates)
}

func TestUnknownOrderIsAcknowledged(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, nil)

	err := svc.HandleEvent(context.Background(), intentSucceededEvent(t, "ord-missing"))
	require.NoError(t, err)
	require.Empty(t, store.updates)
}

func TestIntentSucceededStoreOutageFailsDelivery(t *testing.T) {
	store := newFakeStore()
	store.getErr = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("firestore unavailable"), "load order")
	svc := newTestService(t, store, nil)

	// The paid transition must not be silently lost: an outage has to fail
	// the delivery so the gateway retries once the store is back.
	err := svc.HandleEvent(context.Background(), intentSucceededEvent(t, "ord-1"))
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeDependency, appErr.Code())
	require.Empty(t, store.updates)
	require.Empty(t, store.payments)
}

func TestIntentSucceededDoesNotRevertTerminalOrder(t *testing.T) {
	store := newFakeStore()
	order := pendingOrder("user-1")
	order.Status = enums.OrderStatusRefunded
	store.orders["ord-1"] = order
	svc := newTestService(t, store, nil)

	require.NoError(t, svc.HandleEvent(context.Background(), intentSucceededEvent(t, "ord-1")))
	require.Empty(t, store.updates)
	require.Empty(t, store.payments)
	require.Equal(t, enums.OrderStatusRefunded, store.orders["ord-1"].Status)
}

func TestIntentFailedTransitionsOrder(t *testing.T) {
	store := newFakeStore()
	store.orders["ord-1"] = pendingOrder("user-1")
	svc := newTestService(t, store, nil)

	intent := stripe.PaymentIntent{ID: "pi_1", Metadata: map[string]string{"order_id": "ord-1"}}
	raw, err := json.Marshal(intent)
	require.NoError(t, err)
	event := &stripe.Event{
		ID:   "evt_2",
		Type: stripe.EventTypePaymentIntentPaymentFailed,
		Data: &stripe.EventData{Raw: raw},
	}

	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.Equal(t, enums.OrderStatusPaymentFailed, store.orders["ord-1"].Status)
}

func chargeRefundedEvent(t *testing.T, amount, refunded int64) *stripe.Event {
	t.Helper()
	charge := stripe.Charge{ID: "ch_1", Amount: amount, AmountRefunded: refunded}
	raw, err := json.Marshal(charge)
	require.NoError(t, err)
	return &stripe.Event{
		ID:   "evt_3",
		Type: stripe.EventTypeChargeRefunded,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestChargeFullyRefunded(t *testing.T) {
	store := newFakeStore()
	order := pendingOrder("user-1")
	order.Status = enums.OrderStatusPaid
	store.orders["ord-1"] = order
	store.byCharge["ch_1"] = order
	svc := newTestService(t, store, nil)

	require.NoError(t, svc.HandleEvent(context.Background(), chargeRefundedEvent(t, 10500, 10500)))

	fields := store.updates["ord-1"][0]
	require.Equal(t, enums.OrderStatusRefunded, fields["status"])
	require.Equal(t, int64(10500), fields["refundAmount"])
	require.True(t, store.refunds["ord-1"].Full)
}

func TestChargePartiallyRefunded(t *testing.T) {
	store := newFakeStore()
	order := pendingOrder("user-1")
	order.Status = enums.OrderStatusPaid
	store.orders["ord-1"] = order
	store.byCharge["ch_1"] = order
	svc := newTestService(t, store, nil)

	require.NoError(t, svc.HandleEvent(context.Background(), chargeRefundedEvent(t, 10500, 5000)))

	fields := store.updates["ord-1"][0]
	require.Equal(t, enums.OrderStatusPartiallyRefunded, fields["status"])
	require.False(t, store.refunds["ord-1"].Full)
}

func TestChargeRefundedUnknownChargeIsAcknowledged(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, nil)

	require.NoError(t, svc.HandleEvent(context.Background(), chargeRefundedEvent(t, 10500, 10500)))
	require.Empty(t, store.updates)
}

func TestUnknownEventTypeIsAcknowledged(t *testing.T) {
	svc := newTestService(t, newFakeStore(), nil)

	event := &stripe.Event{
		ID:   "evt_4",
		Type: stripe.EventType("customer.created"),
		Data: &stripe.EventData{Raw: []byte("{}")},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), event))
}

type inMemoryIdempotencyStore struct {
	data map[string]string
}

func (s *inMemoryIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	return s.data[key], nil
}

func (s *inMemoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = "1"
	return true, nil
}

func (s *inMemoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "zaina:idempotency:" + scope + ":" + id
}

func (s *inMemoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func TestIdempotencyGuardMarksAndReleases(t *testing.T) {
	store := &inMemoryIdempotencyStore{data: map[string]string{}}
	guard, err := NewIdempotencyGuard(store, time.Minute, "stripe-webhook")
	require.NoError(t, err)

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	require.NoError(t, err)
	require.False(t, seen)

	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	require.NoError(t, err)
	require.True(t, seen)

	require.NoError(t, guard.Delete(context.Background(), "evt_1"))
	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	require.NoError(t, err)
	require.False(t, seen)
}
