package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce-backend/internal/apperr"
	"ecommerce-backend/internal/entity"
	"ecommerce-backend/internal/repository"
)

func testCatalog() *stubProducts {
	return &stubProducts{catalog: map[int64]*entity.Product{
		1: {ID: 1, Name: "Keyboard", Price: 4500, Currency: "usd"},
		2: {ID: 2, Name: "Mouse", Price: 2500, Currency: "usd"},
	}}
}

func insertPendingOrder(t *testing.T, repo *repository.OrderRepository, userID int64, paymentIntentID string) *entity.Order {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	order := &entity.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           []entity.OrderItem{{ProductID: 1, ProductName: "Keyboard", Quantity: 1, UnitPrice: 4500}},
		TotalAmount:     4500,
		Currency:        "usd",
		Status:          entity.OrderStatusPending,
		PaymentIntentID: paymentIntentID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestOrderService_Create(t *testing.T) {
	db := newTestDB(t)
	orderRepo := repository.NewOrderRepository(db)
	publisher := &capturePublisher{}
	gateway := newTestGateway(t, intentStub("pi_create_ok"))
	svc := NewOrderService(orderRepo, testCatalog(), gateway, publisher)

	order, clientSecret, err := svc.Create(context.Background(), 42, []CreateOrderItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, int64(11500), order.TotalAmount)
	assert.Equal(t, "usd", order.Currency)
	assert.Equal(t, entity.OrderStatusPending, order.Status)
	assert.Equal(t, "pi_create_ok", order.PaymentIntentID)
	assert.Equal(t, "pi_create_ok_secret_abc", clientSecret)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(4500), order.Items[0].UnitPrice)

	stored, err := orderRepo.GetByIDAndUserID(context.Background(), order.ID, 42)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entity.OrderStatusPending, stored.Status)
	assert.Len(t, stored.Items, 2)

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, "order-created-"+order.ID, publisher.keys()[0])
}

func TestOrderService_Create_EmptyItems(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(repository.NewOrderRepository(db), testCatalog(),
		newTestGateway(t, intentStub("pi_x")), &capturePublisher{})

	_, _, err := svc.Create(context.Background(), 1, nil, "usd")
	assert.ErrorIs(t, err, apperr.ErrEmptyOrderItems)
}

func TestOrderService_Create_UnknownProduct(t *testing.T) {
	db := newTestDB(t)
	orderRepo := repository.NewOrderRepository(db)
	gatewayCalls := 0
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gatewayCalls++
		intentStub("pi_never")(w, r)
	})
	svc := NewOrderService(orderRepo, testCatalog(), gateway, &capturePublisher{})

	_, _, err := svc.Create(context.Background(), 1, []CreateOrderItem{
		{ProductID: 1, Quantity: 1},
		{ProductID: 999, Quantity: 1},
	}, "usd")
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 400, appErr.Status)
	assert.Contains(t, appErr.Message, "999")

	// Nothing went to the gateway and nothing was persisted.
	assert.Equal(t, 0, gatewayCalls)
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestOrderService_Create_InvalidQuantity(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(repository.NewOrderRepository(db), testCatalog(),
		newTestGateway(t, intentStub("pi_x")), &capturePublisher{})

	_, _, err := svc.Create(context.Background(), 1, []CreateOrderItem{{ProductID: 1, Quantity: 0}}, "usd")
	assert.ErrorIs(t, err, apperr.ErrInvalidQuantity)
}

func TestOrderService_Create_GatewayFailure(t *testing.T) {
	db := newTestDB(t)
	orderRepo := repository.NewOrderRepository(db)
	gateway := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"internal"}}`, http.StatusInternalServerError)
	})
	svc := NewOrderService(orderRepo, testCatalog(), gateway, &capturePublisher{})

	_, _, err := svc.Create(context.Background(), 1, []CreateOrderItem{{ProductID: 1, Quantity: 1}}, "usd")
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 502, appErr.Status)

	// No order is persisted when the intent never opened.
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestOrderService_Get(t *testing.T) {
	db := newTestDB(t)
	orderRepo := repository.NewOrderRepository(db)
	svc := NewOrderService(orderRepo, testCatalog(), newTestGateway(t, intentStub("pi_x")), &capturePublisher{})

	order := insertPendingOrder(t, orderRepo, 5, "pi_get")

	got, err := svc.Get(context.Background(), order.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	// Other users get not-found, not forbidden.
	_, err = svc.Get(context.Background(), order.ID, 6)
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)

	_, err = svc.Get(context.Background(), uuid.NewString(), 5)
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
}

func TestOrderService_Cancel(t *testing.T) {
	db := newTestDB(t)
	orderRepo := repository.NewOrderRepository(db)
	publisher := &capturePublisher{}
	cancelled := false
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/payment_intents/pi_cancel/cancel" {
			cancelled = true
		}
		intentStub("pi_cancel")(w, r)
	})
	svc := NewOrderService(orderRepo, testCatalog(), gateway, publisher)

	order := insertPendingOrder(t, orderRepo, 7, "pi_cancel")

	got, err := svc.Cancel(context.Background(), order.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, got.Status)
	assert.True(t, cancelled)

	stored, err := orderRepo.GetByIDAndUserID(context.Background(), order.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, stored.Status)

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, "order-cancelled-"+order.ID, publisher.keys()[0])
}

func TestOrderService_Cancel_NotPending(t *testing.T) {
	db := newTestDB(t)
	orderRepo := repository.NewOrderRepository(db)
	gatewayCalls := 0
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gatewayCalls++
		intentStub("pi_x")(w, r)
	})
	svc := NewOrderService(orderRepo, testCatalog(), gateway, &capturePublisher{})

	order := insertPendingOrder(t, orderRepo, 8, "pi_paid")
	paidAt := time.Now().UTC()
	_, err := orderRepo.UpdateStatusByPaymentIntentID(context.Background(), "pi_paid", entity.OrderStatusPaid, &paidAt)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), order.ID, 8)
	assert.ErrorIs(t, err, apperr.ErrOrderNotCancellable)

	// Someone else's pending order is equally not cancellable.
	other := insertPendingOrder(t, orderRepo, 9, "pi_other")
	_, err = svc.Cancel(context.Background(), other.ID, 8)
	assert.ErrorIs(t, err, apperr.ErrOrderNotCancellable)

	// A terminal or foreign order never reaches the gateway.
	assert.Equal(t, 0, gatewayCalls)
}

func TestOrderService_Cancel_GatewayFailure(t *testing.T) {
	db := newTestDB(t)
	orderRepo := repository.NewOrderRepository(db)
	gateway := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"cannot cancel"}}`, http.StatusConflict)
	})
	svc := NewOrderService(orderRepo, testCatalog(), gateway, &capturePublisher{})

	order := insertPendingOrder(t, orderRepo, 10, "pi_stuck")

	_, err := svc.Cancel(context.Background(), order.ID, 10)
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 502, appErr.Status)

	// The remote cancel did not confirm, so the order stays PENDING.
	stored, err := orderRepo.GetByIDAndUserID(context.Background(), order.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPending, stored.Status)
}

func TestOrderService_ApplyPaymentOutcome(t *testing.T) {
	db := newTestDB(t)
	orderRepo := repository.NewOrderRepository(db)
	publisher := &capturePublisher{}
	svc := NewOrderService(orderRepo, testCatalog(), newTestGateway(t, intentStub("pi_x")), publisher)

	order := insertPendingOrder(t, orderRepo, 11, "pi_outcome")

	paidAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, svc.ApplyPaymentOutcome(context.Background(), "pi_outcome", entity.OrderStatusPaid, &paidAt))

	stored, err := orderRepo.GetByIDAndUserID(context.Background(), order.ID, 11)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, "order-paid-"+order.ID, publisher.keys()[0])

	// Replay of the same outcome is a silent no-op with no second event.
	require.NoError(t, svc.ApplyPaymentOutcome(context.Background(), "pi_outcome", entity.OrderStatusPaid, &paidAt))
	assert.Len(t, publisher.messages, 1)

	// A conflicting outcome after the terminal state is absorbed, not applied.
	require.NoError(t, svc.ApplyPaymentOutcome(context.Background(), "pi_outcome", entity.OrderStatusFailed, nil))
	stored, err = orderRepo.GetByIDAndUserID(context.Background(), order.ID, 11)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPaid, stored.Status)

	// An intent with no order is logged and absorbed.
	require.NoError(t, svc.ApplyPaymentOutcome(context.Background(), "pi_nobody", entity.OrderStatusPaid, &paidAt))
}

func TestOrderService_ApplyPaymentOutcome_NonTerminalStatus(t *testing.T) {
	db := newTestDB(t)
	orderRepo := repository.NewOrderRepository(db)
	svc := NewOrderService(orderRepo, testCatalog(), newTestGateway(t, intentStub("pi_x")), &capturePublisher{})

	order := insertPendingOrder(t, orderRepo, 12, "pi_pending")

	err := svc.ApplyPaymentOutcome(context.Background(), "pi_pending", entity.OrderStatusPending, nil)
	require.Error(t, err)

	stored, err := orderRepo.GetByIDAndUserID(context.Background(), order.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPending, stored.Status)
}
