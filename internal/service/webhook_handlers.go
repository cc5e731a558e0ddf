package service

import (
	"context"
	"time"

	"ecommerce-backend/internal/entity"
)

// SuccessPaymentHandler resolves the order to PAID, stamping paidAt with the
// event's effective time.
type SuccessPaymentHandler struct {
	orders *OrderService
}

func NewSuccessPaymentHandler(orders *OrderService) *SuccessPaymentHandler {
	return &SuccessPaymentHandler{orders: orders}
}

func (h *SuccessPaymentHandler) Handle(ctx context.Context, paymentIntentID string, occurredAt time.Time) error {
	paidAt := occurredAt
	if paidAt.IsZero() || paidAt.Unix() == 0 {
		paidAt = time.Now().UTC()
	}
	return h.orders.ApplyPaymentOutcome(ctx, paymentIntentID, entity.OrderStatusPaid, &paidAt)
}

// FailedPaymentHandler resolves the order to FAILED.
type FailedPaymentHandler struct {
	orders *OrderService
}

func NewFailedPaymentHandler(orders *OrderService) *FailedPaymentHandler {
	return &FailedPaymentHandler{orders: orders}
}

func (h *FailedPaymentHandler) Handle(ctx context.Context, paymentIntentID string, _ time.Time) error {
	return h.orders.ApplyPaymentOutcome(ctx, paymentIntentID, entity.OrderStatusFailed, nil)
}

// CancelledPaymentHandler resolves the order to CANCELLED when the gateway
// reports the intent was cancelled out-of-band.
type CancelledPaymentHandler struct {
	orders *OrderService
}

func NewCancelledPaymentHandler(orders *OrderService) *CancelledPaymentHandler {
	return &CancelledPaymentHandler{orders: orders}
}

func (h *CancelledPaymentHandler) Handle(ctx context.Context, paymentIntentID string, _ time.Time) error {
	return h.orders.ApplyPaymentOutcome(ctx, paymentIntentID, entity.OrderStatusCancelled, nil)
}
