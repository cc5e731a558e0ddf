package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"ecommerce-backend/internal/apperr"
	"ecommerce-backend/internal/entity"
	"ecommerce-backend/internal/payment"
	"ecommerce-backend/internal/repository"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// ProductFinder is the catalog lookup the order flow depends on.
type ProductFinder interface {
	FindByIDs(ctx context.Context, ids []int64) ([]*entity.Product, error)
}

// EventPublisher is satisfied by *kafka.Writer.
type EventPublisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type CreateOrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// OrderService owns the order lifecycle: creation against the catalog and
// gateway, user queries, user cancellation, and the webhook-driven terminal
// transitions.
type OrderService struct {
	orderRepo *repository.OrderRepository
	products  ProductFinder
	gateway   *payment.Client
	publisher EventPublisher
}

func NewOrderService(orderRepo *repository.OrderRepository, products ProductFinder, gateway *payment.Client, publisher EventPublisher) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		products:  products,
		gateway:   gateway,
		publisher: publisher,
	}
}

// Create validates the requested items against the catalog, opens a payment
// intent for the catalog-priced total, and only then persists the PENDING
// order carrying the intent reference. Client-supplied prices are never
// read; the catalog is authoritative.
func (s *OrderService) Create(ctx context.Context, userID int64, items []CreateOrderItem, currency string) (*entity.Order, string, error) {
	if len(items) == 0 {
		return nil, "", apperr.ErrEmptyOrderItems
	}

	products, err := s.validateProducts(ctx, items)
	if err != nil {
		return nil, "", err
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, "", apperr.ErrInvalidQuantity
		}
	}

	var totalAmount int64
	orderItems := make([]entity.OrderItem, 0, len(items))
	for _, item := range items {
		product := products[item.ProductID]
		totalAmount += product.Price * int64(item.Quantity)
		orderItems = append(orderItems, entity.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
		})
	}

	if currency == "" {
		currency = "usd"
	}

	intent, err := s.gateway.CreateIntent(ctx, totalAmount, currency, map[string]string{
		"user_id": fmt.Sprintf("%d", userID),
	})
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Error creating payment intent")
		return nil, "", apperr.Upstream("create payment intent", err)
	}

	now := time.Now().UTC()
	order := &entity.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           orderItems,
		TotalAmount:     totalAmount,
		Currency:        currency,
		Status:          entity.OrderStatusPending,
		PaymentIntentID: intent.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		logger.Error().Err(err).Str("order_id", order.ID).Msg("Error creating order")
		return nil, "", err
	}

	s.publishOrderEvent(ctx, order, "created")

	return order, intent.ClientSecret, nil
}

// List returns the caller's orders, newest first.
func (s *OrderService) List(ctx context.Context, userID int64) ([]*entity.Order, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Error listing orders")
		return nil, err
	}
	return orders, nil
}

// Get returns one of the caller's orders, or a not-found error that does not
// reveal whether the id exists under another owner.
func (s *OrderService) Get(ctx context.Context, orderID string, userID int64) (*entity.Order, error) {
	order, err := s.orderRepo.GetByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		logger.Error().Err(err).Str("order_id", orderID).Msg("Error getting order")
		return nil, err
	}
	if order == nil {
		return nil, apperr.ErrOrderNotFound
	}
	return order, nil
}

// Cancel cancels one of the caller's PENDING orders. The gateway cancel must
// confirm before the local state flips: a timed-out remote cancel aborts the
// whole cancellation, and losing the conditional update to a concurrent
// payment outcome surfaces as OrderNotCancellable.
func (s *OrderService) Cancel(ctx context.Context, orderID string, userID int64) (*entity.Order, error) {
	order, err := s.orderRepo.GetPendingByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		logger.Error().Err(err).Str("order_id", orderID).Msg("Error getting order for cancellation")
		return nil, err
	}
	if order == nil {
		return nil, apperr.ErrOrderNotCancellable
	}

	if err := s.gateway.CancelIntent(ctx, order.PaymentIntentID); err != nil {
		logger.Error().Err(err).Str("order_id", orderID).Msg("Error cancelling payment intent")
		return nil, apperr.Upstream("cancel payment intent", err)
	}

	rows, err := s.orderRepo.CancelPendingByID(ctx, orderID, userID)
	if err != nil {
		logger.Error().Err(err).Str("order_id", orderID).Msg("Error cancelling order")
		return nil, err
	}
	if rows == 0 {
		// a webhook transition landed between the read and the update
		return nil, apperr.ErrOrderNotCancellable
	}

	order.Status = entity.OrderStatusCancelled
	s.publishOrderEvent(ctx, order, "cancelled")

	return order, nil
}

// ApplyPaymentOutcome transitions the order referenced by paymentIntentID to
// a terminal status. Replays are successful no-ops even when the ledger
// record was purged: a zero-row update against an order already in the
// target state never regresses it and never errors.
func (s *OrderService) ApplyPaymentOutcome(ctx context.Context, paymentIntentID string, status entity.OrderStatus, paidAt *time.Time) error {
	// Payment outcomes only ever resolve an order; PENDING is not a
	// destination.
	if !status.Terminal() {
		return fmt.Errorf("payment outcome requires a terminal status, got %q", status)
	}

	rows, err := s.orderRepo.UpdateStatusByPaymentIntentID(ctx, paymentIntentID, status, paidAt)
	if err != nil {
		logger.Error().Err(err).Str("payment_intent_id", paymentIntentID).Msg("Error applying payment outcome")
		return err
	}

	if rows == 0 {
		order, err := s.orderRepo.GetByPaymentIntentID(ctx, paymentIntentID)
		if err != nil {
			return err
		}
		if order == nil {
			logger.Warn().Str("payment_intent_id", paymentIntentID).Msg("No order for payment intent")
			return nil
		}
		if order.Status == status {
			logger.Info().Str("order_id", order.ID).Str("status", string(status)).Msg("Order already in target status, skipping")
			return nil
		}
		logger.Warn().Str("order_id", order.ID).
			Str("current", string(order.Status)).Str("requested", string(status)).
			Msg("Payment outcome lost race against terminal status")
		return nil
	}

	order, err := s.orderRepo.GetByPaymentIntentID(ctx, paymentIntentID)
	if err != nil || order == nil {
		return err
	}
	s.publishOrderEvent(ctx, order, eventName(status))

	logger.Info().Str("order_id", order.ID).Str("status", string(status)).Msg("Order transitioned by payment outcome")
	return nil
}

func eventName(status entity.OrderStatus) string {
	switch status {
	case entity.OrderStatusPaid:
		return "paid"
	case entity.OrderStatusFailed:
		return "failed"
	case entity.OrderStatusCancelled:
		return "cancelled"
	default:
		return "updated"
	}
}

func (s *OrderService) validateProducts(ctx context.Context, items []CreateOrderItem) (map[int64]*entity.Product, error) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		logger.Error().Err(err).Msg("Error resolving products")
		return nil, err
	}

	byID := make(map[int64]*entity.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	for _, item := range items {
		if _, ok := byID[item.ProductID]; !ok {
			return nil, apperr.MissingProduct(item.ProductID)
		}
	}
	return byID, nil
}

// publishOrderEvent emits the order lifecycle event to Kafka. Publishing is
// best-effort: the order state is already durable and downstream consumers
// tolerate gaps, so a broker outage must not fail the request.
func (s *OrderService) publishOrderEvent(ctx context.Context, order *entity.Order, event string) {
	orderJSON, err := json.Marshal(order)
	if err != nil {
		logger.Error().Err(err).Str("order_id", order.ID).Msg("Error marshalling order event")
		return
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("order-%s-%s", event, order.ID)),
		Value: orderJSON,
	}
	if err := s.publisher.WriteMessages(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Str("order_id", order.ID).Str("event", event).Msg("Error publishing order event")
	}
}
