package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"ecommerce-backend/internal/entity"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db}
}

const orderColumns = `id, user_id, total_amount, currency, status, payment_intent_id, paid_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*entity.Order, error) {
	order := &entity.Order{}
	var status string
	err := row.Scan(&order.ID, &order.UserID, &order.TotalAmount, &order.Currency, &status,
		&order.PaymentIntentID, &order.PaidAt, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.Status = entity.OrderStatus(status)
	return order, nil
}

// Create persists the order and its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	orderQuery := `INSERT INTO orders (` + orderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, orderQuery, order.ID, order.UserID, order.TotalAmount, order.Currency,
		string(order.Status), order.PaymentIntentID, order.PaidAt, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		tx.Rollback()
		return err
	}

	// Batch insert items
	itemQuery := `INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price) VALUES `
	var values []any
	for _, item := range order.Items {
		itemQuery += "(?, ?, ?, ?, ?),"
		values = append(values, order.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice)
	}
	itemQuery = itemQuery[:len(itemQuery)-1]

	_, err = tx.ExecContext(ctx, itemQuery, values...)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// GetByIDAndUserID returns nil when the order does not exist or belongs to
// another user.
func (r *OrderRepository) GetByIDAndUserID(ctx context.Context, id string, userID int64) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ? AND user_id = ?`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetPendingByIDAndUserID returns the order only when it is still PENDING
// and owned by userID.
func (r *OrderRepository) GetPendingByIDAndUserID(ctx context.Context, id string, userID int64) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ? AND user_id = ? AND status = ?`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id, userID, string(entity.OrderStatusPending)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetByPaymentIntentID is the webhook path's only addressing mechanism; the
// provider event carries the intent reference, never the order id.
func (r *OrderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_intent_id = ?`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, paymentIntentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByUserID returns the caller's orders, newest first.
func (r *OrderRepository) ListByUserID(ctx context.Context, userID int64) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*entity.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// UpdateStatusByPaymentIntentID applies a webhook-driven transition as a
// single atomic conditional update. The PENDING guard is what serializes a
// racing user-cancel against a racing payment outcome across process
// instances; the loser observes zero rows affected.
func (r *OrderRepository) UpdateStatusByPaymentIntentID(ctx context.Context, paymentIntentID string, status entity.OrderStatus, paidAt *time.Time) (int64, error) {
	query := `UPDATE orders SET status = ?, paid_at = COALESCE(?, paid_at), updated_at = ? WHERE payment_intent_id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query, string(status), paidAt, time.Now().UTC(), paymentIntentID, string(entity.OrderStatusPending))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CancelPendingByID is the user-cancel transition, guarded the same way.
func (r *OrderRepository) CancelPendingByID(ctx context.Context, id string, userID int64) (int64, error) {
	query := `UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND user_id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query, string(entity.OrderStatusCancelled), time.Now().UTC(), id, userID, string(entity.OrderStatusPending))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *OrderRepository) loadItems(ctx context.Context, order *entity.Order) error {
	query := `SELECT product_id, product_name, quantity, unit_price FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		item := entity.OrderItem{}
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
