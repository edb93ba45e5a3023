package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drygo/backend/internal/domain/order"
)

const (
	orderColumns = `id, order_number, user_id, customer_name, customer_email, customer_phone,
		shipping_address, items, coupon_code, payment_method,
		status, tracking_number, delivery_estimate, cancellation_reason,
		subtotal, shipping, tax, discount, total, created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (id, order_number, user_id,
		customer_name, customer_email, customer_phone,
		shipping_address, items, coupon_code, payment_method,
		status, delivery_estimate,
		subtotal, shipping, tax, discount, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19)`

	getOrderByIDSQL     = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC`
	listOrdersByEmailSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE customer_email = LOWER($1) ORDER BY created_at DESC`

	// Both mutations guard the terminal states in the predicate, so a
	// concurrent delivery or cancellation cannot be overwritten.
	updateOrderStatusSQL = `UPDATE orders SET status = $2,
		tracking_number = COALESCE(NULLIF($3, ''), tracking_number),
		delivery_estimate = COALESCE(NULLIF($4, ''), delivery_estimate),
		updated_at = now()
		WHERE id = $1 AND status NOT IN ('delivered', 'cancelled')
		RETURNING ` + orderColumns

	cancelOrderSQL = `UPDATE orders SET status = 'cancelled',
		cancellation_reason = $2, updated_at = now()
		WHERE id = $1 AND status NOT IN ('delivered', 'cancelled')
		RETURNING ` + orderColumns

	getOrderStatusSQL = `SELECT status FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. When redemption is non-nil the coupon usage
// increments run in the same transaction, so a failed insert never leaves a
// recorded redemption behind. A duplicate order number surfaces as
// order.ErrNumberTaken for the caller to regenerate.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, redemption *order.Redemption) error {
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if redemption != nil {
		if err := redeemCoupon(ctx, tx, redemption.Code, redemption.UserID); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.OrderNumber, o.UserID,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		addressJSON, itemsJSON, o.CouponCode, o.PaymentMethod,
		o.Status, o.DeliveryEstimate,
		o.Subtotal, o.Shipping, o.Tax, o.Discount, o.Total, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return order.ErrNumberTaken
		}
		return fmt.Errorf("creating order %q: %w", o.OrderNumber, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.OrderNumber, err)
	}
	return nil
}

// GetByID returns an order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByIDSQL, id)
}

// GetByNumber returns an order by its customer-facing number.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByNumberSQL, number)
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListByEmail returns orders for a customer email, newest first.
func (r *OrderRepository) ListByEmail(ctx context.Context, email string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", email, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus applies an administrative status transition. Terminal orders
// reject the update.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, upd order.StatusUpdate) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateOrderStatusSQL,
		id, upd.Status, upd.TrackingNumber, upd.DeliveryEstimate,
	)
	if err != nil {
		return nil, fmt.Errorf("updating status of order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyMiss(ctx, id, false)
		}
		return nil, fmt.Errorf("updating status of order %q: %w", id, err)
	}
	return &o, nil
}

// Cancel marks an order cancelled with the given reason. Terminal orders
// reject the cancellation.
func (r *OrderRepository) Cancel(ctx context.Context, id, reason string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, cancelOrderSQL, id, reason)
	if err != nil {
		return nil, fmt.Errorf("cancelling order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyMiss(ctx, id, true)
		}
		return nil, fmt.Errorf("cancelling order %q: %w", id, err)
	}
	return &o, nil
}

func (r *OrderRepository) getOne(ctx context.Context, query, arg string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", arg, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", arg, err)
	}
	return &o, nil
}

// classifyMiss re-reads the row a guarded mutation skipped and maps its
// state to the right sentinel.
func (r *OrderRepository) classifyMiss(ctx context.Context, id string, cancelling bool) error {
	var status order.Status
	err := r.pool.QueryRow(ctx, getOrderStatusSQL, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return order.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading status of order %q: %w", id, err)
	}

	if cancelling {
		switch status {
		case order.StatusCancelled:
			return order.ErrAlreadyCancelled
		case order.StatusDelivered:
			return order.ErrDelivered
		}
	}
	return order.ErrTerminalStatus
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		addressJSON []byte
		itemsJSON   []byte
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&addressJSON, &itemsJSON, &o.CouponCode, &o.PaymentMethod,
		&o.Status, &o.TrackingNumber, &o.DeliveryEstimate, &o.CancellationReason,
		&o.Subtotal, &o.Shipping, &o.Tax, &o.Discount, &o.Total, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(addressJSON, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("decoding shipping address of order %q: %w", o.ID, err)
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("decoding items of order %q: %w", o.ID, err)
	}
	return o, nil
}
