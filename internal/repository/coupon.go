package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drygo/backend/internal/domain/coupon"
)

const (
	couponColumns = `id, code, description, discount_type, value, min_order_amount,
		max_discount, usage_limit, per_user_limit, used_count,
		valid_from, valid_until, active, created_at, updated_at`

	getCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	getCouponByIDSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE id = $1`

	getUserUsageSQL = `SELECT used_count FROM coupon_usages
		WHERE coupon_code = $1 AND user_id = $2`

	createCouponSQL = `INSERT INTO coupons (id, code, description, discount_type, value,
		min_order_amount, max_discount, usage_limit, per_user_limit,
		valid_from, valid_until, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	updateCouponSQL = `UPDATE coupons SET description = $2, discount_type = $3, value = $4,
		min_order_amount = $5, max_discount = $6, usage_limit = $7, per_user_limit = $8,
		valid_from = $9, valid_until = $10, active = $11, updated_at = now()
		WHERE id = $1`

	disableCouponSQL = `UPDATE coupons SET active = FALSE, updated_at = now() WHERE id = $1`

	// Redemption runs inside the order-create transaction. The predicate
	// re-checks the global cap at write time so a lost race cannot
	// overspend it.
	redeemCouponSQL = `UPDATE coupons SET used_count = used_count + 1, updated_at = now()
		WHERE UPPER(code) = UPPER($1) AND active = TRUE
		  AND (usage_limit IS NULL OR used_count < usage_limit)
		RETURNING code, per_user_limit`

	recordUserUsageSQL = `INSERT INTO coupon_usages (coupon_code, user_id, used_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (coupon_code, user_id)
		DO UPDATE SET used_count = coupon_usages.used_count + 1
		WHERE $3::int = 0 OR coupon_usages.used_count < $3::int`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code, case-insensitively. Disabled
// coupons are returned too: the ledger distinguishes inactive from unknown.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// UserUsage returns how many times userID has redeemed the coupon.
func (r *CouponRepository) UserUsage(ctx context.Context, code, userID string) (int, error) {
	var used int
	err := r.pool.QueryRow(ctx, getUserUsageSQL, code, userID).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting usage of coupon %q: %w", code, err)
	}
	return used, nil
}

// Create inserts a new coupon. Returns coupon.ErrCodeExists when the code
// is already taken (case-insensitively).
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, createCouponSQL,
		c.ID, c.Code, c.Description, c.DiscountType, c.Value,
		c.MinOrderAmount, c.MaxDiscount, c.UsageLimit, c.PerUserLimit,
		c.ValidFrom, c.ValidUntil, c.Active, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrCodeExists
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// GetByID returns a coupon by its identifier.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}
	return &c, nil
}

// List returns coupons, optionally filtered on current usability.
func (r *CouponRepository) List(ctx context.Context, filter coupon.ListFilter) ([]coupon.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons`
	switch {
	case filter.Active == nil:
	case *filter.Active:
		query += ` WHERE active = TRUE AND valid_until >= now()`
	default:
		query += ` WHERE active = FALSE OR valid_until < now()`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Update applies the non-nil fields of upd and returns the updated coupon.
// The read and write share a transaction so concurrent updates serialize.
func (r *CouponRepository) Update(ctx context.Context, id string, upd coupon.Update) (*coupon.Coupon, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning update of coupon %q: %w", id, err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, getCouponByIDSQL+` FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}

	applyCouponUpdate(&c, upd)

	_, err = tx.Exec(ctx, updateCouponSQL,
		c.ID, c.Description, c.DiscountType, c.Value,
		c.MinOrderAmount, c.MaxDiscount, c.UsageLimit, c.PerUserLimit,
		c.ValidFrom, c.ValidUntil, c.Active,
	)
	if err != nil {
		return nil, fmt.Errorf("updating coupon %q: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing update of coupon %q: %w", id, err)
	}
	return &c, nil
}

// Disable soft-disables a coupon. Records are never deleted.
func (r *CouponRepository) Disable(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, disableCouponSQL, id)
	if err != nil {
		return fmt.Errorf("disabling coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// redeemCoupon records a redemption inside tx, re-checking both usage caps
// at write time. The caller already validated eligibility; here only the
// caps can still fail under concurrency.
func redeemCoupon(ctx context.Context, tx pgx.Tx, code, userID string) error {
	var (
		storedCode   string
		perUserLimit int
	)
	err := tx.QueryRow(ctx, redeemCouponSQL, code).Scan(&storedCode, &perUserLimit)
	if errors.Is(err, pgx.ErrNoRows) {
		return coupon.ErrUsageLimitReached
	}
	if err != nil {
		return fmt.Errorf("redeeming coupon %q: %w", code, err)
	}

	if userID == "" {
		return nil
	}

	tag, err := tx.Exec(ctx, recordUserUsageSQL, storedCode, userID, perUserLimit)
	if err != nil {
		return fmt.Errorf("recording usage of coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrPerUserLimitReached
	}
	return nil
}

func applyCouponUpdate(c *coupon.Coupon, upd coupon.Update) {
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	if upd.DiscountType != nil {
		c.DiscountType = *upd.DiscountType
	}
	if upd.Value != nil {
		c.Value = *upd.Value
	}
	if upd.MinOrderAmount != nil {
		c.MinOrderAmount = *upd.MinOrderAmount
	}
	if upd.MaxDiscount != nil {
		c.MaxDiscount = upd.MaxDiscount
	}
	if upd.UsageLimit != nil {
		c.UsageLimit = upd.UsageLimit
	}
	if upd.PerUserLimit != nil {
		c.PerUserLimit = *upd.PerUserLimit
	}
	if upd.ValidFrom != nil {
		c.ValidFrom = *upd.ValidFrom
	}
	if upd.ValidUntil != nil {
		c.ValidUntil = *upd.ValidUntil
	}
	if upd.Active != nil {
		c.Active = *upd.Active
	}
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &c.DiscountType, &c.Value, &c.MinOrderAmount,
		&c.MaxDiscount, &c.UsageLimit, &c.PerUserLimit, &c.UsedCount,
		&c.ValidFrom, &c.ValidUntil, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
