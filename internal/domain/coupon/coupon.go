// Package coupon implements the coupon ledger: eligibility validation,
// discount computation, and usage-tracked redemption.
package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the cart total.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the cart total.
	DiscountFixed DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Sentinel errors for the validation chain, in check order.
var (
	// ErrNotFound is returned when a coupon code does not resolve to a record.
	ErrNotFound = errors.New("invalid coupon code")
	// ErrInactive is returned when a coupon has been soft-disabled.
	ErrInactive = errors.New("coupon is not active")
	// ErrNotYetValid is returned before a coupon's validity window opens.
	ErrNotYetValid = errors.New("coupon is not yet valid")
	// ErrExpired is returned after a coupon's validity window closes.
	ErrExpired = errors.New("coupon has expired")
	// ErrUsageLimitReached is returned when the global usage cap is exhausted.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrPerUserLimitReached is returned when the caller has exhausted their
	// personal usage allowance.
	ErrPerUserLimitReached = errors.New("user limit exceeded for this coupon")
	// ErrCodeExists is returned when creating a coupon with a taken code.
	ErrCodeExists = errors.New("coupon code already exists")
)

// BelowMinimumError is returned when the cart total does not reach the
// coupon's minimum order amount.
type BelowMinimumError struct {
	MinOrderAmount decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("minimum order amount of %s required for this coupon", e.MinOrderAmount)
}

// Coupon is a discount rule with usage constraints. UsedCount and the
// per-user counters are mutated only through Repository.Redeem.
type Coupon struct {
	ID           string
	Code         string
	Description  string
	DiscountType DiscountType
	Value        decimal.Decimal
	// MinOrderAmount is the smallest cart total the coupon applies to.
	MinOrderAmount decimal.Decimal
	// MaxDiscount caps percentage discounts; nil means no cap.
	MaxDiscount *decimal.Decimal
	// UsageLimit caps total redemptions; nil means unlimited.
	UsageLimit *int
	// PerUserLimit caps redemptions per caller identity; 0 means unlimited.
	PerUserLimit int
	UsedCount    int
	ValidFrom    time.Time
	ValidUntil   time.Time
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanonicalCode normalizes a user-supplied code: trimmed, upper-cased.
func CanonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Update carries the mutable administrative fields of a coupon. Nil fields
// are left unchanged; code and usage counters are never updatable.
type Update struct {
	Description    *string
	DiscountType   *DiscountType
	Value          *decimal.Decimal
	MinOrderAmount *decimal.Decimal
	MaxDiscount    *decimal.Decimal
	UsageLimit     *int
	PerUserLimit   *int
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	Active         *bool
}

// Repository provides lookup and administrative mutation of coupon records.
//
// Usage counters are not mutated here: redemption increments run inside the
// order-create transaction (see the order repository), guarded by write-time
// cap preconditions, so a failed order never leaves a dangling redemption
// and a lost race never overspends a cap.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// UserUsage returns how many times userID has redeemed the coupon.
	UserUsage(ctx context.Context, code, userID string) (int, error)

	Create(ctx context.Context, c *Coupon) error
	GetByID(ctx context.Context, id string) (*Coupon, error)
	List(ctx context.Context, filter ListFilter) ([]Coupon, error)
	Update(ctx context.Context, id string, upd Update) (*Coupon, error)
	// Disable soft-disables a coupon. Records are never deleted: historical
	// orders keep referencing their codes.
	Disable(ctx context.Context, id string) error
}

// ListFilter narrows List results.
type ListFilter struct {
	// Active filters on current usability: true keeps active, unexpired
	// coupons; false keeps disabled or expired ones; nil keeps everything.
	Active *bool
}
