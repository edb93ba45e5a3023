package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Quote is the outcome of a successful validation: the coupon and the
// discount it yields on the given cart total.
type Quote struct {
	Coupon   *Coupon
	Discount decimal.Decimal
}

// Ledger validates coupon codes against their eligibility constraints. It is
// read-only: recording a redemption happens atomically inside order
// persistence, where the store re-checks the usage caps at write time.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

// NewLedger creates a Ledger backed by the given Repository.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

// Validate runs the eligibility checks in their fixed order — the first
// failing check wins — and computes the discount for the given cart total.
// userID may be empty for anonymous callers, in which case the per-user
// check is skipped. No usage is recorded.
func (l *Ledger) Validate(ctx context.Context, code string, cartTotal decimal.Decimal, userID string) (*Quote, error) {
	c, err := l.repo.FindByCode(ctx, CanonicalCode(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !c.Active {
		return nil, ErrInactive
	}

	now := l.now()
	if now.Before(c.ValidFrom) {
		return nil, ErrNotYetValid
	}
	if now.After(c.ValidUntil) {
		return nil, ErrExpired
	}

	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	if userID != "" && c.PerUserLimit > 0 {
		used, err := l.repo.UserUsage(ctx, c.Code, userID)
		if err != nil {
			return nil, errors.Wrap(err, "lookup user usage")
		}
		if used >= c.PerUserLimit {
			return nil, ErrPerUserLimitReached
		}
	}

	if cartTotal.LessThan(c.MinOrderAmount) {
		return nil, &BelowMinimumError{MinOrderAmount: c.MinOrderAmount}
	}

	return &Quote{Coupon: c, Discount: DiscountFor(c, cartTotal)}, nil
}
