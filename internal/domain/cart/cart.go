// Package cart implements the per-user shopping cart: a mutable scratchpad
// of product lines priced on every read. Carts never feed checkout totals
// directly, orders re-resolve everything against the catalog.
package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/drygo/backend/internal/domain/pricing"
)

var (
	// ErrNotFound is returned when a user has no cart to mutate.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when the referenced product is not in
	// the cart.
	ErrItemNotFound = errors.New("item not found in cart")
)

// Item is a cart line with the product details captured at add time.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// View is a priced snapshot of a cart, including the free-shipping nudge.
type View struct {
	Items     []Item `json:"items"`
	ItemCount int    `json:"itemCount"`

	pricing.CartTotals

	// Message nudges the customer toward the free-shipping threshold.
	// Empty once the threshold is met.
	Message string `json:"message,omitempty"`
}

// Repository stores cart lines keyed by user.
//
// Get returns an empty slice, not an error, for users without a cart.
type Repository interface {
	Get(ctx context.Context, userID string) ([]Item, error)
	Save(ctx context.Context, userID string, items []Item) error
	Clear(ctx context.Context, userID string) error
}
