// Package order implements order assembly: server-side re-pricing, coupon
// redemption, totals computation, unique order-number allocation, and the
// order status state machine.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is an order's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every known status, in happy-path order with cancelled last.
var Statuses = []Status{
	StatusPending, StatusConfirmed, StatusProcessing,
	StatusShipped, StatusDelivered, StatusCancelled,
}

// Valid reports whether s is one of the six known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// PaymentMethod enumerates the accepted payment options.
type PaymentMethod string

const (
	PaymentRazorpay       PaymentMethod = "razorpay"
	PaymentCashOnDelivery PaymentMethod = "cod"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentRazorpay || m == PaymentCashOnDelivery
}

// Address is a shipping destination.
type Address struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

// Item is a frozen line-item snapshot: name, price and image are copied from
// the catalog at creation time and never track later catalog edits.
type Item struct {
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId,omitempty"`
	Weight    string          `json:"weight,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// Order is an immutable purchase record. Money fields are frozen at
// creation; status transitions mutate only status-related fields.
type Order struct {
	ID            string
	OrderNumber   string
	UserID        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	ShippingAddress Address
	Items           []Item
	CouponCode      string
	PaymentMethod   PaymentMethod

	Status             Status
	TrackingNumber     string
	DeliveryEstimate   string
	CancellationReason string

	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sentinel errors.
var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrNumberTaken is returned by Repository.Create when the store's
	// uniqueness constraint rejects the candidate order number. The service
	// regenerates and retries; callers never see it.
	ErrNumberTaken = errors.New("order number already taken")
	// ErrNotOwner is returned when a caller acts on someone else's order.
	ErrNotOwner = errors.New("not authorized for this order")
	// ErrEmailMismatch is returned when an email-verified lookup does not
	// match the order's customer email.
	ErrEmailMismatch = errors.New("email verification failed")
	// ErrAlreadyCancelled is returned when cancelling a cancelled order.
	ErrAlreadyCancelled = errors.New("order is already cancelled")
	// ErrDelivered is returned when cancelling a delivered order.
	ErrDelivered = errors.New("cannot cancel a delivered order")
	// ErrTerminalStatus is returned when updating an order whose status
	// admits no further transitions.
	ErrTerminalStatus = errors.New("order status is terminal")
)

// ValidationError reports missing or malformed order-creation input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ProductNotFoundError names the cart line whose product reference did not
// resolve against the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

// InvalidStatusError reports an unknown status value on an admin update.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status: %q", e.Status)
}

// Redemption instructs Repository.Create to record a coupon redemption in
// the same transaction as the order insert.
type Redemption struct {
	Code   string
	UserID string
}

// StatusUpdate carries an administrative status change. Empty optional
// fields are left untouched; price fields are never updatable.
type StatusUpdate struct {
	Status           Status
	TrackingNumber   string
	DeliveryEstimate string
}

// Repository defines persistence operations for orders.
//
// Create must rely on a store-enforced uniqueness constraint for the order
// number, returning ErrNumberTaken on violation. When redemption is non-nil
// the coupon's usage counters are incremented in the same transaction,
// guarded by write-time cap preconditions: a lost race returns the coupon
// package's limit error and persists nothing.
type Repository interface {
	Create(ctx context.Context, o *Order, redemption *Redemption) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListByEmail(ctx context.Context, email string) ([]Order, error)
	// UpdateStatus applies upd to a non-terminal order and returns the
	// updated record. The terminal-state guard runs in the UPDATE predicate.
	UpdateStatus(ctx context.Context, id string, upd StatusUpdate) (*Order, error)
	// Cancel marks a non-terminal order cancelled, recording an optional
	// reason, with the same write-time guard.
	Cancel(ctx context.Context, id, reason string) (*Order, error)
}
