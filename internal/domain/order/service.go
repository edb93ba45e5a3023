package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/drygo/backend/internal/domain/coupon"
	"github.com/drygo/backend/internal/domain/pricing"
	"github.com/drygo/backend/internal/domain/product"
)

const (
	defaultCountry       = "India"
	deliveryEstimateDays = 7
	notifyTimeout        = 15 * time.Second
)

// CouponValidator validates a coupon code against a cart total and caller
// identity, returning the discount quote. Satisfied by *coupon.Ledger.
type CouponValidator interface {
	Validate(ctx context.Context, code string, cartTotal decimal.Decimal, userID string) (*coupon.Quote, error)
}

// Notifier delivers the post-checkout confirmation. Implementations are
// best-effort: the order service logs failures and never propagates them.
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order) error
}

// CartLine is a client-submitted order line: a product reference and a
// quantity. Any client-supplied price is deliberately absent — unit prices
// are re-resolved from the catalog at order time.
type CartLine struct {
	ProductID string
	VariantID string
	Weight    string
	Quantity  int
}

// CreateRequest holds the input for placing an order.
type CreateRequest struct {
	UserID        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Address       Address
	Items         []CartLine
	CouponCode    string
	PaymentMethod PaymentMethod
}

// Service encapsulates order assembly and lifecycle business logic.
type Service struct {
	products product.Repository
	coupons  CouponValidator
	orders   Repository
	pricing  pricing.Config
	notifier Notifier

	now       func() time.Time
	genNumber func(time.Time) string
}

// NewService creates an order Service with the required dependencies.
// notifier may be nil to disable confirmations.
func NewService(
	products product.Repository,
	coupons CouponValidator,
	orders Repository,
	pricingCfg pricing.Config,
	notifier Notifier,
) *Service {
	return &Service{
		products:  products,
		coupons:   coupons,
		orders:    orders,
		pricing:   pricingCfg,
		notifier:  notifier,
		now:       time.Now,
		genNumber: GenerateNumber,
	}
}

// Create assembles and persists an order. Every step is a hard gate: any
// failure aborts before persistence and no partial order, coupon increment,
// or notification is left behind.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if err := validateCreate(&req); err != nil {
		return nil, err
	}

	// Re-resolve every line against the catalog. Prices come from here and
	// only here.
	items := make([]Item, len(req.Items))
	lines := make([]pricing.Line, len(req.Items))
	for i, cl := range req.Items {
		p, err := s.products.GetByID(ctx, cl.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: cl.ProductID}
			}
			return nil, errors.Wrapf(err, "get product %s", cl.ProductID)
		}

		items[i] = Item{
			ProductID: p.ID,
			VariantID: cl.VariantID,
			Weight:    cl.Weight,
			Name:      p.Name,
			Price:     p.Price,
			Image:     p.Image,
			Quantity:  cl.Quantity,
		}
		lines[i] = pricing.Line{Price: p.Price, Quantity: cl.Quantity}
	}

	subtotal := pricing.Subtotal(lines)

	// Coupon gate: validation against the raw subtotal. The usage increment
	// itself rides in the create transaction below.
	discount := decimal.Zero
	couponCode := ""
	var redemption *Redemption
	if req.CouponCode != "" {
		quote, err := s.coupons.Validate(ctx, req.CouponCode, subtotal, req.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "coupon")
		}
		discount = quote.Discount
		couponCode = quote.Coupon.Code
		redemption = &Redemption{Code: couponCode, UserID: req.UserID}
	}

	totals := s.pricing.Compute(lines, discount)
	now := s.now()

	o := &Order{
		ID:            uuid.New().String(),
		UserID:        req.UserID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),

		ShippingAddress: req.Address,
		Items:           items,
		CouponCode:      couponCode,
		PaymentMethod:   req.PaymentMethod,

		Status:           StatusPending,
		DeliveryEstimate: now.AddDate(0, 0, deliveryEstimateDays).Format("2006-01-02"),

		Subtotal: totals.Subtotal,
		Shipping: totals.Shipping,
		Tax:      totals.Tax,
		Discount: totals.Discount,
		Total:    totals.Total,

		CreatedAt: now,
		UpdatedAt: now,
	}

	// Generate-and-insert loop. The store's uniqueness constraint is the
	// arbiter; a collision just means another candidate.
	for {
		o.OrderNumber = s.genNumber(s.now())
		err := s.orders.Create(ctx, o, redemption)
		if err == nil {
			break
		}
		if errors.Is(err, ErrNumberTaken) {
			continue
		}
		return nil, errors.Wrap(err, "create order")
	}

	s.dispatchNotification(ctx, o)
	return o, nil
}

// dispatchNotification fires the confirmation on a detached context after
// the order is durable. Failures are logged and swallowed.
func (s *Service) dispatchNotification(ctx context.Context, o *Order) {
	if s.notifier == nil {
		return
	}

	lg := zctx.From(ctx)
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	go func() {
		defer cancel()
		if err := s.notifier.OrderCreated(notifyCtx, o); err != nil {
			lg.Warn("order notification failed",
				zap.String("order_number", o.OrderNumber),
				zap.Error(err),
			)
		}
	}()
}

// GetByNumber fetches an order by its number. When verifyEmail is non-empty
// it must match the stored customer email (case-insensitive).
func (s *Service) GetByNumber(ctx context.Context, number, verifyEmail string) (*Order, error) {
	o, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return checkEmail(o, verifyEmail)
}

// GetByID fetches an order by its id, with the same optional email check.
func (s *Service) GetByID(ctx context.Context, id, verifyEmail string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return checkEmail(o, verifyEmail)
}

func checkEmail(o *Order, verifyEmail string) (*Order, error) {
	if verifyEmail != "" && !strings.EqualFold(o.CustomerEmail, verifyEmail) {
		return nil, ErrEmailMismatch
	}
	return o, nil
}

// ListForUser returns the orders owned by userID, newest first. Callers may
// only list their own orders.
func (s *Service) ListForUser(ctx context.Context, callerID, userID string) ([]Order, error) {
	if callerID != userID {
		return nil, ErrNotOwner
	}
	return s.orders.ListByUser(ctx, callerID)
}

// ListByEmail returns the orders placed under the given customer email,
// newest first.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	return s.orders.ListByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// UpdateStatus applies an administrative status change. Price fields are
// untouchable; terminal orders reject any further update.
func (s *Service) UpdateStatus(ctx context.Context, id string, upd StatusUpdate) (*Order, error) {
	if !upd.Status.Valid() {
		return nil, &InvalidStatusError{Status: string(upd.Status)}
	}
	return s.orders.UpdateStatus(ctx, id, upd)
}

// Cancel cancels an order on behalf of its owner (or an administrator).
// Delivered and already-cancelled orders cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id, callerID, reason string, admin bool) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !admin && o.UserID != "" && o.UserID != callerID {
		return nil, ErrNotOwner
	}
	switch o.Status {
	case StatusCancelled:
		return nil, ErrAlreadyCancelled
	case StatusDelivered:
		return nil, ErrDelivered
	}

	return s.orders.Cancel(ctx, id, reason)
}

func validateCreate(req *CreateRequest) error {
	if req.CustomerName == "" || req.CustomerEmail == "" || req.CustomerPhone == "" {
		return &ValidationError{Reason: "missing required fields: customerName, customerEmail, customerPhone"}
	}

	addr := req.Address
	if addr.Line1 == "" || addr.City == "" || addr.State == "" || addr.Pincode == "" {
		return &ValidationError{Reason: "shipping address must include: line1, city, state, pincode"}
	}
	if req.Address.Country == "" {
		req.Address.Country = defaultCountry
	}

	if len(req.Items) == 0 {
		return &ValidationError{Reason: "cartItems must be a non-empty array"}
	}
	for _, it := range req.Items {
		if it.ProductID == "" || it.Quantity < 1 {
			return &ValidationError{Reason: "each cart item must have a productId and a quantity of at least 1"}
		}
	}

	if !req.PaymentMethod.Valid() {
		return &ValidationError{Reason: "payment method must be 'razorpay' or 'cod'"}
	}

	return nil
}
