package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/drygo/backend/internal/domain/pricing"
	"github.com/drygo/backend/internal/domain/product"
)

// Service mutates carts and prices every returned view.
type Service struct {
	products product.Repository
	carts    Repository
	pricing  pricing.Config
}

func NewService(products product.Repository, carts Repository, pricingCfg pricing.Config) *Service {
	return &Service{
		products: products,
		carts:    carts,
		pricing:  pricingCfg,
	}
}

// View returns the priced cart. A user without a cart sees an empty one.
func (s *Service) View(ctx context.Context, userID string) (*View, error) {
	items, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return s.view(items), nil
}

// Add puts quantity units of a product into the cart, merging with an
// existing line. Quantities below one default to a single unit.
func (s *Service) Add(ctx context.Context, userID, productID string, quantity int) (*View, error) {
	if productID == "" {
		return nil, errors.New("product id is required")
	}
	if quantity < 1 {
		quantity = 1
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	items, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	merged := false
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Image:     p.Image,
			Quantity:  quantity,
		})
	}

	if err := s.carts.Save(ctx, userID, items); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return s.view(items), nil
}

// UpdateQuantity sets the quantity of an existing line. Removal goes
// through Remove, so quantities below one are rejected.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*View, error) {
	if productID == "" {
		return nil, errors.New("product id is required")
	}
	if quantity < 1 {
		return nil, errors.New("quantity must be at least 1")
	}

	items, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}

	found := false
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = quantity
			found = true
			break
		}
	}
	if !found {
		return nil, ErrItemNotFound
	}

	if err := s.carts.Save(ctx, userID, items); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return s.view(items), nil
}

// Remove drops a line from the cart.
func (s *Service) Remove(ctx context.Context, userID, productID string) (*View, error) {
	items, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}

	kept := items[:0]
	for _, it := range items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		return nil, ErrItemNotFound
	}

	if err := s.carts.Save(ctx, userID, kept); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return s.view(kept), nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID string) (*View, error) {
	items, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}
	return s.view(nil), nil
}

func (s *Service) view(items []Item) *View {
	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{Price: it.Price, Quantity: it.Quantity}
	}

	totals := s.pricing.CartView(lines)

	v := &View{
		Items:      items,
		ItemCount:  len(items),
		CartTotals: totals,
	}
	if v.Items == nil {
		v.Items = []Item{}
	}
	if totals.AmountForFreeShipping.IsPositive() {
		v.Message = fmt.Sprintf("Add ₹%s more for free shipping!", totals.AmountForFreeShipping)
	}
	return v
}
