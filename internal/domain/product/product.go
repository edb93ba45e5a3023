// Package product defines the read-only catalog contract. The catalog is a
// collaborator: order creation resolves authoritative prices from it and
// never trusts client-supplied prices.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Badge       string
	Nutrition   []NutritionFact
}

// NutritionFact is a single row in a product's nutrition table.
type NutritionFact struct {
	Nutrient string `json:"nutrient"`
	Per100g  string `json:"per100g"`
	Per5g    string `json:"per5g,omitempty"`
	RDA      string `json:"rda,omitempty"`
}

// Repository defines read operations on the catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
