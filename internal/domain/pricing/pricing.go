// Package pricing computes order and cart totals under the store's fixed
// business rules: free shipping above a subtotal threshold, a flat shipping
// fee below it, and GST applied to the discounted subtotal.
package pricing

import "github.com/shopspring/decimal"

// Line is a single priced line: authoritative unit price times quantity.
type Line struct {
	Price    decimal.Decimal
	Quantity int
}

// Totals holds the computed money fields of an order, each rounded to two
// decimal places.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// CartTotals extends Totals with the free-shipping progress fields shown on
// cart views.
type CartTotals struct {
	Totals
	AmountForFreeShipping decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// Config holds the pricing constants. The zero value is unusable; start from
// DefaultConfig.
type Config struct {
	// FreeShippingThreshold is the raw (pre-discount) subtotal at and above
	// which shipping is free.
	FreeShippingThreshold decimal.Decimal
	// ShippingFee is the flat fee charged below the threshold.
	ShippingFee decimal.Decimal
	// TaxRate is the GST rate applied to the discounted subtotal.
	TaxRate decimal.Decimal
}

// DefaultConfig returns the store defaults: free shipping at 250, fee 49,
// 5% GST.
func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: decimal.NewFromInt(250),
		ShippingFee:           decimal.NewFromInt(49),
		TaxRate:               decimal.NewFromFloat(0.05),
	}
}

// Subtotal returns the sum of price * quantity across lines at full precision.
// Rounding happens once, at the output boundary of Compute / CartView.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Compute calculates order totals for the given lines and an already-settled
// discount amount. Shipping eligibility is decided on the raw subtotal while
// tax applies to the discounted subtotal; the asymmetry is deliberate and
// matches the storefront.
func (c Config) Compute(lines []Line, discount decimal.Decimal) Totals {
	subtotal := Subtotal(lines)
	shipping := c.shippingFor(subtotal)
	tax := subtotal.Sub(discount).Mul(c.TaxRate).Round(2)
	total := subtotal.Sub(discount).Add(shipping).Add(tax).Round(2)

	return Totals{
		Subtotal: subtotal.Round(2),
		Shipping: shipping,
		Tax:      tax,
		Discount: discount.Round(2),
		Total:    total,
	}
}

// CartView calculates the pre-checkout cart totals. No discount applies at
// this stage, and the view additionally reports how much more the customer
// must add to reach free shipping.
func (c Config) CartView(lines []Line) CartTotals {
	subtotal := Subtotal(lines)
	shipping := c.shippingFor(subtotal)
	tax := subtotal.Mul(c.TaxRate).Round(2)
	total := subtotal.Add(shipping).Add(tax).Round(2)

	remaining := decimal.Zero
	if subtotal.LessThan(c.FreeShippingThreshold) {
		remaining = c.FreeShippingThreshold.Sub(subtotal).Round(2)
	}

	return CartTotals{
		Totals: Totals{
			Subtotal: subtotal.Round(2),
			Shipping: shipping,
			Tax:      tax,
			Discount: decimal.Zero,
			Total:    total,
		},
		AmountForFreeShipping: remaining,
		FreeShippingThreshold: c.FreeShippingThreshold,
	}
}

func (c Config) shippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(c.FreeShippingThreshold) {
		return decimal.Zero
	}
	return c.ShippingFee
}
