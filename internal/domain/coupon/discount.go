package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DiscountFor calculates the discount a coupon yields on the given cart
// total, assuming the coupon already passed eligibility checks.
//
// Percentage discounts are capped at MaxDiscount when set; fixed discounts
// never exceed the cart total, so the resulting total cannot go negative.
// The result is rounded to two decimal places.
func DiscountFor(c *Coupon, cartTotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal

	switch c.DiscountType {
	case DiscountPercentage:
		amount = cartTotal.Mul(c.Value).Div(hundred)
		if c.MaxDiscount != nil && amount.GreaterThan(*c.MaxDiscount) {
			amount = *c.MaxDiscount
		}
	case DiscountFixed:
		amount = decimal.Min(c.Value, cartTotal)
	}

	return amount.Round(2)
}
