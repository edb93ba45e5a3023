package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDiscountFor(t *testing.T) {
	tests := []struct {
		name      string
		coupon    *Coupon
		cartTotal decimal.Decimal
		want      decimal.Decimal
	}{
		{
			name: "percentage",
			coupon: &Coupon{
				DiscountType: DiscountPercentage,
				Value:        decimal.NewFromInt(10),
			},
			cartTotal: decimal.NewFromInt(200),
			want:      decimal.NewFromInt(20),
		},
		{
			name: "percentage capped at max discount",
			coupon: &Coupon{
				DiscountType: DiscountPercentage,
				Value:        decimal.NewFromInt(10),
				MaxDiscount:  decPtr("20"),
			},
			cartTotal: decimal.NewFromInt(300),
			want:      decimal.NewFromInt(20),
		},
		{
			name: "percentage under the cap is untouched",
			coupon: &Coupon{
				DiscountType: DiscountPercentage,
				Value:        decimal.NewFromInt(10),
				MaxDiscount:  decPtr("50"),
			},
			cartTotal: decimal.NewFromInt(300),
			want:      decimal.NewFromInt(30),
		},
		{
			name: "percentage rounds to two decimals",
			coupon: &Coupon{
				DiscountType: DiscountPercentage,
				Value:        decimal.NewFromInt(15),
			},
			cartTotal: decimal.RequireFromString("99.99"),
			want:      decimal.RequireFromString("15.00"), // 14.9985 rounds half up
		},
		{
			name: "fixed",
			coupon: &Coupon{
				DiscountType: DiscountFixed,
				Value:        decimal.NewFromInt(50),
			},
			cartTotal: decimal.NewFromInt(200),
			want:      decimal.NewFromInt(50),
		},
		{
			name: "fixed never exceeds cart total",
			coupon: &Coupon{
				DiscountType: DiscountFixed,
				Value:        decimal.NewFromInt(500),
			},
			cartTotal: decimal.NewFromInt(200),
			want:      decimal.NewFromInt(200),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscountFor(tt.coupon, tt.cartTotal)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}
