// Package api exposes the HTTP surface: catalog reads, cart mutations,
// coupon validation and administration, and the order lifecycle. Responses
// use the {success, message, data} envelope throughout.
package api

import (
	"net/http"

	"github.com/drygo/backend/internal/domain/auth"
	"github.com/drygo/backend/internal/domain/cart"
	"github.com/drygo/backend/internal/domain/coupon"
	"github.com/drygo/backend/internal/domain/order"
	"github.com/drygo/backend/internal/domain/product"
)

// Handler carries the domain services behind the HTTP surface.
type Handler struct {
	products product.Repository
	carts    *cart.Service
	coupons  coupon.Repository
	ledger   *coupon.Ledger
	orders   *order.Service
	verifier *auth.Verifier
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	carts *cart.Service,
	coupons coupon.Repository,
	ledger *coupon.Ledger,
	orders *order.Service,
	verifier *auth.Verifier,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		coupons:  coupons,
		ledger:   ledger,
		orders:   orders,
		verifier: verifier,
	}
}

// Routes registers every endpoint on a fresh mux. Literal segments win over
// wildcards, so /api/orders/id/{orderId} and /api/coupon/all route ahead of
// their sibling patterns.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{productId}", h.getProduct)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/add", h.addToCart)
	mux.HandleFunc("PUT /api/cart/update", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/item/{productId}", h.removeCartItem)
	mux.HandleFunc("DELETE /api/cart/clear", h.clearCart)

	mux.HandleFunc("POST /api/coupon/validate", h.validateCoupon)
	mux.HandleFunc("POST /api/coupon", h.createCoupon)
	mux.HandleFunc("GET /api/coupon/all", h.listCoupons)
	mux.HandleFunc("GET /api/coupon/{couponId}", h.getCoupon)
	mux.HandleFunc("PUT /api/coupon/{couponId}", h.updateCoupon)
	mux.HandleFunc("DELETE /api/coupon/{couponId}", h.deleteCoupon)

	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders", h.listOrdersByEmail)
	mux.HandleFunc("GET /api/orders/id/{orderId}", h.getOrderByID)
	mux.HandleFunc("GET /api/orders/user/{userId}", h.listUserOrders)
	mux.HandleFunc("GET /api/orders/{orderNumber}", h.getOrderByNumber)
	mux.HandleFunc("PUT /api/orders/{orderId}/status", h.updateOrderStatus)
	mux.HandleFunc("POST /api/orders/{orderId}/cancel", h.cancelOrder)

	return mux
}
