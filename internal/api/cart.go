package api

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/drygo/backend/internal/domain/cart"
)

type cartItemReq struct {
	ProductID string
	Quantity  int
}

func decodeCartItemReq(r *http.Request) (cartItemReq, error) {
	var req cartItemReq
	d := jx.Decode(r.Body, 4096)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			s, err := d.Str()
			req.ProductID = s
			return err
		case "quantity":
			n, err := d.Int()
			req.Quantity = n
			return err
		default:
			return d.Skip()
		}
	})
	return req, err
}

// getCart returns the authenticated user's priced cart.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	v, err := h.carts.View(r.Context(), cred.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondCart(w, "", v)
}

// addToCart adds a product line, merging quantities.
func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	req, err := decodeCartItemReq(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "Product ID is required")
		return
	}

	v, err := h.carts.Add(r.Context(), cred.UserID, req.ProductID, req.Quantity)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondCart(w, "Item added to cart successfully", v)
}

// updateCartItem sets the quantity of an existing line.
func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	req, err := decodeCartItemReq(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" || req.Quantity == 0 {
		respondError(w, http.StatusBadRequest, "Product ID and quantity are required")
		return
	}
	if req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "Quantity must be at least 1")
		return
	}

	v, err := h.carts.UpdateQuantity(r.Context(), cred.UserID, req.ProductID, req.Quantity)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondCart(w, "Cart item updated successfully", v)
}

// removeCartItem drops a line from the cart.
func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	v, err := h.carts.Remove(r.Context(), cred.UserID, r.PathValue("productId"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondCart(w, "Item removed from cart successfully", v)
}

// clearCart empties the cart.
func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	v, err := h.carts.Clear(r.Context(), cred.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondCart(w, "Cart cleared successfully", v)
}

func respondCart(w http.ResponseWriter, message string, v *cart.View) {
	respondData(w, http.StatusOK, message, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		e.ArrStart()
		for _, it := range v.Items {
			e.ObjStart()
			e.FieldStart("productId")
			e.Str(it.ProductID)
			e.FieldStart("name")
			e.Str(it.Name)
			e.FieldStart("price")
			e.Float64(it.Price.InexactFloat64())
			e.FieldStart("image")
			e.Str(it.Image)
			e.FieldStart("quantity")
			e.Int(it.Quantity)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("itemCount")
		e.Int(v.ItemCount)
		e.FieldStart("subtotal")
		e.Float64(v.Subtotal.InexactFloat64())
		e.FieldStart("shipping")
		e.Float64(v.Shipping.InexactFloat64())
		e.FieldStart("gst")
		e.Float64(v.Tax.InexactFloat64())
		e.FieldStart("total")
		e.Float64(v.Total.InexactFloat64())
		e.FieldStart("amountForFreeShipping")
		e.Float64(v.AmountForFreeShipping.InexactFloat64())
		e.FieldStart("freeShippingThreshold")
		e.Float64(v.FreeShippingThreshold.InexactFloat64())
		if v.Message != "" {
			e.FieldStart("message")
			e.Str(v.Message)
		}
		e.ObjEnd()
	})
}
