package api

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/drygo/backend/internal/domain/order"
)

func decodeAddress(d *jx.Decoder, addr *order.Address) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "line1":
			addr.Line1, err = d.Str()
		case "line2":
			addr.Line2, err = d.Str()
		case "city":
			addr.City, err = d.Str()
		case "state":
			addr.State, err = d.Str()
		case "pincode":
			addr.Pincode, err = d.Str()
		case "country":
			addr.Country, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
}

func decodeCreateOrderReq(r *http.Request) (order.CreateRequest, error) {
	var req order.CreateRequest
	d := jx.Decode(r.Body, 4096)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customerName":
			req.CustomerName, err = d.Str()
		case "customerEmail":
			req.CustomerEmail, err = d.Str()
		case "customerPhone":
			req.CustomerPhone, err = d.Str()
		case "shippingAddress":
			err = decodeAddress(d, &req.Address)
		case "cartItems":
			err = d.Arr(func(d *jx.Decoder) error {
				var line order.CartLine
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "productId":
						line.ProductID, err = d.Str()
					case "variantId":
						line.VariantID, err = d.Str()
					case "weight":
						line.Weight, err = d.Str()
					case "quantity":
						line.Quantity, err = d.Int()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				req.Items = append(req.Items, line)
				return nil
			})
		case "couponCode":
			req.CouponCode, err = d.Str()
		case "paymentMethod":
			var s string
			s, err = d.Str()
			req.PaymentMethod = order.PaymentMethod(s)
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// createOrder assembles and persists an order for the authenticated
// customer. The response carries only the confirmation essentials.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	req, err := decodeCreateOrderReq(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = cred.UserID

	o, err := h.orders.Create(r.Context(), req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, "Order created successfully", func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("orderId")
		e.Str(o.ID)
		e.FieldStart("orderNumber")
		e.Str(o.OrderNumber)
		e.FieldStart("totalAmount")
		e.Float64(o.Total.InexactFloat64())
		e.FieldStart("paymentMethod")
		e.Str(string(o.PaymentMethod))
		e.FieldStart("orderStatus")
		e.Str(string(o.Status))
		e.FieldStart("deliveryEstimate")
		e.Str(o.DeliveryEstimate)
		e.ObjEnd()
	})
}

// listOrdersByEmail returns orders matching ?email=, newest first.
func (h *Handler) listOrdersByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		respondError(w, http.StatusBadRequest, "Please provide email query parameter or order number")
		return
	}

	orders, err := h.orders.ListByEmail(r.Context(), email)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOrderList(w, orders)
}

// listUserOrders returns the authenticated user's own orders.
func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListForUser(r.Context(), cred.UserID, r.PathValue("userId"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOrderList(w, orders)
}

// getOrderByNumber looks up an order by its customer-facing number, with an
// optional X-Verify-Email ownership check.
func (h *Handler) getOrderByNumber(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByNumber(r.Context(), r.PathValue("orderNumber"), r.Header.Get("X-Verify-Email"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, "", func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// getOrderByID looks up an order by its identifier, with an optional
// X-Verify-Email ownership check.
func (h *Handler) getOrderByID(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), r.PathValue("orderId"), r.Header.Get("X-Verify-Email"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, "", func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// updateOrderStatus applies an administrative status transition.
func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var upd order.StatusUpdate
	d := jx.Decode(r.Body, 4096)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "orderStatus":
			var s string
			s, err = d.Str()
			upd.Status = order.Status(s)
		case "trackingNumber":
			upd.TrackingNumber, err = d.Str()
		case "deliveryEstimate":
			upd.DeliveryEstimate, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if upd.Status == "" {
		respondError(w, http.StatusBadRequest, "Order status is required")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("orderId"), upd)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, "Order status updated successfully", func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// cancelOrder cancels the caller's order; admins may cancel any order.
func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	cred, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	// The reason is optional and so is the body itself.
	var reason string
	if r.ContentLength != 0 {
		d := jx.Decode(r.Body, 4096)
		err := d.Obj(func(d *jx.Decoder, key string) error {
			if key != "reason" {
				return d.Skip()
			}
			var err error
			reason, err = d.Str()
			return err
		})
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	o, err := h.orders.Cancel(r.Context(), r.PathValue("orderId"), cred.UserID, reason, cred.Admin())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, "Order cancelled successfully", func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func respondOrderList(w http.ResponseWriter, orders []order.Order) {
	respondData(w, http.StatusOK, "", func(e *jx.Encoder) {
		e.ArrStart()
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
		e.ArrEnd()
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(o.ID)
	e.FieldStart("orderNumber")
	e.Str(o.OrderNumber)
	e.FieldStart("customerName")
	e.Str(o.CustomerName)
	e.FieldStart("customerEmail")
	e.Str(o.CustomerEmail)
	e.FieldStart("customerPhone")
	e.Str(o.CustomerPhone)

	e.FieldStart("shippingAddress")
	e.ObjStart()
	e.FieldStart("line1")
	e.Str(o.ShippingAddress.Line1)
	if o.ShippingAddress.Line2 != "" {
		e.FieldStart("line2")
		e.Str(o.ShippingAddress.Line2)
	}
	e.FieldStart("city")
	e.Str(o.ShippingAddress.City)
	e.FieldStart("state")
	e.Str(o.ShippingAddress.State)
	e.FieldStart("pincode")
	e.Str(o.ShippingAddress.Pincode)
	e.FieldStart("country")
	e.Str(o.ShippingAddress.Country)
	e.ObjEnd()

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		if it.VariantID != "" {
			e.FieldStart("variantId")
			e.Str(it.VariantID)
		}
		if it.Weight != "" {
			e.FieldStart("weight")
			e.Str(it.Weight)
		}
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

	e.FieldStart("couponCode")
	if o.CouponCode != "" {
		e.Str(o.CouponCode)
	} else {
		e.Null()
	}
	e.FieldStart("paymentMethod")
	e.Str(string(o.PaymentMethod))
	e.FieldStart("orderStatus")
	e.Str(string(o.Status))
	e.FieldStart("trackingNumber")
	if o.TrackingNumber != "" {
		e.Str(o.TrackingNumber)
	} else {
		e.Null()
	}
	e.FieldStart("deliveryEstimate")
	if o.DeliveryEstimate != "" {
		e.Str(o.DeliveryEstimate)
	} else {
		e.Null()
	}
	e.FieldStart("cancellationReason")
	if o.CancellationReason != "" {
		e.Str(o.CancellationReason)
	} else {
		e.Null()
	}

	e.FieldStart("subtotal")
	e.Float64(o.Subtotal.InexactFloat64())
	e.FieldStart("shipping")
	e.Float64(o.Shipping.InexactFloat64())
	e.FieldStart("gst")
	e.Float64(o.Tax.InexactFloat64())
	e.FieldStart("discount")
	e.Float64(o.Discount.InexactFloat64())
	e.FieldStart("totalAmount")
	e.Float64(o.Total.InexactFloat64())

	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.Format(time.RFC3339))
	e.FieldStart("updatedAt")
	e.Str(o.UpdatedAt.Format(time.RFC3339))
	e.ObjEnd()
}
