package api

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/drygo/backend/internal/domain/coupon"
)

// validateCoupon previews a coupon against a cart total. No usage is
// recorded; redemption happens when an order is placed. Identity is
// optional: anonymous callers skip the per-user check.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	userID, err := h.optionalIdentity(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var (
		code      string
		cartTotal decimal.Decimal
	)
	d := jx.Decode(r.Body, 4096)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			s, err := d.Str()
			code = s
			return err
		case "cartTotal":
			f, err := d.Float64()
			cartTotal = decimal.NewFromFloat(f)
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if code == "" {
		respondError(w, http.StatusBadRequest, "Coupon code is required")
		return
	}
	if !cartTotal.IsPositive() {
		respondError(w, http.StatusBadRequest, "Valid cart total is required")
		return
	}

	quote, err := h.ledger.Validate(r.Context(), code, cartTotal, userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, "Coupon is valid", func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Str(quote.Coupon.Code)
		e.FieldStart("discountType")
		e.Str(string(quote.Coupon.DiscountType))
		e.FieldStart("discountValue")
		e.Float64(quote.Coupon.Value.InexactFloat64())
		e.FieldStart("discount")
		e.Float64(quote.Discount.InexactFloat64())
		e.FieldStart("cartTotal")
		e.Float64(cartTotal.InexactFloat64())
		e.FieldStart("newTotal")
		e.Float64(cartTotal.Sub(quote.Discount).Round(2).InexactFloat64())
		e.ObjEnd()
	})
}

// couponReq carries the decoded admin payload; nil pointers mean the field
// was absent.
type couponReq struct {
	Code         *string
	Description  *string
	DiscountType *string
	Value        *decimal.Decimal
	MinOrder     *decimal.Decimal
	MaxDiscount  *decimal.Decimal
	UsageLimit   *int
	PerUserLimit *int
	ValidFrom    *time.Time
	ValidUntil   *time.Time
	Active       *bool
}

func decodeCouponReq(r *http.Request) (*couponReq, error) {
	var req couponReq
	d := jx.Decode(r.Body, 4096)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			s, err := d.Str()
			req.Code = &s
			return err
		case "description":
			s, err := d.Str()
			req.Description = &s
			return err
		case "discountType":
			s, err := d.Str()
			req.DiscountType = &s
			return err
		case "discountValue":
			f, err := d.Float64()
			v := decimal.NewFromFloat(f)
			req.Value = &v
			return err
		case "minOrderAmount":
			f, err := d.Float64()
			v := decimal.NewFromFloat(f)
			req.MinOrder = &v
			return err
		case "maxDiscount":
			if d.Next() == jx.Null {
				return d.Null()
			}
			f, err := d.Float64()
			v := decimal.NewFromFloat(f)
			req.MaxDiscount = &v
			return err
		case "usageLimit":
			if d.Next() == jx.Null {
				return d.Null()
			}
			n, err := d.Int()
			req.UsageLimit = &n
			return err
		case "perUserLimit":
			n, err := d.Int()
			req.PerUserLimit = &n
			return err
		case "validFrom":
			t, err := decodeTime(d)
			req.ValidFrom = t
			return err
		case "validUntil":
			t, err := decodeTime(d)
			req.ValidUntil = t
			return err
		case "isActive":
			b, err := d.Bool()
			req.Active = &b
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func decodeTime(d *jx.Decoder) (*time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// createCoupon creates a coupon rule (admin). Codes are stored upper-cased
// and must be unique case-insensitively.
func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	req, err := decodeCouponReq(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Code == nil || *req.Code == "" || req.DiscountType == nil || req.Value == nil || req.ValidUntil == nil {
		respondError(w, http.StatusBadRequest, "Required fields: code, discountType, discountValue, validUntil")
		return
	}

	dt := coupon.DiscountType(*req.DiscountType)
	if !dt.Valid() {
		respondError(w, http.StatusBadRequest, "discountType must be 'percentage' or 'fixed'")
		return
	}
	if dt == coupon.DiscountPercentage &&
		(req.Value.IsNegative() || req.Value.GreaterThan(decimal.NewFromInt(100))) {
		respondError(w, http.StatusBadRequest, "Percentage discount must be between 0 and 100")
		return
	}

	now := time.Now()
	c := &coupon.Coupon{
		ID:           uuid.New().String(),
		Code:         coupon.CanonicalCode(*req.Code),
		DiscountType: dt,
		Value:        *req.Value,
		PerUserLimit: 1,
		ValidFrom:    now,
		ValidUntil:   *req.ValidUntil,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.MinOrder != nil {
		c.MinOrderAmount = *req.MinOrder
	}
	c.MaxDiscount = req.MaxDiscount
	c.UsageLimit = req.UsageLimit
	if req.PerUserLimit != nil {
		c.PerUserLimit = *req.PerUserLimit
	}
	if req.ValidFrom != nil {
		c.ValidFrom = *req.ValidFrom
	}
	if req.Active != nil {
		c.Active = *req.Active
	}

	if err := h.coupons.Create(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, "Coupon created successfully", func(e *jx.Encoder) {
		encodeCoupon(e, c)
	})
}

// listCoupons returns coupons (admin), optionally filtered by ?active=.
func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var filter coupon.ListFilter
	switch r.URL.Query().Get("active") {
	case "true":
		t := true
		filter.Active = &t
	case "false":
		f := false
		filter.Active = &f
	}

	coupons, err := h.coupons.List(r.Context(), filter)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, "", func(e *jx.Encoder) {
		e.ArrStart()
		for i := range coupons {
			encodeCoupon(e, &coupons[i])
		}
		e.ArrEnd()
	})
}

// getCoupon returns a coupon by id (admin).
func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	c, err := h.coupons.GetByID(r.Context(), r.PathValue("couponId"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, "", func(e *jx.Encoder) {
		encodeCoupon(e, c)
	})
}

// updateCoupon applies a partial update (admin). The code and the usage
// counters are immutable.
func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	req, err := decodeCouponReq(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var upd coupon.Update
	upd.Description = req.Description
	if req.DiscountType != nil {
		dt := coupon.DiscountType(*req.DiscountType)
		if !dt.Valid() {
			respondError(w, http.StatusBadRequest, "discountType must be 'percentage' or 'fixed'")
			return
		}
		upd.DiscountType = &dt
	}
	upd.Value = req.Value
	upd.MinOrderAmount = req.MinOrder
	upd.MaxDiscount = req.MaxDiscount
	upd.UsageLimit = req.UsageLimit
	upd.PerUserLimit = req.PerUserLimit
	upd.ValidFrom = req.ValidFrom
	upd.ValidUntil = req.ValidUntil
	upd.Active = req.Active

	c, err := h.coupons.Update(r.Context(), r.PathValue("couponId"), upd)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, "Coupon updated successfully", func(e *jx.Encoder) {
		encodeCoupon(e, c)
	})
}

// deleteCoupon soft-disables a coupon (admin). Historical orders keep
// referencing the code, so records are never removed.
func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	if err := h.coupons.Disable(r.Context(), r.PathValue("couponId")); err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, "Coupon disabled successfully", nil)
}

func encodeCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("code")
	e.Str(c.Code)
	e.FieldStart("description")
	e.Str(c.Description)
	e.FieldStart("discountType")
	e.Str(string(c.DiscountType))
	e.FieldStart("discountValue")
	e.Float64(c.Value.InexactFloat64())
	e.FieldStart("minOrderAmount")
	e.Float64(c.MinOrderAmount.InexactFloat64())
	e.FieldStart("maxDiscount")
	if c.MaxDiscount != nil {
		e.Float64(c.MaxDiscount.InexactFloat64())
	} else {
		e.Null()
	}
	e.FieldStart("usageLimit")
	if c.UsageLimit != nil {
		e.Int(*c.UsageLimit)
	} else {
		e.Null()
	}
	e.FieldStart("perUserLimit")
	e.Int(c.PerUserLimit)
	e.FieldStart("usedCount")
	e.Int(c.UsedCount)
	e.FieldStart("validFrom")
	e.Str(c.ValidFrom.Format(time.RFC3339))
	e.FieldStart("validUntil")
	e.Str(c.ValidUntil.Format(time.RFC3339))
	e.FieldStart("isActive")
	e.Bool(c.Active)
	e.ObjEnd()
}
