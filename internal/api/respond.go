package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/drygo/backend/internal/domain/auth"
	"github.com/drygo/backend/internal/domain/cart"
	"github.com/drygo/backend/internal/domain/coupon"
	"github.com/drygo/backend/internal/domain/order"
	"github.com/drygo/backend/internal/domain/product"
)

// respondData writes a success envelope. message may be empty; data must
// write exactly one JSON value.
func respondData(w http.ResponseWriter, status int, message string, data func(e *jx.Encoder)) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	if message != "" {
		e.FieldStart("message")
		e.Str(message)
	}
	if data != nil {
		e.FieldStart("data")
		data(&e)
	}
	e.ObjEnd()
	writeJSON(w, status, e.Bytes())
}

// respondError writes a failure envelope.
func respondError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(false)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// respondDomainError maps a domain error onto the HTTP surface. Unknown
// errors become opaque 500s; the detail stays in the log.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *order.ValidationError
		belowMinErr   *coupon.BelowMinimumError
		prodNotFound  *order.ProductNotFoundError
		badStatus     *order.InvalidStatusError
	)

	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, validationErr.Reason)

	case errors.Is(err, auth.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")

	case errors.Is(err, order.ErrNotOwner):
		respondError(w, http.StatusForbidden, "You can only view your own orders")
	case errors.Is(err, order.ErrEmailMismatch):
		respondError(w, http.StatusForbidden, "Email verification failed. Order not found for this email.")

	case errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusNotFound, "Product not found")
	case errors.As(err, &prodNotFound):
		// An unknown product in an order line is a not-found, not a
		// business-rule violation.
		respondError(w, http.StatusNotFound, prodNotFound.Error())
	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, coupon.ErrNotFound):
		respondError(w, http.StatusNotFound, coupon.ErrNotFound.Error())
	case errors.Is(err, cart.ErrNotFound):
		respondError(w, http.StatusNotFound, "Cart not found")
	case errors.Is(err, cart.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "Item not found in cart")

	case errors.Is(err, coupon.ErrCodeExists):
		respondError(w, http.StatusConflict, coupon.ErrCodeExists.Error())

	case errors.As(err, &belowMinErr):
		respondError(w, http.StatusUnprocessableEntity, belowMinErr.Error())
	case errors.As(err, &badStatus):
		respondError(w, http.StatusUnprocessableEntity, badStatus.Error())
	case errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrNotYetValid),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.Is(err, coupon.ErrPerUserLimitReached):
		respondError(w, http.StatusUnprocessableEntity, unwrapMessage(err))
	case errors.Is(err, order.ErrAlreadyCancelled),
		errors.Is(err, order.ErrDelivered),
		errors.Is(err, order.ErrTerminalStatus):
		respondError(w, http.StatusUnprocessableEntity, unwrapMessage(err))

	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// unwrapMessage strips wrap prefixes, surfacing the sentinel's own text.
func unwrapMessage(err error) string {
	for _, sentinel := range []error{
		coupon.ErrInactive, coupon.ErrNotYetValid, coupon.ErrExpired,
		coupon.ErrUsageLimitReached, coupon.ErrPerUserLimitReached,
		order.ErrAlreadyCancelled, order.ErrDelivered, order.ErrTerminalStatus,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
