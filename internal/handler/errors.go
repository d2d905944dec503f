package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-desk/internal/domain/address"
	"github.com/xenking/order-desk/internal/domain/identity"
	"github.com/xenking/order-desk/internal/domain/order"
	"github.com/xenking/order-desk/internal/domain/product"
	"github.com/xenking/order-desk/internal/domain/user"
	"github.com/xenking/order-desk/internal/domain/validation"
)

// mapError writes the response for a domain error. Unknown errors are logged
// and reported as 500 without detail.
func mapError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stateErr *order.InvalidStateError
		dupErr   *order.DuplicateItemError
		valErr   *validation.Error
	)
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, identity.ErrForbidden):
		writeError(w, http.StatusForbidden, "you do not have permission to perform this action")
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, order.ErrItemNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, address.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &stateErr), errors.As(err, &dupErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrItemExists),
		errors.Is(err, user.ErrUsernameTaken),
		errors.Is(err, user.ErrHasOrders),
		errors.Is(err, product.ErrNameTaken):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &valErr):
		writeValidation(w, valErr)
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, code, &e)
}

func writeValidation(w http.ResponseWriter, v *validation.Error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(http.StatusUnprocessableEntity)
	e.FieldStart("message")
	e.Str("validation failed")
	e.FieldStart("errors")
	e.ArrStart()
	for _, f := range v.Fields {
		e.ObjStart()
		e.FieldStart("field")
		e.Str(f.Field)
		e.FieldStart("message")
		e.Str(f.Message)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusUnprocessableEntity, &e)
}

func writeJSON(w http.ResponseWriter, code int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
