package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sechaba-labs/storefront/internal/domain/cart"
	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/money"
	"github.com/sechaba-labs/storefront/internal/domain/order"
	"github.com/sechaba-labs/storefront/internal/domain/product"
	"github.com/sechaba-labs/storefront/internal/domain/store"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// mapError converts domain errors to HTTP responses: missing entities are
// 404, misconfiguration and bad money arithmetic are 422, state conflicts
// (status machine, reconciliation, exhausted quota) are 409.
func mapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, cart.ErrOutOfStock), errors.Is(err, cart.ErrExceedsMaxPerOrder):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, coupon.ErrInsufficientQuota):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, order.ErrActorNotAllowed):
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var (
		couponCfg  *coupon.ConfigurationError
		storeCfg   *store.ConfigurationError
		mismatch   *money.CurrencyMismatchError
		transition *order.InvalidTransitionError
		reconcile  *order.ReconciliationError
	)
	switch {
	case errors.As(err, &couponCfg), errors.As(err, &storeCfg), errors.As(err, &mismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &transition), errors.As(err, &reconcile):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zctx.From(r.Context()).Error("unhandled request error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
