package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sechaba-labs/storefront/internal/domain/money"
	"github.com/sechaba-labs/storefront/internal/domain/order"
)

type checkoutRequest struct {
	CartID             string `json:"cart_id"`
	CustomerIsNew      bool   `json:"customer_is_new"`
	CustomerIsExisting bool   `json:"customer_is_existing"`
}

// Checkout freezes a cart into an order after re-validating its coupon
// lines against the live definitions.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CartID == "" {
		writeError(w, http.StatusBadRequest, "cart_id is required")
		return
	}

	c, err := h.carts.Get(r.Context(), req.CartID)
	if err != nil {
		mapError(w, r, err)
		return
	}

	o, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		Cart:               c,
		CustomerIsNew:      req.CustomerIsNew,
		CustomerIsExisting: req.CustomerIsExisting,
	})
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(o))
}

// GetOrder returns an order with its transaction history.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// ListPaymentOptions returns the legal next-payment options for an order.
func (h *Handler) ListPaymentOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.orders.PaymentOptions(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentOptionDTOs(opts))
}

type transitionRequest struct {
	Status string `json:"status"`
}

// TransitionOrder moves the order's fulfillment status.
func (h *Handler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	target := order.Status(req.Status)
	if !target.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "unknown status "+req.Status)
		return
	}

	o, err := h.orders.Transition(r.Context(), chi.URLParam(r, "orderID"), target)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

type requestPaymentRequest struct {
	Percentage int `json:"percentage"`
}

// RequestPayment opens a pending transaction for one of the order's
// payable options.
func (h *Handler) RequestPayment(w http.ResponseWriter, r *http.Request) {
	var req requestPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	pct, err := money.NewPercentage(req.Percentage)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	orderID := chi.URLParam(r, "orderID")
	o, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		mapError(w, r, err)
		return
	}
	actor, err := h.actor(r, o)
	if err != nil {
		mapError(w, r, err)
		return
	}

	tx, err := h.orders.RequestPayment(r.Context(), orderID, pct, actor)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionDTO{
		ID:         tx.ID,
		Amount:     toMoneyDTO(tx.Amount),
		Percentage: tx.Percentage.Int(),
		Status:     string(tx.Status),
		CreatedAt:  tx.CreatedAt,
	})
}

type resolvePaymentRequest struct {
	Status string `json:"status"`
}

// ResolvePayment settles a pending transaction as paid or failed.
func (h *Handler) ResolvePayment(w http.ResponseWriter, r *http.Request) {
	var req resolvePaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	target := order.TransactionStatus(req.Status)
	if target != order.TransactionPaid && target != order.TransactionFailed {
		writeError(w, http.StatusUnprocessableEntity, "status must be paid or failed")
		return
	}

	o, err := h.orders.ResolvePayment(r.Context(),
		chi.URLParam(r, "orderID"), chi.URLParam(r, "txID"), target)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// MarkAsPaid records a paid transaction for everything outstanding.
// Team members only.
func (h *Handler) MarkAsPaid(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	o, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		mapError(w, r, err)
		return
	}
	actor, err := h.actor(r, o)
	if err != nil {
		mapError(w, r, err)
		return
	}

	o, err = h.orders.MarkAsPaid(r.Context(), orderID, actor)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}
