package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sechaba-labs/storefront/internal/domain/cart"
)

type createCartRequest struct {
	StoreID    string `json:"store_id"`
	CustomerID string `json:"customer_id"`
}

// CreateCart opens an empty cart for a store.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req createCartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.StoreID == "" || req.CustomerID == "" {
		writeError(w, http.StatusBadRequest, "store_id and customer_id are required")
		return
	}

	c, err := h.carts.Create(r.Context(), req.StoreID, req.CustomerID)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartDTO(c))
}

// GetCart returns a cart with freshly recomputed totals.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(c))
}

// RefreshCart runs change detection against the live catalog.
func (h *Handler) RefreshCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Refresh(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(c))
}

type addProductRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// AddCartProduct snapshots a live product into the cart.
func (h *Handler) AddCartProduct(w http.ResponseWriter, r *http.Request) {
	var req addProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "quantity must be greater than 0")
		return
	}

	c, err := h.carts.AddProduct(r.Context(), chi.URLParam(r, "cartID"), req.ProductID, req.Quantity)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(c))
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// SetCartProductQuantity changes a product line's quantity.
func (h *Handler) SetCartProductQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "quantity must be greater than 0")
		return
	}

	c, err := h.carts.SetQuantity(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "lineID"), req.Quantity)
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(c))
}

// CancelCartProductLine cancels a product line. Lines are never removed;
// the cancellation keeps the line visible with its reason.
func (h *Handler) CancelCartProductLine(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.CancelProductLine(r.Context(),
		chi.URLParam(r, "cartID"), chi.URLParam(r, "lineID"), "removed by customer")
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(c))
}

type applyCouponRequest struct {
	Code               string `json:"code"`
	CustomerIsNew      bool   `json:"customer_is_new"`
	CustomerIsExisting bool   `json:"customer_is_existing"`
}

// ApplyCartCoupon resolves a coupon code and attaches it to the cart;
// an ineligible coupon attaches as a cancelled line carrying its unlock
// instructions.
func (h *Handler) ApplyCartCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	c, err := h.carts.ApplyCoupon(r.Context(), chi.URLParam(r, "cartID"), req.Code, cart.CustomerContext{
		IsNew:      req.CustomerIsNew,
		IsExisting: req.CustomerIsExisting,
	})
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(c))
}

// CancelCartCouponLine cancels a coupon line.
func (h *Handler) CancelCartCouponLine(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.CancelCouponLine(r.Context(),
		chi.URLParam(r, "cartID"), chi.URLParam(r, "lineID"), "removed by customer")
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(c))
}
