package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListProducts returns a store's top-level catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*p))
}

// ListVariations returns a product's variations in catalog order.
func (h *Handler) ListVariations(w http.ResponseWriter, r *http.Request) {
	variations, err := h.products.Variations(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(variations))
}
