// Package handler exposes the storefront over HTTP/JSON. Handlers stay
// thin: decode, delegate to a domain service, map the result or error.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sechaba-labs/storefront/internal/domain/cart"
	"github.com/sechaba-labs/storefront/internal/domain/order"
	"github.com/sechaba-labs/storefront/internal/domain/product"
	"github.com/sechaba-labs/storefront/internal/domain/store"
)

// Handler wires the domain services to the HTTP routes.
type Handler struct {
	stores   store.Repository
	products product.Repository
	carts    *cart.Service
	orders   *order.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(stores store.Repository, products product.Repository, carts *cart.Service, orders *order.Service) *Handler {
	return &Handler{
		stores:   stores,
		products: products,
		carts:    carts,
		orders:   orders,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/stores/{storeID}", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
	})
	r.Get("/products/{productID}", h.GetProduct)
	r.Get("/products/{productID}/variations", h.ListVariations)

	r.Route("/carts", func(r chi.Router) {
		r.Post("/", h.CreateCart)
		r.Route("/{cartID}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/refresh", h.RefreshCart)
			r.Post("/products", h.AddCartProduct)
			r.Patch("/products/{lineID}", h.SetCartProductQuantity)
			r.Delete("/products/{lineID}", h.CancelCartProductLine)
			r.Post("/coupons", h.ApplyCartCoupon)
			r.Delete("/coupons/{lineID}", h.CancelCartCouponLine)
		})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Checkout)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.GetOrder)
			r.Get("/payment-options", h.ListPaymentOptions)
			r.Post("/status", h.TransitionOrder)
			r.Post("/payments", h.RequestPayment)
			r.Post("/payments/{txID}/resolve", h.ResolvePayment)
			r.Post("/mark-paid", h.MarkAsPaid)
		})
	})

	return r
}

// actor resolves the acting identity for an order from the X-User-ID
// header. Full authentication lives in front of this service; the header
// is what the gateway forwards.
func (h *Handler) actor(r *http.Request, o *order.Order) (order.Actor, error) {
	userID := r.Header.Get("X-User-ID")
	a := order.Actor{ID: userID}
	if userID == "" {
		return a, nil
	}
	a.IsCustomer = userID == o.CustomerID

	member, err := h.stores.IsTeamMember(r.Context(), o.StoreID, userID)
	if err != nil {
		return a, err
	}
	a.IsTeamMember = member
	return a, nil
}
