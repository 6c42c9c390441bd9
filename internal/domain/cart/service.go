package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/product"
	"github.com/sechaba-labs/storefront/internal/domain/store"
)

// CustomerContext carries the caller-resolved customer classification
// the coupon evaluator needs. Auth and order history are external
// collaborators; the cart never looks them up itself.
type CustomerContext struct {
	IsNew      bool
	IsExisting bool
}

// Service orchestrates cart mutations over the injected repositories:
// it resolves live products and coupons, delegates every decision to the
// pure cart functions, and persists the result.
type Service struct {
	stores   store.Repository
	products product.Repository
	coupons  coupon.Repository
	carts    Repository

	newID func() string
	now   func() time.Time
}

// NewService creates a cart Service with the required dependencies.
func NewService(stores store.Repository, products product.Repository, coupons coupon.Repository, carts Repository) *Service {
	return &Service{
		stores:   stores,
		products: products,
		coupons:  coupons,
		carts:    carts,
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
	}
}

// Create opens an empty cart for the store, seeded with the store's
// delivery policy.
func (s *Service) Create(ctx context.Context, storeID, customerID string) (*Cart, error) {
	st, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve store")
	}

	c := New(s.newID(), st.ID, customerID, Delivery{
		Fee:               st.DeliveryFee,
		AllowFreeDelivery: st.AllowFreeDelivery,
	})
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Get loads a cart with freshly recomputed totals.
func (s *Service) Get(ctx context.Context, cartID string) (*Cart, error) {
	return s.carts.GetByID(ctx, cartID)
}

// AddProduct snapshots the live product into a new line. Out-of-stock
// products and quantities above the product's per-order cap are rejected.
func (s *Service) AddProduct(ctx context.Context, cartID, productID string, quantity int) (*Cart, error) {
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve product %s", productID)
	}
	if !p.InStock() {
		return nil, errors.Wrapf(ErrOutOfStock, "product %s", productID)
	}
	if p.MaxPerOrder > 0 && quantity > p.MaxPerOrder {
		return nil, errors.Wrapf(ErrExceedsMaxPerOrder, "product %s allows at most %d per order", productID, p.MaxPerOrder)
	}

	if _, err := c.AddProduct(s.newID(), *p, quantity); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// SetQuantity changes a product line's quantity, enforcing the snapshot's
// per-order cap.
func (s *Service) SetQuantity(ctx context.Context, cartID, lineID string, quantity int) (*Cart, error) {
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	line := c.FindProductLine(lineID)
	if line == nil {
		return nil, errors.Wrapf(ErrLineNotFound, "product line %s", lineID)
	}
	if line.MaxPerOrder > 0 && quantity > line.MaxPerOrder {
		return nil, errors.Wrapf(ErrExceedsMaxPerOrder, "product %s allows at most %d per order", line.ProductID, line.MaxPerOrder)
	}

	if err := c.SetQuantity(lineID, quantity); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// ApplyCoupon resolves a coupon by code, evaluates it against the cart,
// and attaches the result. Ineligible coupons attach as cancelled lines
// so the customer sees the unlock instructions.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, code string, customer CustomerContext) (*Cart, error) {
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	def, err := s.coupons.FindByCode(ctx, c.StoreID, code)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve coupon %q", code)
	}

	res, err := coupon.Evaluate(*def, coupon.Context{
		Now:                s.now(),
		SubTotal:           c.Totals.SubTotal,
		GrandTotal:         c.Totals.GrandTotal,
		ProductCount:       c.Totals.TotalProducts,
		QuantitySum:        c.Totals.TotalProductQuantities,
		CustomerIsNew:      customer.IsNew,
		CustomerIsExisting: customer.IsExisting,
		SuppliedCode:       code,
	})
	if err != nil {
		return nil, err
	}

	if _, err := c.AttachCoupon(s.newID(), *def, res); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// CancelProductLine cancels a product line with the given reason.
func (s *Service) CancelProductLine(ctx context.Context, cartID, lineID, reason string) (*Cart, error) {
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := c.CancelProductLine(lineID, reason); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// CancelCouponLine cancels a coupon line with the given reason.
func (s *Service) CancelCouponLine(ctx context.Context, cartID, lineID, reason string) (*Cart, error) {
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := c.CancelCouponLine(lineID, reason); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Refresh runs change detection for every uncancelled line against the
// live catalog, records the drift, and persists the outcome. Deleted
// products and deleted or deactivated coupons cancel their lines.
func (s *Service) Refresh(ctx context.Context, cartID string) (*Cart, error) {
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	live, err := s.liveProducts(ctx, c)
	if err != nil {
		return nil, err
	}
	for _, line := range c.ProductLines {
		if line.IsCancelled {
			continue
		}
		// A product missing from the batch yields the deleted-source
		// sentinel change.
		changes := DetectProductChanges(line, live[line.ProductID])
		if len(changes) == 0 {
			continue
		}
		if err := c.RecordProductChanges(line.ID, changes); err != nil {
			return nil, err
		}
	}

	for _, line := range c.CouponLines {
		if line.IsCancelled {
			continue
		}
		live, err := s.coupons.GetByID(ctx, line.CouponID)
		if err != nil && !errors.Is(err, coupon.ErrNotFound) {
			return nil, errors.Wrapf(err, "load coupon %s", line.CouponID)
		}
		changes := DetectCouponChanges(line, live)
		if len(changes) == 0 {
			continue
		}
		if err := c.RecordCouponChanges(line.ID, changes); err != nil {
			return nil, err
		}
	}

	if err := c.Recalculate(); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// liveProducts batch-loads the live records behind the cart's uncancelled
// product lines, keyed by product id. Deleted products are absent from
// the map.
func (s *Service) liveProducts(ctx context.Context, c *Cart) (map[string]*product.Product, error) {
	var ids []string
	for _, line := range c.ProductLines {
		if !line.IsCancelled {
			ids = append(ids, line.ProductID)
		}
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}
