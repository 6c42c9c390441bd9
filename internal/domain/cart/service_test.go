package cart

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/money"
	"github.com/sechaba-labs/storefront/internal/domain/product"
	"github.com/sechaba-labs/storefront/internal/domain/store"
)

type memStoreRepo struct {
	store *store.Store
}

func (m *memStoreRepo) GetByID(context.Context, string) (*store.Store, error) {
	if m.store == nil {
		return nil, store.ErrNotFound
	}
	return m.store, nil
}

func (m *memStoreRepo) IsTeamMember(context.Context, string, string) (bool, error) {
	return false, nil
}

type memProductRepo struct {
	products map[string]*product.Product
}

func (m *memProductRepo) List(context.Context, string) ([]product.Product, error) { return nil, nil }

func (m *memProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProductRepo) Variations(context.Context, string) ([]product.Product, error) {
	return nil, nil
}

type memCouponRepo struct {
	defs map[string]*coupon.Definition
}

func (m *memCouponRepo) FindByCode(_ context.Context, _, code string) (*coupon.Definition, error) {
	for _, d := range m.defs {
		if d.ActivateUsingCode && d.Code == code {
			clone := *d
			return &clone, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (m *memCouponRepo) GetByID(_ context.Context, id string) (*coupon.Definition, error) {
	d, ok := m.defs[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (m *memCouponRepo) Consume(context.Context, string) error { return nil }

func (m *memCouponRepo) Release(context.Context, string) error { return nil }

type memCartRepo struct {
	carts map[string]*Cart
}

func newMemCartRepo() *memCartRepo { return &memCartRepo{carts: make(map[string]*Cart)} }

func (m *memCartRepo) Save(_ context.Context, c *Cart) error {
	m.carts[c.ID] = c
	return nil
}

func (m *memCartRepo) GetByID(_ context.Context, id string) (*Cart, error) {
	c, ok := m.carts[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "cart %s", id)
	}
	return c, nil
}

func testService(products *memProductRepo, coupons *memCouponRepo) (*Service, *memCartRepo) {
	carts := newMemCartRepo()
	s := NewService(
		&memStoreRepo{store: &store.Store{
			ID:                "s1",
			Currency:          "BWP",
			DeliveryFee:       money.Zero("BWP"),
			AllowFreeDelivery: true,
		}},
		products,
		coupons,
		carts,
	)
	s.now = func() time.Time { return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC) }
	return s, carts
}

func catalogProduct() *product.Product {
	return &product.Product{
		ID:           "p1",
		StoreID:      "s1",
		Name:         "Woven Basket",
		RegularPrice: bwp(10000),
		MaxPerOrder:  3,
	}
}

func TestServiceCreateSeedsStoreDelivery(t *testing.T) {
	s, carts := testService(&memProductRepo{}, &memCouponRepo{})

	c, err := s.Create(context.Background(), "s1", "u1")
	require.NoError(t, err)
	assert.True(t, c.Delivery.AllowFreeDelivery)
	assert.Contains(t, carts.carts, c.ID)
}

func TestServiceAddProductEnforcesCatalogRules(t *testing.T) {
	products := &memProductRepo{products: map[string]*product.Product{"p1": catalogProduct()}}
	s, _ := testService(products, &memCouponRepo{})

	c, err := s.Create(context.Background(), "s1", "u1")
	require.NoError(t, err)

	_, err = s.AddProduct(context.Background(), c.ID, "p1", 4)
	require.ErrorIs(t, err, ErrExceedsMaxPerOrder)

	c, err = s.AddProduct(context.Background(), c.ID, "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, bwp(20000), c.Totals.GrandTotal)

	products.products["p1"].HasLimitedStock = true
	products.products["p1"].StockQuantity = 0
	_, err = s.AddProduct(context.Background(), c.ID, "p1", 1)
	require.ErrorIs(t, err, ErrOutOfStock)
}

func TestServiceApplyCouponAttachesIneligibleCancelled(t *testing.T) {
	def := &coupon.Definition{
		ID:                "cp1",
		StoreID:           "s1",
		Name:              "Big Carts Only",
		Active:            true,
		Discount:          coupon.Discount{Type: coupon.DiscountPercentage, Rate: money.MustPercentage(10)},
		ActivateUsingCode: true,
		Code:              "BIG",

		ActivateUsingMinimumGrandTotal: true,
		MinimumGrandTotal:              bwp(100000),
	}
	products := &memProductRepo{products: map[string]*product.Product{"p1": catalogProduct()}}
	s, _ := testService(products, &memCouponRepo{defs: map[string]*coupon.Definition{"cp1": def}})

	c, err := s.Create(context.Background(), "s1", "u1")
	require.NoError(t, err)
	_, err = s.AddProduct(context.Background(), c.ID, "p1", 1)
	require.NoError(t, err)

	c, err = s.ApplyCoupon(context.Background(), c.ID, "BIG", CustomerContext{})
	require.NoError(t, err)

	require.Len(t, c.CouponLines, 1)
	line := c.CouponLines[0]
	assert.True(t, line.IsCancelled)
	assert.NotEmpty(t, line.Instructions, "instructions still tell the customer how to unlock")
	assert.True(t, c.Totals.CouponDiscountTotal.IsZero())
}

func TestServiceApplyCouponEligible(t *testing.T) {
	def := &coupon.Definition{
		ID:                "cp1",
		StoreID:           "s1",
		Name:              "Ten Off",
		Active:            true,
		Discount:          coupon.Discount{Type: coupon.DiscountPercentage, Rate: money.MustPercentage(10)},
		ActivateUsingCode: true,
		Code:              "TEN",
	}
	products := &memProductRepo{products: map[string]*product.Product{"p1": catalogProduct()}}
	s, _ := testService(products, &memCouponRepo{defs: map[string]*coupon.Definition{"cp1": def}})

	c, err := s.Create(context.Background(), "s1", "u1")
	require.NoError(t, err)
	_, err = s.AddProduct(context.Background(), c.ID, "p1", 2)
	require.NoError(t, err)

	c, err = s.ApplyCoupon(context.Background(), c.ID, "TEN", CustomerContext{})
	require.NoError(t, err)
	assert.Equal(t, bwp(2000), c.Totals.CouponDiscountTotal)
	assert.Equal(t, bwp(18000), c.Totals.GrandTotal)
	assert.Equal(t, "TEN", c.CouponLines[0].Code)
}

func TestServiceRefreshCancelsDeletedProduct(t *testing.T) {
	products := &memProductRepo{products: map[string]*product.Product{"p1": catalogProduct()}}
	s, _ := testService(products, &memCouponRepo{})

	c, err := s.Create(context.Background(), "s1", "u1")
	require.NoError(t, err)
	c, err = s.AddProduct(context.Background(), c.ID, "p1", 1)
	require.NoError(t, err)
	lineID := c.ProductLines[0].ID

	delete(products.products, "p1")

	c, err = s.Refresh(context.Background(), c.ID)
	require.NoError(t, err)

	line := c.FindProductLine(lineID)
	require.NotNil(t, line)
	assert.True(t, line.IsCancelled)
	assert.Contains(t, line.DetectedChanges, ChangeSourceDeleted)
	assert.True(t, c.Totals.GrandTotal.IsZero())
}

func TestServiceRefreshSurfacesPriceDriftWithoutCancelling(t *testing.T) {
	products := &memProductRepo{products: map[string]*product.Product{"p1": catalogProduct()}}
	s, _ := testService(products, &memCouponRepo{})

	c, err := s.Create(context.Background(), "s1", "u1")
	require.NoError(t, err)
	c, err = s.AddProduct(context.Background(), c.ID, "p1", 1)
	require.NoError(t, err)

	products.products["p1"].RegularPrice = bwp(12000)

	c, err = s.Refresh(context.Background(), c.ID)
	require.NoError(t, err)

	line := c.ProductLines[0]
	assert.False(t, line.IsCancelled)
	assert.Contains(t, line.DetectedChanges, FieldRegularPrice)
	// The snapshot price still rules the totals.
	assert.Equal(t, bwp(10000), c.Totals.GrandTotal)
}
