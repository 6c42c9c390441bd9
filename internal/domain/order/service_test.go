package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sechaba-labs/storefront/internal/domain/cart"
	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/money"
	"github.com/sechaba-labs/storefront/internal/domain/product"
	"github.com/sechaba-labs/storefront/internal/domain/store"
)

type mockStoreRepo struct {
	store *store.Store
}

func (m *mockStoreRepo) GetByID(context.Context, string) (*store.Store, error) {
	if m.store == nil {
		return nil, store.ErrNotFound
	}
	return m.store, nil
}

func (m *mockStoreRepo) IsTeamMember(context.Context, string, string) (bool, error) {
	return false, nil
}

type mockCouponRepo struct {
	mu   sync.Mutex
	defs map[string]*coupon.Definition
}

func (m *mockCouponRepo) FindByCode(_ context.Context, _, code string) (*coupon.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.defs {
		if d.Code == code {
			clone := *d
			return &clone, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (m *mockCouponRepo) GetByID(_ context.Context, id string) (*coupon.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.defs[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

// Consume mirrors the conditional-update guarantee of the real
// repository: the check and decrement happen under one lock.
func (m *mockCouponRepo) Consume(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.defs[id]
	if !ok {
		return coupon.ErrNotFound
	}
	if !d.ActivateUsingUsageLimit {
		return nil
	}
	if d.RemainingQuantity <= 0 {
		return coupon.ErrInsufficientQuota
	}
	d.RemainingQuantity--
	return nil
}

func (m *mockCouponRepo) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.defs[id]
	if !ok || !d.ActivateUsingUsageLimit {
		return nil
	}
	d.RemainingQuantity++
	return nil
}

type mockOrderRepo struct {
	mu      sync.Mutex
	created []*Order
	orders  map[string]*Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, o)
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, _, _ Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (m *mockOrderRepo) RecordTransaction(context.Context, *Order, Transaction) error {
	return nil
}

func (m *mockOrderRepo) ResolveTransaction(context.Context, *Order, string, TransactionStatus) error {
	return nil
}

// failingOrderRepo rejects every Create, simulating a storage outage at
// the moment the order row would be inserted.
type failingOrderRepo struct {
	mockOrderRepo
}

func (m *failingOrderRepo) Create(context.Context, *Order) error {
	return errors.New("insert failed")
}

func serviceUnderTest(coupons *mockCouponRepo, orders *mockOrderRepo) *Service {
	s := NewService(
		&mockStoreRepo{store: &store.Store{ID: "s1", Currency: "BWP"}},
		coupons,
		orders,
	)
	s.now = func() time.Time { return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC) }
	return s
}

func checkoutCart(t *testing.T, couponDef *coupon.Definition) *cart.Cart {
	t.Helper()
	c := cart.New("cart1", "s1", "u1", cart.Delivery{Fee: money.Zero("BWP")})
	_, err := c.AddProduct("l1", product.Product{
		ID:           "p1",
		Name:         "Woven Basket",
		RegularPrice: bwp(10000),
	}, 2)
	require.NoError(t, err)

	if couponDef != nil {
		res, err := coupon.Evaluate(*couponDef, coupon.Context{
			Now:          time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
			SubTotal:     c.Totals.SubTotal,
			GrandTotal:   c.Totals.GrandTotal,
			ProductCount: c.Totals.TotalProducts,
			QuantitySum:  c.Totals.TotalProductQuantities,
		})
		require.NoError(t, err)
		_, err = c.AttachCoupon("cl1", *couponDef, res)
		require.NoError(t, err)
	}
	return c
}

func TestCheckoutFreezesCartTotals(t *testing.T) {
	coupons := &mockCouponRepo{defs: map[string]*coupon.Definition{}}
	orders := newMockOrderRepo()
	svc := serviceUnderTest(coupons, orders)

	c := checkoutCart(t, nil)
	o, err := svc.Checkout(context.Background(), CheckoutRequest{Cart: c})
	require.NoError(t, err)

	assert.Equal(t, StatusWaiting, o.Status)
	assert.Equal(t, bwp(20000), o.GrandTotal)
	assert.Equal(t, "cart1", o.CartID)
	assert.Len(t, orders.created, 1)
}

func TestCheckoutRevalidatesCouponLine(t *testing.T) {
	def := &coupon.Definition{
		ID:       "cp1",
		StoreID:  "s1",
		Name:     "Ten Off",
		Active:   true,
		Discount: coupon.Discount{Type: coupon.DiscountPercentage, Rate: money.MustPercentage(10)},
	}
	coupons := &mockCouponRepo{defs: map[string]*coupon.Definition{"cp1": def}}
	svc := serviceUnderTest(coupons, newMockOrderRepo())

	c := checkoutCart(t, def)
	// The store deactivates the coupon between attach and checkout.
	def.Active = false

	o, err := svc.Checkout(context.Background(), CheckoutRequest{Cart: c})
	require.NoError(t, err)

	line := c.FindCouponLine("cl1")
	require.NotNil(t, line)
	assert.True(t, line.IsCancelled)
	assert.True(t, o.Totals.CouponDiscountTotal.IsZero())
	assert.Equal(t, bwp(20000), o.GrandTotal)
}

func TestCheckoutConsumesQuotaExactlyOnce(t *testing.T) {
	def := &coupon.Definition{
		ID:                      "cp1",
		StoreID:                 "s1",
		Name:                    "Last One",
		Active:                  true,
		Discount:                coupon.Discount{Type: coupon.DiscountPercentage, Rate: money.MustPercentage(10)},
		ActivateUsingUsageLimit: true,
		RemainingQuantity:       1,
	}
	coupons := &mockCouponRepo{defs: map[string]*coupon.Definition{"cp1": def}}
	svc := serviceUnderTest(coupons, newMockOrderRepo())

	cartA := checkoutCart(t, def)
	cartB := checkoutCart(t, def)
	cartB.ID = "cart2"

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, c := range []*cart.Cart{cartA, cartB} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Checkout(context.Background(), CheckoutRequest{Cart: c})
		}()
	}
	wg.Wait()

	var quotaErrs, successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, coupon.ErrInsufficientQuota):
			quotaErrs++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, quotaErrs)
	assert.Equal(t, 0, def.RemainingQuantity)
}

func TestCheckoutReleasesQuotaWhenCreateFails(t *testing.T) {
	def := &coupon.Definition{
		ID:                      "cp1",
		StoreID:                 "s1",
		Name:                    "Last One",
		Active:                  true,
		Discount:                coupon.Discount{Type: coupon.DiscountPercentage, Rate: money.MustPercentage(10)},
		ActivateUsingUsageLimit: true,
		RemainingQuantity:       1,
	}
	coupons := &mockCouponRepo{defs: map[string]*coupon.Definition{"cp1": def}}
	svc := NewService(
		&mockStoreRepo{store: &store.Store{ID: "s1", Currency: "BWP"}},
		coupons,
		&failingOrderRepo{},
	)
	svc.now = func() time.Time { return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC) }

	c := checkoutCart(t, def)
	_, err := svc.Checkout(context.Background(), CheckoutRequest{Cart: c})
	require.Error(t, err)

	// No order was created, so the consumed use was given back and a
	// retried checkout can still take it.
	assert.Equal(t, 1, def.RemainingQuantity)
}

// exhaustedOnConsumeRepo lets evaluation see quota remaining but fails
// the consumption of one coupon, the way a concurrent checkout racing
// for the last use does.
type exhaustedOnConsumeRepo struct {
	*mockCouponRepo
	failID string
}

func (r *exhaustedOnConsumeRepo) Consume(ctx context.Context, id string) error {
	if id == r.failID {
		return coupon.ErrInsufficientQuota
	}
	return r.mockCouponRepo.Consume(ctx, id)
}

func TestCheckoutReleasesQuotaWhenLaterConsumeFails(t *testing.T) {
	defA := &coupon.Definition{
		ID:                      "cpA",
		StoreID:                 "s1",
		Name:                    "First",
		Active:                  true,
		Discount:                coupon.Discount{Type: coupon.DiscountPercentage, Rate: money.MustPercentage(5)},
		ActivateUsingUsageLimit: true,
		RemainingQuantity:       1,
	}
	defB := &coupon.Definition{
		ID:                      "cpB",
		StoreID:                 "s1",
		Name:                    "Second",
		Active:                  true,
		Discount:                coupon.Discount{Type: coupon.DiscountPercentage, Rate: money.MustPercentage(5)},
		ActivateUsingUsageLimit: true,
		RemainingQuantity:       1,
	}
	coupons := &exhaustedOnConsumeRepo{
		mockCouponRepo: &mockCouponRepo{defs: map[string]*coupon.Definition{"cpA": defA, "cpB": defB}},
		failID:         "cpB",
	}
	svc := NewService(
		&mockStoreRepo{store: &store.Store{ID: "s1", Currency: "BWP"}},
		coupons,
		newMockOrderRepo(),
	)
	svc.now = func() time.Time { return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC) }

	c := checkoutCart(t, defA)
	resB, err := coupon.Evaluate(*defB, coupon.Context{
		Now:        time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
		SubTotal:   c.Totals.SubTotal,
		GrandTotal: c.Totals.GrandTotal,
	})
	require.NoError(t, err)
	_, err = c.AttachCoupon("cl2", *defB, resB)
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), CheckoutRequest{Cart: c})
	require.ErrorIs(t, err, coupon.ErrInsufficientQuota)

	// The first coupon's use, consumed before the second one failed, was
	// given back.
	assert.Equal(t, 1, defA.RemainingQuantity)
}

func TestServiceTransition(t *testing.T) {
	orders := newMockOrderRepo()
	svc := serviceUnderTest(&mockCouponRepo{defs: map[string]*coupon.Definition{}}, orders)

	c := checkoutCart(t, nil)
	o, err := svc.Checkout(context.Background(), CheckoutRequest{Cart: c})
	require.NoError(t, err)

	updated, err := svc.Transition(context.Background(), o.ID, StatusOnItsWay)
	require.NoError(t, err)
	assert.Equal(t, StatusOnItsWay, updated.Status)

	updated, err = svc.Transition(context.Background(), o.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)

	_, err = svc.Transition(context.Background(), o.ID, StatusWaiting)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestServiceRequestPayment(t *testing.T) {
	orders := newMockOrderRepo()
	svc := serviceUnderTest(&mockCouponRepo{defs: map[string]*coupon.Definition{}}, orders)
	svc.stores = &mockStoreRepo{store: &store.Store{
		ID:       "s1",
		Currency: "BWP",
		Policy: store.Policy{
			AllowDeposits:      true,
			DepositPercentages: []money.Percentage{20},
		},
	}}

	c := checkoutCart(t, nil)
	o, err := svc.Checkout(context.Background(), CheckoutRequest{Cart: c})
	require.NoError(t, err)

	tx, err := svc.RequestPayment(context.Background(), o.ID, 20, Actor{ID: "u1", IsCustomer: true})
	require.NoError(t, err)

	assert.Equal(t, TransactionPending, tx.Status)
	assert.Equal(t, money.Percentage(20), tx.Percentage)
	assert.Equal(t, bwp(4000), tx.Amount)
	assert.Equal(t, OwnerRef{Kind: OwnerOrder, ID: o.ID}, tx.Owner)
	assert.Equal(t, money.Percentage(20), o.PendingPercentage)

	// A percentage with no matching option is rejected.
	_, err = svc.RequestPayment(context.Background(), o.ID, 33, Actor{ID: "u1", IsCustomer: true})
	require.Error(t, err)

	// A stranger cannot request payment.
	_, err = svc.RequestPayment(context.Background(), o.ID, 20, Actor{ID: "x9"})
	require.Error(t, err)
}

func TestServiceMarkAsPaid(t *testing.T) {
	orders := newMockOrderRepo()
	svc := serviceUnderTest(&mockCouponRepo{defs: map[string]*coupon.Definition{}}, orders)

	c := checkoutCart(t, nil)
	o, err := svc.Checkout(context.Background(), CheckoutRequest{Cart: c})
	require.NoError(t, err)

	_, err = svc.MarkAsPaid(context.Background(), o.ID, Actor{ID: "u1", IsCustomer: true})
	require.Error(t, err)

	updated, err := svc.MarkAsPaid(context.Background(), o.ID, Actor{ID: "m1", IsTeamMember: true})
	require.NoError(t, err)
	assert.True(t, updated.IsPaid())
}

func TestServiceResolvePayment(t *testing.T) {
	orders := newMockOrderRepo()
	svc := serviceUnderTest(&mockCouponRepo{defs: map[string]*coupon.Definition{}}, orders)
	svc.stores = &mockStoreRepo{store: &store.Store{
		ID:       "s1",
		Currency: "BWP",
		Policy:   store.Policy{AllowDeposits: true, DepositPercentages: []money.Percentage{50}},
	}}

	c := checkoutCart(t, nil)
	o, err := svc.Checkout(context.Background(), CheckoutRequest{Cart: c})
	require.NoError(t, err)

	tx, err := svc.RequestPayment(context.Background(), o.ID, 50, Actor{ID: "u1", IsCustomer: true})
	require.NoError(t, err)

	updated, err := svc.ResolvePayment(context.Background(), o.ID, tx.ID, TransactionPaid)
	require.NoError(t, err)
	assert.Equal(t, money.Percentage(50), updated.PaidPercentage)
	assert.Equal(t, money.Percentage(0), updated.PendingPercentage)
}
