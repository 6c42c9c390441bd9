package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/money"
)

func testCart() *Cart {
	return New("cart1", "s1", "u1", Delivery{Fee: money.Zero("BWP")})
}

func TestCartAddProductRecalculates(t *testing.T) {
	c := testCart()

	_, err := c.AddProduct("l1", snapshotProduct(), 2)
	require.NoError(t, err)

	// Sale price 399.00 x2; sub-total carries the regular price, the sale
	// saving lands in the discount totals.
	assert.Equal(t, bwp(90000), c.Totals.SubTotal)
	assert.Equal(t, bwp(10200), c.Totals.SaleDiscountTotal)
	assert.Equal(t, bwp(79800), c.Totals.GrandTotal)
}

func TestCartAddProductRejectsNonPositiveQuantity(t *testing.T) {
	c := testCart()
	_, err := c.AddProduct("l1", snapshotProduct(), 0)
	require.Error(t, err)
	assert.Empty(t, c.ProductLines)
}

func TestCartAttachEligibleCoupon(t *testing.T) {
	c := testCart()
	_, err := c.AddProduct("l1", snapshotProduct(), 1)
	require.NoError(t, err)

	def := coupon.Definition{
		ID:       "cp1",
		Name:     "Ten Off",
		Active:   true,
		Discount: coupon.Discount{Type: coupon.DiscountPercentage, Rate: money.MustPercentage(10)},
	}
	line, err := c.AttachCoupon("c1", def, coupon.EligibilityResult{
		Eligible:     true,
		Instructions: []string{"Simply place an order."},
	})
	require.NoError(t, err)

	assert.False(t, line.IsCancelled)
	assert.Equal(t, []string{"Simply place an order."}, line.Instructions)
	assert.Equal(t, c.Totals.SubTotal.PercentOf(10), c.Totals.CouponDiscountTotal)
}

func TestCartAttachIneligibleCouponArrivesCancelled(t *testing.T) {
	c := testCart()
	_, err := c.AddProduct("l1", snapshotProduct(), 1)
	require.NoError(t, err)

	def := coupon.Definition{ID: "cp1", Name: "Big Spender", Active: true,
		Discount: coupon.Discount{Type: coupon.DiscountPercentage, Rate: money.MustPercentage(50)}}
	line, err := c.AttachCoupon("c1", def, coupon.EligibilityResult{
		Eligible:      false,
		FailedClauses: []string{coupon.ClauseMinimumGrandTotal},
		Instructions:  []string{"Spend at least BWP 5000.00."},
	})
	require.NoError(t, err)

	assert.True(t, line.IsCancelled)
	assert.Equal(t, []string{"clause not satisfied: minimum_grand_total"}, line.CancellationReasons)
	// Cancelled coupon line must not discount anything.
	assert.True(t, c.Totals.CouponDiscountTotal.IsZero())
}

func TestCartCancelProductLineIsOneWay(t *testing.T) {
	c := testCart()
	_, err := c.AddProduct("l1", snapshotProduct(), 1)
	require.NoError(t, err)

	require.NoError(t, c.CancelProductLine("l1", "customer removed item"))
	assert.True(t, c.Totals.SubTotal.IsZero())
	assert.Equal(t, 1, c.Totals.TotalCancelledProducts)

	// Second cancel appends a reason, never un-cancels.
	require.NoError(t, c.CancelProductLine("l1", "price changed"))
	line := c.FindProductLine("l1")
	require.NotNil(t, line)
	assert.True(t, line.IsCancelled)
	assert.Equal(t, []string{"customer removed item", "price changed"}, line.CancellationReasons)
}

func TestCartCancelUnknownLine(t *testing.T) {
	c := testCart()
	err := c.CancelProductLine("nope", "reason")
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestCartSetQuantity(t *testing.T) {
	c := testCart()
	_, err := c.AddProduct("l1", snapshotProduct(), 1)
	require.NoError(t, err)

	require.NoError(t, c.SetQuantity("l1", 3))
	assert.Equal(t, 3, c.Totals.TotalProductQuantities)

	require.NoError(t, c.CancelProductLine("l1", "gone"))
	assert.Error(t, c.SetQuantity("l1", 2))
}

func TestCartRecordProductChangesDeletedSourceCancels(t *testing.T) {
	c := testCart()
	_, err := c.AddProduct("l1", snapshotProduct(), 1)
	require.NoError(t, err)

	changes := DetectProductChanges(c.ProductLines[0], nil)
	require.NoError(t, c.RecordProductChanges("l1", changes))

	line := c.FindProductLine("l1")
	require.NotNil(t, line)
	assert.True(t, line.IsCancelled)
	assert.Equal(t, []string{"product no longer available"}, line.CancellationReasons)
	assert.Contains(t, line.DetectedChanges, ChangeSourceDeleted)
}

func TestCartRecordProductChangesPriceDriftSurfacedOnly(t *testing.T) {
	c := testCart()
	p := snapshotProduct()
	_, err := c.AddProduct("l1", p, 1)
	require.NoError(t, err)

	p.RegularPrice = bwp(99900)
	changes := DetectProductChanges(c.ProductLines[0], &p)
	require.NoError(t, c.RecordProductChanges("l1", changes))

	line := c.FindProductLine("l1")
	require.NotNil(t, line)
	assert.False(t, line.IsCancelled)
	assert.Contains(t, line.DetectedChanges, FieldRegularPrice)
	// The snapshot price still drives the totals; drift is surfaced, not applied.
	assert.Equal(t, bwp(45000), c.Totals.SubTotal)
}

func TestCartRecordCouponChangesDeactivationCancels(t *testing.T) {
	c := testCart()
	def := coupon.Definition{ID: "cp1", Name: "Promo", Active: true,
		Discount: coupon.Discount{Type: coupon.DiscountFixed, Amount: bwp(500)}}
	_, err := c.AttachCoupon("c1", def, coupon.EligibilityResult{Eligible: true})
	require.NoError(t, err)

	def.Active = false
	changes := DetectCouponChanges(c.CouponLines[0], &def)
	require.NoError(t, c.RecordCouponChanges("c1", changes))

	line := c.FindCouponLine("c1")
	require.NotNil(t, line)
	assert.True(t, line.IsCancelled)
	assert.Equal(t, []string{"coupon deactivated"}, line.CancellationReasons)
}
