package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/money"
	"github.com/sechaba-labs/storefront/internal/domain/product"
)

func snapshotProduct() product.Product {
	return product.Product{
		ID:              "p1",
		Name:            "Leather Satchel",
		RegularPrice:    bwp(45000),
		SalePrice:       bwp(39900),
		OnSale:          true,
		HasLimitedStock: true,
		StockQuantity:   12,
		MaxPerOrder:     3,
	}
}

func TestDetectProductChangesNoDrift(t *testing.T) {
	p := snapshotProduct()
	line := NewProductLine("l1", p, 1)

	changes := DetectProductChanges(line, &p)
	assert.Empty(t, changes)
}

func TestDetectProductChangesPriceDrift(t *testing.T) {
	p := snapshotProduct()
	line := NewProductLine("l1", p, 1)

	p.RegularPrice = bwp(50000)
	p.OnSale = false

	changes := DetectProductChanges(line, &p)
	require.Len(t, changes, 2)
	assert.Equal(t, Change{Old: "BWP 450.00", New: "BWP 500.00"}, changes[FieldRegularPrice])
	assert.Equal(t, Change{Old: "true", New: "false"}, changes[FieldOnSale])
}

func TestDetectProductChangesStockDrift(t *testing.T) {
	p := snapshotProduct()
	line := NewProductLine("l1", p, 1)

	p.StockQuantity = 0

	changes := DetectProductChanges(line, &p)
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Old: "true", New: "false"}, changes[FieldInStock])
}

func TestDetectProductChangesDeletedSource(t *testing.T) {
	line := NewProductLine("l1", snapshotProduct(), 1)

	changes := DetectProductChanges(line, nil)
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Old: "exists", New: "deleted"}, changes[ChangeSourceDeleted])
}

func TestDetectProductChangesDoesNotMutateLine(t *testing.T) {
	p := snapshotProduct()
	line := NewProductLine("l1", p, 1)
	p.Name = "Renamed"

	_ = DetectProductChanges(line, &p)
	assert.Equal(t, "Leather Satchel", line.Name)
	assert.Nil(t, line.DetectedChanges)
}

func TestDetectCouponChanges(t *testing.T) {
	def := coupon.Definition{
		ID:     "cp1",
		Name:   "Winter Special",
		Active: true,
		Discount: coupon.Discount{
			Type: coupon.DiscountPercentage,
			Rate: money.MustPercentage(10),
		},
	}
	line := NewCouponLine("c1", def, coupon.EligibilityResult{Eligible: true})

	def.Discount.Rate = money.MustPercentage(5)
	def.Active = false

	changes := DetectCouponChanges(line, &def)
	require.Len(t, changes, 2)
	assert.Equal(t, Change{Old: "10", New: "5"}, changes[FieldDiscountRate])
	assert.Equal(t, Change{Old: "true", New: "false"}, changes[FieldActive])
}

func TestDetectCouponChangesDeletedSource(t *testing.T) {
	line := CouponLine{ID: "c1", CouponID: "cp1"}

	changes := DetectCouponChanges(line, nil)
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Old: "exists", New: "deleted"}, changes[ChangeSourceDeleted])
}
