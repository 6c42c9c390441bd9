// Package cart holds the cart aggregate: immutable product and coupon
// line snapshots, the whole-recompute totals aggregator, and the change
// detector that surfaces drift between a snapshot and its live source.
package cart

import (
	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/money"
	"github.com/sechaba-labs/storefront/internal/domain/product"
)

// Change records one drifted field between a line snapshot and its live
// source record.
type Change struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// ChangeSourceDeleted is the sentinel field name reported when the live
// source record no longer exists.
const ChangeSourceDeleted = "_source"

// ProductLine is an immutable snapshot of a product at the moment it was
// added to a cart. Later edits to the live product never flow in
// silently; DetectProductChanges surfaces them into DetectedChanges and
// the caller decides what to do.
type ProductLine struct {
	ID        string
	ProductID string
	Name      string
	Quantity  int

	UnitRegularPrice money.Money
	UnitSalePrice    money.Money
	OnSale           bool
	IsFree           bool

	HasLimitedStock bool
	StockQuantity   int
	MaxPerOrder     int

	IsCancelled         bool
	CancellationReasons []string
	DetectedChanges     map[string]Change
}

// NewProductLine snapshots p into a line with the given quantity.
func NewProductLine(id string, p product.Product, quantity int) ProductLine {
	return ProductLine{
		ID:               id,
		ProductID:        p.ID,
		Name:             p.Name,
		Quantity:         quantity,
		UnitRegularPrice: p.RegularPrice,
		UnitSalePrice:    p.SalePrice,
		OnSale:           p.OnSale,
		IsFree:           p.IsFree,
		HasLimitedStock:  p.HasLimitedStock,
		StockQuantity:    p.StockQuantity,
		MaxPerOrder:      p.MaxPerOrder,
	}
}

// UnitPrice returns the snapshot's effective selling price.
func (l ProductLine) UnitPrice() money.Money {
	if l.OnSale {
		return l.UnitSalePrice
	}
	return l.UnitRegularPrice
}

// CouponLine is an immutable snapshot of a coupon at the moment it was
// attached to a cart. Instructions carries the evaluator's per-clause
// customer copy from the most recent evaluation.
type CouponLine struct {
	ID       string
	CouponID string
	Name     string

	// Code is the coupon code snapshotted at attach time, replayed as the
	// supplied code when the line is re-evaluated at checkout.
	Code string

	DiscountType       coupon.DiscountType
	DiscountRate       money.Percentage
	DiscountAmount     money.Money
	OffersFreeDelivery bool
	UsageLimited       bool

	Instructions []string

	IsCancelled         bool
	CancellationReasons []string
	DetectedChanges     map[string]Change
}

// NewCouponLine snapshots def into a line, keeping the instructions the
// evaluator produced for the attaching cart.
func NewCouponLine(id string, def coupon.Definition, res coupon.EligibilityResult) CouponLine {
	return CouponLine{
		ID:                 id,
		CouponID:           def.ID,
		Name:               def.Name,
		Code:               def.Code,
		DiscountType:       def.Discount.Type,
		DiscountRate:       def.Discount.Rate,
		DiscountAmount:     def.Discount.Amount,
		OffersFreeDelivery: def.OfferFreeDelivery,
		UsageLimited:       def.ActivateUsingUsageLimit,
		Instructions:       append([]string(nil), res.Instructions...),
	}
}
