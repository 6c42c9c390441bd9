package cart

import (
	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/money"
)

// Delivery is the store-level delivery policy the aggregator applies.
type Delivery struct {
	Fee               money.Money
	AllowFreeDelivery bool
}

// Totals holds every derived cart-level figure. Totals are recomputed
// from the full line set whenever lines change and are never hand-edited.
type Totals struct {
	SubTotal                   money.Money
	SaleDiscountTotal          money.Money
	CouponDiscountTotal        money.Money
	CouponAndSaleDiscountTotal money.Money
	DeliveryFee                money.Money
	GrandTotal                 money.Money

	TotalProducts                   int
	TotalProductQuantities          int
	TotalCancelledProducts          int
	TotalCancelledProductQuantities int
	TotalCoupons                    int
	TotalCancelledCoupons           int
}

// Aggregate computes cart totals from the given line sets. It is a pure
// whole-recompute: calling it twice on the same inputs yields identical
// totals, and incremental patching is deliberately not supported.
//
// Only uncancelled lines contribute to the monetary sums; cancelled lines
// feed the cancelled counters. Free product lines contribute zero to the
// sub-total regardless of their price fields. The combined discount is
// capped at the sub-total and the grand total never goes below zero.
func Aggregate(productLines []ProductLine, couponLines []CouponLine, delivery Delivery) (Totals, error) {
	t := Totals{
		SubTotal:                   money.Zero(delivery.Fee.Currency()),
		SaleDiscountTotal:          money.Zero(delivery.Fee.Currency()),
		CouponDiscountTotal:        money.Zero(delivery.Fee.Currency()),
		CouponAndSaleDiscountTotal: money.Zero(delivery.Fee.Currency()),
		DeliveryFee:                delivery.Fee,
		GrandTotal:                 money.Zero(delivery.Fee.Currency()),
	}

	for _, l := range productLines {
		if l.IsCancelled {
			t.TotalCancelledProducts++
			t.TotalCancelledProductQuantities += l.Quantity
			continue
		}
		t.TotalProducts++
		t.TotalProductQuantities += l.Quantity

		if l.IsFree {
			continue
		}

		lineSubTotal := l.UnitRegularPrice.MulInt(int64(l.Quantity))
		sub, err := t.SubTotal.Add(lineSubTotal)
		if err != nil {
			return Totals{}, err
		}
		t.SubTotal = sub

		if l.OnSale {
			saving, err := l.UnitRegularPrice.Sub(l.UnitSalePrice)
			if err != nil {
				return Totals{}, err
			}
			saleTotal, err := t.SaleDiscountTotal.Add(saving.ClampZero().MulInt(int64(l.Quantity)))
			if err != nil {
				return Totals{}, err
			}
			t.SaleDiscountTotal = saleTotal
		}
	}

	freeDelivery := false
	for _, l := range couponLines {
		if l.IsCancelled {
			t.TotalCancelledCoupons++
			continue
		}
		t.TotalCoupons++

		var lineDiscount money.Money
		switch l.DiscountType {
		case coupon.DiscountPercentage:
			lineDiscount = t.SubTotal.PercentOf(l.DiscountRate)
		case coupon.DiscountFixed:
			lineDiscount = l.DiscountAmount
		}

		total, err := t.CouponDiscountTotal.Add(lineDiscount.ClampZero())
		if err != nil {
			return Totals{}, err
		}
		t.CouponDiscountTotal = total

		if l.OffersFreeDelivery {
			freeDelivery = true
		}
	}

	combined, err := t.SaleDiscountTotal.Add(t.CouponDiscountTotal)
	if err != nil {
		return Totals{}, err
	}
	// The combined discount can never exceed what the cart is worth.
	combined, err = combined.Min(t.SubTotal)
	if err != nil {
		return Totals{}, err
	}
	t.CouponAndSaleDiscountTotal = combined.ClampZero()

	if freeDelivery && delivery.AllowFreeDelivery {
		t.DeliveryFee = money.Zero(delivery.Fee.Currency())
	}

	afterDiscount, err := t.SubTotal.Sub(t.CouponAndSaleDiscountTotal)
	if err != nil {
		return Totals{}, err
	}
	grand, err := afterDiscount.Add(t.DeliveryFee)
	if err != nil {
		return Totals{}, err
	}
	t.GrandTotal = grand.ClampZero()

	return t, nil
}
