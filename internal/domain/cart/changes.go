package cart

import (
	"strconv"

	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/product"
)

// Field names reported by the change detectors. The allow-list is fixed:
// only fields a customer's price or availability expectations depend on
// are compared.
const (
	FieldName              = "name"
	FieldRegularPrice      = "regular_price"
	FieldSalePrice         = "sale_price"
	FieldOnSale            = "on_sale"
	FieldIsFree            = "is_free"
	FieldInStock           = "in_stock"
	FieldMaxPerOrder       = "max_per_order"
	FieldDiscountType      = "discount_type"
	FieldDiscountRate      = "discount_rate"
	FieldDiscountAmount    = "discount_amount"
	FieldOfferFreeDelivery = "offer_free_delivery"
	FieldActive            = "active"
)

// DetectProductChanges compares a frozen product line against the current
// live product and reports every drifted allow-listed field. It never
// mutates the line; the caller decides whether to surface the drift,
// block checkout, or ask the customer to re-confirm. A nil live product
// yields the single sentinel change for a deleted source.
func DetectProductChanges(line ProductLine, live *product.Product) map[string]Change {
	if live == nil {
		return map[string]Change{
			ChangeSourceDeleted: {Old: "exists", New: "deleted"},
		}
	}

	changes := make(map[string]Change)

	if line.Name != live.Name {
		changes[FieldName] = Change{Old: line.Name, New: live.Name}
	}
	if !line.UnitRegularPrice.Equal(live.RegularPrice) {
		changes[FieldRegularPrice] = Change{Old: line.UnitRegularPrice.String(), New: live.RegularPrice.String()}
	}
	if !line.UnitSalePrice.Equal(live.SalePrice) {
		changes[FieldSalePrice] = Change{Old: line.UnitSalePrice.String(), New: live.SalePrice.String()}
	}
	if line.OnSale != live.OnSale {
		changes[FieldOnSale] = Change{Old: strconv.FormatBool(line.OnSale), New: strconv.FormatBool(live.OnSale)}
	}
	if line.IsFree != live.IsFree {
		changes[FieldIsFree] = Change{Old: strconv.FormatBool(line.IsFree), New: strconv.FormatBool(live.IsFree)}
	}

	lineInStock := !line.HasLimitedStock || line.StockQuantity > 0
	if lineInStock != live.InStock() {
		changes[FieldInStock] = Change{Old: strconv.FormatBool(lineInStock), New: strconv.FormatBool(live.InStock())}
	}
	if line.MaxPerOrder != live.MaxPerOrder {
		changes[FieldMaxPerOrder] = Change{Old: strconv.Itoa(line.MaxPerOrder), New: strconv.Itoa(live.MaxPerOrder)}
	}

	return changes
}

// DetectCouponChanges compares a frozen coupon line against the current
// live definition, with the same contract as DetectProductChanges.
func DetectCouponChanges(line CouponLine, live *coupon.Definition) map[string]Change {
	if live == nil {
		return map[string]Change{
			ChangeSourceDeleted: {Old: "exists", New: "deleted"},
		}
	}

	changes := make(map[string]Change)

	if line.Name != live.Name {
		changes[FieldName] = Change{Old: line.Name, New: live.Name}
	}
	if line.DiscountType != live.Discount.Type {
		changes[FieldDiscountType] = Change{Old: string(line.DiscountType), New: string(live.Discount.Type)}
	}
	if line.DiscountRate != live.Discount.Rate {
		changes[FieldDiscountRate] = Change{Old: strconv.Itoa(line.DiscountRate.Int()), New: strconv.Itoa(live.Discount.Rate.Int())}
	}
	if !line.DiscountAmount.Equal(live.Discount.Amount) {
		changes[FieldDiscountAmount] = Change{Old: line.DiscountAmount.String(), New: live.Discount.Amount.String()}
	}
	if line.OffersFreeDelivery != live.OfferFreeDelivery {
		changes[FieldOfferFreeDelivery] = Change{
			Old: strconv.FormatBool(line.OffersFreeDelivery),
			New: strconv.FormatBool(live.OfferFreeDelivery),
		}
	}
	if !live.Active {
		changes[FieldActive] = Change{Old: "true", New: "false"}
	}

	return changes
}
