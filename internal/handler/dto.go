package handler

import (
	"time"

	"github.com/sechaba-labs/storefront/internal/domain/cart"
	"github.com/sechaba-labs/storefront/internal/domain/money"
	"github.com/sechaba-labs/storefront/internal/domain/order"
	"github.com/sechaba-labs/storefront/internal/domain/product"
)

// moneyDTO renders an amount as major units plus its currency code, e.g.
// {"amount": "180.00", "currency": "BWP"}.
type moneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func toMoneyDTO(m money.Money) moneyDTO {
	return moneyDTO{Amount: m.Decimal().StringFixed(2), Currency: m.Currency()}
}

type changeDTO struct {
	Old string `json:"old"`
	New string `json:"new"`
}

func toChangeDTOs(changes map[string]cart.Change) map[string]changeDTO {
	if len(changes) == 0 {
		return nil
	}
	out := make(map[string]changeDTO, len(changes))
	for field, ch := range changes {
		out[field] = changeDTO{Old: ch.Old, New: ch.New}
	}
	return out
}

type productDTO struct {
	ID       string `json:"id"`
	StoreID  string `json:"store_id"`
	ParentID string `json:"parent_id,omitempty"`
	Name     string `json:"name"`
	// Price is the effective selling price: the sale price while on
	// sale, otherwise the regular price.
	Price           moneyDTO `json:"price"`
	RegularPrice    moneyDTO `json:"regular_price"`
	SalePrice       moneyDTO `json:"sale_price"`
	OnSale          bool     `json:"on_sale"`
	IsFree          bool     `json:"is_free"`
	InStock         bool     `json:"in_stock"`
	HasLimitedStock bool     `json:"has_limited_stock"`
	StockQuantity   int      `json:"stock_quantity"`
	MaxPerOrder     int      `json:"max_per_order"`
}

func toProductDTO(p product.Product) productDTO {
	return productDTO{
		ID:              p.ID,
		StoreID:         p.StoreID,
		ParentID:        p.ParentID,
		Name:            p.Name,
		Price:           toMoneyDTO(p.UnitPrice()),
		RegularPrice:    toMoneyDTO(p.RegularPrice),
		SalePrice:       toMoneyDTO(p.SalePrice),
		OnSale:          p.OnSale,
		IsFree:          p.IsFree,
		InStock:         p.InStock(),
		HasLimitedStock: p.HasLimitedStock,
		StockQuantity:   p.StockQuantity,
		MaxPerOrder:     p.MaxPerOrder,
	}
}

func toProductDTOs(ps []product.Product) []productDTO {
	out := make([]productDTO, len(ps))
	for i, p := range ps {
		out[i] = toProductDTO(p)
	}
	return out
}

type productLineDTO struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	// UnitPrice is the snapshot's effective selling price.
	UnitPrice           moneyDTO             `json:"unit_price"`
	UnitRegularPrice    moneyDTO             `json:"unit_regular_price"`
	UnitSalePrice       moneyDTO             `json:"unit_sale_price"`
	OnSale              bool                 `json:"on_sale"`
	IsFree              bool                 `json:"is_free"`
	IsCancelled         bool                 `json:"is_cancelled"`
	CancellationReasons []string             `json:"cancellation_reasons,omitempty"`
	DetectedChanges     map[string]changeDTO `json:"detected_changes,omitempty"`
}

type couponLineDTO struct {
	ID                  string               `json:"id"`
	CouponID            string               `json:"coupon_id"`
	Name                string               `json:"name"`
	Code                string               `json:"code,omitempty"`
	DiscountType        string               `json:"discount_type"`
	DiscountRate        int                  `json:"discount_rate"`
	DiscountAmount      moneyDTO             `json:"discount_amount"`
	OffersFreeDelivery  bool                 `json:"offers_free_delivery"`
	Instructions        []string             `json:"instructions,omitempty"`
	IsCancelled         bool                 `json:"is_cancelled"`
	CancellationReasons []string             `json:"cancellation_reasons,omitempty"`
	DetectedChanges     map[string]changeDTO `json:"detected_changes,omitempty"`
}

type totalsDTO struct {
	SubTotal                   moneyDTO `json:"sub_total"`
	SaleDiscountTotal          moneyDTO `json:"sale_discount_total"`
	CouponDiscountTotal        moneyDTO `json:"coupon_discount_total"`
	CouponAndSaleDiscountTotal moneyDTO `json:"coupon_and_sale_discount_total"`
	DeliveryFee                moneyDTO `json:"delivery_fee"`
	GrandTotal                 moneyDTO `json:"grand_total"`

	TotalProducts                   int `json:"total_products"`
	TotalProductQuantities          int `json:"total_product_quantities"`
	TotalCancelledProducts          int `json:"total_cancelled_products"`
	TotalCancelledProductQuantities int `json:"total_cancelled_product_quantities"`
	TotalCoupons                    int `json:"total_coupons"`
	TotalCancelledCoupons           int `json:"total_cancelled_coupons"`
}

func toTotalsDTO(t cart.Totals) totalsDTO {
	return totalsDTO{
		SubTotal:                   toMoneyDTO(t.SubTotal),
		SaleDiscountTotal:          toMoneyDTO(t.SaleDiscountTotal),
		CouponDiscountTotal:        toMoneyDTO(t.CouponDiscountTotal),
		CouponAndSaleDiscountTotal: toMoneyDTO(t.CouponAndSaleDiscountTotal),
		DeliveryFee:                toMoneyDTO(t.DeliveryFee),
		GrandTotal:                 toMoneyDTO(t.GrandTotal),

		TotalProducts:                   t.TotalProducts,
		TotalProductQuantities:          t.TotalProductQuantities,
		TotalCancelledProducts:          t.TotalCancelledProducts,
		TotalCancelledProductQuantities: t.TotalCancelledProductQuantities,
		TotalCoupons:                    t.TotalCoupons,
		TotalCancelledCoupons:           t.TotalCancelledCoupons,
	}
}

type cartDTO struct {
	ID           string           `json:"id"`
	StoreID      string           `json:"store_id"`
	CustomerID   string           `json:"customer_id"`
	ProductLines []productLineDTO `json:"product_lines"`
	CouponLines  []couponLineDTO  `json:"coupon_lines"`
	Totals       totalsDTO        `json:"totals"`
}

func toCartDTO(c *cart.Cart) cartDTO {
	dto := cartDTO{
		ID:           c.ID,
		StoreID:      c.StoreID,
		CustomerID:   c.CustomerID,
		ProductLines: make([]productLineDTO, len(c.ProductLines)),
		CouponLines:  make([]couponLineDTO, len(c.CouponLines)),
		Totals:       toTotalsDTO(c.Totals),
	}
	for i, l := range c.ProductLines {
		dto.ProductLines[i] = productLineDTO{
			ID:                  l.ID,
			ProductID:           l.ProductID,
			Name:                l.Name,
			Quantity:            l.Quantity,
			UnitPrice:           toMoneyDTO(l.UnitPrice()),
			UnitRegularPrice:    toMoneyDTO(l.UnitRegularPrice),
			UnitSalePrice:       toMoneyDTO(l.UnitSalePrice),
			OnSale:              l.OnSale,
			IsFree:              l.IsFree,
			IsCancelled:         l.IsCancelled,
			CancellationReasons: l.CancellationReasons,
			DetectedChanges:     toChangeDTOs(l.DetectedChanges),
		}
	}
	for i, l := range c.CouponLines {
		dto.CouponLines[i] = couponLineDTO{
			ID:                  l.ID,
			CouponID:            l.CouponID,
			Name:                l.Name,
			Code:                l.Code,
			DiscountType:        string(l.DiscountType),
			DiscountRate:        l.DiscountRate.Int(),
			DiscountAmount:      toMoneyDTO(l.DiscountAmount),
			OffersFreeDelivery:  l.OffersFreeDelivery,
			Instructions:        l.Instructions,
			IsCancelled:         l.IsCancelled,
			CancellationReasons: l.CancellationReasons,
			DetectedChanges:     toChangeDTOs(l.DetectedChanges),
		}
	}
	return dto
}

type transactionDTO struct {
	ID         string    `json:"id"`
	Amount     moneyDTO  `json:"amount"`
	Percentage int       `json:"percentage"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type orderDTO struct {
	ID         string `json:"id"`
	StoreID    string `json:"store_id"`
	CustomerID string `json:"customer_id"`
	CartID     string `json:"cart_id"`

	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`

	PaidPercentage        int `json:"paid_percentage"`
	PendingPercentage     int `json:"pending_percentage"`
	OutstandingPercentage int `json:"outstanding_percentage"`

	GrandTotal   moneyDTO         `json:"grand_total"`
	Totals       totalsDTO        `json:"totals"`
	Transactions []transactionDTO `json:"transactions"`

	CreatedAt time.Time `json:"created_at"`
}

func toOrderDTO(o *order.Order) orderDTO {
	dto := orderDTO{
		ID:         o.ID,
		StoreID:    o.StoreID,
		CustomerID: o.CustomerID,
		CartID:     o.CartID,

		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus()),

		PaidPercentage:        o.PaidPercentage.Int(),
		PendingPercentage:     o.PendingPercentage.Int(),
		OutstandingPercentage: o.OutstandingPercentage().Int(),

		GrandTotal:   toMoneyDTO(o.GrandTotal),
		Totals:       toTotalsDTO(o.Totals),
		Transactions: make([]transactionDTO, len(o.Transactions)),

		CreatedAt: o.CreatedAt,
	}
	for i, tx := range o.Transactions {
		dto.Transactions[i] = transactionDTO{
			ID:         tx.ID,
			Amount:     toMoneyDTO(tx.Amount),
			Percentage: tx.Percentage.Int(),
			Status:     string(tx.Status),
			CreatedAt:  tx.CreatedAt,
		}
	}
	return dto
}

type paymentOptionDTO struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Percentage int      `json:"percentage"`
	Amount     moneyDTO `json:"amount"`
}

func toPaymentOptionDTOs(opts []order.PaymentOption) []paymentOptionDTO {
	out := make([]paymentOptionDTO, len(opts))
	for i, opt := range opts {
		out[i] = paymentOptionDTO{
			Name:       opt.Name,
			Type:       string(opt.Type),
			Percentage: opt.Percentage.Int(),
			Amount:     toMoneyDTO(opt.Amount),
		}
	}
	return out
}
