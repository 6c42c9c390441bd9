package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sechaba-labs/storefront/internal/domain/cart"
	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/money"
)

const (
	upsertCartSQL = `INSERT INTO carts (id, store_id, customer_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`

	deleteCartProductLinesSQL = `DELETE FROM cart_product_lines WHERE cart_id = $1`
	deleteCartCouponLinesSQL  = `DELETE FROM cart_coupon_lines WHERE cart_id = $1`

	insertCartProductLineSQL = `INSERT INTO cart_product_lines (
		id, cart_id, product_id, name, quantity,
		unit_regular_price, unit_sale_price, on_sale, is_free,
		has_limited_stock, stock_quantity, max_per_order,
		is_cancelled, cancellation_reasons, detected_changes, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	insertCartCouponLineSQL = `INSERT INTO cart_coupon_lines (
		id, cart_id, coupon_id, name, code,
		discount_type, discount_rate, discount_amount, offers_free_delivery,
		usage_limited, instructions,
		is_cancelled, cancellation_reasons, detected_changes, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	getCartByIDSQL = `SELECT c.id, c.store_id, c.customer_id,
		s.currency, s.delivery_fee, s.allow_free_delivery
		FROM carts c JOIN stores s ON s.id = c.store_id
		WHERE c.id = $1`

	listCartProductLinesSQL = `SELECT id, product_id, name, quantity,
		unit_regular_price, unit_sale_price, on_sale, is_free,
		has_limited_stock, stock_quantity, max_per_order,
		is_cancelled, cancellation_reasons, detected_changes
		FROM cart_product_lines WHERE cart_id = $1 ORDER BY position`

	listCartCouponLinesSQL = `SELECT id, coupon_id, name, code,
		discount_type, discount_rate, discount_amount, offers_free_delivery,
		usage_limited, instructions,
		is_cancelled, cancellation_reasons, detected_changes
		FROM cart_coupon_lines WHERE cart_id = $1 ORDER BY position`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Line
// sets are replaced wholesale on every save.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Save persists the cart and its full line sets in one transaction.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("saving cart %q: %w", c.ID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err = tx.Exec(ctx, upsertCartSQL, c.ID, c.StoreID, c.CustomerID); err != nil {
		return fmt.Errorf("saving cart %q: %w", c.ID, err)
	}
	if _, err = tx.Exec(ctx, deleteCartProductLinesSQL, c.ID); err != nil {
		return fmt.Errorf("saving cart %q: %w", c.ID, err)
	}
	if _, err = tx.Exec(ctx, deleteCartCouponLinesSQL, c.ID); err != nil {
		return fmt.Errorf("saving cart %q: %w", c.ID, err)
	}

	for i, l := range c.ProductLines {
		changes, err := json.Marshal(emptyChanges(l.DetectedChanges))
		if err != nil {
			return fmt.Errorf("saving cart %q: encoding line %q changes: %w", c.ID, l.ID, err)
		}
		_, err = tx.Exec(ctx, insertCartProductLineSQL,
			l.ID, c.ID, l.ProductID, l.Name, l.Quantity,
			l.UnitRegularPrice.Decimal(), l.UnitSalePrice.Decimal(), l.OnSale, l.IsFree,
			l.HasLimitedStock, l.StockQuantity, l.MaxPerOrder,
			l.IsCancelled, l.CancellationReasons, changes, i,
		)
		if err != nil {
			return fmt.Errorf("saving cart %q: inserting product line %q: %w", c.ID, l.ID, err)
		}
	}

	for i, l := range c.CouponLines {
		changes, err := json.Marshal(emptyChanges(l.DetectedChanges))
		if err != nil {
			return fmt.Errorf("saving cart %q: encoding line %q changes: %w", c.ID, l.ID, err)
		}
		_, err = tx.Exec(ctx, insertCartCouponLineSQL,
			l.ID, c.ID, l.CouponID, l.Name, l.Code,
			string(l.DiscountType), int(l.DiscountRate), l.DiscountAmount.Decimal(), l.OffersFreeDelivery,
			l.UsageLimited, l.Instructions,
			l.IsCancelled, l.CancellationReasons, changes, i,
		)
		if err != nil {
			return fmt.Errorf("saving cart %q: inserting coupon line %q: %w", c.ID, l.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("saving cart %q: %w", c.ID, err)
	}
	return nil
}

// GetByID loads a cart with its line sets and recomputes the totals.
// Returns cart.ErrNotFound when no row exists.
func (r *CartRepository) GetByID(ctx context.Context, id string) (*cart.Cart, error) {
	var (
		c           cart.Cart
		currency    string
		deliveryFee decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, getCartByIDSQL, id).Scan(
		&c.ID, &c.StoreID, &c.CustomerID,
		&currency, &deliveryFee, &c.Delivery.AllowFreeDelivery,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting cart %q: %w", id, err)
	}
	c.Delivery.Fee = money.FromDecimal(deliveryFee, currency)

	rows, err := r.pool.Query(ctx, listCartProductLinesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting cart %q: %w", id, err)
	}
	c.ProductLines, err = pgx.CollectRows(rows, scanProductLine(currency))
	if err != nil {
		return nil, fmt.Errorf("getting cart %q product lines: %w", id, err)
	}

	rows, err = r.pool.Query(ctx, listCartCouponLinesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting cart %q: %w", id, err)
	}
	c.CouponLines, err = pgx.CollectRows(rows, scanCouponLine(currency))
	if err != nil {
		return nil, fmt.Errorf("getting cart %q coupon lines: %w", id, err)
	}

	if err = c.Recalculate(); err != nil {
		return nil, fmt.Errorf("getting cart %q: %w", id, err)
	}
	return &c, nil
}

func scanProductLine(currency string) func(pgx.CollectableRow) (cart.ProductLine, error) {
	return func(row pgx.CollectableRow) (cart.ProductLine, error) {
		var (
			l            cart.ProductLine
			regularPrice decimal.Decimal
			salePrice    decimal.Decimal
			changes      []byte
		)
		err := row.Scan(
			&l.ID, &l.ProductID, &l.Name, &l.Quantity,
			&regularPrice, &salePrice, &l.OnSale, &l.IsFree,
			&l.HasLimitedStock, &l.StockQuantity, &l.MaxPerOrder,
			&l.IsCancelled, &l.CancellationReasons, &changes,
		)
		if err != nil {
			return cart.ProductLine{}, err
		}
		l.UnitRegularPrice = money.FromDecimal(regularPrice, currency)
		l.UnitSalePrice = money.FromDecimal(salePrice, currency)
		l.DetectedChanges, err = decodeChanges(changes)
		return l, err
	}
}

func scanCouponLine(currency string) func(pgx.CollectableRow) (cart.CouponLine, error) {
	return func(row pgx.CollectableRow) (cart.CouponLine, error) {
		var (
			l            cart.CouponLine
			discountType string
			discountRate int32
			amount       decimal.Decimal
			changes      []byte
		)
		err := row.Scan(
			&l.ID, &l.CouponID, &l.Name, &l.Code,
			&discountType, &discountRate, &amount, &l.OffersFreeDelivery,
			&l.UsageLimited, &l.Instructions,
			&l.IsCancelled, &l.CancellationReasons, &changes,
		)
		if err != nil {
			return cart.CouponLine{}, err
		}
		l.DiscountType = coupon.DiscountType(discountType)
		l.DiscountRate, err = money.NewPercentage(int(discountRate))
		if err != nil {
			return cart.CouponLine{}, fmt.Errorf("coupon line %q discount rate: %w", l.ID, err)
		}
		l.DiscountAmount = money.FromDecimal(amount, currency)
		l.DetectedChanges, err = decodeChanges(changes)
		return l, err
	}
}

// emptyChanges keeps the JSONB column as '{}' instead of 'null' for lines
// with no detected drift.
func emptyChanges(changes map[string]cart.Change) map[string]cart.Change {
	if changes == nil {
		return map[string]cart.Change{}
	}
	return changes
}

func decodeChanges(raw []byte) (map[string]cart.Change, error) {
	changes := map[string]cart.Change{}
	if err := json.Unmarshal(raw, &changes); err != nil {
		return nil, fmt.Errorf("decoding detected changes: %w", err)
	}
	if len(changes) == 0 {
		return nil, nil
	}
	return changes, nil
}
