// Command seed-db creates a demo store with products and coupons so the
// API can be exercised locally without manual setup.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sechaba-labs/storefront/internal/repository"
)

const upsertStoreSQL = `
INSERT INTO stores (id, name, currency, delivery_fee, allow_free_delivery,
                    allow_deposits, deposit_percentages,
                    allow_installments, installment_percentages)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    currency = EXCLUDED.currency,
    delivery_fee = EXCLUDED.delivery_fee,
    allow_free_delivery = EXCLUDED.allow_free_delivery,
    allow_deposits = EXCLUDED.allow_deposits,
    deposit_percentages = EXCLUDED.deposit_percentages,
    allow_installments = EXCLUDED.allow_installments,
    installment_percentages = EXCLUDED.installment_percentages
`

const upsertTeamMemberSQL = `
INSERT INTO store_team_members (store_id, user_id)
VALUES ($1, $2)
ON CONFLICT (store_id, user_id) DO NOTHING
`

const upsertProductSQL = `
INSERT INTO products (id, store_id, parent_id, name, regular_price, sale_price,
                      on_sale, is_free, has_limited_stock, stock_quantity, max_per_order)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    regular_price = EXCLUDED.regular_price,
    sale_price = EXCLUDED.sale_price,
    on_sale = EXCLUDED.on_sale,
    is_free = EXCLUDED.is_free,
    has_limited_stock = EXCLUDED.has_limited_stock,
    stock_quantity = EXCLUDED.stock_quantity,
    max_per_order = EXCLUDED.max_per_order
`

const upsertCouponSQL = `
INSERT INTO coupons (id, store_id, name, description, active,
                     discount_type, discount_rate, discount_amount, offer_free_delivery,
                     activate_using_code, code,
                     activate_using_minimum_grand_total, minimum_grand_total,
                     activate_using_usage_limit, remaining_quantity)
VALUES ($1, $2, $3, $4, TRUE, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    discount_type = EXCLUDED.discount_type,
    discount_rate = EXCLUDED.discount_rate,
    discount_amount = EXCLUDED.discount_amount,
    offer_free_delivery = EXCLUDED.offer_free_delivery,
    activate_using_code = EXCLUDED.activate_using_code,
    code = EXCLUDED.code,
    activate_using_minimum_grand_total = EXCLUDED.activate_using_minimum_grand_total,
    minimum_grand_total = EXCLUDED.minimum_grand_total,
    activate_using_usage_limit = EXCLUDED.activate_using_usage_limit,
    remaining_quantity = EXCLUDED.remaining_quantity
`

type productSeed struct {
	id, parentID, name string
	regular, sale      string
	onSale             bool
	limitedStock       bool
	stock, maxPerOrder int
}

type couponSeed struct {
	id, name, description string
	discountType          string
	rate                  int
	amount                string
	freeDelivery          bool
	code                  string
	minGrandTotal         string
	usageLimited          bool
	remaining             int
}

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	const storeID = "demo-store"

	if err := seedStore(ctx, pool, storeID); err != nil {
		return errors.Wrap(err, "seed store")
	}
	if err := seedProducts(ctx, pool, storeID); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, pool, storeID); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

func seedStore(ctx context.Context, pool *pgxpool.Pool, storeID string) error {
	slog.Info("upserting demo store", slog.String("id", storeID))

	_, err := pool.Exec(ctx, upsertStoreSQL,
		storeID, "Demo Store", "ZAR", decimal.NewFromInt(25),
		true,                  // allow_free_delivery
		true, []int32{20, 50}, // deposits
		true, []int32{25, 50}, // installments
	)
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, upsertTeamMemberSQL, storeID, "demo-merchant"); err != nil {
		return errors.Wrap(err, "upsert team member")
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, storeID string) error {
	products := []productSeed{
		{id: "tee-classic", name: "Classic Tee", regular: "250.00", sale: "199.00", onSale: true, limitedStock: true, stock: 40, maxPerOrder: 5},
		{id: "tee-classic-xl", parentID: "tee-classic", name: "Classic Tee (XL)", regular: "270.00", sale: "219.00", onSale: true, limitedStock: true, stock: 12, maxPerOrder: 5},
		{id: "hoodie-winter", name: "Winter Hoodie", regular: "620.00", sale: "0", maxPerOrder: 3},
		{id: "cap-branded", name: "Branded Cap", regular: "150.00", sale: "0", limitedStock: true, stock: 8},
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		regular, err := decimal.NewFromString(p.regular)
		if err != nil {
			return errors.Wrapf(err, "parse regular price for %s", p.id)
		}
		sale, err := decimal.NewFromString(p.sale)
		if err != nil {
			return errors.Wrapf(err, "parse sale price for %s", p.id)
		}

		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.id, storeID, p.parentID, p.name, regular, sale,
			p.onSale, false, p.limitedStock, p.stock, p.maxPerOrder,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}

		slog.Info("upserted product", slog.String("id", p.id), slog.String("name", p.name))
	}
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, storeID string) error {
	coupons := []couponSeed{
		{
			id: "welcome10", name: "Welcome 10%", description: "10% off your first order",
			discountType: "percentage", rate: 10, amount: "0",
			code: "WELCOME10",
		},
		{
			id: "bigspender", name: "Big Spender", description: "R50 off orders over R500",
			discountType: "fixed", rate: 0, amount: "50.00",
			code: "BIGSPEND", minGrandTotal: "500.00",
		},
		{
			id: "freedel", name: "Free Delivery", description: "Free delivery, limited to 100 uses",
			discountType: "percentage", rate: 0, amount: "0", freeDelivery: true,
			code: "SHIPFREE", usageLimited: true, remaining: 100,
		},
	}

	slog.Info("upserting coupons", slog.Int("count", len(coupons)))

	for _, c := range coupons {
		amount, err := decimal.NewFromString(c.amount)
		if err != nil {
			return errors.Wrapf(err, "parse amount for %s", c.id)
		}
		minTotal := decimal.Zero
		if c.minGrandTotal != "" {
			if minTotal, err = decimal.NewFromString(c.minGrandTotal); err != nil {
				return errors.Wrapf(err, "parse minimum grand total for %s", c.id)
			}
		}

		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.id, storeID, c.name, c.description,
			c.discountType, c.rate, amount, c.freeDelivery,
			c.code != "", c.code,
			c.minGrandTotal != "", minTotal,
			c.usageLimited, c.remaining,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.id)
		}

		slog.Info("upserted coupon", slog.String("id", c.id), slog.String("code", c.code))
	}
	return nil
}
