package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sechaba-labs/storefront/internal/domain/money"
	"github.com/sechaba-labs/storefront/internal/domain/product"
)

const (
	productColumns = `p.id, p.store_id, COALESCE(p.parent_id, ''), p.name,
		p.regular_price, p.sale_price, p.on_sale, p.is_free,
		p.has_limited_stock, p.stock_quantity, p.max_per_order, s.currency`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products p JOIN stores s ON s.id = p.store_id
		WHERE p.store_id = $1 AND p.parent_id IS NULL
		ORDER BY p.created_at, p.id`

	getProductByIDSQL = `SELECT ` + productColumns + `
		FROM products p JOIN stores s ON s.id = p.store_id
		WHERE p.id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + `
		FROM products p JOIN stores s ON s.id = p.store_id
		WHERE p.id = ANY($1)
		ORDER BY p.created_at, p.id`

	listVariationsSQL = `SELECT ` + productColumns + `
		FROM products p JOIN stores s ON s.id = p.store_id
		WHERE p.parent_id = $1
		ORDER BY p.created_at, p.id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the store's top-level catalog in creation order.
func (r *ProductRepository) List(ctx context.Context, storeID string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing products for store %q: %w", storeID, err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products for store %q: %w", storeID, err)
	}
	return products, nil
}

// GetByID loads a single product. Returns product.ErrNotFound when no row
// exists.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs loads the products with the given ids. Missing ids are simply
// absent from the result; callers compare lengths when they care.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return products, nil
}

// Variations returns the child products of a parent, in catalog order.
func (r *ProductRepository) Variations(ctx context.Context, parentID string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listVariationsSQL, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing variations of product %q: %w", parentID, err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing variations of product %q: %w", parentID, err)
	}
	return products, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p            product.Product
		regularPrice decimal.Decimal
		salePrice    decimal.Decimal
		currency     string
	)
	err := row.Scan(
		&p.ID, &p.StoreID, &p.ParentID, &p.Name,
		&regularPrice, &salePrice, &p.OnSale, &p.IsFree,
		&p.HasLimitedStock, &p.StockQuantity, &p.MaxPerOrder, &currency,
	)
	p.RegularPrice = money.FromDecimal(regularPrice, currency)
	p.SalePrice = money.FromDecimal(salePrice, currency)
	return p, err
}
