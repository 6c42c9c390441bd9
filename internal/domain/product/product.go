// Package product defines the catalog item shape the cart snapshots from.
package product

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/sechaba-labs/storefront/internal/domain/money"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Variations
// are products themselves, linked through ParentID; the catalog is a flat
// store keyed by id, not a pointer graph.
type Product struct {
	ID           string
	StoreID      string
	ParentID     string
	Name         string
	RegularPrice money.Money
	SalePrice    money.Money
	OnSale       bool
	IsFree       bool

	// StockQuantity is meaningful only when HasLimitedStock is set.
	HasLimitedStock bool
	StockQuantity   int

	// MaxPerOrder caps the quantity a single order may carry; zero means
	// no cap.
	MaxPerOrder int
}

// InStock reports whether the product can currently be ordered.
func (p Product) InStock() bool {
	return !p.HasLimitedStock || p.StockQuantity > 0
}

// UnitPrice returns the effective selling price: the sale price while on
// sale, otherwise the regular price.
func (p Product) UnitPrice() money.Money {
	if p.OnSale {
		return p.SalePrice
	}
	return p.RegularPrice
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context, storeID string) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	// Variations returns the child products of a parent, in catalog order.
	Variations(ctx context.Context, parentID string) ([]Product, error)
}
