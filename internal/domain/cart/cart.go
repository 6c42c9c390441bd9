package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/product"
)

var (
	// ErrNotFound is returned when a requested cart does not exist.
	ErrNotFound = errors.New("cart not found")
	// ErrLineNotFound is returned when a referenced line id is not in the cart.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrOutOfStock is returned when adding a product with no remaining stock.
	ErrOutOfStock = errors.New("product out of stock")
	// ErrExceedsMaxPerOrder is returned when a quantity is over the
	// product's per-order cap.
	ErrExceedsMaxPerOrder = errors.New("quantity exceeds per-order limit")
)

// Cart owns its product and coupon lines exclusively. Totals are derived
// and refreshed by Recalculate after every line mutation.
type Cart struct {
	ID         string
	StoreID    string
	CustomerID string

	ProductLines []ProductLine
	CouponLines  []CouponLine

	Delivery Delivery
	Totals   Totals
}

// New returns an empty cart for the given store and customer.
func New(id, storeID, customerID string, delivery Delivery) *Cart {
	return &Cart{
		ID:         id,
		StoreID:    storeID,
		CustomerID: customerID,
		Delivery:   delivery,
	}
}

// Recalculate recomputes the derived totals from the current line sets.
func (c *Cart) Recalculate() error {
	totals, err := Aggregate(c.ProductLines, c.CouponLines, c.Delivery)
	if err != nil {
		return errors.Wrap(err, "aggregate cart")
	}
	c.Totals = totals
	return nil
}

// AddProduct snapshots p into a new line and refreshes the totals.
func (c *Cart) AddProduct(lineID string, p product.Product, quantity int) (*ProductLine, error) {
	if quantity <= 0 {
		return nil, errors.Errorf("quantity must be greater than 0 for product %s", p.ID)
	}
	c.ProductLines = append(c.ProductLines, NewProductLine(lineID, p, quantity))
	if err := c.Recalculate(); err != nil {
		return nil, err
	}
	return &c.ProductLines[len(c.ProductLines)-1], nil
}

// AttachCoupon snapshots def into a new coupon line. An ineligible
// evaluation result attaches the line already cancelled, with the failed
// clauses recorded as cancellation reasons, so the customer still sees
// the offer and its unlock instructions.
func (c *Cart) AttachCoupon(lineID string, def coupon.Definition, res coupon.EligibilityResult) (*CouponLine, error) {
	line := NewCouponLine(lineID, def, res)
	if !res.Eligible {
		line.IsCancelled = true
		for _, clauseName := range res.FailedClauses {
			line.CancellationReasons = append(line.CancellationReasons, "clause not satisfied: "+clauseName)
		}
	}
	c.CouponLines = append(c.CouponLines, line)
	if err := c.Recalculate(); err != nil {
		return nil, err
	}
	return &c.CouponLines[len(c.CouponLines)-1], nil
}

// CancelProductLine cancels a line and appends the reason. Cancellation
// is one-way; cancelling an already-cancelled line only appends the
// reason.
func (c *Cart) CancelProductLine(lineID, reason string) error {
	for i := range c.ProductLines {
		if c.ProductLines[i].ID != lineID {
			continue
		}
		c.ProductLines[i].IsCancelled = true
		c.ProductLines[i].CancellationReasons = append(c.ProductLines[i].CancellationReasons, reason)
		return c.Recalculate()
	}
	return errors.Wrapf(ErrLineNotFound, "product line %s", lineID)
}

// CancelCouponLine cancels a coupon line, with the same one-way
// semantics as CancelProductLine.
func (c *Cart) CancelCouponLine(lineID, reason string) error {
	for i := range c.CouponLines {
		if c.CouponLines[i].ID != lineID {
			continue
		}
		c.CouponLines[i].IsCancelled = true
		c.CouponLines[i].CancellationReasons = append(c.CouponLines[i].CancellationReasons, reason)
		return c.Recalculate()
	}
	return errors.Wrapf(ErrLineNotFound, "coupon line %s", lineID)
}

// SetQuantity updates a product line's quantity and refreshes totals.
// Cancelled lines cannot change quantity.
func (c *Cart) SetQuantity(lineID string, quantity int) error {
	if quantity <= 0 {
		return errors.New("quantity must be greater than 0")
	}
	for i := range c.ProductLines {
		if c.ProductLines[i].ID != lineID {
			continue
		}
		if c.ProductLines[i].IsCancelled {
			return errors.Errorf("product line %s is cancelled", lineID)
		}
		c.ProductLines[i].Quantity = quantity
		return c.Recalculate()
	}
	return errors.Wrapf(ErrLineNotFound, "product line %s", lineID)
}

// RecordProductChanges stores detected drift on a product line. A
// deleted source cancels the line; any other drift is surfaced only.
func (c *Cart) RecordProductChanges(lineID string, changes map[string]Change) error {
	for i := range c.ProductLines {
		if c.ProductLines[i].ID != lineID {
			continue
		}
		c.ProductLines[i].DetectedChanges = changes
		if _, deleted := changes[ChangeSourceDeleted]; deleted {
			return c.CancelProductLine(lineID, "product no longer available")
		}
		return nil
	}
	return errors.Wrapf(ErrLineNotFound, "product line %s", lineID)
}

// RecordCouponChanges stores detected drift on a coupon line. A deleted
// or deactivated source cancels the line.
func (c *Cart) RecordCouponChanges(lineID string, changes map[string]Change) error {
	for i := range c.CouponLines {
		if c.CouponLines[i].ID != lineID {
			continue
		}
		c.CouponLines[i].DetectedChanges = changes
		if _, deleted := changes[ChangeSourceDeleted]; deleted {
			return c.CancelCouponLine(lineID, "coupon no longer available")
		}
		if _, deactivated := changes[FieldActive]; deactivated {
			return c.CancelCouponLine(lineID, "coupon deactivated")
		}
		return nil
	}
	return errors.Wrapf(ErrLineNotFound, "coupon line %s", lineID)
}

// FindProductLine returns the product line with the given id, or nil.
func (c *Cart) FindProductLine(lineID string) *ProductLine {
	for i := range c.ProductLines {
		if c.ProductLines[i].ID == lineID {
			return &c.ProductLines[i]
		}
	}
	return nil
}

// Repository persists carts together with their full line sets. Save
// replaces the stored line sets wholesale, mirroring the whole-recompute
// model of the aggregator.
type Repository interface {
	Save(ctx context.Context, c *Cart) error
	GetByID(ctx context.Context, id string) (*Cart, error)
}

// FindCouponLine returns the coupon line with the given id, or nil.
func (c *Cart) FindCouponLine(lineID string) *CouponLine {
	for i := range c.CouponLines {
		if c.CouponLines[i].ID == lineID {
			return &c.CouponLines[i]
		}
	}
	return nil
}
