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
	"github.com/sechaba-labs/storefront/internal/domain/money"
	"github.com/sechaba-labs/storefront/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, store_id, customer_id, cart_id,
		currency, totals, grand_total, status, paid_percentage, pending_percentage, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getOrderByIDSQL = `SELECT id, store_id, customer_id, cart_id,
		currency, totals, grand_total, status, paid_percentage, pending_percentage, created_at
		FROM orders WHERE id = $1`

	updateOrderStatusSQL = `UPDATE orders SET status = $3
		WHERE id = $1 AND status = $2`

	insertTransactionSQL = `INSERT INTO transactions (id, owner_kind, owner_id,
		amount, currency, percentage, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listOrderTransactionsSQL = `SELECT id, owner_kind, owner_id,
		amount, currency, percentage, status, created_at
		FROM transactions WHERE owner_kind = 'order' AND owner_id = $1
		ORDER BY created_at, id`

	// Percentages move only when the row still carries the values the
	// caller derived them from; a lost update shows up as zero rows, and
	// the table CHECK keeps paid + pending within 100 regardless.
	updateOrderPercentagesSQL = `UPDATE orders
		SET paid_percentage = $2, pending_percentage = $3
		WHERE id = $1 AND paid_percentage = $4 AND pending_percentage = $5`

	resolveTransactionSQL = `UPDATE transactions SET status = $2
		WHERE id = $1 AND status = 'pending'`
)

// ErrStaleOrder is returned when a percentage update loses a race against
// a concurrent payment and must be retried from a fresh read.
var ErrStaleOrder = errors.New("order payment state changed concurrently")

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts a freshly checked-out order with its frozen totals.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	totals, err := json.Marshal(totalsRecordFrom(o.Totals))
	if err != nil {
		return fmt.Errorf("creating order %q: encoding totals: %w", o.ID, err)
	}
	_, err = r.pool.Exec(ctx, insertOrderSQL,
		o.ID, o.StoreID, o.CustomerID, o.CartID,
		o.GrandTotal.Currency(), totals, o.GrandTotal.Decimal(),
		string(o.Status), int(o.PaidPercentage), int(o.PendingPercentage), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID loads an order with its transaction history. Returns
// order.ErrNotFound when no row exists.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	var (
		o          order.Order
		currency   string
		totals     []byte
		grandTotal decimal.Decimal
		status     string
		paid       int32
		pending    int32
	)
	err := r.pool.QueryRow(ctx, getOrderByIDSQL, id).Scan(
		&o.ID, &o.StoreID, &o.CustomerID, &o.CartID,
		&currency, &totals, &grandTotal, &status, &paid, &pending, &o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	var rec totalsRecord
	if err = json.Unmarshal(totals, &rec); err != nil {
		return nil, fmt.Errorf("getting order %q: decoding totals: %w", id, err)
	}
	o.Totals = rec.toTotals()
	o.GrandTotal = money.FromDecimal(grandTotal, currency)
	o.Status = order.Status(status)
	if o.PaidPercentage, err = money.NewPercentage(int(paid)); err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	if o.PendingPercentage, err = money.NewPercentage(int(pending)); err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, listOrderTransactionsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q transactions: %w", id, err)
	}
	o.Transactions, err = pgx.CollectRows(rows, scanTransaction)
	if err != nil {
		return nil, fmt.Errorf("getting order %q transactions: %w", id, err)
	}
	return &o, nil
}

// UpdateStatus persists a status move conditionally on the expected
// current status. Zero rows means the row has moved on (or never
// existed) and the caller must re-read.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// RecordTransaction persists a transaction already applied to o in
// memory: the insert and the conditional percentage update run in one
// database transaction, so concurrent payments cannot both land.
func (r *OrderRepository) RecordTransaction(ctx context.Context, o *order.Order, t order.Transaction) error {
	prevPaid, prevPending := previousPercentages(o, t, t.Status, false)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("recording transaction %q: %w", t.ID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, insertTransactionSQL,
		t.ID, string(t.Owner.Kind), t.Owner.ID,
		t.Amount.Decimal(), t.Amount.Currency(), int(t.Percentage), string(t.Status), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording transaction %q: %w", t.ID, err)
	}

	if err = r.updatePercentages(ctx, tx, o, prevPaid, prevPending); err != nil {
		return fmt.Errorf("recording transaction %q: %w", t.ID, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("recording transaction %q: %w", t.ID, err)
	}
	return nil
}

// ResolveTransaction persists a pending transaction's move to Paid or
// Failed, together with the re-derived order percentages.
func (r *OrderRepository) ResolveTransaction(ctx context.Context, o *order.Order, txID string, target order.TransactionStatus) error {
	var resolved *order.Transaction
	for i := range o.Transactions {
		if o.Transactions[i].ID == txID {
			resolved = &o.Transactions[i]
			break
		}
	}
	if resolved == nil {
		return errors.Errorf("transaction %s not found on order %s", txID, o.ID)
	}
	prevPaid, prevPending := previousPercentages(o, *resolved, target, true)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("resolving transaction %q: %w", txID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, resolveTransactionSQL, txID, string(target))
	if err != nil {
		return fmt.Errorf("resolving transaction %q: %w", txID, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrStaleOrder, "transaction %s is not pending", txID)
	}

	if err = r.updatePercentages(ctx, tx, o, prevPaid, prevPending); err != nil {
		return fmt.Errorf("resolving transaction %q: %w", txID, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("resolving transaction %q: %w", txID, err)
	}
	return nil
}

func (r *OrderRepository) updatePercentages(ctx context.Context, tx pgx.Tx, o *order.Order, prevPaid, prevPending int) error {
	tag, err := tx.Exec(ctx, updateOrderPercentagesSQL,
		o.ID, int(o.PaidPercentage), int(o.PendingPercentage), prevPaid, prevPending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleOrder
	}
	return nil
}

// previousPercentages reconstructs the order's percentages as they stood
// before t moved to target, which is what the conditional update guards
// against. resolvedFromPending distinguishes a pending transaction being
// resolved from a freshly recorded one.
func previousPercentages(o *order.Order, t order.Transaction, target order.TransactionStatus, resolvedFromPending bool) (paid, pending int) {
	paid = int(o.PaidPercentage)
	pending = int(o.PendingPercentage)
	switch target {
	case order.TransactionPaid:
		paid -= int(t.Percentage)
		if resolvedFromPending {
			pending += int(t.Percentage)
		}
	case order.TransactionPending:
		pending -= int(t.Percentage)
	case order.TransactionFailed:
		if resolvedFromPending {
			pending += int(t.Percentage)
		}
	}
	return paid, pending
}

func scanTransaction(row pgx.CollectableRow) (order.Transaction, error) {
	var (
		t          order.Transaction
		ownerKind  string
		amount     decimal.Decimal
		currency   string
		percentage int32
		status     string
	)
	err := row.Scan(
		&t.ID, &ownerKind, &t.Owner.ID,
		&amount, &currency, &percentage, &status, &t.CreatedAt,
	)
	if err != nil {
		return order.Transaction{}, err
	}
	t.Owner.Kind = order.OwnerKind(ownerKind)
	t.Amount = money.FromDecimal(amount, currency)
	if t.Percentage, err = money.NewPercentage(int(percentage)); err != nil {
		return order.Transaction{}, fmt.Errorf("transaction %q percentage: %w", t.ID, err)
	}
	t.Status = order.TransactionStatus(status)
	return t, nil
}

// totalsRecord is the JSONB shape frozen order totals are stored in.
// Amounts are minor units; the order row's currency column applies to all
// of them.
type totalsRecord struct {
	Currency                        string `json:"currency"`
	SubTotal                        int64  `json:"sub_total"`
	SaleDiscountTotal               int64  `json:"sale_discount_total"`
	CouponDiscountTotal             int64  `json:"coupon_discount_total"`
	CouponAndSaleDiscountTotal      int64  `json:"coupon_and_sale_discount_total"`
	DeliveryFee                     int64  `json:"delivery_fee"`
	GrandTotal                      int64  `json:"grand_total"`
	TotalProducts                   int    `json:"total_products"`
	TotalProductQuantities          int    `json:"total_product_quantities"`
	TotalCancelledProducts          int    `json:"total_cancelled_products"`
	TotalCancelledProductQuantities int    `json:"total_cancelled_product_quantities"`
	TotalCoupons                    int    `json:"total_coupons"`
	TotalCancelledCoupons           int    `json:"total_cancelled_coupons"`
}

func totalsRecordFrom(t cart.Totals) totalsRecord {
	return totalsRecord{
		Currency:                        t.GrandTotal.Currency(),
		SubTotal:                        t.SubTotal.MinorUnits(),
		SaleDiscountTotal:               t.SaleDiscountTotal.MinorUnits(),
		CouponDiscountTotal:             t.CouponDiscountTotal.MinorUnits(),
		CouponAndSaleDiscountTotal:      t.CouponAndSaleDiscountTotal.MinorUnits(),
		DeliveryFee:                     t.DeliveryFee.MinorUnits(),
		GrandTotal:                      t.GrandTotal.MinorUnits(),
		TotalProducts:                   t.TotalProducts,
		TotalProductQuantities:          t.TotalProductQuantities,
		TotalCancelledProducts:          t.TotalCancelledProducts,
		TotalCancelledProductQuantities: t.TotalCancelledProductQuantities,
		TotalCoupons:                    t.TotalCoupons,
		TotalCancelledCoupons:           t.TotalCancelledCoupons,
	}
}

func (r totalsRecord) toTotals() cart.Totals {
	return cart.Totals{
		SubTotal:                        money.New(r.SubTotal, r.Currency),
		SaleDiscountTotal:               money.New(r.SaleDiscountTotal, r.Currency),
		CouponDiscountTotal:             money.New(r.CouponDiscountTotal, r.Currency),
		CouponAndSaleDiscountTotal:      money.New(r.CouponAndSaleDiscountTotal, r.Currency),
		DeliveryFee:                     money.New(r.DeliveryFee, r.Currency),
		GrandTotal:                      money.New(r.GrandTotal, r.Currency),
		TotalProducts:                   r.TotalProducts,
		TotalProductQuantities:          r.TotalProductQuantities,
		TotalCancelledProducts:          r.TotalCancelledProducts,
		TotalCancelledProductQuantities: r.TotalCancelledProductQuantities,
		TotalCoupons:                    r.TotalCoupons,
		TotalCancelledCoupons:           r.TotalCancelledCoupons,
	}
}
