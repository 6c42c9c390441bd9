// Package order holds the order aggregate: the frozen copy of a cart at
// checkout, its fulfillment status machine, the transaction set whose
// percentages must always reconcile to 100, and the payable-option
// calculator that tells the checkout UI what a customer may pay next.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/sechaba-labs/storefront/internal/domain/cart"
	"github.com/sechaba-labs/storefront/internal/domain/money"
)

var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrActorNotAllowed is returned when the acting identity may not
	// perform a payment action on the order.
	ErrActorNotAllowed = errors.New("actor not allowed")
)

// ReconciliationError reports a transaction that would break the
// paid + pending + outstanding == 100 invariant. The order is left
// untouched when one is returned.
type ReconciliationError struct {
	Paid    money.Percentage
	Pending money.Percentage
	Adding  money.Percentage
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf(
		"transaction of %d%% would break reconciliation: %d%% paid, %d%% pending",
		e.Adding, e.Paid, e.Pending,
	)
}

// OwnerKind tags the payable entity a transaction belongs to.
type OwnerKind string

const (
	OwnerOrder        OwnerKind = "order"
	OwnerSubscription OwnerKind = "subscription"
	OwnerSMSCredit    OwnerKind = "sms_credit"
)

// OwnerRef identifies a transaction's payable owner without runtime
// duck-typing: a kind tag plus the owner's id.
type OwnerRef struct {
	Kind OwnerKind
	ID   string
}

// Transaction is one payment attempt against a payable owner. Percentage
// records what fraction of the owner's grand total it covers; Amount is
// the money actually moved.
type Transaction struct {
	ID         string
	Owner      OwnerRef
	Amount     money.Money
	Percentage money.Percentage
	Status     TransactionStatus
	CreatedAt  time.Time
}

// Order is created from a cart at checkout and freezes the cart's totals
// at that moment. Status and the payment percentages evolve; the frozen
// totals never do.
type Order struct {
	ID         string
	StoreID    string
	CustomerID string
	CartID     string

	Totals     cart.Totals
	GrandTotal money.Money

	Status Status

	// PaidPercentage and PendingPercentage are derived from the
	// transaction set on every mutation; OutstandingPercentage is always
	// their complement against 100.
	PaidPercentage    money.Percentage
	PendingPercentage money.Percentage

	Transactions []Transaction

	CreatedAt time.Time
}

// New freezes the given cart into a Waiting, fully-unpaid order.
func New(id string, c *cart.Cart, now time.Time) *Order {
	return &Order{
		ID:         id,
		StoreID:    c.StoreID,
		CustomerID: c.CustomerID,
		CartID:     c.ID,
		Totals:     c.Totals,
		GrandTotal: c.Totals.GrandTotal,
		Status:     StatusWaiting,
		CreatedAt:  now,
	}
}

// OutstandingPercentage is what remains unpaid: always 100 - paid.
func (o *Order) OutstandingPercentage() money.Percentage {
	return o.PaidPercentage.Complement()
}

// PaymentStatus derives the order-level payment state: Paid when fully
// paid, Pending while any payment is in flight, otherwise Unpaid.
func (o *Order) PaymentStatus() PaymentStatus {
	switch {
	case o.PaidPercentage == 100:
		return PaymentPaid
	case o.PendingPercentage > 0:
		return PaymentPending
	default:
		return PaymentUnpaid
	}
}

// IsPaid reports whether the order is fully paid.
func (o *Order) IsPaid() bool { return o.PaymentStatus() == PaymentPaid }

// IsWaiting reports whether the order has not started fulfillment.
func (o *Order) IsWaiting() bool { return o.Status == StatusWaiting }

// Transition moves the order to target when the move is legal, returning
// an InvalidTransitionError (and leaving the order unchanged) otherwise.
func (o *Order) Transition(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return &InvalidTransitionError{From: o.Status, To: target}
	}
	o.Status = target
	return nil
}

// RecordTransaction appends tx and re-derives the paid/pending
// percentages from the full transaction set. The update is atomic: when
// the resulting percentages would not reconcile to 100, or the
// transaction's currency does not match the order's, nothing is applied.
func (o *Order) RecordTransaction(tx Transaction) error {
	if _, err := o.GrandTotal.Cmp(tx.Amount); err != nil {
		return errors.Wrap(err, "record transaction")
	}

	paid, pending := sumPercentages(o.Transactions)
	switch tx.Status {
	case TransactionPaid:
		paid += int(tx.Percentage)
	case TransactionPending:
		pending += int(tx.Percentage)
	case TransactionFailed:
		// Failed attempts never count toward either percentage.
	default:
		return errors.Errorf("unknown transaction status %q", tx.Status)
	}

	if err := o.reconcile(paid, pending, tx.Percentage); err != nil {
		return err
	}

	o.Transactions = append(o.Transactions, tx)
	o.PaidPercentage = money.MustPercentage(paid)
	o.PendingPercentage = money.MustPercentage(pending)
	return nil
}

// ResolveTransaction moves a pending transaction to Paid or Failed and
// re-derives the order percentages. Resolving a non-pending transaction
// is an invalid transition.
func (o *Order) ResolveTransaction(txID string, target TransactionStatus) error {
	idx := -1
	for i := range o.Transactions {
		if o.Transactions[i].ID == txID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.Errorf("transaction %s not found on order %s", txID, o.ID)
	}

	current := o.Transactions[idx].Status
	if !current.CanResolveTo(target) {
		return errors.Errorf("transaction %s cannot move from %q to %q", txID, current, target)
	}

	resolved := o.Transactions[idx]
	resolved.Status = target

	rest := make([]Transaction, 0, len(o.Transactions))
	rest = append(rest, o.Transactions[:idx]...)
	rest = append(rest, o.Transactions[idx+1:]...)
	paid, pending := sumPercentages(rest)
	if target == TransactionPaid {
		paid += int(resolved.Percentage)
	}

	if err := o.reconcile(paid, pending, resolved.Percentage); err != nil {
		return err
	}

	o.Transactions[idx] = resolved
	o.PaidPercentage = money.MustPercentage(paid)
	o.PendingPercentage = money.MustPercentage(pending)
	return nil
}

func (o *Order) reconcile(paid, pending int, adding money.Percentage) error {
	if paid < 0 || pending < 0 || paid+pending > 100 {
		return &ReconciliationError{
			Paid:    o.PaidPercentage,
			Pending: o.PendingPercentage,
			Adding:  adding,
		}
	}
	return nil
}

// sumPercentages totals the paid and pending percentages across txs.
func sumPercentages(txs []Transaction) (paid, pending int) {
	for _, tx := range txs {
		switch tx.Status {
		case TransactionPaid:
			paid += int(tx.Percentage)
		case TransactionPending:
			pending += int(tx.Percentage)
		}
	}
	return paid, pending
}

// Repository defines persistence operations for orders. RecordTransaction
// implementations must apply the percentage update and the transaction
// insert atomically (a conditional update inside one database
// transaction), so two concurrent payments can never both push the order
// past 100%.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// UpdateStatus persists a status move conditionally on the expected
	// current status, returning ErrNotFound when the row has moved on.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	RecordTransaction(ctx context.Context, o *Order, tx Transaction) error
	ResolveTransaction(ctx context.Context, o *Order, txID string, target TransactionStatus) error
}
