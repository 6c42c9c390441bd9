package order

import "fmt"

// Status is an order's fulfillment state.
type Status string

const (
	StatusWaiting        Status = "waiting"
	StatusOnItsWay       Status = "on_its_way"
	StatusReadyForPickup Status = "ready_for_pickup"
	StatusCancelled      Status = "cancelled"
	StatusCompleted      Status = "completed"
)

// transitions is the full legal-move table. Cancelled and Completed are
// terminal: they have no entries.
var transitions = map[Status]map[Status]bool{
	StatusWaiting: {
		StatusOnItsWay:       true,
		StatusReadyForPickup: true,
		StatusCancelled:      true,
		StatusCompleted:      true,
	},
	StatusOnItsWay: {
		StatusReadyForPickup: true,
		StatusCompleted:      true,
		StatusCancelled:      true,
	},
	StatusReadyForPickup: {
		StatusOnItsWay:  true,
		StatusCompleted: true,
		StatusCancelled: true,
	},
}

// InvalidTransitionError reports an illegal status change request. The
// order is left unchanged when one is returned.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

// CanTransitionTo reports whether moving from s to target is legal.
func (s Status) CanTransitionTo(target Status) bool {
	return transitions[s][target]
}

// IsTerminal reports whether s accepts no further transitions.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusOnItsWay, StatusReadyForPickup, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// TransactionStatus is the state of a single payment attempt.
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	TransactionPaid    TransactionStatus = "paid"
	TransactionFailed  TransactionStatus = "failed"
)

// CanResolveTo reports whether a transaction may move to target.
// Pending resolves to Paid or Failed; both of those are terminal.
func (s TransactionStatus) CanResolveTo(target TransactionStatus) bool {
	return s == TransactionPending && (target == TransactionPaid || target == TransactionFailed)
}

// PaymentStatus is the order-level payment state, always derived from
// the order's transaction set, never stored authoritatively.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)
