// Package coupon defines coupon definitions with independently switched
// activation clauses and the evaluator that decides whether a cart
// qualifies for them.
package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/sechaba-labs/storefront/internal/domain/money"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrNotFound is returned when a coupon code or id does not resolve.
	ErrNotFound = errors.New("coupon not found")
	// ErrInsufficientQuota is returned when a usage-limited coupon is
	// exhausted at consumption time. Distinct from evaluation-time
	// ineligibility: the coupon looked fine when the cart was built, but
	// another checkout took the last use first.
	ErrInsufficientQuota = errors.New("coupon usage quota exhausted")
)

// ConfigurationError reports malformed clause data, e.g. an empty
// required set while its activation switch is on. Evaluation fails
// closed (ineligible) when one is found.
type ConfigurationError struct {
	Clause string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("coupon clause %q misconfigured: %s", e.Clause, e.Reason)
}

// Discount describes what an eligible coupon takes off the cart.
// Rate applies for DiscountPercentage, Amount for DiscountFixed.
type Discount struct {
	Type   DiscountType
	Rate   money.Percentage
	Amount money.Money
}

// Definition is a coupon as configured by a store. Each activation clause
// has its own ActivateUsing switch; a clause's parameters are meaningful
// only while the switch is on, and a definition with no switches on is
// an unconditional offer.
type Definition struct {
	ID                string
	StoreID           string
	Name              string
	Description       string
	Active            bool
	Discount          Discount
	OfferFreeDelivery bool

	ActivateUsingCode bool
	Code              string

	ActivateUsingStartDate bool
	StartDate              time.Time
	ActivateUsingEndDate   bool
	EndDate                time.Time

	ActivateUsingHoursOfDay   bool
	HoursOfDay                []int
	ActivateUsingDaysOfWeek   bool
	DaysOfWeek                []time.Weekday
	ActivateUsingDaysOfMonth  bool
	DaysOfMonth               []int
	ActivateUsingMonthsOfYear bool
	MonthsOfYear              []time.Month

	ActivateUsingMinimumProducts bool
	MinimumProducts              int
	ActivateUsingMinimumQuantity bool
	MinimumQuantity              int

	ActivateUsingMinimumGrandTotal bool
	MinimumGrandTotal              money.Money

	ActivateUsingNewCustomer      bool
	ActivateUsingExistingCustomer bool

	ActivateUsingUsageLimit bool
	RemainingQuantity       int
}

// Repository provides lookup and atomic consumption of coupons.
//
// Consume decrements the remaining usage quota of a usage-limited coupon
// as a single conditional update: implementations must guarantee that two
// concurrent calls against a quota of one let exactly one succeed, the
// other receiving ErrInsufficientQuota. For coupons without a usage limit
// Consume is a no-op.
//
// Release gives back one quota use taken by Consume. Callers invoke it
// when the checkout that consumed the quota fails before an order is
// created, so an abandoned consumption never burns a use. Like Consume
// it is a no-op for coupons without a usage limit.
type Repository interface {
	FindByCode(ctx context.Context, storeID, code string) (*Definition, error)
	GetByID(ctx context.Context, id string) (*Definition, error)
	Consume(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
}
