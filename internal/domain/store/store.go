// Package store defines the store record and the payment policy that
// drives payable-option generation.
package store

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/sechaba-labs/storefront/internal/domain/money"
)

// ErrNotFound is returned when a requested store does not exist.
var ErrNotFound = errors.New("store not found")

// ConfigurationError reports malformed policy data, e.g. a deposit
// percentage outside 1-99.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("store policy %q misconfigured: %s", e.Field, e.Reason)
}

// Policy controls how a store lets customers split payment of an order.
// Deposits apply to the first payment only; installments apply to any
// partial payment.
type Policy struct {
	AllowDeposits          bool
	DepositPercentages     []money.Percentage
	AllowInstallments      bool
	InstallmentPercentages []money.Percentage
}

// Validate checks the policy's percentages. Full payment is always
// offered separately, so configured splits must be strictly between 0
// and 100.
func (p Policy) Validate() error {
	if p.AllowDeposits && len(p.DepositPercentages) == 0 {
		return &ConfigurationError{Field: "deposit_percentages", Reason: "deposits allowed but no percentages configured"}
	}
	if p.AllowInstallments && len(p.InstallmentPercentages) == 0 {
		return &ConfigurationError{Field: "installment_percentages", Reason: "installments allowed but no percentages configured"}
	}
	for _, pct := range p.DepositPercentages {
		if pct <= 0 || pct >= 100 {
			return &ConfigurationError{Field: "deposit_percentages", Reason: fmt.Sprintf("percentage %d out of range (1-99)", pct)}
		}
	}
	for _, pct := range p.InstallmentPercentages {
		if pct <= 0 || pct >= 100 {
			return &ConfigurationError{Field: "installment_percentages", Reason: fmt.Sprintf("percentage %d out of range (1-99)", pct)}
		}
	}
	return nil
}

// Store is a merchant storefront. Currency is the single currency every
// cart, order, and transaction of the store trades in.
type Store struct {
	ID                string
	Name              string
	Currency          string
	DeliveryFee       money.Money
	AllowFreeDelivery bool
	Policy            Policy
}

// Repository provides store lookup and team membership checks.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Store, error)
	// IsTeamMember reports whether userID has joined the store's team.
	IsTeamMember(ctx context.Context, storeID, userID string) (bool, error)
}
