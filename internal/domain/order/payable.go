package order

import (
	"fmt"

	"github.com/sechaba-labs/storefront/internal/domain/money"
	"github.com/sechaba-labs/storefront/internal/domain/store"
)

// OptionType classifies a payable option.
type OptionType string

const (
	OptionFullPayment      OptionType = "full_payment"
	OptionDeposit          OptionType = "deposit"
	OptionInstallment      OptionType = "installment"
	OptionRemainingBalance OptionType = "remaining_balance"
)

// PaymentOption is one legal way to pay some percentage of an order's
// grand total right now. Amount is always derived from the percentage
// via the Money rounding rule, never the other way around.
type PaymentOption struct {
	Name       string
	Type       OptionType
	Percentage money.Percentage
	Amount     money.Money
}

// PayableOptions produces the ordered list of legal next-payment options
// for the order under the store's deposit/installment policy. It never
// mutates the order; it is purely advisory for the checkout UI.
//
// The decision table:
//   - terminal order status, zero grand total, or nothing remaining
//     after in-flight payments: no options;
//   - first payment (nothing paid yet): Full Payment, then the store's
//     deposits, or else Remaining Balance plus qualifying installments;
//   - partially paid: Remaining Balance plus qualifying installments,
//     unless an in-flight payment already covers everything outstanding.
//
// An installment qualifies only when strictly below the remaining
// percentage; anything equal or above is redundant with Remaining
// Balance.
func PayableOptions(o *Order, st store.Store) []PaymentOption {
	if o.Status.IsTerminal() || !o.GrandTotal.IsPositive() {
		return nil
	}

	outstanding := o.OutstandingPercentage()
	remaining := int(outstanding) - int(o.PendingPercentage)
	if remaining <= 0 {
		return nil
	}
	remainingPct := money.MustPercentage(remaining)

	var opts []PaymentOption

	if o.PaidPercentage == 0 {
		opts = append(opts, option("Full Payment", OptionFullPayment, 100, o.GrandTotal))

		switch {
		case st.Policy.AllowDeposits:
			for _, pct := range st.Policy.DepositPercentages {
				opts = append(opts, option(
					fmt.Sprintf("Deposit (%d%%)", pct), OptionDeposit, pct, o.GrandTotal,
				))
			}
		case st.Policy.AllowInstallments:
			opts = append(opts, remainingBalanceOption(remainingPct, o.GrandTotal))
			opts = append(opts, installmentOptions(st.Policy, remainingPct, o.GrandTotal)...)
		}

		return opts
	}

	// Partially paid. Deposits are a first-payment-only concept.
	opts = append(opts, remainingBalanceOption(remainingPct, o.GrandTotal))
	if st.Policy.AllowInstallments {
		opts = append(opts, installmentOptions(st.Policy, remainingPct, o.GrandTotal)...)
	}
	return opts
}

func option(name string, typ OptionType, pct money.Percentage, grandTotal money.Money) PaymentOption {
	return PaymentOption{
		Name:       name,
		Type:       typ,
		Percentage: pct,
		Amount:     grandTotal.PercentOf(pct),
	}
}

func remainingBalanceOption(remaining money.Percentage, grandTotal money.Money) PaymentOption {
	return option(
		fmt.Sprintf("Remaining Balance (%d%%)", remaining),
		OptionRemainingBalance, remaining, grandTotal,
	)
}

func installmentOptions(p store.Policy, remaining money.Percentage, grandTotal money.Money) []PaymentOption {
	var opts []PaymentOption
	for _, pct := range p.InstallmentPercentages {
		if pct >= remaining {
			continue
		}
		opts = append(opts, option(
			fmt.Sprintf("Installment (%d%%)", pct), OptionInstallment, pct, grandTotal,
		))
	}
	return opts
}

// Actor is the identity attempting a payment-related action, resolved by
// the caller. The core never reaches into ambient session state.
type Actor struct {
	ID string
	// IsTeamMember is true when the actor has joined the order's store team.
	IsTeamMember bool
	// IsCustomer is true when the actor is the order's customer or one of
	// their friends on the order.
	IsCustomer bool
}

// CanMarkAsPaid reports whether the actor may mark the order paid
// manually: the order must be worth something, the store context must
// resolve, and only team members may do it.
func CanMarkAsPaid(o *Order, actor Actor, st *store.Store) bool {
	if st == nil || !o.GrandTotal.IsPositive() {
		return false
	}
	return actor.IsTeamMember
}

// CanRequestPayment reports whether the actor may request a payment
// against the order: some payable option must exist and the actor must
// be the order's customer/friend or a team member.
func CanRequestPayment(o *Order, actor Actor, st *store.Store) bool {
	if st == nil || !o.GrandTotal.IsPositive() {
		return false
	}
	if !actor.IsCustomer && !actor.IsTeamMember {
		return false
	}
	return len(PayableOptions(o, *st)) > 0
}
