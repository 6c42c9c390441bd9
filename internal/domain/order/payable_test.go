package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sechaba-labs/storefront/internal/domain/money"
	"github.com/sechaba-labs/storefront/internal/domain/store"
)

func testStore(policy store.Policy) store.Store {
	return store.Store{
		ID:       "s1",
		Name:     "Main Mall Traders",
		Currency: "BWP",
		Policy:   policy,
	}
}

func TestPayableOptionsFirstPaymentWithDeposits(t *testing.T) {
	o := testOrder(bwp(18000))
	st := testStore(store.Policy{
		AllowDeposits:      true,
		DepositPercentages: []money.Percentage{20, 50},
	})

	opts := PayableOptions(o, st)
	require.Len(t, opts, 3)

	assert.Equal(t, "Full Payment", opts[0].Name)
	assert.Equal(t, money.Percentage(100), opts[0].Percentage)
	assert.Equal(t, bwp(18000), opts[0].Amount)

	assert.Equal(t, "Deposit (20%)", opts[1].Name)
	assert.Equal(t, bwp(3600), opts[1].Amount)

	assert.Equal(t, "Deposit (50%)", opts[2].Name)
	assert.Equal(t, bwp(9000), opts[2].Amount)
}

func TestPayableOptionsPartiallyPaidWithInstallments(t *testing.T) {
	o := testOrder(bwp(18000))
	require.NoError(t, o.RecordTransaction(paidTx("t1", 50, o.GrandTotal)))
	st := testStore(store.Policy{
		AllowInstallments:      true,
		InstallmentPercentages: []money.Percentage{30, 60},
	})

	opts := PayableOptions(o, st)
	require.Len(t, opts, 2)

	// remaining is 50: the 60% installment is redundant with the balance.
	assert.Equal(t, "Remaining Balance (50%)", opts[0].Name)
	assert.Equal(t, money.Percentage(50), opts[0].Percentage)
	assert.Equal(t, bwp(9000), opts[0].Amount)

	assert.Equal(t, "Installment (30%)", opts[1].Name)
	assert.Equal(t, bwp(5400), opts[1].Amount)
}

func TestPayableOptionsFirstPaymentWithInstallments(t *testing.T) {
	o := testOrder(bwp(18000))
	st := testStore(store.Policy{
		AllowInstallments:      true,
		InstallmentPercentages: []money.Percentage{30, 60},
	})

	opts := PayableOptions(o, st)
	require.Len(t, opts, 4)
	assert.Equal(t, OptionFullPayment, opts[0].Type)
	assert.Equal(t, OptionRemainingBalance, opts[1].Type)
	assert.Equal(t, OptionInstallment, opts[2].Type)
	assert.Equal(t, money.Percentage(30), opts[2].Percentage)
	assert.Equal(t, money.Percentage(60), opts[3].Percentage)
}

func TestPayableOptionsFirstPaymentNoSplits(t *testing.T) {
	o := testOrder(bwp(18000))

	opts := PayableOptions(o, testStore(store.Policy{}))
	require.Len(t, opts, 1)
	assert.Equal(t, "Full Payment", opts[0].Name)
}

func TestPayableOptionsDepositsTakePrecedenceOverInstallments(t *testing.T) {
	o := testOrder(bwp(18000))
	st := testStore(store.Policy{
		AllowDeposits:          true,
		DepositPercentages:     []money.Percentage{25},
		AllowInstallments:      true,
		InstallmentPercentages: []money.Percentage{10},
	})

	opts := PayableOptions(o, st)
	require.Len(t, opts, 2)
	assert.Equal(t, OptionDeposit, opts[1].Type)
}

func TestPayableOptionsDepositsAreFirstPaymentOnly(t *testing.T) {
	o := testOrder(bwp(18000))
	require.NoError(t, o.RecordTransaction(paidTx("t1", 20, o.GrandTotal)))
	st := testStore(store.Policy{
		AllowDeposits:      true,
		DepositPercentages: []money.Percentage{20, 50},
	})

	opts := PayableOptions(o, st)
	require.Len(t, opts, 1)
	assert.Equal(t, OptionRemainingBalance, opts[0].Type)
	assert.Equal(t, money.Percentage(80), opts[0].Percentage)
}

func TestPayableOptionsEmptyWhenPaymentInFlightCoversOutstanding(t *testing.T) {
	o := testOrder(bwp(18000))
	require.NoError(t, o.RecordTransaction(paidTx("t1", 50, o.GrandTotal)))
	require.NoError(t, o.RecordTransaction(pendingTx("t2", 50, o.GrandTotal)))

	opts := PayableOptions(o, testStore(store.Policy{AllowInstallments: true, InstallmentPercentages: []money.Percentage{10}}))
	assert.Empty(t, opts)
}

func TestPayableOptionsEmptyWhenFullyPaid(t *testing.T) {
	o := testOrder(bwp(18000))
	require.NoError(t, o.RecordTransaction(paidTx("t1", 100, o.GrandTotal)))

	assert.Empty(t, PayableOptions(o, testStore(store.Policy{})))
}

func TestPayableOptionsEmptyForTerminalStatus(t *testing.T) {
	for _, status := range []Status{StatusCancelled, StatusCompleted} {
		o := testOrder(bwp(18000))
		o.Status = status
		assert.Empty(t, PayableOptions(o, testStore(store.Policy{})), string(status))
	}
}

func TestPayableOptionsEmptyForZeroGrandTotal(t *testing.T) {
	o := testOrder(money.Zero("BWP"))
	assert.Empty(t, PayableOptions(o, testStore(store.Policy{})))
}

func TestPayableOptionsDoesNotMutateOrder(t *testing.T) {
	o := testOrder(bwp(18000))
	before := *o
	_ = PayableOptions(o, testStore(store.Policy{AllowDeposits: true, DepositPercentages: []money.Percentage{20}}))
	assert.Equal(t, before.PaidPercentage, o.PaidPercentage)
	assert.Equal(t, before.Status, o.Status)
}

func TestCanMarkAsPaid(t *testing.T) {
	o := testOrder(bwp(18000))
	st := testStore(store.Policy{})

	assert.True(t, CanMarkAsPaid(o, Actor{ID: "m1", IsTeamMember: true}, &st))
	assert.False(t, CanMarkAsPaid(o, Actor{ID: "u1", IsCustomer: true}, &st))
	assert.False(t, CanMarkAsPaid(o, Actor{ID: "m1", IsTeamMember: true}, nil))

	zero := testOrder(money.Zero("BWP"))
	assert.False(t, CanMarkAsPaid(zero, Actor{ID: "m1", IsTeamMember: true}, &st))
}

func TestCanRequestPayment(t *testing.T) {
	o := testOrder(bwp(18000))
	st := testStore(store.Policy{})

	assert.True(t, CanRequestPayment(o, Actor{ID: "u1", IsCustomer: true}, &st))
	assert.True(t, CanRequestPayment(o, Actor{ID: "m1", IsTeamMember: true}, &st))
	assert.False(t, CanRequestPayment(o, Actor{ID: "x1"}, &st))

	// No payable options once fully paid.
	require.NoError(t, o.RecordTransaction(paidTx("t1", 100, o.GrandTotal)))
	assert.False(t, CanRequestPayment(o, Actor{ID: "u1", IsCustomer: true}, &st))
}
