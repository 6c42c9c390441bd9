package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sechaba-labs/storefront/internal/domain/money"
	"github.com/sechaba-labs/storefront/internal/domain/store"
)

const (
	getStoreByIDSQL = `SELECT id, name, currency, delivery_fee, allow_free_delivery,
		allow_deposits, deposit_percentages, allow_installments, installment_percentages
		FROM stores WHERE id = $1`

	isTeamMemberSQL = `SELECT EXISTS (
		SELECT 1 FROM store_team_members WHERE store_id = $1 AND user_id = $2)`
)

var _ store.Repository = (*StoreRepository)(nil)

// StoreRepository implements store.Repository backed by PostgreSQL.
type StoreRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository returns a StoreRepository that uses the given pool.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

// GetByID loads a store with its payment policy. Returns store.ErrNotFound
// when no row exists.
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*store.Store, error) {
	rows, err := r.pool.Query(ctx, getStoreByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting store %q: %w", id, err)
	}

	st, err := pgx.CollectExactlyOneRow(rows, scanStore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("getting store %q: %w", id, err)
	}
	return &st, nil
}

// IsTeamMember reports whether userID has joined the store's team.
func (r *StoreRepository) IsTeamMember(ctx context.Context, storeID, userID string) (bool, error) {
	var member bool
	err := r.pool.QueryRow(ctx, isTeamMemberSQL, storeID, userID).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("checking team membership for %q in store %q: %w", userID, storeID, err)
	}
	return member, nil
}

func scanStore(row pgx.CollectableRow) (store.Store, error) {
	var (
		st           store.Store
		deliveryFee  decimal.Decimal
		deposits     []int32
		installments []int32
	)
	err := row.Scan(
		&st.ID, &st.Name, &st.Currency, &deliveryFee, &st.AllowFreeDelivery,
		&st.Policy.AllowDeposits, &deposits,
		&st.Policy.AllowInstallments, &installments,
	)
	if err != nil {
		return store.Store{}, err
	}
	st.DeliveryFee = money.FromDecimal(deliveryFee, st.Currency)
	if st.Policy.DepositPercentages, err = toPercentages(deposits); err != nil {
		return store.Store{}, fmt.Errorf("store %q deposit percentages: %w", st.ID, err)
	}
	if st.Policy.InstallmentPercentages, err = toPercentages(installments); err != nil {
		return store.Store{}, fmt.Errorf("store %q installment percentages: %w", st.ID, err)
	}
	return st, nil
}

func toPercentages(raw []int32) ([]money.Percentage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]money.Percentage, 0, len(raw))
	for _, v := range raw {
		p, err := money.NewPercentage(int(v))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
