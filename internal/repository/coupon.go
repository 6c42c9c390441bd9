package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/money"
)

const (
	couponColumns = `c.id, c.store_id, c.name, c.description, c.active,
		c.discount_type, c.discount_rate, c.discount_amount, c.offer_free_delivery,
		c.activate_using_code, c.code,
		c.activate_using_start_date, c.start_date,
		c.activate_using_end_date, c.end_date,
		c.activate_using_hours_of_day, c.hours_of_day,
		c.activate_using_days_of_week, c.days_of_week,
		c.activate_using_days_of_month, c.days_of_month,
		c.activate_using_months_of_year, c.months_of_year,
		c.activate_using_minimum_products, c.minimum_products,
		c.activate_using_minimum_quantity, c.minimum_quantity,
		c.activate_using_minimum_grand_total, c.minimum_grand_total,
		c.activate_using_new_customer, c.activate_using_existing_customer,
		c.activate_using_usage_limit, c.remaining_quantity, s.currency`

	findCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons c JOIN stores s ON s.id = c.store_id
		WHERE c.store_id = $1 AND c.activate_using_code AND c.code = $2`

	getCouponByIDSQL = `SELECT ` + couponColumns + `
		FROM coupons c JOIN stores s ON s.id = c.store_id
		WHERE c.id = $1`

	// The quota check and decrement are one conditional update, so two
	// concurrent consumers of the last use can never both succeed.
	consumeCouponSQL = `UPDATE coupons
		SET remaining_quantity = remaining_quantity - 1
		WHERE id = $1 AND activate_using_usage_limit AND remaining_quantity > 0`

	couponUsageLimitedSQL = `SELECT activate_using_usage_limit FROM coupons WHERE id = $1`

	releaseCouponSQL = `UPDATE coupons
		SET remaining_quantity = remaining_quantity + 1
		WHERE id = $1 AND activate_using_usage_limit`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a code-activated coupon by its exact code within a
// store. Codes match case-sensitively. Returns coupon.ErrNotFound when no
// such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, storeID, code string) (*coupon.Definition, error) {
	rows, err := r.pool.Query(ctx, findCouponByCodeSQL, storeID, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	def, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &def, nil
}

// GetByID loads a coupon definition. Returns coupon.ErrNotFound when no
// row exists.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Definition, error) {
	rows, err := r.pool.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}
	def, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %q: %w", id, err)
	}
	return &def, nil
}

// Consume takes one use off a usage-limited coupon. A no-op for coupons
// without a usage limit; coupon.ErrInsufficientQuota when the quota is
// already exhausted.
func (r *CouponRepository) Consume(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, consumeCouponSQL, id)
	if err != nil {
		return fmt.Errorf("consuming coupon %q: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows: either the coupon is gone, has no usage limit (nothing to
	// consume), or the quota ran out.
	var usageLimited bool
	err = r.pool.QueryRow(ctx, couponUsageLimitedSQL, id).Scan(&usageLimited)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return coupon.ErrNotFound
	case err != nil:
		return fmt.Errorf("consuming coupon %q: %w", id, err)
	case usageLimited:
		return coupon.ErrInsufficientQuota
	default:
		return nil
	}
}

// Release gives back one quota use taken by Consume, for checkouts that
// failed after consuming. A no-op for coupons without a usage limit and
// for coupons that no longer exist.
func (r *CouponRepository) Release(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, releaseCouponSQL, id); err != nil {
		return fmt.Errorf("releasing coupon %q: %w", id, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Definition, error) {
	var (
		def            coupon.Definition
		discountType   string
		discountRate   int32
		discountAmount decimal.Decimal
		startDate      *time.Time
		endDate        *time.Time
		hoursOfDay     []int32
		daysOfWeek     []int32
		daysOfMonth    []int32
		monthsOfYear   []int32
		minGrandTotal  decimal.Decimal
		currency       string
	)
	err := row.Scan(
		&def.ID, &def.StoreID, &def.Name, &def.Description, &def.Active,
		&discountType, &discountRate, &discountAmount, &def.OfferFreeDelivery,
		&def.ActivateUsingCode, &def.Code,
		&def.ActivateUsingStartDate, &startDate,
		&def.ActivateUsingEndDate, &endDate,
		&def.ActivateUsingHoursOfDay, &hoursOfDay,
		&def.ActivateUsingDaysOfWeek, &daysOfWeek,
		&def.ActivateUsingDaysOfMonth, &daysOfMonth,
		&def.ActivateUsingMonthsOfYear, &monthsOfYear,
		&def.ActivateUsingMinimumProducts, &def.MinimumProducts,
		&def.ActivateUsingMinimumQuantity, &def.MinimumQuantity,
		&def.ActivateUsingMinimumGrandTotal, &minGrandTotal,
		&def.ActivateUsingNewCustomer, &def.ActivateUsingExistingCustomer,
		&def.ActivateUsingUsageLimit, &def.RemainingQuantity, &currency,
	)
	if err != nil {
		return coupon.Definition{}, err
	}

	rate, err := money.NewPercentage(int(discountRate))
	if err != nil {
		return coupon.Definition{}, fmt.Errorf("coupon %q discount rate: %w", def.ID, err)
	}
	def.Discount = coupon.Discount{
		Type:   coupon.DiscountType(discountType),
		Rate:   rate,
		Amount: money.FromDecimal(discountAmount, currency),
	}
	def.MinimumGrandTotal = money.FromDecimal(minGrandTotal, currency)
	if startDate != nil {
		def.StartDate = *startDate
	}
	if endDate != nil {
		def.EndDate = *endDate
	}
	def.HoursOfDay = toInts(hoursOfDay)
	for _, d := range daysOfWeek {
		def.DaysOfWeek = append(def.DaysOfWeek, time.Weekday(d))
	}
	def.DaysOfMonth = toInts(daysOfMonth)
	for _, m := range monthsOfYear {
		def.MonthsOfYear = append(def.MonthsOfYear, time.Month(m))
	}
	return def, nil
}

func toInts(raw []int32) []int {
	if len(raw) == 0 {
		return nil
	}
	out := make([]int, len(raw))
	for i, v := range raw {
		out[i] = int(v)
	}
	return out
}
