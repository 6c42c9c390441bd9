// Package cache provides Redis-backed read-through decorators for the
// hot lookup paths.
package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/money"
)

// DefaultCouponTTL keeps cached coupons short-lived: the remaining usage
// quota is part of the definition and must not go stale for long.
const DefaultCouponTTL = 30 * time.Second

// CouponRepository decorates a coupon.Repository with a Redis
// read-through cache. Lookups are cached under both the id and the
// store+code key; Consume always goes to the source and drops the
// cached entry.
type CouponRepository struct {
	source coupon.Repository
	client *redis.Client
	ttl    time.Duration
	lg     *zap.Logger
}

// NewCouponRepository returns a caching decorator around source.
func NewCouponRepository(source coupon.Repository, client *redis.Client, lg *zap.Logger) *CouponRepository {
	return &CouponRepository{
		source: source,
		client: client,
		ttl:    DefaultCouponTTL,
		lg:     lg.Named("coupon_cache"),
	}
}

var _ coupon.Repository = (*CouponRepository)(nil)

// FindByCode serves a coupon from cache when possible, falling back to
// the source. Cache failures degrade to source reads.
func (r *CouponRepository) FindByCode(ctx context.Context, storeID, code string) (*coupon.Definition, error) {
	key := "coupon:code:" + storeID + ":" + code
	if def, ok := r.get(ctx, key); ok {
		return def, nil
	}
	def, err := r.source.FindByCode(ctx, storeID, code)
	if err != nil {
		return nil, err
	}
	r.set(ctx, def)
	return def, nil
}

// GetByID serves a coupon from cache when possible, falling back to the
// source.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Definition, error) {
	if def, ok := r.get(ctx, "coupon:id:"+id); ok {
		return def, nil
	}
	def, err := r.source.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.set(ctx, def)
	return def, nil
}

// Consume passes through to the source and invalidates the cached entry,
// so the decremented quota is visible to the next lookup.
func (r *CouponRepository) Consume(ctx context.Context, id string) error {
	err := r.source.Consume(ctx, id)
	r.invalidate(ctx, id)
	return err
}

// Release passes through to the source and invalidates the cached entry,
// so the restored quota is visible to the next lookup.
func (r *CouponRepository) Release(ctx context.Context, id string) error {
	err := r.source.Release(ctx, id)
	r.invalidate(ctx, id)
	return err
}

func (r *CouponRepository) invalidate(ctx context.Context, id string) {
	if err := r.client.Del(ctx, "coupon:id:"+id).Err(); err != nil {
		r.lg.Warn("invalidating cached coupon", zap.String("coupon_id", id), zap.Error(err))
	}
}

func (r *CouponRepository) get(ctx context.Context, key string) (*coupon.Definition, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.lg.Warn("reading cached coupon", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	var rec couponRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		r.lg.Warn("decoding cached coupon", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	def, err := rec.toDefinition()
	if err != nil {
		r.lg.Warn("decoding cached coupon", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return def, true
}

func (r *CouponRepository) set(ctx context.Context, def *coupon.Definition) {
	payload, err := json.Marshal(recordFrom(def))
	if err != nil {
		r.lg.Warn("encoding coupon for cache", zap.String("coupon_id", def.ID), zap.Error(err))
		return
	}
	keys := []string{"coupon:id:" + def.ID}
	if def.ActivateUsingCode {
		keys = append(keys, "coupon:code:"+def.StoreID+":"+def.Code)
	}
	for _, key := range keys {
		if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
			r.lg.Warn("writing cached coupon", zap.String("key", key), zap.Error(err))
		}
	}
}

// couponRecord is the JSON shape cached coupons travel in. Money fields
// are flattened to minor units plus the shared currency code.
type couponRecord struct {
	ID                string `json:"id"`
	StoreID           string `json:"store_id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Active            bool   `json:"active"`
	Currency          string `json:"currency"`
	DiscountType      string `json:"discount_type"`
	DiscountRate      int    `json:"discount_rate"`
	DiscountAmount    int64  `json:"discount_amount"`
	OfferFreeDelivery bool   `json:"offer_free_delivery"`

	ActivateUsingCode bool   `json:"activate_using_code"`
	Code              string `json:"code"`

	ActivateUsingStartDate bool      `json:"activate_using_start_date"`
	StartDate              time.Time `json:"start_date"`
	ActivateUsingEndDate   bool      `json:"activate_using_end_date"`
	EndDate                time.Time `json:"end_date"`

	ActivateUsingHoursOfDay   bool  `json:"activate_using_hours_of_day"`
	HoursOfDay                []int `json:"hours_of_day,omitempty"`
	ActivateUsingDaysOfWeek   bool  `json:"activate_using_days_of_week"`
	DaysOfWeek                []int `json:"days_of_week,omitempty"`
	ActivateUsingDaysOfMonth  bool  `json:"activate_using_days_of_month"`
	DaysOfMonth               []int `json:"days_of_month,omitempty"`
	ActivateUsingMonthsOfYear bool  `json:"activate_using_months_of_year"`
	MonthsOfYear              []int `json:"months_of_year,omitempty"`

	ActivateUsingMinimumProducts bool `json:"activate_using_minimum_products"`
	MinimumProducts              int  `json:"minimum_products"`
	ActivateUsingMinimumQuantity bool `json:"activate_using_minimum_quantity"`
	MinimumQuantity              int  `json:"minimum_quantity"`

	ActivateUsingMinimumGrandTotal bool  `json:"activate_using_minimum_grand_total"`
	MinimumGrandTotal              int64 `json:"minimum_grand_total"`

	ActivateUsingNewCustomer      bool `json:"activate_using_new_customer"`
	ActivateUsingExistingCustomer bool `json:"activate_using_existing_customer"`

	ActivateUsingUsageLimit bool `json:"activate_using_usage_limit"`
	RemainingQuantity       int  `json:"remaining_quantity"`
}

func recordFrom(def *coupon.Definition) couponRecord {
	rec := couponRecord{
		ID:                def.ID,
		StoreID:           def.StoreID,
		Name:              def.Name,
		Description:       def.Description,
		Active:            def.Active,
		Currency:          def.Discount.Amount.Currency(),
		DiscountType:      string(def.Discount.Type),
		DiscountRate:      def.Discount.Rate.Int(),
		DiscountAmount:    def.Discount.Amount.MinorUnits(),
		OfferFreeDelivery: def.OfferFreeDelivery,

		ActivateUsingCode: def.ActivateUsingCode,
		Code:              def.Code,

		ActivateUsingStartDate: def.ActivateUsingStartDate,
		StartDate:              def.StartDate,
		ActivateUsingEndDate:   def.ActivateUsingEndDate,
		EndDate:                def.EndDate,

		ActivateUsingHoursOfDay:   def.ActivateUsingHoursOfDay,
		HoursOfDay:                def.HoursOfDay,
		ActivateUsingDaysOfWeek:   def.ActivateUsingDaysOfWeek,
		ActivateUsingDaysOfMonth:  def.ActivateUsingDaysOfMonth,
		DaysOfMonth:               def.DaysOfMonth,
		ActivateUsingMonthsOfYear: def.ActivateUsingMonthsOfYear,

		ActivateUsingMinimumProducts: def.ActivateUsingMinimumProducts,
		MinimumProducts:              def.MinimumProducts,
		ActivateUsingMinimumQuantity: def.ActivateUsingMinimumQuantity,
		MinimumQuantity:              def.MinimumQuantity,

		ActivateUsingMinimumGrandTotal: def.ActivateUsingMinimumGrandTotal,
		MinimumGrandTotal:              def.MinimumGrandTotal.MinorUnits(),

		ActivateUsingNewCustomer:      def.ActivateUsingNewCustomer,
		ActivateUsingExistingCustomer: def.ActivateUsingExistingCustomer,

		ActivateUsingUsageLimit: def.ActivateUsingUsageLimit,
		RemainingQuantity:       def.RemainingQuantity,
	}
	if rec.Currency == "" {
		rec.Currency = def.MinimumGrandTotal.Currency()
	}
	for _, d := range def.DaysOfWeek {
		rec.DaysOfWeek = append(rec.DaysOfWeek, int(d))
	}
	for _, m := range def.MonthsOfYear {
		rec.MonthsOfYear = append(rec.MonthsOfYear, int(m))
	}
	return rec
}

func (rec couponRecord) toDefinition() (*coupon.Definition, error) {
	rate, err := money.NewPercentage(rec.DiscountRate)
	if err != nil {
		return nil, err
	}
	def := &coupon.Definition{
		ID:          rec.ID,
		StoreID:     rec.StoreID,
		Name:        rec.Name,
		Description: rec.Description,
		Active:      rec.Active,
		Discount: coupon.Discount{
			Type:   coupon.DiscountType(rec.DiscountType),
			Rate:   rate,
			Amount: money.New(rec.DiscountAmount, rec.Currency),
		},
		OfferFreeDelivery: rec.OfferFreeDelivery,

		ActivateUsingCode: rec.ActivateUsingCode,
		Code:              rec.Code,

		ActivateUsingStartDate: rec.ActivateUsingStartDate,
		StartDate:              rec.StartDate,
		ActivateUsingEndDate:   rec.ActivateUsingEndDate,
		EndDate:                rec.EndDate,

		ActivateUsingHoursOfDay:   rec.ActivateUsingHoursOfDay,
		HoursOfDay:                rec.HoursOfDay,
		ActivateUsingDaysOfWeek:   rec.ActivateUsingDaysOfWeek,
		ActivateUsingDaysOfMonth:  rec.ActivateUsingDaysOfMonth,
		DaysOfMonth:               rec.DaysOfMonth,
		ActivateUsingMonthsOfYear: rec.ActivateUsingMonthsOfYear,

		ActivateUsingMinimumProducts: rec.ActivateUsingMinimumProducts,
		MinimumProducts:              rec.MinimumProducts,
		ActivateUsingMinimumQuantity: rec.ActivateUsingMinimumQuantity,
		MinimumQuantity:              rec.MinimumQuantity,

		ActivateUsingMinimumGrandTotal: rec.ActivateUsingMinimumGrandTotal,
		MinimumGrandTotal:              money.New(rec.MinimumGrandTotal, rec.Currency),

		ActivateUsingNewCustomer:      rec.ActivateUsingNewCustomer,
		ActivateUsingExistingCustomer: rec.ActivateUsingExistingCustomer,

		ActivateUsingUsageLimit: rec.ActivateUsingUsageLimit,
		RemainingQuantity:       rec.RemainingQuantity,
	}
	for _, d := range rec.DaysOfWeek {
		def.DaysOfWeek = append(def.DaysOfWeek, time.Weekday(d))
	}
	for _, m := range rec.MonthsOfYear {
		def.MonthsOfYear = append(def.MonthsOfYear, time.Month(m))
	}
	return def, nil
}
