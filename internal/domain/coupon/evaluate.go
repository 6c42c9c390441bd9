package coupon

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sechaba-labs/storefront/internal/domain/money"
)

// Clause names reported in EligibilityResult.FailedClauses.
const (
	ClauseInactive          = "inactive"
	ClauseCode              = "code"
	ClauseStartDate         = "start_date"
	ClauseEndDate           = "end_date"
	ClauseHoursOfDay        = "hours_of_day"
	ClauseDaysOfWeek        = "days_of_week"
	ClauseDaysOfMonth       = "days_of_month"
	ClauseMonthsOfYear      = "months_of_year"
	ClauseMinimumProducts   = "minimum_products"
	ClauseMinimumQuantity   = "minimum_quantity"
	ClauseMinimumGrandTotal = "minimum_grand_total"
	ClauseNewCustomer       = "new_customer"
	ClauseExistingCustomer  = "existing_customer"
	ClauseUsageLimit        = "usage_limit"
)

// Context carries everything the evaluator may inspect about the cart
// and customer. Customer classification is derived by the caller; the
// evaluator never reaches into ambient state.
type Context struct {
	Now                time.Time
	SubTotal           money.Money
	GrandTotal         money.Money
	ProductCount       int
	QuantitySum        int
	CustomerIsNew      bool
	CustomerIsExisting bool
	SuppliedCode       string
}

// EligibilityResult is the outcome of evaluating a definition against a
// cart context. Instructions are produced for every switched-on clause
// regardless of pass or fail; they are the customer-facing "how to unlock
// this offer" copy.
type EligibilityResult struct {
	Eligible      bool
	FailedClauses []string
	Instructions  []string
}

// clause is one switched-on activation condition. validate reports
// malformed parameters, check tests the cart context, instruction renders
// the customer-facing sentence.
type clause struct {
	name        string
	validate    func() *ConfigurationError
	check       func(Context) bool
	instruction func() string
}

// Evaluate decides whether the cart described by ctx qualifies for the
// coupon. Every switched-on clause is ANDed; with no switches on the
// coupon is an unconditional offer and the result is eligible. A
// malformed clause fails closed: the result is ineligible and the first
// ConfigurationError is returned alongside it, with the instruction
// sentences for every switched-on clause still fully rendered.
func Evaluate(def Definition, ctx Context) (EligibilityResult, error) {
	res := EligibilityResult{Eligible: true}

	if !def.Active {
		res.Eligible = false
		res.FailedClauses = append(res.FailedClauses, ClauseInactive)
	}

	var cfgErr *ConfigurationError
	for _, c := range activeClauses(def) {
		res.Instructions = append(res.Instructions, c.instruction())

		if err := c.validate(); err != nil {
			res.Eligible = false
			res.FailedClauses = append(res.FailedClauses, c.name)
			if cfgErr == nil {
				cfgErr = err
			}
			continue
		}

		if !c.check(ctx) {
			res.Eligible = false
			res.FailedClauses = append(res.FailedClauses, c.name)
		}
	}

	if cfgErr != nil {
		return res, cfgErr
	}
	return res, nil
}

// activeClauses returns the switched-on clauses of def in their fixed
// evaluation order. Parameters of switched-off clauses are never read.
func activeClauses(def Definition) []clause {
	var cs []clause

	if def.ActivateUsingCode {
		cs = append(cs, clause{
			name: ClauseCode,
			validate: func() *ConfigurationError {
				if def.Code == "" {
					return &ConfigurationError{Clause: ClauseCode, Reason: "empty code"}
				}
				return nil
			},
			// Case-sensitive exact match. The code is one AND'd clause
			// like any other, not a bypass of the remaining clauses.
			check:       func(ctx Context) bool { return ctx.SuppliedCode == def.Code },
			instruction: func() string { return fmt.Sprintf("Use the code %q when placing your order.", def.Code) },
		})
	}

	if def.ActivateUsingStartDate {
		cs = append(cs, clause{
			name: ClauseStartDate,
			validate: func() *ConfigurationError {
				if def.StartDate.IsZero() {
					return &ConfigurationError{Clause: ClauseStartDate, Reason: "zero start date"}
				}
				return nil
			},
			check: func(ctx Context) bool { return !ctx.Now.Before(def.StartDate) },
			instruction: func() string {
				return fmt.Sprintf("Offer starts on %s.", def.StartDate.Format("02 Jan 2006"))
			},
		})
	}

	if def.ActivateUsingEndDate {
		cs = append(cs, clause{
			name: ClauseEndDate,
			validate: func() *ConfigurationError {
				if def.EndDate.IsZero() {
					return &ConfigurationError{Clause: ClauseEndDate, Reason: "zero end date"}
				}
				if def.ActivateUsingStartDate && def.EndDate.Before(def.StartDate) {
					return &ConfigurationError{Clause: ClauseEndDate, Reason: "end date before start date"}
				}
				return nil
			},
			check: func(ctx Context) bool { return !ctx.Now.After(def.EndDate) },
			instruction: func() string {
				return fmt.Sprintf("Offer ends on %s.", def.EndDate.Format("02 Jan 2006"))
			},
		})
	}

	if def.ActivateUsingHoursOfDay {
		cs = append(cs, clause{
			name: ClauseHoursOfDay,
			validate: func() *ConfigurationError {
				if len(def.HoursOfDay) == 0 {
					return &ConfigurationError{Clause: ClauseHoursOfDay, Reason: "empty hours set"}
				}
				for _, h := range def.HoursOfDay {
					if h < 0 || h > 23 {
						return &ConfigurationError{Clause: ClauseHoursOfDay, Reason: fmt.Sprintf("hour %d out of range", h)}
					}
				}
				return nil
			},
			check: func(ctx Context) bool { return containsInt(def.HoursOfDay, ctx.Now.Hour()) },
			instruction: func() string {
				return fmt.Sprintf("Order during these hours: %s.", joinHours(def.HoursOfDay))
			},
		})
	}

	if def.ActivateUsingDaysOfWeek {
		cs = append(cs, clause{
			name: ClauseDaysOfWeek,
			validate: func() *ConfigurationError {
				if len(def.DaysOfWeek) == 0 {
					return &ConfigurationError{Clause: ClauseDaysOfWeek, Reason: "empty days set"}
				}
				for _, d := range def.DaysOfWeek {
					if d < time.Sunday || d > time.Saturday {
						return &ConfigurationError{Clause: ClauseDaysOfWeek, Reason: fmt.Sprintf("weekday %d out of range", d)}
					}
				}
				return nil
			},
			check: func(ctx Context) bool {
				for _, d := range def.DaysOfWeek {
					if ctx.Now.Weekday() == d {
						return true
					}
				}
				return false
			},
			instruction: func() string {
				return fmt.Sprintf("Order on one of these days: %s.", joinWeekdays(def.DaysOfWeek))
			},
		})
	}

	if def.ActivateUsingDaysOfMonth {
		cs = append(cs, clause{
			name: ClauseDaysOfMonth,
			validate: func() *ConfigurationError {
				if len(def.DaysOfMonth) == 0 {
					return &ConfigurationError{Clause: ClauseDaysOfMonth, Reason: "empty days set"}
				}
				for _, d := range def.DaysOfMonth {
					if d < 1 || d > 31 {
						return &ConfigurationError{Clause: ClauseDaysOfMonth, Reason: fmt.Sprintf("day %d out of range", d)}
					}
				}
				return nil
			},
			check: func(ctx Context) bool { return containsInt(def.DaysOfMonth, ctx.Now.Day()) },
			instruction: func() string {
				return fmt.Sprintf("Order on one of these days of the month: %s.", joinInts(def.DaysOfMonth))
			},
		})
	}

	if def.ActivateUsingMonthsOfYear {
		cs = append(cs, clause{
			name: ClauseMonthsOfYear,
			validate: func() *ConfigurationError {
				if len(def.MonthsOfYear) == 0 {
					return &ConfigurationError{Clause: ClauseMonthsOfYear, Reason: "empty months set"}
				}
				for _, m := range def.MonthsOfYear {
					if m < time.January || m > time.December {
						return &ConfigurationError{Clause: ClauseMonthsOfYear, Reason: fmt.Sprintf("month %d out of range", m)}
					}
				}
				return nil
			},
			check: func(ctx Context) bool {
				for _, m := range def.MonthsOfYear {
					if ctx.Now.Month() == m {
						return true
					}
				}
				return false
			},
			instruction: func() string {
				return fmt.Sprintf("Order during: %s.", joinMonths(def.MonthsOfYear))
			},
		})
	}

	if def.ActivateUsingMinimumProducts {
		cs = append(cs, clause{
			name: ClauseMinimumProducts,
			validate: func() *ConfigurationError {
				if def.MinimumProducts <= 0 {
					return &ConfigurationError{Clause: ClauseMinimumProducts, Reason: "non-positive minimum"}
				}
				return nil
			},
			check: func(ctx Context) bool { return ctx.ProductCount >= def.MinimumProducts },
			instruction: func() string {
				return fmt.Sprintf("Add at least %d different products to your cart.", def.MinimumProducts)
			},
		})
	}

	if def.ActivateUsingMinimumQuantity {
		cs = append(cs, clause{
			name: ClauseMinimumQuantity,
			validate: func() *ConfigurationError {
				if def.MinimumQuantity <= 0 {
					return &ConfigurationError{Clause: ClauseMinimumQuantity, Reason: "non-positive minimum"}
				}
				return nil
			},
			check: func(ctx Context) bool { return ctx.QuantitySum >= def.MinimumQuantity },
			instruction: func() string {
				return fmt.Sprintf("Order at least %d items in total.", def.MinimumQuantity)
			},
		})
	}

	if def.ActivateUsingMinimumGrandTotal {
		cs = append(cs, clause{
			name: ClauseMinimumGrandTotal,
			validate: func() *ConfigurationError {
				if !def.MinimumGrandTotal.IsPositive() {
					return &ConfigurationError{Clause: ClauseMinimumGrandTotal, Reason: "non-positive threshold"}
				}
				return nil
			},
			check: func(ctx Context) bool {
				c, err := ctx.GrandTotal.Cmp(def.MinimumGrandTotal)
				if err != nil {
					// Threshold configured in a different currency than
					// the cart trades in: fail closed.
					return false
				}
				return c >= 0
			},
			instruction: func() string {
				return fmt.Sprintf("Spend at least %s.", def.MinimumGrandTotal)
			},
		})
	}

	if def.ActivateUsingNewCustomer {
		cs = append(cs, clause{
			name:        ClauseNewCustomer,
			validate:    func() *ConfigurationError { return nil },
			check:       func(ctx Context) bool { return ctx.CustomerIsNew },
			instruction: func() string { return "Offer available to new customers only." },
		})
	}

	if def.ActivateUsingExistingCustomer {
		cs = append(cs, clause{
			name:        ClauseExistingCustomer,
			validate:    func() *ConfigurationError { return nil },
			check:       func(ctx Context) bool { return ctx.CustomerIsExisting },
			instruction: func() string { return "Offer available to returning customers only." },
		})
	}

	if def.ActivateUsingUsageLimit {
		cs = append(cs, clause{
			name: ClauseUsageLimit,
			validate: func() *ConfigurationError {
				if def.RemainingQuantity < 0 {
					return &ConfigurationError{Clause: ClauseUsageLimit, Reason: "negative remaining quantity"}
				}
				return nil
			},
			// Evaluation only reads the counter. Decrementing happens
			// atomically at consumption time via Repository.Consume.
			check:       func(Context) bool { return def.RemainingQuantity > 0 },
			instruction: func() string { return fmt.Sprintf("Limited offer: only %d left.", def.RemainingQuantity) },
		})
	}

	return cs
}

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func joinInts(vs []int) string {
	sorted := append([]int(nil), vs...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}

func joinHours(vs []int) string {
	sorted := append([]int(nil), vs...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = fmt.Sprintf("%02d:00", v)
	}
	return strings.Join(parts, ", ")
}

func joinWeekdays(vs []time.Weekday) string {
	sorted := append([]time.Weekday(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func joinMonths(vs []time.Month) string {
	sorted := append([]time.Month(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
