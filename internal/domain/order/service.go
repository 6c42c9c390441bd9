package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sechaba-labs/storefront/internal/domain/cart"
	"github.com/sechaba-labs/storefront/internal/domain/coupon"
	"github.com/sechaba-labs/storefront/internal/domain/money"
	"github.com/sechaba-labs/storefront/internal/domain/store"
)

// CheckoutRequest holds the input for turning a cart into an order.
// Customer classification is resolved by the caller (auth/session are
// external collaborators) and only threaded through to the evaluator.
type CheckoutRequest struct {
	Cart               *cart.Cart
	CustomerIsNew      bool
	CustomerIsExisting bool
}

// Service orchestrates checkout, status moves, and payment recording
// over the injected repositories. All pricing and eligibility decisions
// live in the pure domain functions it calls.
type Service struct {
	stores  store.Repository
	coupons coupon.Repository
	orders  Repository

	newID func() string
	now   func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(stores store.Repository, coupons coupon.Repository, orders Repository) *Service {
	return &Service{
		stores:  stores,
		coupons: coupons,
		orders:  orders,
		newID:   func() string { return uuid.New().String() },
		now:     time.Now,
	}
}

// Checkout freezes the cart into a Waiting order. Every uncancelled
// coupon line is re-validated against the live definition first: drift
// is recorded on the line, ineligible lines are cancelled with their
// failed clauses as reasons, and usage-limited lines consume their quota
// atomically. When anything fails after a quota was consumed, the
// consumed uses are released again, so a failed checkout never burns a
// use. ErrInsufficientQuota propagates when another checkout took the
// last use first.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	c := req.Cart
	st, err := s.stores.GetByID(ctx, c.StoreID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve store")
	}
	if err := st.Policy.Validate(); err != nil {
		return nil, err
	}

	if err := c.Recalculate(); err != nil {
		return nil, err
	}

	consumed, err := s.revalidateCoupons(ctx, c, req)
	if err != nil {
		s.releaseCoupons(ctx, consumed)
		return nil, err
	}
	// Revalidation may have cancelled coupon lines; the frozen totals
	// must not include their discounts.
	if err := c.Recalculate(); err != nil {
		s.releaseCoupons(ctx, consumed)
		return nil, err
	}

	o := New(s.newID(), c, s.now())
	if err := s.orders.Create(ctx, o); err != nil {
		s.releaseCoupons(ctx, consumed)
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// revalidateCoupons re-runs change detection and eligibility for every
// uncancelled coupon line, then consumes quota for the survivors. The
// returned ids are the coupons whose quota was consumed, including on
// the error path, so the caller can release them when no order results.
func (s *Service) revalidateCoupons(ctx context.Context, c *cart.Cart, req CheckoutRequest) (consumed []string, _ error) {
	for _, line := range c.CouponLines {
		if line.IsCancelled {
			continue
		}

		live, err := s.coupons.GetByID(ctx, line.CouponID)
		if err != nil && !errors.Is(err, coupon.ErrNotFound) {
			return consumed, errors.Wrapf(err, "load coupon %s", line.CouponID)
		}

		changes := cart.DetectCouponChanges(line, live)
		if len(changes) > 0 {
			if err := c.RecordCouponChanges(line.ID, changes); err != nil {
				return consumed, err
			}
			if c.FindCouponLine(line.ID).IsCancelled {
				continue
			}
		}

		res, evalErr := coupon.Evaluate(*live, coupon.Context{
			Now:                s.now(),
			SubTotal:           c.Totals.SubTotal,
			GrandTotal:         c.Totals.GrandTotal,
			ProductCount:       c.Totals.TotalProducts,
			QuantitySum:        c.Totals.TotalProductQuantities,
			CustomerIsNew:      req.CustomerIsNew,
			CustomerIsExisting: req.CustomerIsExisting,
			SuppliedCode:       line.Code,
		})
		if evalErr != nil || !res.Eligible {
			reason := "no longer eligible at checkout"
			if evalErr != nil {
				reason = "coupon misconfigured"
			}
			if err := c.CancelCouponLine(line.ID, reason); err != nil {
				return consumed, err
			}
			continue
		}

		if line.UsageLimited {
			// Finalization-time atomic decrement. An abandoned cart never
			// holds a reservation; the conditional update in the
			// repository is what makes concurrent exhaustion safe.
			if err := s.coupons.Consume(ctx, line.CouponID); err != nil {
				return consumed, errors.Wrapf(err, "consume coupon %s", line.CouponID)
			}
			consumed = append(consumed, line.CouponID)
		}
	}
	return consumed, nil
}

// releaseCoupons gives back quota consumed by a checkout that produced
// no order. Best effort: a failed release is logged, not propagated, so
// it never masks the error that aborted the checkout.
func (s *Service) releaseCoupons(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := s.coupons.Release(ctx, id); err != nil {
			zctx.From(ctx).Warn("releasing coupon quota",
				zap.String("coupon_id", id), zap.Error(err))
		}
	}
}

// Get loads a persisted order with its transaction history.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// PaymentOptions returns the payable options for the order under its
// store's current policy.
func (s *Service) PaymentOptions(ctx context.Context, orderID string) ([]PaymentOption, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	st, err := s.stores.GetByID(ctx, o.StoreID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve store")
	}
	return PayableOptions(o, *st), nil
}

// Transition moves a persisted order to target, enforcing the status
// machine in memory and the expected-from guard in storage.
func (s *Service) Transition(ctx context.Context, orderID string, target Status) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := o.Status
	if err := o.Transition(target); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, o.ID, from, target); err != nil {
		return nil, errors.Wrap(err, "persist status")
	}
	return o, nil
}

// RequestPayment opens a pending transaction for one of the order's
// payable options. The requested percentage must match an option exactly;
// the amount is derived from it, never supplied.
func (s *Service) RequestPayment(ctx context.Context, orderID string, pct money.Percentage, actor Actor) (*Transaction, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	st, err := s.stores.GetByID(ctx, o.StoreID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve store")
	}

	if !CanRequestPayment(o, actor, st) {
		return nil, errors.Wrap(ErrActorNotAllowed, "request payment")
	}

	var selected *PaymentOption
	for _, opt := range PayableOptions(o, *st) {
		if opt.Percentage == pct {
			selected = &opt
			break
		}
	}
	if selected == nil {
		return nil, errors.Errorf("no payable option for %d%%", pct)
	}

	tx := Transaction{
		ID:         s.newID(),
		Owner:      OwnerRef{Kind: OwnerOrder, ID: o.ID},
		Amount:     selected.Amount,
		Percentage: selected.Percentage,
		Status:     TransactionPending,
		CreatedAt:  s.now(),
	}
	if err := o.RecordTransaction(tx); err != nil {
		return nil, err
	}
	if err := s.orders.RecordTransaction(ctx, o, tx); err != nil {
		return nil, errors.Wrap(err, "persist transaction")
	}
	return &tx, nil
}

// MarkAsPaid records an immediate paid transaction for everything still
// outstanding. Only team members may do this.
func (s *Service) MarkAsPaid(ctx context.Context, orderID string, actor Actor) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	st, err := s.stores.GetByID(ctx, o.StoreID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve store")
	}

	if !CanMarkAsPaid(o, actor, st) {
		return nil, errors.Wrap(ErrActorNotAllowed, "mark as paid")
	}

	remaining := int(o.OutstandingPercentage()) - int(o.PendingPercentage)
	if remaining <= 0 {
		return nil, errors.New("nothing outstanding to mark as paid")
	}
	pct := money.MustPercentage(remaining)

	tx := Transaction{
		ID:         s.newID(),
		Owner:      OwnerRef{Kind: OwnerOrder, ID: o.ID},
		Amount:     o.GrandTotal.PercentOf(pct),
		Percentage: pct,
		Status:     TransactionPaid,
		CreatedAt:  s.now(),
	}
	if err := o.RecordTransaction(tx); err != nil {
		return nil, err
	}
	if err := s.orders.RecordTransaction(ctx, o, tx); err != nil {
		return nil, errors.Wrap(err, "persist transaction")
	}
	return o, nil
}

// ResolvePayment settles a pending transaction as Paid or Failed.
func (s *Service) ResolvePayment(ctx context.Context, orderID, txID string, target TransactionStatus) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.ResolveTransaction(txID, target); err != nil {
		return nil, err
	}
	if err := s.orders.ResolveTransaction(ctx, o, txID, target); err != nil {
		return nil, errors.Wrap(err, "persist resolution")
	}
	return o, nil
}
