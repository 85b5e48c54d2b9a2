package app

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/clock"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/events"
)

// LedgerStore is the transactional boundary the ledger commits through.
// WithCommitTx must run fn at an isolation level that prevents write skew
// (serializable); queries issued with the fn's context run inside that
// transaction.
type LedgerStore interface {
	WithCommitTx(ctx context.Context, fn func(ctx context.Context) error) error
	CommittedQuantity(ctx context.Context, businessID, itemID string, w domain.TimeWindow) (int, error)
	CreateBooking(ctx context.Context, booking domain.Booking) error
	IncrementCouponUse(ctx context.Context, couponID string) error
}

// Invalidator drops cached availability for an item after its committed state
// changed.
type Invalidator interface {
	Invalidate(businessID, itemID string)
}

const defaultMaxCommitAttempts = 3

// Ledger is the only component that creates persisted bookings. Planning is
// advisory; the ledger closes the check-then-act race by re-validating every
// line inside a serializable transaction, and retries lost races with a
// bounded, jittered replan-recommit loop.
type Ledger struct {
	store       LedgerStore
	planner     *Planner
	sink        events.Sink
	cache       Invalidator
	clock       clock.Clock
	maxAttempts int
}

type LedgerOption func(*Ledger)

// WithMaxCommitAttempts bounds the replan-recommit loop.
func WithMaxCommitAttempts(n int) LedgerOption {
	return func(l *Ledger) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithCacheInvalidator wires the advisory cache so successful commits drop
// stale per-item views.
func WithCacheInvalidator(inv Invalidator) LedgerOption {
	return func(l *Ledger) {
		l.cache = inv
	}
}

func NewLedger(store LedgerStore, planner *Planner, sink events.Sink, clk clock.Clock, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:       store,
		planner:     planner,
		sink:        sink,
		clock:       clk,
		maxAttempts: defaultMaxCommitAttempts,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// commitConflict is the internal retryable signal: re-validation inside the
// transaction found the planned capacity already consumed.
type commitConflict struct {
	rejections []domain.Rejection
}

func (e *commitConflict) Error() string {
	return "planned capacity consumed by a concurrent commit"
}

// Commit plans and atomically persists a booking. On a lost race it replans
// against fresh state and recommits, up to the attempt bound, then surfaces
// *domain.ConflictError. Infeasibility and policy violations are never
// retried.
func (l *Ledger) Commit(ctx context.Context, req domain.BookingRequest) (domain.Booking, error) {
	attempts := 0
	var lastRejections []domain.Rejection

	operation := func() (domain.Booking, error) {
		attempts++

		plan, err := l.planner.PlanBooking(ctx, req)
		if err != nil {
			return domain.Booking{}, backoff.Permanent(err)
		}

		booking := l.buildBooking(plan)
		err = l.store.WithCommitTx(ctx, func(txCtx context.Context) error {
			rejections, err := l.revalidate(txCtx, plan)
			if err != nil {
				return err
			}
			if len(rejections) > 0 {
				return &commitConflict{rejections: rejections}
			}
			if err := l.store.CreateBooking(txCtx, booking); err != nil {
				return err
			}
			if plan.Quote.CouponApplied && plan.Coupon != nil {
				return l.store.IncrementCouponUse(txCtx, plan.Coupon.ID)
			}
			return nil
		})
		if err != nil {
			var conflict *commitConflict
			if errors.As(err, &conflict) {
				lastRejections = conflict.rejections
				return domain.Booking{}, err
			}
			if errors.Is(err, domain.ErrConcurrentUpdate) {
				return domain.Booking{}, err
			}
			return domain.Booking{}, backoff.Permanent(err)
		}
		return booking, nil
	}

	booking, err := backoff.RetryWithData(operation, l.newBackOff(ctx))
	if err != nil {
		var conflict *commitConflict
		if errors.As(err, &conflict) || errors.Is(err, domain.ErrConcurrentUpdate) {
			return domain.Booking{}, &domain.ConflictError{Rejections: lastRejections, Attempts: attempts}
		}
		return domain.Booking{}, err
	}

	if l.cache != nil {
		for _, item := range booking.Items {
			l.cache.Invalidate(booking.BusinessID, item.ItemID)
		}
	}
	l.sink.BookingCreated(ctx, booking)

	return booking, nil
}

// revalidate re-runs the feasibility check against current committed state,
// inside the commit transaction.
func (l *Ledger) revalidate(ctx context.Context, plan Plan) ([]domain.Rejection, error) {
	eventWindow := plan.Request.EventWindow()
	var rejections []domain.Rejection
	for _, line := range plan.Lines {
		committed, err := l.store.CommittedQuantity(ctx, plan.Request.BusinessID, line.Item.ID, eventWindow)
		if err != nil {
			return nil, err
		}
		if committed+line.Quantity > line.Item.QuantityOwned {
			rejections = append(rejections, domain.Rejection{
				ItemID:    line.Item.ID,
				Reason:    domain.RejectInsufficientCapacity,
				Requested: line.Quantity,
				Available: line.Item.QuantityOwned - committed,
			})
		}
	}
	return rejections, nil
}

func (l *Ledger) buildBooking(plan Plan) domain.Booking {
	now := l.clock.Now()
	req := plan.Request

	booking := domain.Booking{
		ID:            uuid.NewString(),
		BusinessID:    req.BusinessID,
		CustomerID:    req.CustomerID,
		Status:        domain.BookingStatusPending,
		EventDate:     req.EventDate.UTC(),
		StartTime:     req.StartTime.UTC(),
		EndTime:       req.EndTime.UTC(),
		Subtotal:      plan.Quote.Subtotal,
		DiscountTotal: plan.Quote.Discount,
		TaxRate:       plan.Quote.TaxRate,
		TaxAmount:     plan.Quote.TaxAmount,
		DepositAmount: plan.Quote.DepositAmount,
		TotalAmount:   plan.Quote.Total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if plan.Quote.CouponApplied {
		booking.CouponCode = req.CouponCode
	}
	for _, line := range plan.Lines {
		booking.Items = append(booking.Items, domain.BookingItem{
			ID:        uuid.NewString(),
			BookingID: booking.ID,
			ItemID:    line.Item.ID,
			Quantity:  line.Quantity,
			UnitPrice: line.Item.UnitPrice,
		})
	}
	return booking
}

func (l *Ledger) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 25 * time.Millisecond
	bo.RandomizationFactor = 0.5
	bo.MaxInterval = 500 * time.Millisecond
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(l.maxAttempts-1)), ctx)
}
