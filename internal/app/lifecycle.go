package app

import (
	"context"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/clock"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/events"
)

// LifecycleEvent is an external trigger for a booking status transition.
type LifecycleEvent string

const (
	// EventDepositPaid confirms a pending booking once the deposit clears.
	EventDepositPaid LifecycleEvent = "deposit_paid"
	// EventCancel cancels a pending or confirmed booking and releases its
	// capacity.
	EventCancel LifecycleEvent = "cancel"
	// EventWeatherHold suspends a confirmed booking without releasing
	// inventory.
	EventWeatherHold LifecycleEvent = "weather_hold"
	// EventWeatherClear resumes a weather-held booking.
	EventWeatherClear LifecycleEvent = "weather_clear"
	// EventComplete marks a confirmed booking fulfilled.
	EventComplete LifecycleEvent = "complete"
	// EventNoShow marks a confirmed booking where the customer never
	// appeared. Terminal; the window was already consumed.
	EventNoShow LifecycleEvent = "no_show"
)

// transitions is the full legal state space. Anything absent is an
// InvalidTransition error, never a silent no-op, so callers can tell "already
// in that state" apart from an illegal request.
var transitions = map[domain.BookingStatus]map[LifecycleEvent]domain.BookingStatus{
	domain.BookingStatusPending: {
		EventDepositPaid: domain.BookingStatusConfirmed,
		EventCancel:      domain.BookingStatusCancelled,
	},
	domain.BookingStatusConfirmed: {
		EventCancel:      domain.BookingStatusCancelled,
		EventWeatherHold: domain.BookingStatusWeatherHold,
		EventComplete:    domain.BookingStatusCompleted,
		EventNoShow:      domain.BookingStatusNoShow,
	},
	domain.BookingStatusWeatherHold: {
		// Reversible suspend: the slot stays reserved while the business
		// decides on rescheduling.
		EventWeatherClear: domain.BookingStatusConfirmed,
		EventCancel:       domain.BookingStatusCancelled,
	},
}

// NextStatus resolves an event against the transition table without touching
// storage. Exposed so callers can pre-validate.
func NextStatus(from domain.BookingStatus, event LifecycleEvent) (domain.BookingStatus, error) {
	if to, ok := transitions[from][event]; ok {
		return to, nil
	}
	return "", &domain.InvalidTransitionError{From: from, Event: string(event)}
}

// LifecycleStore persists status transitions. The booking row is locked for
// the duration of the transition so concurrent events serialize.
type LifecycleStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetBookingForUpdate(ctx context.Context, bookingID string) (domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, booking domain.Booking) error
}

// Lifecycle applies external payment and operational events to booking
// statuses.
type Lifecycle struct {
	store LifecycleStore
	sink  events.Sink
	cache Invalidator
	clock clock.Clock
}

func NewLifecycle(store LifecycleStore, sink events.Sink, clk clock.Clock, cache Invalidator) *Lifecycle {
	return &Lifecycle{store: store, sink: sink, clock: clk, cache: cache}
}

// Transition applies one event to a booking and persists the outcome
// atomically. Cancellation releases the booking's capacity in the same
// transaction that flips the status: availability sums filter on status, so
// the committed-quantity view and the booking row can never disagree.
func (l *Lifecycle) Transition(ctx context.Context, bookingID string, event LifecycleEvent) (domain.Booking, error) {
	var (
		updated domain.Booking
		from    domain.BookingStatus
	)

	err := l.store.WithTx(ctx, func(txCtx context.Context) error {
		booking, err := l.store.GetBookingForUpdate(txCtx, bookingID)
		if err != nil {
			return err
		}
		from = booking.Status

		to, err := NextStatus(booking.Status, event)
		if err != nil {
			return err
		}

		booking.Status = to
		booking.UpdatedAt = l.clock.Now()
		if event == EventDepositPaid {
			booking.DepositPaid = true
		}
		if err := l.store.UpdateBookingStatus(txCtx, booking); err != nil {
			return err
		}

		updated = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	if event == EventCancel && l.cache != nil {
		for _, item := range updated.Items {
			l.cache.Invalidate(updated.BusinessID, item.ItemID)
		}
	}
	l.sink.BookingStatusChanged(ctx, updated, from, string(event))

	return updated, nil
}
