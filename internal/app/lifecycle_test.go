package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/clock"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

func TestNextStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from  domain.BookingStatus
		event LifecycleEvent
		to    domain.BookingStatus
		ok    bool
	}{
		{domain.BookingStatusPending, EventDepositPaid, domain.BookingStatusConfirmed, true},
		{domain.BookingStatusPending, EventCancel, domain.BookingStatusCancelled, true},
		{domain.BookingStatusPending, EventComplete, "", false},
		{domain.BookingStatusPending, EventWeatherHold, "", false},
		{domain.BookingStatusConfirmed, EventCancel, domain.BookingStatusCancelled, true},
		{domain.BookingStatusConfirmed, EventWeatherHold, domain.BookingStatusWeatherHold, true},
		{domain.BookingStatusConfirmed, EventComplete, domain.BookingStatusCompleted, true},
		{domain.BookingStatusConfirmed, EventNoShow, domain.BookingStatusNoShow, true},
		{domain.BookingStatusConfirmed, EventDepositPaid, "", false},
		{domain.BookingStatusWeatherHold, EventWeatherClear, domain.BookingStatusConfirmed, true},
		{domain.BookingStatusWeatherHold, EventCancel, domain.BookingStatusCancelled, true},
		{domain.BookingStatusWeatherHold, EventComplete, "", false},
		{domain.BookingStatusCancelled, EventDepositPaid, "", false},
		{domain.BookingStatusCancelled, EventCancel, "", false},
		{domain.BookingStatusCompleted, EventCancel, "", false},
		{domain.BookingStatusNoShow, EventCancel, "", false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"/"+string(tc.event), func(t *testing.T) {
			to, err := NextStatus(tc.from, tc.event)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.to, to)
				return
			}
			var invalid *domain.InvalidTransitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tc.from, invalid.From)
		})
	}
}

func TestLifecycle_Transition(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	booking := domain.Booking{
		ID:         "bk-1",
		BusinessID: "biz-1",
		Status:     domain.BookingStatusPending,
		StartTime:  time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC),
		Items:      []domain.BookingItem{{ItemID: "item-1", Quantity: 1}},
	}

	setup := func(b domain.Booking) (*Lifecycle, *fakeStore, *recordingSink, *recordingInvalidator) {
		store := newFakeStore()
		store.bookings[b.ID] = b
		sink := &recordingSink{}
		inv := &recordingInvalidator{}
		return NewLifecycle(store, sink, clock.NewFixed(now), inv), store, sink, inv
	}

	t.Run("deposit paid confirms and flags", func(t *testing.T) {
		lifecycle, store, sink, inv := setup(booking)

		updated, err := lifecycle.Transition(context.Background(), booking.ID, EventDepositPaid)

		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusConfirmed, updated.Status)
		assert.True(t, updated.DepositPaid)
		assert.Equal(t, now, updated.UpdatedAt)
		assert.Equal(t, domain.BookingStatusConfirmed, store.bookings[booking.ID].Status)
		assert.Equal(t, []string{string(EventDepositPaid)}, sink.events)
		// Confirming does not change committed capacity, so nothing to drop.
		assert.Empty(t, inv.items)
	})

	t.Run("cancel invalidates cached availability", func(t *testing.T) {
		confirmed := booking
		confirmed.Status = domain.BookingStatusConfirmed
		lifecycle, store, _, inv := setup(confirmed)

		updated, err := lifecycle.Transition(context.Background(), booking.ID, EventCancel)

		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, updated.Status)
		assert.False(t, store.bookings[booking.ID].Status.HoldsCapacity())
		assert.Equal(t, []string{"item-1"}, inv.items)
	})

	t.Run("weather hold keeps capacity reserved", func(t *testing.T) {
		confirmed := booking
		confirmed.Status = domain.BookingStatusConfirmed
		lifecycle, store, _, inv := setup(confirmed)

		held, err := lifecycle.Transition(context.Background(), booking.ID, EventWeatherHold)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusWeatherHold, held.Status)
		assert.True(t, held.Status.HoldsCapacity())
		assert.Empty(t, inv.items)

		resumed, err := lifecycle.Transition(context.Background(), booking.ID, EventWeatherClear)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusConfirmed, resumed.Status)
		assert.Equal(t, domain.BookingStatusConfirmed, store.bookings[booking.ID].Status)
	})

	t.Run("invalid transition leaves booking untouched", func(t *testing.T) {
		done := booking
		done.Status = domain.BookingStatusCompleted
		lifecycle, store, sink, _ := setup(done)

		_, err := lifecycle.Transition(context.Background(), booking.ID, EventCancel)

		var invalid *domain.InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, domain.BookingStatusCompleted, store.bookings[booking.ID].Status)
		assert.Empty(t, sink.events)
	})

	t.Run("unknown booking", func(t *testing.T) {
		lifecycle, _, _, _ := setup(booking)

		_, err := lifecycle.Transition(context.Background(), "bk-missing", EventCancel)

		assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	})
}
