package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/clock"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

// fakeStore is an in-memory LedgerStore and LifecycleStore. A mutex held for
// the whole transaction stands in for serializable isolation; a context marker
// lets in-transaction reads skip re-locking, mirroring the context-carried
// transaction of the real store.
type fakeStore struct {
	mu         sync.Mutex
	items      map[string]domain.InventoryItem
	bookings   map[string]domain.Booking
	couponUses map[string]int

	txCount      int
	failTxTimes  int
	beforeCommit func(*fakeStore)
}

func newFakeStore(items ...domain.InventoryItem) *fakeStore {
	s := &fakeStore{
		items:      make(map[string]domain.InventoryItem),
		bookings:   make(map[string]domain.Booking),
		couponUses: make(map[string]int),
	}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

type fakeTxKey struct{}

func (s *fakeStore) lockOutsideTx(ctx context.Context) func() {
	if ctx.Value(fakeTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *fakeStore) WithCommitTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++
	if s.failTxTimes > 0 {
		s.failTxTimes--
		return domain.ErrConcurrentUpdate
	}
	if s.beforeCommit != nil {
		hook := s.beforeCommit
		s.beforeCommit = nil
		hook(s)
	}
	return fn(context.WithValue(ctx, fakeTxKey{}, true))
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(context.WithValue(ctx, fakeTxKey{}, true))
}

func (s *fakeStore) CommittedQuantity(ctx context.Context, _, itemID string, w domain.TimeWindow) (int, error) {
	defer s.lockOutsideTx(ctx)()
	total := 0
	for _, cw := range s.committedWindows(itemID) {
		if cw.Window.Overlaps(w) {
			total += cw.Quantity
		}
	}
	return total, nil
}

func (s *fakeStore) CommittedWindows(ctx context.Context, _, itemID string, horizon domain.TimeWindow) ([]domain.CommittedWindow, error) {
	defer s.lockOutsideTx(ctx)()
	var out []domain.CommittedWindow
	for _, cw := range s.committedWindows(itemID) {
		if cw.Window.Overlaps(horizon) {
			out = append(out, cw)
		}
	}
	return out, nil
}

// committedWindows assumes the caller holds the lock.
func (s *fakeStore) committedWindows(itemID string) []domain.CommittedWindow {
	var out []domain.CommittedWindow
	for _, b := range s.bookings {
		if !b.Status.HoldsCapacity() {
			continue
		}
		for _, line := range b.Items {
			if line.ItemID != itemID {
				continue
			}
			eff := domain.EffectiveWindow(b.EventWindow(), s.items[itemID])
			out = append(out, domain.CommittedWindow{Window: eff, Quantity: line.Quantity})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Window.Start.Before(out[j].Window.Start) })
	return out
}

func (s *fakeStore) CreateBooking(ctx context.Context, booking domain.Booking) error {
	defer s.lockOutsideTx(ctx)()
	s.bookings[booking.ID] = booking
	return nil
}

func (s *fakeStore) IncrementCouponUse(ctx context.Context, couponID string) error {
	defer s.lockOutsideTx(ctx)()
	s.couponUses[couponID]++
	return nil
}

func (s *fakeStore) GetBookingForUpdate(ctx context.Context, bookingID string) (domain.Booking, error) {
	defer s.lockOutsideTx(ctx)()
	b, ok := s.bookings[bookingID]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, nil
}

func (s *fakeStore) UpdateBookingStatus(ctx context.Context, booking domain.Booking) error {
	defer s.lockOutsideTx(ctx)()
	s.bookings[booking.ID] = booking
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	created []domain.Booking
	events  []string
}

func (r *recordingSink) BookingCreated(_ context.Context, b domain.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, b)
}

func (r *recordingSink) BookingStatusChanged(_ context.Context, _ domain.Booking, _ domain.BookingStatus, event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type recordingInvalidator struct {
	mu    sync.Mutex
	items []string
}

func (r *recordingInvalidator) Invalidate(_, itemID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, itemID)
}

func TestLedger_Commit(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	eventDay := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time {
		return time.Date(2025, 6, 14, h, m, 0, 0, time.UTC)
	}

	castle := domain.InventoryItem{
		ID:              "item-castle-1",
		BusinessID:      "biz-1",
		Name:            "Castle-1",
		Type:            domain.ItemTypeBounceHouse,
		QuantityOwned:   1,
		SetupMinutes:    30,
		TeardownMinutes: 30,
		Status:          domain.ItemStatusAvailable,
		UnitPrice:       dec("150.00"),
	}
	policy := domain.BusinessPolicy{
		TaxRate:    dec("0.0825"),
		MaxAdvance: 365 * 24 * time.Hour,
	}

	request := func(start, end time.Time, lines ...domain.RequestLine) domain.BookingRequest {
		return domain.BookingRequest{
			BusinessID: "biz-1",
			CustomerID: "cust-1",
			EventDate:  eventDay,
			StartTime:  start,
			EndTime:    end,
			Lines:      lines,
		}
	}

	newCatalog := func(items ...domain.InventoryItem) *fakeCatalog {
		c := &fakeCatalog{policy: policy, items: map[string]domain.InventoryItem{}}
		for _, item := range items {
			c.items[item.ID] = item
		}
		return c
	}

	t.Run("successful commit persists and emits", func(t *testing.T) {
		store := newFakeStore(castle)
		sink := &recordingSink{}
		inv := &recordingInvalidator{}
		planner := NewPlanner(newCatalog(castle), store, clock.NewFixed(now))
		ledger := NewLedger(store, planner, sink, clock.NewFixed(now), WithCacheInvalidator(inv))

		booking, err := ledger.Commit(context.Background(),
			request(at(10, 0), at(12, 0), domain.RequestLine{ItemID: castle.ID, Quantity: 1}))

		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPending, booking.Status)
		require.Len(t, booking.Items, 1)
		assert.True(t, booking.TotalAmount.Equal(dec("162.38")))

		persisted, ok := store.bookings[booking.ID]
		require.True(t, ok)
		assert.Equal(t, booking.ID, persisted.ID)
		assert.Len(t, sink.created, 1)
		assert.Equal(t, []string{castle.ID}, inv.items)
	})

	t.Run("lost race with no room left surfaces fresh infeasibility", func(t *testing.T) {
		store := newFakeStore(castle)
		planner := NewPlanner(newCatalog(castle), store, clock.NewFixed(now))
		ledger := NewLedger(store, planner, &recordingSink{}, clock.NewFixed(now))

		// A competitor lands its booking between our plan and our
		// transaction.
		store.beforeCommit = func(s *fakeStore) {
			s.bookings["rival"] = domain.Booking{
				ID:         "rival",
				BusinessID: "biz-1",
				Status:     domain.BookingStatusConfirmed,
				StartTime:  at(10, 0),
				EndTime:    at(12, 0),
				Items:      []domain.BookingItem{{ItemID: castle.ID, Quantity: 1}},
			}
		}

		_, err := ledger.Commit(context.Background(),
			request(at(11, 0), at(13, 0), domain.RequestLine{ItemID: castle.ID, Quantity: 1}))

		// The replan sees the rival booking, so the caller gets the full
		// rejection detail rather than a bare conflict.
		var infeasible *domain.InfeasibleError
		require.ErrorAs(t, err, &infeasible)
		require.Len(t, infeasible.Rejections, 1)
		assert.Equal(t, 0, infeasible.Rejections[0].Available)
		assert.Len(t, store.bookings, 1)
	})

	t.Run("lost race with capacity remaining commits first try", func(t *testing.T) {
		slide := castle
		slide.ID = "item-slide-1"
		slide.QuantityOwned = 2
		store := newFakeStore(slide)
		planner := NewPlanner(newCatalog(slide), store, clock.NewFixed(now))
		ledger := NewLedger(store, planner, &recordingSink{}, clock.NewFixed(now))

		store.beforeCommit = func(s *fakeStore) {
			s.bookings["rival"] = domain.Booking{
				ID:         "rival",
				BusinessID: "biz-1",
				Status:     domain.BookingStatusConfirmed,
				StartTime:  at(10, 0),
				EndTime:    at(12, 0),
				Items:      []domain.BookingItem{{ItemID: slide.ID, Quantity: 1}},
			}
		}

		_, err := ledger.Commit(context.Background(),
			request(at(10, 0), at(12, 0), domain.RequestLine{ItemID: slide.ID, Quantity: 1}))

		require.NoError(t, err)
		assert.Len(t, store.bookings, 2)
		assert.Equal(t, 1, store.txCount)
	})

	t.Run("serialization failure is retried", func(t *testing.T) {
		store := newFakeStore(castle)
		store.failTxTimes = 1
		planner := NewPlanner(newCatalog(castle), store, clock.NewFixed(now))
		ledger := NewLedger(store, planner, &recordingSink{}, clock.NewFixed(now))

		_, err := ledger.Commit(context.Background(),
			request(at(10, 0), at(12, 0), domain.RequestLine{ItemID: castle.ID, Quantity: 1}))

		require.NoError(t, err)
		assert.Equal(t, 2, store.txCount)
	})

	t.Run("retries are bounded", func(t *testing.T) {
		store := newFakeStore(castle)
		store.failTxTimes = 100
		planner := NewPlanner(newCatalog(castle), store, clock.NewFixed(now))
		ledger := NewLedger(store, planner, &recordingSink{}, clock.NewFixed(now), WithMaxCommitAttempts(3))

		_, err := ledger.Commit(context.Background(),
			request(at(10, 0), at(12, 0), domain.RequestLine{ItemID: castle.ID, Quantity: 1}))

		var conflict *domain.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, 3, conflict.Attempts)
		assert.Equal(t, 3, store.txCount)
		assert.Empty(t, store.bookings)
	})

	t.Run("persistent revalidation conflict carries rejections", func(t *testing.T) {
		store := newFakeStore(castle)
		store.bookings["rival"] = domain.Booking{
			ID:         "rival",
			BusinessID: "biz-1",
			Status:     domain.BookingStatusConfirmed,
			StartTime:  at(10, 0),
			EndTime:    at(12, 0),
			Items:      []domain.BookingItem{{ItemID: castle.ID, Quantity: 1}},
		}
		// The planner sees a stale empty view, so every attempt plans,
		// fails revalidation, and replans the same way.
		planner := NewPlanner(newCatalog(castle), &fakeAvailability{}, clock.NewFixed(now))
		ledger := NewLedger(store, planner, &recordingSink{}, clock.NewFixed(now), WithMaxCommitAttempts(2))

		_, err := ledger.Commit(context.Background(),
			request(at(10, 0), at(12, 0), domain.RequestLine{ItemID: castle.ID, Quantity: 1}))

		var conflict *domain.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, 2, conflict.Attempts)
		require.Len(t, conflict.Rejections, 1)
		assert.Equal(t, castle.ID, conflict.Rejections[0].ItemID)
	})

	t.Run("infeasible request is never retried", func(t *testing.T) {
		store := newFakeStore(castle)
		store.bookings["rival"] = domain.Booking{
			ID:         "rival",
			BusinessID: "biz-1",
			Status:     domain.BookingStatusConfirmed,
			StartTime:  at(10, 0),
			EndTime:    at(12, 0),
			Items:      []domain.BookingItem{{ItemID: castle.ID, Quantity: 1}},
		}
		planner := NewPlanner(newCatalog(castle), store, clock.NewFixed(now))
		ledger := NewLedger(store, planner, &recordingSink{}, clock.NewFixed(now))

		_, err := ledger.Commit(context.Background(),
			request(at(11, 0), at(13, 0), domain.RequestLine{ItemID: castle.ID, Quantity: 1}))

		var infeasible *domain.InfeasibleError
		require.ErrorAs(t, err, &infeasible)
		assert.Equal(t, 0, store.txCount)
	})

	t.Run("coupon use counted once per commit", func(t *testing.T) {
		store := newFakeStore(castle)
		catalog := newCatalog(castle)
		catalog.coupons = map[string]domain.Coupon{
			"SUMMER10": {
				ID:             "coupon-1",
				BusinessID:     "biz-1",
				Code:           "SUMMER10",
				DiscountType:   domain.DiscountTypeFixed,
				DiscountAmount: dec("10.00"),
				StartsAt:       now.AddDate(0, -1, 0),
				EndsAt:         now.AddDate(0, 6, 0),
				Active:         true,
			},
		}
		planner := NewPlanner(catalog, store, clock.NewFixed(now))
		ledger := NewLedger(store, planner, &recordingSink{}, clock.NewFixed(now))

		req := request(at(10, 0), at(12, 0), domain.RequestLine{ItemID: castle.ID, Quantity: 1})
		req.CouponCode = "SUMMER10"
		booking, err := ledger.Commit(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, "SUMMER10", booking.CouponCode)
		assert.Equal(t, 1, store.couponUses["coupon-1"])
	})

	t.Run("cancellation releases capacity for recommit", func(t *testing.T) {
		store := newFakeStore(castle)
		sink := &recordingSink{}
		inv := &recordingInvalidator{}
		planner := NewPlanner(newCatalog(castle), store, clock.NewFixed(now))
		ledger := NewLedger(store, planner, sink, clock.NewFixed(now), WithCacheInvalidator(inv))
		lifecycle := NewLifecycle(store, sink, clock.NewFixed(now), inv)

		req := request(at(10, 0), at(12, 0), domain.RequestLine{ItemID: castle.ID, Quantity: 1})
		first, err := ledger.Commit(context.Background(), req)
		require.NoError(t, err)

		_, err = ledger.Commit(context.Background(), req)
		var infeasible *domain.InfeasibleError
		require.ErrorAs(t, err, &infeasible)

		_, err = lifecycle.Transition(context.Background(), first.ID, EventCancel)
		require.NoError(t, err)

		second, err := ledger.Commit(context.Background(), req)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})
}

// TestLedger_CommitConcurrent hammers one zero-buffer item from many
// goroutines and checks the committed quantity never exceeds ownership at any
// instant.
func TestLedger_CommitConcurrent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	eventDay := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)

	item := domain.InventoryItem{
		ID:            "item-combo-1",
		BusinessID:    "biz-1",
		Name:          "Combo-1",
		Type:          domain.ItemTypeInflatable,
		QuantityOwned: 3,
		Status:        domain.ItemStatusAvailable,
		UnitPrice:     dec("100.00"),
	}

	store := newFakeStore(item)
	catalog := &fakeCatalog{
		policy: domain.BusinessPolicy{MaxAdvance: 365 * 24 * time.Hour},
		items:  map[string]domain.InventoryItem{item.ID: item},
	}
	planner := NewPlanner(catalog, store, clock.NewFixed(now))
	ledger := NewLedger(store, planner, &recordingSink{}, clock.NewFixed(now))

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(n)))
			startHour := 8 + rng.Intn(8)
			req := domain.BookingRequest{
				BusinessID: "biz-1",
				CustomerID: fmt.Sprintf("cust-%d", n),
				EventDate:  eventDay,
				StartTime:  time.Date(2025, 6, 14, startHour, 0, 0, 0, time.UTC),
				EndTime:    time.Date(2025, 6, 14, startHour+2+rng.Intn(3), 0, 0, 0, time.UTC),
				Lines:      []domain.RequestLine{{ItemID: item.ID, Quantity: 1 + rng.Intn(2)}},
			}
			_, errs[n] = ledger.Commit(context.Background(), req)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var infeasible *domain.InfeasibleError
		var conflict *domain.ConflictError
		require.True(t, errors.As(err, &infeasible) || errors.As(err, &conflict),
			"unexpected error: %v", err)
	}
	require.Greater(t, successes, 0)

	// Demand only changes at window boundaries, so checking every committed
	// start instant covers the whole timeline.
	committed := store.committedWindows(item.ID)
	for _, probe := range committed {
		total := 0
		for _, cw := range committed {
			if cw.Window.Overlaps(domain.TimeWindow{Start: probe.Window.Start, End: probe.Window.Start.Add(time.Minute)}) {
				total += cw.Quantity
			}
		}
		assert.LessOrEqual(t, total, item.QuantityOwned,
			"oversold at %s", probe.Window.Start)
	}
}
