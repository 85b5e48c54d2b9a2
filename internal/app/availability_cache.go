package app

import (
	"context"
	"sync"
	"time"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/clock"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

const defaultCacheTTL = 30 * time.Second

// CachedAvailability is a per-item read-through cache over an
// AvailabilityReader. It serves only the advisory planning path and is allowed
// to lag: every commit re-validates against the store inside its transaction.
// Commits and cancellations invalidate the touched items.
type CachedAvailability struct {
	source AvailabilityReader
	clock  clock.Clock
	ttl    time.Duration

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

type cacheKey struct {
	businessID string
	itemID     string
}

type cacheEntry struct {
	windows   []domain.CommittedWindow
	horizon   domain.TimeWindow
	fetchedAt time.Time
}

func NewCachedAvailability(source AvailabilityReader, clk clock.Clock, ttl time.Duration) *CachedAvailability {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedAvailability{
		source:  source,
		clock:   clk,
		ttl:     ttl,
		entries: make(map[cacheKey]cacheEntry),
	}
}

func (c *CachedAvailability) CommittedQuantity(ctx context.Context, businessID, itemID string, w domain.TimeWindow) (int, error) {
	windows, err := c.windowsCovering(ctx, businessID, itemID, w)
	if err != nil {
		return 0, err
	}
	return sumIntersecting(windows, w), nil
}

func (c *CachedAvailability) CommittedWindows(ctx context.Context, businessID, itemID string, horizon domain.TimeWindow) ([]domain.CommittedWindow, error) {
	windows, err := c.windowsCovering(ctx, businessID, itemID, horizon)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CommittedWindow, 0, len(windows))
	for _, cw := range windows {
		if cw.Window.Overlaps(horizon) {
			out = append(out, cw)
		}
	}
	return out, nil
}

// Invalidate drops the cached view for an item. Called after every commit and
// cancellation touching it.
func (c *CachedAvailability) Invalidate(businessID, itemID string) {
	c.mu.Lock()
	delete(c.entries, cacheKey{businessID: businessID, itemID: itemID})
	c.mu.Unlock()
}

func (c *CachedAvailability) windowsCovering(ctx context.Context, businessID, itemID string, w domain.TimeWindow) ([]domain.CommittedWindow, error) {
	key := cacheKey{businessID: businessID, itemID: itemID}
	now := c.clock.Now()

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if ok && now.Sub(entry.fetchedAt) < c.ttl && covers(entry.horizon, w) {
		return entry.windows, nil
	}

	// Fetch a horizon wider than the asked window so adjacent planning calls
	// hit the cache.
	horizon := w.Extend(24*time.Hour, 24*time.Hour)
	windows, err := c.source.CommittedWindows(ctx, businessID, itemID, horizon)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{windows: windows, horizon: horizon, fetchedAt: now}
	c.mu.Unlock()

	return windows, nil
}

func covers(outer, inner domain.TimeWindow) bool {
	return !outer.Start.After(inner.Start) && !outer.End.Before(inner.End)
}
