package app

import (
	"context"
	"sort"
	"time"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

// AvailabilityReader answers how much of an item is already committed. The
// authoritative implementation is a direct query against the store; a cached
// copy may serve the advisory planning path (it is re-validated at commit).
//
// Implementations must return an error when the store cannot answer. Callers
// never treat a failed lookup as "available".
type AvailabilityReader interface {
	// CommittedQuantity sums quantity across all lines of non-cancelled
	// bookings for the item whose effective window intersects w.
	CommittedQuantity(ctx context.Context, businessID, itemID string, w domain.TimeWindow) (int, error)

	// CommittedWindows lists the effective windows (with quantities) of
	// non-cancelled lines for the item that intersect the horizon, ordered
	// by start.
	CommittedWindows(ctx context.Context, businessID, itemID string, horizon domain.TimeWindow) ([]domain.CommittedWindow, error)
}

// sumIntersecting applies the reference semantics locally: total quantity of
// committed windows intersecting w.
func sumIntersecting(committed []domain.CommittedWindow, w domain.TimeWindow) int {
	total := 0
	for _, c := range committed {
		if c.Window.Overlaps(w) {
			total += c.Quantity
		}
	}
	return total
}

// nextFit finds the earliest window of the given duration, starting at or
// after `after`, in which requested units fit alongside the committed windows.
// Candidate starts are `after` itself and each committed window's end: demand
// only ever drops at a window end, so no other instant can become feasible
// first. Returns nil when requested alone exceeds owned.
func nextFit(committed []domain.CommittedWindow, owned, requested int, after time.Time, duration time.Duration) *domain.TimeWindow {
	if requested > owned {
		return nil
	}

	starts := make([]time.Time, 0, len(committed)+1)
	starts = append(starts, after)
	for _, c := range committed {
		if c.Window.End.After(after) {
			starts = append(starts, c.Window.End)
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	for _, s := range starts {
		w := domain.TimeWindow{Start: s, End: s.Add(duration)}
		if sumIntersecting(committed, w)+requested <= owned {
			return &w
		}
	}
	// Past the last committed end nothing intersects, so the loop always
	// finds a fit; this is unreachable with a sorted candidate list.
	return nil
}
