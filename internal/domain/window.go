package domain

import "time"

// TimeWindow is a half-open interval [Start, End). Boundary touches do not
// overlap, so an item freed at 14:00 can be reserved again starting 14:00.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func NewTimeWindow(start, end time.Time) TimeWindow {
	return TimeWindow{Start: start.UTC(), End: end.UTC()}
}

func (w TimeWindow) IsValid() bool {
	return w.Start.Before(w.End)
}

// Overlaps reports whether two half-open windows intersect.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Extend widens the window by the given setup lead time and teardown tail.
func (w TimeWindow) Extend(setup, teardown time.Duration) TimeWindow {
	return TimeWindow{
		Start: w.Start.Add(-setup),
		End:   w.End.Add(teardown),
	}
}

// CommittedWindow is one committed booking line's effective window and the
// quantity it reserves. Availability queries return these for sweep math.
type CommittedWindow struct {
	Window   TimeWindow
	Quantity int
}

// EffectiveWindow is the reserved range for one booking line: the event window
// widened by the item's setup and teardown buffers. Conflict checks run against
// this, not the raw event window.
func EffectiveWindow(eventWindow TimeWindow, item InventoryItem) TimeWindow {
	return eventWindow.Extend(
		time.Duration(item.SetupMinutes)*time.Minute,
		time.Duration(item.TeardownMinutes)*time.Minute,
	)
}
