package events

import (
	"context"
	"time"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

// BookingCreated is emitted once per successful ledger commit. Downstream
// payment and waiver collaborators key off BookingID.
type BookingCreated struct {
	BookingID     string    `json:"booking_id"`
	BusinessID    string    `json:"business_id"`
	CustomerID    string    `json:"customer_id"`
	Status        string    `json:"status"`
	EventDate     time.Time `json:"event_date"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	TotalAmount   string    `json:"total_amount"`
	DepositAmount string    `json:"deposit_amount"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingStatusChanged is emitted for every lifecycle transition.
type BookingStatusChanged struct {
	BookingID  string    `json:"booking_id"`
	BusinessID string    `json:"business_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink receives engine events. Implementations must not block the commit path
// for long: publishing failures are logged, never bubbled into the booking
// outcome (the booking already committed).
type Sink interface {
	BookingCreated(ctx context.Context, booking domain.Booking)
	BookingStatusChanged(ctx context.Context, booking domain.Booking, from domain.BookingStatus, event string)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) BookingCreated(context.Context, domain.Booking) {}

func (NopSink) BookingStatusChanged(context.Context, domain.Booking, domain.BookingStatus, string) {}
