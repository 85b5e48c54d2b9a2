package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending     BookingStatus = "PENDING"
	BookingStatusConfirmed   BookingStatus = "CONFIRMED"
	BookingStatusCancelled   BookingStatus = "CANCELLED"
	BookingStatusCompleted   BookingStatus = "COMPLETED"
	BookingStatusNoShow      BookingStatus = "NO_SHOW"
	BookingStatusWeatherHold BookingStatus = "WEATHER_HOLD"
)

// HoldsCapacity reports whether bookings in this status still count against an
// item's committed quantity. Cancellation is the only status that releases
// capacity; completed and no-show bookings keep their historical windows so
// past queries stay correct.
func (s BookingStatus) HoldsCapacity() bool {
	return s != BookingStatusCancelled
}

// BookingItem is one line of a booking. UnitPrice is captured at booking time
// so later catalog price changes never alter a persisted total. Line
// quantities are immutable post-commit; changing them means cancel and rebook.
type BookingItem struct {
	ID        string
	BookingID string
	ItemID    string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Booking is a committed reservation. Never hard-deleted: cancellation flips
// status so historical allocation queries remain correct.
type Booking struct {
	ID            string
	BusinessID    string
	CustomerID    string
	Status        BookingStatus
	EventDate     time.Time
	StartTime     time.Time
	EndTime       time.Time
	Items         []BookingItem
	CouponCode    string
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxRate       decimal.Decimal
	TaxAmount     decimal.Decimal
	DepositAmount decimal.Decimal
	DepositPaid   bool
	TotalAmount   decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (b Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

func (b Booking) IsCompleted() bool {
	return b.Status == BookingStatusCompleted
}

// EventWindow is the customer-facing rental window, before setup/teardown
// buffers are applied per line.
func (b Booking) EventWindow() TimeWindow {
	return NewTimeWindow(b.StartTime, b.EndTime)
}

// RequestLine is one requested item+quantity on an incoming booking request.
type RequestLine struct {
	ItemID   string
	Quantity int
}

// BookingRequest is the transient input to planning and commit. It is not
// persisted until the ledger commits it as a Booking.
type BookingRequest struct {
	BusinessID string
	CustomerID string
	EventDate  time.Time
	StartTime  time.Time
	EndTime    time.Time
	Lines      []RequestLine
	CouponCode string
}

func (r BookingRequest) EventWindow() TimeWindow {
	return NewTimeWindow(r.StartTime, r.EndTime)
}
