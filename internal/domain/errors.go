package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrItemNotFound     = errors.New("inventory item not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrBusinessNotFound = errors.New("business not found")
	ErrCouponNotFound   = errors.New("coupon not found")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidWindow    = errors.New("invalid time window")
	ErrNoLines          = errors.New("booking request has no lines")
	ErrItemNameRequired = errors.New("item name required")
	ErrItemExists       = errors.New("item name already in use")
	ErrInvalidItemType  = errors.New("invalid item type")
	ErrInvalidPrice     = errors.New("invalid unit price")
	ErrInvalidID        = errors.New("invalid id")

	// ErrConcurrentUpdate is surfaced by the store when the transaction was
	// aborted by a concurrent writer (e.g. a serialization failure). The
	// ledger retries these; nothing else should.
	ErrConcurrentUpdate = errors.New("transaction aborted by concurrent update")
)

type RejectReason string

const (
	RejectInsufficientCapacity RejectReason = "insufficient_capacity"
	RejectItemUnavailable      RejectReason = "item_unavailable"
	RejectItemNotFound         RejectReason = "item_not_found"
)

// Rejection explains why one requested line cannot be satisfied. NextWindow,
// when set, is the earliest window of the same duration at which the requested
// quantity would fit, so callers can offer alternatives.
type Rejection struct {
	ItemID     string
	Reason     RejectReason
	Requested  int
	Available  int
	NextWindow *TimeWindow
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s: %s (requested %d, available %d)", r.ItemID, r.Reason, r.Requested, r.Available)
}

// InfeasibleError is the planning-time rejection: one or more lines cannot be
// satisfied. The caller should adjust the request, not retry it.
type InfeasibleError struct {
	Rejections []Rejection
}

func (e *InfeasibleError) Error() string {
	parts := make([]string, len(e.Rejections))
	for i, r := range e.Rejections {
		parts[i] = r.String()
	}
	return "infeasible request: " + strings.Join(parts, "; ")
}

// ConflictError is the commit-time race lost: the plan was feasible but a
// concurrent commit consumed the capacity first, and retries are exhausted.
type ConflictError struct {
	Rejections []Rejection
	Attempts   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("commit conflict after %d attempts: %d line(s) contended", e.Attempts, len(e.Rejections))
}

// PolicyViolationError is a planning-time rejection on business rules rather
// than capacity: the remedy is changing dates or order size, not items.
type PolicyViolationError struct {
	Rule   string
	Detail string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("policy violation (%s): %s", e.Rule, e.Detail)
}

// StoreUnavailableError marks transient infrastructure failure. Absence of a
// definitive answer is an error, never "available".
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError reports an illegal lifecycle request. It is never
// retried automatically and is distinct from "already in that state".
type InvalidTransitionError struct {
	From  BookingStatus
	Event string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: event %q not allowed from status %s", e.Event, e.From)
}
