package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/app"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

// BookingCommitter is the minimal interface needed to commit a booking.
type BookingCommitter interface {
	Commit(ctx context.Context, req domain.BookingRequest) (domain.Booking, error)
}

// BookingReader loads a persisted booking for status checks.
type BookingReader interface {
	GetBooking(ctx context.Context, bookingID string) (domain.Booking, error)
}

// BookingTransitioner applies lifecycle events.
type BookingTransitioner interface {
	Transition(ctx context.Context, bookingID string, event app.LifecycleEvent) (domain.Booking, error)
}

type bookingRequestBody struct {
	BusinessID string    `json:"business_id"`
	CustomerID string    `json:"customer_id"`
	EventDate  time.Time `json:"event_date"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	CouponCode string    `json:"coupon_code"`
	Lines      []struct {
		ItemID   string `json:"item_id"`
		Quantity int    `json:"quantity"`
	} `json:"lines"`
}

func (b bookingRequestBody) toDomain() (domain.BookingRequest, bool) {
	if b.BusinessID == "" || b.CustomerID == "" {
		return domain.BookingRequest{}, false
	}
	req := domain.BookingRequest{
		BusinessID: b.BusinessID,
		CustomerID: b.CustomerID,
		EventDate:  b.EventDate,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		CouponCode: b.CouponCode,
	}
	for _, l := range b.Lines {
		req.Lines = append(req.Lines, domain.RequestLine{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	return req, true
}

// HandleCreateBooking returns an HTTP handler that commits a booking through
// the ledger.
func HandleCreateBooking(ledger BookingCommitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var body bookingRequestBody
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		req, ok := body.toDomain()
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "business_id and customer_id are required")
			return
		}

		booking, err := ledger.Commit(r.Context(), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(bookingResponse(booking))
	}
}

// HandleBooking serves GET /bookings/{id} and POST /bookings/{id}/transition.
func HandleBooking(reader BookingReader, transitioner BookingTransitioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, action, ok := parseBookingPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			booking, err := reader.GetBooking(r.Context(), bookingID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(bookingResponse(booking))

		case action == "transition" && r.Method == http.MethodPost:
			var body struct {
				Event string `json:"event"`
			}
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&body); err != nil || body.Event == "" {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "event is required")
				return
			}

			booking, err := transitioner.Transition(r.Context(), bookingID, app.LifecycleEvent(body.Event))
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(bookingResponse(booking))

		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func parseBookingPath(path string) (bookingID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "bookings" || parts[1] == "" {
		return "", "", false
	}
	if len(parts) == 3 {
		return parts[1], parts[2], true
	}
	return parts[1], "", true
}

type bookingJSON struct {
	ID            string            `json:"id"`
	BusinessID    string            `json:"business_id"`
	CustomerID    string            `json:"customer_id"`
	Status        string            `json:"status"`
	EventDate     time.Time         `json:"event_date"`
	StartTime     time.Time         `json:"start_time"`
	EndTime       time.Time         `json:"end_time"`
	CouponCode    string            `json:"coupon_code,omitempty"`
	Items         []bookingItemJSON `json:"items"`
	Subtotal      string            `json:"subtotal"`
	DiscountTotal string            `json:"discount_total"`
	TaxAmount     string            `json:"tax_amount"`
	DepositAmount string            `json:"deposit_amount"`
	DepositPaid   bool              `json:"deposit_paid"`
	TotalAmount   string            `json:"total_amount"`
	CreatedAt     time.Time         `json:"created_at"`
}

type bookingItemJSON struct {
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

func bookingResponse(b domain.Booking) bookingJSON {
	resp := bookingJSON{
		ID:            b.ID,
		BusinessID:    b.BusinessID,
		CustomerID:    b.CustomerID,
		Status:        string(b.Status),
		EventDate:     b.EventDate,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		CouponCode:    b.CouponCode,
		Subtotal:      b.Subtotal.StringFixed(2),
		DiscountTotal: b.DiscountTotal.StringFixed(2),
		TaxAmount:     b.TaxAmount.StringFixed(2),
		DepositAmount: b.DepositAmount.StringFixed(2),
		DepositPaid:   b.DepositPaid,
		TotalAmount:   b.TotalAmount.StringFixed(2),
		CreatedAt:     b.CreatedAt,
	}
	for _, item := range b.Items {
		resp.Items = append(resp.Items, bookingItemJSON{
			ItemID:    item.ItemID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}
	return resp
}
