package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/app"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

// BookingPlanner is the minimal interface needed to produce a quote.
type BookingPlanner interface {
	PlanBooking(ctx context.Context, req domain.BookingRequest) (app.Plan, error)
}

// HandleCreateQuote returns an HTTP handler that plans a booking without
// committing it. The answer is advisory: capacity may be consumed before the
// caller commits.
func HandleCreateQuote(planner BookingPlanner) http.HandlerFunc {
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

		plan, err := planner.PlanBooking(r.Context(), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(quoteResponse(plan))
	}
}

type quoteJSON struct {
	Feasible      bool            `json:"feasible"`
	Lines         []quoteLineJSON `json:"lines"`
	Subtotal      string          `json:"subtotal"`
	Discount      string          `json:"discount"`
	TaxAmount     string          `json:"tax_amount"`
	DepositAmount string          `json:"deposit_amount"`
	Total         string          `json:"total"`
	CouponApplied bool            `json:"coupon_applied"`
}

type quoteLineJSON struct {
	ItemID         string    `json:"item_id"`
	Quantity       int       `json:"quantity"`
	UnitPrice      string    `json:"unit_price"`
	EffectiveStart time.Time `json:"effective_start"`
	EffectiveEnd   time.Time `json:"effective_end"`
}

func quoteResponse(plan app.Plan) quoteJSON {
	resp := quoteJSON{
		Feasible:      plan.Feasible(),
		Subtotal:      plan.Quote.Subtotal.StringFixed(2),
		Discount:      plan.Quote.Discount.StringFixed(2),
		TaxAmount:     plan.Quote.TaxAmount.StringFixed(2),
		DepositAmount: plan.Quote.DepositAmount.StringFixed(2),
		Total:         plan.Quote.Total.StringFixed(2),
		CouponApplied: plan.Quote.CouponApplied,
	}
	for _, line := range plan.Lines {
		resp.Lines = append(resp.Lines, quoteLineJSON{
			ItemID:         line.Item.ID,
			Quantity:       line.Quantity,
			UnitPrice:      line.Item.UnitPrice.StringFixed(2),
			EffectiveStart: line.Window.Start,
			EffectiveEnd:   line.Window.End,
		})
	}
	return resp
}
