package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/app"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

type stubPlanner struct {
	plan app.Plan
	err  error
}

func (s *stubPlanner) PlanBooking(context.Context, domain.BookingRequest) (app.Plan, error) {
	return s.plan, s.err
}

func TestHandleCreateQuote(t *testing.T) {
	t.Parallel()

	body := `{
		"business_id": "biz-1",
		"customer_id": "cust-1",
		"event_date": "2025-06-14T00:00:00Z",
		"start_time": "2025-06-14T10:00:00Z",
		"end_time": "2025-06-14T12:00:00Z",
		"lines": [{"item_id": "item-1", "quantity": 1}]
	}`

	t.Run("feasible quote", func(t *testing.T) {
		planner := &stubPlanner{plan: app.Plan{
			Lines: []app.PlanLine{{
				Item: domain.InventoryItem{
					ID:        "item-1",
					UnitPrice: decimal.RequireFromString("150"),
				},
				Quantity: 1,
				Window: domain.NewTimeWindow(
					time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC),
					time.Date(2025, 6, 14, 12, 30, 0, 0, time.UTC),
				),
			}},
			Quote: app.Quote{
				Subtotal:      decimal.RequireFromString("150"),
				TaxAmount:     decimal.RequireFromString("12.38"),
				DepositAmount: decimal.RequireFromString("40.60"),
				Total:         decimal.RequireFromString("162.38"),
			},
		}}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(body))

		HandleCreateQuote(planner)(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp quoteJSON
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Feasible)
		assert.Equal(t, "162.38", resp.Total)
		require.Len(t, resp.Lines, 1)
		assert.Equal(t, "item-1", resp.Lines[0].ItemID)
		assert.Equal(t, time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC), resp.Lines[0].EffectiveStart)
	})

	t.Run("infeasible maps to 409", func(t *testing.T) {
		planner := &stubPlanner{err: &domain.InfeasibleError{Rejections: []domain.Rejection{{
			ItemID: "item-1",
			Reason: domain.RejectInsufficientCapacity,
		}}}}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(body))

		HandleCreateQuote(planner)(rec, req)

		require.Equal(t, http.StatusConflict, rec.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, codeInfeasible, resp.Code)
		require.Len(t, resp.Rejections, 1)
	})

	t.Run("bad window maps to 400", func(t *testing.T) {
		planner := &stubPlanner{err: domain.ErrInvalidWindow}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(body))

		HandleCreateQuote(planner)(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/quotes", nil)

		HandleCreateQuote(&stubPlanner{})(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
