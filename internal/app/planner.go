package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/clock"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

// CatalogReader is the read-only catalog view the planner consults.
type CatalogReader interface {
	GetItem(ctx context.Context, businessID, itemID string) (domain.InventoryItem, error)
	GetPolicy(ctx context.Context, businessID string) (domain.BusinessPolicy, error)
	GetCoupon(ctx context.Context, businessID, code string) (domain.Coupon, error)
}

// PlanLine is one feasible line of a plan: the item snapshot, requested
// quantity, and the effective (buffered) window the quantity will reserve
// once committed.
type PlanLine struct {
	Item     domain.InventoryItem
	Quantity int
	Window   domain.TimeWindow
}

// Plan is the advisory output of planning. It takes no locks; the ledger
// re-validates it inside the committing transaction.
type Plan struct {
	Request    domain.BookingRequest
	Lines      []PlanLine
	Coupon     *domain.Coupon
	Quote      Quote
	Rejections []domain.Rejection
}

func (p Plan) Feasible() bool {
	return len(p.Rejections) == 0
}

// Planner decides feasibility for booking requests. Read-only: any number of
// planner calls may run in parallel.
type Planner struct {
	catalog CatalogReader
	avail   AvailabilityReader
	clock   clock.Clock
}

func NewPlanner(catalog CatalogReader, avail AvailabilityReader, clk clock.Clock) *Planner {
	return &Planner{catalog: catalog, avail: avail, clock: clk}
}

// PlanBooking validates the request, checks business policy, then checks each
// line's capacity. Infeasible capacity returns the plan alongside an
// *domain.InfeasibleError carrying every conflicting line, so callers can
// offer alternatives rather than a bare failure.
func (p *Planner) PlanBooking(ctx context.Context, req domain.BookingRequest) (Plan, error) {
	lines, err := normalizeLines(req.Lines)
	if err != nil {
		return Plan{}, err
	}
	eventWindow := req.EventWindow()
	if !eventWindow.IsValid() {
		return Plan{}, domain.ErrInvalidWindow
	}

	policy, err := p.catalog.GetPolicy(ctx, req.BusinessID)
	if err != nil {
		return Plan{}, err
	}

	now := p.clock.Now()
	lead := req.EventDate.Sub(now)
	if lead < policy.MinAdvance {
		return Plan{}, &domain.PolicyViolationError{
			Rule:   "min_advance_booking",
			Detail: fmt.Sprintf("event must be booked at least %s in advance", policy.MinAdvance),
		}
	}
	if lead > policy.MaxAdvance {
		return Plan{}, &domain.PolicyViolationError{
			Rule:   "max_advance_booking",
			Detail: fmt.Sprintf("event may be booked at most %s in advance", policy.MaxAdvance),
		}
	}

	plan := Plan{Request: req}
	for _, reqLine := range lines {
		item, err := p.catalog.GetItem(ctx, req.BusinessID, reqLine.ItemID)
		if err != nil {
			if errors.Is(err, domain.ErrItemNotFound) {
				plan.Rejections = append(plan.Rejections, domain.Rejection{
					ItemID:    reqLine.ItemID,
					Reason:    domain.RejectItemNotFound,
					Requested: reqLine.Quantity,
				})
				continue
			}
			return Plan{}, err
		}
		if !item.Bookable() {
			plan.Rejections = append(plan.Rejections, domain.Rejection{
				ItemID:    item.ID,
				Reason:    domain.RejectItemUnavailable,
				Requested: reqLine.Quantity,
			})
			continue
		}

		// Committed lines hold their effective (buffered) windows; the
		// requested side is checked with its raw event window, so a new
		// rental may start exactly when the previous one's teardown ends.
		committed, err := p.avail.CommittedQuantity(ctx, req.BusinessID, item.ID, eventWindow)
		if err != nil {
			return Plan{}, err
		}

		if committed+reqLine.Quantity > item.QuantityOwned {
			rejection := domain.Rejection{
				ItemID:    item.ID,
				Reason:    domain.RejectInsufficientCapacity,
				Requested: reqLine.Quantity,
				Available: item.QuantityOwned - committed,
			}
			rejection.NextWindow = p.suggestWindow(ctx, req.BusinessID, item, reqLine.Quantity, eventWindow)
			plan.Rejections = append(plan.Rejections, rejection)
			continue
		}

		plan.Lines = append(plan.Lines, PlanLine{
			Item:     item,
			Quantity: reqLine.Quantity,
			Window:   domain.EffectiveWindow(eventWindow, item),
		})
	}

	if !plan.Feasible() {
		// All-or-nothing: a single rejected line sinks the whole plan.
		return plan, &domain.InfeasibleError{Rejections: plan.Rejections}
	}

	coupon, err := p.lookupCoupon(ctx, req)
	if err != nil {
		return Plan{}, err
	}
	plan.Coupon = coupon
	plan.Quote = Price(plan.Lines, policy, coupon, now)

	if plan.Quote.Total.LessThan(policy.MinimumPurchase) {
		return plan, &domain.PolicyViolationError{
			Rule:   "minimum_purchase",
			Detail: fmt.Sprintf("total %s is below the business minimum %s", plan.Quote.Total.StringFixed(2), policy.MinimumPurchase.StringFixed(2)),
		}
	}

	return plan, nil
}

// lookupCoupon fetches the request's coupon. An unknown code is not an error:
// the quote is simply computed without a discount.
func (p *Planner) lookupCoupon(ctx context.Context, req domain.BookingRequest) (*domain.Coupon, error) {
	if req.CouponCode == "" {
		return nil, nil
	}
	coupon, err := p.catalog.GetCoupon(ctx, req.BusinessID, req.CouponCode)
	if err != nil {
		if errors.Is(err, domain.ErrCouponNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// suggestWindow computes the earliest same-duration window where the line
// would fit. Best effort: a store error here degrades the rejection, not the
// planning outcome, since the line is already rejected.
func (p *Planner) suggestWindow(ctx context.Context, businessID string, item domain.InventoryItem, quantity int, window domain.TimeWindow) *domain.TimeWindow {
	horizon := domain.TimeWindow{Start: window.Start, End: window.End.AddDate(0, 0, 14)}
	committed, err := p.avail.CommittedWindows(ctx, businessID, item.ID, horizon)
	if err != nil {
		return nil
	}
	return nextFit(committed, item.QuantityOwned, quantity, window.Start, window.Duration())
}

// normalizeLines merges duplicate item ids and sorts ascending by item id so
// repeated planning calls against the same state are reproducible.
func normalizeLines(lines []domain.RequestLine) ([]domain.RequestLine, error) {
	if len(lines) == 0 {
		return nil, domain.ErrNoLines
	}

	byItem := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		byItem[l.ItemID] += l.Quantity
	}

	out := make([]domain.RequestLine, 0, len(byItem))
	for id, qty := range byItem {
		out = append(out, domain.RequestLine{ItemID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}
