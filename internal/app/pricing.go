package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Quote is the priced side of a plan. All amounts are in the currency's major
// unit with two decimal places.
type Quote struct {
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	TaxRate       decimal.Decimal
	TaxAmount     decimal.Decimal
	DepositAmount decimal.Decimal
	Total         decimal.Decimal
	CouponApplied bool
}

// Price derives a quote from planned lines, business policy, and an optional
// coupon. Pure and deterministic: a persisted booking's amounts can be
// re-derived from its lines for audits and refunds.
//
// Tax is rounded to the minor unit with bankers' rounding so totals carry no
// systematic bias across many bookings.
func Price(lines []PlanLine, policy domain.BusinessPolicy, coupon *domain.Coupon, now time.Time) Quote {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Item.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	subtotal = subtotal.RoundBank(2)

	discount := decimal.Zero
	applied := false
	if coupon != nil && coupon.Applicable(subtotal, now) {
		discount = couponDiscount(*coupon, subtotal)
		applied = discount.IsPositive()
	}

	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(policy.TaxRate).RoundBank(2)
	total := taxable.Add(tax)

	return Quote{
		Subtotal:      subtotal,
		Discount:      discount,
		TaxRate:       policy.TaxRate,
		TaxAmount:     tax,
		DepositAmount: policy.Deposit(total),
		Total:         total,
		CouponApplied: applied,
	}
}

func couponDiscount(c domain.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	switch c.DiscountType {
	case domain.DiscountTypePercentage:
		d := subtotal.Mul(c.DiscountAmount).Div(hundred).RoundBank(2)
		if d.GreaterThan(subtotal) {
			return subtotal
		}
		return d
	case domain.DiscountTypeFixed:
		if c.DiscountAmount.GreaterThan(subtotal) {
			return subtotal
		}
		return c.DiscountAmount
	}
	return decimal.Zero
}
