package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeFixed      DiscountType = "FIXED"
)

type Coupon struct {
	ID             string
	BusinessID     string
	Code           string
	DiscountType   DiscountType
	DiscountAmount decimal.Decimal
	// MinimumAmount is the subtotal floor below which the coupon does not apply.
	MinimumAmount decimal.Decimal
	StartsAt      time.Time
	EndsAt        time.Time
	// MaxUses of 0 means unlimited.
	MaxUses  int
	UseCount int
	Active   bool
}

// Applicable reports whether the coupon may discount a booking with the given
// subtotal at the given instant. It does not compute the discount; see the
// pricing calculator for that.
func (c Coupon) Applicable(subtotal decimal.Decimal, now time.Time) bool {
	if !c.Active {
		return false
	}
	if now.Before(c.StartsAt) || !now.Before(c.EndsAt) {
		return false
	}
	if c.MaxUses > 0 && c.UseCount >= c.MaxUses {
		return false
	}
	return subtotal.GreaterThanOrEqual(c.MinimumAmount)
}
