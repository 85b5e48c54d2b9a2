package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BusinessPolicy carries the per-business knobs the planner and pricing
// calculator enforce. One row per business, read-mostly.
type BusinessPolicy struct {
	BusinessID string
	// TaxRate is a fraction, e.g. 0.0825 for 8.25%.
	TaxRate decimal.Decimal
	// DepositRate is a fraction of the post-discount total. Ignored when
	// DepositFlat is non-zero.
	DepositRate decimal.Decimal
	DepositFlat decimal.Decimal
	// MinAdvance / MaxAdvance bound how far ahead of now an event date may be.
	MinAdvance time.Duration
	MaxAdvance time.Duration
	// MinimumPurchase is the smallest allowed pre-tax total.
	MinimumPurchase decimal.Decimal
}

// Deposit returns the deposit owed for a post-discount total.
func (p BusinessPolicy) Deposit(total decimal.Decimal) decimal.Decimal {
	if p.DepositFlat.IsPositive() {
		if p.DepositFlat.GreaterThan(total) {
			return total
		}
		return p.DepositFlat
	}
	return total.Mul(p.DepositRate).RoundBank(2)
}
