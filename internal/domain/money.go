package domain

import (
	"github.com/shopspring/decimal"
)

// DefaultCommissionPercentage applies when a vendor has no stored rate and
// no per-settlement override was supplied.
const DefaultCommissionPercentage = 10.0

// SplitAmount divides a settled total into the platform commission and the
// vendor credit. The commission is rounded to 2 decimal places first and the
// vendor amount is the remainder, so the two always recompose into the total.
func SplitAmount(totalAmount, commissionPercentage float64) (vendorAmount, platformCommission float64) {
	total := decimal.NewFromFloat(totalAmount)
	commission := total.
		Mul(decimal.NewFromFloat(commissionPercentage)).
		Div(decimal.NewFromInt(100)).
		Round(2)
	vendor := total.Sub(commission).Round(2)

	platformCommission, _ = commission.Float64()
	vendorAmount, _ = vendor.Float64()
	return vendorAmount, platformCommission
}

func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// MinorUnits converts a major-unit amount to the integer minor units the
// gateway API expects (e.g. 12.34 -> 1234).
func MinorUnits(v float64) int64 {
	return decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
