// Package money holds the decimal rules shared by pricing and commissions.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// MaxPercentage bounds commission percentages.
	MaxPercentage = hundred
)

// Round2 rounds half away from zero to cents. For the non-negative amounts
// handled here that is round half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ApplyPercentage returns base × pct / 100 rounded to cents.
func ApplyPercentage(base, pct decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(pct).Div(hundred))
}

// ValidatePercentage checks pct is within [0, 100] with at most two decimals.
func ValidatePercentage(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(MaxPercentage) {
		return fmt.Errorf("percentage %s out of range [0, 100]", pct.String())
	}
	if !pct.Equal(pct.Round(2)) {
		return fmt.Errorf("percentage %s has more than two decimals", pct.String())
	}
	return nil
}

// Sum adds values, treating an empty input as zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// EqualPtr compares optional amounts numerically; nil equals nil only.
func EqualPtr(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
