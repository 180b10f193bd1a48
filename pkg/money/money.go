package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToMinorUnits converts a decimal amount into the provider's minor currency
// unit (cents for USD) using banker's rounding on the amount.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount must be non-negative, got %s", amount)
	}
	cents := amount.Mul(decimal.NewFromInt(100)).RoundBank(0)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %s does not round to whole cents", amount)
	}
	return cents.IntPart(), nil
}

// LineTotal multiplies a unit price by a quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Sum adds the provided amounts, returning zero for an empty slice.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}
