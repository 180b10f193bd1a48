package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		amount string
		cents  int64
	}{
		{"25.00", 2500},
		{"0", 0},
		{"19.99", 1999},
		// banker's rounding on half cents
		{"10.005", 1000},
		{"10.015", 1002},
		{"10.025", 1002},
	}
	for _, tc := range cases {
		amount := decimal.RequireFromString(tc.amount)
		got, err := ToMinorUnits(amount)
		if err != nil {
			t.Fatalf("%s: %v", tc.amount, err)
		}
		if got != tc.cents {
			t.Fatalf("%s: expected %d cents got %d", tc.amount, tc.cents, got)
		}
	}
}

func TestToMinorUnitsRejectsNegative(t *testing.T) {
	if _, err := ToMinorUnits(decimal.NewFromInt(-1)); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestLineTotalAndSum(t *testing.T) {
	price := decimal.RequireFromString("10.00")
	total := Sum(LineTotal(price, 2), LineTotal(decimal.RequireFromString("5.00"), 1))
	if !total.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected 25.00 got %s", total)
	}
	if !Sum().IsZero() {
		t.Fatal("empty sum must be zero")
	}
}
