package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Minor unit exponents that differ from the default of 2.
var currencyExponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
}

const defaultExponent int32 = 2

// CurrencyExponent returns the number of fractional digits used by currency.
func CurrencyExponent(currency string) int32 {
	if exp, ok := currencyExponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return defaultExponent
}

// ToMinorUnits converts a decimal amount into integer minor units (cents for
// most currencies). Amounts with more precision than the currency allows, or
// that overflow int64, are rejected.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	exp := CurrencyExponent(currency)
	shifted := amount.Shift(exp)

	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, NewInvalidInput("amount", "%s has more than %d decimal places for %s", amount, exp, currency)
	}

	if shifted.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || shifted.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, NewInvalidInput("amount", "%s is out of range", amount)
	}

	return shifted.IntPart(), nil
}

// FromMinorUnits converts integer minor units back into a decimal amount.
func FromMinorUnits(units int64, currency string) decimal.Decimal {
	return decimal.New(units, -CurrencyExponent(currency))
}

// SplitEqually divides total minor units into n shares that sum exactly to
// total. The first total%n shares carry one extra unit.
func SplitEqually(total int64, n int) []int64 {
	if n <= 0 {
		return nil
	}

	base := total / int64(n)
	remainder := total % int64(n)

	shares := make([]int64, n)
	for i := range shares {
		shares[i] = base
		if int64(i) < remainder {
			shares[i]++
		}
	}

	return shares
}
