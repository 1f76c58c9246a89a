// Package money holds the decimal arithmetic shared by every billing
// calculation. Amounts are never represented as binary floating point.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of minor-unit digits kept on every stored amount.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Round applies the billing rounding policy: half away from zero to two
// decimal places. For the non-negative amounts produced by the engine this is
// round-half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns rate percent of amount, rounded.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(rate).Div(hundred))
}

// Sum adds amounts without intermediate rounding.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// ValidRate reports whether rate is a percentage in [0, 100].
func ValidRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(hundred)
}

// Format renders amount with its currency code, e.g. "USD 1155.00". Without a
// currency it falls back to a dollar sign.
func Format(amount decimal.Decimal, currency string) string {
	if currency == "" {
		return fmt.Sprintf("$%s", Round(amount).StringFixed(Places))
	}
	return fmt.Sprintf("%s %s", currency, Round(amount).StringFixed(Places))
}
