// Package report turns per-unit-notional model outputs into the rounded
// decimal amounts traders quote.
package report

import (
	"github.com/shopspring/decimal"
)

var (
	bpPerUnit  = decimal.NewFromInt(10000)
	pctPerUnit = decimal.NewFromInt(100)
)

// Money scales a per-unit amount by notional and rounds to cents.
func Money(perUnit, notional float64) decimal.Decimal {
	return decimal.NewFromFloat(perUnit).Mul(decimal.NewFromFloat(notional)).Round(2)
}

// MoneyVector applies Money element-wise.
func MoneyVector(perUnit []float64, notional float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(perUnit))
	for i, v := range perUnit {
		out[i] = Money(v, notional)
	}
	return out
}

// BasisPoints converts a fractional spread to basis points, 4 dp.
func BasisPoints(spread float64) decimal.Decimal {
	return decimal.NewFromFloat(spread).Mul(bpPerUnit).Round(4)
}

// Percent converts a fractional upfront to percent of notional, 4 dp.
func Percent(puf float64) decimal.Decimal {
	return decimal.NewFromFloat(puf).Mul(pctPerUnit).Round(4)
}

// Price is the clean price in percent, 100 minus the upfront.
func Price(puf float64) decimal.Decimal {
	return pctPerUnit.Sub(decimal.NewFromFloat(puf).Mul(pctPerUnit)).Round(4)
}

// Rate rounds a decimal rate, such as a zero or hazard rate, to 10 dp.
func Rate(r float64) decimal.Decimal {
	return decimal.NewFromFloat(r).Round(10)
}

// FromBasisPoints converts an input quoted in bp to a fraction.
func FromBasisPoints(bp float64) float64 {
	return decimal.NewFromFloat(bp).Div(bpPerUnit).InexactFloat64()
}

// FromPercent converts an input quoted in percent to a fraction.
func FromPercent(pct float64) float64 {
	return decimal.NewFromFloat(pct).Div(pctPerUnit).InexactFloat64()
}
