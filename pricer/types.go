// Package pricer values single-name CDS contracts under the ISDA standard
// model: piecewise-constant forward and hazard rates, integrated exactly
// between the merged knots of the yield and credit curves.
package pricer

import "fmt"

// AccrualOnDefaultFormula selects the accrual-on-default integral.
type AccrualOnDefaultFormula string

const (
	// OriginalISDA adds half a day to the accrual time, as ISDA 1.8.2 and earlier.
	OriginalISDA AccrualOnDefaultFormula = "ORIGINAL_ISDA"
	MarkitFix    AccrualOnDefaultFormula = "MARKIT_FIX"
	Correct      AccrualOnDefaultFormula = "CORRECT"
)

func (f AccrualOnDefaultFormula) String() string { return string(f) }

// omega is the accrual time offset applied by the formula.
func (f AccrualOnDefaultFormula) omega() float64 {
	if f == OriginalISDA {
		return halfDay
	}
	return 0
}

// ParseFormula maps a config string to an AccrualOnDefaultFormula.
func ParseFormula(s string) (AccrualOnDefaultFormula, error) {
	switch f := AccrualOnDefaultFormula(s); f {
	case OriginalISDA, MarkitFix, Correct:
		return f, nil
	default:
		return "", fmt.Errorf("ParseFormula: unknown accrual-on-default formula %q", s)
	}
}

// PriceType distinguishes clean (ex-accrued) from dirty prices.
type PriceType string

const (
	Clean PriceType = "CLEAN"
	Dirty PriceType = "DIRTY"
)

func (p PriceType) String() string { return string(p) }

// ParsePriceType maps a config string to a PriceType.
func ParsePriceType(s string) (PriceType, error) {
	switch p := PriceType(s); p {
	case Clean, Dirty:
		return p, nil
	default:
		return "", fmt.Errorf("ParsePriceType: unknown price type %q", s)
	}
}

const (
	halfDay = 1.0 / 730

	// Steps with |dh + dr| below this use the Taylor kernels.
	smallStep = 1e-5
)
