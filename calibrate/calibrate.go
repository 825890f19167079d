// Package calibrate bootstraps piecewise-constant hazard rate curves from
// CDS quotes, one pillar at a time.
package calibrate

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/pricer"
)

var (
	// ErrArbitrage is returned under Fail handling when a pillar would need a
	// negative forward hazard rate.
	ErrArbitrage = errors.New("quotes imply negative forward hazard rate")
)

// ArbitrageHandling decides what happens when a pillar cannot be fitted
// with a non-negative forward hazard rate.
type ArbitrageHandling string

const (
	// Ignore floors every pillar after the first at a zero forward hazard
	// without reporting it.
	Ignore ArbitrageHandling = "IGNORE"
	// Fail returns ErrArbitrage.
	Fail ArbitrageHandling = "FAIL"
	// ZeroHazardRate floors every pillar, the first included, at a zero
	// forward hazard; a floored pillar is not repriced exactly.
	ZeroHazardRate ArbitrageHandling = "ZERO_HAZARD_RATE"
)

func (a ArbitrageHandling) String() string { return string(a) }

// ParseArbitrageHandling maps a config string to an ArbitrageHandling.
func ParseArbitrageHandling(s string) (ArbitrageHandling, error) {
	switch a := ArbitrageHandling(s); a {
	case Ignore, Fail, ZeroHazardRate:
		return a, nil
	default:
		return "", fmt.Errorf("ParseArbitrageHandling: unknown arbitrage handling %q", s)
	}
}

// Builder calibrates a credit curve whose knots are the contracts'
// protection end times. premiums are fractional coupons; puf are clean
// points upfront per unit notional (zero for par spread quotes).
type Builder interface {
	Calibrate(strip []*cds.CDS, premiums, puf []float64, yc *curve.YieldCurve) (*curve.HazardCurve, error)
}

// Kind names a Builder implementation in configuration.
type Kind string

const (
	Analytic Kind = "analytic"
	Fast     Kind = "fast"
)

// NewBuilder returns the builder named by kind; an empty kind is Analytic.
func NewBuilder(kind Kind, formula pricer.AccrualOnDefaultFormula, arbitrage ArbitrageHandling) (Builder, error) {
	switch kind {
	case Analytic, "":
		return AnalyticBuilder{Formula: formula, Arbitrage: arbitrage}, nil
	case Fast:
		return FastBuilder{Formula: formula, Arbitrage: arbitrage}, nil
	default:
		return nil, fmt.Errorf("NewBuilder: unknown builder %q", kind)
	}
}

func checkInputs(strip []*cds.CDS, premiums, puf []float64) error {
	n := len(strip)
	if n == 0 {
		return fmt.Errorf("calibrate: no contracts: %w", cds.ErrInvalidContract)
	}
	if len(premiums) != n || len(puf) != n {
		return fmt.Errorf("calibrate: %d contracts, %d premiums, %d upfronts: %w", n, len(premiums), len(puf), cds.ErrInvalidContract)
	}
	for i, c := range strip {
		if c == nil {
			return fmt.Errorf("calibrate: contract %d is nil: %w", i, cds.ErrInvalidContract)
		}
		if c.Expired() {
			return fmt.Errorf("calibrate: contract %d has expired: %w", i, cds.ErrInvalidContract)
		}
	}
	return nil
}

func protectionEnds(strip []*cds.CDS) []float64 {
	t := make([]float64, len(strip))
	for i, c := range strip {
		t[i] = c.ProtectionEnd()
	}
	return t
}

// initialGuess is the credit triangle rate (coupon + puf/t)/lgd.
func initialGuess(premium, puf, t, lgd float64) float64 {
	return (premium + puf/t) / lgd
}

// floorPillar decides what to do when the zero-forward rate lo already
// overprices pillar i: clamp to lo, fail, or (first pillar under Ignore)
// search above lo as usual.
func floorPillar(a ArbitrageHandling, i int, lo float64) (bool, error) {
	switch {
	case a == Fail:
		return false, ErrArbitrage
	case a == ZeroHazardRate || i > 0:
		slog.Debug("calibrate: zero forward hazard", "pillar", i, "rate", lo)
		return true, nil
	default:
		return false, nil
	}
}

// minRate is the zero rate at knot i that makes the forward hazard on
// (t[i-1], t[i]] zero.
func minRate(b *curve.Builder, i int) float64 {
	if i == 0 {
		return 0
	}
	return b.RTAt(i-1) / b.TimeAt(i)
}
