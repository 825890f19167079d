package index

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/maths"
	"github.com/meenmo/cdslib/pricer"
)

// PortfolioAdjuster scales the constituent curves so the intrinsic index
// value matches traded index quotes.
type PortfolioAdjuster struct {
	calc   Calculator
	newton maths.Newton
}

func NewPortfolioAdjuster(formula pricer.AccrualOnDefaultFormula) PortfolioAdjuster {
	return PortfolioAdjuster{calc: NewCalculator(formula), newton: maths.NewNewton(maths.DefaultAccuracy)}
}

// AdjustCurves finds the single multiplier alpha on every live curve's RT
// that makes the intrinsic clean upfront equal indexPUF.
func (a PortfolioAdjuster) AdjustCurves(indexPUF float64, idx *cds.CDS, coupon float64, yc *curve.YieldCurve, b *IntrinsicBundle) (*IntrinsicBundle, error) {
	if b.AllDefaulted() {
		return nil, fmt.Errorf("AdjustCurves: %w", ErrAllDefaulted)
	}
	curves := b.CreditCurves()
	ends := make([]int, len(curves))
	for i, cc := range curves {
		if cc != nil {
			ends[i] = cc.NumKnots()
		}
	}
	starts := make([]int, len(curves))

	alpha, err := a.solve(indexPUF, idx, coupon, yc, b, curves, starts, ends, 1)
	if err != nil {
		return nil, fmt.Errorf("AdjustCurves: %w", err)
	}
	slog.Debug("index: curves adjusted", "alpha", alpha)
	return b.WithCreditCurves(scaleCurves(curves, alpha, starts, ends))
}

// AdjustCurvesTerm fits a term structure of index quotes. The index
// maturities are inserted as knots into every curve and each term rescales
// only the knots after the previous maturity, leaving earlier terms
// repriced.
func (a PortfolioAdjuster) AdjustCurvesTerm(indexPUF []float64, idx []*cds.CDS, coupon float64, yc *curve.YieldCurve, b *IntrinsicBundle) (*IntrinsicBundle, error) {
	if len(idx) != len(indexPUF) || len(idx) == 0 {
		return nil, fmt.Errorf("AdjustCurvesTerm: %d contracts, %d quotes: %w", len(idx), len(indexPUF), cds.ErrInvalidContract)
	}
	if len(idx) == 1 {
		return a.AdjustCurves(indexPUF[0], idx[0], coupon, yc, b)
	}
	if b.AllDefaulted() {
		return nil, fmt.Errorf("AdjustCurvesTerm: %w", ErrAllDefaulted)
	}

	knots := make([]float64, len(idx))
	for i, c := range idx {
		knots[i] = c.ProtectionEnd()
	}
	curves := b.CreditCurves()
	termKnot := make([][]int, len(curves))
	for i, cc := range curves {
		if cc == nil {
			continue
		}
		cc = cc.WithKnots(knots)
		curves[i] = cc
		termKnot[i] = make([]int, len(knots))
		for j, x := range knots {
			termKnot[i][j] = nearestKnot(cc.Times(), x)
		}
	}

	starts := make([]int, len(curves))
	alpha := 1.0
	for j := range idx {
		ends := make([]int, len(curves))
		for i, cc := range curves {
			if cc == nil {
				continue
			}
			if j == len(idx)-1 {
				ends[i] = cc.NumKnots()
			} else {
				ends[i] = termKnot[i][j] + 1
			}
		}
		var err error
		alpha, err = a.solve(indexPUF[j], idx[j], coupon, yc, b, curves, starts, ends, alpha)
		if err != nil {
			return nil, fmt.Errorf("AdjustCurvesTerm: term %d: %w", j, err)
		}
		slog.Debug("index: term adjusted", "term", j, "alpha", alpha)
		curves = scaleCurves(curves, alpha, starts, ends)
		starts = ends
	}
	return b.WithCreditCurves(curves)
}

func (a PortfolioAdjuster) solve(indexPUF float64, idx *cds.CDS, coupon float64, yc *curve.YieldCurve, b *IntrinsicBundle,
	curves []*curve.HazardCurve, starts, ends []int, guess float64) (float64, error) {
	target := b.IndexFactor() * indexPUF
	var solveErr error
	f := func(x float64) float64 {
		trial, err := b.WithCreditCurves(scaleCurves(curves, x, starts, ends))
		if err != nil {
			solveErr = err
			return math.NaN()
		}
		return a.calc.IndexPV(idx, coupon, yc, trial, pricer.Clean) - target
	}
	alpha, err := a.newton.Solve(f, guess)
	if solveErr != nil {
		return 0, solveErr
	}
	return alpha, err
}

func scaleCurves(curves []*curve.HazardCurve, alpha float64, starts, ends []int) []*curve.HazardCurve {
	out := make([]*curve.HazardCurve, len(curves))
	for i, cc := range curves {
		if cc != nil {
			out[i] = cc.Scaled(alpha, starts[i], ends[i])
		}
	}
	return out
}

// nearestKnot is the index of the knot closest to x.
func nearestKnot(t []float64, x float64) int {
	i := sort.SearchFloat64s(t, x)
	if i == len(t) {
		return i - 1
	}
	if i > 0 && x-t[i-1] < t[i]-x {
		return i - 1
	}
	return i
}
