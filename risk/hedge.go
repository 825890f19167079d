// Package risk computes spread, rate and recovery sensitivities of CDS
// positions and the hedge ratios that neutralise them.
package risk

import (
	"errors"
	"fmt"

	"github.com/meenmo/cdslib/calibrate"
	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/maths"
	"github.com/meenmo/cdslib/pricer"
)

// ErrUnsolvable is returned when there are more hedge instruments than
// credit curve knots.
var ErrUnsolvable = errors.New("hedge system is under-determined")

const oneBP = 1e-4

// SolveHedge finds weights w with sum_j sense[i][j] w[j] = target[i] for
// every curve knot i. sense has one row per knot and one column per hedge.
// A square system is solved exactly and a tall one in the least squares
// sense; a wide one returns ErrUnsolvable.
func SolveHedge(target []float64, sense [][]float64) ([]float64, error) {
	rows := len(sense)
	if rows == 0 || len(target) != rows {
		return nil, fmt.Errorf("SolveHedge: %d knots, %d targets: %w", rows, len(target), ErrUnsolvable)
	}
	cols := len(sense[0])
	switch {
	case cols == rows:
		return maths.SolveLinear(sense, target)
	case cols < rows:
		return maths.LeastSquares(sense, target)
	default:
		return nil, fmt.Errorf("SolveHedge: %d hedges for %d knots: %w", cols, rows, ErrUnsolvable)
	}
}

// HedgeRatioCalculator hedges a CDS with other contracts on the same
// credit so the position is flat to small credit curve moves.
type HedgeRatioCalculator struct {
	pricer  pricer.AnalyticPricer
	builder calibrate.Builder
}

func NewHedgeRatioCalculator(formula pricer.AccrualOnDefaultFormula) HedgeRatioCalculator {
	return HedgeRatioCalculator{
		pricer:  pricer.NewAnalyticPricer(formula),
		builder: calibrate.FastBuilder{Formula: formula},
	}
}

// CurveSensitivities is the PV sensitivity of c to each knot of cc.
func (h HedgeRatioCalculator) CurveSensitivities(c *cds.CDS, coupon float64, yc *curve.YieldCurve, cc *curve.HazardCurve) []float64 {
	out := make([]float64, cc.NumKnots())
	for i := range out {
		out[i] = h.pricer.PVCreditSensitivity(c, yc, cc, coupon, i)
	}
	return out
}

// CurveSensitivityMatrix has element [i][j] equal to the sensitivity of
// contract j to knot i.
func (h HedgeRatioCalculator) CurveSensitivityMatrix(cs []*cds.CDS, coupons []float64, yc *curve.YieldCurve, cc *curve.HazardCurve) [][]float64 {
	out := make([][]float64, cc.NumKnots())
	for i := range out {
		out[i] = make([]float64, len(cs))
		for j, c := range cs {
			out[i][j] = h.pricer.PVCreditSensitivity(c, yc, cc, coupons[j], i)
		}
	}
	return out
}

// HedgeRatios are per unit notional of c; the hedge notionals are minus
// the ratios times the position notional.
func (h HedgeRatioCalculator) HedgeRatios(c *cds.CDS, coupon float64, hedges []*cds.CDS, hedgeCoupons []float64, yc *curve.YieldCurve, cc *curve.HazardCurve) ([]float64, error) {
	if len(hedgeCoupons) != len(hedges) {
		return nil, fmt.Errorf("HedgeRatios: %d hedges, %d coupons: %w", len(hedges), len(hedgeCoupons), cds.ErrInvalidContract)
	}
	w, err := SolveHedge(h.CurveSensitivities(c, coupon, yc, cc), h.CurveSensitivityMatrix(hedges, hedgeCoupons, yc, cc))
	if err != nil {
		return nil, fmt.Errorf("HedgeRatios: %w", err)
	}
	return w, nil
}

// HedgeRatiosFromPUF first fits a curve with the hedges as pillars.
func (h HedgeRatioCalculator) HedgeRatiosFromPUF(c *cds.CDS, coupon float64, hedges []*cds.CDS, hedgeCoupons, hedgePUF []float64, yc *curve.YieldCurve) ([]float64, error) {
	cc, err := h.builder.Calibrate(hedges, hedgeCoupons, hedgePUF, yc)
	if err != nil {
		return nil, fmt.Errorf("HedgeRatiosFromPUF: %w", err)
	}
	return h.HedgeRatios(c, coupon, hedges, hedgeCoupons, yc, cc)
}
