package risk

import (
	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/pricer"
)

// Factors holds the single-name risk measures. Bumped measures are PV
// differences per unit notional for a one basis point move.
type Factors struct {
	pricer pricer.AnalyticPricer
}

func NewFactors(formula pricer.AccrualOnDefaultFormula) Factors {
	return Factors{pricer: pricer.NewAnalyticPricer(formula)}
}

// RecoveryRateSensitivity is dPV/dR, minus the zero-recovery protection
// leg.
func (f Factors) RecoveryRateSensitivity(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve) float64 {
	return -f.pricer.ProtectionLeg(c.WithRecoveryRate(0), yc, cc)
}

// ValueOnDefault is the gain to the protection buyer from an immediate
// default.
func (f Factors) ValueOnDefault(c *cds.CDS, coupon float64, yc *curve.YieldCurve, cc *curve.HazardCurve) float64 {
	return c.LGD() - f.pricer.PV(c, yc, cc, coupon, pricer.Clean)
}

// ParallelIR01 bumps every yield curve zero rate by one basis point.
func (f Factors) ParallelIR01(c *cds.CDS, coupon float64, yc *curve.YieldCurve, cc *curve.HazardCurve) float64 {
	base := f.pricer.PV(c, yc, cc, coupon, pricer.Dirty)
	return f.pricer.PV(c, yc.Bumped(oneBP), cc, coupon, pricer.Dirty) - base
}

// BucketedIR01 bumps one yield curve zero rate at a time.
func (f Factors) BucketedIR01(c *cds.CDS, coupon float64, yc *curve.YieldCurve, cc *curve.HazardCurve) []float64 {
	base := f.pricer.PV(c, yc, cc, coupon, pricer.Dirty)
	out := make([]float64, yc.NumKnots())
	for i := range out {
		out[i] = f.pricer.PV(c, yc.WithRate(yc.ZeroRateAt(i)+oneBP, i), cc, coupon, pricer.Dirty) - base
	}
	return out
}

// AnalyticIR01 is the first order BucketedIR01 from the analytic yield
// sensitivities.
func (f Factors) AnalyticIR01(c *cds.CDS, coupon float64, yc *curve.YieldCurve, cc *curve.HazardCurve) []float64 {
	out := make([]float64, yc.NumKnots())
	for i := range out {
		out[i] = oneBP * f.pricer.PVYieldSensitivity(c, yc, cc, coupon, i)
	}
	return out
}

// ParallelHazardCS01 bumps every hazard zero rate by one basis point.
func (f Factors) ParallelHazardCS01(c *cds.CDS, coupon float64, yc *curve.YieldCurve, cc *curve.HazardCurve) float64 {
	base := f.pricer.PV(c, yc, cc, coupon, pricer.Clean)
	return f.pricer.PV(c, yc, cc.Bumped(oneBP), coupon, pricer.Clean) - base
}
