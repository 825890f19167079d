package risk

import (
	"fmt"

	"github.com/meenmo/cdslib/calibrate"
	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/pricer"
)

// AnalyticSpreadSensitivity computes CS01 from analytic curve derivatives
// instead of bump and rebuild. Results are dPV/dS per unit notional and
// per unit spread; multiply by 1e-4 for a one basis point move.
type AnalyticSpreadSensitivity struct {
	pricer  pricer.AnalyticPricer
	builder calibrate.Builder
	quotes  calibrate.QuoteConverter
}

func NewAnalyticSpreadSensitivity(formula pricer.AccrualOnDefaultFormula) AnalyticSpreadSensitivity {
	return AnalyticSpreadSensitivity{
		pricer:  pricer.NewAnalyticPricer(formula),
		builder: calibrate.FastBuilder{Formula: formula},
		quotes:  calibrate.NewQuoteConverter(formula),
	}
}

// ParallelCS01FromPUF is the sensitivity of a contract trading at puf to
// its flat-curve par spread.
func (a AnalyticSpreadSensitivity) ParallelCS01FromPUF(c *cds.CDS, coupon, puf float64, yc *curve.YieldCurve) (float64, error) {
	cc, err := a.builder.Calibrate([]*cds.CDS{c}, []float64{coupon}, []float64{puf}, yc)
	if err != nil {
		return 0, fmt.Errorf("ParallelCS01FromPUF: %w", err)
	}
	prot := a.pricer.ProtectionLeg(c, yc, cc)
	ann := a.pricer.Annuity(c, yc, cc, pricer.Clean)
	dProt := a.pricer.ProtectionLegCreditSensitivity(c, yc, cc, 0)
	dAnn := a.pricer.AnnuityCreditSensitivity(c, yc, cc, 0, pricer.Clean)
	s := prot / ann
	dPVdh := dProt - coupon*dAnn
	dSdh := (dProt - s*dAnn) / ann
	return dPVdh / dSdh, nil
}

// ParallelCS01FromSpread is ParallelCS01FromPUF for a contract quoted by
// its flat-curve spread.
func (a AnalyticSpreadSensitivity) ParallelCS01FromSpread(c *cds.CDS, coupon, marketSpread float64, yc *curve.YieldCurve) (float64, error) {
	cc, err := a.builder.Calibrate([]*cds.CDS{c}, []float64{marketSpread}, []float64{0}, yc)
	if err != nil {
		return 0, fmt.Errorf("ParallelCS01FromSpread: %w", err)
	}
	ann := a.pricer.ProtectionLeg(c, yc, cc) / marketSpread
	diff := marketSpread - coupon
	if diff == 0 {
		return ann, nil
	}
	dProt := a.pricer.ProtectionLegCreditSensitivity(c, yc, cc, 0)
	dAnn := a.pricer.AnnuityCreditSensitivity(c, yc, cc, 0, pricer.Clean)
	dSdh := dProt - marketSpread*dAnn
	return ann * (1 + diff*dAnn/dSdh), nil
}

// ParallelCS01 converts q to upfront and applies ParallelCS01FromPUF.
func (a AnalyticSpreadSensitivity) ParallelCS01(c *cds.CDS, q cds.Quote, yc *curve.YieldCurve) (float64, error) {
	premium, puf, err := a.quotes.ToPUF(c, q, yc)
	if err != nil {
		return 0, fmt.Errorf("ParallelCS01: %w", err)
	}
	return a.ParallelCS01FromPUF(c, premium, puf, yc)
}

// BucketedCS01FromCreditCurve is the sensitivity of c to the par spread of
// each bucket contract, holding the others fixed.
func (a AnalyticSpreadSensitivity) BucketedCS01FromCreditCurve(c *cds.CDS, coupon float64, buckets []*cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve) ([]float64, error) {
	n := cc.NumKnots()
	target := make([]float64, n)
	jac := make([][]float64, n)
	for i := 0; i < n; i++ {
		target[i] = a.pricer.PVCreditSensitivity(c, yc, cc, coupon, i)
		jac[i] = make([]float64, len(buckets))
		for j, b := range buckets {
			jac[i][j] = a.pricer.ParSpreadCreditSensitivity(b, yc, cc, i)
		}
	}
	out, err := SolveHedge(target, jac)
	if err != nil {
		return nil, fmt.Errorf("BucketedCS01FromCreditCurve: %w", err)
	}
	return out, nil
}

// ParallelCS01FromCreditCurve sums the bucketed CS01.
func (a AnalyticSpreadSensitivity) ParallelCS01FromCreditCurve(c *cds.CDS, coupon float64, buckets []*cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve) (float64, error) {
	b, err := a.BucketedCS01FromCreditCurve(c, coupon, buckets, yc, cc)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, v := range b {
		sum += v
	}
	return sum, nil
}

// BucketedCS01 fits the curve to the pillar quotes, then buckets c against
// the pillars.
func (a AnalyticSpreadSensitivity) BucketedCS01(c *cds.CDS, coupon float64, pillars []*cds.CDS, quotes []cds.Quote, yc *curve.YieldCurve) ([]float64, error) {
	cc, err := calibrate.CalibrateFromQuotes(a.builder, a.quotes, pillars, quotes, yc)
	if err != nil {
		return nil, fmt.Errorf("BucketedCS01: %w", err)
	}
	return a.BucketedCS01FromCreditCurve(c, coupon, pillars, yc, cc)
}

// BucketedCS01FromParSpreads is BucketedCS01 with every pillar quoted at
// par.
func (a AnalyticSpreadSensitivity) BucketedCS01FromParSpreads(c *cds.CDS, coupon float64, pillars []*cds.CDS, spreads []float64, yc *curve.YieldCurve) ([]float64, error) {
	cc, err := a.builder.Calibrate(pillars, spreads, make([]float64, len(pillars)), yc)
	if err != nil {
		return nil, fmt.Errorf("BucketedCS01FromParSpreads: %w", err)
	}
	return a.BucketedCS01FromCreditCurve(c, coupon, pillars, yc, cc)
}
