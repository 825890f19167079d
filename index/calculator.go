package index

import (
	"fmt"

	"github.com/meenmo/cdslib/calibrate"
	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/pricer"
)

const oneBP = 1e-4

// Calculator values an index as the weighted sum of its live constituents,
// each priced as a single-name contract with the index terms.
type Calculator struct {
	pricer  pricer.AnalyticPricer
	formula pricer.AccrualOnDefaultFormula
}

// NewCalculator returns a Calculator; an empty formula is OriginalISDA.
func NewCalculator(formula pricer.AccrualOnDefaultFormula) Calculator {
	p := pricer.NewAnalyticPricer(formula)
	return Calculator{pricer: p, formula: p.Formula()}
}

// IndexProtectionLeg is the intrinsic protection leg per unit of initial
// notional, at the cash-settle date.
func (c Calculator) IndexProtectionLeg(idx *cds.CDS, yc *curve.YieldCurve, b *IntrinsicBundle) float64 {
	return c.IndexProtectionLegAt(idx, yc, b, idx.CashSettleTime())
}

// IndexProtectionLegAt is IndexProtectionLeg rolled to valuationTime.
func (c Calculator) IndexProtectionLegAt(idx *cds.CDS, yc *curve.YieldCurve, b *IntrinsicBundle, valuationTime float64) float64 {
	unit := idx.WithRecoveryRate(0)
	prot := 0.0
	for i := 0; i < b.Size(); i++ {
		if b.Defaulted(i) {
			continue
		}
		prot += b.Weight(i) * b.LGD(i) * c.pricer.ProtectionLegAt(unit, yc, b.CreditCurve(i), valuationTime)
	}
	return prot
}

// IndexAnnuity is the intrinsic annuity per unit of initial notional, at
// the cash-settle date.
func (c Calculator) IndexAnnuity(idx *cds.CDS, yc *curve.YieldCurve, b *IntrinsicBundle, pt pricer.PriceType) float64 {
	return c.IndexAnnuityAt(idx, yc, b, pt, idx.CashSettleTime())
}

// IndexAnnuityAt is IndexAnnuity rolled to valuationTime.
func (c Calculator) IndexAnnuityAt(idx *cds.CDS, yc *curve.YieldCurve, b *IntrinsicBundle, pt pricer.PriceType, valuationTime float64) float64 {
	a := 0.0
	for i := 0; i < b.Size(); i++ {
		if b.Defaulted(i) {
			continue
		}
		a += b.Weight(i) * c.pricer.AnnuityAt(idx, yc, b.CreditCurve(i), pt, valuationTime)
	}
	return a
}

// IndexPV is the intrinsic value to the protection buyer per unit of
// initial notional.
func (c Calculator) IndexPV(idx *cds.CDS, coupon float64, yc *curve.YieldCurve, b *IntrinsicBundle, pt pricer.PriceType) float64 {
	return c.IndexProtectionLeg(idx, yc, b) - coupon*c.IndexAnnuity(idx, yc, b, pt)
}

// IndexPVAt is IndexPV rolled to valuationTime.
func (c Calculator) IndexPVAt(idx *cds.CDS, coupon float64, yc *curve.YieldCurve, b *IntrinsicBundle, pt pricer.PriceType, valuationTime float64) float64 {
	return c.IndexProtectionLegAt(idx, yc, b, valuationTime) - coupon*c.IndexAnnuityAt(idx, yc, b, pt, valuationTime)
}

// IndexPUF is the clean intrinsic points upfront per unit of current
// notional.
func (c Calculator) IndexPUF(idx *cds.CDS, coupon float64, yc *curve.YieldCurve, b *IntrinsicBundle) (float64, error) {
	if b.AllDefaulted() {
		return 0, fmt.Errorf("IndexPUF: %w", ErrAllDefaulted)
	}
	return c.IndexPV(idx, coupon, yc, b, pricer.Clean) / b.IndexFactor(), nil
}

// IntrinsicSpread is the coupon at which the intrinsic clean PV is zero.
func (c Calculator) IntrinsicSpread(idx *cds.CDS, yc *curve.YieldCurve, b *IntrinsicBundle) (float64, error) {
	if b.AllDefaulted() {
		return 0, fmt.Errorf("IntrinsicSpread: %w", ErrAllDefaulted)
	}
	return c.IndexProtectionLeg(idx, yc, b) / c.IndexAnnuity(idx, yc, b, pricer.Clean), nil
}

// AverageSpread is the weighted mean of the constituent par spreads over
// the live names.
func (c Calculator) AverageSpread(idx *cds.CDS, yc *curve.YieldCurve, b *IntrinsicBundle) (float64, error) {
	if b.AllDefaulted() {
		return 0, fmt.Errorf("AverageSpread: %w", ErrAllDefaulted)
	}
	unit := idx.WithRecoveryRate(0)
	sum := 0.0
	for i := 0; i < b.Size(); i++ {
		if b.Defaulted(i) {
			continue
		}
		cc := b.CreditCurve(i)
		s := b.LGD(i) * c.pricer.ProtectionLeg(unit, yc, cc) / c.pricer.Annuity(unit, yc, cc, pricer.Clean)
		sum += b.Weight(i) * s
	}
	return sum / b.IndexFactor(), nil
}

// ImpliedIndexCurve fits a single credit curve that reprices the intrinsic
// index upfront at each pillar.
func (c Calculator) ImpliedIndexCurve(pillars []*cds.CDS, coupon float64, yc *curve.YieldCurve, b *IntrinsicBundle) (*curve.HazardCurve, error) {
	if b.AllDefaulted() {
		return nil, fmt.Errorf("ImpliedIndexCurve: %w", ErrAllDefaulted)
	}
	premiums := make([]float64, len(pillars))
	puf := make([]float64, len(pillars))
	for i, p := range pillars {
		premiums[i] = coupon
		puf[i] = c.IndexPV(p, coupon, yc, b, pricer.Clean) / b.IndexFactor()
	}
	cc, err := calibrate.AnalyticBuilder{Formula: c.formula}.Calibrate(pillars, premiums, puf, yc)
	if err != nil {
		return nil, fmt.Errorf("ImpliedIndexCurve: %w", err)
	}
	return cc, nil
}

// ExpectedDefaultSettlementValue is the expected loss paid at option
// expiry for names defaulting before it, with past defaults counted in
// full.
func (c Calculator) ExpectedDefaultSettlementValue(timeToExpiry float64, b *IntrinsicBundle) float64 {
	d := 0.0
	for i := 0; i < b.Size(); i++ {
		qBar := 1.0
		if !b.Defaulted(i) {
			qBar = 1 - b.CreditCurve(i).SurvivalProbability(timeToExpiry)
		}
		d += b.Weight(i) * b.LGD(i) * qBar
	}
	return d
}

// CurveDefaultSettlementValue is ExpectedDefaultSettlementValue for an
// index described by a single curve and LGD.
func (c Calculator) CurveDefaultSettlementValue(timeToExpiry float64, indexCurve *curve.HazardCurve, lgd float64) float64 {
	return lgd * (1 - indexCurve.SurvivalProbability(timeToExpiry))
}

// Homogeneous describes an equally weighted index that has already
// suffered defaults.
type Homogeneous struct {
	InitialSize int
	NumDefaults int
	// InitialDefaultSettlement is the settlement owed on past defaults.
	InitialDefaultSettlement float64
}

func (h Homogeneous) factor() float64 {
	return float64(h.InitialSize-h.NumDefaults) / float64(h.InitialSize)
}

// HomogeneousDefaultSettlementValue adds the expected loss of the
// surviving fraction to the settlement owed on past defaults.
func (c Calculator) HomogeneousDefaultSettlementValue(timeToExpiry float64, indexCurve *curve.HazardCurve, lgd float64, h Homogeneous) float64 {
	return h.factor()*c.CurveDefaultSettlementValue(timeToExpiry, indexCurve, lgd) + h.InitialDefaultSettlement
}

// DefaultAdjustedForwardIndexValue is the value of a forward-starting
// index contract plus the expected default settlement at expiry.
func (c Calculator) DefaultAdjustedForwardIndexValue(fwd *cds.CDS, timeToExpiry float64, yc *curve.YieldCurve, coupon float64, b *IntrinsicBundle) float64 {
	return c.IndexPV(fwd, coupon, yc, b, pricer.Clean) + c.ExpectedDefaultSettlementValue(timeToExpiry, b)
}

// CurveDefaultAdjustedForwardIndexValue is DefaultAdjustedForwardIndexValue
// with the index described by a single curve.
func (c Calculator) CurveDefaultAdjustedForwardIndexValue(fwd *cds.CDS, timeToExpiry float64, yc *curve.YieldCurve, coupon float64, indexCurve *curve.HazardCurve) float64 {
	return c.CurveDefaultSettlementValue(timeToExpiry, indexCurve, fwd.LGD()) +
		c.pricer.PV(fwd, yc, indexCurve, coupon, pricer.Clean)
}

// HomogeneousDefaultAdjustedForwardIndexValue scales the single-curve
// value by the surviving fraction of the index.
func (c Calculator) HomogeneousDefaultAdjustedForwardIndexValue(fwd *cds.CDS, timeToExpiry float64, yc *curve.YieldCurve, coupon float64, indexCurve *curve.HazardCurve, h Homogeneous) float64 {
	return c.HomogeneousDefaultSettlementValue(timeToExpiry, indexCurve, fwd.LGD(), h) +
		h.factor()*c.pricer.PV(fwd, yc, indexCurve, coupon, pricer.Clean)
}

// DefaultAdjustedForwardSpread is the forward spread including the
// expected default settlement at expiry.
func (c Calculator) DefaultAdjustedForwardSpread(fwd *cds.CDS, timeToExpiry float64, yc *curve.YieldCurve, b *IntrinsicBundle) float64 {
	prot := c.IndexProtectionLeg(fwd, yc, b)
	settle := c.ExpectedDefaultSettlementValue(timeToExpiry, b)
	return (prot + settle) / c.IndexAnnuity(fwd, yc, b, pricer.Clean)
}

// CurveDefaultAdjustedForwardSpread is DefaultAdjustedForwardSpread with
// the index described by a single curve.
func (c Calculator) CurveDefaultAdjustedForwardSpread(fwd *cds.CDS, timeToExpiry float64, yc *curve.YieldCurve, indexCurve *curve.HazardCurve) float64 {
	settle := c.CurveDefaultSettlementValue(timeToExpiry, indexCurve, fwd.LGD())
	prot := c.pricer.ProtectionLeg(fwd, yc, indexCurve)
	return (prot + settle) / c.pricer.Annuity(fwd, yc, indexCurve, pricer.Clean)
}

// HomogeneousDefaultAdjustedForwardSpread is the homogeneous variant of
// DefaultAdjustedForwardSpread.
func (c Calculator) HomogeneousDefaultAdjustedForwardSpread(fwd *cds.CDS, timeToExpiry float64, yc *curve.YieldCurve, indexCurve *curve.HazardCurve, h Homogeneous) float64 {
	f := h.factor()
	settle := c.HomogeneousDefaultSettlementValue(timeToExpiry, indexCurve, fwd.LGD(), h)
	prot := f * c.pricer.ProtectionLeg(fwd, yc, indexCurve)
	ann := f * c.pricer.Annuity(fwd, yc, indexCurve, pricer.Clean)
	return (prot + settle) / ann
}

// ParallelIR01 is the change in dirty intrinsic PV for a one basis point
// rise in every yield curve zero rate.
func (c Calculator) ParallelIR01(idx *cds.CDS, coupon float64, yc *curve.YieldCurve, b *IntrinsicBundle) float64 {
	base := c.IndexPV(idx, coupon, yc, b, pricer.Dirty)
	return c.IndexPV(idx, coupon, yc.Bumped(oneBP), b, pricer.Dirty) - base
}

// BucketedIR01 bumps one yield curve node at a time.
func (c Calculator) BucketedIR01(idx *cds.CDS, coupon float64, yc *curve.YieldCurve, b *IntrinsicBundle) []float64 {
	base := c.IndexPV(idx, coupon, yc, b, pricer.Dirty)
	out := make([]float64, yc.NumKnots())
	for i := range out {
		bumped := yc.WithRate(yc.ZeroRateAt(i)+oneBP, i)
		out[i] = c.IndexPV(idx, coupon, bumped, b, pricer.Dirty) - base
	}
	return out
}

// Recovery01 is the sensitivity of the intrinsic PV to each live name's
// recovery rate. Defaulted names report zero.
func (c Calculator) Recovery01(idx *cds.CDS, yc *curve.YieldCurve, b *IntrinsicBundle) []float64 {
	unit := idx.WithRecoveryRate(0)
	out := make([]float64, b.Size())
	for i := range out {
		if b.Defaulted(i) {
			continue
		}
		out[i] = -b.Weight(i) * c.pricer.ProtectionLeg(unit, yc, b.CreditCurve(i))
	}
	return out
}

// JumpToDefault is the change in value to the protection buyer if each
// live name defaulted now: its weighted loss less the value it carried.
func (c Calculator) JumpToDefault(idx *cds.CDS, coupon float64, yc *curve.YieldCurve, b *IntrinsicBundle) []float64 {
	out := make([]float64, b.Size())
	for i := range out {
		if b.Defaulted(i) {
			continue
		}
		pv := c.pricer.PV(idx, yc, b.CreditCurve(i), coupon, pricer.Clean)
		out[i] = b.Weight(i) * (b.LGD(i) - pv)
	}
	return out
}

// ParallelCS01 bumps the implied index curve fitted at the index maturity
// by one basis point and reports the clean PV change per unit of initial
// notional.
func (c Calculator) ParallelCS01(idx *cds.CDS, coupon float64, yc *curve.YieldCurve, b *IntrinsicBundle) (float64, error) {
	cc, err := c.ImpliedIndexCurve([]*cds.CDS{idx}, coupon, yc, b)
	if err != nil {
		return 0, fmt.Errorf("ParallelCS01: %w", err)
	}
	base := c.pricer.PV(idx, yc, cc, coupon, pricer.Clean)
	up := c.pricer.PV(idx, yc, cc.Bumped(oneBP), coupon, pricer.Clean)
	return b.IndexFactor() * (up - base), nil
}
