package pricer

import (
	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
)

// AnalyticPricer prices CDSs from a yield curve and a credit curve. All
// values are per unit notional, seen from the cash-settle date unless a
// valuation time is given.
type AnalyticPricer struct {
	formula AccrualOnDefaultFormula
}

// NewAnalyticPricer returns a pricer using the given accrual-on-default formula.
func NewAnalyticPricer(formula AccrualOnDefaultFormula) AnalyticPricer {
	if formula == "" {
		formula = OriginalISDA
	}
	return AnalyticPricer{formula: formula}
}

// DefaultPricer matches ISDA model 1.8.2.
func DefaultPricer() AnalyticPricer {
	return NewAnalyticPricer(OriginalISDA)
}

// Formula returns the accrual-on-default formula.
func (p AnalyticPricer) Formula() AccrualOnDefaultFormula { return p.formula }

// PV is the value to the protection buyer of a contract paying coupon.
func (p AnalyticPricer) PV(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve, coupon float64, pt PriceType) float64 {
	if c.Expired() {
		return 0
	}
	return p.ProtectionLeg(c, yc, cc) - coupon*p.Annuity(c, yc, cc, pt)
}

// PVAt is PV rolled to valuationTime.
func (p AnalyticPricer) PVAt(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve, coupon float64, pt PriceType, valuationTime float64) float64 {
	if c.Expired() {
		return 0
	}
	return p.ProtectionLegAt(c, yc, cc, valuationTime) - coupon*p.AnnuityAt(c, yc, cc, pt, valuationTime)
}

// ParSpread is the coupon that makes the clean PV zero.
func (p AnalyticPricer) ParSpread(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve) float64 {
	if c.Expired() {
		return 0
	}
	return p.ProtectionLegAt(c, yc, cc, 0) / p.AnnuityAt(c, yc, cc, Clean, 0)
}

// ParSpreads prices a strip of contracts off the same curves.
func (p AnalyticPricer) ParSpreads(cs []*cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = p.ParSpread(c, yc, cc)
	}
	return out
}

// ProtectionLeg values the protection leg at the cash-settle date.
func (p AnalyticPricer) ProtectionLeg(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve) float64 {
	return p.ProtectionLegAt(c, yc, cc, c.CashSettleTime())
}

// ProtectionLegAt values the protection leg, LGD * int P dQ, rolled to
// valuationTime.
func (p AnalyticPricer) ProtectionLegAt(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve, valuationTime float64) float64 {
	if c.Expired() {
		return 0
	}
	e := NewProtectionLegElement(c.EffectiveProtectionStart(), c.ProtectionEnd(), yc, 0,
		integrationPoints(c.EffectiveProtectionStart(), c.ProtectionEnd(), yc, cc))
	return c.LGD() * e.PV(cc) / yc.DF(valuationTime)
}

// Annuity is the premium leg per unit coupon at the cash-settle date.
func (p AnalyticPricer) Annuity(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve, pt PriceType) float64 {
	return p.AnnuityAt(c, yc, cc, pt, c.CashSettleTime())
}

// AnnuityAt is the premium leg per unit coupon rolled to valuationTime. The
// clean annuity removes the accrued premium paid at cash settlement,
// weighted by survival to the effective protection start.
func (p AnalyticPricer) AnnuityAt(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve, pt PriceType, valuationTime float64) float64 {
	if c.Expired() {
		return 0
	}
	pv := p.dirtyAnnuity(c, yc, cc)
	valDF := yc.DF(valuationTime)
	if pt == Clean {
		csDF := valDF
		if valuationTime != c.CashSettleTime() {
			csDF = yc.DF(c.CashSettleTime())
		}
		q := 1.0
		if c.EffectiveProtectionStart() != 0 {
			q = cc.DF(c.EffectiveProtectionStart())
		}
		pv -= c.AccruedYearFraction() * csDF * q
	}
	return pv / valDF
}

// dirtyAnnuity is the risky value today of the coupons and accrual on default.
func (p AnalyticPricer) dirtyAnnuity(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve) float64 {
	pv := 0.0
	for _, e := range p.premiumElements(c, yc, cc, 0) {
		pv += e.PV(cc)
	}
	return pv
}

func (p AnalyticPricer) premiumElements(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve, node int) []LegElement {
	n := c.NumPayments()
	out := make([]LegElement, n)
	if !c.PayAccOnDefault() {
		for i := 0; i < n; i++ {
			out[i] = NewCouponOnlyElement(c.Coupon(i), yc, node)
		}
		return out
	}
	knots := integrationPoints(annuityStart(c), c.ProtectionEnd(), yc, cc)
	for i := 0; i < n; i++ {
		out[i] = NewPremiumLegElement(c.EffectiveProtectionStart(), c.Coupon(i), yc, node, knots, p.formula)
	}
	return out
}

// annuityStart is where the accrual-on-default grid begins.
func annuityStart(c *cds.CDS) float64 {
	if c.NumPayments() == 1 {
		return c.EffectiveProtectionStart()
	}
	return c.AccStart()
}

func integrationPoints(start, end float64, yc *curve.YieldCurve, cc *curve.HazardCurve) []float64 {
	return curve.IntegrationPoints(start, end, yc.Times(), cc.Times())
}

// IntegrationKnots returns the merged grid used for the contract's premium
// leg, for callers that build their own leg elements.
func IntegrationKnots(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve) []float64 {
	return integrationPoints(annuityStart(c), c.ProtectionEnd(), yc, cc)
}

// ----------------------------------------------------------------------------
// Credit curve sensitivities
// ----------------------------------------------------------------------------

// ProtectionLegCreditSensitivity is the derivative of ProtectionLeg with
// respect to the zero hazard rate at node.
func (p AnalyticPricer) ProtectionLegCreditSensitivity(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve, node int) float64 {
	if c.Expired() || outsideSupport(cc.Curve, node, c.EffectiveProtectionStart(), c.ProtectionEnd()) {
		return 0
	}
	e := NewProtectionLegElement(c.EffectiveProtectionStart(), c.ProtectionEnd(), yc, node,
		integrationPoints(c.EffectiveProtectionStart(), c.ProtectionEnd(), yc, cc))
	_, sense := e.PVAndSensitivity(cc)
	return c.LGD() * sense / yc.DF(c.CashSettleTime())
}

// AnnuityCreditSensitivity is the derivative of Annuity with respect to
// the zero hazard rate at node.
func (p AnalyticPricer) AnnuityCreditSensitivity(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve, node int, pt PriceType) float64 {
	if c.Expired() {
		return 0
	}
	sense := 0.0
	for _, e := range p.premiumElements(c, yc, cc, node) {
		_, s := e.PVAndSensitivity(cc)
		sense += s
	}
	sense /= yc.DF(c.CashSettleTime())
	if pt == Clean {
		sense -= c.AccruedYearFraction() * cc.SingleNodeSensitivity(c.EffectiveProtectionStart(), node)
	}
	return sense
}

// PVCreditSensitivity is the derivative of the clean PV with respect to the
// zero hazard rate at node.
func (p AnalyticPricer) PVCreditSensitivity(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve, coupon float64, node int) float64 {
	if c.Expired() {
		return 0
	}
	return p.ProtectionLegCreditSensitivity(c, yc, cc, node) - coupon*p.AnnuityCreditSensitivity(c, yc, cc, node, Clean)
}

// ParSpreadCreditSensitivity is the derivative of ParSpread with respect to
// the zero hazard rate at node.
func (p AnalyticPricer) ParSpreadCreditSensitivity(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve, node int) float64 {
	if c.Expired() {
		return 0
	}
	a := p.ProtectionLeg(c, yc, cc)
	b := p.Annuity(c, yc, cc, Clean)
	dadh := p.ProtectionLegCreditSensitivity(c, yc, cc, node)
	dbdh := p.AnnuityCreditSensitivity(c, yc, cc, node, Clean)
	return dadh/b - a*dbdh/(b*b)
}

// outsideSupport reports whether the knot at node cannot move any value on
// [start, end].
func outsideSupport(c curve.Curve, node int, start, end float64) bool {
	if node != 0 && end <= c.TimeAt(node-1) {
		return true
	}
	// the last two knots also drive extrapolation
	if node >= c.NumKnots()-2 {
		return false
	}
	return start >= c.TimeAt(node+1)
}
