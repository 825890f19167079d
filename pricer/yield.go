package pricer

import (
	"math"

	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/maths"
)

// ProtectionLegYieldSensitivity is the derivative of ProtectionLeg with
// respect to the zero rate of the yield curve at node.
func (p AnalyticPricer) ProtectionLegYieldSensitivity(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve, node int) float64 {
	if c.Expired() {
		return 0
	}
	df := yc.DF(c.CashSettleTime())
	sense := 0.0
	if !outsideSupport(yc.Curve, node, c.EffectiveProtectionStart(), c.ProtectionEnd()) {
		sense = c.LGD() * protectionYieldSense(
			integrationPoints(c.EffectiveProtectionStart(), c.ProtectionEnd(), yc, cc), yc, cc, node) / df
	}
	if dfSense := yc.SingleNodeSensitivity(c.CashSettleTime(), node); dfSense != 0 {
		sense -= p.ProtectionLeg(c, yc, cc) / df * dfSense
	}
	return sense
}

// AnnuityYieldSensitivity is the derivative of Annuity with respect to the
// zero rate of the yield curve at node. The accrued premium is paid at cash
// settlement, so clean and dirty annuities share it.
func (p AnalyticPricer) AnnuityYieldSensitivity(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve, node int) float64 {
	if c.Expired() {
		return 0
	}
	sense := 0.0
	n := c.NumPayments()
	for i := 0; i < n; i++ {
		cp := c.Coupon(i)
		dpdr := yc.SingleNodeSensitivity(cp.PaymentTime, node)
		if dpdr == 0 {
			continue
		}
		sense += cp.YearFrac * cc.DF(cp.EffEnd) * dpdr
	}
	if c.PayAccOnDefault() {
		knots := integrationPoints(annuityStart(c), c.ProtectionEnd(), yc, cc)
		for i := 0; i < n; i++ {
			sense += p.accrualYieldSense(c.Coupon(i), c.EffectiveProtectionStart(), knots, yc, cc, node)
		}
	}

	df := yc.DF(c.CashSettleTime())
	sense /= df
	if dfSense := yc.SingleNodeSensitivity(c.CashSettleTime(), node); dfSense != 0 {
		sense -= p.dirtyAnnuity(c, yc, cc) / (df * df) * dfSense
	}
	return sense
}

// PVYieldSensitivity is the derivative of the clean PV with respect to the
// zero rate of the yield curve at node.
func (p AnalyticPricer) PVYieldSensitivity(c *cds.CDS, yc *curve.YieldCurve, cc *curve.HazardCurve, coupon float64, node int) float64 {
	if c.Expired() {
		return 0
	}
	return p.ProtectionLegYieldSensitivity(c, yc, cc, node) - coupon*p.AnnuityYieldSensitivity(c, yc, cc, node)
}

func protectionYieldSense(grid []float64, yc *curve.YieldCurve, cc *curve.HazardCurve, node int) float64 {
	ht0 := cc.RT(grid[0])
	rt0 := yc.RT(grid[0])
	q0 := math.Exp(-ht0)
	p0 := math.Exp(-rt0)
	dpdr0 := yc.SingleNodeSensitivity(grid[0], node)

	sense := 0.0
	for i := 1; i < len(grid); i++ {
		ht1 := cc.RT(grid[i])
		rt1 := yc.RT(grid[i])
		q1 := math.Exp(-ht1)
		p1 := math.Exp(-rt1)
		dpdr1 := yc.SingleNodeSensitivity(grid[i], node)
		if dpdr0 != 0 || dpdr1 != 0 {
			dht := ht1 - ht0
			dhrt := dht + rt1 - rt0
			eps := maths.Epsilon(-dhrt)
			epsP := maths.EpsilonP(-dhrt)
			dPVdp0 := q0 * dht * (eps - epsP)
			dPVdp1 := dht * p0 * q0 / p1 * epsP
			sense += dPVdp0*dpdr0 + dPVdp1*dpdr1
		}
		ht0, rt0, p0, q0, dpdr0 = ht1, rt1, p1, q1, dpdr1
	}
	return sense
}

func (p AnalyticPricer) accrualYieldSense(cp cds.Coupon, protectionStart float64, integration []float64, yc *curve.YieldCurve, cc *curve.HazardCurve, node int) float64 {
	start := math.Max(cp.EffStart, protectionStart)
	if start >= cp.EffEnd {
		return 0
	}
	knots := curve.TruncateSetInclusive(start, cp.EffEnd, integration)
	omega := p.formula.omega()

	ht0 := cc.RT(knots[0])
	rt0 := yc.RT(knots[0])
	p0 := math.Exp(-rt0)
	q0 := math.Exp(-ht0)
	b0 := p0 * q0
	dpdr0 := yc.SingleNodeSensitivity(knots[0], node)
	t0 := knots[0] - cp.EffStart + omega

	sense := 0.0
	for j := 1; j < len(knots); j++ {
		ht1 := cc.RT(knots[j])
		rt1 := yc.RT(knots[j])
		p1 := math.Exp(-rt1)
		q1 := math.Exp(-ht1)
		b1 := p1 * q1
		dpdr1 := yc.SingleNodeSensitivity(knots[j], node)
		t1 := knots[j] - cp.EffStart + omega
		dt := knots[j] - knots[j-1]
		dht := ht1 - ht0
		dhrt := dht + rt1 - rt0

		var dPVdp0, dPVdp1 float64
		small := math.Abs(dhrt) < smallStep
		switch {
		case p.formula == MarkitFix && small:
			epsP := maths.EpsilonP(-dhrt)
			epsPP := maths.EpsilonPP(-dhrt)
			dPVdp0 = dht * dt * q0 * (epsP - epsPP)
			dPVdp1 = dht * dt * b0 * epsPP / p1
		case p.formula == MarkitFix:
			w := (b0-b1)/dhrt - b1
			w3 := dht / dhrt
			dPVdp0 = dt * w3 * (q0/dhrt - (b0-b1)/(dhrt*dhrt*p0) - w/(dhrt*p0))
			dPVdp1 = dt * w3 * (-q1/dhrt + (b0-b1)/(dhrt*dhrt*p1) - q1 + w/(dhrt*p1))
		case small:
			eps := maths.Epsilon(-dhrt)
			epsP := maths.EpsilonP(-dhrt)
			epsPP := maths.EpsilonPP(-dhrt)
			w1 := t0*eps + dt*epsP
			w2 := t0*epsP + dt*epsPP
			dPVdp0 = dht * q0 * (w1 - w2)
			dPVdp1 = dht * b0 * w2 / p1
		default:
			w1 := dt / dhrt
			w2 := dht / dhrt
			a := (t0+w1)*b0 - (t1+w1)*b1
			w5 := w1 / dhrt * (b0 - b1)
			dPVdp0 = w2 * ((t0+w1)*q0 - w5/p0 - a/(dhrt*p0))
			dPVdp1 = w2 * (-(t1+w1)*q1 + w5/p1 + a/(dhrt*p1))
		}
		sense += dPVdp0*dpdr0 + dPVdp1*dpdr1

		t0 = t1
		ht0, rt0, p0, q0, b0, dpdr0 = ht1, rt1, p1, q1, b1, dpdr1
	}
	return cp.YFRatio * sense
}
