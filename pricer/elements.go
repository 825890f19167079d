package pricer

import (
	"math"

	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/maths"
)

// LegElement is a piece of a CDS leg whose value depends on the credit curve
// only. Yield curve discount factors are cached at construction.
type LegElement interface {
	PV(cc curve.TermStructure) float64
	PVAndSensitivity(cc curve.TermStructure) (pv, sense float64)
}

// ----------------------------------------------------------------------------
// Protection leg
// ----------------------------------------------------------------------------

// ProtectionLegElement integrates P(t) dQ(t) over [start, end].
type ProtectionLegElement struct {
	knots []float64
	rt    []float64
	p     []float64
	node  int
}

// NewProtectionLegElement caches the yield curve on the integration grid
// knots restricted to [start, end]. node is the credit curve knot the
// sensitivity is taken against.
func NewProtectionLegElement(start, end float64, yc curve.TermStructure, node int, knots []float64) *ProtectionLegElement {
	grid := curve.TruncateSetInclusive(start, end, knots)
	rt, p := discountOnGrid(yc, grid)
	return &ProtectionLegElement{knots: grid, rt: rt, p: p, node: node}
}

// PV returns the integral without the sensitivity.
func (e *ProtectionLegElement) PV(cc curve.TermStructure) float64 {
	ht0 := cc.RT(e.knots[0])
	b0 := e.p[0] * math.Exp(-ht0)
	pv := 0.0
	for i := 1; i < len(e.knots); i++ {
		ht1 := cc.RT(e.knots[i])
		b1 := e.p[i] * math.Exp(-ht1)
		dht := ht1 - ht0
		dhrt := dht + e.rt[i] - e.rt[i-1]
		if math.Abs(dhrt) < smallStep {
			pv += dht * b0 * maths.Epsilon(-dhrt)
		} else {
			pv += (b0 - b1) * dht / dhrt
		}
		ht0, b0 = ht1, b1
	}
	return pv
}

// PVAndSensitivity returns the integral and its derivative with respect to
// the zero hazard rate at the element's node.
func (e *ProtectionLegElement) PVAndSensitivity(cc curve.TermStructure) (float64, float64) {
	ht0, s0 := cc.RTAndSensitivity(e.knots[0], e.node)
	rt0 := e.rt[0]
	q0 := math.Exp(-ht0)
	dqdh0 := -s0 * q0
	p0 := e.p[0]
	b0 := p0 * q0

	pv, sense := 0.0, 0.0
	for i := 1; i < len(e.knots); i++ {
		ht1, s1 := cc.RTAndSensitivity(e.knots[i], e.node)
		rt1 := e.rt[i]
		q1 := math.Exp(-ht1)
		p1 := e.p[i]
		b1 := p1 * q1
		dqdh1 := -s1 * q1
		dht := ht1 - ht0
		drt := rt1 - rt0
		dhrt := dht + drt

		var dPV, dSense float64
		if math.Abs(dhrt) < smallStep {
			eps := maths.Epsilon(-dhrt)
			epsP := maths.EpsilonP(-dhrt)
			dPV = dht * b0 * eps
			dPVdq0 := p0 * ((1+dht)*eps - dht*epsP)
			dPVdq1 := -p0 * q0 / q1 * (eps - dht*epsP)
			dSense = dPVdq0*dqdh0 + dPVdq1*dqdh1
		} else {
			w1 := (b0 - b1) / dhrt
			dPV = dht * w1
			w := drt * w1
			dSense = ((w/q0+dht*p0)/dhrt)*dqdh0 - ((w/q1+dht*p1)/dhrt)*dqdh1
		}
		pv += dPV
		sense += dSense

		ht0, rt0, q0, p0, b0, dqdh0 = ht1, rt1, q1, p1, b1, dqdh1
	}
	return pv, sense
}

// ----------------------------------------------------------------------------
// Premium leg
// ----------------------------------------------------------------------------

// CouponOnlyElement is the risky value of one coupon payment,
// yearFrac * P(payment) * Q(effEnd), ignoring accrual on default.
type CouponOnlyElement struct {
	riskless float64
	effEnd   float64
	node     int
}

// NewCouponOnlyElement discounts the coupon on the yield curve.
func NewCouponOnlyElement(c cds.Coupon, yc curve.TermStructure, node int) *CouponOnlyElement {
	return &CouponOnlyElement{
		riskless: c.YearFrac * math.Exp(-yc.RT(c.PaymentTime)),
		effEnd:   c.EffEnd,
		node:     node,
	}
}

func (e *CouponOnlyElement) PV(cc curve.TermStructure) float64 {
	return e.riskless * math.Exp(-cc.RT(e.effEnd))
}

func (e *CouponOnlyElement) PVAndSensitivity(cc curve.TermStructure) (float64, float64) {
	ht, s := cc.RTAndSensitivity(e.effEnd, e.node)
	pv := e.riskless * math.Exp(-ht)
	return pv, -pv * s
}

// PremiumLegElement is one coupon plus its accrual paid on default.
type PremiumLegElement struct {
	CouponOnlyElement
	coupon  cds.Coupon
	formula AccrualOnDefaultFormula
	omega   float64
	knots   []float64
	rt      []float64
	p       []float64
}

// NewPremiumLegElement caches the yield curve on the integration knots that
// fall inside the coupon's effective period, clipped at protectionStart.
func NewPremiumLegElement(protectionStart float64, c cds.Coupon, yc curve.TermStructure, node int, knots []float64, formula AccrualOnDefaultFormula) *PremiumLegElement {
	e := &PremiumLegElement{
		CouponOnlyElement: *NewCouponOnlyElement(c, yc, node),
		coupon:            c,
		formula:           formula,
		omega:             formula.omega(),
	}
	start := math.Max(c.EffStart, protectionStart)
	if start < c.EffEnd {
		e.knots = curve.TruncateSetInclusive(start, c.EffEnd, knots)
		e.rt, e.p = discountOnGrid(yc, e.knots)
	}
	return e
}

func (e *PremiumLegElement) PV(cc curve.TermStructure) float64 {
	pv, _ := e.PVAndSensitivity(cc)
	return pv
}

func (e *PremiumLegElement) PVAndSensitivity(cc curve.TermStructure) (float64, float64) {
	pv, sense := e.CouponOnlyElement.PVAndSensitivity(cc)
	aod, aodSense := e.AccrualOnDefault(cc)
	return pv + aod, sense + aodSense
}

// AccrualOnDefault returns the accrual-on-default value and its node
// sensitivity.
func (e *PremiumLegElement) AccrualOnDefault(cc curve.TermStructure) (float64, float64) {
	if len(e.knots) == 0 {
		return 0, 0
	}
	var pv, sense float64
	if e.formula == MarkitFix {
		pv, sense = e.accrualMarkitFix(cc)
	} else {
		pv, sense = e.accrualISDA(cc)
	}
	return e.coupon.YFRatio * pv, e.coupon.YFRatio * sense
}

func (e *PremiumLegElement) accrualISDA(cc curve.TermStructure) (float64, float64) {
	ht0, s0 := cc.RTAndSensitivity(e.knots[0], e.node)
	rt0 := e.rt[0]
	p0 := e.p[0]
	q0 := math.Exp(-ht0)
	b0 := p0 * q0
	dqdh0 := -s0 * q0
	t0 := e.knots[0] - e.coupon.EffStart + e.omega

	pv, sense := 0.0, 0.0
	for j := 1; j < len(e.knots); j++ {
		ht1, s1 := cc.RTAndSensitivity(e.knots[j], e.node)
		rt1 := e.rt[j]
		p1 := e.p[j]
		q1 := math.Exp(-ht1)
		b1 := p1 * q1
		dqdh1 := -s1 * q1
		dt := e.knots[j] - e.knots[j-1]
		dht := ht1 - ht0
		dhrt := dht + rt1 - rt0
		t1 := e.knots[j] - e.coupon.EffStart + e.omega

		var tPV, tSense float64
		if math.Abs(dhrt) < smallStep {
			eps := maths.Epsilon(-dhrt)
			epsP := maths.EpsilonP(-dhrt)
			epsPP := maths.EpsilonPP(-dhrt)
			w1 := t0*eps + dt*epsP
			w2 := t0*epsP + dt*epsPP
			tPV = dht * b0 * w1
			dPVdq0 := p0 * ((1+dht)*w1 - dht*w2)
			dPVdq1 := b0 / q1 * (-w1 + dht*w2)
			tSense = dPVdq0*dqdh0 + dPVdq1*dqdh1
		} else {
			w1 := dt / dhrt
			w2 := dht / dhrt
			w3 := (t0+w1)*b0 - (t1+w1)*b1
			w4 := (1 - w2) / dhrt
			w5 := w1 / dhrt * (b0 - b1)
			tPV = w2 * w3
			dPVdq0 := w4*w3/q0 + w2*((t0+w1)*p0-w5/q0)
			dPVdq1 := w4*w3/q1 + w2*((t1+w1)*p1-w5/q1)
			tSense = dPVdq0*dqdh0 - dPVdq1*dqdh1
		}
		pv += tPV
		sense += tSense

		t0 = t1
		ht0, rt0, p0, q0, b0, dqdh0 = ht1, rt1, p1, q1, b1, dqdh1
	}
	return pv, sense
}

func (e *PremiumLegElement) accrualMarkitFix(cc curve.TermStructure) (float64, float64) {
	ht0, s0 := cc.RTAndSensitivity(e.knots[0], e.node)
	rt0 := e.rt[0]
	p0 := e.p[0]
	q0 := math.Exp(-ht0)
	b0 := p0 * q0
	dqdh0 := -s0 * q0

	pv, sense := 0.0, 0.0
	for j := 1; j < len(e.knots); j++ {
		ht1, s1 := cc.RTAndSensitivity(e.knots[j], e.node)
		rt1 := e.rt[j]
		p1 := e.p[j]
		q1 := math.Exp(-ht1)
		b1 := p1 * q1
		dqdh1 := -s1 * q1
		dt := e.knots[j] - e.knots[j-1]
		dht := ht1 - ht0
		dhrt := dht + rt1 - rt0

		var tPV, tSense float64
		if math.Abs(dhrt) < smallStep {
			epsP := maths.EpsilonP(-dhrt)
			epsPP := maths.EpsilonPP(-dhrt)
			tPV = dht * dt * b0 * epsP
			dPVdq0 := p0 * dt * ((1+dht)*epsP - dht*epsPP)
			dPVdq1 := b0 * dt / q1 * (-epsP + dht*epsPP)
			tSense = dPVdq0*dqdh0 + dPVdq1*dqdh1
		} else {
			w1 := (b0 - b1) / dhrt
			w2 := w1 - b1
			w3 := dht / dhrt
			w4 := dt / dhrt
			w5 := (1 - w3) * w2
			tPV = dt * w3 * w2
			dPVdq0 := w4 / q0 * (w5 + w3*(b0-w1))
			dPVdq1 := w4 / q1 * (w5 + w3*(b1*(1+dhrt)-w1))
			tSense = dPVdq0*dqdh0 - dPVdq1*dqdh1
		}
		pv += tPV
		sense += tSense

		ht0, rt0, p0, q0, b0, dqdh0 = ht1, rt1, p1, q1, b1, dqdh1
	}
	return pv, sense
}

func discountOnGrid(yc curve.TermStructure, grid []float64) ([]float64, []float64) {
	rt := make([]float64, len(grid))
	p := make([]float64, len(grid))
	for i, t := range grid {
		rt[i] = yc.RT(t)
		p[i] = math.Exp(-rt[i])
	}
	return rt, p
}
