package curve

import (
	"fmt"
	"math"
)

// Builder is a mutable knot arena used inside bootstrap loops, where copying
// the whole curve on every trial rate would be quadratic. Published curves
// never share storage with the builder.
type Builder struct {
	c Curve
}

// NewBuilder starts an arena on the given knot times with all rates zero.
func NewBuilder(t []float64) (*Builder, error) {
	c, err := newCurve(t, make([]float64, len(t)))
	if err != nil {
		return nil, fmt.Errorf("NewBuilder: %w", err)
	}
	return &Builder{c: c}, nil
}

// BuilderFrom copies an existing curve into a new arena.
func BuilderFrom(c Curve) *Builder {
	return &Builder{c: c.clone()}
}

// SetRate overwrites the zero rate at knot i in place.
func (b *Builder) SetRate(r float64, i int) {
	b.c.rt[i] = r * b.c.t[i]
}

// SetDiscountFactor sets RT at knot i to -ln(df) in place.
func (b *Builder) SetDiscountFactor(df float64, i int) {
	b.c.rt[i] = -math.Log(df)
}

// RT implements TermStructure.
func (b *Builder) RT(t float64) float64 { return b.c.RT(t) }

// RTAndSensitivity implements TermStructure.
func (b *Builder) RTAndSensitivity(t float64, node int) (float64, float64) {
	return b.c.RTAndSensitivity(t, node)
}

// SingleNodeSensitivity is d exp(-RT(t)) / d r_node on the working curve.
func (b *Builder) SingleNodeSensitivity(t float64, node int) float64 {
	return b.c.SingleNodeSensitivity(t, node)
}

// NumKnots returns the number of knots.
func (b *Builder) NumKnots() int { return len(b.c.t) }

// TimeAt returns the time of knot i.
func (b *Builder) TimeAt(i int) float64 { return b.c.t[i] }

// RTAt returns RT at knot i.
func (b *Builder) RTAt(i int) float64 { return b.c.rt[i] }

// ZeroRateAt returns the zero rate at knot i.
func (b *Builder) ZeroRateAt(i int) float64 { return b.c.ZeroRateAt(i) }

// HazardCurve publishes a snapshot of the arena as a credit curve.
func (b *Builder) HazardCurve() *HazardCurve {
	return &HazardCurve{Curve: b.c.clone()}
}

// YieldCurve publishes a snapshot of the arena as a discount curve.
func (b *Builder) YieldCurve() *YieldCurve {
	return &YieldCurve{Curve: b.c.clone()}
}
