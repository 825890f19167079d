package curve

import (
	"fmt"
	"time"
)

// YieldCurve is a discount curve: DF(t) = exp(-RT(t)).
type YieldCurve struct {
	Curve
}

// NewYieldCurve builds a yield curve from knot times and continuously
// compounded zero rates.
func NewYieldCurve(t, rates []float64) (*YieldCurve, error) {
	c, err := fromRates(t, rates)
	if err != nil {
		return nil, fmt.Errorf("NewYieldCurve: %w", err)
	}
	return &YieldCurve{Curve: c}, nil
}

// NewYieldCurveFromRT builds a yield curve directly from RT values.
func NewYieldCurveFromRT(t, rt []float64) (*YieldCurve, error) {
	c, err := newCurve(t, rt)
	if err != nil {
		return nil, fmt.Errorf("NewYieldCurveFromRT: %w", err)
	}
	return &YieldCurve{Curve: c}, nil
}

// NewFlatYieldCurve is a single-knot curve with a constant zero rate.
func NewFlatYieldCurve(rate float64) *YieldCurve {
	return &YieldCurve{Curve: Curve{t: []float64{1}, rt: []float64{rate}}}
}

// DiscountFactor returns exp(-RT(t)).
func (c *YieldCurve) DiscountFactor(t float64) float64 {
	return c.DF(t)
}

// WithReferenceDate returns a copy anchored at d.
func (c *YieldCurve) WithReferenceDate(d time.Time) *YieldCurve {
	out := c.clone()
	out.reference = d
	return &YieldCurve{Curve: out}
}

// WithRate returns a copy with the zero rate at knot i replaced.
func (c *YieldCurve) WithRate(r float64, i int) *YieldCurve {
	return &YieldCurve{Curve: c.withRate(r, i)}
}

// WithRates returns a copy with every zero rate replaced.
func (c *YieldCurve) WithRates(r []float64) (*YieldCurve, error) {
	out, err := c.withRates(r)
	if err != nil {
		return nil, fmt.Errorf("YieldCurve.WithRates: %w", err)
	}
	return &YieldCurve{Curve: out}, nil
}

// WithDiscountFactor returns a copy where knot i reprices to df.
func (c *YieldCurve) WithDiscountFactor(df float64, i int) *YieldCurve {
	return &YieldCurve{Curve: c.withDiscountFactor(df, i)}
}

// WithOffset moves the curve origin forward by offset years.
func (c *YieldCurve) WithOffset(offset float64) *YieldCurve {
	return &YieldCurve{Curve: c.withOffset(offset)}
}

// Bumped returns a copy with every zero rate shifted by bump.
func (c *YieldCurve) Bumped(bump float64) *YieldCurve {
	r := c.Rates()
	for i := range r {
		r[i] += bump
	}
	out, _ := c.withRates(r)
	return &YieldCurve{Curve: out}
}
