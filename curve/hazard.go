package curve

import (
	"fmt"
	"time"
)

// HazardCurve is a credit curve: Q(t) = exp(-RT(t)) is the survival
// probability and RT(t)/t the average hazard rate to t.
type HazardCurve struct {
	Curve
}

// NewHazardCurve builds a credit curve from knot times and zero hazard rates.
func NewHazardCurve(t, rates []float64) (*HazardCurve, error) {
	c, err := fromRates(t, rates)
	if err != nil {
		return nil, fmt.Errorf("NewHazardCurve: %w", err)
	}
	return &HazardCurve{Curve: c}, nil
}

// NewHazardCurveFromRT builds a credit curve directly from RT values.
func NewHazardCurveFromRT(t, rt []float64) (*HazardCurve, error) {
	c, err := newCurve(t, rt)
	if err != nil {
		return nil, fmt.Errorf("NewHazardCurveFromRT: %w", err)
	}
	return &HazardCurve{Curve: c}, nil
}

// NewFlatHazardCurve is a single-knot curve with a constant hazard rate.
func NewFlatHazardCurve(rate float64) *HazardCurve {
	return &HazardCurve{Curve: Curve{t: []float64{1}, rt: []float64{rate}}}
}

// SurvivalProbability returns exp(-RT(t)).
func (c *HazardCurve) SurvivalProbability(t float64) float64 {
	return c.DF(t)
}

// HazardRate is the instantaneous hazard rate at t.
func (c *HazardCurve) HazardRate(t float64) float64 {
	return c.ForwardRate(t)
}

// WithReferenceDate returns a copy anchored at d.
func (c *HazardCurve) WithReferenceDate(d time.Time) *HazardCurve {
	out := c.clone()
	out.reference = d
	return &HazardCurve{Curve: out}
}

// WithRate returns a copy with the zero hazard rate at knot i replaced.
func (c *HazardCurve) WithRate(r float64, i int) *HazardCurve {
	return &HazardCurve{Curve: c.withRate(r, i)}
}

// WithRates returns a copy with every zero hazard rate replaced.
func (c *HazardCurve) WithRates(r []float64) (*HazardCurve, error) {
	out, err := c.withRates(r)
	if err != nil {
		return nil, fmt.Errorf("HazardCurve.WithRates: %w", err)
	}
	return &HazardCurve{Curve: out}, nil
}

// WithSurvivalProbability returns a copy where Q(t_i) = q.
func (c *HazardCurve) WithSurvivalProbability(q float64, i int) *HazardCurve {
	return &HazardCurve{Curve: c.withDiscountFactor(q, i)}
}

// WithOffset moves the curve origin forward by offset years.
func (c *HazardCurve) WithOffset(offset float64) *HazardCurve {
	return &HazardCurve{Curve: c.withOffset(offset)}
}

// WithKnots inserts extra knots; survival probabilities inside the original
// knot range are unchanged.
func (c *HazardCurve) WithKnots(extra []float64) *HazardCurve {
	return &HazardCurve{Curve: c.withKnots(extra)}
}

// Scaled multiplies RT by alpha at knots [from, to).
func (c *HazardCurve) Scaled(alpha float64, from, to int) *HazardCurve {
	return &HazardCurve{Curve: c.scaled(alpha, from, to)}
}

// Bumped returns a copy with every zero hazard rate shifted by bump.
func (c *HazardCurve) Bumped(bump float64) *HazardCurve {
	r := c.Rates()
	for i := range r {
		r[i] += bump
	}
	out, _ := c.withRates(r)
	return &HazardCurve{Curve: out}
}
