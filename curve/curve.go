// Package curve implements the ISDA term structures used for discounting and
// survival: piecewise-linear interpolation of r*t between knots, which is a
// piecewise-constant forward (or hazard) rate.
package curve

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrInvalidKnots is returned for empty, mismatched or non-increasing knots.
	ErrInvalidKnots = errors.New("invalid curve knots")
)

// TermStructure is the read-only view the leg integrators need.
type TermStructure interface {
	RT(t float64) float64
	RTAndSensitivity(t float64, node int) (float64, float64)
}

// Curve holds knot times and the cumulative rate-time product RT at each knot.
// A Curve is never modified after construction.
type Curve struct {
	reference time.Time
	t         []float64
	rt        []float64
}

func newCurve(t, rt []float64) (Curve, error) {
	n := len(t)
	if n == 0 || len(rt) != n {
		return Curve{}, fmt.Errorf("%d times, %d values: %w", n, len(rt), ErrInvalidKnots)
	}
	if t[0] <= 0 {
		return Curve{}, fmt.Errorf("first knot %g must be positive: %w", t[0], ErrInvalidKnots)
	}
	for i := 1; i < n; i++ {
		if t[i] <= t[i-1] {
			return Curve{}, fmt.Errorf("knot %d (%g) not after %g: %w", i, t[i], t[i-1], ErrInvalidKnots)
		}
	}
	return Curve{
		t:  append([]float64(nil), t...),
		rt: append([]float64(nil), rt...),
	}, nil
}

func fromRates(t, r []float64) (Curve, error) {
	if len(r) != len(t) {
		return Curve{}, fmt.Errorf("%d times, %d rates: %w", len(t), len(r), ErrInvalidKnots)
	}
	rt := make([]float64, len(t))
	for i := range t {
		rt[i] = r[i] * t[i]
	}
	return newCurve(t, rt)
}

func (c Curve) clone() Curve {
	return Curve{
		reference: c.reference,
		t:         append([]float64(nil), c.t...),
		rt:        append([]float64(nil), c.rt...),
	}
}

// ReferenceDate is the date times are measured from (zero if never set).
func (c Curve) ReferenceDate() time.Time { return c.reference }

// NumKnots returns the number of knots.
func (c Curve) NumKnots() int { return len(c.t) }

// TimeAt returns the time of knot i.
func (c Curve) TimeAt(i int) float64 { return c.t[i] }

// RTAt returns RT at knot i.
func (c Curve) RTAt(i int) float64 { return c.rt[i] }

// ZeroRateAt returns the zero rate at knot i.
func (c Curve) ZeroRateAt(i int) float64 { return c.rt[i] / c.t[i] }

// Times returns a copy of the knot times.
func (c Curve) Times() []float64 { return append([]float64(nil), c.t...) }

// RTs returns a copy of the knot RT values.
func (c Curve) RTs() []float64 { return append([]float64(nil), c.rt...) }

// Rates returns the zero rate at each knot.
func (c Curve) Rates() []float64 {
	r := make([]float64, len(c.t))
	for i := range r {
		r[i] = c.rt[i] / c.t[i]
	}
	return r
}

// RT returns the interpolated rate-time product at t.
func (c Curve) RT(t float64) float64 {
	n := len(c.t)
	if n == 1 || t <= c.t[0] {
		return c.rt[0] * t / c.t[0]
	}
	index := sort.SearchFloat64s(c.t, t)
	if index < n && c.t[index] == t {
		return c.rt[index]
	}
	if index == n {
		// linear extrapolation of the last segment
		index--
	}
	t1, t2 := c.t[index-1], c.t[index]
	dt := t2 - t1
	return ((t2-t)*c.rt[index-1] + (t-t1)*c.rt[index]) / dt
}

// ZeroRate returns RT(t)/t.
func (c Curve) ZeroRate(t float64) float64 {
	return c.RT(t) / t
}

// DF returns exp(-RT(t)).
func (c Curve) DF(t float64) float64 {
	return math.Exp(-c.RT(t))
}

// ForwardRate returns the instantaneous forward rate dRT/dt at t.
func (c Curve) ForwardRate(t float64) float64 {
	n := len(c.t)
	if n == 1 || t <= c.t[0] {
		return c.rt[0] / c.t[0]
	}
	index := sort.SearchFloat64s(c.t, t)
	if index == n {
		index--
	}
	return (c.rt[index] - c.rt[index-1]) / (c.t[index] - c.t[index-1])
}

// RTAndSensitivity returns RT(t) and its derivative with respect to the zero
// rate at node. The sensitivity is zero unless node is one of the two knots
// bracketing t.
func (c Curve) RTAndSensitivity(t float64, node int) (float64, float64) {
	n := len(c.t)
	if n == 1 || t <= c.t[0] {
		sense := 0.0
		if node == 0 {
			sense = t
		}
		return c.rt[0] * t / c.t[0], sense
	}

	var index int
	switch {
	case t > c.t[n-1]:
		index = n - 1
	case t == c.t[node]:
		return c.rt[node], t
	case node > 0 && t > c.t[node-1] && t < c.t[node]:
		index = node
	default:
		index = sort.SearchFloat64s(c.t, t)
		if c.t[index] == t {
			return c.rt[index], 0
		}
	}

	t1, t2 := c.t[index-1], c.t[index]
	dt := t2 - t1
	w1 := (t2 - t) / dt
	w2 := (t - t1) / dt
	rt := w1*c.rt[index-1] + w2*c.rt[index]
	sense := 0.0
	switch node {
	case index:
		sense = t2 * w2
	case index - 1:
		sense = t1 * w1
	}
	return rt, sense
}

// SingleNodeSensitivity returns d exp(-RT(t)) / d r_node.
func (c Curve) SingleNodeSensitivity(t float64, node int) float64 {
	rt, sense := c.RTAndSensitivity(t, node)
	return -sense * math.Exp(-rt)
}

// NodeSensitivities returns dRT(t)/dr_i for every knot.
func (c Curve) NodeSensitivities(t float64) []float64 {
	res := make([]float64, len(c.t))
	for i := range res {
		_, res[i] = c.RTAndSensitivity(t, i)
	}
	return res
}

func (c Curve) withRate(r float64, i int) Curve {
	out := c.clone()
	out.rt[i] = r * out.t[i]
	return out
}

func (c Curve) withRates(r []float64) (Curve, error) {
	if len(r) != len(c.t) {
		return Curve{}, fmt.Errorf("%d rates for %d knots: %w", len(r), len(c.t), ErrInvalidKnots)
	}
	out := c.clone()
	for i := range r {
		out.rt[i] = r[i] * out.t[i]
	}
	return out, nil
}

func (c Curve) withDiscountFactor(df float64, i int) Curve {
	out := c.clone()
	out.rt[i] = -math.Log(df)
	return out
}

// withOffset re-anchors the curve at time offset: knots at or before offset
// are dropped and the remainder are shifted so RT(0) = 0 at the new origin.
// A negative offset keeps every knot.
func (c Curve) withOffset(offset float64) Curve {
	if offset == 0 {
		return c.clone()
	}
	index := sort.Search(len(c.t), func(i int) bool { return c.t[i] > offset })
	if index == len(c.t) {
		// every knot is behind the new origin; keep the final forward rate
		fwd := c.ForwardRate(offset)
		return Curve{reference: c.reference, t: []float64{1}, rt: []float64{fwd}}
	}
	base := c.RT(offset)
	m := len(c.t) - index
	out := Curve{reference: c.reference, t: make([]float64, m), rt: make([]float64, m)}
	for i := 0; i < m; i++ {
		out.t[i] = c.t[index+i] - offset
		out.rt[i] = c.rt[index+i] - base
	}
	return out
}

// withKnots inserts extra knots without changing RT(t) anywhere inside the
// original knot range.
func (c Curve) withKnots(extra []float64) Curve {
	times := CombineSets(c.t, extra)
	if len(times) == len(c.t) {
		return c.clone()
	}
	out := Curve{reference: c.reference, t: times, rt: make([]float64, len(times))}
	for i, x := range times {
		out.rt[i] = c.RT(x)
	}
	return out
}

func (c Curve) scaled(alpha float64, from, to int) Curve {
	out := c.clone()
	for i := from; i < to && i < len(out.rt); i++ {
		out.rt[i] *= alpha
	}
	return out
}
