package curve_test

import (
	"errors"
	"math"
	"testing"

	"github.com/meenmo/cdslib/curve"
)

func sampleHazard(t *testing.T) *curve.HazardCurve {
	t.Helper()
	cc, err := curve.NewHazardCurve([]float64{0.5, 1, 3, 5, 7, 10}, []float64{0.01, 0.012, 0.015, 0.017, 0.018, 0.02})
	if err != nil {
		t.Fatalf("NewHazardCurve error: %v", err)
	}
	return cc
}

func TestNewCurve_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		t, r []float64
	}{
		{"empty", nil, nil},
		{"mismatch", []float64{1, 2}, []float64{0.01}},
		{"not increasing", []float64{1, 1}, []float64{0.01, 0.02}},
		{"non-positive", []float64{0, 1}, []float64{0.01, 0.02}},
	}
	for _, tc := range cases {
		if _, err := curve.NewYieldCurve(tc.t, tc.r); !errors.Is(err, curve.ErrInvalidKnots) {
			t.Fatalf("%s: expected ErrInvalidKnots, got %v", tc.name, err)
		}
	}
}

func TestRT_InterpolationAndExtrapolation(t *testing.T) {
	t.Parallel()

	cc := sampleHazard(t)
	n := cc.NumKnots()

	// before the first knot RT decays linearly to the origin
	x := 0.2
	if got, want := cc.RT(x), cc.RTAt(0)*x/cc.TimeAt(0); math.Abs(got-want) > 1e-15 {
		t.Fatalf("RT before first knot: got %.12f want %.12f", got, want)
	}

	// beyond the last knot the final segment slope continues
	slope := (cc.RTAt(n-1) - cc.RTAt(n-2)) / (cc.TimeAt(n-1) - cc.TimeAt(n-2))
	for _, x := range []float64{10.5, 12, 30} {
		want := cc.RTAt(n-1) + slope*(x-cc.TimeAt(n-1))
		if got := cc.RT(x); math.Abs(got-want) > 1e-13 {
			t.Fatalf("RT(%g) extrapolation: got %.12f want %.12f", x, got, want)
		}
	}

	// interior point is linear between knots
	x = 4
	want := 0.5*cc.RTAt(3) + 0.5*cc.RTAt(2)
	if got := cc.RT(x); math.Abs(got-want) > 1e-15 {
		t.Fatalf("RT(4): got %.12f want %.12f", got, want)
	}

	// knots are reproduced exactly
	for i := 0; i < n; i++ {
		if got := cc.RT(cc.TimeAt(i)); got != cc.RTAt(i) {
			t.Fatalf("RT at knot %d: got %.12f want %.12f", i, got, cc.RTAt(i))
		}
	}
}

func TestRT_SingleKnotIsFlat(t *testing.T) {
	t.Parallel()

	cc := curve.NewFlatHazardCurve(0.03)
	for _, x := range []float64{0.1, 1, 7.5} {
		if got := cc.ZeroRate(x); math.Abs(got-0.03) > 1e-15 {
			t.Fatalf("ZeroRate(%g): got %.12f", x, got)
		}
	}
	if got, want := cc.SurvivalProbability(2), math.Exp(-0.06); math.Abs(got-want) > 1e-15 {
		t.Fatalf("SurvivalProbability(2): got %.12f want %.12f", got, want)
	}
}

func TestRTAndSensitivity_MatchesBump(t *testing.T) {
	t.Parallel()

	cc := sampleHazard(t)
	const h = 1e-6
	for node := 0; node < cc.NumKnots(); node++ {
		up := cc.WithRate(cc.ZeroRateAt(node)+h, node)
		down := cc.WithRate(cc.ZeroRateAt(node)-h, node)
		for _, x := range []float64{0.25, 0.5, 0.8, 2, 3, 6, 10, 15} {
			rt, sense := cc.RTAndSensitivity(x, node)
			if math.Abs(rt-cc.RT(x)) > 1e-15 {
				t.Fatalf("RT mismatch at %g: %.12f vs %.12f", x, rt, cc.RT(x))
			}
			fd := (up.RT(x) - down.RT(x)) / (2 * h)
			if math.Abs(sense-fd) > 1e-8 {
				t.Fatalf("node %d t=%g: sense %.12f, bump %.12f", node, x, sense, fd)
			}
		}
	}
}

func TestRTAndSensitivity_LocalSupport(t *testing.T) {
	t.Parallel()

	cc := sampleHazard(t)
	// t=4 lies between knots 2 (t=3) and 3 (t=5)
	for node := 0; node < cc.NumKnots(); node++ {
		_, sense := cc.RTAndSensitivity(4, node)
		if (node == 2 || node == 3) != (sense != 0) {
			t.Fatalf("node %d: unexpected sensitivity %.12f", node, sense)
		}
	}
}

func TestWithRate_DoesNotMutate(t *testing.T) {
	t.Parallel()

	cc := sampleHazard(t)
	before := cc.RTs()
	bumped := cc.WithRate(0.5, 2)
	if bumped.ZeroRateAt(2) != 0.5 {
		t.Fatalf("WithRate not applied")
	}
	for i, v := range cc.RTs() {
		if v != before[i] {
			t.Fatalf("original curve mutated at %d", i)
		}
	}
}

func TestWithOffset(t *testing.T) {
	t.Parallel()

	yc, err := curve.NewYieldCurve([]float64{0.25, 1, 2, 5}, []float64{0.01, 0.015, 0.02, 0.025})
	if err != nil {
		t.Fatalf("NewYieldCurve error: %v", err)
	}
	offset := 1.5
	shifted := yc.WithOffset(offset)
	if shifted.NumKnots() != 2 {
		t.Fatalf("expected 2 knots after offset, got %d", shifted.NumKnots())
	}
	// forward discount factors are preserved
	for _, x := range []float64{0.1, 0.5, 2, 3.5} {
		want := yc.DF(x+offset) / yc.DF(offset)
		if got := shifted.DF(x); x >= 0.5 && math.Abs(got-want) > 1e-14 {
			t.Fatalf("DF(%g) after offset: got %.12f want %.12f", x, got, want)
		}
	}

	neg := yc.WithOffset(-2.0 / 365)
	if neg.NumKnots() != yc.NumKnots() {
		t.Fatalf("negative offset dropped knots")
	}
	if got, want := neg.TimeAt(0), 0.25+2.0/365; math.Abs(got-want) > 1e-15 {
		t.Fatalf("negative offset time: got %.12f want %.12f", got, want)
	}
}

func TestWithKnots_PreservesCurve(t *testing.T) {
	t.Parallel()

	cc := sampleHazard(t)
	ext := cc.WithKnots([]float64{2, 4.5})
	if ext.NumKnots() != cc.NumKnots()+2 {
		t.Fatalf("expected %d knots, got %d", cc.NumKnots()+2, ext.NumKnots())
	}
	for _, x := range []float64{0.3, 1.5, 2, 4, 4.5, 9} {
		if math.Abs(ext.RT(x)-cc.RT(x)) > 1e-15 {
			t.Fatalf("RT(%g) changed: %.12f vs %.12f", x, ext.RT(x), cc.RT(x))
		}
	}
}

func TestBuilder_SnapshotIsolation(t *testing.T) {
	t.Parallel()

	b, err := curve.NewBuilder([]float64{1, 2})
	if err != nil {
		t.Fatalf("NewBuilder error: %v", err)
	}
	b.SetRate(0.02, 0)
	b.SetRate(0.03, 1)
	snap := b.HazardCurve()
	b.SetRate(0.5, 1)
	if snap.ZeroRateAt(1) != 0.03 {
		t.Fatalf("snapshot shares storage with builder")
	}
	if b.ZeroRateAt(1) != 0.5 {
		t.Fatalf("builder not updated")
	}
}
