package index_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meenmo/cdslib/calibrate"
	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/index"
	"github.com/meenmo/cdslib/pricer"
)

var tradeDate = time.Date(2014, 2, 13, 0, 0, 0, 0, time.UTC)

const coupon = 0.01

func sampleYield(t *testing.T) *curve.YieldCurve {
	t.Helper()
	yc, err := curve.NewYieldCurve([]float64{0.25, 0.5, 1, 2, 5, 10}, []float64{0.004, 0.005, 0.007, 0.011, 0.019, 0.026})
	if err != nil {
		t.Fatalf("NewYieldCurve error: %v", err)
	}
	return yc
}

func indexCDS(t *testing.T, tenor string) *cds.CDS {
	t.Helper()
	c, err := cds.NewFactory().MakeIMM(tradeDate, tenor)
	if err != nil {
		t.Fatalf("MakeIMM error: %v", err)
	}
	return c
}

// names builds n upward-sloping curves with levels spread around 100bp.
func names(t *testing.T, n int) []*curve.HazardCurve {
	t.Helper()
	out := make([]*curve.HazardCurve, n)
	for i := range out {
		level := 0.005 + 0.01*float64(i%7)/6
		cc, err := curve.NewHazardCurve([]float64{1, 3, 5, 7, 10},
			[]float64{level, level * 1.1, level * 1.2, level * 1.25, level * 1.3})
		if err != nil {
			t.Fatalf("NewHazardCurve error: %v", err)
		}
		out[i] = cc
	}
	return out
}

func recoveries(n int, r float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func bundle(t *testing.T, curves []*curve.HazardCurve) *index.IntrinsicBundle {
	t.Helper()
	b, err := index.NewIntrinsicBundle(curves, recoveries(len(curves), 0.4), nil, nil)
	if err != nil {
		t.Fatalf("NewIntrinsicBundle error: %v", err)
	}
	return b
}

func homogeneous(t *testing.T, n int, cc *curve.HazardCurve) *index.IntrinsicBundle {
	t.Helper()
	curves := make([]*curve.HazardCurve, n)
	for i := range curves {
		curves[i] = cc
	}
	return bundle(t, curves)
}

func TestIntrinsicBundle_IndexFactor(t *testing.T) {
	t.Parallel()

	b := bundle(t, names(t, 125))
	defaulted, err := b.WithDefault(3, 17, 50, 99)
	if err != nil {
		t.Fatalf("WithDefault error: %v", err)
	}
	if got, want := defaulted.IndexFactor(), 121.0/125.0; math.Abs(got-want) > 1e-15 {
		t.Fatalf("IndexFactor: got %.16f want %.16f", got, want)
	}
	if defaulted.NumDefaults() != 4 || !defaulted.Defaulted(17) {
		t.Fatalf("expected 4 defaults including name 17")
	}
	// the source bundle is untouched
	if b.IndexFactor() != 1 || b.Defaulted(17) || b.NumDefaults() != 0 {
		t.Fatalf("WithDefault modified its receiver")
	}
	if _, err := defaulted.WithDefault(50); !errors.Is(err, index.ErrInvalidBundle) {
		t.Fatalf("expected ErrInvalidBundle for a repeated default, got %v", err)
	}
}

func TestNewIntrinsicBundle_Validation(t *testing.T) {
	t.Parallel()

	curves := names(t, 3)
	cases := []struct {
		name       string
		curves     []*curve.HazardCurve
		recoveries []float64
		weights    []float64
		defaulted  []bool
	}{
		{"weights do not sum to one", curves, recoveries(3, 0.4), []float64{0.5, 0.3, 0.1}, nil},
		{"negative weight", curves, recoveries(3, 0.4), []float64{1.2, -0.1, -0.1}, nil},
		{"recovery above one", curves, []float64{0.4, 1.2, 0.4}, nil, nil},
		{"live name without curve", []*curve.HazardCurve{curves[0], nil, curves[2]}, recoveries(3, 0.4), nil, nil},
		{"length mismatch", curves, recoveries(2, 0.4), nil, nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := index.NewIntrinsicBundle(tc.curves, tc.recoveries, tc.weights, tc.defaulted); !errors.Is(err, index.ErrInvalidBundle) {
				t.Fatalf("expected ErrInvalidBundle, got %v", err)
			}
		})
	}

	b, err := index.NewIntrinsicBundle([]*curve.HazardCurve{curves[0], nil, curves[2]}, recoveries(3, 0.4), nil, []bool{false, true, false})
	if err != nil {
		t.Fatalf("defaulted name without curve should be accepted: %v", err)
	}
	if math.Abs(b.IndexFactor()-2.0/3.0) > 1e-15 {
		t.Fatalf("IndexFactor: got %.16f", b.IndexFactor())
	}
}

func TestCalculator_HomogeneousMatchesSingleName(t *testing.T) {
	t.Parallel()

	yc := sampleYield(t)
	cc := names(t, 3)[2]
	b := homogeneous(t, 125, cc)
	idx := indexCDS(t, "5Y")
	calc := index.NewCalculator(pricer.OriginalISDA)
	p := pricer.DefaultPricer()

	for _, pt := range []pricer.PriceType{pricer.Clean, pricer.Dirty} {
		got := calc.IndexPV(idx, coupon, yc, b, pt)
		want := p.PV(idx, yc, cc, coupon, pt)
		if math.Abs(got-want) > 1e-14 {
			t.Fatalf("%s IndexPV: got %.12f want %.12f", pt, got, want)
		}
	}
	par := p.ParSpread(idx, yc, cc)
	intrinsic, err := calc.IntrinsicSpread(idx, yc, b)
	if err != nil {
		t.Fatalf("IntrinsicSpread error: %v", err)
	}
	average, err := calc.AverageSpread(idx, yc, b)
	if err != nil {
		t.Fatalf("AverageSpread error: %v", err)
	}
	if math.Abs(intrinsic-par) > 1e-14 || math.Abs(average-par) > 1e-14 {
		t.Fatalf("spreads: intrinsic %.12f average %.12f par %.12f", intrinsic, average, par)
	}
}

func TestCalculator_Defaults(t *testing.T) {
	t.Parallel()

	yc := sampleYield(t)
	curves := names(t, 10)
	b, err := bundle(t, curves).WithDefault(0, 4)
	if err != nil {
		t.Fatalf("WithDefault error: %v", err)
	}
	idx := indexCDS(t, "5Y")
	calc := index.NewCalculator(pricer.OriginalISDA)
	p := pricer.DefaultPricer()

	want := 0.0
	for i, cc := range curves {
		if i == 0 || i == 4 {
			continue
		}
		want += 0.1 * p.PV(idx, yc, cc, coupon, pricer.Clean)
	}
	if got := calc.IndexPV(idx, coupon, yc, b, pricer.Clean); math.Abs(got-want) > 1e-14 {
		t.Fatalf("IndexPV: got %.12f want %.12f", got, want)
	}
	puf, err := calc.IndexPUF(idx, coupon, yc, b)
	if err != nil {
		t.Fatalf("IndexPUF error: %v", err)
	}
	if math.Abs(puf-want/0.8) > 1e-14 {
		t.Fatalf("IndexPUF: got %.12f want %.12f", puf, want/0.8)
	}

	jtd := calc.JumpToDefault(idx, coupon, yc, b)
	if jtd[0] != 0 || jtd[4] != 0 {
		t.Fatalf("defaulted names should have no jump to default: %v", jtd)
	}
	for i, v := range jtd {
		if i != 0 && i != 4 && v <= 0 {
			t.Fatalf("jump to default for name %d should be positive, got %.12f", i, v)
		}
	}

	all := make([]int, 10)
	for i := range all {
		all[i] = i
	}
	gone, err := bundle(t, curves).WithDefault(all...)
	if err != nil {
		t.Fatalf("WithDefault error: %v", err)
	}
	if _, err := calc.IndexPUF(idx, coupon, yc, gone); !errors.Is(err, index.ErrAllDefaulted) {
		t.Fatalf("expected ErrAllDefaulted, got %v", err)
	}
	if _, err := calc.IntrinsicSpread(idx, yc, gone); !errors.Is(err, index.ErrAllDefaulted) {
		t.Fatalf("expected ErrAllDefaulted, got %v", err)
	}
}

func TestCalculator_DefaultSettlementVariantsAgree(t *testing.T) {
	t.Parallel()

	yc := sampleYield(t)
	cc := names(t, 4)[3]
	b, err := homogeneous(t, 20, cc).WithDefault(2, 11, 13)
	if err != nil {
		t.Fatalf("WithDefault error: %v", err)
	}
	fwd, err := cds.NewFactory().MakeForwardStarting(tradeDate, time.Date(2014, 5, 13, 0, 0, 0, 0, time.UTC), "5Y")
	if err != nil {
		t.Fatalf("MakeForwardStarting error: %v", err)
	}
	calc := index.NewCalculator(pricer.OriginalISDA)
	expiry := 0.25
	h := index.Homogeneous{InitialSize: 20, NumDefaults: 3, InitialDefaultSettlement: 3.0 / 20 * 0.6}

	cases := []struct {
		name      string
		bundle    float64
		singleOne float64
	}{
		{"settlement", calc.ExpectedDefaultSettlementValue(expiry, b), calc.HomogeneousDefaultSettlementValue(expiry, cc, 0.6, h)},
		{"forward value", calc.DefaultAdjustedForwardIndexValue(fwd, expiry, yc, coupon, b),
			calc.HomogeneousDefaultAdjustedForwardIndexValue(fwd, expiry, yc, coupon, cc, h)},
		{"forward spread", calc.DefaultAdjustedForwardSpread(fwd, expiry, yc, b),
			calc.HomogeneousDefaultAdjustedForwardSpread(fwd, expiry, yc, cc, h)},
	}
	for _, tc := range cases {
		if math.Abs(tc.bundle-tc.singleOne) > 1e-14 {
			t.Fatalf("%s: bundle %.12f homogeneous %.12f", tc.name, tc.bundle, tc.singleOne)
		}
	}

	live := homogeneous(t, 20, cc)
	if got, want := calc.DefaultAdjustedForwardSpread(fwd, expiry, yc, live), calc.CurveDefaultAdjustedForwardSpread(fwd, expiry, yc, cc); math.Abs(got-want) > 1e-14 {
		t.Fatalf("forward spread without defaults: bundle %.12f curve %.12f", got, want)
	}
}

func TestCalculator_Recovery01IsLinear(t *testing.T) {
	t.Parallel()

	yc := sampleYield(t)
	curves := names(t, 5)
	b := bundle(t, curves)
	idx := indexCDS(t, "5Y")
	calc := index.NewCalculator(pricer.OriginalISDA)

	r01 := calc.Recovery01(idx, yc, b)
	rec := recoveries(5, 0.4)
	rec[2] = 0.41
	bumped, err := index.NewIntrinsicBundle(curves, rec, nil, nil)
	if err != nil {
		t.Fatalf("NewIntrinsicBundle error: %v", err)
	}
	diff := calc.IndexPV(idx, coupon, yc, bumped, pricer.Clean) - calc.IndexPV(idx, coupon, yc, b, pricer.Clean)
	if math.Abs(diff-0.01*r01[2]) > 1e-14 {
		t.Fatalf("Recovery01: bump %.14f vs %.14f", diff, 0.01*r01[2])
	}
}

func TestCalculator_IR01(t *testing.T) {
	t.Parallel()

	yc := sampleYield(t)
	b := bundle(t, names(t, 8))
	idx := indexCDS(t, "5Y")
	calc := index.NewCalculator(pricer.OriginalISDA)

	parallel := calc.ParallelIR01(idx, coupon, yc, b)
	buckets := calc.BucketedIR01(idx, coupon, yc, b)
	if len(buckets) != yc.NumKnots() {
		t.Fatalf("expected %d buckets, got %d", yc.NumKnots(), len(buckets))
	}
	sum := 0.0
	for _, v := range buckets {
		sum += v
	}
	if math.Abs(sum-parallel) > 1e-7 {
		t.Fatalf("bucketed IR01 sum %.12f vs parallel %.12f", sum, parallel)
	}
}

func TestCalculator_ImpliedIndexCurve(t *testing.T) {
	t.Parallel()

	yc := sampleYield(t)
	pillars, err := cds.NewFactory().MakeIMMStrip(tradeDate, []string{"3Y", "5Y", "7Y"})
	if err != nil {
		t.Fatalf("MakeIMMStrip error: %v", err)
	}
	knots := []float64{pillars[0].ProtectionEnd(), pillars[1].ProtectionEnd(), pillars[2].ProtectionEnd()}
	cc, err := curve.NewHazardCurve(knots, []float64{0.012, 0.015, 0.017})
	if err != nil {
		t.Fatalf("NewHazardCurve error: %v", err)
	}
	b := homogeneous(t, 25, cc)
	calc := index.NewCalculator(pricer.OriginalISDA)

	implied, err := calc.ImpliedIndexCurve(pillars, coupon, yc, b)
	if err != nil {
		t.Fatalf("ImpliedIndexCurve error: %v", err)
	}
	for i := range knots {
		if math.Abs(implied.ZeroRateAt(i)-cc.ZeroRateAt(i)) > 1e-9 {
			t.Fatalf("knot %d: implied %.12f want %.12f", i, implied.ZeroRateAt(i), cc.ZeroRateAt(i))
		}
	}

	cs01, err := calc.ParallelCS01(pillars[1], coupon, yc, b)
	if err != nil {
		t.Fatalf("ParallelCS01 error: %v", err)
	}
	if cs01 <= 0 {
		t.Fatalf("protection buyer should gain when hazard rises, got %.12f", cs01)
	}
}

func TestPortfolioAdjuster_SingleTerm(t *testing.T) {
	t.Parallel()

	yc := sampleYield(t)
	curves := names(t, 12)
	b, err := bundle(t, curves).WithDefault(5)
	if err != nil {
		t.Fatalf("WithDefault error: %v", err)
	}
	idx := indexCDS(t, "5Y")
	calc := index.NewCalculator(pricer.OriginalISDA)

	scaled := make([]*curve.HazardCurve, len(curves))
	for i, cc := range curves {
		scaled[i] = cc.Scaled(1.15, 0, cc.NumKnots())
	}
	target, err := b.WithCreditCurves(scaled)
	if err != nil {
		t.Fatalf("WithCreditCurves error: %v", err)
	}
	puf, err := calc.IndexPUF(idx, coupon, yc, target)
	if err != nil {
		t.Fatalf("IndexPUF error: %v", err)
	}

	adjusted, err := index.NewPortfolioAdjuster(pricer.OriginalISDA).AdjustCurves(puf, idx, coupon, yc, b)
	if err != nil {
		t.Fatalf("AdjustCurves error: %v", err)
	}
	got, err := calc.IndexPUF(idx, coupon, yc, adjusted)
	if err != nil {
		t.Fatalf("IndexPUF error: %v", err)
	}
	if math.Abs(got-puf) > 1e-10 {
		t.Fatalf("adjusted PUF %.12f want %.12f", got, puf)
	}
	if ratio := adjusted.CreditCurve(3).RTAt(2) / curves[3].RTAt(2); math.Abs(ratio-1.15) > 1e-8 {
		t.Fatalf("alpha: got %.12f want 1.15", ratio)
	}
	if !adjusted.Defaulted(5) || adjusted.IndexFactor() != b.IndexFactor() {
		t.Fatalf("adjustment should keep default status")
	}
}

func TestPortfolioAdjuster_TermStructure(t *testing.T) {
	t.Parallel()

	yc := sampleYield(t)
	curves := names(t, 9)
	b := bundle(t, curves)
	terms, err := cds.NewFactory().MakeIMMStrip(tradeDate, []string{"3Y", "5Y", "7Y"})
	if err != nil {
		t.Fatalf("MakeIMMStrip error: %v", err)
	}
	calc := index.NewCalculator(pricer.OriginalISDA)

	scaled := make([]*curve.HazardCurve, len(curves))
	for i, cc := range curves {
		scaled[i] = cc.Scaled(1.1, 0, cc.NumKnots())
	}
	target, err := b.WithCreditCurves(scaled)
	if err != nil {
		t.Fatalf("WithCreditCurves error: %v", err)
	}
	puf := make([]float64, len(terms))
	for i, c := range terms {
		if puf[i], err = calc.IndexPUF(c, coupon, yc, target); err != nil {
			t.Fatalf("IndexPUF error: %v", err)
		}
	}

	adjusted, err := index.NewPortfolioAdjuster(pricer.OriginalISDA).AdjustCurvesTerm(puf, terms, coupon, yc, b)
	if err != nil {
		t.Fatalf("AdjustCurvesTerm error: %v", err)
	}
	for i, c := range terms {
		got, err := calc.IndexPUF(c, coupon, yc, adjusted)
		if err != nil {
			t.Fatalf("IndexPUF error: %v", err)
		}
		if math.Abs(got-puf[i]) > 1e-10 {
			t.Fatalf("term %d: adjusted PUF %.12f want %.12f", i, got, puf[i])
		}
	}
	// index maturities become knots of every constituent curve
	if n := adjusted.CreditCurve(0).NumKnots(); n != curves[0].NumKnots()+len(terms) {
		t.Fatalf("expected %d knots, got %d", curves[0].NumKnots()+len(terms), n)
	}
}

func TestBuildConstituentCurves(t *testing.T) {
	t.Parallel()

	yc := sampleYield(t)
	strip, err := cds.NewFactory().MakeIMMStrip(tradeDate, []string{"1Y", "3Y", "5Y"})
	if err != nil {
		t.Fatalf("MakeIMMStrip error: %v", err)
	}
	p := pricer.DefaultPricer()
	truth := names(t, 6)
	constituents := make([]index.Constituent, 6)
	for i := range constituents {
		rec := 0.3 + 0.02*float64(i)
		n := index.Constituent{Name: string(rune('A' + i)), Recovery: rec, Premiums: []float64{coupon, coupon, coupon}, PUF: make([]float64, 3)}
		for k, c := range strip {
			n.PUF[k] = p.PV(c.WithRecoveryRate(rec), yc, truth[i], coupon, pricer.Clean)
		}
		constituents[i] = n
	}
	constituents[4].Defaulted = true

	b, err := index.BuildConstituentCurves(context.Background(), calibrate.AnalyticBuilder{}, strip, constituents, yc, 3)
	if err != nil {
		t.Fatalf("BuildConstituentCurves error: %v", err)
	}
	if b.Size() != 6 || b.NumDefaults() != 1 || b.CreditCurve(4) != nil {
		t.Fatalf("unexpected bundle: size %d defaults %d", b.Size(), b.NumDefaults())
	}
	for i, n := range constituents {
		if n.Defaulted {
			continue
		}
		if math.Abs(b.LGD(i)-(1-n.Recovery)) > 1e-15 {
			t.Fatalf("name %d: LGD %.12f", i, b.LGD(i))
		}
		for k, c := range strip {
			got := p.PV(c.WithRecoveryRate(n.Recovery), yc, b.CreditCurve(i), coupon, pricer.Clean)
			if math.Abs(got-n.PUF[k]) > 1e-10 {
				t.Fatalf("name %d pillar %d: %.12f want %.12f", i, k, got, n.PUF[k])
			}
		}
	}
}
