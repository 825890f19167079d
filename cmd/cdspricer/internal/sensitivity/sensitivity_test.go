package sensitivity_test

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/meenmo/cdslib/cmd/cdspricer/internal/sensitivity"
	"github.com/meenmo/cdslib/config"
)

func loadInput(t *testing.T) sensitivity.Input {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "..", "testdata", "risk.json"))
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	var in sensitivity.Input
	if err := json.Unmarshal(b, &in); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	return in
}

func TestCalculate_PillarContract(t *testing.T) {
	t.Parallel()

	// The contract is the 5Y pillar itself: all of its credit risk sits in
	// that bucket and the hedge is to sell the same notional of it.
	in := loadInput(t)
	out, err := sensitivity.Calculate(config.DefaultConfig, in)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	const fiveY = 3
	notional := in.Contract.Notional

	if !out.ParallelCS01.IsPositive() {
		t.Fatalf("parallel CS01: got %s, want positive", out.ParallelCS01)
	}
	if !out.ValueOnDefault.IsPositive() {
		t.Fatalf("value on default: got %s, want positive", out.ValueOnDefault)
	}
	if len(out.BucketedCS01) != len(in.CreditCurve.Pillars) || len(out.HedgeNotionals) != len(in.CreditCurve.Pillars) {
		t.Fatalf("buckets: got %d CS01, %d hedges", len(out.BucketedCS01), len(out.HedgeNotionals))
	}
	if len(out.BucketedIR01) != len(in.YieldCurve.Instruments) {
		t.Fatalf("IR01 buckets: got %d want %d", len(out.BucketedIR01), len(in.YieldCurve.Instruments))
	}
	for i, b := range out.BucketedCS01 {
		if b.Label != in.CreditCurve.Pillars[i] {
			t.Fatalf("bucket %d: label %q", i, b.Label)
		}
		if i != fiveY && math.Abs(b.Amount.InexactFloat64()) > 1 {
			t.Fatalf("bucket %s: got %s, want 0", b.Label, b.Amount)
		}
	}
	if !out.BucketedCS01[fiveY].Amount.IsPositive() {
		t.Fatalf("5Y bucket: got %s, want positive", out.BucketedCS01[fiveY].Amount)
	}
	for i, h := range out.HedgeNotionals {
		want := 0.0
		if i == fiveY {
			want = -notional
		}
		if got := h.Amount.InexactFloat64(); math.Abs(got-want) > 1 {
			t.Fatalf("hedge %s: got %.2f want %.2f", h.Label, got, want)
		}
	}
}

func TestCalculate_RequiresPillars(t *testing.T) {
	t.Parallel()

	in := loadInput(t)
	in.CreditCurve.Pillars = nil
	in.CreditCurve.Quotes = nil
	in.CreditCurve.Times = []float64{1, 5}
	in.CreditCurve.HazardRates = []float64{0.01, 0.02}
	if _, err := sensitivity.Calculate(config.DefaultConfig, in); err == nil {
		t.Fatalf("expected error")
	}
}
