package price_test

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/meenmo/cdslib/cmd/cdspricer/internal/price"
	"github.com/meenmo/cdslib/config"
)

func loadInput(t *testing.T) price.Input {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "..", "testdata", "price.json"))
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	var in price.Input
	if err := json.Unmarshal(b, &in); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	return in
}

func TestCalculate_ParContract(t *testing.T) {
	t.Parallel()

	// The 5Y contract pays the 5Y pillar's par spread, so it is worth zero
	// clean.
	out, err := price.Calculate(config.DefaultConfig, loadInput(t))
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}

	if got := out.ParSpreadBP.InexactFloat64(); math.Abs(got-100) > 1e-3 {
		t.Fatalf("par spread: got %.6f want 100", got)
	}
	if got := out.CleanPV.InexactFloat64(); math.Abs(got) > 1 {
		t.Fatalf("clean PV: got %.2f want 0", got)
	}
	if got := out.Price.InexactFloat64(); math.Abs(got-100) > 1e-3 {
		t.Fatalf("price: got %.6f want 100", got)
	}
	if out.Notional.InexactFloat64() != 10_000_000 {
		t.Fatalf("notional: got %s", out.Notional)
	}
	if out.AccruedDays <= 0 || out.NumCoupons == 0 {
		t.Fatalf("schedule: accrued days %d, coupons %d", out.AccruedDays, out.NumCoupons)
	}
	if s := out.SurvivalAtEnd.InexactFloat64(); s <= 0 || s >= 1 {
		t.Fatalf("survival at end: got %.12f", s)
	}
	if out.ProtectionEnd < 5 || out.ProtectionEnd > 6 {
		t.Fatalf("protection end: got %.12f", out.ProtectionEnd)
	}
}

func TestCalculate_CouponAboveSpread(t *testing.T) {
	t.Parallel()

	in := loadInput(t)
	in.Contract.CouponBP = 500
	out, err := price.Calculate(config.DefaultConfig, in)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	// The buyer overpays on the coupon and is compensated upfront.
	if out.PUFPct.IsPositive() {
		t.Fatalf("puf: got %s, want negative", out.PUFPct)
	}
	if out.Price.InexactFloat64() <= 100 {
		t.Fatalf("price: got %s, want above par", out.Price)
	}
}

func TestCalculate_ExplicitCurves(t *testing.T) {
	t.Parallel()

	in := price.Input{TradeDate: "2014-02-13"}
	in.YieldCurve.Times = []float64{1, 5, 10}
	in.YieldCurve.ZeroRates = []float64{0.01, 0.02, 0.03}
	in.CreditCurve.Times = []float64{1, 5, 10}
	in.CreditCurve.HazardRates = []float64{0.01, 0.015, 0.02}
	in.Contract.Tenor = "5Y"
	in.Contract.CouponBP = 100

	out, err := price.Calculate(config.DefaultConfig, in)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	// A flat-ish 1.5% hazard at 40% recovery is roughly 90bp of spread.
	if got := out.ParSpreadBP.InexactFloat64(); got < 50 || got > 130 {
		t.Fatalf("par spread: got %.6f", got)
	}
}

func TestCalculate_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*price.Input)
	}{
		{"missing trade date", func(in *price.Input) { in.TradeDate = "" }},
		{"bad trade date", func(in *price.Input) { in.TradeDate = "13/02/2014" }},
		{"no yield curve", func(in *price.Input) { in.YieldCurve.Instruments = nil }},
		{"quote count", func(in *price.Input) { in.CreditCurve.Quotes = in.CreditCurve.Quotes[1:] }},
		{"no contract term", func(in *price.Input) { in.Contract.Tenor = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := loadInput(t)
			tt.modify(&in)
			if _, err := price.Calculate(config.DefaultConfig, in); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
