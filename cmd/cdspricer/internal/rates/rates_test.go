package rates_test

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/meenmo/cdslib/cmd/cdspricer/internal/rates"
	"github.com/meenmo/cdslib/config"
)

func loadInput(t *testing.T) rates.Input {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "..", "testdata", "yieldcurve.json"))
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	var in rates.Input
	if err := json.Unmarshal(b, &in); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	return in
}

func TestCalculate(t *testing.T) {
	t.Parallel()

	in := loadInput(t)
	out, err := rates.Calculate(config.DefaultConfig, in)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	if out.SpotDate != "2014-02-17" {
		t.Fatalf("spot date: got %s want 2014-02-17", out.SpotDate)
	}
	if len(out.Knots) != len(in.Instruments) {
		t.Fatalf("knots: got %d want %d", len(out.Knots), len(in.Instruments))
	}
	prevDF := 1.0
	for i, k := range out.Knots {
		if got := k.RepricedRate.InexactFloat64(); math.Abs(got-in.Instruments[i].Rate) > 1e-9 {
			t.Fatalf("%s: repriced %.12f want %.12f", k.Tenor, got, in.Instruments[i].Rate)
		}
		df := k.DiscountFactor.InexactFloat64()
		if df >= prevDF {
			t.Fatalf("%s: discount factor %.12f not below %.12f", k.Tenor, df, prevDF)
		}
		prevDF = df
	}
	if out.Knots[0].Type != "M" || out.Knots[len(out.Knots)-1].Type != "S" {
		t.Fatalf("types: got %s and %s", out.Knots[0].Type, out.Knots[len(out.Knots)-1].Type)
	}
}

func TestCalculate_SpotDaysOverride(t *testing.T) {
	t.Parallel()

	in := loadInput(t)
	spot := 4
	in.SpotDays = &spot
	out, err := rates.Calculate(config.DefaultConfig, in)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	if out.SpotDate != "2014-02-19" {
		t.Fatalf("spot date: got %s want 2014-02-19", out.SpotDate)
	}
}

func TestCalculate_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*rates.Input)
	}{
		{"missing trade date", func(in *rates.Input) { in.TradeDate = "" }},
		{"no instruments", func(in *rates.Input) { in.Instruments = nil }},
		{"bad tenor", func(in *rates.Input) { in.Instruments[3].Tenor = "6X" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := loadInput(t)
			tt.modify(&in)
			if _, err := rates.Calculate(config.DefaultConfig, in); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
