package yieldcurve_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meenmo/cdslib/utils"
	"github.com/meenmo/cdslib/yieldcurve"
)

var tradeDate = time.Date(2014, 2, 13, 0, 0, 0, 0, time.UTC)

func sampleInstruments(t *testing.T) []yieldcurve.Instrument {
	t.Helper()
	tenors := []string{"1M", "2M", "3M", "6M", "1Y", "2Y", "3Y", "4Y", "5Y", "6Y", "7Y", "8Y", "9Y", "10Y", "12Y", "15Y", "20Y", "25Y", "30Y"}
	rates := []float64{0.001575, 0.002, 0.002365, 0.003333, 0.005617, 0.004425, 0.00783, 0.01191, 0.015775, 0.01915, 0.021935,
		0.024205, 0.026055, 0.02764, 0.030115, 0.032515, 0.03456, 0.035465, 0.03592}
	inst, err := yieldcurve.ParseInstruments("MMMMMSSSSSSSSSSSSSS", tenors, rates)
	if err != nil {
		t.Fatalf("ParseInstruments error: %v", err)
	}
	return inst
}

func TestBuild_RepricesInstruments(t *testing.T) {
	t.Parallel()

	inst := sampleInstruments(t)
	b := yieldcurve.NewBuilder(yieldcurve.DefaultConventions())
	yc, err := b.Build(tradeDate, inst)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if yc.NumKnots() != len(inst) {
		t.Fatalf("knots: got %d want %d", yc.NumKnots(), len(inst))
	}
	if !yc.ReferenceDate().Equal(tradeDate) {
		t.Fatalf("reference date: got %s", yc.ReferenceDate())
	}
	for _, in := range inst {
		got, err := b.ParRate(yc, tradeDate, in)
		if err != nil {
			t.Fatalf("ParRate error: %v", err)
		}
		if math.Abs(got-in.Rate) > 1e-10 {
			t.Fatalf("%s: par rate %.12f want %.12f", in.Tenor, got, in.Rate)
		}
	}
}

func TestBuild_MoneyMarketDiscountFactor(t *testing.T) {
	t.Parallel()

	yc, err := yieldcurve.Build(tradeDate, sampleInstruments(t))
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	// T+2 from a Thursday is the following Monday; 17 May 2014 is a
	// Saturday and rolls to the 19th
	spot := time.Date(2014, 2, 17, 0, 0, 0, 0, time.UTC)
	maturity := time.Date(2014, 5, 19, 0, 0, 0, 0, time.UTC)
	tSpot := utils.YearFraction(tradeDate, spot, utils.Act365F)
	tMat := utils.YearFraction(tradeDate, maturity, utils.Act365F)

	want := 1 / (1 + 0.002365*utils.YearFraction(spot, maturity, utils.Act360))
	if got := yc.DF(tMat) / yc.DF(tSpot); math.Abs(got-want) > 1e-12 {
		t.Fatalf("3M forward discount factor: got %.12f want %.12f", got, want)
	}
	if df := yc.DF(0); df != 1 {
		t.Fatalf("DF(0): got %.12f", df)
	}
}

func TestBuild_DiscountFactorsDecrease(t *testing.T) {
	t.Parallel()

	yc, err := yieldcurve.Build(tradeDate, sampleInstruments(t))
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	prev := 1.0
	for _, x := range yc.Times() {
		df := yc.DF(x)
		if df >= prev {
			t.Fatalf("DF(%g) = %.12f not below %.12f", x, df, prev)
		}
		prev = df
	}
}

func TestBuild_Conventions(t *testing.T) {
	t.Parallel()

	negative := []yieldcurve.Instrument{
		{Type: yieldcurve.MoneyMarket, Tenor: "1M", Rate: -0.004},
		{Type: yieldcurve.MoneyMarket, Tenor: "3M", Rate: -0.0035},
		{Type: yieldcurve.MoneyMarket, Tenor: "6M", Rate: -0.003},
		{Type: yieldcurve.Swap, Tenor: "2Y", Rate: -0.002},
		{Type: yieldcurve.Swap, Tenor: "5Y", Rate: 0.001},
	}

	spotZero := yieldcurve.DefaultConventions()
	spotZero.SpotDays = 0
	annual := yieldcurve.DefaultConventions()
	annual.SwapIntervalMonths = 12
	annual.SpotDays = 4

	cases := []struct {
		name string
		conv yieldcurve.Conventions
		inst []yieldcurve.Instrument
	}{
		{"spot is trade", spotZero, sampleInstruments(t)},
		{"annual fixed leg", annual, sampleInstruments(t)},
		{"negative rates", yieldcurve.DefaultConventions(), negative},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := yieldcurve.NewBuilder(tc.conv)
			yc, err := b.Build(tradeDate, tc.inst)
			if err != nil {
				t.Fatalf("Build error: %v", err)
			}
			for _, in := range tc.inst {
				got, err := b.ParRate(yc, tradeDate, in)
				if err != nil {
					t.Fatalf("ParRate error: %v", err)
				}
				if math.Abs(got-in.Rate) > 1e-10 {
					t.Fatalf("%s: par rate %.12f want %.12f", in.Tenor, got, in.Rate)
				}
			}
		})
	}
}

func TestBuild_InvalidInstruments(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		inst []yieldcurve.Instrument
	}{
		{"empty", nil},
		{"unknown type", []yieldcurve.Instrument{{Type: 'F', Tenor: "1Y", Rate: 0.01}}},
		{"bad tenor", []yieldcurve.Instrument{{Type: yieldcurve.Swap, Tenor: "1Q", Rate: 0.01}}},
		{"out of order", []yieldcurve.Instrument{
			{Type: yieldcurve.Swap, Tenor: "2Y", Rate: 0.01},
			{Type: yieldcurve.Swap, Tenor: "1Y", Rate: 0.01},
		}},
	}
	for _, tc := range cases {
		if _, err := yieldcurve.Build(tradeDate, tc.inst); !errors.Is(err, yieldcurve.ErrInvalidInstrument) {
			t.Fatalf("%s: expected ErrInvalidInstrument, got %v", tc.name, err)
		}
	}

	if _, err := yieldcurve.ParseInstruments("MS", []string{"1M"}, []float64{0.01, 0.02}); !errors.Is(err, yieldcurve.ErrInvalidInstrument) {
		t.Fatalf("expected ErrInvalidInstrument, got %v", err)
	}
}

func TestInstrument_JSON(t *testing.T) {
	t.Parallel()

	var in []yieldcurve.Instrument
	if err := json.Unmarshal([]byte(`[{"type":"M","tenor":"3M","rate":0.002},{"type":"S","tenor":"5Y","rate":0.015}]`), &in); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if in[0].Type != yieldcurve.MoneyMarket || in[1].Type != yieldcurve.Swap || in[1].Tenor != "5Y" {
		t.Fatalf("decoded %+v", in)
	}
	out, err := json.Marshal(in[1])
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(out) != `{"type":"S","tenor":"5Y","rate":0.015}` {
		t.Fatalf("encoded %s", out)
	}

	if err := json.Unmarshal([]byte(`[{"type":"X","tenor":"3M","rate":0.002}]`), &in); !errors.Is(err, yieldcurve.ErrInvalidInstrument) {
		t.Fatalf("expected ErrInvalidInstrument, got %v", err)
	}
}
