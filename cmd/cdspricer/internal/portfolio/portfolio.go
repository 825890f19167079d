// Package portfolio values a CDS index from its constituents and, given
// traded index quotes, adjusts the constituent curves to match them.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meenmo/cdslib/calibrate"
	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/market"
	"github.com/meenmo/cdslib/config"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/index"
	"github.com/meenmo/cdslib/report"
)

type Constituent struct {
	Name      string         `json:"name"`
	Weight    float64        `json:"weight,omitempty"` // equal weights unless all are set
	Recovery  *float64       `json:"recovery,omitempty"`
	Quotes    []market.Quote `json:"quotes,omitempty"`
	Defaulted bool           `json:"defaulted,omitempty"`
}

// Term is a traded index maturity with its upfront quote.
type Term struct {
	Tenor  string  `json:"tenor"`
	PUFPct float64 `json:"puf_pct"`
}

// Input defines the JSON input schema. Terms, when present, must be in
// increasing maturity and include the index tenor.
type Input struct {
	TradeDate    string            `json:"trade_date"`
	YieldCurve   market.YieldCurve `json:"yield_curve"`
	Index        market.Contract   `json:"index"`
	Terms        []Term            `json:"terms,omitempty"`
	Pillars      []string          `json:"pillars"`
	Constituents []Constituent     `json:"constituents"`
}

// NameAmount is a per-constituent amount.
type NameAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Intrinsic is the index valued from the constituent curves.
type Intrinsic struct {
	PUFPct      decimal.Decimal `json:"puf_pct"`
	SpreadBP    decimal.Decimal `json:"intrinsic_spread_bp"`
	AvgSpreadBP decimal.Decimal `json:"average_spread_bp"`
	CleanPV     decimal.Decimal `json:"clean_pv"`
}

type Output struct {
	IndexFactor   decimal.Decimal `json:"index_factor"`
	NumDefaults   int             `json:"num_defaults"`
	Intrinsic     Intrinsic       `json:"intrinsic"`
	Adjusted      *Intrinsic      `json:"adjusted,omitempty"`
	ParallelCS01  decimal.Decimal `json:"parallel_cs01"`
	ParallelIR01  decimal.Decimal `json:"parallel_ir01"`
	JumpToDefault []NameAmount    `json:"jump_to_default"`
	Recovery01    []NameAmount    `json:"recovery01"` // per 1% recovery
}

func Calculate(ctx context.Context, cfg config.Config, in Input) (*Output, error) {
	trade, err := market.ParseDate("trade_date", in.TradeDate)
	if err != nil {
		return nil, err
	}
	if len(in.Pillars) == 0 || len(in.Constituents) == 0 {
		return nil, fmt.Errorf("pillars and constituents are required")
	}
	yc, err := in.YieldCurve.Build(trade, cfg.YieldCurveConventions())
	if err != nil {
		return nil, err
	}
	idx, err := in.Index.Make(cfg, trade)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	b, err := cfg.Builder()
	if err != nil {
		return nil, err
	}
	formula, err := cfg.Formula()
	if err != nil {
		return nil, err
	}

	strip, err := cfg.Factory().MakeIMMStrip(trade, in.Pillars)
	if err != nil {
		return nil, err
	}
	names, err := constituents(cfg, in, strip, yc)
	if err != nil {
		return nil, err
	}
	bundle, err := index.BuildConstituentCurves(ctx, b, strip, names, yc, cfg.Workers)
	if err != nil {
		return nil, err
	}

	calc := index.NewCalculator(formula)
	coupon := in.Index.Coupon()
	n := idx.Notional()
	intrinsic, err := value(calc, idx, coupon, yc, bundle, n)
	if err != nil {
		return nil, err
	}
	cs01, err := calc.ParallelCS01(idx, coupon, yc, bundle)
	if err != nil {
		return nil, err
	}
	out := &Output{
		IndexFactor:  decimal.NewFromFloat(bundle.IndexFactor()),
		NumDefaults:  bundle.NumDefaults(),
		Intrinsic:    *intrinsic,
		ParallelCS01: report.Money(cs01, n),
		ParallelIR01: report.Money(calc.ParallelIR01(idx, coupon, yc, bundle), n),
	}
	jtd := calc.JumpToDefault(idx, coupon, yc, bundle)
	rec := calc.Recovery01(idx, yc, bundle)
	for i, c := range in.Constituents {
		out.JumpToDefault = append(out.JumpToDefault, NameAmount{Name: c.Name, Amount: report.Money(jtd[i], n)})
		out.Recovery01 = append(out.Recovery01, NameAmount{Name: c.Name, Amount: report.Money(0.01*rec[i], n)})
	}

	adjusted, err := adjust(cfg, in, trade, coupon, yc, bundle)
	if err != nil {
		return nil, err
	}
	if adjusted != nil {
		out.Adjusted, err = value(calc, idx, coupon, yc, adjusted, n)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// constituents converts each live name's quotes to premiums and upfronts on
// the strip at the name's own recovery.
func constituents(cfg config.Config, in Input, strip []*cds.CDS, yc *curve.YieldCurve) ([]index.Constituent, error) {
	formula, err := cfg.Formula()
	if err != nil {
		return nil, err
	}
	qc := calibrate.NewQuoteConverter(formula)
	out := make([]index.Constituent, len(in.Constituents))
	for i, c := range in.Constituents {
		recovery := cfg.Conventions.Recovery
		if c.Recovery != nil {
			recovery = *c.Recovery
		}
		out[i] = index.Constituent{Name: c.Name, Weight: c.Weight, Recovery: recovery, Defaulted: c.Defaulted}
		if c.Defaulted {
			continue
		}
		if len(c.Quotes) != len(strip) {
			return nil, fmt.Errorf("%s: %d quotes for %d pillars", c.Name, len(c.Quotes), len(strip))
		}
		quotes, err := market.Quotes(c.Quotes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
		out[i].Premiums = make([]float64, len(strip))
		out[i].PUF = make([]float64, len(strip))
		for k, q := range quotes {
			out[i].Premiums[k], out[i].PUF[k], err = qc.ToPUF(strip[k].WithRecoveryRate(recovery), q, yc)
			if err != nil {
				return nil, fmt.Errorf("%s: pillar %s: %w", c.Name, in.Pillars[k], err)
			}
		}
	}
	return out, nil
}

func value(calc index.Calculator, idx *cds.CDS, coupon float64, yc *curve.YieldCurve, b *index.IntrinsicBundle, notional float64) (*Intrinsic, error) {
	puf, err := calc.IndexPUF(idx, coupon, yc, b)
	if err != nil {
		return nil, err
	}
	spread, err := calc.IntrinsicSpread(idx, yc, b)
	if err != nil {
		return nil, err
	}
	avg, err := calc.AverageSpread(idx, yc, b)
	if err != nil {
		return nil, err
	}
	return &Intrinsic{
		PUFPct:      report.Percent(puf),
		SpreadBP:    report.BasisPoints(spread),
		AvgSpreadBP: report.BasisPoints(avg),
		CleanPV:     report.Money(puf*b.IndexFactor(), notional),
	}, nil
}

// adjust returns nil when no index quote was supplied.
func adjust(cfg config.Config, in Input, trade time.Time, coupon float64, yc *curve.YieldCurve, b *index.IntrinsicBundle) (*index.IntrinsicBundle, error) {
	if len(in.Terms) == 0 {
		return nil, nil
	}
	formula, err := cfg.Formula()
	if err != nil {
		return nil, err
	}
	a := index.NewPortfolioAdjuster(formula)
	terms := make([]*cds.CDS, len(in.Terms))
	puf := make([]float64, len(in.Terms))
	for i, t := range in.Terms {
		c, err := cfg.Factory().MakeIMM(trade, t.Tenor)
		if err != nil {
			return nil, fmt.Errorf("term %s: %w", t.Tenor, err)
		}
		terms[i] = c
		puf[i] = report.FromPercent(t.PUFPct)
	}
	return a.AdjustCurvesTerm(puf, terms, coupon, yc, b)
}
