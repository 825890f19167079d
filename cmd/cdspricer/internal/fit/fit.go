// Package fit calibrates credit curves for a batch of reference names that
// share a pillar strip.
package fit

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meenmo/cdslib/calibrate"
	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/market"
	"github.com/meenmo/cdslib/config"
	"github.com/meenmo/cdslib/pricer"
	"github.com/meenmo/cdslib/report"
)

// Name is one reference entity with a quote per pillar.
type Name struct {
	Name     string         `json:"name"`
	Recovery *float64       `json:"recovery,omitempty"`
	Quotes   []market.Quote `json:"quotes"`
}

// Input defines the JSON input schema.
type Input struct {
	TradeDate  string            `json:"trade_date"`
	YieldCurve market.YieldCurve `json:"yield_curve"`
	Pillars    []string          `json:"pillars"` // e.g. ["6M", "1Y", "3Y", "5Y"]
	Names      []Name            `json:"names"`
}

// Curve is one fitted credit curve.
type Curve struct {
	Name         string            `json:"name"`
	Times        []float64         `json:"times"`
	HazardRates  []decimal.Decimal `json:"hazard_rates"`
	Survival     []decimal.Decimal `json:"survival"`
	ParSpreadsBP []decimal.Decimal `json:"par_spreads_bp"`
}

type Output struct {
	Curves []Curve `json:"curves"`
}

// Calculate converts every quote to upfront form and calibrates the names
// concurrently on cfg.Workers goroutines.
func Calculate(ctx context.Context, cfg config.Config, in Input) (*Output, error) {
	trade, err := market.ParseDate("trade_date", in.TradeDate)
	if err != nil {
		return nil, err
	}
	if len(in.Pillars) == 0 || len(in.Names) == 0 {
		return nil, fmt.Errorf("pillars and names are required")
	}
	yc, err := in.YieldCurve.Build(trade, cfg.YieldCurveConventions())
	if err != nil {
		return nil, err
	}
	b, err := cfg.Builder()
	if err != nil {
		return nil, err
	}
	formula, err := cfg.Formula()
	if err != nil {
		return nil, err
	}
	qc := calibrate.NewQuoteConverter(formula)

	jobs := make([]calibrate.Job, len(in.Names))
	strips := make([][]*cds.CDS, len(in.Names))
	for i, n := range in.Names {
		if len(n.Quotes) != len(in.Pillars) {
			return nil, fmt.Errorf("%s: %d quotes for %d pillars", n.Name, len(n.Quotes), len(in.Pillars))
		}
		f := cfg.Factory()
		if n.Recovery != nil {
			f = f.WithRecoveryRate(*n.Recovery)
		}
		strip, err := f.MakeIMMStrip(trade, in.Pillars)
		if err != nil {
			return nil, err
		}
		quotes, err := market.Quotes(n.Quotes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", n.Name, err)
		}
		job := calibrate.Job{Name: n.Name, Strip: strip, Premiums: make([]float64, len(strip)), PUF: make([]float64, len(strip)), YieldCurve: yc}
		for k, q := range quotes {
			job.Premiums[k], job.PUF[k], err = qc.ToPUF(strip[k], q, yc)
			if err != nil {
				return nil, fmt.Errorf("%s: pillar %s: %w", n.Name, in.Pillars[k], err)
			}
		}
		jobs[i] = job
		strips[i] = strip
	}

	curves, err := calibrate.CalibrateAll(ctx, b, jobs, cfg.Workers)
	if err != nil {
		return nil, err
	}

	p := pricer.NewAnalyticPricer(formula)
	out := &Output{Curves: make([]Curve, len(curves))}
	for i, cc := range curves {
		c := Curve{Name: in.Names[i].Name, Times: cc.Times()}
		for k, r := range cc.Rates() {
			c.HazardRates = append(c.HazardRates, report.Rate(r))
			c.Survival = append(c.Survival, report.Rate(cc.SurvivalProbability(c.Times[k])))
		}
		for _, s := range p.ParSpreads(strips[i], yc, cc) {
			c.ParSpreadsBP = append(c.ParSpreadsBP, report.BasisPoints(s))
		}
		out.Curves[i] = c
	}
	return out, nil
}
