// Package rates bootstraps the ISDA discount curve and reports its knots.
package rates

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meenmo/cdslib/cmd/cdspricer/internal/market"
	"github.com/meenmo/cdslib/config"
	"github.com/meenmo/cdslib/report"
	"github.com/meenmo/cdslib/yieldcurve"
)

// Input defines the JSON input schema. SpotDays overrides the configured
// spot lag when set.
type Input struct {
	TradeDate   string                  `json:"trade_date"`
	SpotDays    *int                    `json:"spot_days,omitempty"`
	Instruments []yieldcurve.Instrument `json:"instruments"`
}

// Knot is one bootstrapped pillar. Time is ACT/365F from the trade date.
type Knot struct {
	Tenor          string          `json:"tenor"`
	Type           string          `json:"type"`
	Time           float64         `json:"time"`
	ZeroRate       decimal.Decimal `json:"zero_rate"`
	DiscountFactor decimal.Decimal `json:"discount_factor"`
	RepricedRate   decimal.Decimal `json:"repriced_rate"`
}

type Output struct {
	TradeDate string `json:"trade_date"`
	SpotDate  string `json:"spot_date"`
	Knots     []Knot `json:"knots"`
}

func Calculate(cfg config.Config, in Input) (*Output, error) {
	trade, err := market.ParseDate("trade_date", in.TradeDate)
	if err != nil {
		return nil, err
	}
	conv := cfg.YieldCurveConventions()
	if in.SpotDays != nil {
		conv.SpotDays = *in.SpotDays
	}
	b := yieldcurve.NewBuilder(conv)
	yc, err := b.Build(trade, in.Instruments)
	if err != nil {
		return nil, err
	}
	if yc.NumKnots() != len(in.Instruments) {
		return nil, fmt.Errorf("curve has %d knots for %d instruments", yc.NumKnots(), len(in.Instruments))
	}

	out := &Output{
		TradeDate: trade.Format("2006-01-02"),
		SpotDate:  b.Spot(trade).Format("2006-01-02"),
	}
	for i, inst := range in.Instruments {
		par, err := b.ParRate(yc, trade, inst)
		if err != nil {
			return nil, err
		}
		t := yc.TimeAt(i)
		out.Knots = append(out.Knots, Knot{
			Tenor:          inst.Tenor,
			Type:           string(inst.Type),
			Time:           t,
			ZeroRate:       report.Rate(yc.ZeroRateAt(i)),
			DiscountFactor: report.Rate(yc.DF(t)),
			RepricedRate:   report.Rate(par),
		})
	}
	return out, nil
}
