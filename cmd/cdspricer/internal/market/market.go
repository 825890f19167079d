// Package market holds the JSON market data schema shared by the cdspricer
// commands and turns it into curves and contracts.
//
// Conventions:
// - spreads and coupons are in bp (e.g., 100 means 1%)
// - upfronts are in percent of notional (e.g., 2.5 means 2.5%)
// - yield curve rates are decimals (e.g., 0.0157)
package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/calibrate"
	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/config"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/report"
	"github.com/meenmo/cdslib/utils"
	"github.com/meenmo/cdslib/yieldcurve"
)

// DefaultNotional applies when a contract omits its notional.
const DefaultNotional = 10_000_000

// ParseDate parses a required YYYY-MM-DD field.
func ParseDate(field, s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := utils.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %v", field, err)
	}
	return t, nil
}

// YieldCurve is either a set of rates instruments to bootstrap or explicit
// zero rates at ACT/365F times from the trade date.
type YieldCurve struct {
	Instruments []yieldcurve.Instrument `json:"instruments,omitempty"`
	Times       []float64               `json:"times,omitempty"`
	ZeroRates   []float64               `json:"zero_rates,omitempty"`
}

func (y YieldCurve) Build(trade time.Time, conv yieldcurve.Conventions) (*curve.YieldCurve, error) {
	switch {
	case len(y.Instruments) > 0:
		return yieldcurve.NewBuilder(conv).Build(trade, y.Instruments)
	case len(y.Times) > 0:
		yc, err := curve.NewYieldCurve(y.Times, y.ZeroRates)
		if err != nil {
			return nil, err
		}
		return yc.WithReferenceDate(trade), nil
	default:
		return nil, fmt.Errorf("yield_curve requires instruments or times")
	}
}

// Quote is one CDS quote: "par" (spread_bp), "quoted" (coupon_bp and
// spread_bp) or "puf" (coupon_bp and puf_pct).
type Quote struct {
	Type     string  `json:"type"`
	CouponBP float64 `json:"coupon_bp,omitempty"`
	SpreadBP float64 `json:"spread_bp,omitempty"`
	PUFPct   float64 `json:"puf_pct,omitempty"`
}

func (q Quote) Quote() (cds.Quote, error) {
	switch strings.ToLower(strings.TrimSpace(q.Type)) {
	case "par", "":
		if q.SpreadBP <= 0 {
			return nil, fmt.Errorf("par quote needs a positive spread_bp")
		}
		return cds.ParSpread{Spread: report.FromBasisPoints(q.SpreadBP)}, nil
	case "quoted":
		if q.SpreadBP <= 0 {
			return nil, fmt.Errorf("quoted spread needs a positive spread_bp")
		}
		return cds.QuotedSpread{Premium: report.FromBasisPoints(q.CouponBP), Spread: report.FromBasisPoints(q.SpreadBP)}, nil
	case "puf":
		return cds.PointsUpFront{Premium: report.FromBasisPoints(q.CouponBP), PUF: report.FromPercent(q.PUFPct)}, nil
	default:
		return nil, fmt.Errorf("unknown quote type %q (use par, quoted or puf)", q.Type)
	}
}

// Quotes converts a quote list.
func Quotes(in []Quote) ([]cds.Quote, error) {
	out := make([]cds.Quote, len(in))
	for i, q := range in {
		v, err := q.Quote()
		if err != nil {
			return nil, fmt.Errorf("quote %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// CreditCurve is either standard pillar tenors with one quote each, or
// explicit hazard zero rates.
type CreditCurve struct {
	Recovery    *float64  `json:"recovery,omitempty"`
	Pillars     []string  `json:"pillars,omitempty"`
	Quotes      []Quote   `json:"quotes,omitempty"`
	Times       []float64 `json:"times,omitempty"`
	HazardRates []float64 `json:"hazard_rates,omitempty"`
}

// Fitted is a credit curve with the pillar contracts and quotes it was
// fitted to; Strip is nil for explicit curves.
type Fitted struct {
	Curve  *curve.HazardCurve
	Strip  []*cds.CDS
	Quotes []cds.Quote
}

func (c CreditCurve) Build(cfg config.Config, trade time.Time, yc *curve.YieldCurve) (*Fitted, error) {
	if len(c.Pillars) == 0 {
		if len(c.Times) == 0 {
			return nil, fmt.Errorf("credit_curve requires pillars or times")
		}
		cc, err := curve.NewHazardCurve(c.Times, c.HazardRates)
		if err != nil {
			return nil, err
		}
		return &Fitted{Curve: cc.WithReferenceDate(trade)}, nil
	}
	if len(c.Quotes) != len(c.Pillars) {
		return nil, fmt.Errorf("credit_curve has %d pillars and %d quotes", len(c.Pillars), len(c.Quotes))
	}
	f := cfg.Factory()
	if c.Recovery != nil {
		f = f.WithRecoveryRate(*c.Recovery)
	}
	strip, err := f.MakeIMMStrip(trade, c.Pillars)
	if err != nil {
		return nil, err
	}
	quotes, err := Quotes(c.Quotes)
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
	cc, err := calibrate.CalibrateFromQuotes(b, calibrate.NewQuoteConverter(formula), strip, quotes, yc)
	if err != nil {
		return nil, err
	}
	return &Fitted{Curve: cc.WithReferenceDate(trade), Strip: strip, Quotes: quotes}, nil
}

// Contract is the traded CDS. Maturity, when set, overrides tenor.
type Contract struct {
	Tenor    string   `json:"tenor,omitempty"`
	Maturity string   `json:"maturity,omitempty"`
	Recovery *float64 `json:"recovery,omitempty"`
	Notional float64  `json:"notional,omitempty"`
	CouponBP float64  `json:"coupon_bp"`
}

func (c Contract) Make(cfg config.Config, trade time.Time) (*cds.CDS, error) {
	f := cfg.Factory()
	if c.Recovery != nil {
		f = f.WithRecoveryRate(*c.Recovery)
	}
	notional := c.Notional
	if notional == 0 {
		notional = DefaultNotional
	}

	var out *cds.CDS
	var err error
	switch {
	case strings.TrimSpace(c.Maturity) != "":
		maturity, perr := ParseDate("maturity", c.Maturity)
		if perr != nil {
			return nil, perr
		}
		accStart := calendar.AdjustWith(f.Calendar, utils.PrevIMM(trade), f.BusinessDayConvention)
		out, err = f.Make(trade, accStart, maturity)
	case strings.TrimSpace(c.Tenor) != "":
		out, err = f.MakeIMM(trade, c.Tenor)
	default:
		return nil, fmt.Errorf("contract requires tenor or maturity")
	}
	if err != nil {
		return nil, err
	}
	return out.WithNotional(notional), nil
}

// Coupon is the contract coupon as a fraction.
func (c Contract) Coupon() float64 { return report.FromBasisPoints(c.CouponBP) }
