// Package price values a single-name CDS on a yield and a credit curve.
package price

import (
	"github.com/shopspring/decimal"

	"github.com/meenmo/cdslib/cmd/cdspricer/internal/market"
	"github.com/meenmo/cdslib/config"
	"github.com/meenmo/cdslib/pricer"
	"github.com/meenmo/cdslib/report"
)

// Input defines the JSON input schema.
type Input struct {
	TradeDate   string             `json:"trade_date"` // "2014-02-13"
	YieldCurve  market.YieldCurve  `json:"yield_curve"`
	CreditCurve market.CreditCurve `json:"credit_curve"`
	Contract    market.Contract    `json:"contract"`
}

// Output amounts are for the protection buyer in currency units of the
// contract notional.
type Output struct {
	Notional      decimal.Decimal `json:"notional"`
	CleanPV       decimal.Decimal `json:"clean_pv"`
	DirtyPV       decimal.Decimal `json:"dirty_pv"`
	Accrued       decimal.Decimal `json:"accrued"`
	AccruedDays   int             `json:"accrued_days"`
	ProtectionLeg decimal.Decimal `json:"protection_leg"`
	RPV01         decimal.Decimal `json:"rpv01"`
	ParSpreadBP   decimal.Decimal `json:"par_spread_bp"`
	PUFPct        decimal.Decimal `json:"puf_pct"`
	Price         decimal.Decimal `json:"price"`
	ProtectionEnd float64         `json:"protection_end"`
	SurvivalAtEnd decimal.Decimal `json:"survival_at_end"`
	NumCoupons    int             `json:"number_of_coupons"`
}

// Calculate prices in.Contract. The per-unit clean PV is the upfront.
func Calculate(cfg config.Config, in Input) (*Output, error) {
	trade, err := market.ParseDate("trade_date", in.TradeDate)
	if err != nil {
		return nil, err
	}
	yc, err := in.YieldCurve.Build(trade, cfg.YieldCurveConventions())
	if err != nil {
		return nil, err
	}
	fitted, err := in.CreditCurve.Build(cfg, trade, yc)
	if err != nil {
		return nil, err
	}
	c, err := in.Contract.Make(cfg, trade)
	if err != nil {
		return nil, err
	}
	formula, err := cfg.Formula()
	if err != nil {
		return nil, err
	}

	p := pricer.NewAnalyticPricer(formula)
	cc := fitted.Curve
	coupon := in.Contract.Coupon()
	n := c.Notional()
	clean := p.PV(c, yc, cc, coupon, pricer.Clean)
	return &Output{
		Notional:      decimal.NewFromFloat(n),
		CleanPV:       report.Money(clean, n),
		DirtyPV:       report.Money(p.PV(c, yc, cc, coupon, pricer.Dirty), n),
		Accrued:       report.Money(c.AccruedPremium(coupon), n),
		AccruedDays:   c.AccruedDays(),
		ProtectionLeg: report.Money(p.ProtectionLeg(c, yc, cc), n),
		RPV01:         report.Money(1e-4*p.Annuity(c, yc, cc, pricer.Clean), n),
		ParSpreadBP:   report.BasisPoints(p.ParSpread(c, yc, cc)),
		PUFPct:        report.Percent(clean),
		Price:         report.Price(clean),
		ProtectionEnd: c.ProtectionEnd(),
		SurvivalAtEnd: report.Rate(cc.SurvivalProbability(c.ProtectionEnd())),
		NumCoupons:    c.NumPayments(),
	}, nil
}
