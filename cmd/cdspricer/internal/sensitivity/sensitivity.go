// Package sensitivity reports the spread, rate, recovery and default risk
// of a single-name CDS, and the pillar hedge that neutralises its credit
// curve risk.
package sensitivity

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/cmd/cdspricer/internal/market"
	"github.com/meenmo/cdslib/config"
	"github.com/meenmo/cdslib/pricer"
	"github.com/meenmo/cdslib/report"
	"github.com/meenmo/cdslib/risk"
)

const oneBP = 1e-4

// Input defines the JSON input schema. The credit curve must be given by
// pillars and quotes; they are the CS01 buckets and the hedge instruments.
type Input struct {
	TradeDate   string             `json:"trade_date"`
	YieldCurve  market.YieldCurve  `json:"yield_curve"`
	CreditCurve market.CreditCurve `json:"credit_curve"`
	Contract    market.Contract    `json:"contract"`
}

// Bucket is an amount against one pillar or yield curve knot.
type Bucket struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// Output amounts are per one basis point (CS01, IR01) or per one percent
// of recovery, in currency. Hedge notionals are signed: negative means
// sell protection.
type Output struct {
	ParallelCS01   decimal.Decimal `json:"parallel_cs01"`
	BucketedCS01   []Bucket        `json:"bucketed_cs01"`
	ParallelIR01   decimal.Decimal `json:"parallel_ir01"`
	BucketedIR01   []Bucket        `json:"bucketed_ir01"`
	Recovery01     decimal.Decimal `json:"recovery01"`
	ValueOnDefault decimal.Decimal `json:"value_on_default"`
	HedgeNotionals []Bucket        `json:"hedge_notionals"`
}

func Calculate(cfg config.Config, in Input) (*Output, error) {
	trade, err := market.ParseDate("trade_date", in.TradeDate)
	if err != nil {
		return nil, err
	}
	if len(in.CreditCurve.Pillars) == 0 {
		return nil, fmt.Errorf("credit_curve pillars and quotes are required for risk")
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

	cc := fitted.Curve
	coupon := in.Contract.Coupon()
	n := c.Notional()
	p := pricer.NewAnalyticPricer(formula)
	spreads := risk.NewAnalyticSpreadSensitivity(formula)
	factors := risk.NewFactors(formula)

	puf := p.PV(c, yc, cc, coupon, pricer.Clean)
	cs01, err := spreads.ParallelCS01(c, cds.PointsUpFront{Premium: coupon, PUF: puf}, yc)
	if err != nil {
		return nil, fmt.Errorf("parallel CS01: %w", err)
	}
	bucketed, err := spreads.BucketedCS01FromCreditCurve(c, coupon, fitted.Strip, yc, cc)
	if err != nil {
		return nil, fmt.Errorf("bucketed CS01: %w", err)
	}

	hedgeCoupons := make([]float64, len(fitted.Quotes))
	for i, q := range fitted.Quotes {
		hedgeCoupons[i] = q.Coupon()
	}
	ratios, err := risk.NewHedgeRatioCalculator(formula).HedgeRatios(c, coupon, fitted.Strip, hedgeCoupons, yc, cc)
	if err != nil {
		return nil, fmt.Errorf("hedge ratios: %w", err)
	}

	out := &Output{
		ParallelCS01:   report.Money(oneBP*cs01, n),
		ParallelIR01:   report.Money(factors.ParallelIR01(c, coupon, yc, cc), n),
		Recovery01:     report.Money(0.01*factors.RecoveryRateSensitivity(c, yc, cc), n),
		ValueOnDefault: report.Money(factors.ValueOnDefault(c, coupon, yc, cc), n),
	}
	for i, v := range bucketed {
		out.BucketedCS01 = append(out.BucketedCS01, Bucket{Label: in.CreditCurve.Pillars[i], Amount: report.Money(oneBP*v, n)})
	}
	times := yc.Times()
	for i, v := range factors.BucketedIR01(c, coupon, yc, cc) {
		out.BucketedIR01 = append(out.BucketedIR01, Bucket{Label: knotLabel(times[i]), Amount: report.Money(v, n)})
	}
	for i, w := range ratios {
		out.HedgeNotionals = append(out.HedgeNotionals, Bucket{Label: in.CreditCurve.Pillars[i], Amount: report.Money(-w, n)})
	}
	return out, nil
}

func knotLabel(t float64) string {
	return fmt.Sprintf("%.4fY", t)
}
