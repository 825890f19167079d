package calibrate

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/maths"
	"github.com/meenmo/cdslib/pricer"
)

// FastBuilder fits each pillar by bracketing and Brent on values alone.
type FastBuilder struct {
	Formula   pricer.AccrualOnDefaultFormula
	Arbitrage ArbitrageHandling
}

// Calibrate fits the curve to premiums and clean points upfront.
func (fb FastBuilder) Calibrate(strip []*cds.CDS, premiums, puf []float64, yc *curve.YieldCurve) (*curve.HazardCurve, error) {
	if err := checkInputs(strip, premiums, puf); err != nil {
		return nil, fmt.Errorf("FastBuilder.Calibrate: %w", err)
	}
	formula := fb.Formula
	if formula == "" {
		formula = pricer.OriginalISDA
	}
	n := len(strip)
	t := protectionEnds(strip)
	b, err := curve.NewBuilder(t)
	if err != nil {
		return nil, fmt.Errorf("FastBuilder.Calibrate: %w", err)
	}
	guess := make([]float64, n)
	for i, c := range strip {
		guess[i] = initialGuess(premiums[i], puf[i], t[i], c.LGD())
		b.SetRate(guess[i], i)
	}

	for i, c := range strip {
		pp := newPillarPricer(c, yc, t, formula)
		f := func(x float64) float64 {
			b.SetRate(x, i)
			return pp.cleanPV(b, premiums[i]) - puf[i]
		}

		lo := minRate(b, i)
		if f(lo) > 0 {
			clamp, err := floorPillar(fb.Arbitrage, i, lo)
			if err != nil {
				return nil, fmt.Errorf("FastBuilder.Calibrate: pillar %d: %w", i, err)
			}
			if clamp {
				b.SetRate(lo, i)
				continue
			}
		}
		g := math.Max(lo, guess[i])
		hi := 1.2 * g
		if hi <= g {
			hi = g + 0.01
		}
		x1, x2, err := maths.BracketRootBounded(f, g, hi, lo, math.Inf(1))
		if err != nil {
			return nil, fmt.Errorf("FastBuilder.Calibrate: pillar %d: %w", i, err)
		}
		h, err := maths.Brent(f, x1, x2, maths.DefaultAccuracy)
		if err != nil {
			return nil, fmt.Errorf("FastBuilder.Calibrate: pillar %d: %w", i, err)
		}
		b.SetRate(h, i)
		slog.Debug("calibrate: pillar solved", "pillar", i, "t", t[i], "rate", h)
	}
	return b.HazardCurve().WithReferenceDate(yc.ReferenceDate()), nil
}

// pillarPricer values one contract against a credit curve under
// construction, with all yield curve quantities cached.
type pillarPricer struct {
	lgd         float64
	accrued     float64
	valuationDF float64
	prot        *pricer.ProtectionLegElement
	prem        []pricer.LegElement
}

func newPillarPricer(c *cds.CDS, yc *curve.YieldCurve, creditKnots []float64, formula pricer.AccrualOnDefaultFormula) *pillarPricer {
	protStart := c.EffectiveProtectionStart()
	pp := &pillarPricer{
		lgd:         c.LGD(),
		accrued:     c.AccruedYearFraction(),
		valuationDF: yc.DF(c.CashSettleTime()),
		prot: pricer.NewProtectionLegElement(protStart, c.ProtectionEnd(), yc, 0,
			curve.IntegrationPoints(protStart, c.ProtectionEnd(), yc.Times(), creditKnots)),
		prem: make([]pricer.LegElement, c.NumPayments()),
	}
	var knots []float64
	if c.PayAccOnDefault() {
		start := c.AccStart()
		if c.NumPayments() == 1 {
			start = protStart
		}
		knots = curve.IntegrationPoints(start, c.ProtectionEnd(), yc.Times(), creditKnots)
	}
	for i, cp := range c.Coupons() {
		if c.PayAccOnDefault() {
			pp.prem[i] = pricer.NewPremiumLegElement(protStart, cp, yc, 0, knots, formula)
		} else {
			pp.prem[i] = pricer.NewCouponOnlyElement(cp, yc, 0)
		}
	}
	return pp
}

// cleanPV is the spot-start clean PV at the cash-settle date.
func (pp *pillarPricer) cleanPV(cc curve.TermStructure, premium float64) float64 {
	annuity := 0.0
	for _, e := range pp.prem {
		annuity += e.PV(cc)
	}
	annuity = annuity/pp.valuationDF - pp.accrued
	return pp.lgd*pp.prot.PV(cc)/pp.valuationDF - premium*annuity
}
