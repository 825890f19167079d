package calibrate

import (
	"fmt"

	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/pricer"
)

// QuoteConverter converts between the market quote conventions. Quoted
// spreads and upfronts are related through a flat hazard curve fitted to
// the single contract.
type QuoteConverter struct {
	pricer  pricer.AnalyticPricer
	builder Builder
}

// NewQuoteConverter uses formula for both the flat curve fit and pricing.
func NewQuoteConverter(formula pricer.AccrualOnDefaultFormula) QuoteConverter {
	return QuoteConverter{
		pricer:  pricer.NewAnalyticPricer(formula),
		builder: FastBuilder{Formula: formula, Arbitrage: Ignore},
	}
}

// PUFToQuotedSpread returns the flat-curve par spread of a contract that
// trades at puf with the given premium.
func (qc QuoteConverter) PUFToQuotedSpread(c *cds.CDS, premium, puf float64, yc *curve.YieldCurve) (float64, error) {
	cc, err := qc.builder.Calibrate([]*cds.CDS{c}, []float64{premium}, []float64{puf}, yc)
	if err != nil {
		return 0, fmt.Errorf("PUFToQuotedSpread: %w", err)
	}
	return qc.pricer.ParSpread(c, yc, cc), nil
}

// QuotedSpreadToPUF returns the clean points upfront of a contract paying
// premium whose flat-curve par spread is quotedSpread.
func (qc QuoteConverter) QuotedSpreadToPUF(c *cds.CDS, premium, quotedSpread float64, yc *curve.YieldCurve) (float64, error) {
	cc, err := qc.builder.Calibrate([]*cds.CDS{c}, []float64{quotedSpread}, []float64{0}, yc)
	if err != nil {
		return 0, fmt.Errorf("QuotedSpreadToPUF: %w", err)
	}
	return qc.pricer.PV(c, yc, cc, premium, pricer.Clean), nil
}

// ParSpreadsToPUF fits a term structure to par spreads and reprices the
// strip at the given premiums.
func (qc QuoteConverter) ParSpreadsToPUF(strip []*cds.CDS, premiums, parSpreads []float64, yc *curve.YieldCurve) ([]float64, error) {
	if len(premiums) != len(strip) {
		return nil, fmt.Errorf("ParSpreadsToPUF: %d contracts, %d premiums: %w", len(strip), len(premiums), cds.ErrInvalidContract)
	}
	cc, err := qc.builder.Calibrate(strip, parSpreads, make([]float64, len(strip)), yc)
	if err != nil {
		return nil, fmt.Errorf("ParSpreadsToPUF: %w", err)
	}
	out := make([]float64, len(strip))
	for i, c := range strip {
		out[i] = qc.pricer.PV(c, yc, cc, premiums[i], pricer.Clean)
	}
	return out, nil
}

// PUFToPrice converts points upfront to a clean price per unit notional.
func PUFToPrice(puf float64) float64 { return 1 - puf }

// PriceToPUF is the inverse of PUFToPrice.
func PriceToPUF(price float64) float64 { return 1 - price }

// ToPUF expresses a quote as premium plus clean points upfront.
func (qc QuoteConverter) ToPUF(c *cds.CDS, q cds.Quote, yc *curve.YieldCurve) (premium, puf float64, err error) {
	switch x := q.(type) {
	case cds.ParSpread:
		return x.Spread, 0, nil
	case cds.PointsUpFront:
		return x.Premium, x.PUF, nil
	case cds.QuotedSpread:
		puf, err := qc.QuotedSpreadToPUF(c, x.Premium, x.Spread, yc)
		return x.Premium, puf, err
	default:
		return 0, 0, fmt.Errorf("ToPUF: unsupported quote type %T", q)
	}
}

// CalibrateFromQuotes fits a curve to a strip quoted in any mix of
// conventions.
func CalibrateFromQuotes(b Builder, qc QuoteConverter, strip []*cds.CDS, quotes []cds.Quote, yc *curve.YieldCurve) (*curve.HazardCurve, error) {
	if len(quotes) != len(strip) {
		return nil, fmt.Errorf("CalibrateFromQuotes: %d contracts, %d quotes: %w", len(strip), len(quotes), cds.ErrInvalidContract)
	}
	premiums := make([]float64, len(strip))
	puf := make([]float64, len(strip))
	for i, q := range quotes {
		var err error
		premiums[i], puf[i], err = qc.ToPUF(strip[i], q, yc)
		if err != nil {
			return nil, fmt.Errorf("CalibrateFromQuotes: quote %d: %w", i, err)
		}
	}
	return b.Calibrate(strip, premiums, puf, yc)
}
