package calibrate

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/maths"
	"github.com/meenmo/cdslib/pricer"
)

// Calibrator fits a credit curve to a strip of contracts with Newton and
// analytic derivatives. Leg elements are built once, and coupons shared by
// several contracts are valued once per trial rate.
type Calibrator struct {
	arbitrage ArbitrageHandling
	newton    maths.Newton

	t           []float64
	lgd         []float64
	accrued     []float64
	valuationDF float64
	reference   time.Time

	protElems []*pricer.ProtectionLegElement
	premElems []pricer.LegElement

	cdsCoupons   [][]int // coupon indexes of each contract
	knotCoupons  [][]int // coupon indexes whose effective end falls on each knot
	sensiCoupons [][]int // intersection of the two
}

// NewCalibrator prepares the leg elements for the strip. Contracts must be
// ordered by protection end and share a trade date.
func NewCalibrator(strip []*cds.CDS, yc *curve.YieldCurve, formula pricer.AccrualOnDefaultFormula, arbitrage ArbitrageHandling) (*Calibrator, error) {
	if err := checkInputs(strip, make([]float64, len(strip)), make([]float64, len(strip))); err != nil {
		return nil, fmt.Errorf("NewCalibrator: %w", err)
	}
	if formula == "" {
		formula = pricer.OriginalISDA
	}
	if arbitrage == "" {
		arbitrage = Ignore
	}
	n := len(strip)
	c := &Calibrator{
		arbitrage:   arbitrage,
		newton:      maths.NewNewton(maths.DefaultAccuracy),
		t:           protectionEnds(strip),
		lgd:         make([]float64, n),
		accrued:     make([]float64, n),
		valuationDF: yc.DF(strip[0].CashSettleTime()),
		reference:   yc.ReferenceDate(),
	}
	for i, x := range strip {
		c.lgd[i] = x.LGD()
		c.accrued[i] = x.AccruedYearFraction()
		if i > 0 && c.t[i] <= c.t[i-1] {
			return nil, fmt.Errorf("NewCalibrator: protection ends not increasing at %d: %w", i, curve.ErrInvalidKnots)
		}
	}

	protStart := strip[0].EffectiveProtectionStart()
	knots := curve.IntegrationPoints(protStart, c.t[n-1], yc.Times(), c.t)

	c.protElems = make([]*pricer.ProtectionLegElement, n)
	for i := range strip {
		start := protStart
		if i > 0 {
			start = c.t[i-1]
		}
		c.protElems[i] = pricer.NewProtectionLegElement(start, c.t[i], yc, i, knots)
	}

	// de-duplicate coupons across the strip
	index := make(map[cds.Coupon]int)
	var coupons []cds.Coupon
	c.cdsCoupons = make([][]int, n)
	for i, x := range strip {
		c.cdsCoupons[i] = make([]int, x.NumPayments())
		for k, cp := range x.Coupons() {
			j, ok := index[cp]
			if !ok {
				j = len(coupons)
				index[cp] = j
				coupons = append(coupons, cp)
			}
			c.cdsCoupons[i][k] = j
		}
	}

	c.knotCoupons = make([][]int, n)
	c.premElems = make([]pricer.LegElement, len(coupons))
	payAoD := strip[0].PayAccOnDefault()
	for j, cp := range coupons {
		node := sort.SearchFloat64s(c.t, cp.EffEnd)
		if node >= n {
			node = n - 1
		}
		c.knotCoupons[node] = append(c.knotCoupons[node], j)
		if payAoD {
			c.premElems[j] = pricer.NewPremiumLegElement(protStart, cp, yc, node, knots, formula)
		} else {
			c.premElems[j] = pricer.NewCouponOnlyElement(cp, yc, node)
		}
	}

	c.sensiCoupons = make([][]int, n)
	for i := range strip {
		c.sensiCoupons[i] = intersection(c.knotCoupons[i], c.cdsCoupons[i])
	}
	return c, nil
}

// Calibrate fits the curve to premiums and clean points upfront.
func (c *Calibrator) Calibrate(premiums, puf []float64) (*curve.HazardCurve, error) {
	n := len(c.t)
	if len(premiums) != n || len(puf) != n {
		return nil, fmt.Errorf("Calibrator.Calibrate: expected %d quotes, got %d premiums and %d upfronts: %w",
			n, len(premiums), len(puf), cds.ErrInvalidContract)
	}
	b, err := curve.NewBuilder(c.t)
	if err != nil {
		return nil, fmt.Errorf("Calibrator.Calibrate: %w", err)
	}
	guess := make([]float64, n)
	for i := range guess {
		guess[i] = initialGuess(premiums[i], puf[i], c.t[i], c.lgd[i])
		b.SetRate(guess[i], i)
	}

	s := &solveState{c: c, b: b, prot: make([][2]float64, n), prem: make([][2]float64, len(c.premElems)), at: -1}
	for i := 0; i < n; i++ {
		f := s.pointFunction(i, premiums[i], puf[i])
		df := s.pointDerivative(i, premiums[i])

		lo := minRate(b, i)
		if f(lo) > 0 {
			clamp, err := floorPillar(c.arbitrage, i, lo)
			if err != nil {
				return nil, fmt.Errorf("Calibrator.Calibrate: pillar %d: %w", i, err)
			}
			if clamp {
				s.update(lo, i)
				continue
			}
		}
		h, err := c.newton.SolveWithDerivative(f, df, math.Max(lo, guess[i]))
		if err != nil {
			slog.Debug("calibrate: pillar failed", "pillar", i, "error", err)
			return nil, fmt.Errorf("Calibrator.Calibrate: pillar %d: %w", i, err)
		}
		s.update(h, i)
		slog.Debug("calibrate: pillar solved", "pillar", i, "t", c.t[i], "rate", h)
	}
	return b.HazardCurve().WithReferenceDate(c.reference), nil
}

// solveState holds the element values for one Calibrate call.
type solveState struct {
	c    *Calibrator
	b    *curve.Builder
	prot [][2]float64
	prem [][2]float64
	last float64
	at   int
}

func (s *solveState) update(h float64, i int) {
	s.b.SetRate(h, i)
	pv, sense := s.c.protElems[i].PVAndSensitivity(s.b)
	s.prot[i] = [2]float64{pv, sense}
	for _, j := range s.c.knotCoupons[i] {
		pv, sense := s.c.premElems[j].PVAndSensitivity(s.b)
		s.prem[j] = [2]float64{pv, sense}
	}
	s.last, s.at = h, i
}

func (s *solveState) pointFunction(i int, premium, puf float64) func(float64) float64 {
	c := s.c
	dirtyPV := puf - premium*c.accrued[i]
	return func(h float64) float64 {
		s.update(h, i)
		prot := 0.0
		for k := 0; k <= i; k++ {
			prot += s.prot[k][0]
		}
		prem := 0.0
		for _, j := range c.cdsCoupons[i] {
			prem += s.prem[j][0]
		}
		return (c.lgd[i]*prot-premium*prem)/c.valuationDF - dirtyPV
	}
}

func (s *solveState) pointDerivative(i int, premium float64) func(float64) float64 {
	c := s.c
	return func(h float64) float64 {
		if s.at != i || s.last != h {
			s.update(h, i)
		}
		prem := 0.0
		for _, j := range c.sensiCoupons[i] {
			prem += s.prem[j][1]
		}
		return (c.lgd[i]*s.prot[i][1] - premium*prem) / c.valuationDF
	}
}

// intersection returns the elements of a that also appear in b.
func intersection(a, b []int) []int {
	in := make(map[int]bool, len(b))
	for _, x := range b {
		in[x] = true
	}
	var out []int
	for _, x := range a {
		if in[x] {
			out = append(out, x)
		}
	}
	return out
}

// AnalyticBuilder adapts Calibrator to the Builder interface.
type AnalyticBuilder struct {
	Formula   pricer.AccrualOnDefaultFormula
	Arbitrage ArbitrageHandling
}

func (a AnalyticBuilder) Calibrate(strip []*cds.CDS, premiums, puf []float64, yc *curve.YieldCurve) (*curve.HazardCurve, error) {
	if err := checkInputs(strip, premiums, puf); err != nil {
		return nil, err
	}
	c, err := NewCalibrator(strip, yc, a.Formula, a.Arbitrage)
	if err != nil {
		return nil, err
	}
	return c.Calibrate(premiums, puf)
}
