// Package yieldcurve bootstraps the ISDA standard-model discount curve from
// money market deposits and fixed-for-floating swap rates.
package yieldcurve

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/curve"
	"github.com/meenmo/cdslib/maths"
	"github.com/meenmo/cdslib/utils"
)

// ErrInvalidInstrument is returned for unknown instrument types, bad tenors
// and instruments that do not mature strictly after the previous one.
var ErrInvalidInstrument = errors.New("invalid rates instrument")

// InstrumentType is the ISDA instrument code.
type InstrumentType byte

const (
	// MoneyMarket is a simple-interest deposit to the tenor.
	MoneyMarket InstrumentType = 'M'
	// Swap is a par fixed-vs-floating swap; only its fixed leg is used.
	Swap InstrumentType = 'S'
)

// MarshalText writes the one-letter code.
func (it InstrumentType) MarshalText() ([]byte, error) {
	return []byte{byte(it)}, nil
}

// UnmarshalText accepts "M" or "S" and rejects anything else with
// ErrInvalidInstrument.
func (it *InstrumentType) UnmarshalText(b []byte) error {
	if len(b) != 1 || (b[0] != byte(MoneyMarket) && b[0] != byte(Swap)) {
		return fmt.Errorf("instrument type %q: %w", b, ErrInvalidInstrument)
	}
	*it = InstrumentType(b[0])
	return nil
}

// Instrument is one curve pillar quoted as a simple (deposit) or par swap rate.
type Instrument struct {
	Type  InstrumentType `json:"type"`
	Tenor string         `json:"tenor"`
	Rate  float64        `json:"rate"`
}

// Conventions are the market conventions the bootstrap uses. The zero value
// is not usable; start from DefaultConventions.
type Conventions struct {
	SpotDays           int
	Calendar           calendar.CalendarID
	BDC                calendar.BusinessDayConvention
	MoneyMarketDC      string
	SwapFixedDC        string
	SwapIntervalMonths int
	CurveDC            string
}

// DefaultConventions are the ISDA standard model USD conventions.
func DefaultConventions() Conventions {
	return Conventions{
		SpotDays:           2,
		Calendar:           calendar.WEEKEND,
		BDC:                calendar.ModifiedFollowing,
		MoneyMarketDC:      utils.Act360,
		SwapFixedDC:        utils.D30360,
		SwapIntervalMonths: 6,
		CurveDC:            utils.Act365F,
	}
}

// ParseInstruments zips an ISDA type string such as "MMMMMSSSSSSS" with
// tenors and rates.
func ParseInstruments(types string, tenors []string, rates []float64) ([]Instrument, error) {
	if len(types) != len(tenors) || len(types) != len(rates) {
		return nil, fmt.Errorf("ParseInstruments: %d types, %d tenors, %d rates: %w", len(types), len(tenors), len(rates), ErrInvalidInstrument)
	}
	out := make([]Instrument, len(types))
	for i := range out {
		out[i] = Instrument{Type: InstrumentType(types[i]), Tenor: tenors[i], Rate: rates[i]}
	}
	return out, nil
}

// Builder bootstraps yield curves. It is safe for concurrent use.
type Builder struct {
	conv   Conventions
	newton maths.Newton
}

func NewBuilder(conv Conventions) Builder {
	return Builder{conv: conv, newton: maths.NewNewton(maths.DefaultAccuracy)}
}

// Build uses DefaultConventions.
func Build(trade time.Time, instruments []Instrument) (*curve.YieldCurve, error) {
	return NewBuilder(DefaultConventions()).Build(trade, instruments)
}

type payment struct {
	date   time.Time
	t      float64
	amount float64
}

// pillar is a resolved instrument: its adjusted maturity, its curve time
// from spot and, for swaps, the fixed leg.
type pillar struct {
	inst     Instrument
	maturity time.Time
	t        float64
	yf       float64
	leg      []payment
}

// Spot is the curve's own settlement date.
func (b Builder) Spot(trade time.Time) time.Time {
	if b.conv.SpotDays == 0 {
		return trade
	}
	return calendar.AddBusinessDays(b.conv.Calendar, trade, b.conv.SpotDays)
}

// Build fits one knot per instrument, in order, so that every instrument
// reprices to par. The returned curve is anchored at trade.
func (b Builder) Build(trade time.Time, instruments []Instrument) (*curve.YieldCurve, error) {
	if len(instruments) == 0 {
		return nil, fmt.Errorf("Build: no instruments: %w", ErrInvalidInstrument)
	}
	if b.conv.SwapIntervalMonths <= 0 {
		return nil, fmt.Errorf("Build: swap interval %d months: %w", b.conv.SwapIntervalMonths, ErrInvalidInstrument)
	}
	spot := b.Spot(trade)
	pillars := make([]pillar, len(instruments))
	t := make([]float64, len(instruments))
	for i, inst := range instruments {
		p, err := b.resolve(spot, inst)
		if err != nil {
			return nil, fmt.Errorf("Build: instrument %d: %w", i, err)
		}
		if i > 0 && p.t <= t[i-1] {
			return nil, fmt.Errorf("Build: instrument %d (%s) does not mature after %s: %w", i, inst.Tenor, instruments[i-1].Tenor, ErrInvalidInstrument)
		}
		pillars[i] = p
		t[i] = p.t
	}

	arena, err := curve.NewBuilder(t)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	for i, p := range pillars {
		arena.SetRate(p.inst.Rate, i)
	}

	for i, p := range pillars {
		switch p.inst.Type {
		case MoneyMarket:
			arena.SetDiscountFactor(1/(1+p.inst.Rate*p.yf), i)
		case Swap:
			r, err := b.fitSwap(arena, i, p.leg)
			if err != nil {
				return nil, fmt.Errorf("Build: swap %s: %w", p.inst.Tenor, err)
			}
			arena.SetRate(r, i)
		}
		slog.Debug("yieldcurve: pillar solved", "tenor", p.inst.Tenor, "type", string(p.inst.Type), "t", p.t, "rate", arena.ZeroRateAt(i))
	}

	yc := arena.YieldCurve()
	if spot.After(trade) {
		yc = yc.WithOffset(-utils.YearFraction(trade, spot, b.conv.CurveDC))
	}
	return yc.WithReferenceDate(trade), nil
}

func (b Builder) resolve(spot time.Time, inst Instrument) (pillar, error) {
	end, err := utils.AddTenor(spot, inst.Tenor)
	if err != nil {
		return pillar{}, fmt.Errorf("%v: %w", err, ErrInvalidInstrument)
	}
	if !end.After(spot) {
		return pillar{}, fmt.Errorf("tenor %q: %w", inst.Tenor, ErrInvalidInstrument)
	}
	maturity := calendar.AdjustWith(b.conv.Calendar, end, b.conv.BDC)
	p := pillar{inst: inst, maturity: maturity, t: utils.YearFraction(spot, maturity, b.conv.CurveDC)}
	switch inst.Type {
	case MoneyMarket:
		p.yf = utils.YearFraction(spot, maturity, b.conv.MoneyMarketDC)
		if 1+inst.Rate*p.yf <= 0 {
			return pillar{}, fmt.Errorf("deposit rate %g: %w", inst.Rate, ErrInvalidInstrument)
		}
	case Swap:
		p.leg = b.fixedLeg(spot, end, inst.Rate)
	default:
		return pillar{}, fmt.Errorf("type %q: %w", string(inst.Type), ErrInvalidInstrument)
	}
	return p, nil
}

// fixedLeg rolls unadjusted dates backward from end, adjusts them, and
// accrues between adjusted dates. The final amount includes the notional.
func (b Builder) fixedLeg(spot, end time.Time, rate float64) []payment {
	var unadjusted []time.Time
	for k := 0; ; k++ {
		d := utils.AddMonth(end, -k*b.conv.SwapIntervalMonths)
		if !d.After(spot) {
			break
		}
		unadjusted = append([]time.Time{d}, unadjusted...)
	}

	leg := make([]payment, len(unadjusted))
	start := spot
	for k, d := range unadjusted {
		pay := calendar.AdjustWith(b.conv.Calendar, d, b.conv.BDC)
		leg[k] = payment{
			date:   pay,
			t:      utils.YearFraction(spot, pay, b.conv.CurveDC),
			amount: rate * utils.YearFraction(start, pay, b.conv.SwapFixedDC),
		}
		start = pay
	}
	leg[len(leg)-1].amount++
	return leg
}

// fitSwap solves sum(amount * DF(t)) = 1 for the zero rate at knot i.
// Payments up to the previous knot do not depend on that rate.
func (b Builder) fitSwap(arena *curve.Builder, i int, leg []payment) (float64, error) {
	prev := 0.0
	if i > 0 {
		prev = arena.TimeAt(i - 1)
	}
	fixed := 0.0
	var live []payment
	for _, p := range leg {
		if i > 0 && p.t <= prev {
			fixed += p.amount * math.Exp(-arena.RT(p.t))
			continue
		}
		live = append(live, p)
	}

	f := func(x float64) float64 {
		arena.SetRate(x, i)
		pv := fixed
		for _, p := range live {
			pv += p.amount * math.Exp(-arena.RT(p.t))
		}
		return pv - 1
	}
	df := func(x float64) float64 {
		arena.SetRate(x, i)
		sum := 0.0
		for _, p := range live {
			sum += p.amount * arena.SingleNodeSensitivity(p.t, i)
		}
		return sum
	}

	g := arena.ZeroRateAt(i)
	var x1, x2 float64
	var err error
	if g > 0 {
		x1, x2, err = maths.BracketRootBounded(f, 0.8*g, 1.25*g, 0, math.Inf(1))
	} else {
		x1, x2, err = maths.BracketRoot(f, g-0.01, g+0.01)
	}
	if err != nil {
		return 0, err
	}
	return b.newton.RTSafe(f, df, x1, x2)
}

// ParRate is the rate at which inst reprices to par on yc, for a curve
// anchored at trade. It inverts Build: every input reprices to its quote.
func (b Builder) ParRate(yc *curve.YieldCurve, trade time.Time, inst Instrument) (float64, error) {
	spot := b.Spot(trade)
	p, err := b.resolve(spot, inst)
	if err != nil {
		return 0, fmt.Errorf("ParRate: %w", err)
	}
	origin := utils.YearFraction(trade, spot, b.conv.CurveDC)
	dfSpot := yc.DF(origin)
	if p.inst.Type == MoneyMarket {
		return (dfSpot/yc.DF(origin+p.t) - 1) / p.yf, nil
	}

	annuity := 0.0
	start := spot
	for _, pay := range p.leg {
		annuity += utils.YearFraction(start, pay.date, b.conv.SwapFixedDC) * yc.DF(origin+pay.t) / dfSpot
		start = pay.date
	}
	last := p.leg[len(p.leg)-1]
	return (1 - yc.DF(origin+last.t)/dfSpot) / annuity, nil
}
