// Package cds describes credit default swap contracts: the premium schedule,
// the coupon periods expressed as curve times, and the standard IMM factory.
package cds

import (
	"errors"
	"fmt"
	"time"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/utils"
)

var (
	// ErrInvalidContract is returned for inconsistent contract dates or terms.
	ErrInvalidContract = errors.New("invalid CDS contract")
)

// Params carries the dated terms of a single-name CDS.
type Params struct {
	// Dates
	TradeDate          time.Time
	StepinDate         time.Time // usually T+1
	CashSettlementDate time.Time // usually T+3 business days
	AccStartDate       time.Time // start of the first accrual period
	EndDate            time.Time // protection end (maturity)

	// Premium leg
	PaymentIntervalMonths int
	Stub                  StubConvention
	PayAccOnDefault       bool
	ProtectionStart       bool // protection from the start of day
	AccrualDayCount       string
	Calendar              calendar.CalendarID
	BusinessDayConvention calendar.BusinessDayConvention

	RecoveryRate float64
	Notional     float64 // carried for scaling; prices are per unit notional
}

// CDS is an immutable contract snapshot as seen from its trade date. All
// times are ACT/365F year fractions from the trade date.
type CDS struct {
	coupons []Coupon

	accStart                 float64
	effectiveProtectionStart float64
	protectionEnd            float64
	cashSettleTime           float64
	accrued                  float64
	accruedDays              int
	lgd                      float64
	notional                 float64
	payAccOnDefault          bool
}

// New builds a CDS from dated terms.
func New(p Params) (*CDS, error) {
	if p.StepinDate.Before(p.TradeDate) {
		return nil, fmt.Errorf("New: step-in %s before trade %s: %w",
			p.StepinDate.Format("2006-01-02"), p.TradeDate.Format("2006-01-02"), ErrInvalidContract)
	}
	if p.CashSettlementDate.Before(p.TradeDate) {
		return nil, fmt.Errorf("New: cash settlement before trade date: %w", ErrInvalidContract)
	}
	if !p.EndDate.After(p.AccStartDate) {
		return nil, fmt.Errorf("New: end date must be after accrual start: %w", ErrInvalidContract)
	}
	if p.RecoveryRate < 0 || p.RecoveryRate > 1 {
		return nil, fmt.Errorf("New: recovery rate %g outside [0, 1]: %w", p.RecoveryRate, ErrInvalidContract)
	}
	if p.PaymentIntervalMonths <= 0 {
		return nil, fmt.Errorf("New: payment interval must be positive: %w", ErrInvalidContract)
	}
	if p.Stub == "" {
		p.Stub = StubShortInitial
	}
	if p.AccrualDayCount == "" {
		p.AccrualDayCount = utils.Act360
	}
	if p.Calendar == "" {
		p.Calendar = calendar.WEEKEND
	}
	if p.BusinessDayConvention == "" {
		p.BusinessDayConvention = calendar.Following
	}
	if p.Notional == 0 {
		p.Notional = 1
	}

	full := NewPremiumSchedule(p.AccStartDate, p.EndDate, p.PaymentIntervalMonths, p.Stub,
		p.Calendar, p.BusinessDayConvention, p.ProtectionStart)
	sched := full.Truncate(p.StepinDate)

	c := &CDS{
		coupons:         make([]Coupon, sched.NumPayments()),
		lgd:             1 - p.RecoveryRate,
		notional:        p.Notional,
		payAccOnDefault: p.PayAccOnDefault,
	}
	for i := range c.coupons {
		c.coupons[i] = NewCoupon(p.TradeDate, sched.AccStart[i], sched.AccEnd[i], sched.Payment[i],
			p.ProtectionStart, p.AccrualDayCount)
	}

	c.accStart = utils.YearFraction(p.TradeDate, p.AccStartDate, utils.Act365F)
	effStart := p.AccStartDate
	if p.StepinDate.After(effStart) {
		effStart = p.StepinDate
	}
	if p.ProtectionStart {
		effStart = effStart.AddDate(0, 0, -1)
	}
	c.effectiveProtectionStart = utils.YearFraction(p.TradeDate, effStart, utils.Act365F)
	c.protectionEnd = utils.YearFraction(p.TradeDate, p.EndDate, utils.Act365F)
	c.cashSettleTime = utils.YearFraction(p.TradeDate, p.CashSettlementDate, utils.Act365F)

	firstAccStart := sched.AccStart[0]
	if firstAccStart.Before(p.StepinDate) {
		c.accruedDays = utils.DayCount(firstAccStart, p.StepinDate)
		c.accrued = utils.YearFraction(firstAccStart, p.StepinDate, p.AccrualDayCount)
	}
	return c, nil
}

// FromCoupons builds a CDS directly from curve times. It is used for
// synthetic contracts such as curve-fitting pillars.
func FromCoupons(coupons []Coupon, accStart, effectiveProtectionStart, protectionEnd, cashSettleTime, accrued, recovery float64, payAccOnDefault bool) (*CDS, error) {
	if len(coupons) == 0 {
		return nil, fmt.Errorf("FromCoupons: no coupons: %w", ErrInvalidContract)
	}
	return &CDS{
		coupons:                  append([]Coupon(nil), coupons...),
		accStart:                 accStart,
		effectiveProtectionStart: effectiveProtectionStart,
		protectionEnd:            protectionEnd,
		cashSettleTime:           cashSettleTime,
		accrued:                  accrued,
		lgd:                      1 - recovery,
		notional:                 1,
		payAccOnDefault:          payAccOnDefault,
	}, nil
}

func (c *CDS) clone() *CDS {
	out := *c
	out.coupons = append([]Coupon(nil), c.coupons...)
	return &out
}

// WithRecoveryRate returns a copy with a different recovery rate.
func (c *CDS) WithRecoveryRate(r float64) *CDS {
	out := c.clone()
	out.lgd = 1 - r
	return out
}

// WithNotional returns a copy with a different notional.
func (c *CDS) WithNotional(n float64) *CDS {
	out := c.clone()
	out.notional = n
	return out
}

// WithOffset moves the time origin forward by offset years, e.g. to value a
// forward-starting contract from its expiry.
func (c *CDS) WithOffset(offset float64) *CDS {
	out := c.clone()
	for i := range out.coupons {
		out.coupons[i] = out.coupons[i].WithOffset(offset)
	}
	out.accStart -= offset
	out.effectiveProtectionStart -= offset
	out.protectionEnd -= offset
	out.cashSettleTime -= offset
	return out
}

// NumPayments returns the number of remaining coupon periods.
func (c *CDS) NumPayments() int { return len(c.coupons) }

// Coupon returns period i.
func (c *CDS) Coupon(i int) Coupon { return c.coupons[i] }

// Coupons returns a copy of the coupon periods.
func (c *CDS) Coupons() []Coupon { return append([]Coupon(nil), c.coupons...) }

func (c *CDS) AccStart() float64 { return c.accStart }

// EffectiveProtectionStart is the later of accrual start and step-in, one day
// earlier when protection runs from the start of day.
func (c *CDS) EffectiveProtectionStart() float64 { return c.effectiveProtectionStart }

func (c *CDS) ProtectionEnd() float64 { return c.protectionEnd }

func (c *CDS) CashSettleTime() float64 { return c.cashSettleTime }

// AccruedYearFraction is the accrual day count fraction from the first
// accrual start to step-in.
func (c *CDS) AccruedYearFraction() float64 { return c.accrued }

func (c *CDS) AccruedDays() int { return c.accruedDays }

func (c *CDS) LGD() float64 { return c.lgd }

func (c *CDS) RecoveryRate() float64 { return 1 - c.lgd }

func (c *CDS) Notional() float64 { return c.notional }

func (c *CDS) PayAccOnDefault() bool { return c.payAccOnDefault }

// AccruedPremium is the accrued coupon per unit notional.
func (c *CDS) AccruedPremium(coupon float64) float64 {
	return c.accrued * coupon
}

// Expired reports whether protection has already ended.
func (c *CDS) Expired() bool {
	return c.protectionEnd <= 0
}
