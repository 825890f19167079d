package cds

import (
	"fmt"
	"time"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/utils"
)

// Factory builds contracts that follow the standard (post big-bang) CDS
// conventions. The zero value is not usable; start from NewFactory.
type Factory struct {
	StepinDays            int // calendar days
	CashSettleDays        int // business days
	PaymentIntervalMonths int
	Stub                  StubConvention
	PayAccOnDefault       bool
	ProtectionStart       bool
	RecoveryRate          float64
	Calendar              calendar.CalendarID
	BusinessDayConvention calendar.BusinessDayConvention
	AccrualDayCount       string
}

// NewFactory returns a factory with standard conventions: T+1 step-in, T+3
// cash settlement, quarterly ACT/360 coupons with a short front stub,
// protection from the start of day and 40% recovery.
func NewFactory() Factory {
	return Factory{
		StepinDays:            1,
		CashSettleDays:        3,
		PaymentIntervalMonths: 3,
		Stub:                  StubShortInitial,
		PayAccOnDefault:       true,
		ProtectionStart:       true,
		RecoveryRate:          0.4,
		Calendar:              calendar.WEEKEND,
		BusinessDayConvention: calendar.Following,
		AccrualDayCount:       utils.Act360,
	}
}

// WithRecoveryRate returns a copy of the factory using r.
func (f Factory) WithRecoveryRate(r float64) Factory {
	f.RecoveryRate = r
	return f
}

// WithCalendar returns a copy of the factory using cal for date adjustment.
func (f Factory) WithCalendar(cal calendar.CalendarID) Factory {
	f.Calendar = cal
	return f
}

// Make builds a CDS with explicit accrual start and maturity.
func (f Factory) Make(tradeDate, accStartDate, maturity time.Time) (*CDS, error) {
	stepin := tradeDate.AddDate(0, 0, f.StepinDays)
	cashSettle := calendar.AddBusinessDays(f.Calendar, tradeDate, f.CashSettleDays)
	return New(f.params(tradeDate, stepin, cashSettle, accStartDate, maturity))
}

// MakeIMM builds a standard contract: accrual from the previous IMM date and
// maturity at the next IMM date plus tenor.
func (f Factory) MakeIMM(tradeDate time.Time, tenor string) (*CDS, error) {
	accStart := calendar.AdjustWith(f.Calendar, utils.PrevIMM(tradeDate), f.BusinessDayConvention)
	maturity, err := utils.AddTenor(utils.NextIMM(tradeDate), tenor)
	if err != nil {
		return nil, fmt.Errorf("MakeIMM: %w", err)
	}
	return f.Make(tradeDate, accStart, maturity)
}

// MakeIMMStrip builds one standard contract per tenor.
func (f Factory) MakeIMMStrip(tradeDate time.Time, tenors []string) ([]*CDS, error) {
	out := make([]*CDS, len(tenors))
	for i, tenor := range tenors {
		c, err := f.MakeIMM(tradeDate, tenor)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// MakeForwardStarting builds a contract whose protection starts after
// forwardStart (for example an index option expiry). Times are still
// measured from tradeDate; cash settlement follows the forward start.
func (f Factory) MakeForwardStarting(tradeDate, forwardStart time.Time, tenor string) (*CDS, error) {
	if forwardStart.Before(tradeDate) {
		return nil, fmt.Errorf("MakeForwardStarting: forward start before trade date: %w", ErrInvalidContract)
	}
	stepin := forwardStart.AddDate(0, 0, f.StepinDays)
	cashSettle := calendar.AddBusinessDays(f.Calendar, forwardStart, f.CashSettleDays)
	accStart := calendar.AdjustWith(f.Calendar, utils.PrevIMM(forwardStart), f.BusinessDayConvention)
	maturity, err := utils.AddTenor(utils.NextIMM(forwardStart), tenor)
	if err != nil {
		return nil, fmt.Errorf("MakeForwardStarting: %w", err)
	}
	return New(f.params(tradeDate, stepin, cashSettle, accStart, maturity))
}

func (f Factory) params(trade, stepin, cashSettle, accStart, maturity time.Time) Params {
	return Params{
		TradeDate:             trade,
		StepinDate:            stepin,
		CashSettlementDate:    cashSettle,
		AccStartDate:          accStart,
		EndDate:               maturity,
		PaymentIntervalMonths: f.PaymentIntervalMonths,
		Stub:                  f.Stub,
		PayAccOnDefault:       f.PayAccOnDefault,
		ProtectionStart:       f.ProtectionStart,
		AccrualDayCount:       f.AccrualDayCount,
		Calendar:              f.Calendar,
		BusinessDayConvention: f.BusinessDayConvention,
		RecoveryRate:          f.RecoveryRate,
	}
}
