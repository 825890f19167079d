package cds

import (
	"fmt"
	"sort"
	"time"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/utils"
)

// StubConvention places the irregular period of a premium schedule.
type StubConvention string

const (
	StubNone         StubConvention = "NONE"
	StubShortInitial StubConvention = "SHORT_INITIAL"
	StubLongInitial  StubConvention = "LONG_INITIAL"
	StubShortFinal   StubConvention = "SHORT_FINAL"
	StubLongFinal    StubConvention = "LONG_FINAL"
)

// ParseStub maps a config string to a StubConvention.
func ParseStub(s string) (StubConvention, error) {
	switch st := StubConvention(s); st {
	case StubNone, StubShortInitial, StubLongInitial, StubShortFinal, StubLongFinal:
		return st, nil
	default:
		return "", fmt.Errorf("ParseStub: unknown stub convention %q", s)
	}
}

// PremiumSchedule holds the accrual and payment dates of a premium leg.
type PremiumSchedule struct {
	AccStart []time.Time
	AccEnd   []time.Time
	Payment  []time.Time
}

// NumPayments returns the number of accrual periods.
func (s PremiumSchedule) NumPayments() int { return len(s.Payment) }

// UnadjustedDates builds the ISDA roll dates between start and end. Initial
// stubs roll backward from end, final stubs roll forward from start; each
// date is a whole multiple of intervalMonths from the anchor.
func UnadjustedDates(start, end time.Time, intervalMonths int, stub StubConvention) []time.Time {
	if start.Equal(end) {
		return []time.Time{start, end}
	}
	var dates []time.Time
	switch stub {
	case StubShortInitial, StubLongInitial, StubNone:
		d := end
		for k := 1; d.After(start); k++ {
			dates = append(dates, d)
			d = utils.AddMonth(end, -intervalMonths*k)
		}
		n := len(dates)
		if !d.Equal(start) && n > 1 && stub != StubShortInitial {
			// long front stub: merge the first period into the next
			dates = dates[:n-1]
		}
		dates = append(dates, start)
		for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
			dates[i], dates[j] = dates[j], dates[i]
		}
	default:
		d := start
		for k := 1; d.Before(end); k++ {
			dates = append(dates, d)
			d = utils.AddMonth(start, intervalMonths*k)
		}
		n := len(dates)
		if !d.Equal(end) && n > 1 && stub != StubShortFinal {
			dates = dates[:n-1]
		}
		dates = append(dates, end)
	}
	return dates
}

// NewPremiumSchedule builds the ISDA premium schedule. Every date but the
// first is business-day adjusted; the final accrual end is left unadjusted
// and carries one extra day when protection starts at the start of day.
func NewPremiumSchedule(start, end time.Time, intervalMonths int, stub StubConvention,
	cal calendar.CalendarID, bdc calendar.BusinessDayConvention, protectionStart bool) PremiumSchedule {

	dates := UnadjustedDates(start, end, intervalMonths, stub)
	n := len(dates) - 1
	s := PremiumSchedule{
		AccStart: make([]time.Time, n),
		AccEnd:   make([]time.Time, n),
		Payment:  make([]time.Time, n),
	}
	prevAdj := dates[0]
	for i := 0; i < n; i++ {
		nextAdj := calendar.AdjustWith(cal, dates[i+1], bdc)
		s.AccStart[i] = prevAdj
		s.AccEnd[i] = nextAdj
		s.Payment[i] = nextAdj
		prevAdj = nextAdj
	}
	last := dates[n]
	if protectionStart {
		last = last.AddDate(0, 0, 1)
	}
	s.AccEnd[n-1] = last
	return s
}

// Truncate drops the periods that end before stepin, keeping the period
// that contains it.
func (s PremiumSchedule) Truncate(stepin time.Time) PremiumSchedule {
	n := len(s.AccStart)
	if n == 0 || !s.AccStart[0].Before(stepin) {
		return s
	}
	idx := sort.Search(n, func(i int) bool { return !s.AccStart[i].Before(stepin) })
	if idx == n || !s.AccStart[idx].Equal(stepin) {
		idx--
	}
	return PremiumSchedule{
		AccStart: append([]time.Time(nil), s.AccStart[idx:]...),
		AccEnd:   append([]time.Time(nil), s.AccEnd[idx:]...),
		Payment:  append([]time.Time(nil), s.Payment[idx:]...),
	}
}
