package calendar

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/us"
)

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	USD     CalendarID = "USD"
	GBP     CalendarID = "GBP"
	TARGET  CalendarID = "TARGET"
	WEEKEND CalendarID = "WEEKEND"
)

// BusinessDayConvention is the roll rule applied to non-business days.
type BusinessDayConvention string

const (
	Following         BusinessDayConvention = "FOLLOWING"
	ModifiedFollowing BusinessDayConvention = "MODIFIED_FOLLOWING"
	Preceding         BusinessDayConvention = "PRECEDING"
	Unadjusted        BusinessDayConvention = "NONE"
)

// TARGET2 closing days.
var targetHolidays = []*cal.Holiday{
	{Name: "New Year's Day", Month: time.January, Day: 1, Func: cal.CalcDayOfMonth},
	{Name: "Good Friday", Offset: -2, Func: cal.CalcEasterOffset},
	{Name: "Easter Monday", Offset: 1, Func: cal.CalcEasterOffset},
	{Name: "Labour Day", Month: time.May, Day: 1, Func: cal.CalcDayOfMonth},
	{Name: "Christmas Day", Month: time.December, Day: 25, Func: cal.CalcDayOfMonth},
	{Name: "St. Stephen's Day", Month: time.December, Day: 26, Func: cal.CalcDayOfMonth},
}

var calendars = map[CalendarID]*cal.BusinessCalendar{}

func init() {
	calendars[USD] = newCalendar(us.Holidays...)
	calendars[GBP] = newCalendar(gb.Holidays...)
	calendars[TARGET] = newCalendar(targetHolidays...)
	calendars[WEEKEND] = newCalendar()
}

func newCalendar(holidays ...*cal.Holiday) *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.AddHoliday(holidays...)
	return c
}

// Parse maps a config string to a CalendarID; unknown names fall back to WEEKEND.
func Parse(s string) CalendarID {
	id := CalendarID(s)
	if _, ok := calendars[id]; ok {
		return id
	}
	return WEEKEND
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(id CalendarID, t time.Time) bool {
	c, ok := calendars[id]
	if !ok {
		c = calendars[WEEKEND]
	}
	return c.IsWorkday(t)
}

// Adjust applies Modified Following.
func Adjust(id CalendarID, t time.Time) time.Time {
	origMonth := t.Month()
	adj := AdjustFollowing(id, t)
	if adj.Month() != origMonth {
		return AdjustPreceding(id, t)
	}
	return adj
}

// AdjustFollowing applies a simple Following convention (no month preservation).
func AdjustFollowing(id CalendarID, t time.Time) time.Time {
	for !IsBusinessDay(id, t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AdjustPreceding rolls back to the previous business day.
func AdjustPreceding(id CalendarID, t time.Time) time.Time {
	for !IsBusinessDay(id, t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// AdjustWith dispatches on the business day convention.
func AdjustWith(id CalendarID, t time.Time, bdc BusinessDayConvention) time.Time {
	switch bdc {
	case Following:
		return AdjustFollowing(id, t)
	case ModifiedFollowing:
		return Adjust(id, t)
	case Preceding:
		return AdjustPreceding(id, t)
	default:
		return t
	}
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(id CalendarID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(id, t) {
			n -= step
		}
	}
	return t
}
