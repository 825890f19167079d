package utils

import (
	"time"
)

// Day count conventions.
const (
	Act360  = "ACT/360"
	Act365F = "ACT/365F"
	D30360  = "30/360"
	D30E360 = "30E/360"
)

// YearFraction computes year fraction between two dates using the specified day count convention.
// Supported conventions: ACT/360, ACT/365F, 30/360 (US bond basis), 30E/360.
// The result is negative when end is before start.
func YearFraction(start, end time.Time, convention string) float64 {
	switch convention {
	case Act360:
		return float64(DayCount(start, end)) / 360.0
	case Act365F:
		return float64(DayCount(start, end)) / 365.0
	case D30360:
		return float64(days30360(start, end, false)) / 360.0
	case D30E360:
		return float64(days30360(start, end, true)) / 360.0
	default:
		return float64(DayCount(start, end)) / 365.0
	}
}

// DayCount returns the signed number of calendar days from start to end.
func DayCount(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

func days30360(start, end time.Time, european bool) int {
	d1 := start.Day()
	d2 := end.Day()
	if european {
		// D1 and D2 are capped at 30
		if d1 > 30 {
			d1 = 30
		}
		if d2 > 30 {
			d2 = 30
		}
	} else {
		if d1 == 31 {
			d1 = 30
		}
		if d2 == 31 && d1 == 30 {
			d2 = 30
		}
	}
	y1, m1 := start.Year(), int(start.Month())
	y2, m2 := end.Year(), int(end.Month())
	return 360*(y2-y1) + 30*(m2-m1) + (d2 - d1)
}
