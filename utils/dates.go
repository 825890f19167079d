package utils

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SortDates sorts a slice of time.Time in ascending order.
func SortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
}

// ParseDate converts YYYY-MM-DD to time.Time.
func ParseDate(strDate string) (time.Time, error) {
	const layout = "2006-01-02"
	t, err := time.Parse(layout, strDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDate: %w", err)
	}
	return t, nil
}

// Days returns the day count fraction in days between two dates.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// AddMonth behaves like Excel's EDATE, avoiding Go's month normalization surprises.
func AddMonth(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// AddTenor moves t forward by a tenor such as "3M", "5Y", "2W" or "1D".
func AddTenor(t time.Time, tenor string) (time.Time, error) {
	n, unit, err := ParseTenor(tenor)
	if err != nil {
		return time.Time{}, err
	}
	switch unit {
	case 'D':
		return t.AddDate(0, 0, n), nil
	case 'W':
		return t.AddDate(0, 0, 7*n), nil
	case 'M':
		return AddMonth(t, n), nil
	default:
		return AddMonth(t, 12*n), nil
	}
}

// ParseTenor splits a tenor string into count and unit (D, W, M or Y).
func ParseTenor(tenor string) (int, byte, error) {
	s := strings.ToUpper(strings.TrimSpace(tenor))
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("ParseTenor: invalid tenor %q", tenor)
	}
	unit := s[len(s)-1]
	switch unit {
	case 'D', 'W', 'M', 'Y':
	default:
		return 0, 0, fmt.Errorf("ParseTenor: unknown unit in %q", tenor)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, 0, fmt.Errorf("ParseTenor: %w", err)
	}
	return n, unit, nil
}

// TenorMonths returns the tenor length in months; D and W tenors are rejected.
func TenorMonths(tenor string) (int, error) {
	n, unit, err := ParseTenor(tenor)
	if err != nil {
		return 0, err
	}
	switch unit {
	case 'M':
		return n, nil
	case 'Y':
		return 12 * n, nil
	default:
		return 0, fmt.Errorf("TenorMonths: %q is not a month or year tenor", tenor)
	}
}

// ----------------------------------------------------------------------------
// IMM dates (20th of Mar, Jun, Sep, Dec)
// ----------------------------------------------------------------------------

const immDay = 20

func isIMMMonth(m time.Month) bool {
	return m%3 == 0
}

// IsIMMDate reports whether t falls on a CDS roll date.
func IsIMMDate(t time.Time) bool {
	return t.Day() == immDay && isIMMMonth(t.Month())
}

// NextIMM returns the first IMM date strictly after t.
func NextIMM(t time.Time) time.Time {
	if isIMMMonth(t.Month()) && t.Day() < immDay {
		return time.Date(t.Year(), t.Month(), immDay, 0, 0, 0, 0, time.UTC)
	}
	m := int(t.Month())
	next := m + 3 - m%3
	return time.Date(t.Year(), time.Month(next), immDay, 0, 0, 0, 0, time.UTC)
}

// PrevIMM returns the last IMM date on or before t, except that an IMM date
// itself maps to the previous one.
func PrevIMM(t time.Time) time.Time {
	if isIMMMonth(t.Month()) && t.Day() > immDay {
		return time.Date(t.Year(), t.Month(), immDay, 0, 0, 0, 0, time.UTC)
	}
	m := int(t.Month())
	prev := m - m%3
	if m%3 == 0 {
		prev = m - 3
	}
	return time.Date(t.Year(), time.Month(prev), immDay, 0, 0, 0, 0, time.UTC)
}

// RoundTo rounds a float to the specified decimal places.
func RoundTo(val float64, decimals uint32) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
