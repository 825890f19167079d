package utils_test

import (
	"math"
	"testing"
	"time"

	"github.com/meenmo/cdslib/utils"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYearFraction(t *testing.T) {
	t.Parallel()

	start := date(2024, 1, 31)
	end := date(2024, 7, 31)
	cases := []struct {
		conv string
		want float64
	}{
		{utils.Act360, 182.0 / 360.0},
		{utils.Act365F, 182.0 / 365.0},
		{utils.D30360, 180.0 / 360.0},
		{utils.D30E360, 180.0 / 360.0},
	}
	for _, tc := range cases {
		got := utils.YearFraction(start, end, tc.conv)
		if math.Abs(got-tc.want) > 1e-15 {
			t.Fatalf("YearFraction(%s): got %.12f want %.12f", tc.conv, got, tc.want)
		}
	}

	if got := utils.YearFraction(end, start, utils.Act365F); got >= 0 {
		t.Fatalf("YearFraction should be negative for reversed dates, got %.12f", got)
	}
}

func TestDayCount(t *testing.T) {
	t.Parallel()

	if got := utils.DayCount(date(2024, 2, 1), date(2024, 3, 1)); got != 29 {
		t.Fatalf("DayCount leap February: got %d", got)
	}
	if got := utils.DayCount(date(2024, 3, 1), date(2024, 2, 1)); got != -29 {
		t.Fatalf("DayCount reversed: got %d", got)
	}
}

func TestAddMonth_EndOfMonth(t *testing.T) {
	t.Parallel()

	got := utils.AddMonth(date(2024, 1, 31), 1)
	if !got.Equal(date(2024, 2, 29)) {
		t.Fatalf("AddMonth mismatch: got %s", got.Format("2006-01-02"))
	}
	got = utils.AddMonth(date(2024, 3, 20), -3)
	if !got.Equal(date(2023, 12, 20)) {
		t.Fatalf("AddMonth backward mismatch: got %s", got.Format("2006-01-02"))
	}
}

func TestIMMDates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		trade, prev, next time.Time
	}{
		{date(2024, 2, 13), date(2023, 12, 20), date(2024, 3, 20)},
		{date(2024, 3, 20), date(2023, 12, 20), date(2024, 6, 20)},
		{date(2024, 3, 21), date(2024, 3, 20), date(2024, 6, 20)},
		{date(2024, 12, 25), date(2024, 12, 20), date(2025, 3, 20)},
		{date(2024, 6, 19), date(2024, 3, 20), date(2024, 6, 20)},
	}
	for _, tc := range cases {
		if got := utils.PrevIMM(tc.trade); !got.Equal(tc.prev) {
			t.Fatalf("PrevIMM(%s): got %s", tc.trade.Format("2006-01-02"), got.Format("2006-01-02"))
		}
		if got := utils.NextIMM(tc.trade); !got.Equal(tc.next) {
			t.Fatalf("NextIMM(%s): got %s", tc.trade.Format("2006-01-02"), got.Format("2006-01-02"))
		}
	}
	if !utils.IsIMMDate(date(2024, 9, 20)) || utils.IsIMMDate(date(2024, 8, 20)) {
		t.Fatalf("IsIMMDate mismatch")
	}
}

func TestParseTenor(t *testing.T) {
	t.Parallel()

	n, unit, err := utils.ParseTenor("5y")
	if err != nil {
		t.Fatalf("ParseTenor error: %v", err)
	}
	if n != 5 || unit != 'Y' {
		t.Fatalf("ParseTenor mismatch: got %d%c", n, unit)
	}
	if _, _, err := utils.ParseTenor("5X"); err == nil {
		t.Fatalf("expected error for unknown unit")
	}
	m, err := utils.TenorMonths("2Y")
	if err != nil || m != 24 {
		t.Fatalf("TenorMonths mismatch: got %d err %v", m, err)
	}
	d, err := utils.AddTenor(date(2024, 1, 1), "2W")
	if err != nil || !d.Equal(date(2024, 1, 15)) {
		t.Fatalf("AddTenor mismatch: got %s err %v", d.Format("2006-01-02"), err)
	}
}
