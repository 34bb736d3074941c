package dateutil

import (
	"testing"
	"time"
)

func parseDate(t *testing.T, dateStr string) time.Time {
	t.Helper()
	result, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		t.Fatalf("Failed to parse date %s: %v", dateStr, err)
	}
	return result
}

func TestWeekdayOrdinal(t *testing.T) {
	if got := WeekdayOrdinal(time.Monday); got != 1 {
		t.Errorf("Monday ordinal = %d, want 1", got)
	}
	if got := WeekdayOrdinal(time.Sunday); got != 7 {
		t.Errorf("Sunday ordinal = %d, want 7", got)
	}
	for ord := 1; ord <= 7; ord++ {
		if got := WeekdayOrdinal(OrdinalWeekday(ord)); got != ord {
			t.Errorf("Ordinal %d did not round trip, got %d", ord, got)
		}
	}
}

func TestWeekdayName(t *testing.T) {
	if got := WeekdayName(2); got != "Dienstag" {
		t.Errorf("WeekdayName(2) = %q", got)
	}
	if got := WeekdayName(0); got != "" {
		t.Errorf("WeekdayName(0) = %q, want empty", got)
	}
}

func TestDaysBetween(t *testing.T) {
	t.Run("Forward", func(t *testing.T) {
		if got := DaysBetween(parseDate(t, "2024-01-10"), parseDate(t, "2024-01-24")); got != 14 {
			t.Errorf("DaysBetween = %d, want 14", got)
		}
	})

	t.Run("Backward is negative", func(t *testing.T) {
		if got := DaysBetween(parseDate(t, "2024-03-01"), parseDate(t, "2024-02-28")); got != -2 {
			t.Errorf("DaysBetween = %d, want -2", got)
		}
	})

	t.Run("Across DST change", func(t *testing.T) {
		loc, err := time.LoadLocation("Europe/Berlin")
		if err != nil {
			t.Skipf("Europe/Berlin not available: %v", err)
		}
		a := time.Date(2024, time.March, 30, 12, 0, 0, 0, loc)
		b := time.Date(2024, time.April, 1, 12, 0, 0, 0, loc)
		if got := DaysBetween(a, b); got != 2 {
			t.Errorf("DaysBetween across DST = %d, want 2", got)
		}
	})
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2024, time.January, 31},
		{2024, time.April, 30},
		{1900, time.February, 28}, // century, not a leap year
		{2000, time.February, 29},
	}
	for _, tc := range cases {
		if got := DaysInMonth(tc.year, tc.month); got != tc.want {
			t.Errorf("DaysInMonth(%d, %v) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestWeekIndexInMonth(t *testing.T) {
	cases := []struct {
		date string
		want int
	}{
		{"2024-01-02", 1}, // first Tuesday
		{"2024-01-09", 2},
		{"2024-01-16", 3},
		{"2024-01-23", 4},
		{"2024-01-30", 0}, // last Tuesday, within 7 days of month end
		{"2024-01-25", 0}, // last Thursday
		{"2024-01-24", 4}, // fourth Wednesday, but Jan 31 is also a Wednesday
	}
	for _, tc := range cases {
		d := parseDate(t, tc.date)
		if got := WeekIndexInMonth(d); got != tc.want {
			t.Errorf("WeekIndexInMonth(%s) = %d, want %d", tc.date, got, tc.want)
		}
	}
}

func TestNthWeekdayOfMonth(t *testing.T) {
	t.Run("First Tuesday of January 2024", func(t *testing.T) {
		got := NthWeekdayOfMonth(2024, time.January, time.Tuesday, 1)
		if got.Day() != 2 {
			t.Errorf("Got day %d, want 2", got.Day())
		}
	})

	t.Run("Last Sunday of March 2024", func(t *testing.T) {
		got := NthWeekdayOfMonth(2024, time.March, time.Sunday, 0)
		if got.Day() != 31 {
			t.Errorf("Got day %d, want 31", got.Day())
		}
	})

	t.Run("Last Sunday of October 2024", func(t *testing.T) {
		got := NthWeekdayOfMonth(2024, time.October, time.Sunday, 0)
		if got.Day() != 27 {
			t.Errorf("Got day %d, want 27", got.Day())
		}
	})

	t.Run("Dates are local like every other anchor", func(t *testing.T) {
		// A UTC-anchored result would sort and remind an hour or two off
		// against the locally built holiday dates.
		first := NthWeekdayOfMonth(2024, time.May, time.Sunday, 2)
		last := NthWeekdayOfMonth(2024, time.March, time.Sunday, 0)
		want := time.Date(2024, time.May, 12, 0, 0, 0, 0, time.Local)
		if !first.Equal(want) || first.Location() != time.Local {
			t.Errorf("Got %v, want %v", first, want)
		}
		if last.Location() != time.Local {
			t.Errorf("Last-occurrence result in %v, want local", last.Location())
		}
	})

	t.Run("Missing fifth occurrence", func(t *testing.T) {
		// February 2023 has only four Thursdays.
		got := NthWeekdayOfMonth(2023, time.February, time.Thursday, 5)
		if !got.IsZero() {
			t.Errorf("Expected zero time, got %v", got)
		}
	})
}

func TestWeekNo(t *testing.T) {
	t.Run("January 1st is week 1", func(t *testing.T) {
		if got := WeekNo(parseDate(t, "2024-01-01"), time.Monday); got != 1 {
			t.Errorf("WeekNo = %d, want 1", got)
		}
	})

	t.Run("Monday-first rolls over after the first Sunday", func(t *testing.T) {
		// Jan 1 2024 is a Monday, so Jan 8 starts week 2.
		if got := WeekNo(parseDate(t, "2024-01-07"), time.Monday); got != 1 {
			t.Errorf("WeekNo(Jan 7) = %d, want 1", got)
		}
		if got := WeekNo(parseDate(t, "2024-01-08"), time.Monday); got != 2 {
			t.Errorf("WeekNo(Jan 8) = %d, want 2", got)
		}
	})

	t.Run("Sunday-first December fixup", func(t *testing.T) {
		// Jan 1 2022 is a Saturday; with Sunday-first weeks the trailing
		// days of December 2022 overflow week 52 and report as 53.
		if got := WeekNo(parseDate(t, "2022-12-31"), time.Sunday); got != 53 {
			t.Errorf("WeekNo(Dec 31 2022, Sunday) = %d, want 53", got)
		}
	})
}

func TestFormatParseDate(t *testing.T) {
	d := parseDate(t, "2024-03-15")
	s := FormatDate(d)
	if s != "15.03.2024" {
		t.Errorf("FormatDate = %q, want 15.03.2024", s)
	}
	back, err := ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if !SameDay(back, d) {
		t.Errorf("Round trip changed day: %v -> %v", d, back)
	}

	if _, err := ParseDate("2024-03-15"); err == nil {
		t.Error("Expected error for ISO format input")
	}
}
