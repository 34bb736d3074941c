package frequency

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

func TestFromBooleans(t *testing.T) {
	t.Run("All flags false yields Once", func(t *testing.T) {
		f := FromBooleans(false, false, false)
		if !f.IsOnce() {
			t.Errorf("Expected Once, got %v", f)
		}
		if f.Recurring() {
			t.Error("Once frequency should not be recurring")
		}
	})

	t.Run("Any flag yields ByDate", func(t *testing.T) {
		f := FromBooleans(false, false, true)
		if f.Mode != ByDate {
			t.Errorf("Expected ByDate mode, got %v", f.Mode)
		}
		if !f.Yearly || f.Weekly || f.Monthly {
			t.Errorf("Unexpected flags: %v", f)
		}
		if !f.Recurring() {
			t.Error("ByDate frequency should be recurring")
		}
	})
}

func TestNewIntervalClamping(t *testing.T) {
	t.Run("Zero clamps to one", func(t *testing.T) {
		f := NewInterval(0, UnitDays)
		if f.Interval != 1 {
			t.Errorf("Expected interval 1, got %d", f.Interval)
		}
	})

	t.Run("Overflow clamps to max", func(t *testing.T) {
		f := NewInterval(5000, UnitWeeks)
		if f.Interval != MaxInterval {
			t.Errorf("Expected interval %d, got %d", MaxInterval, f.Interval)
		}
	})
}

func TestCodecRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		freq Frequency
	}{
		{"once", FromBooleans(false, false, false)},
		{"weekly only", FromBooleans(true, false, false)},
		{"monthly only", FromBooleans(false, true, false)},
		{"yearly only", FromBooleans(false, false, true)},
		{"weekly+monthly", FromBooleans(true, true, false)},
		{"weekly+yearly", FromBooleans(true, false, true)},
		{"monthly+yearly", FromBooleans(false, true, true)},
		{"all flags", FromBooleans(true, true, true)},
		{"first tuesday", NewWeekday(2, 1)},
		{"last friday", NewWeekday(5, 0)},
		{"fifth sunday", NewWeekday(7, 5)},
		{"every 3 weeks", NewInterval(3, UnitWeeks)},
		{"every day", NewInterval(1, UnitDays)},
		{"every 6 months", NewInterval(6, UnitMonths)},
		{"every 2 years", NewInterval(2, UnitYears)},
		{"max interval", NewInterval(MaxInterval, UnitDays)},
		{"month end", NewMonthEnd()},
		{"labour day", Frequency{Mode: ByLabourDay}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code := tc.freq.Code()
			decoded := Decode(code)
			if decoded != tc.freq {
				t.Errorf("Round trip changed frequency: %v -> %d -> %v", tc.freq, code, decoded)
			}
		})
	}
}

func TestCodecValues(t *testing.T) {
	t.Run("Once encodes as zero", func(t *testing.T) {
		if code := FromBooleans(false, false, false).Code(); code != 0 {
			t.Errorf("Expected code 0, got %d", code)
		}
	})

	t.Run("ByDate flags occupy low bits", func(t *testing.T) {
		if code := FromBooleans(true, true, true).Code(); code != 7 {
			t.Errorf("Expected code 7, got %d", code)
		}
	})

	t.Run("Labour day sets the sign bit", func(t *testing.T) {
		code := Frequency{Mode: ByLabourDay}.Code()
		if code >= 0 {
			t.Errorf("Expected negative code, got %d", code)
		}
	})

	t.Run("Zero interval payload clamps to one", func(t *testing.T) {
		// A bare mode selector 2 with no payload only occurs in damaged
		// files; the interval must never decode to zero.
		raw := uint16(2) << 13
		f := Decode(int16(raw))
		if f.Mode != ByInterval || f.Interval != 1 {
			t.Errorf("Expected interval 1, got %+v", f)
		}
	})

	t.Run("Unknown mode decodes as Once", func(t *testing.T) {
		// Mode selector 6 is unassigned.
		raw := uint16(6) << 13
		if f := Decode(int16(raw)); !f.IsOnce() {
			t.Errorf("Expected Once for unknown mode, got %v", f)
		}
	})
}

func TestLabel(t *testing.T) {
	anchor := parseDate(t, "2024-03-15") // a Friday

	cases := []struct {
		name string
		freq Frequency
		want string
	}{
		{"once has no label", FromBooleans(false, false, false), ""},
		{"every weekday", FromBooleans(true, true, true), "jeden Freitag"},
		{"weekday in year", FromBooleans(true, true, false), "jeden Freitag im Jahr 2024"},
		{"weekday in month", FromBooleans(true, false, true), "jeden Freitag im März"},
		{"weekday in month and year", FromBooleans(true, false, false), "jeden Freitag im März 2024"},
		{"monthly day", FromBooleans(false, true, true), "jeden Monat am 15."},
		{"monthly day in year", FromBooleans(false, true, false), "jeden Monat am 15. im Jahr 2024"},
		{"yearly date", FromBooleans(false, false, true), "jedes Jahr am 15. März"},
		{"first tuesday", NewWeekday(2, 1), "jeden 1. Dienstag im Monat"},
		{"last friday", NewWeekday(5, 0), "jeden letzten Freitag im Monat"},
		{"every 3 weeks", NewInterval(3, UnitWeeks), "alle 3 Wochen"},
		{"every day", NewInterval(1, UnitDays), "jeden Tag"},
		{"every week", NewInterval(1, UnitWeeks), "jede Woche"},
		{"every 2 years", NewInterval(2, UnitYears), "alle 2 Jahre"},
		{"labour day has no label", Frequency{Mode: ByLabourDay}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.freq.Label(anchor); got != tc.want {
				t.Errorf("Label() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMonthEndLabel(t *testing.T) {
	t.Run("On the last day", func(t *testing.T) {
		f := NewMonthEnd()
		if got := f.Label(parseDate(t, "2024-01-31")); got != "am Monatsende" {
			t.Errorf("Label() = %q", got)
		}
	})

	t.Run("Days before month end", func(t *testing.T) {
		f := NewMonthEnd()
		if got := f.Label(parseDate(t, "2024-01-28")); got != "3 Tage vor Monatsende" {
			t.Errorf("Label() = %q", got)
		}
	})

	t.Run("One day before month end", func(t *testing.T) {
		f := NewMonthEnd()
		if got := f.Label(parseDate(t, "2024-01-30")); got != "1 Tag vor Monatsende" {
			t.Errorf("Label() = %q", got)
		}
	})
}
