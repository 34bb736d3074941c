package event

import (
	"testing"
	"time"

	"kalender/internal/frequency"
)

func mustParse(t *testing.T, layout, value string) time.Time {
	t.Helper()
	result, err := time.Parse(layout, value)
	if err != nil {
		t.Fatalf("Failed to parse time %s: %v", value, err)
	}
	return result
}

func parseDate(t *testing.T, dateStr string) time.Time {
	t.Helper()
	return mustParse(t, "2006-01-02", dateStr)
}

func parseDateTime(t *testing.T, dateTimeStr string) time.Time {
	t.Helper()
	return mustParse(t, "2006-01-02 15:04", dateTimeStr)
}

func TestMatchOnce(t *testing.T) {
	ev := New(1, "Zahnarzt", parseDate(t, "2024-06-15"), frequency.FromBooleans(false, false, false))

	if !ev.Match(parseDate(t, "2024-06-15")) {
		t.Error("Once event should match its anchor date")
	}
	if ev.Match(parseDate(t, "2024-06-16")) {
		t.Error("Once event should not match other dates")
	}
	if ev.Match(parseDate(t, "2025-06-15")) {
		t.Error("Once event should not match the same date next year")
	}
}

func TestMatchOnceMultiDay(t *testing.T) {
	ev := New(1, "Urlaub", parseDate(t, "2024-06-01"), frequency.FromBooleans(false, false, false))
	ev.EndDate = parseDate(t, "2024-06-03")

	for _, d := range []string{"2024-06-01", "2024-06-02", "2024-06-03"} {
		if !ev.Match(parseDate(t, d)) {
			t.Errorf("Multi-day event should match %s", d)
		}
	}
	if ev.Match(parseDate(t, "2024-05-31")) {
		t.Error("Should not match before the span")
	}
	if ev.Match(parseDate(t, "2024-06-04")) {
		t.Error("Should not match after the span")
	}
}

func TestMatchByDateCombinations(t *testing.T) {
	// March 15 2024 is a Friday.
	anchor := parseDate(t, "2024-03-15")

	cases := []struct {
		name  string
		freq  frequency.Frequency
		match []string
		miss  []string
	}{
		{
			name:  "weekly+monthly+yearly matches every Friday",
			freq:  frequency.FromBooleans(true, true, true),
			match: []string{"2024-03-22", "2024-07-05", "2025-01-03"},
			miss:  []string{"2024-03-16", "2024-03-21"},
		},
		{
			name:  "weekly+monthly matches Fridays of the anchor year",
			freq:  frequency.FromBooleans(true, true, false),
			match: []string{"2024-01-05", "2024-12-27"},
			miss:  []string{"2025-01-03", "2024-03-16"},
		},
		{
			name:  "weekly+yearly matches Fridays of the anchor month",
			freq:  frequency.FromBooleans(true, false, true),
			match: []string{"2024-03-01", "2025-03-07"},
			miss:  []string{"2024-04-05", "2024-03-14"},
		},
		{
			name:  "weekly matches Fridays of the anchor month and year",
			freq:  frequency.FromBooleans(true, false, false),
			match: []string{"2024-03-01", "2024-03-29"},
			miss:  []string{"2025-03-07", "2024-04-05"},
		},
		{
			name:  "monthly+yearly matches the 15th of every month",
			freq:  frequency.FromBooleans(false, true, true),
			match: []string{"2024-04-15", "2025-11-15"},
			miss:  []string{"2024-04-14"},
		},
		{
			name:  "monthly matches the 15th within the anchor year",
			freq:  frequency.FromBooleans(false, true, false),
			match: []string{"2024-01-15", "2024-12-15"},
			miss:  []string{"2025-01-15"},
		},
		{
			name:  "yearly matches the anchor day and month every year",
			freq:  frequency.FromBooleans(false, false, true),
			match: []string{"2025-03-15", "2030-03-15"},
			miss:  []string{"2024-03-14", "2024-04-15"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := New(1, "Test", anchor, tc.freq)
			if !ev.Match(anchor) {
				t.Error("Every rule should match its own anchor")
			}
			for _, d := range tc.match {
				if !ev.Match(parseDate(t, d)) {
					t.Errorf("Should match %s", d)
				}
			}
			for _, d := range tc.miss {
				if ev.Match(parseDate(t, d)) {
					t.Errorf("Should not match %s", d)
				}
			}
		})
	}
}

func TestMatchByWeekday(t *testing.T) {
	t.Run("First Tuesday of the month", func(t *testing.T) {
		// Tuesday ordinal 2, week index 1.
		ev := New(1, "Stammtisch", parseDate(t, "2024-01-02"), frequency.NewWeekday(2, 1))

		if !ev.Match(parseDate(t, "2024-01-02")) {
			t.Error("Should match first Tuesday of January")
		}
		if !ev.Match(parseDate(t, "2024-02-06")) {
			t.Error("Should match first Tuesday of February")
		}
		if ev.Match(parseDate(t, "2024-01-09")) {
			t.Error("Should not match the second Tuesday")
		}
		if ev.Match(parseDate(t, "2024-01-03")) {
			t.Error("Should not match a Wednesday")
		}
	})

	t.Run("Last Friday of the month", func(t *testing.T) {
		ev := New(1, "Abrechnung", parseDate(t, "2024-01-26"), frequency.NewWeekday(5, 0))

		if !ev.Match(parseDate(t, "2024-01-26")) {
			t.Error("Should match last Friday of January")
		}
		if !ev.Match(parseDate(t, "2024-02-23")) {
			t.Error("Should match last Friday of February")
		}
		if ev.Match(parseDate(t, "2024-01-19")) {
			t.Error("Should not match an earlier Friday")
		}
	})
}

func TestMatchByInterval(t *testing.T) {
	t.Run("Every two weeks", func(t *testing.T) {
		ev := New(1, "Biotonne", parseDate(t, "2024-01-10"), frequency.NewInterval(2, frequency.UnitWeeks))

		if !ev.Match(parseDate(t, "2024-01-10")) {
			t.Error("Should match the anchor")
		}
		if !ev.Match(parseDate(t, "2024-01-24")) {
			t.Error("Should match 14 days later")
		}
		if ev.Match(parseDate(t, "2024-01-17")) {
			t.Error("Should not match 7 days later")
		}
		// The rule also extends backwards from the anchor.
		if !ev.Match(parseDate(t, "2023-12-27")) {
			t.Error("Should match 14 days before the anchor")
		}
	})

	t.Run("Every three months keeps the day of month", func(t *testing.T) {
		ev := New(1, "Quartalsbericht", parseDate(t, "2024-01-31"), frequency.NewInterval(3, frequency.UnitMonths))

		if !ev.Match(parseDate(t, "2024-07-31")) {
			t.Error("Should match six months later")
		}
		if ev.Match(parseDate(t, "2024-04-30")) {
			t.Error("April has no 31st, so no occurrence in April")
		}
		if ev.Match(parseDate(t, "2024-02-29")) {
			t.Error("Should not match a different day of month")
		}
	})

	t.Run("Every two years", func(t *testing.T) {
		ev := New(1, "TÜV", parseDate(t, "2024-05-10"), frequency.NewInterval(2, frequency.UnitYears))

		if !ev.Match(parseDate(t, "2026-05-10")) {
			t.Error("Should match two years later")
		}
		if ev.Match(parseDate(t, "2025-05-10")) {
			t.Error("Should not match the year in between")
		}
	})
}

func TestMatchByMonthEnd(t *testing.T) {
	// Anchored 3 days before a month end.
	ev := New(1, "Gehalt", parseDate(t, "2024-01-28"), frequency.NewMonthEnd())

	if !ev.Match(parseDate(t, "2024-01-28")) {
		t.Error("Should match the anchor")
	}
	if !ev.Match(parseDate(t, "2024-02-26")) {
		t.Error("Should match 3 days before the end of February")
	}
	if !ev.Match(parseDate(t, "2024-04-27")) {
		t.Error("Should match 3 days before the end of April")
	}
	if ev.Match(parseDate(t, "2024-02-28")) {
		t.Error("Should not match 1 day before the month end")
	}
}

func TestMatchLabourDayNeverMatches(t *testing.T) {
	ev := New(1, "Alt", parseDate(t, "2024-05-01"), frequency.Frequency{Mode: frequency.ByLabourDay})
	for _, d := range []string{"2024-05-01", "2024-05-02", "2025-05-01"} {
		if ev.Match(parseDate(t, d)) {
			t.Errorf("Labour day mode should never match, but matched %s", d)
		}
	}
}

func TestExceptions(t *testing.T) {
	ev := New(1, "Sport", parseDate(t, "2024-03-15"), frequency.FromBooleans(true, true, true))

	if !ev.Match(parseDate(t, "2024-03-22")) {
		t.Fatal("Should match the following Friday before the exception")
	}

	ev.AddException(parseDate(t, "2024-03-22"))
	if ev.Match(parseDate(t, "2024-03-22")) {
		t.Error("Exception should suppress the occurrence")
	}
	if !ev.Match(parseDate(t, "2024-03-29")) {
		t.Error("Other occurrences should be unaffected")
	}

	// Adding the same exception twice keeps the list stable.
	ev.AddException(parseDate(t, "2024-03-22"))
	if len(ev.Exceptions) != 1 {
		t.Errorf("Expected 1 exception, got %d", len(ev.Exceptions))
	}
}

func TestPruneExceptions(t *testing.T) {
	ev := New(1, "Sport", parseDate(t, "2024-01-05"), frequency.FromBooleans(true, true, true))
	ev.AddException(parseDate(t, "2024-01-12"))
	ev.AddException(parseDate(t, "2024-03-01"))

	now := parseDate(t, "2024-03-15")
	ev.PruneExceptions(now, 30*24*time.Hour)

	if len(ev.Exceptions) != 1 {
		t.Fatalf("Expected 1 exception after pruning, got %d", len(ev.Exceptions))
	}
	if !ev.Exceptions[0].Equal(parseDate(t, "2024-03-01")) {
		t.Errorf("Wrong exception kept: %v", ev.Exceptions[0])
	}
}

func TestNextDateOnce(t *testing.T) {
	t.Run("Single day event always returns its anchor", func(t *testing.T) {
		ev := New(1, "Zahnarzt", parseDate(t, "2024-06-15"), frequency.FromBooleans(false, false, false))

		next := ev.NextDate(parseDate(t, "2024-01-01"))
		if next == nil || !next.Equal(parseDate(t, "2024-06-15")) {
			t.Errorf("NextDate = %v, want anchor", next)
		}
		next = ev.NextDate(parseDate(t, "2024-12-01"))
		if next == nil || !next.Equal(parseDate(t, "2024-06-15")) {
			t.Errorf("NextDate from after = %v, want anchor", next)
		}
	})

	t.Run("Multi-day event clamps into its span", func(t *testing.T) {
		ev := New(1, "Urlaub", parseDate(t, "2024-06-01"), frequency.FromBooleans(false, false, false))
		ev.EndDate = parseDate(t, "2024-06-03")

		next := ev.NextDate(parseDate(t, "2024-05-20"))
		if next == nil || !next.Equal(parseDate(t, "2024-06-01")) {
			t.Errorf("Before span: NextDate = %v, want start", next)
		}

		next = ev.NextDate(parseDate(t, "2024-06-02"))
		if next == nil || !next.Equal(parseDate(t, "2024-06-02")) {
			t.Errorf("Inside span: NextDate = %v, want the reference day", next)
		}

		next = ev.NextDate(parseDate(t, "2024-06-10"))
		if next == nil || !next.Equal(parseDate(t, "2024-06-03")) {
			t.Errorf("After span: NextDate = %v, want end", next)
		}
	})
}

func TestNextDateRecurring(t *testing.T) {
	t.Run("Yearly event rolls to the next year", func(t *testing.T) {
		ev := New(1, "Geburtstag", parseDate(t, "2024-03-15"), frequency.FromBooleans(false, false, true))

		next := ev.NextDate(parseDate(t, "2024-03-16"))
		if next == nil || !next.Equal(parseDate(t, "2025-03-15")) {
			t.Errorf("NextDate = %v, want 2025-03-15", next)
		}
	})

	t.Run("Two week interval from between occurrences", func(t *testing.T) {
		ev := New(1, "Biotonne", parseDate(t, "2024-01-10"), frequency.NewInterval(2, frequency.UnitWeeks))

		next := ev.NextDate(parseDate(t, "2024-01-11"))
		if next == nil || !next.Equal(parseDate(t, "2024-01-24")) {
			t.Errorf("NextDate = %v, want 2024-01-24", next)
		}
	})

	t.Run("Exception skips to the following occurrence", func(t *testing.T) {
		ev := New(1, "Sport", parseDate(t, "2024-03-15"), frequency.FromBooleans(true, true, true))
		ev.AddException(parseDate(t, "2024-03-22"))

		next := ev.NextDate(parseDate(t, "2024-03-16"))
		if next == nil || !next.Equal(parseDate(t, "2024-03-29")) {
			t.Errorf("NextDate = %v, want 2024-03-29", next)
		}
	})

	t.Run("Falls back to the most recent past occurrence", func(t *testing.T) {
		// Weekly flag alone pins month and year, so after March 2024 the
		// forward scan finds nothing and the backward scan returns the last
		// Friday of March.
		ev := New(1, "Kurs", parseDate(t, "2024-03-01"), frequency.FromBooleans(true, false, false))

		next := ev.NextDate(parseDate(t, "2024-05-01"))
		if next == nil || !next.Equal(parseDate(t, "2024-03-29")) {
			t.Errorf("NextDate = %v, want 2024-03-29", next)
		}
	})

	t.Run("Preserves the anchor time of day", func(t *testing.T) {
		ev := New(1, "Meeting", parseDateTime(t, "2024-03-15 14:30"), frequency.FromBooleans(true, true, true))
		ev.HasTime = true

		next := ev.NextDate(parseDate(t, "2024-03-16"))
		if next == nil {
			t.Fatal("NextDate returned nil")
		}
		if next.Hour() != 14 || next.Minute() != 30 {
			t.Errorf("NextDate lost the time of day: %v", next)
		}
		if !next.Equal(parseDateTime(t, "2024-03-22 14:30")) {
			t.Errorf("NextDate = %v, want 2024-03-22 14:30", next)
		}
	})
}

func TestReminderCodes(t *testing.T) {
	t.Run("Code values are stable", func(t *testing.T) {
		if ReminderAtStart != 0 {
			t.Errorf("ReminderAtStart = %d, want 0", ReminderAtStart)
		}
		if Reminder1Day != 10 {
			t.Errorf("Reminder1Day = %d, want 10", Reminder1Day)
		}
		if Reminder3Months != 16 {
			t.Errorf("Reminder3Months = %d, want 16", Reminder3Months)
		}
	})

	t.Run("Granularity split", func(t *testing.T) {
		if Reminder5Hours.DayGranularity() {
			t.Error("5 hours should be minute granularity")
		}
		if !Reminder1Day.DayGranularity() {
			t.Error("1 day should be day granularity")
		}
		if !Reminder3Months.DayGranularity() {
			t.Error("3 months should be day granularity")
		}
	})

	t.Run("Offsets", func(t *testing.T) {
		if Reminder15Min.Offset() != 15*time.Minute {
			t.Errorf("15 min offset = %v", Reminder15Min.Offset())
		}
		if Reminder1Week.Offset() != 7*24*time.Hour {
			t.Errorf("1 week offset = %v", Reminder1Week.Offset())
		}
	})

	t.Run("FromOffset picks the closest code not exceeding", func(t *testing.T) {
		if got := FromOffset(20 * time.Minute); got != Reminder15Min {
			t.Errorf("FromOffset(20m) = %v, want 15 min", got)
		}
		if got := FromOffset(0); got != ReminderAtStart {
			t.Errorf("FromOffset(0) = %v, want at start", got)
		}
		if got := FromOffset(365 * 24 * time.Hour); got != Reminder3Months {
			t.Errorf("FromOffset(1 year) = %v, want 3 months", got)
		}
	})

	t.Run("Unset is invalid", func(t *testing.T) {
		if ReminderUnset.Valid() {
			t.Error("ReminderUnset should not be valid")
		}
		if Reminder(99).Valid() {
			t.Error("Out of range code should not be valid")
		}
	})
}

func TestClone(t *testing.T) {
	ev := New(1, "Sport", parseDate(t, "2024-03-15"), frequency.FromBooleans(true, true, true))
	ev.AddException(parseDate(t, "2024-03-22"))

	c := ev.Clone()
	c.Name = "Geändert"
	c.AddException(parseDate(t, "2024-03-29"))

	if ev.Name != "Sport" {
		t.Error("Clone shares the name")
	}
	if len(ev.Exceptions) != 1 {
		t.Errorf("Clone shares the exception list, original has %d entries", len(ev.Exceptions))
	}
}
