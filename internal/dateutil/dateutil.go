package dateutil

import (
	"fmt"
	"time"
)

// WireFormat is the date layout used in the persisted XML file.
const WireFormat = "02.01.2006"

// TimeFormat is the layout for an event's optional time of day.
const TimeFormat = "15:04"

// MonthNames holds the German month names, indexed by time.Month.
var MonthNames = [13]string{
	"",
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// WeekdayNames holds the German weekday names in Monday-first order,
// indexed by the 1-based localized ordinal returned by WeekdayOrdinal.
var WeekdayNames = [8]string{
	"",
	"Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag", "Sonntag",
}

// MonthName returns the German name of a month.
func MonthName(m time.Month) string {
	return MonthNames[m]
}

// WeekdayName returns the German name for a localized weekday ordinal (1-7).
func WeekdayName(ordinal int) string {
	if ordinal < 1 || ordinal > 7 {
		return ""
	}
	return WeekdayNames[ordinal]
}

// WeekdayOrdinal maps a time.Weekday to the Monday-first ordinal 1-7 used
// throughout the frequency encoding.
func WeekdayOrdinal(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// OrdinalWeekday is the inverse of WeekdayOrdinal.
func OrdinalWeekday(ordinal int) time.Weekday {
	if ordinal == 7 {
		return time.Sunday
	}
	return time.Weekday(ordinal)
}

// Date strips the time of day, keeping year, month and day in d's location.
func Date(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the number of calendar days from a to b. The result is
// negative when b is before a. A DST transition makes one day an hour short
// or long, so the stripped-date difference is rounded to the nearest day.
func DaysBetween(a, b time.Time) int {
	d := Date(b).Sub(Date(a))
	if d < 0 {
		return -int((-d + 12*time.Hour) / (24 * time.Hour))
	}
	return int((d + 12*time.Hour) / (24 * time.Hour))
}

// MonthsBetween returns the number of whole calendar months from a to b
// (months plus years times twelve), ignoring the day of month.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysToMonthEnd returns how many days remain between d and the last day of
// its month. The last day of a month yields 0.
func DaysToMonthEnd(d time.Time) int {
	return DaysInMonth(d.Year(), d.Month()) - d.Day()
}

// WeekIndexInMonth returns the occurrence index of d's weekday within its
// month: 1 for the first occurrence up to 5 for the fifth. When d falls on
// the last occurrence of its weekday in the month, 0 is returned instead, so
// an event anchored there keeps matching months where that weekday occurs
// only four times.
func WeekIndexInMonth(d time.Time) int {
	if DaysToMonthEnd(d) < 7 {
		return 0
	}
	return (d.Day()-1)/7 + 1
}

// NthWeekdayOfMonth returns the date of the nth occurrence (1-5) of the given
// weekday in the month, or the last occurrence when n is 0. The zero time is
// returned when the month has no nth occurrence.
func NthWeekdayOfMonth(year int, month time.Month, wd time.Weekday, n int) time.Time {
	if n == 0 {
		last := time.Date(year, month, DaysInMonth(year, month), 0, 0, 0, 0, time.Local)
		offset := int(last.Weekday() - wd)
		if offset < 0 {
			offset += 7
		}
		return last.AddDate(0, 0, -offset)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	offset := int(wd - first.Weekday())
	if offset < 0 {
		offset += 7
	}
	day := 1 + offset + (n-1)*7
	if day > DaysInMonth(year, month) {
		return time.Time{}
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

// WeekNo returns the week number of d using locale-default numbering with
// the given first weekday. Week 1 is the week containing January 1st.
//
// For Sunday-first weeks the historical December fixup is preserved: days in
// the last days of December whose week has wrapped around to week 1 are
// reported as week 53 instead. This mirrors the behavior of the original
// desktop implementation and is intentionally not ISO 8601.
func WeekNo(d time.Time, firstDay time.Weekday) int {
	jan1 := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, d.Location())
	offset := int(jan1.Weekday() - firstDay)
	if offset < 0 {
		offset += 7
	}
	week := (DaysBetween(jan1, d)+offset)/7 + 1
	if firstDay == time.Sunday && d.Month() == time.December && week > 52 {
		// Sunday-first wrap: the trailing partial week belongs to week 1 of
		// the next year, which the original reported as 53.
		week = 53
	}
	return week
}

// FormatDate renders d in the DD.MM.YYYY wire format.
func FormatDate(d time.Time) string {
	return d.Format(WireFormat)
}

// ParseDate parses a DD.MM.YYYY wire-format date in the local location.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(WireFormat, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
