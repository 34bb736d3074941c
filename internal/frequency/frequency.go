// Package frequency models how often an event recurs. Internally a
// recurrence is a tagged union; the compact legacy 16-bit code that the XML
// file format carries is produced and consumed only at the codec boundary.
package frequency

import (
	"fmt"
	"time"

	"kalender/internal/dateutil"
)

// Mode selects the recurrence family a Frequency belongs to.
type Mode int

const (
	// Once marks a non-recurring event (the all-zero legacy code).
	Once Mode = iota
	// ByDate combines the weekly/monthly/yearly flags.
	ByDate
	// ByWeekday matches the nth (or last) occurrence of a weekday per month.
	ByWeekday
	// ByInterval matches fixed day/week/month/year intervals from the anchor.
	ByInterval
	// ByMonthEnd matches a fixed distance before the end of each month.
	ByMonthEnd
	// ByLabourDay is a legacy mode kept for decoding old files; it never
	// matches any date.
	ByLabourDay
)

// Unit is the interval unit of a ByInterval frequency.
type Unit int

const (
	UnitDays Unit = iota
	UnitWeeks
	UnitMonths
	UnitYears
)

// MaxInterval is the largest interval count the legacy code can carry.
const MaxInterval = 1023

// Frequency describes a recurrence rule. Which fields are meaningful depends
// on Mode; callers must branch on Mode before reading payload fields.
type Frequency struct {
	Mode Mode

	// ByDate flags.
	Weekly  bool
	Monthly bool
	Yearly  bool

	// ByWeekday payload: localized weekday ordinal 1-7 (Monday first) and
	// week index within the month (0 = last week, 1-5 = nth week).
	Weekday   int
	WeekIndex int

	// ByInterval payload.
	Interval int
	Unit     Unit
}

// FromBooleans builds a ByDate frequency from the three flags. All flags
// false yields Once.
func FromBooleans(weekly, monthly, yearly bool) Frequency {
	if !weekly && !monthly && !yearly {
		return Frequency{Mode: Once}
	}
	return Frequency{Mode: ByDate, Weekly: weekly, Monthly: monthly, Yearly: yearly}
}

// NewWeekday builds a ByWeekday frequency for the given localized weekday
// ordinal (1-7) and week index (0 = last week of month, 1-5 = nth week).
func NewWeekday(weekday, weekIndex int) Frequency {
	return Frequency{Mode: ByWeekday, Weekday: weekday, WeekIndex: weekIndex}
}

// NewInterval builds a ByInterval frequency. The count is clamped to the
// encodable range 1-1023.
func NewInterval(count int, unit Unit) Frequency {
	if count < 1 {
		count = 1
	}
	if count > MaxInterval {
		count = MaxInterval
	}
	return Frequency{Mode: ByInterval, Interval: count, Unit: unit}
}

// NewMonthEnd builds a ByMonthEnd frequency. The distance to the month end
// is derived from the anchor date at match time, so no payload is carried.
func NewMonthEnd() Frequency {
	return Frequency{Mode: ByMonthEnd}
}

// IsOnce reports whether the frequency describes a non-recurring event.
func (f Frequency) IsOnce() bool {
	return f.Mode == Once
}

// Recurring reports whether the frequency can produce more than one
// occurrence. ByLabourDay is legacy and matches nothing, so it does not
// count as recurring.
func (f Frequency) Recurring() bool {
	return f.Mode != Once && f.Mode != ByLabourDay
}

// Label returns the short German description of the rule relative to the
// anchor date. Non-recurring frequencies yield an empty string.
func (f Frequency) Label(anchor time.Time) string {
	switch f.Mode {
	case Once, ByLabourDay:
		return ""
	case ByDate:
		return f.byDateLabel(anchor)
	case ByWeekday:
		day := dateutil.WeekdayName(f.Weekday)
		if f.WeekIndex == 0 {
			return fmt.Sprintf("jeden letzten %s im Monat", day)
		}
		return fmt.Sprintf("jeden %d. %s im Monat", f.WeekIndex, day)
	case ByInterval:
		return f.intervalLabel()
	case ByMonthEnd:
		days := dateutil.DaysToMonthEnd(anchor)
		if days == 0 {
			return "am Monatsende"
		}
		if days == 1 {
			return "1 Tag vor Monatsende"
		}
		return fmt.Sprintf("%d Tage vor Monatsende", days)
	}
	return ""
}

// byDateLabel phrases the eight flag combinations. Each combination reads
// differently because the unset flags pin fields of the anchor date.
func (f Frequency) byDateLabel(anchor time.Time) string {
	day := dateutil.WeekdayName(dateutil.WeekdayOrdinal(anchor.Weekday()))
	month := dateutil.MonthName(anchor.Month())
	switch {
	case f.Weekly && f.Monthly && f.Yearly:
		return fmt.Sprintf("jeden %s", day)
	case f.Weekly && f.Monthly:
		return fmt.Sprintf("jeden %s im Jahr %d", day, anchor.Year())
	case f.Weekly && f.Yearly:
		return fmt.Sprintf("jeden %s im %s", day, month)
	case f.Weekly:
		return fmt.Sprintf("jeden %s im %s %d", day, month, anchor.Year())
	case f.Monthly && f.Yearly:
		return fmt.Sprintf("jeden Monat am %d.", anchor.Day())
	case f.Monthly:
		return fmt.Sprintf("jeden Monat am %d. im Jahr %d", anchor.Day(), anchor.Year())
	case f.Yearly:
		return fmt.Sprintf("jedes Jahr am %d. %s", anchor.Day(), month)
	}
	return ""
}

func (f Frequency) intervalLabel() string {
	if f.Interval == 1 {
		switch f.Unit {
		case UnitDays:
			return "jeden Tag"
		case UnitWeeks:
			return "jede Woche"
		case UnitMonths:
			return "jeden Monat"
		case UnitYears:
			return "jedes Jahr"
		}
	}
	switch f.Unit {
	case UnitDays:
		return fmt.Sprintf("alle %d Tage", f.Interval)
	case UnitWeeks:
		return fmt.Sprintf("alle %d Wochen", f.Interval)
	case UnitMonths:
		return fmt.Sprintf("alle %d Monate", f.Interval)
	case UnitYears:
		return fmt.Sprintf("alle %d Jahre", f.Interval)
	}
	return ""
}

// String implements fmt.Stringer for debugging output.
func (f Frequency) String() string {
	switch f.Mode {
	case Once:
		return "once"
	case ByDate:
		return fmt.Sprintf("bydate(w=%t m=%t y=%t)", f.Weekly, f.Monthly, f.Yearly)
	case ByWeekday:
		return fmt.Sprintf("byweekday(day=%d week=%d)", f.Weekday, f.WeekIndex)
	case ByInterval:
		return fmt.Sprintf("byinterval(%d unit=%d)", f.Interval, f.Unit)
	case ByMonthEnd:
		return "bymonthend"
	case ByLabourDay:
		return "bylabourday"
	}
	return "unknown"
}
