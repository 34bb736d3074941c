// Package event holds the calendar event entity and the recurrence
// evaluation that decides whether and when an event occurs.
package event

import (
	"time"

	"kalender/internal/dateutil"
	"kalender/internal/frequency"
)

// Type tags what kind of event this is. Only user events are persisted;
// everything else is synthesized by the holiday generators and rebuilt on
// demand.
type Type int

const (
	TypeUser Type = iota
	TypeHolidayLaw
	TypeHolidaySpecial
	TypeSpecial
	TypeTimeShift
	TypeSeason
	TypeFeed
)

// IsHoliday reports whether the type is one of the two holiday kinds.
func (t Type) IsHoliday() bool {
	return t == TypeHolidayLaw || t == TypeHolidaySpecial
}

// String returns the lowercase tag name.
func (t Type) String() string {
	switch t {
	case TypeUser:
		return "user"
	case TypeHolidayLaw:
		return "holiday_law"
	case TypeHolidaySpecial:
		return "holiday_special"
	case TypeSpecial:
		return "special"
	case TypeTimeShift:
		return "time_shift"
	case TypeSeason:
		return "season"
	case TypeFeed:
		return "feed"
	}
	return "unknown"
}

// SearchBoundDays bounds the forward and backward scans of NextDate. Every
// valid recurrence rule matches at least its own anchor within a year, so a
// scan that exhausts the bound in both directions indicates a broken rule,
// not a long gap.
const SearchBoundDays = 370

// SyntheticID marks events generated by the holiday machinery. They are
// never persisted and do not participate in user ID allocation.
const SyntheticID = -1

// Event is a single calendar entry. Identity for user events is the pair
// {ID, Name}; synthesized events all share SyntheticID.
type Event struct {
	ID   int
	Name string
	Type Type

	// Date is the anchor the recurrence rule is evaluated against. When
	// HasTime is set its clock fields carry the time of day.
	Date    time.Time
	HasTime bool

	// EndDate spans a multi-day event. Only meaningful when Freq is Once;
	// recurring events never span days per occurrence.
	EndDate time.Time

	Freq     frequency.Frequency
	Reminder Reminder
	Category string
	Notes    string

	// Attachment is the on-disk directory holding files attached to this
	// event, empty when there are none.
	Attachment string

	// Exceptions lists dates on which an otherwise matching occurrence is
	// suppressed. Order of addition is preserved; lookup is a linear scan.
	Exceptions []time.Time
}

// New creates a user event anchored at the given date.
func New(id int, name string, date time.Time, freq frequency.Frequency) *Event {
	return &Event{
		ID:       id,
		Name:     name,
		Type:     TypeUser,
		Date:     date,
		Freq:     freq,
		Reminder: ReminderUnset,
	}
}

// MultiDay reports whether the event spans more than one day.
func (e *Event) MultiDay() bool {
	return !e.EndDate.IsZero() && !dateutil.SameDay(e.Date, e.EndDate)
}

// AddException suppresses the occurrence on the given date.
func (e *Event) AddException(d time.Time) {
	if !e.IsException(d) {
		e.Exceptions = append(e.Exceptions, dateutil.Date(d))
	}
}

// IsException reports whether d is on the exception list.
func (e *Event) IsException(d time.Time) bool {
	for _, x := range e.Exceptions {
		if dateutil.SameDay(x, d) {
			return true
		}
	}
	return false
}

// PruneExceptions drops exception dates older than the retention window,
// bounding list growth across years of use.
func (e *Event) PruneExceptions(now time.Time, retention time.Duration) {
	cutoff := now.Add(-retention)
	kept := e.Exceptions[:0]
	for _, x := range e.Exceptions {
		if !dateutil.Date(x).Before(dateutil.Date(cutoff)) {
			kept = append(kept, x)
		}
	}
	e.Exceptions = kept
}

// Match reports whether the event occurs on the given date. Exceptions
// override every recurrence rule; for once events the exception list is not
// consulted.
func (e *Event) Match(d time.Time) bool {
	if e.Freq.IsOnce() {
		if dateutil.SameDay(d, e.Date) {
			return true
		}
		if e.EndDate.IsZero() {
			return false
		}
		day := dateutil.Date(d)
		return !day.Before(dateutil.Date(e.Date)) && !day.After(dateutil.Date(e.EndDate))
	}

	if e.IsException(d) {
		return false
	}

	switch e.Freq.Mode {
	case frequency.ByDate:
		return e.matchByDate(d)
	case frequency.ByWeekday:
		return e.matchByWeekday(d)
	case frequency.ByInterval:
		return e.matchByInterval(d)
	case frequency.ByMonthEnd:
		return dateutil.DaysToMonthEnd(d) == dateutil.DaysToMonthEnd(e.Date)
	}
	return false
}

// matchByDate evaluates the eight weekly/monthly/yearly flag combinations.
// An unset flag pins the corresponding field of the candidate to the anchor:
// no yearly flag means "only in the anchor's year", no monthly flag means
// "only in the anchor's month".
func (e *Event) matchByDate(d time.Time) bool {
	f := e.Freq
	switch {
	case f.Weekly && f.Monthly && f.Yearly:
		return d.Weekday() == e.Date.Weekday()
	case f.Weekly && f.Monthly:
		return d.Weekday() == e.Date.Weekday() && d.Year() == e.Date.Year()
	case f.Weekly && f.Yearly:
		return d.Weekday() == e.Date.Weekday() && d.Month() == e.Date.Month()
	case f.Weekly:
		return d.Weekday() == e.Date.Weekday() &&
			d.Month() == e.Date.Month() && d.Year() == e.Date.Year()
	case f.Monthly && f.Yearly:
		return d.Day() == e.Date.Day()
	case f.Monthly:
		return d.Day() == e.Date.Day() && d.Year() == e.Date.Year()
	case f.Yearly:
		return d.Day() == e.Date.Day() && d.Month() == e.Date.Month()
	}
	return false
}

func (e *Event) matchByWeekday(d time.Time) bool {
	if dateutil.WeekdayOrdinal(d.Weekday()) != e.Freq.Weekday {
		return false
	}
	return dateutil.WeekIndexInMonth(d) == e.Freq.WeekIndex
}

func (e *Event) matchByInterval(d time.Time) bool {
	f := e.Freq
	switch f.Unit {
	case frequency.UnitDays, frequency.UnitWeeks:
		step := f.Interval
		if f.Unit == frequency.UnitWeeks {
			step *= 7
		}
		diff := dateutil.DaysBetween(e.Date, d)
		if diff < 0 {
			diff = -diff
		}
		return diff%step == 0
	case frequency.UnitMonths, frequency.UnitYears:
		if d.Day() != e.Date.Day() {
			return false
		}
		step := f.Interval
		if f.Unit == frequency.UnitYears {
			step *= 12
		}
		diff := dateutil.MonthsBetween(e.Date, d)
		if diff < 0 {
			diff = -diff
		}
		return diff%step == 0
	}
	return false
}

// NextDate returns the occurrence of the event that is most relevant seen
// from the given time: for recurring events the first match on or after
// from, falling back to the most recent match before it; for once events
// the anchor, or from itself clamped into a multi-day span. The anchor's
// time of day is preserved on the returned date. A nil result means the
// bounded search found nothing and indicates an invalid rule.
func (e *Event) NextDate(from time.Time) *time.Time {
	if e.Freq.IsOnce() {
		if e.EndDate.IsZero() {
			d := e.Date
			return &d
		}
		day := dateutil.Date(from)
		switch {
		case day.Before(dateutil.Date(e.Date)):
			d := e.Date
			return &d
		case day.After(dateutil.Date(e.EndDate)):
			d := e.withAnchorTime(e.EndDate)
			return &d
		default:
			d := e.withAnchorTime(from)
			return &d
		}
	}

	start := dateutil.Date(from)
	for i := 0; i <= SearchBoundDays; i++ {
		candidate := start.AddDate(0, 0, i)
		if e.Match(candidate) {
			d := e.withAnchorTime(candidate)
			return &d
		}
	}
	for i := 1; i <= SearchBoundDays; i++ {
		candidate := start.AddDate(0, 0, -i)
		if e.Match(candidate) {
			d := e.withAnchorTime(candidate)
			return &d
		}
	}
	return nil
}

// withAnchorTime combines the calendar day of d with the anchor's time of
// day.
func (e *Event) withAnchorTime(d time.Time) time.Time {
	if !e.HasTime {
		return dateutil.Date(d)
	}
	return time.Date(d.Year(), d.Month(), d.Day(),
		e.Date.Hour(), e.Date.Minute(), 0, 0, d.Location())
}

// TimeOfDay returns the event's HH:mm string, empty for untimed events.
func (e *Event) TimeOfDay() string {
	if !e.HasTime {
		return ""
	}
	return e.Date.Format(dateutil.TimeFormat)
}

// Clone returns a deep copy, used by editors so a cancelled edit leaves the
// engine's copy untouched.
func (e *Event) Clone() *Event {
	c := *e
	c.Exceptions = append([]time.Time(nil), e.Exceptions...)
	return &c
}
