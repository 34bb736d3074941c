package event

import "time"

// Reminder is the lead-time setting of an event, stored as a short code in
// the XML file. Codes below firstDayCode are minute-granularity and are
// timer-scheduled directly; the rest are day-granularity and only scheduled
// inside a short lookahead window.
type Reminder int

const (
	// ReminderUnset means the event has no own setting and the engine's
	// default applies.
	ReminderUnset Reminder = -1

	ReminderAtStart Reminder = iota - 1
	Reminder5Min
	Reminder10Min
	Reminder15Min
	Reminder30Min
	Reminder1Hour
	Reminder2Hours
	Reminder3Hours
	Reminder4Hours
	Reminder5Hours
	Reminder1Day
	Reminder2Days
	Reminder3Days
	Reminder1Week
	Reminder2Weeks
	Reminder1Month
	Reminder3Months
)

const firstDayCode = Reminder1Day

var reminderOffsets = map[Reminder]time.Duration{
	ReminderAtStart: 0,
	Reminder5Min:    5 * time.Minute,
	Reminder10Min:   10 * time.Minute,
	Reminder15Min:   15 * time.Minute,
	Reminder30Min:   30 * time.Minute,
	Reminder1Hour:   time.Hour,
	Reminder2Hours:  2 * time.Hour,
	Reminder3Hours:  3 * time.Hour,
	Reminder4Hours:  4 * time.Hour,
	Reminder5Hours:  5 * time.Hour,
	Reminder1Day:    24 * time.Hour,
	Reminder2Days:   48 * time.Hour,
	Reminder3Days:   72 * time.Hour,
	Reminder1Week:   7 * 24 * time.Hour,
	Reminder2Weeks:  14 * 24 * time.Hour,
	Reminder1Month:  30 * 24 * time.Hour,
	Reminder3Months: 90 * 24 * time.Hour,
}

var reminderLabels = map[Reminder]string{
	ReminderAtStart: "zum Beginn",
	Reminder5Min:    "5 Minuten vorher",
	Reminder10Min:   "10 Minuten vorher",
	Reminder15Min:   "15 Minuten vorher",
	Reminder30Min:   "30 Minuten vorher",
	Reminder1Hour:   "1 Stunde vorher",
	Reminder2Hours:  "2 Stunden vorher",
	Reminder3Hours:  "3 Stunden vorher",
	Reminder4Hours:  "4 Stunden vorher",
	Reminder5Hours:  "5 Stunden vorher",
	Reminder1Day:    "1 Tag vorher",
	Reminder2Days:   "2 Tage vorher",
	Reminder3Days:   "3 Tage vorher",
	Reminder1Week:   "1 Woche vorher",
	Reminder2Weeks:  "2 Wochen vorher",
	Reminder1Month:  "1 Monat vorher",
	Reminder3Months: "3 Monate vorher",
}

// Valid reports whether r is a known reminder code.
func (r Reminder) Valid() bool {
	_, ok := reminderOffsets[r]
	return ok
}

// Offset returns the lead time before an occurrence at which the reminder
// should fire.
func (r Reminder) Offset() time.Duration {
	return reminderOffsets[r]
}

// DayGranularity reports whether the reminder is computed from whole-day
// differences rather than minutes.
func (r Reminder) DayGranularity() bool {
	return r >= firstDayCode
}

// String returns the German label, empty for unset or unknown codes.
func (r Reminder) String() string {
	return reminderLabels[r]
}

// FromOffset returns the reminder code whose lead time is closest to d
// without exceeding it, used when importing VALARM triggers.
func FromOffset(d time.Duration) Reminder {
	if d < 0 {
		d = -d
	}
	best := ReminderAtStart
	for code := ReminderAtStart; code <= Reminder3Months; code++ {
		if reminderOffsets[code] <= d {
			best = code
		}
	}
	return best
}
