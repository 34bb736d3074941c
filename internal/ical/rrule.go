// Package ical converts events to and from the iCalendar interchange
// format. The RRULE dialect is the narrow mapping onto the frequency model;
// rules the model cannot express round-trip as documented lossy
// approximations.
package ical

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"kalender/internal/dateutil"
	"kalender/internal/frequency"
)

// ParseError is a recoverable RRULE parse failure. Importers treat it as
// "not recurring" and collect the message instead of aborting.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable recurrence rule %q: %s", e.Line, e.Reason)
}

var weekdayCodes = [8]string{"", "MO", "TU", "WE", "TH", "FR", "SA", "SU"}

// RuleFromFrequency renders the RRULE line for a frequency, without the
// "RRULE:" prefix. The second return value reports a lossy conversion: the
// produced rule (possibly empty) does not reproduce every occurrence of the
// original frequency, and the caller must tell the user about it.
func RuleFromFrequency(f frequency.Frequency, anchor time.Time) (string, bool) {
	switch f.Mode {
	case frequency.Once:
		return "", false

	case frequency.ByDate:
		return byDateRule(f, anchor)

	case frequency.ByWeekday:
		pos := f.WeekIndex
		if pos == 0 {
			pos = -1
		}
		return fmt.Sprintf("FREQ=MONTHLY;BYDAY=%s;BYSETPOS=%d", weekdayCodes[f.Weekday], pos), false

	case frequency.ByInterval:
		var freq string
		switch f.Unit {
		case frequency.UnitDays:
			freq = "DAILY"
		case frequency.UnitWeeks:
			freq = "WEEKLY"
		case frequency.UnitMonths:
			freq = "MONTHLY"
		case frequency.UnitYears:
			freq = "YEARLY"
		}
		return fmt.Sprintf("FREQ=%s;INTERVAL=%d", freq, f.Interval), false

	case frequency.ByMonthEnd, frequency.ByLabourDay:
		// No iCal equivalent; the event exports as one-time only.
		return "", true
	}
	return "", false
}

// byDateRule maps the eight flag combinations. The open-ended combinations
// translate directly; the ones pinned to the anchor's month or year need a
// terminal COUNT, computed by walking from the anchor to the end of the
// pinned period and counting matching weekdays or days.
func byDateRule(f frequency.Frequency, anchor time.Time) (string, bool) {
	switch {
	case f.Weekly && f.Monthly && f.Yearly:
		return "FREQ=WEEKLY", false

	case f.Weekly && f.Monthly:
		// Every <weekday> within the anchor's year.
		endOfYear := time.Date(anchor.Year(), time.December, 31, 0, 0, 0, 0, anchor.Location())
		return fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", countWeekdays(anchor, endOfYear)), false

	case f.Weekly && f.Yearly:
		// Every <weekday> within the anchor's month of every year. iCal has
		// no month-of-year weekly rule, so only the anchor year's run is
		// exported.
		return fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", countWeekdays(anchor, endOfMonth(anchor))), true

	case f.Weekly:
		// Every <weekday> within the anchor's month and year.
		return fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", countWeekdays(anchor, endOfMonth(anchor))), false

	case f.Monthly && f.Yearly:
		return "FREQ=MONTHLY", false

	case f.Monthly:
		// Day <D> of every month within the anchor's year.
		months := 12 - int(anchor.Month()) + 1
		return fmt.Sprintf("FREQ=MONTHLY;COUNT=%d", months), false

	case f.Yearly:
		return "FREQ=YEARLY", false
	}
	return "", false
}

func endOfMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), dateutil.DaysInMonth(d.Year(), d.Month()),
		0, 0, 0, 0, d.Location())
}

// countWeekdays counts the days between anchor and end (inclusive) that
// fall on the anchor's weekday.
func countWeekdays(anchor, end time.Time) int {
	count := 0
	for d := dateutil.Date(anchor); !d.After(dateutil.Date(end)); d = d.AddDate(0, 0, 7) {
		count++
	}
	return count
}

// FrequencyFromRule parses an RRULE line (without the "RRULE:" prefix)
// into a frequency, using the anchor date to resolve weekday-based rules.
// An empty line yields Once. Failures are *ParseError values.
func FrequencyFromRule(line string, anchor time.Time) (frequency.Frequency, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return frequency.FromBooleans(false, false, false), nil
	}

	parts := make(map[string]string)
	for _, part := range strings.Split(line, ";") {
		if kv := strings.SplitN(part, "=", 2); len(kv) == 2 {
			parts[strings.ToUpper(strings.TrimSpace(kv[0]))] = strings.ToUpper(strings.TrimSpace(kv[1]))
		}
	}

	freq := parts["FREQ"]

	if intervalStr, ok := parts["INTERVAL"]; ok {
		interval, err := strconv.Atoi(intervalStr)
		if err != nil || interval < 1 {
			return frequency.Frequency{}, &ParseError{Line: line, Reason: "invalid INTERVAL"}
		}
		var unit frequency.Unit
		switch freq {
		case "DAILY":
			unit = frequency.UnitDays
		case "WEEKLY":
			unit = frequency.UnitWeeks
		case "MONTHLY":
			unit = frequency.UnitMonths
		case "YEARLY":
			unit = frequency.UnitYears
		default:
			return frequency.Frequency{}, &ParseError{Line: line, Reason: "INTERVAL without a recognized FREQ"}
		}
		return frequency.NewInterval(interval, unit), nil
	}

	switch freq {
	case "WEEKLY":
		return frequency.FromBooleans(true, true, true), nil

	case "MONTHLY":
		if posStr, ok := parts["BYSETPOS"]; ok {
			pos, err := strconv.Atoi(posStr)
			if err != nil || pos == 0 || pos > 5 || pos < -1 {
				return frequency.Frequency{}, &ParseError{Line: line, Reason: "invalid BYSETPOS"}
			}
			index := pos
			if pos == -1 {
				index = 0
			}
			return frequency.NewWeekday(dateutil.WeekdayOrdinal(anchor.Weekday()), index), nil
		}
		return frequency.FromBooleans(false, true, true), nil

	case "YEARLY":
		return frequency.FromBooleans(false, false, true), nil
	}

	return frequency.Frequency{}, &ParseError{Line: line, Reason: "no usable FREQ value"}
}
