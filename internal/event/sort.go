package event

import (
	"time"

	"kalender/internal/dateutil"
)

// Compare defines the total order used by the table view. It returns a
// negative value when a sorts before b:
//
//  1. multi-day events before single-day events; among multi-day, earlier
//     start first, longer span first on equal starts
//  2. among single-day events, holidays before everything else
//  3. among the rest, untimed events before timed ones, then by HH:mm
func Compare(a, b *Event) int {
	am, bm := a.MultiDay(), b.MultiDay()
	if am != bm {
		if am {
			return -1
		}
		return 1
	}
	if am && bm {
		ad, bd := dateutil.Date(a.Date), dateutil.Date(b.Date)
		if !ad.Equal(bd) {
			if ad.Before(bd) {
				return -1
			}
			return 1
		}
		aspan := dateutil.DaysBetween(a.Date, a.EndDate)
		bspan := dateutil.DaysBetween(b.Date, b.EndDate)
		// Longer events first, so the wider bar paints behind the rest.
		return bspan - aspan
	}

	ah, bh := a.Type.IsHoliday(), b.Type.IsHoliday()
	if ah != bh {
		if ah {
			return -1
		}
		return 1
	}

	if a.HasTime != b.HasTime {
		if !a.HasTime {
			return -1
		}
		return 1
	}
	if a.HasTime && b.HasTime {
		at, bt := a.TimeOfDay(), b.TimeOfDay()
		switch {
		case at < bt:
			return -1
		case at > bt:
			return 1
		}
	}
	return 0
}

// Less is Compare as a sort.Slice predicate.
func Less(a, b *Event) bool {
	return Compare(a, b) < 0
}

// SortByDate sorts events in place by their next occurrence seen from ref,
// ascending or descending. The sort is a stable insertion sort that always
// moves holiday events in front of other events sharing the same instant,
// which is what the month and year grids expect. Events whose bounded
// search finds no occurrence sort last.
func SortByDate(events []*Event, ref time.Time, ascending bool) {
	keys := make([]*time.Time, len(events))
	for i, e := range events {
		keys[i] = e.NextDate(ref)
	}

	for i := 1; i < len(events); i++ {
		e, k := events[i], keys[i]
		j := i - 1
		for j >= 0 && sortAfter(events[j], keys[j], e, k, ascending) {
			events[j+1] = events[j]
			keys[j+1] = keys[j]
			j--
		}
		events[j+1] = e
		keys[j+1] = k
	}
}

// sortAfter reports whether the already placed element (a, ka) must yield
// its position to the incoming element (b, kb).
func sortAfter(a *Event, ka *time.Time, b *Event, kb *time.Time, ascending bool) bool {
	switch {
	case ka == nil:
		return kb != nil
	case kb == nil:
		return false
	}
	if ka.Equal(*kb) {
		// Holidays come first among events on the same instant, regardless
		// of sort direction.
		return !a.Type.IsHoliday() && b.Type.IsHoliday()
	}
	if ascending {
		return ka.After(*kb)
	}
	return ka.Before(*kb)
}
