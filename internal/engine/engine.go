// Package engine owns the event collection and everything derived from it:
// ID allocation, holiday regeneration, notification lead times and the
// pending-alarm list. External components mutate events only through the
// engine so its invariants hold: user IDs are unique, and every event has
// at most one live alarm.
package engine

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"kalender/internal/dateutil"
	"kalender/internal/event"
	"kalender/internal/holiday"
)

// NoNotification is returned by CheckNotification when no reminder should
// be scheduled for an event.
const NoNotification = time.Duration(-1)

// DayLookahead bounds timer scheduling for day-granularity reminders.
// Occurrences further out are not timer-scheduled; they are picked up again
// on the next midnight rollover. This conserves timers, it is not a
// correctness requirement.
const DayLookahead = 6

// NotifyFunc receives fired reminders on the engine's run loop.
type NotifyFunc func(ev *event.Event, lead time.Duration)

// Warning describes a collision detected while registering an event. The
// caller must confirm before the registration takes effect.
type Warning struct {
	Kind    WarningKind
	Message string
}

// WarningKind classifies registration warnings.
type WarningKind int

const (
	// WarnSameDate is another event with the same name on the same date.
	WarnSameDate WarningKind = iota
	// WarnSameTime is another event at the exact same date and time.
	WarnSameTime
)

// ErrNotReady is returned when a mutation is requested before Start.
var ErrNotReady = fmt.Errorf("engine not initialized")

// Engine is the calendar engine. All mutation methods are safe for use
// from timer callbacks; effects of fired alarms are marshalled onto the
// single run loop goroutine.
type Engine struct {
	mu sync.Mutex

	userEvents []*event.Event
	flexible   []*event.Event // synthesized one-time holidays, per year
	static     []*event.Event // synthesized yearly-recurring holidays
	feed       []*event.Event // read-only subscription events

	opts            holiday.Options
	defaultReminder event.Reminder
	viewedYear      int

	alarms map[*event.Event]*alarm
	// lastFired records the occurrence each event was last notified for,
	// so rescheduling after a fire advances to the next occurrence instead
	// of finding the same one again.
	lastFired map[*event.Event]time.Time
	notify    NotifyFunc

	fireCh  chan *alarm
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// New creates an engine for the given holiday configuration.
func New(opts holiday.Options, defaultReminder event.Reminder, notify NotifyFunc) *Engine {
	return &Engine{
		opts:            opts,
		defaultReminder: defaultReminder,
		viewedYear:      time.Now().Year(),
		alarms:          make(map[*event.Event]*alarm),
		lastFired:       make(map[*event.Event]time.Time),
		notify:          notify,
		fireCh:          make(chan *alarm, 16),
		stopCh:          make(chan struct{}),
	}
}

// Start loads the initial events, generates the holiday sets for the
// current year and starts the run loop.
func (e *Engine) Start(events []*event.Event) {
	e.mu.Lock()
	e.userEvents = append(e.userEvents, events...)
	year := time.Now().Year()
	e.viewedYear = year
	e.static = holiday.Static(year, e.opts)
	e.flexible = holiday.Flexible(year, e.opts)
	e.running = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run()

	e.ScheduleAll()
}

// Stop cancels every pending alarm and shuts down the run loop. No alarm
// fires after Stop returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	for _, al := range e.alarms {
		al.cancel()
	}
	e.alarms = make(map[*event.Event]*alarm)
	e.mu.Unlock()

	close(e.stopCh)
	e.wg.Wait()
}

// run drains fired alarms so that all notification effects happen on one
// goroutine.
func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case al := <-e.fireCh:
			e.mu.Lock()
			if e.alarms[al.ev] == al {
				delete(e.alarms, al.ev)
			}
			e.lastFired[al.ev] = al.occ
			notify := e.notify
			e.mu.Unlock()
			if notify != nil {
				notify(al.ev, al.lead)
			}
		case <-e.stopCh:
			return
		}
	}
}

// Events returns a snapshot of all events: user events, synthesized
// holidays and feed events.
func (e *Engine) Events() []*event.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*event.Event, 0,
		len(e.userEvents)+len(e.flexible)+len(e.static)+len(e.feed))
	out = append(out, e.userEvents...)
	out = append(out, e.flexible...)
	out = append(out, e.static...)
	out = append(out, e.feed...)
	return out
}

// UserEvents returns the persistable user events.
func (e *Engine) UserEvents() []*event.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*event.Event, len(e.userEvents))
	copy(out, e.userEvents)
	return out
}

// EventsOn returns the events occurring on the given date, holidays first,
// in the display order of the day cell.
func (e *Engine) EventsOn(date time.Time) []*event.Event {
	var hits []*event.Event
	for _, ev := range e.Events() {
		if ev.Match(date) {
			hits = append(hits, ev)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return event.Less(hits[i], hits[j])
	})
	return hits
}

// SetUserEvents replaces the user events wholesale, as after an external
// edit of the data file. Alarms of the old set are cancelled and the new
// set is rescheduled.
func (e *Engine) SetUserEvents(events []*event.Event) {
	e.mu.Lock()
	for _, ev := range e.userEvents {
		if al, ok := e.alarms[ev]; ok {
			al.cancel()
			delete(e.alarms, ev)
		}
		delete(e.lastFired, ev)
	}
	e.userEvents = events
	e.mu.Unlock()

	for _, ev := range events {
		e.ScheduleNotification(ev)
	}
}

// SetFeedEvents replaces the read-only subscription events.
func (e *Engine) SetFeedEvents(events []*event.Event) {
	e.mu.Lock()
	e.feed = events
	e.mu.Unlock()
}

// dropAlarmLocked cancels and forgets everything attached to a discarded
// event. Callers must hold e.mu.
func (e *Engine) dropAlarmLocked(ev *event.Event) {
	if al, ok := e.alarms[ev]; ok {
		al.cancel()
		delete(e.alarms, ev)
	}
	delete(e.lastFired, ev)
}

// genID returns the smallest non-negative integer not used by any user
// event. Synthesized events carry the synthetic ID and do not count.
// Callers must hold e.mu.
func (e *Engine) genID() int {
	used := make(map[int]bool, len(e.userEvents))
	for _, ev := range e.userEvents {
		if ev.ID != event.SyntheticID {
			used[ev.ID] = true
		}
	}
	for id := 0; ; id++ {
		if !used[id] {
			return id
		}
	}
}

// CheckWarnings returns the collisions registering ev would cause, without
// registering it.
func (e *Engine) CheckWarnings(ev *event.Event) []Warning {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.collisionWarnings(ev)
}

func (e *Engine) collisionWarnings(ev *event.Event) []Warning {
	var warnings []Warning
	for _, other := range e.userEvents {
		if other == ev {
			continue
		}
		if !dateutil.SameDay(other.Date, ev.Date) {
			continue
		}
		if other.Name == ev.Name {
			warnings = append(warnings, Warning{
				Kind: WarnSameDate,
				Message: fmt.Sprintf("Am %s existiert bereits ein Termin namens %q",
					dateutil.FormatDate(ev.Date), ev.Name),
			})
		}
		if other.HasTime && ev.HasTime && other.TimeOfDay() == ev.TimeOfDay() {
			warnings = append(warnings, Warning{
				Kind: WarnSameTime,
				Message: fmt.Sprintf("Am %s um %s existiert bereits der Termin %q",
					dateutil.FormatDate(ev.Date), ev.TimeOfDay(), other.Name),
			})
		}
	}
	return warnings
}

// AddEvent registers a user event. When collisions are detected and
// confirmed is false, the warnings are returned and the event is NOT
// added; the caller asks the user and retries with confirmed true. On
// success the event gets the smallest free ID and its notification is
// scheduled.
func (e *Engine) AddEvent(ev *event.Event, confirmed bool) ([]Warning, error) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil, ErrNotReady
	}

	warnings := e.collisionWarnings(ev)
	if len(warnings) > 0 && !confirmed {
		e.mu.Unlock()
		return warnings, nil
	}

	ev.ID = e.genID()
	e.userEvents = append(e.userEvents, ev)
	e.mu.Unlock()

	e.ScheduleNotification(ev)
	return warnings, nil
}

// UpdateEvent replaces a registered event's schedule-relevant state and
// reschedules its notification.
func (e *Engine) UpdateEvent(ev *event.Event) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return ErrNotReady
	}
	found := false
	for _, existing := range e.userEvents {
		if existing == ev {
			found = true
			break
		}
	}
	e.mu.Unlock()
	if !found {
		return fmt.Errorf("event %q (ID %d) is not registered", ev.Name, ev.ID)
	}

	e.ScheduleNotification(ev)
	return nil
}

// ConfirmFunc answers a deletion confirmation request. The reason explains
// why the deletion is destructive.
type ConfirmFunc func(reason string) bool

// ErrCancelled is returned when the user declines a confirmation request.
var ErrCancelled = fmt.Errorf("cancelled by user")

// DeleteEvent removes a user event. Recurring, multi-day and
// attachment-bearing events require confirmation; the pending alarm is
// cancelled before removal and the attachment directory is deleted from
// disk.
func (e *Engine) DeleteEvent(ev *event.Event, confirm ConfirmFunc) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return ErrNotReady
	}
	e.mu.Unlock()

	var reason string
	switch {
	case ev.Freq.Recurring():
		reason = fmt.Sprintf("%q ist ein wiederkehrender Termin", ev.Name)
	case ev.MultiDay():
		reason = fmt.Sprintf("%q ist ein mehrtägiger Termin", ev.Name)
	case ev.Attachment != "":
		reason = fmt.Sprintf("%q hat Anhänge, die mit gelöscht werden", ev.Name)
	}
	if reason != "" {
		if confirm == nil || !confirm(reason) {
			return ErrCancelled
		}
	}

	e.CancelNotification(ev)

	e.mu.Lock()
	for i, existing := range e.userEvents {
		if existing == ev {
			e.userEvents = append(e.userEvents[:i], e.userEvents[i+1:]...)
			break
		}
	}
	delete(e.lastFired, ev)
	e.mu.Unlock()

	if ev.Attachment != "" {
		if err := os.RemoveAll(ev.Attachment); err != nil {
			return fmt.Errorf("event deleted, but removing attachments failed: %w", err)
		}
	}
	return nil
}

// AddException suppresses one occurrence of a recurring event and
// reschedules its notification, since the next occurrence may have moved.
func (e *Engine) AddException(ev *event.Event, date time.Time) {
	e.mu.Lock()
	ev.AddException(date)
	e.mu.Unlock()
	e.ScheduleNotification(ev)
}

// RefreshFlexibleHolidays regenerates the computed holidays for the given
// year. With force, everything is discarded and rebuilt (configuration
// changed). Without force (plain year navigation) only events of years
// other than the current real year are discarded, and regeneration is
// skipped when the requested year is the current real year: those events
// were already generated at startup and still stand.
func (e *Engine) RefreshFlexibleHolidays(year int, force, notify bool) {
	currentYear := time.Now().Year()

	e.mu.Lock()
	e.viewedYear = year

	if force {
		for _, ev := range e.flexible {
			e.dropAlarmLocked(ev)
		}
		e.flexible = nil
	} else {
		kept := e.flexible[:0]
		for _, ev := range e.flexible {
			if ev.Date.Year() == currentYear {
				kept = append(kept, ev)
				continue
			}
			e.dropAlarmLocked(ev)
		}
		e.flexible = kept
		if year == currentYear {
			e.mu.Unlock()
			return
		}
	}

	generated := holiday.Flexible(year, e.opts)
	if force && year != currentYear {
		// A forced refresh also restores the current year's set, which the
		// notification scan depends on.
		generated = append(generated, holiday.Flexible(currentYear, e.opts)...)
	}
	e.flexible = append(e.flexible, generated...)
	e.mu.Unlock()

	if notify {
		for _, ev := range generated {
			e.ScheduleNotification(ev)
		}
	}
}

// RefreshStaticHolidays discards and regenerates the fixed-date holidays
// for the viewed year.
func (e *Engine) RefreshStaticHolidays(notify bool) {
	e.mu.Lock()
	for _, ev := range e.static {
		e.dropAlarmLocked(ev)
	}
	e.static = holiday.Static(e.viewedYear, e.opts)
	generated := e.static
	e.mu.Unlock()

	if notify {
		for _, ev := range generated {
			e.ScheduleNotification(ev)
		}
	}
}

// SetOptions replaces the holiday configuration and rebuilds both holiday
// sets.
func (e *Engine) SetOptions(opts holiday.Options) {
	e.mu.Lock()
	e.opts = opts
	year := e.viewedYear
	e.mu.Unlock()

	e.RefreshStaticHolidays(true)
	e.RefreshFlexibleHolidays(year, true, true)
}

// CheckNotification computes the delay until the reminder for ev should
// fire. It returns NoNotification when nothing should be scheduled, zero
// when the notification is due immediately, or a positive delay for a
// timer. Events with an own reminder setting use it; all others use the
// given default.
func (e *Engine) CheckNotification(ev *event.Event, defaultReminder event.Reminder) time.Duration {
	delay, _ := e.checkNotificationAt(ev, defaultReminder, time.Now())
	return delay
}

// checkNotificationAt also returns the occurrence the delay refers to, so
// the installed alarm can record it when it fires.
func (e *Engine) checkNotificationAt(ev *event.Event, defaultReminder event.Reminder, now time.Time) (time.Duration, time.Time) {
	reminder := ev.Reminder
	if reminder == event.ReminderUnset {
		reminder = defaultReminder
	}
	if !reminder.Valid() {
		return NoNotification, time.Time{}
	}

	next := ev.NextDate(now)
	if next == nil {
		return NoNotification, time.Time{}
	}
	occurrence := *next

	e.mu.Lock()
	fired := e.lastFired[ev]
	e.mu.Unlock()
	if !fired.IsZero() && dateutil.SameDay(occurrence, fired) {
		// This occurrence's reminder already fired; look for the one after
		// it. Rescheduling the same occurrence would fire again at once.
		next = ev.NextDate(dateutil.Date(occurrence).AddDate(0, 0, 1))
		if next == nil || dateutil.SameDay(*next, occurrence) {
			return NoNotification, time.Time{}
		}
		occurrence = *next
	}

	if !reminder.DayGranularity() {
		// Minute regime: the delay runs against the occurrence's wall
		// clock time.
		delay := occurrence.Sub(now) - reminder.Offset()
		if delay <= 0 {
			if ev.Type != event.TypeUser && occurrence.Before(now) && !dateutil.SameDay(occurrence, now) {
				// A past holiday occurrence is not worth a late popup.
				return NoNotification, time.Time{}
			}
			return 0, occurrence
		}
		return delay, occurrence
	}

	// Day regime: computed from whole-day difference, only timer-scheduled
	// inside the lookahead window. Anything further out is re-evaluated on
	// the midnight rollover.
	offsetDays := int(reminder.Offset().Hours() / 24)
	fireInDays := dateutil.DaysBetween(now, occurrence) - offsetDays
	if fireInDays > DayLookahead {
		return NoNotification, time.Time{}
	}
	if fireInDays <= 0 {
		return 0, occurrence
	}
	fireAt := dateutil.Date(now).AddDate(0, 0, fireInDays)
	delay := fireAt.Sub(now)
	if delay <= 0 {
		return 0, occurrence
	}
	return delay, occurrence
}

// ScheduleNotification computes and installs the alarm for ev, replacing
// any previous one. A zero delay fires through the run loop immediately.
func (e *Engine) ScheduleNotification(ev *event.Event) {
	delay, occ := e.checkNotificationAt(ev, e.defaultReminder, time.Now())

	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	if old, ok := e.alarms[ev]; ok {
		old.cancel()
		delete(e.alarms, ev)
	}
	if delay < 0 {
		e.mu.Unlock()
		return
	}

	reminder := ev.Reminder
	if reminder == event.ReminderUnset {
		reminder = e.defaultReminder
	}
	al := &alarm{ev: ev, lead: reminder.Offset(), occ: occ}
	e.alarms[ev] = al
	al.timer = time.AfterFunc(delay, func() {
		if al.fire() {
			select {
			case e.fireCh <- al:
			case <-e.stopCh:
			}
		}
	})
	e.mu.Unlock()
}

// CancelNotification removes the pending alarm for ev, if any. After it
// returns the alarm will not fire.
func (e *Engine) CancelNotification(ev *event.Event) {
	e.mu.Lock()
	if al, ok := e.alarms[ev]; ok {
		al.cancel()
		delete(e.alarms, ev)
	}
	e.mu.Unlock()
}

// ScheduleAll scans every event and schedules the due notifications. Run
// at startup and on the midnight rollover.
func (e *Engine) ScheduleAll() {
	for _, ev := range e.Events() {
		e.ScheduleNotification(ev)
	}
}

// PendingAlarms returns the number of live alarms, for the status output.
func (e *Engine) PendingAlarms() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.alarms)
}
