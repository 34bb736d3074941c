// Package feed reads iCalendar subscription files into read-only calendar
// events. Feed events are never persisted and never editable; they are
// replaced wholesale whenever a feed file changes.
package feed

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apognu/gocal"

	"kalender/internal/dateutil"
	"kalender/internal/event"
	"kalender/internal/frequency"
)

// Parser reads iCalendar subscription data.
type Parser interface {
	ParseFile(path string) ([]*event.Event, error)
	ParseDirectory(dir string) ([]*event.Event, error)
	ParseReader(r io.Reader) ([]*event.Event, error)
}

// GocalParser implements Parser using the gocal library. Recurring feed
// entries are expanded into individual one-time events inside the
// parser's window; the window defaults to the current year plus one year
// in each direction.
type GocalParser struct {
	maxEvents int
	start     time.Time
	end       time.Time
}

// NewGocalParser creates a parser with the default expansion window.
func NewGocalParser() *GocalParser {
	year := time.Now().Year()
	return &GocalParser{
		maxEvents: 10000,
		start:     time.Date(year-1, time.January, 1, 0, 0, 0, 0, time.Local),
		end:       time.Date(year+1, time.December, 31, 23, 59, 59, 0, time.Local),
	}
}

// SetWindow overrides the expansion window.
func (p *GocalParser) SetWindow(start, end time.Time) {
	p.start, p.end = start, end
}

// SetMaxEvents sets the maximum number of events read from a single file.
func (p *GocalParser) SetMaxEvents(max int) {
	p.maxEvents = max
}

// ParseFile parses a single feed file.
func (p *GocalParser) ParseFile(path string) ([]*event.Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed %s: %w", path, err)
	}
	defer file.Close()

	return p.ParseReader(file)
}

// ParseDirectory parses every .ics file below dir. A broken feed file is
// reported on stderr and skipped so one bad subscription cannot take down
// the rest.
func (p *GocalParser) ParseDirectory(dir string) ([]*event.Event, error) {
	var all []*event.Event

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || !strings.HasSuffix(strings.ToLower(info.Name()), ".ics") {
			return nil
		}

		events, parseErr := p.ParseFile(path)
		if parseErr != nil {
			fmt.Fprintf(os.Stderr, "Error parsing feed %s: %v\n", path, parseErr)
			return nil
		}
		all = append(all, events...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk feed directory %s: %w", dir, err)
	}

	return all, nil
}

// ParseReader parses feed data from r.
func (p *GocalParser) ParseReader(r io.Reader) ([]*event.Event, error) {
	cal := gocal.NewParser(r)
	start, end := p.start, p.end
	cal.Start, cal.End = &start, &end

	if err := cal.Parse(); err != nil {
		return nil, fmt.Errorf("failed to parse feed data: %w", err)
	}

	var events []*event.Event
	for _, ge := range cal.Events {
		if len(events) >= p.maxEvents {
			fmt.Fprintf(os.Stderr, "Warning: feed event limit (%d) reached, skipping remaining events\n", p.maxEvents)
			break
		}

		ev, err := p.convert(ge)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error converting feed event %s: %v\n", ge.Uid, err)
			continue
		}
		events = append(events, ev)
	}

	return events, nil
}

// convert maps a single gocal occurrence onto a one-time calendar event.
// gocal has already expanded recurrence rules, so every occurrence arrives
// as its own entry.
func (p *GocalParser) convert(ge gocal.Event) (*event.Event, error) {
	if ge.Summary == "" {
		return nil, fmt.Errorf("feed event %s has no summary", ge.Uid)
	}
	if ge.Start == nil {
		return nil, fmt.Errorf("feed event %s has no start date", ge.Uid)
	}

	ev := event.New(event.SyntheticID, ge.Summary, *ge.Start, frequency.Frequency{})
	ev.Type = event.TypeFeed
	ev.Notes = ge.Description

	allDay := strings.EqualFold(ge.RawStart.Params["VALUE"], "DATE")
	ev.HasTime = !allDay

	if ge.End != nil {
		last := *ge.End
		if allDay {
			// DTEND of an all-day entry is exclusive.
			last = last.AddDate(0, 0, -1)
		}
		if last.After(ev.Date) && !dateutil.SameDay(last, ev.Date) {
			ev.EndDate = dateutil.Date(last)
		}
	}

	return ev, nil
}
