// Package storage reads and writes the calendar XML file. The format is
// stable: attribute absence means "type default", only user events are
// written, and the file is replaced atomically so a failed save never
// corrupts existing data.
package storage

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"kalender/internal/dateutil"
	"kalender/internal/event"
	"kalender/internal/frequency"
)

// FileVersion is written into the Calendar element and bumped on format
// changes.
const FileVersion = "2.0"

// ExceptionRetention is how far into the past exception dates are kept.
// Older entries are dropped on load to bound list growth.
const ExceptionRetention = 30 * 24 * time.Hour

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// FileConfig is the configuration block that travels with the data file.
// It is omitted from the output when it equals the zero value.
type FileConfig struct {
	Region          string `xml:"region,attr,omitempty"`
	DefaultReminder string `xml:"remind,attr,omitempty"`
	FirstWeekday    string `xml:"firstWeekday,attr,omitempty"`
}

// LoadReport collects the records that had to be skipped during a load.
// Loading never aborts on a malformed event; the reader gets the remaining
// events plus this report.
type LoadReport struct {
	Skipped []string
}

// Add records a skipped entry.
func (r *LoadReport) Add(format string, args ...any) {
	r.Skipped = append(r.Skipped, fmt.Sprintf(format, args...))
}

// Empty reports whether every record loaded cleanly.
func (r *LoadReport) Empty() bool {
	return len(r.Skipped) == 0
}

type fileCalendar struct {
	XMLName xml.Name    `xml:"Calendar"`
	Version string      `xml:"version,attr"`
	Config  *FileConfig `xml:"Config"`
	Events  fileEvents  `xml:"Events"`
}

type fileEvents struct {
	Events []fileEvent `xml:"Event"`
}

type fileEvent struct {
	ID         int    `xml:"ID,attr"`
	Date       string `xml:"date,attr"`
	EndDate    string `xml:"endDate,attr,omitempty"`
	Time       string `xml:"time,attr,omitempty"`
	Frequency  int16  `xml:"frequency,attr,omitempty"`
	Exceptions string `xml:"exceptions,attr,omitempty"`
	Remind     string `xml:"remind,attr,omitempty"`
	Category   string `xml:"category,attr,omitempty"`
	Name       string `xml:",chardata"`
}

// Load reads the calendar file. A missing file is not an error and yields
// an empty calendar. Malformed event records are skipped and collected in
// the report; exception dates older than the retention window are pruned.
func Load(path string) ([]*event.Event, *FileConfig, *LoadReport, error) {
	return LoadAt(path, time.Now())
}

// LoadAt is Load with an explicit "now" for the exception retention cutoff.
func LoadAt(path string, now time.Time) ([]*event.Event, *FileConfig, *LoadReport, error) {
	report := &LoadReport{}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil, report, nil
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read calendar file %s: %w", path, err)
	}

	var file fileCalendar
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse calendar file %s: %w", path, err)
	}

	var events []*event.Event
	for _, rec := range file.Events.Events {
		ev, err := decodeEvent(rec)
		if err != nil {
			report.Add("event %q (ID %d): %v", strings.TrimSpace(rec.Name), rec.ID, err)
			continue
		}
		ev.PruneExceptions(now, ExceptionRetention)
		events = append(events, ev)
	}

	return events, file.Config, report, nil
}

func decodeEvent(rec fileEvent) (*event.Event, error) {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return nil, fmt.Errorf("missing name")
	}
	if rec.ID < 0 {
		return nil, fmt.Errorf("negative ID")
	}

	anchor, err := dateutil.ParseDate(rec.Date)
	if err != nil {
		return nil, err
	}

	ev := event.New(rec.ID, name, anchor, frequency.Decode(rec.Frequency))
	ev.Category = rec.Category

	if rec.Time != "" {
		tod, err := time.Parse(dateutil.TimeFormat, rec.Time)
		if err != nil {
			return nil, fmt.Errorf("invalid time %q: %w", rec.Time, err)
		}
		ev.Date = time.Date(anchor.Year(), anchor.Month(), anchor.Day(),
			tod.Hour(), tod.Minute(), 0, 0, anchor.Location())
		ev.HasTime = true
	}

	if rec.EndDate != "" {
		end, err := dateutil.ParseDate(rec.EndDate)
		if err != nil {
			return nil, err
		}
		if end.Before(anchor) {
			return nil, fmt.Errorf("end date %s before start date %s", rec.EndDate, rec.Date)
		}
		if ev.Freq.Recurring() {
			return nil, fmt.Errorf("recurring event with end date")
		}
		ev.EndDate = end
	}

	if rec.Remind != "" {
		code, err := strconv.Atoi(rec.Remind)
		if err != nil || !event.Reminder(code).Valid() {
			return nil, fmt.Errorf("invalid reminder code %q", rec.Remind)
		}
		ev.Reminder = event.Reminder(code)
	}

	if rec.Exceptions != "" {
		for _, part := range strings.Split(rec.Exceptions, ",") {
			d, err := dateutil.ParseDate(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("invalid exception date: %w", err)
			}
			ev.AddException(d)
		}
	}

	return ev, nil
}

// Save writes the calendar file atomically: the new content is fully
// serialized before the original file is replaced. Synthesized events
// (ID -1) are never written. A nil or zero config omits the Config block.
func Save(path string, events []*event.Event, cfg *FileConfig) error {
	file := fileCalendar{Version: FileVersion}
	if cfg != nil && *cfg != (FileConfig{}) {
		file.Config = cfg
	}

	for _, ev := range events {
		if ev.ID == event.SyntheticID {
			continue
		}
		file.Events.Events = append(file.Events.Events, encodeEvent(ev))
	}

	data, err := xml.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize calendar: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append([]byte(xmlHeader), data...), 0644); err != nil {
		return fmt.Errorf("failed to write calendar file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace calendar file: %w", err)
	}

	return nil
}

func encodeEvent(ev *event.Event) fileEvent {
	rec := fileEvent{
		ID:        ev.ID,
		Date:      dateutil.FormatDate(ev.Date),
		Frequency: ev.Freq.Code(),
		Category:  ev.Category,
		Name:      ev.Name,
	}
	if ev.HasTime {
		rec.Time = ev.TimeOfDay()
	}
	if !ev.EndDate.IsZero() {
		rec.EndDate = dateutil.FormatDate(ev.EndDate)
	}
	if ev.Reminder != event.ReminderUnset {
		rec.Remind = strconv.Itoa(int(ev.Reminder))
	}
	if len(ev.Exceptions) > 0 {
		parts := make([]string, len(ev.Exceptions))
		for i, x := range ev.Exceptions {
			parts[i] = dateutil.FormatDate(x)
		}
		rec.Exceptions = strings.Join(parts, ",")
	}
	return rec
}
