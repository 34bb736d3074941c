package ical

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kalender/internal/dateutil"
	"kalender/internal/event"
)

const (
	crlf           = "\r\n"
	attachLineLen  = 64
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
	stampLayout    = "20060102T150405Z"
)

// Exporter writes events as an iCalendar stream.
type Exporter struct {
	// Organizer, when set, is written as ORGANIZER:MAILTO: into every
	// exported event.
	Organizer string
}

// Export writes the events to w as a VCALENDAR. It returns the
// lossy-conversion notes that must be shown to the user together with the
// success confirmation: frequencies without an iCal representation are
// exported as one-time events.
func (x *Exporter) Export(w io.Writer, events []*event.Event) ([]string, error) {
	return x.ExportAt(w, events, time.Now())
}

// ExportAt is Export with an explicit timestamp for the DTSTAMP lines.
func (x *Exporter) ExportAt(w io.Writer, events []*event.Event, now time.Time) ([]string, error) {
	var b strings.Builder
	var notes []string

	b.WriteString("BEGIN:VCALENDAR" + crlf)
	b.WriteString("VERSION:2.0" + crlf)
	b.WriteString("METHOD:PUBLISH" + crlf)

	for _, ev := range events {
		if err := x.writeEvent(&b, ev, now, &notes); err != nil {
			return notes, err
		}
	}

	b.WriteString("END:VCALENDAR" + crlf)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return notes, fmt.Errorf("failed to write iCal data: %w", err)
	}
	return notes, nil
}

func (x *Exporter) writeEvent(b *strings.Builder, ev *event.Event, now time.Time, notes *[]string) error {
	b.WriteString("BEGIN:VEVENT" + crlf)
	fmt.Fprintf(b, "UID:%d-%s@kalender%s", ev.ID, ev.Date.Format(dateLayout), crlf)
	if x.Organizer != "" {
		fmt.Fprintf(b, "ORGANIZER:MAILTO:%s%s", x.Organizer, crlf)
	}
	fmt.Fprintf(b, "SUMMARY:%s%s", escapeText(ev.Name), crlf)
	if ev.Notes != "" {
		fmt.Fprintf(b, "DESCRIPTION:%s%s", escapeText(ev.Notes), crlf)
	}
	b.WriteString("CLASS:PUBLIC" + crlf)

	if ev.Attachment != "" {
		if err := writeAttachments(b, ev.Attachment, notes); err != nil {
			return err
		}
	}

	if ev.HasTime {
		fmt.Fprintf(b, "DTSTART:%s%s", ev.Date.Format(dateTimeLayout), crlf)
	} else {
		fmt.Fprintf(b, "DTSTART;VALUE=DATE:%s%s", ev.Date.Format(dateLayout), crlf)
	}
	// DTEND is exclusive: the day after the last day of the event.
	last := ev.Date
	if !ev.EndDate.IsZero() {
		last = ev.EndDate
	}
	fmt.Fprintf(b, "DTEND;VALUE=DATE:%s%s", dateutil.Date(last).AddDate(0, 0, 1).Format(dateLayout), crlf)
	fmt.Fprintf(b, "DTSTAMP:%s%s", now.UTC().Format(stampLayout), crlf)

	if !ev.Freq.IsOnce() {
		rule, lossy := RuleFromFrequency(ev.Freq, ev.Date)
		if rule != "" {
			fmt.Fprintf(b, "RRULE:%s%s", rule, crlf)
		}
		if lossy {
			*notes = append(*notes,
				fmt.Sprintf("%s: Wiederholung (%s) ist in iCal nicht darstellbar, als einmaliger Termin exportiert",
					ev.Name, ev.Freq.Label(ev.Date)))
		}
	}

	if ev.Reminder != event.ReminderUnset {
		writeAlarm(b, ev)
	}

	b.WriteString("END:VEVENT" + crlf)
	return nil
}

// writeAttachments emits one base64 ATTACH block per file in the event's
// attachment directory, folded at 64 characters with tab-prefixed
// continuation lines. X-FILENAME is a nonstandard parameter preserving the
// original file name across the round trip.
func writeAttachments(b *strings.Builder, dir string, notes *[]string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		*notes = append(*notes, fmt.Sprintf("Anhangverzeichnis %s fehlt, Anhänge übersprungen", dir))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read attachment directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			*notes = append(*notes, fmt.Sprintf("Anhang %s nicht lesbar: %v", entry.Name(), err))
			continue
		}
		encoded := base64.StdEncoding.EncodeToString(data)
		fmt.Fprintf(b, "ATTACH;X-FILENAME=%s;ENCODING=BASE64;VALUE=BINARY:%s", entry.Name(), crlf)
		for len(encoded) > 0 {
			n := attachLineLen
			if n > len(encoded) {
				n = len(encoded)
			}
			b.WriteString("\t" + encoded[:n] + crlf)
			encoded = encoded[n:]
		}
	}
	return nil
}

// writeAlarm emits a display VALARM with the reminder lead time as a
// negative ISO 8601 trigger.
func writeAlarm(b *strings.Builder, ev *event.Event) {
	b.WriteString("BEGIN:VALARM" + crlf)
	fmt.Fprintf(b, "TRIGGER:-%s%s", formatTrigger(ev.Reminder.Offset()), crlf)
	b.WriteString("ACTION:DISPLAY" + crlf)
	fmt.Fprintf(b, "DESCRIPTION:%s%s", escapeText(ev.Name), crlf)
	b.WriteString("END:VALARM" + crlf)
}

func formatTrigger(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	s := "P"
	if days > 0 {
		s += fmt.Sprintf("%dD", days)
	}
	if hours > 0 || minutes > 0 || days == 0 {
		s += "T"
		if hours > 0 {
			s += fmt.Sprintf("%dH", hours)
		}
		s += fmt.Sprintf("%dM", minutes)
	}
	return s
}

// escapeText escapes the characters the iCalendar text type reserves;
// embedded newlines become literal \n sequences.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
