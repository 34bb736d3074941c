package ical

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	duration "github.com/ChannelMeter/iso8601duration"

	"kalender/internal/dateutil"
	"kalender/internal/event"
	"kalender/internal/frequency"
)

// Report collects everything that went wrong during an import. Problems
// never interrupt the scan; they are presented to the user as one batch at
// the end.
type Report struct {
	Errors   []string // blocks that had to be skipped
	Warnings []string // events imported with reduced fidelity
}

// Empty reports whether the import was fully clean.
func (r *Report) Empty() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Importer reads VEVENT blocks from an iCalendar stream.
type Importer struct {
	// AttachmentDir receives decoded ATTACH files, one subdirectory per
	// event. Empty disables attachment extraction.
	AttachmentDir string
}

// property is one unfolded content line split into name, parameters and
// value.
type property struct {
	name   string
	params map[string]string
	value  string
}

// Import scans the stream for VEVENT blocks and converts each into an
// event. Imported events carry the synthetic ID; the engine assigns real
// IDs on registration. Malformed blocks are skipped and reported.
func (im *Importer) Import(r io.Reader) ([]*event.Event, *Report, error) {
	report := &Report{}

	lines, err := unfold(r)
	if err != nil {
		return nil, nil, err
	}

	var events []*event.Event
	var block []property
	inEvent := false
	blockNo := 0

	for _, line := range lines {
		switch {
		case line == "BEGIN:VEVENT":
			inEvent = true
			block = block[:0]
			blockNo++
		case line == "END:VEVENT":
			if !inEvent {
				continue
			}
			inEvent = false
			if ev := im.convertBlock(block, blockNo, report); ev != nil {
				events = append(events, ev)
			}
		case inEvent:
			if p, ok := parseProperty(line); ok {
				block = append(block, p)
			}
		}
	}

	return events, report, nil
}

// ImportFile imports from a file on disk.
func (im *Importer) ImportFile(path string) ([]*event.Event, *Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return im.Import(f)
}

// unfold reads the stream into logical lines: a line starting with a space
// or tab continues the previous one (RFC 5545 folding, also used by the
// exporter's base64 blocks).
func unfold(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read iCal data: %w", err)
	}
	return lines, nil
}

// parseProperty splits "NAME;PARAM=V;PARAM2=V2:value" into its parts.
func parseProperty(line string) (property, bool) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return property{}, false
	}
	head, value := line[:colon], line[colon+1:]

	parts := strings.Split(head, ";")
	p := property{
		name:   strings.ToUpper(parts[0]),
		params: make(map[string]string),
		value:  value,
	}
	for _, param := range parts[1:] {
		if kv := strings.SplitN(param, "=", 2); len(kv) == 2 {
			p.params[strings.ToUpper(kv[0])] = kv[1]
		}
	}
	return p, true
}

// blockState gathers the raw properties of one VEVENT before conversion.
type blockState struct {
	summary     string
	description string
	dtstart     string
	dtend       string
	rrule       string
	trigger     string
	inAlarm     bool
	attachments []property
}

func (im *Importer) convertBlock(block []property, blockNo int, report *Report) *event.Event {
	var st blockState
	for _, p := range block {
		switch p.name {
		case "BEGIN":
			if strings.EqualFold(p.value, "VALARM") {
				st.inAlarm = true
			}
		case "END":
			if strings.EqualFold(p.value, "VALARM") {
				st.inAlarm = false
			}
		case "SUMMARY":
			st.summary = unescapeText(p.value)
		case "DESCRIPTION":
			if !st.inAlarm {
				st.description = unescapeText(p.value)
			}
		case "DTSTART":
			st.dtstart = p.value
		case "DTEND":
			st.dtend = p.value
		case "RRULE":
			st.rrule = p.value
		case "TRIGGER":
			if st.inAlarm {
				st.trigger = p.value
			}
		case "ATTACH":
			st.attachments = append(st.attachments, p)
		}
	}

	if st.summary == "" {
		report.errorf("Eintrag %d: SUMMARY fehlt, übersprungen", blockNo)
		return nil
	}
	if st.dtstart == "" {
		report.errorf("Eintrag %d (%s): DTSTART fehlt, übersprungen", blockNo, st.summary)
		return nil
	}

	start, hasTime, err := parseICalDate(st.dtstart)
	if err != nil {
		report.errorf("Eintrag %d (%s): %v, übersprungen", blockNo, st.summary, err)
		return nil
	}

	ev := event.New(event.SyntheticID, st.summary, start, frequency.FromBooleans(false, false, false))
	ev.HasTime = hasTime
	ev.Notes = st.description

	if st.dtend != "" {
		end, _, err := parseICalDate(st.dtend)
		if err != nil {
			report.warnf("%s: Enddatum unlesbar (%v), als eintägig importiert", st.summary, err)
		} else {
			// DTEND is exclusive; a span of one day or less means a
			// single-day event with no end date.
			span := dateutil.DaysBetween(start, end)
			if span > 1 {
				ev.EndDate = dateutil.Date(end).AddDate(0, 0, -1)
			}
		}
	}

	if st.rrule != "" {
		freq, err := FrequencyFromRule(st.rrule, start)
		if err != nil {
			report.warnf("%s: %v, als einmaliger Termin importiert", st.summary, err)
		} else {
			ev.Freq = freq
			if !freq.IsOnce() {
				// A recurring event cannot span days per occurrence.
				ev.EndDate = time.Time{}
			}
		}
	}

	if st.trigger != "" {
		if offset, err := parseTrigger(st.trigger); err != nil {
			report.warnf("%s: Erinnerung unlesbar (%v)", st.summary, err)
		} else {
			ev.Reminder = event.FromOffset(offset)
		}
	}

	if len(st.attachments) > 0 && im.AttachmentDir != "" {
		im.extractAttachments(ev, st.attachments, report)
	}

	return ev
}

// extractAttachments decodes the base64 ATTACH blocks into files named by
// the nonstandard X-FILENAME parameter.
func (im *Importer) extractAttachments(ev *event.Event, attachments []property, report *Report) {
	dir := filepath.Join(im.AttachmentDir, sanitizeName(ev.Name))
	for i, p := range attachments {
		name := p.params["X-FILENAME"]
		if name == "" {
			name = fmt.Sprintf("anhang-%d", i+1)
		}

		// The value may be on the property line itself or in the folded
		// continuation that unfold() already joined in.
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(p.value))
		if err != nil {
			report.warnf("%s: Anhang %s nicht dekodierbar: %v", ev.Name, name, err)
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			report.warnf("%s: Anhangverzeichnis nicht anlegbar: %v", ev.Name, err)
			return
		}
		if err := os.WriteFile(filepath.Join(dir, filepath.Base(name)), data, 0644); err != nil {
			report.warnf("%s: Anhang %s nicht schreibbar: %v", ev.Name, name, err)
			continue
		}
		ev.Attachment = dir
	}
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

// parseICalDate accepts the date and date-time forms of DTSTART/DTEND.
func parseICalDate(value string) (time.Time, bool, error) {
	value = strings.TrimSuffix(value, "Z")
	if t, err := time.ParseInLocation(dateTimeLayout, value, time.Local); err == nil {
		return t, true, nil
	}
	if t, err := time.ParseInLocation(dateLayout, value, time.Local); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q", value)
}

// parseTrigger parses a VALARM trigger like "-PT15M" into a positive lead
// time.
func parseTrigger(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	negative := strings.HasPrefix(value, "-")
	value = strings.TrimPrefix(value, "-")

	d, err := duration.FromString(value)
	if err != nil {
		return 0, fmt.Errorf("invalid trigger %q: %w", value, err)
	}

	offset := d.ToDuration()
	if !negative {
		// Positive triggers fire after the start; the reminder model only
		// knows lead times, so clamp to "at start".
		return 0, nil
	}
	return offset, nil
}

func unescapeText(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n', 'N':
				b.WriteByte('\n')
			default:
				b.WriteByte(s[i+1])
			}
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
