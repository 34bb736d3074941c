package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"kalender/internal/event"
	"kalender/internal/holiday"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
data_file: /tmp/kalender-test/calendar.xml
region: BY
default_reminder:
  value: 1
  unit: hours
first_weekday: sunday
organizer: maria@example.org
feeds:
  - /tmp/feeds
notification:
  backend: notify-send
  duration: 3000
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.DataFile != "/tmp/kalender-test/calendar.xml" {
		t.Errorf("DataFile = %q", cfg.DataFile)
	}
	if !cfg.Holidays.Laws.Epiphany {
		t.Error("Region BY should enable Heilige Drei Könige")
	}
	if cfg.Holidays.Laws.Reformation {
		t.Error("Region BY should not enable Reformationstag")
	}
	if cfg.DefaultReminder.Reminder() != event.Reminder1Hour {
		t.Errorf("Reminder = %v, want 1 hour", cfg.DefaultReminder.Reminder())
	}
	if cfg.FirstDay() != time.Sunday {
		t.Errorf("FirstDay = %v, want Sunday", cfg.FirstDay())
	}
	if cfg.Organizer != "maria@example.org" {
		t.Errorf("Organizer = %q", cfg.Organizer)
	}
	if cfg.Notification.Backend != "notify-send" || cfg.Notification.Duration != 3000 {
		t.Errorf("Notification = %+v", cfg.Notification)
	}
	if cfg.AttachmentDir != "/tmp/kalender-test/attachments" {
		t.Errorf("AttachmentDir = %q, want the sibling of the data file", cfg.AttachmentDir)
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := &Config{DataFile: "/tmp/kalender-test/calendar.xml"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.DefaultReminder != (ReminderConfig{Value: 15, Unit: "minutes"}) {
		t.Errorf("DefaultReminder = %+v", cfg.DefaultReminder)
	}
	if cfg.FirstDay() != time.Monday {
		t.Errorf("FirstDay = %v, want Monday", cfg.FirstDay())
	}
	if cfg.Notification.Backend != "dbus" || cfg.Notification.Duration != 5000 {
		t.Errorf("Notification = %+v", cfg.Notification)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown region", Config{Region: "XX"}},
		{"bad weekday", Config{FirstWeekday: "tuesday"}},
		{"bad reminder unit", Config{DefaultReminder: ReminderConfig{Value: 1, Unit: "fortnights"}}},
		{"non-positive reminder", Config{DefaultReminder: ReminderConfig{Value: 0, Unit: "minutes"}}},
		{"bad backend", Config{Notification: NotificationConfig{Backend: "carrier-pigeon"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.DataFile = "/tmp/kalender-test/calendar.xml"
			if err := tt.cfg.Validate(); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}

func TestExplicitLawsOverrideRegion(t *testing.T) {
	cfg := &Config{
		DataFile: "/tmp/kalender-test/calendar.xml",
		Region:   "BY",
		Holidays: holiday.Options{Laws: holiday.LawSet{Reformation: true}},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !cfg.Holidays.Laws.Reformation {
		t.Error("Explicit laws section was overwritten by the region preset")
	}
	if cfg.Holidays.Laws.Epiphany {
		t.Error("Region preset leaked into the explicit laws section")
	}
}

func TestReminderConfigDuration(t *testing.T) {
	tests := []struct {
		value int
		unit  string
		want  time.Duration
	}{
		{30, "minutes", 30 * time.Minute},
		{2, "h", 2 * time.Hour},
		{1, "day", 24 * time.Hour},
		{2, "weeks", 14 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := ReminderConfig{Value: tt.value, Unit: tt.unit}.Duration()
		if err != nil {
			t.Errorf("Duration(%d %s) failed: %v", tt.value, tt.unit, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Duration(%d %s) = %v, want %v", tt.value, tt.unit, got, tt.want)
		}
	}
}

func TestLoadBrokenYaml(t *testing.T) {
	path := writeConfig(t, "feeds: [unclosed")
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected a parse error")
	}
}
