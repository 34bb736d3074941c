// Package config loads the application configuration from the XDG config
// directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"kalender/internal/event"
	"kalender/internal/holiday"
)

// Config is the application configuration.
type Config struct {
	// DataFile is the calendar XML file. Empty selects the default location
	// in the XDG data directory.
	DataFile string `yaml:"data_file,omitempty"`

	// Region selects a Bundesland preset for the legal holidays. An
	// explicit holidays.laws section overrides the preset.
	Region string `yaml:"region,omitempty"`

	Holidays holiday.Options `yaml:"holidays"`

	// DefaultReminder applies to events without an own reminder setting.
	DefaultReminder ReminderConfig `yaml:"default_reminder"`

	// FirstWeekday is "monday" or "sunday" and controls week numbering.
	FirstWeekday string `yaml:"first_weekday,omitempty"`

	// Organizer is the mail address written as ORGANIZER into iCal exports.
	Organizer string `yaml:"organizer,omitempty"`

	// AttachmentDir holds per-event attachment directories.
	AttachmentDir string `yaml:"attachment_dir,omitempty"`

	// Feeds lists directories of read-only .ics subscription calendars.
	Feeds []string `yaml:"feeds,omitempty"`

	Notification NotificationConfig `yaml:"notification"`
}

// ReminderConfig is a lead time expressed as value plus unit.
type ReminderConfig struct {
	Value int    `yaml:"value"`
	Unit  string `yaml:"unit"`
}

// NotificationConfig selects the desktop notification backend.
type NotificationConfig struct {
	Backend  string `yaml:"backend"`
	Duration int    `yaml:"duration"` // display time in milliseconds
}

// Duration converts the reminder configuration to a lead time.
func (r ReminderConfig) Duration() (time.Duration, error) {
	switch r.Unit {
	case "minutes", "minute", "m":
		return time.Duration(r.Value) * time.Minute, nil
	case "hours", "hour", "h":
		return time.Duration(r.Value) * time.Hour, nil
	case "days", "day", "d":
		return time.Duration(r.Value) * 24 * time.Hour, nil
	case "weeks", "week", "w":
		return time.Duration(r.Value) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported time unit: %s", r.Unit)
	}
}

// Reminder maps the configuration to the nearest reminder code.
func (r ReminderConfig) Reminder() event.Reminder {
	d, err := r.Duration()
	if err != nil {
		return event.Reminder15Min
	}
	return event.FromOffset(d)
}

// FirstDay returns the configured first weekday of the week.
func (c *Config) FirstDay() time.Weekday {
	if c.FirstWeekday == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Validate normalizes defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Region != "" {
		preset, ok := holiday.LawPresets[c.Region]
		if !ok {
			return fmt.Errorf("unknown region %q", c.Region)
		}
		if c.Holidays.Laws == (holiday.LawSet{}) {
			c.Holidays.Laws = preset
		}
	}

	if c.DefaultReminder.Unit == "" {
		c.DefaultReminder = ReminderConfig{Value: 15, Unit: "minutes"}
	}
	if c.DefaultReminder.Value <= 0 {
		return fmt.Errorf("default_reminder value must be positive")
	}
	if _, err := c.DefaultReminder.Duration(); err != nil {
		return fmt.Errorf("default_reminder: %w", err)
	}

	switch c.FirstWeekday {
	case "", "monday", "sunday":
	default:
		return fmt.Errorf("first_weekday must be monday or sunday, got %q", c.FirstWeekday)
	}

	switch c.Notification.Backend {
	case "":
		c.Notification.Backend = "dbus"
	case "dbus", "notify-send":
	default:
		return fmt.Errorf("unsupported notification backend: %s", c.Notification.Backend)
	}
	if c.Notification.Duration <= 0 {
		c.Notification.Duration = 5000
	}

	if c.DataFile == "" {
		path, err := xdg.DataFile("kalender/calendar.xml")
		if err != nil {
			return fmt.Errorf("failed to determine data file path: %w", err)
		}
		c.DataFile = path
	}
	if c.AttachmentDir == "" {
		c.AttachmentDir = filepath.Join(filepath.Dir(c.DataFile), "attachments")
	}

	for i, feed := range c.Feeds {
		expanded := os.ExpandEnv(feed)
		if len(expanded) > 0 && expanded[0] == '~' {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("feed %d: %w", i, err)
			}
			expanded = filepath.Join(home, expanded[1:])
		}
		c.Feeds[i] = expanded
	}

	return nil
}

// Load reads the configuration from the XDG config directories. A missing
// file yields the defaults instead of an error, so the daemon can start on
// a fresh system without an init step.
func Load() (*Config, error) {
	configPath, err := xdg.SearchConfigFile("kalender/config.yaml")
	if err != nil {
		cfg := DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return LoadFromFile(configPath)
}

// LoadFromFile reads the configuration from a specific path.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns the built-in defaults: nationwide legal holidays,
// special days enabled, 15 minute reminders.
func DefaultConfig() *Config {
	return &Config{
		Holidays: holiday.Options{
			SpecialDays: true,
			TimeShift:   true,
			Seasons:     true,
		},
		DefaultReminder: ReminderConfig{Value: 15, Unit: "minutes"},
		FirstWeekday:    "monday",
		Notification: NotificationConfig{
			Backend:  "dbus",
			Duration: 5000,
		},
	}
}

// WriteDefaultConfig writes the defaults to the XDG config directory and
// returns the path.
func WriteDefaultConfig() (string, error) {
	configPath, err := xdg.ConfigFile("kalender/config.yaml")
	if err != nil {
		return "", fmt.Errorf("failed to determine config file path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, nil
}
