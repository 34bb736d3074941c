// Package notify delivers reminder popups to the desktop. The primary
// backend talks to org.freedesktop.Notifications over the session bus;
// notify-send is the fallback for sessions where the bus connection
// fails.
package notify

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/esiqveland/notify"
	"github.com/godbus/dbus/v5"

	"kalender/internal/config"
	"kalender/internal/dateutil"
	"kalender/internal/event"
)

// Urgency maps onto the D-Bus notification urgency hint.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notifier sends one reminder popup per call.
type Notifier interface {
	Send(ev *event.Event, lead time.Duration) error
}

// Message builds the popup title and body for an event reminder. The body
// names the occurrence day relative to today and the start time when the
// event has one.
func Message(ev *event.Event, lead time.Duration, now time.Time) (title, body string) {
	title = ev.Name

	next := ev.NextDate(now)
	day := ev.Date
	if next != nil {
		day = *next
	}

	var when string
	switch days := dateutil.DaysBetween(now, day); {
	case days <= 0:
		when = "Heute"
	case days == 1:
		when = "Morgen"
	default:
		when = fmt.Sprintf("In %d Tagen, am %s", days, dateutil.FormatDate(day))
	}

	if ev.HasTime {
		body = fmt.Sprintf("%s um %s Uhr", when, ev.TimeOfDay())
	} else {
		body = when
	}
	if ev.Notes != "" {
		body += "\n" + ev.Notes
	}
	return title, body
}

// urgencyFor picks the urgency: reminders firing at the start of a timed
// event are critical, holidays are low, everything else normal.
func urgencyFor(ev *event.Event, lead time.Duration) Urgency {
	switch {
	case ev.Type != event.TypeUser:
		return UrgencyLow
	case ev.HasTime && lead == 0:
		return UrgencyCritical
	default:
		return UrgencyNormal
	}
}

// DBusNotifier sends notifications over the session bus.
type DBusNotifier struct {
	cfg      config.NotificationConfig
	conn     *dbus.Conn
	notifier notify.Notifier
}

// NewDBusNotifier connects to the session bus.
func NewDBusNotifier(cfg config.NotificationConfig) (*DBusNotifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session D-Bus: %w", err)
	}

	n, err := notify.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create D-Bus notifier: %w", err)
	}

	return &DBusNotifier{cfg: cfg, conn: conn, notifier: n}, nil
}

// Close closes the bus connection.
func (d *DBusNotifier) Close() error {
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// Send delivers one reminder popup.
func (d *DBusNotifier) Send(ev *event.Event, lead time.Duration) error {
	title, body := Message(ev, lead, time.Now())

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(urgencyFor(ev, lead))),
	}

	notification := notify.Notification{
		AppName:       "kalender",
		ReplacesID:    0,
		AppIcon:       "calendar",
		Summary:       title,
		Body:          body,
		Actions:       []notify.Action{},
		Hints:         hints,
		ExpireTimeout: time.Duration(d.cfg.Duration) * time.Millisecond,
	}

	if _, err := d.notifier.SendNotification(notification); err != nil {
		return fmt.Errorf("failed to send D-Bus notification: %w", err)
	}
	return nil
}

// ExecNotifier shells out to notify-send.
type ExecNotifier struct {
	cfg config.NotificationConfig
}

// NewExecNotifier creates the notify-send fallback.
func NewExecNotifier(cfg config.NotificationConfig) *ExecNotifier {
	return &ExecNotifier{cfg: cfg}
}

// Send delivers one reminder popup via notify-send.
func (n *ExecNotifier) Send(ev *event.Event, lead time.Duration) error {
	title, body := Message(ev, lead, time.Now())

	urgencyFlag := map[Urgency]string{
		UrgencyLow:      "--urgency=low",
		UrgencyNormal:   "--urgency=normal",
		UrgencyCritical: "--urgency=critical",
	}[urgencyFor(ev, lead)]

	cmd := exec.Command("notify-send",
		"--app-name=kalender",
		urgencyFlag,
		fmt.Sprintf("--expire-time=%d", n.cfg.Duration),
		title, body,
	)
	cmd.Env = os.Environ()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run notify-send: %w", err)
	}
	return nil
}

// NewNotifier builds the notifier the configuration asks for. The dbus
// backend falls back to notify-send when the session bus is unreachable.
func NewNotifier(cfg config.NotificationConfig) Notifier {
	switch strings.ToLower(cfg.Backend) {
	case "notify-send":
		return NewExecNotifier(cfg)
	default:
		if d, err := NewDBusNotifier(cfg); err == nil {
			return d
		} else {
			fmt.Fprintf(os.Stderr, "Failed to initialize D-Bus notifier, falling back to notify-send: %v\n", err)
		}
		return NewExecNotifier(cfg)
	}
}
