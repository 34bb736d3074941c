package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"kalender/internal/config"
	"kalender/internal/dateutil"
	"kalender/internal/engine"
	"kalender/internal/event"
	"kalender/internal/feed"
	"kalender/internal/ical"
	"kalender/internal/notify"
	"kalender/internal/storage"
	"kalender/internal/watcher"
)

// wakeupThreshold is the gap between ticks that indicates the system was
// suspended. After a suspend every pending timer is stale and has to be
// rebuilt.
const wakeupThreshold = 5 * time.Minute

// App wires the calendar daemon together.
type App struct {
	config   *config.Config
	fileCfg  *storage.FileConfig
	engine   *engine.Engine
	notifier notify.Notifier
	watcher  *watcher.Watcher
	parser   feed.Parser
	state    *storage.StateManager

	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	isRunning bool
}

// NewApp creates an uninitialized daemon.
func NewApp() *App {
	return &App{
		stopChan: make(chan struct{}),
	}
}

// Initialize loads the configuration and the calendar file and builds all
// components.
func (a *App) Initialize() error {
	fmt.Fprintf(os.Stderr, "Initializing kalender...\n")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.config = cfg

	state, err := storage.NewStateManager()
	if err != nil {
		return fmt.Errorf("failed to create state manager: %w", err)
	}
	a.state = state
	if err := a.state.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load state, starting fresh: %v\n", err)
	}

	events, fileCfg, report, err := storage.Load(cfg.DataFile)
	if err != nil {
		return fmt.Errorf("failed to load calendar %s: %w", cfg.DataFile, err)
	}
	a.fileCfg = fileCfg
	for _, msg := range report.Skipped {
		fmt.Fprintf(os.Stderr, "Warning: skipped event in %s: %s\n", cfg.DataFile, msg)
	}
	fmt.Fprintf(os.Stderr, "Loaded %d events from %s\n", len(events), cfg.DataFile)

	a.notifier = notify.NewNotifier(cfg.Notification)
	a.engine = engine.New(cfg.Holidays, cfg.DefaultReminder.Reminder(), a.handleReminder)
	a.parser = feed.NewGocalParser()

	a.watcher, err = watcher.New(a.handleFileChange)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := a.watcher.WatchDataFile(cfg.DataFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot watch data file: %v\n", err)
	}
	for _, dir := range cfg.Feeds {
		fmt.Fprintf(os.Stderr, "Watching feed directory: %s\n", dir)
		if err := a.watcher.WatchFeedDirectory(dir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to watch feed directory %s: %v\n", dir, err)
		}
	}

	a.engine.Start(events)
	a.reloadFeeds()

	return nil
}

// Start begins the daemon loops.
func (a *App) Start() error {
	if a.isRunning {
		return fmt.Errorf("kalender is already running")
	}

	fmt.Fprintf(os.Stderr, "Starting kalender daemon...\n")

	if last := a.state.LastTick(); time.Since(last) > wakeupThreshold {
		fmt.Fprintf(os.Stderr, "Last tick was %v ago, rescheduling all reminders\n",
			time.Since(last).Round(time.Second))
		a.engine.ScheduleAll()
	}
	if err := a.state.SetLastTick(time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save state: %v\n", err)
	}

	a.wg.Add(1)
	go a.tickLoop()

	a.isRunning = true
	fmt.Fprintf(os.Stderr, "kalender daemon started\n")
	return nil
}

// Stop shuts the daemon down.
func (a *App) Stop() {
	if !a.isRunning {
		return
	}
	fmt.Fprintf(os.Stderr, "Stopping kalender daemon...\n")

	if err := a.state.SetLastTick(time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save state: %v\n", err)
	}

	a.stopOnce.Do(func() { close(a.stopChan) })
	if err := a.watcher.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping file watcher: %v\n", err)
	}
	a.engine.Stop()
	a.wg.Wait()

	a.isRunning = false
	fmt.Fprintf(os.Stderr, "kalender daemon stopped\n")
}

// handleReminder runs on the engine's notification loop.
func (a *App) handleReminder(ev *event.Event, lead time.Duration) {
	fmt.Fprintf(os.Stderr, "Reminder due for %q\n", ev.Name)
	if err := a.notifier.Send(ev, lead); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to send notification for %q: %v\n", ev.Name, err)
	}
	// Recurring events get their next occurrence armed right away.
	if ev.Freq.Recurring() {
		a.engine.ScheduleNotification(ev)
	}
}

// handleFileChange reloads whatever changed on disk.
func (a *App) handleFileChange(change watcher.Change) {
	fmt.Fprintf(os.Stderr, "Change detected: %s (%s)\n", change.Path, change.Kind)

	switch change.Kind {
	case watcher.DataFileChanged:
		events, fileCfg, report, err := storage.Load(a.config.DataFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reloading calendar: %v\n", err)
			return
		}
		for _, msg := range report.Skipped {
			fmt.Fprintf(os.Stderr, "Warning: skipped event: %s\n", msg)
		}
		a.fileCfg = fileCfg

		a.engine.SetUserEvents(events)
		fmt.Fprintf(os.Stderr, "Reloaded %d events\n", len(events))

	case watcher.FeedChanged:
		a.reloadFeeds()
	}
}

// reloadFeeds re-reads every feed directory and reschedules the feed
// reminders.
func (a *App) reloadFeeds() {
	if len(a.config.Feeds) == 0 {
		return
	}

	var all []*event.Event
	for _, dir := range a.config.Feeds {
		events, err := a.parser.ParseDirectory(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to read feed directory %s: %v\n", dir, err)
			continue
		}
		all = append(all, events...)
	}

	a.engine.SetFeedEvents(all)
	for _, ev := range all {
		a.engine.ScheduleNotification(ev)
	}
	fmt.Fprintf(os.Stderr, "Loaded %d feed events\n", len(all))
}

// tickLoop drives the midnight rollover and the suspend detection.
func (a *App) tickLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	today := dateutil.Date(time.Now())

	for {
		select {
		case now := <-ticker.C:
			if time.Since(a.state.LastTick()) > wakeupThreshold {
				fmt.Fprintf(os.Stderr, "Wake-up detected, rescheduling all reminders\n")
				a.engine.ScheduleAll()
			}
			if err := a.state.SetLastTick(now); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save state: %v\n", err)
			}

			if day := dateutil.Date(now); !day.Equal(today) {
				a.rollover(today, day)
				today = day
			}

		case <-a.stopChan:
			return
		}
	}
}

// rollover runs once per date change. Day-granularity reminders outside
// yesterday's lookahead window become eligible now, and a year change
// regenerates the holiday sets.
func (a *App) rollover(prev, now time.Time) {
	fmt.Fprintf(os.Stderr, "Date changed to %s\n", dateutil.FormatDate(now))

	if now.Year() != prev.Year() {
		a.engine.RefreshFlexibleHolidays(now.Year(), true, true)
		a.engine.RefreshStaticHolidays(true)
	}
	a.engine.ScheduleAll()
}

// PrintStatus prints the daemon status to stdout.
func (a *App) PrintStatus() {
	if !a.isRunning {
		fmt.Println("kalender daemon is not running")
		return
	}

	fmt.Printf("kalender status:\n")
	fmt.Printf("  Data file: %s\n", a.config.DataFile)
	fmt.Printf("  User events: %d\n", len(a.engine.UserEvents()))
	fmt.Printf("  Pending reminders: %d\n", a.engine.PendingAlarms())

	today := a.engine.EventsOn(time.Now())
	fmt.Printf("  Today's events: %d\n", len(today))
	for _, ev := range today {
		fmt.Printf("    - %s\n", ev.Name)
	}

	for _, dir := range a.watcher.WatchedFeedDirectories() {
		fmt.Printf("  Feed directory: %s\n", dir)
	}
}

// setupSignalHandling stops the daemon on SIGINT or SIGTERM.
func (a *App) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "Received signal %v, shutting down...\n", sig)
		a.Stop()
	}()
}

// runExport writes all user events as iCalendar to stdout.
func runExport() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	events, _, _, err := storage.Load(cfg.DataFile)
	if err != nil {
		return fmt.Errorf("failed to load calendar: %w", err)
	}

	exporter := &ical.Exporter{Organizer: cfg.Organizer}
	notes, err := exporter.Export(os.Stdout, events)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	for _, note := range notes {
		fmt.Fprintf(os.Stderr, "Hinweis: %s\n", note)
	}
	return nil
}

// runImport reads an iCalendar file and appends its events to the
// calendar file. Imported events get fresh IDs.
func runImport(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	events, fileCfg, _, err := storage.Load(cfg.DataFile)
	if err != nil {
		return fmt.Errorf("failed to load calendar: %w", err)
	}

	importer := &ical.Importer{AttachmentDir: cfg.AttachmentDir}
	imported, report, err := importer.ImportFile(path)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	for _, msg := range report.Errors {
		fmt.Fprintf(os.Stderr, "Fehler: %s\n", msg)
	}
	for _, msg := range report.Warnings {
		fmt.Fprintf(os.Stderr, "Warnung: %s\n", msg)
	}

	eng := engine.New(cfg.Holidays, cfg.DefaultReminder.Reminder(), nil)
	eng.Start(events)
	defer eng.Stop()

	added := 0
	for _, ev := range imported {
		if _, err := eng.AddEvent(ev, true); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not add %q: %v\n", ev.Name, err)
			continue
		}
		added++
	}

	if err := storage.Save(cfg.DataFile, eng.UserEvents(), fileCfg); err != nil {
		return fmt.Errorf("failed to save calendar: %w", err)
	}

	fmt.Printf("Imported %d of %d events into %s\n", added, len(imported), cfg.DataFile)
	return nil
}

func printHelp() {
	fmt.Println("kalender - Kalender- und Erinnerungsdienst")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  kalender               Start the reminder daemon")
	fmt.Println("  kalender init          Create a default configuration file")
	fmt.Println("  kalender export        Write all events as iCalendar to stdout")
	fmt.Println("  kalender import FILE   Import events from an iCalendar file")
	fmt.Println("  kalender help          Show this help")
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			configPath, err := config.WriteDefaultConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating default config: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Created default configuration at: %s\n", configPath)
			return
		case "export":
			if err := runExport(); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
			return
		case "import":
			if len(os.Args) < 3 {
				fmt.Fprintf(os.Stderr, "import needs a file argument\n")
				os.Exit(1)
			}
			if err := runImport(os.Args[2]); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
			return
		case "help", "-h", "--help":
			printHelp()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
			fmt.Fprintf(os.Stderr, "Use 'kalender help' for usage information\n")
			os.Exit(1)
		}
	}

	app := NewApp()

	if err := app.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Initialization failed: %v\n", err)
		os.Exit(1)
	}

	app.setupSignalHandling()

	if err := app.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start kalender: %v\n", err)
		os.Exit(1)
	}

	app.PrintStatus()

	<-app.stopChan
	fmt.Fprintf(os.Stderr, "kalender exiting\n")
}
