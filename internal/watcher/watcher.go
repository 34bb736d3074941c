// Package watcher monitors the calendar data file and the feed
// directories for external changes so the running daemon can reload
// without a restart.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the event bursts editors and sync tools emit
// into a single reload.
const debounceDelay = 500 * time.Millisecond

// ChangeKind says what the reload callback should refresh.
type ChangeKind int

const (
	// DataFileChanged means the calendar XML was written or replaced.
	DataFileChanged ChangeKind = iota
	// FeedChanged means an .ics file inside a feed directory changed.
	FeedChanged
)

// String returns the lowercase kind name.
func (k ChangeKind) String() string {
	switch k {
	case DataFileChanged:
		return "data file"
	case FeedChanged:
		return "feed"
	}
	return "unknown"
}

// Change describes one debounced file system change.
type Change struct {
	Kind ChangeKind
	Path string
}

// Callback receives debounced changes. It runs on the watcher goroutine
// and must not block for long.
type Callback func(Change)

// Watcher watches the data file and feed directories using fsnotify.
// Atomic saves replace the data file via rename, so the watcher tracks
// the containing directory and filters by name instead of watching the
// file inode directly.
type Watcher struct {
	fsw      *fsnotify.Watcher
	callback Callback

	mu       sync.Mutex
	dataFile string          // absolute path, empty when not watching one
	feedDirs map[string]bool // absolute paths
	pending  map[string]*time.Timer
	stopped  bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a watcher delivering changes to callback.
func New(callback Callback) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		callback: callback,
		feedDirs: make(map[string]bool),
		pending:  make(map[string]*time.Timer),
		stopCh:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// WatchDataFile watches the calendar data file. The file itself may not
// exist yet; its directory must.
func (w *Watcher) WatchDataFile(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return fmt.Errorf("watcher is stopped")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	dir := filepath.Dir(abs)
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("data directory %s does not exist: %w", dir, err)
	} else if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.dataFile = abs
	return nil
}

// WatchFeedDirectory watches a feed directory for .ics changes.
func (w *Watcher) WatchFeedDirectory(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return fmt.Errorf("watcher is stopped")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	if info, err := os.Stat(abs); err != nil {
		return fmt.Errorf("feed directory %s does not exist: %w", abs, err)
	} else if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", abs)
	}

	if err := w.fsw.Add(abs); err != nil {
		return fmt.Errorf("failed to watch feed directory %s: %w", abs, err)
	}

	w.feedDirs[abs] = true
	return nil
}

// WatchedFeedDirectories returns the watched feed directories.
func (w *Watcher) WatchedFeedDirectories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirs := make([]string, 0, len(w.feedDirs))
	for dir := range w.feedDirs {
		dirs = append(dirs, dir)
	}
	return dirs
}

// Stop shuts the watcher down. Pending debounce timers are cancelled; no
// callback runs after Stop returns.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = make(map[string]*time.Timer)
	w.mu.Unlock()

	close(w.stopCh)
	err := w.fsw.Close()
	w.wg.Wait()

	if err != nil {
		return fmt.Errorf("failed to close fsnotify watcher: %w", err)
	}
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "File watcher error: %v\n", err)

		case <-w.stopCh:
			return
		}
	}
}

// handle classifies one raw event and arms the debounce timer for it.
func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	var change Change
	switch {
	case w.dataFile != "" && ev.Name == w.dataFile:
		change = Change{Kind: DataFileChanged, Path: ev.Name}
	case w.feedDirs[filepath.Dir(ev.Name)]:
		if !strings.HasSuffix(strings.ToLower(ev.Name), ".ics") {
			return
		}
		change = Change{Kind: FeedChanged, Path: ev.Name}
	default:
		return
	}

	if timer, ok := w.pending[change.Path]; ok {
		timer.Reset(debounceDelay)
		return
	}
	w.pending[change.Path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.pending, change.Path)
		stopped := w.stopped
		w.mu.Unlock()
		if !stopped {
			w.callback(change)
		}
	})
}
