package engine

import (
	"sync"
	"time"

	"kalender/internal/event"
)

// alarm pairs an event with its pending timer. Cancellation and firing are
// mutually exclusive: whichever takes the mutex first wins, so a cancelled
// alarm can never reach the fire channel afterwards.
type alarm struct {
	ev    *event.Event
	lead  time.Duration
	occ   time.Time // the occurrence this alarm reminds of
	timer *time.Timer

	mu   sync.Mutex
	done bool
}

// fire marks the alarm as spent and reports whether it was still live.
func (a *alarm) fire() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		return false
	}
	a.done = true
	return true
}

// cancel stops the timer. After cancel returns the alarm will not fire.
func (a *alarm) cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.done = true
	if a.timer != nil {
		a.timer.Stop()
	}
}
