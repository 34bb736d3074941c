package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
)

// DaemonState is the small persisted daemon state, used to detect how long
// the process was gone between runs.
type DaemonState struct {
	LastTick time.Time `json:"last_tick"`
	Version  string    `json:"version"`
}

// StateManager persists the daemon state across restarts.
type StateManager struct {
	state    DaemonState
	filePath string
	mu       sync.RWMutex
}

// NewStateManager creates a state manager backed by the XDG state
// directory.
func NewStateManager() (*StateManager, error) {
	path, err := xdg.StateFile("kalender/state.json")
	if err != nil {
		return nil, fmt.Errorf("failed to get XDG state file path: %w", err)
	}
	return &StateManager{
		state:    DaemonState{Version: FileVersion},
		filePath: path,
	}, nil
}

// LastTick returns the last recorded tick time.
func (s *StateManager) LastTick() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LastTick
}

// SetLastTick updates the tick time and saves the state.
func (s *StateManager) SetLastTick(tick time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastTick = tick
	return s.saveLocked()
}

// Load reads the state from disk. A missing or corrupted file resets the
// state to "now" instead of failing.
func (s *StateManager) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.state.LastTick = time.Now()
		return s.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var loaded DaemonState
	if err := json.Unmarshal(data, &loaded); err != nil || loaded.LastTick.IsZero() {
		s.state.LastTick = time.Now()
		return s.saveLocked()
	}

	s.state = loaded
	return nil
}

// Save writes the current state to disk.
func (s *StateManager) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *StateManager) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}
