// Package settings holds the operator-adjustable monitor settings.
//
// Every field is independent and updated atomically, so signal handlers and HTTP
// handlers may change them at any time while the poll loop reads a Snapshot once per cycle.
package settings

import (
	"sync/atomic"
	"time"
)

// Settings is shared between the poll loop and the control surfaces.
type Settings struct {
	statusNotify    atomic.Bool
	errorNotify     atomic.Bool
	forbiddenNotify atomic.Bool
	activeInterval  atomic.Int64
	checkInterval   time.Duration
	step            time.Duration
}

// Snapshot is a point-in-time copy of Settings.
type Snapshot struct {
	CheckInterval          time.Duration `json:"check_interval"`
	ActiveInterval         time.Duration `json:"active_interval"`
	StatusNotifications    bool          `json:"status_notifications"`
	ErrorNotifications     bool          `json:"error_notifications"`
	ForbiddenNotifications bool          `json:"forbidden_notifications"`
}

// Config holds initial values.
type Config struct {
	CheckInterval          time.Duration // Between checks while not in game
	ActiveInterval         time.Duration // Between checks while in game
	Step                   time.Duration // Active interval adjustment per control action
	StatusNotifications    bool
	ErrorNotifications     bool
	ForbiddenNotifications bool
}

// New creates settings from cfg.
func New(cfg Config) *Settings {
	s := &Settings{
		checkInterval: cfg.CheckInterval,
		step:          cfg.Step,
	}
	s.statusNotify.Store(cfg.StatusNotifications)
	s.errorNotify.Store(cfg.ErrorNotifications)
	s.forbiddenNotify.Store(cfg.ForbiddenNotifications)
	s.activeInterval.Store(int64(cfg.ActiveInterval))
	return s
}

// Snapshot returns the current values.
func (s *Settings) Snapshot() Snapshot {
	return Snapshot{
		CheckInterval:          s.checkInterval,
		ActiveInterval:         time.Duration(s.activeInterval.Load()),
		StatusNotifications:    s.statusNotify.Load(),
		ErrorNotifications:     s.errorNotify.Load(),
		ForbiddenNotifications: s.forbiddenNotify.Load(),
	}
}

// ToggleStatusNotifications flips status-change notifications and returns the new value.
func (s *Settings) ToggleStatusNotifications() bool {
	for {
		old := s.statusNotify.Load()
		if s.statusNotify.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// IncreaseActiveInterval adds one step to the in-game interval and returns the new value.
func (s *Settings) IncreaseActiveInterval() time.Duration {
	return time.Duration(s.activeInterval.Add(int64(s.step)))
}

// DecreaseActiveInterval removes one step from the in-game interval unless that would
// leave it non-positive, and returns the resulting value.
func (s *Settings) DecreaseActiveInterval() time.Duration {
	for {
		old := s.activeInterval.Load()
		next := old - int64(s.step)
		if next <= 0 {
			return time.Duration(old)
		}
		if s.activeInterval.CompareAndSwap(old, next) {
			return time.Duration(next)
		}
	}
}
