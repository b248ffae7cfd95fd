// Package status provides a thread-safe status tracker for the grower daemon.
// The watering loop writes into it on every tick; HTTP handlers read from it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/grower/internal/watering"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs       int64
	Broker       string
	HTTPAddr     string
	SchedulePath string
	GPIOMode     string
	Chip         string
}

// Counts accumulates loop totals since startup.
type Counts struct {
	Transitions       int
	CyclesStarted     int
	CyclesCompleted   int
	Pulses            int
	ReloadsApplied    int
	ReloadFailures    int
	GPIOWriteFailures int
	ModeMismatches    int
}

// ScheduleInfo describes the currently loaded schedule.
type ScheduleInfo struct {
	Fingerprint string
	Entries     int
	GPIOMode    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	State          string
	Cycle          *watering.Cycle
	Schedule       ScheduleInfo
	Counts         Counts
	LastTransition time.Time
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Apply folds one tick result into the tracked state.
// Called from the run loop on every tick.
func (t *Tracker) Apply(res watering.Result, now time.Time) {
	t.mu.Lock()
	t.snap.State = res.State
	if res.Transition {
		t.snap.Counts.Transitions++
		t.snap.LastTransition = now
	}
	if res.CycleStarted {
		t.snap.Counts.CyclesStarted++
	}
	if res.CycleCompleted {
		t.snap.Counts.CyclesCompleted++
	}
	if res.Pulse {
		t.snap.Counts.Pulses++
	}
	if res.ReloadApplied {
		t.snap.Counts.ReloadsApplied++
	}
	if res.ReloadErr != nil {
		t.snap.Counts.ReloadFailures++
	}
	if res.GPIOErr != nil {
		t.snap.Counts.GPIOWriteFailures++
	}
	if res.ModeMismatch {
		t.snap.Counts.ModeMismatches++
	}
	if res.Cycle != nil {
		c := *res.Cycle
		t.snap.Cycle = &c
	} else {
		t.snap.Cycle = nil
	}
	t.mu.Unlock()
}

// SetSchedule records the loaded schedule's fingerprint, entry count and mode.
// Called at startup and after every applied reload.
func (t *Tracker) SetSchedule(fingerprint string, entries int, gpioMode string) {
	t.mu.Lock()
	t.snap.Schedule = ScheduleInfo{Fingerprint: fingerprint, Entries: entries, GPIOMode: gpioMode}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if t.snap.Cycle != nil {
		c := *t.snap.Cycle
		s.Cycle = &c
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
