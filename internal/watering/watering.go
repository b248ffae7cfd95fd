// Package watering contains the watering state machine: the five cycle
// states, their transition rules, and the GPIO interaction for one
// irrigation cycle. The machine is driven from a single polling loop and
// has no goroutines or timers of its own — every pause goes through the
// injected Pause function and every clock read through Now, so tests run
// instantly against a fixed clock.
package watering

import (
	"time"

	"github.com/sweeney/grower/internal/gpio"
	"github.com/sweeney/grower/internal/schedule"
)

// Logger is the leveled sink the machine logs through. Calls must not block
// and must not fail visibly.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// ConfigSource supplies the machine's configuration snapshot and reloads it
// when the backing source changed. *schedule.Store implements it.
type ConfigSource interface {
	ReloadIfChanged() (bool, error)
	Snapshot() schedule.Snapshot
}

// Cycle is the in-flight watering cycle. Its parameters are captured when
// the schedule matches the current hour and never re-read afterwards, so a
// mid-cycle schedule edit cannot change an in-flight cycle's pin, duration
// or start hour.
type Cycle struct {
	StartHour int
	Pin       int
	TimeOn    int // pulses to execute
	Pulses    int // pulses completed so far
}

// Result describes what one tick did. The surrounding loop fans it out to
// status, metrics and MQTT without the machine importing any of them.
type Result struct {
	State      string // state after the tick
	From       string // previous state, set on Transition
	Transition bool   // state identity changed this tick

	ReloadApplied bool  // a new snapshot was adopted this tick
	ReloadErr     error // snapshot kept because reload failed

	CycleStarted   bool  // the schedule matched the current hour this tick
	CycleCompleted bool  // the machine returned to Idle this tick
	Pulse          bool  // a full pulse completed this tick
	ModeMismatch   bool  // InitGPIO refused to touch the pin this tick
	GPIOErr        error // a configure/write failed this tick

	Cycle *Cycle // copy of the in-flight cycle, nil when idle
}

// Options inject timing. Zero fields get production defaults.
type Options struct {
	TickPause  time.Duration       // short pause taken by most states (default 1s)
	PulseWidth time.Duration       // how long the valve is held open per pulse (default 1s)
	PulseGap   time.Duration       // pause after each pulse (default 60s)
	Now        func() time.Time    // clock (default time.Now)
	Pause      func(time.Duration) // sleeper (default time.Sleep)
}

// Machine owns the current state and advances it one tick at a time.
// It must only be used from a single goroutine.
type Machine struct {
	store ConfigSource
	gpio  gpio.Controller
	log   Logger
	opts  Options

	state state
	prev  string // name of the last state whose entry action ran
	cycle *Cycle

	res *Result // result of the tick in progress; states record into it
}

// New creates a machine in the Idle state.
func New(store ConfigSource, ctrl gpio.Controller, log Logger, opts Options) *Machine {
	if log == nil {
		log = nopLogger{}
	}
	if opts.TickPause == 0 {
		opts.TickPause = time.Second
	}
	if opts.PulseWidth == 0 {
		opts.PulseWidth = time.Second
	}
	if opts.PulseGap == 0 {
		opts.PulseGap = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Pause == nil {
		opts.Pause = time.Sleep
	}

	return &Machine{
		store: store,
		gpio:  ctrl,
		log:   log,
		opts:  opts,
		state: &idleState{},
	}
}

// StateName returns the name of the current state.
func (m *Machine) StateName() string {
	return m.state.name()
}

// Tick advances the machine by one polling iteration: refresh the snapshot
// if the source changed, ask the current state for its successor, run the
// one-time entry action if the state identity changed, then run the current
// state's per-tick action.
func (m *Machine) Tick() Result {
	res := Result{}
	m.res = &res

	changed, err := m.store.ReloadIfChanged()
	switch {
	case err != nil:
		res.ReloadErr = err
		m.log.Warnf("schedule reload failed, keeping previous: %v", err)
	case changed:
		res.ReloadApplied = true
		m.log.Infof("schedule reloaded")
	}
	cfg := m.store.Snapshot()

	next := m.state.next(m, cfg)
	if next.name() != m.prev {
		res.Transition = true
		res.From = m.prev
		next.enter(m, cfg)
		m.prev = next.name()
	}
	m.state = next
	m.state.run(m, cfg)

	res.State = m.state.name()
	if m.cycle != nil {
		c := *m.cycle
		res.Cycle = &c
	}
	m.res = nil
	return res
}
