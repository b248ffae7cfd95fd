package watering

import (
	"github.com/sweeney/grower/internal/gpio"
	"github.com/sweeney/grower/internal/schedule"
)

// State names, as logged and exposed to status, metrics and MQTT.
const (
	StateIdle     = "Idle"
	StateInitGPIO = "InitGPIO"
	StateTurnOn   = "TurnOn"
	StateTurnOff  = "TurnOff"
	StateWaiting  = "Waiting"
)

// state is one phase of the watering cycle. Each variant carries only the
// parameters it needs, captured from the snapshot in enter — the one-time
// entry action — and untouched by later reloads. next picks the successor,
// run performs the per-tick action; Tick calls them in that order.
type state interface {
	name() string
	enter(m *Machine, cfg schedule.Snapshot)
	run(m *Machine, cfg schedule.Snapshot)
	next(m *Machine, cfg schedule.Snapshot) state
}

// idleState waits for the current UTC hour to match a schedule entry.
type idleState struct{}

func (*idleState) name() string { return StateIdle }

func (*idleState) enter(m *Machine, cfg schedule.Snapshot) {
	m.log.Infof("state: %s", StateIdle)
	if m.cycle != nil {
		m.res.CycleCompleted = true
		m.cycle = nil
	}
}

func (*idleState) run(m *Machine, cfg schedule.Snapshot) {
	m.opts.Pause(m.opts.TickPause)
}

func (s *idleState) next(m *Machine, cfg schedule.Snapshot) state {
	hour := m.opts.Now().UTC().Hour()
	entry, ok := cfg.Lookup(hour)
	if !ok {
		return s
	}

	m.cycle = &Cycle{StartHour: hour, Pin: entry.Pin, TimeOn: entry.TimeOn}
	m.res.CycleStarted = true
	m.log.Debugf("cycle: startHour=%d pin=%d timeOn=%d", hour, entry.Pin, entry.TimeOn)
	return &initGPIOState{}
}

// initGPIOState checks the numbering convention and configures the cycle's
// pin as an output. It parks here, retrying every tick, until both the mode
// matches and the readiness probe succeeds.
type initGPIOState struct {
	mode gpio.Mode
	pin  int
}

func (*initGPIOState) name() string { return StateInitGPIO }

func (s *initGPIOState) enter(m *Machine, cfg schedule.Snapshot) {
	m.log.Infof("state: %s", StateInitGPIO)
	s.mode = cfg.Mode
	s.pin = m.cycle.Pin
	m.log.Debugf("gpioMode: %s", s.mode)
	m.log.Debugf("pin: %d", s.pin)
}

func (s *initGPIOState) run(m *Machine, cfg schedule.Snapshot) {
	if m.gpio.ActiveMode() != s.mode {
		m.res.ModeMismatch = true
		m.log.Errorf("GPIO mode mismatch: schedule wants %s, controller is %s", s.mode, m.gpio.ActiveMode())
		return
	}

	if err := m.gpio.ConfigureOutput(s.pin); err != nil {
		m.res.GPIOErr = err
		m.log.Errorf("configure pin %d: %v", s.pin, err)
		return
	}
	m.opts.Pause(m.opts.TickPause)
}

func (s *initGPIOState) next(m *Machine, cfg schedule.Snapshot) state {
	// Readiness probe: the pin must accept its released (high) level
	// before the cycle starts.
	if err := m.gpio.Write(s.pin, gpio.High); err != nil {
		m.res.GPIOErr = err
		m.log.Warnf("pin %d not ready: %v", s.pin, err)
		return s
	}
	return &turnOnState{}
}

// turnOnState pulses the valve: open for the pulse width, closed for the
// pulse gap, once per scheduled minute. A pulse counts only when both
// writes succeed; a failed write is retried in place on the next tick.
type turnOnState struct {
	pin    int
	timeOn int
	pulses int
}

func (*turnOnState) name() string { return StateTurnOn }

func (s *turnOnState) enter(m *Machine, cfg schedule.Snapshot) {
	m.log.Infof("state: %s", StateTurnOn)
	s.pin = m.cycle.Pin
	s.timeOn = m.cycle.TimeOn
	m.log.Debugf("pin: %d", s.pin)
	m.log.Debugf("timeOn: %d", s.timeOn)
}

func (s *turnOnState) run(m *Machine, cfg schedule.Snapshot) {
	if err := m.gpio.Write(s.pin, gpio.High); err != nil {
		m.res.GPIOErr = err
		m.log.Errorf("open valve on pin %d: %v", s.pin, err)
		return
	}
	m.opts.Pause(m.opts.PulseWidth)

	if err := m.gpio.Write(s.pin, gpio.Low); err != nil {
		m.res.GPIOErr = err
		m.log.Errorf("close valve on pin %d: %v", s.pin, err)
		return
	}
	m.opts.Pause(m.opts.PulseGap)

	s.pulses++
	m.cycle.Pulses = s.pulses
	m.res.Pulse = true
}

func (s *turnOnState) next(m *Machine, cfg schedule.Snapshot) state {
	if s.pulses >= s.timeOn {
		return &turnOffState{}
	}
	return s
}

// turnOffState closes the valve and releases the pin.
type turnOffState struct {
	pin int
}

func (*turnOffState) name() string { return StateTurnOff }

func (s *turnOffState) enter(m *Machine, cfg schedule.Snapshot) {
	m.log.Infof("state: %s", StateTurnOff)
	s.pin = m.cycle.Pin
	m.log.Debugf("pin: %d", s.pin)
}

func (s *turnOffState) run(m *Machine, cfg schedule.Snapshot) {
	if err := m.gpio.Write(s.pin, gpio.Low); err != nil {
		m.res.GPIOErr = err
		m.log.Errorf("close valve on pin %d: %v", s.pin, err)
		return
	}
	m.opts.Pause(m.opts.TickPause)
}

func (s *turnOffState) next(m *Machine, cfg schedule.Snapshot) state {
	// Cleanup probe: leave the pin at its released level before cooling down.
	if err := m.gpio.Write(s.pin, gpio.High); err != nil {
		m.res.GPIOErr = err
		m.log.Warnf("release pin %d: %v", s.pin, err)
		return s
	}
	return &waitingState{}
}

// waitingState cools down until the hour that started the cycle rolls over,
// regardless of what the schedule says by then.
type waitingState struct {
	startHour int
}

func (*waitingState) name() string { return StateWaiting }

func (s *waitingState) enter(m *Machine, cfg schedule.Snapshot) {
	m.log.Infof("state: %s", StateWaiting)
	s.startHour = m.cycle.StartHour
	m.log.Debugf("startHour: %d", s.startHour)
}

func (s *waitingState) run(m *Machine, cfg schedule.Snapshot) {
	m.opts.Pause(m.opts.TickPause)
}

func (s *waitingState) next(m *Machine, cfg schedule.Snapshot) state {
	if m.opts.Now().UTC().Hour() != s.startHour {
		return &idleState{}
	}
	return s
}
