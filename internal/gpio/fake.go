package gpio

// WriteOp records a single Write call.
type WriteOp struct {
	Pin   int
	Level Level
}

// Fake is a test double that records pin configuration and writes in memory.
// Error fields can be set (and cleared) between ticks to script failures.
type Fake struct {
	// Mode is returned by ActiveMode.
	Mode Mode

	// Configured tracks pins declared as outputs.
	Configured map[int]bool

	// Writes contains every successful Write call in order.
	Writes []WriteOp

	// ConfigureError, if set, will be returned by ConfigureOutput.
	ConfigureError error

	// WriteError, if set, will be returned by Write (the write is not recorded).
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFake creates a Fake controller in the given mode.
func NewFake(mode Mode) *Fake {
	return &Fake{
		Mode:       mode,
		Configured: make(map[int]bool),
	}
}

// ActiveMode returns the scripted mode.
func (f *Fake) ActiveMode() Mode {
	return f.Mode
}

// ConfigureOutput marks the pin as configured.
func (f *Fake) ConfigureOutput(pin int) error {
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	f.Configured[pin] = true
	return nil
}

// Write records the write. Unconfigured pins return ErrNotConfigured, as the
// real controller does.
func (f *Fake) Write(pin int, level Level) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	if !f.Configured[pin] {
		return ErrNotConfigured
	}
	f.Writes = append(f.Writes, WriteOp{Pin: pin, Level: level})
	return nil
}

// Close marks the controller as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}

// LevelsFor returns the sequence of levels written to pin, in order.
func (f *Fake) LevelsFor(pin int) []Level {
	var levels []Level
	for _, w := range f.Writes {
		if w.Pin == pin {
			levels = append(levels, w.Level)
		}
	}
	return levels
}

// Reset clears recorded writes and error scripting.
func (f *Fake) Reset() {
	f.Configured = make(map[int]bool)
	f.Writes = nil
	f.ConfigureError = nil
	f.WriteError = nil
	f.Closed = false
}
