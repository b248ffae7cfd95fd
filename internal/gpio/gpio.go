// Package gpio provides GPIO output control with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"
)

// Mode is a pin-numbering convention. It is fixed for the lifetime of a
// controller and must match the convention the schedule was written in.
type Mode string

const (
	// ModeBoard numbers pins by physical position on the J8 header.
	ModeBoard Mode = "BOARD"

	// ModeBCM numbers pins by Broadcom GPIO channel.
	ModeBCM Mode = "BCM"
)

// ParseMode converts a mode token to a Mode. Only the two literal tokens
// BOARD and BCM are accepted.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBoard, ModeBCM:
		return Mode(s), nil
	}
	return "", fmt.Errorf("gpio: unknown mode %q (want BOARD or BCM)", s)
}

// Level is a digital output level.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// ErrNotConfigured is returned by Write when the pin was never configured
// as an output.
var ErrNotConfigured = errors.New("gpio: pin not configured as output")

// Controller drives GPIO output pins.
type Controller interface {
	// ActiveMode returns the numbering convention in effect for this controller.
	ActiveMode() Mode

	// ConfigureOutput declares a pin as a digital output.
	ConfigureOutput(pin int) error

	// Write drives a configured pin high or low.
	// Returns ErrNotConfigured if the pin was never configured.
	Write(pin int, level Level) error

	// Close releases GPIO resources.
	Close() error
}
