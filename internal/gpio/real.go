//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"github.com/warthog618/go-gpiocdev/device/rpi"
)

// RealController drives GPIO on actual hardware using the Linux GPIO
// character device. Lines are requested lazily on ConfigureOutput and held
// until Close.
type RealController struct {
	chip  *gpiocdev.Chip
	mode  Mode
	lines map[int]*gpiocdev.Line
}

// NewRealController opens the given GPIO chip (usually "gpiochip0").
// Pin identifiers passed to ConfigureOutput and Write are interpreted
// according to mode.
func NewRealController(chipName string, mode Mode) (*RealController, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	return &RealController{
		chip:  chip,
		mode:  mode,
		lines: make(map[int]*gpiocdev.Line),
	}, nil
}

// ActiveMode returns the numbering convention this controller was opened with.
func (c *RealController) ActiveMode() Mode {
	return c.mode
}

// offset translates a pin identifier to a chip line offset.
// BOARD pins are physical J8 header positions; BCM pins are already offsets.
func (c *RealController) offset(pin int) (int, error) {
	if c.mode == ModeBoard {
		o, err := rpi.Pin(fmt.Sprintf("J8p%d", pin))
		if err != nil {
			return 0, fmt.Errorf("map BOARD pin %d: %w", pin, err)
		}
		return o, nil
	}
	return pin, nil
}

// ConfigureOutput requests the pin's line as an output, initially low.
// Configuring an already-configured pin is a no-op.
func (c *RealController) ConfigureOutput(pin int) error {
	if _, ok := c.lines[pin]; ok {
		return nil
	}

	o, err := c.offset(pin)
	if err != nil {
		return err
	}

	line, err := c.chip.RequestLine(o, gpiocdev.AsOutput(0))
	if err != nil {
		return fmt.Errorf("request pin %d as output: %w", pin, err)
	}

	c.lines[pin] = line
	return nil
}

// Write drives a configured pin high or low.
func (c *RealController) Write(pin int, level Level) error {
	line, ok := c.lines[pin]
	if !ok {
		return fmt.Errorf("write pin %d: %w", pin, ErrNotConfigured)
	}

	v := 0
	if level == High {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("write pin %d: %w", pin, err)
	}
	return nil
}

// Close reconfigures all claimed lines back to inputs (matching Pi boot
// defaults) and releases them, then closes the chip.
func (c *RealController) Close() error {
	var errs []error

	for pin, line := range c.lines {
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
