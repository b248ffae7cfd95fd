//go:build !linux

package gpio

import "errors"

// RealController is not available on non-Linux platforms.
type RealController struct{}

// NewRealController returns an error on non-Linux platforms.
func NewRealController(chipName string, mode Mode) (*RealController, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ActiveMode is not implemented on non-Linux platforms.
func (c *RealController) ActiveMode() Mode {
	return ""
}

// ConfigureOutput is not implemented on non-Linux platforms.
func (c *RealController) ConfigureOutput(pin int) error {
	return errors.New("gpio: not supported")
}

// Write is not implemented on non-Linux platforms.
func (c *RealController) Write(pin int, level Level) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (c *RealController) Close() error {
	return nil
}
