//go:build !windows && !linux

package hotkey

import (
	"fmt"

	"github.com/rs/zerolog"
)

func openMouse(b Binding, log zerolog.Logger) (Device, error) {
	return nil, fmt.Errorf("%w: mouse buttons", ErrBackendNotAvailable)
}

func openJoystick(b Binding, log zerolog.Logger) (Device, error) {
	return nil, fmt.Errorf("%w: joysticks", ErrBackendNotAvailable)
}

// JoystickAvailable reports whether a joystick backend exists on this OS.
func JoystickAvailable() bool { return false }

func newScanner() (buttonScanner, error) {
	return nil, ErrBackendNotAvailable
}
