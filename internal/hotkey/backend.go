package hotkey

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	// ErrBackendNotAvailable is returned when a backend cannot be used on the current system.
	ErrBackendNotAvailable = errors.New("backend not available on this system")
	// ErrDeviceNotFound is returned when the bound mouse or joystick is not connected.
	ErrDeviceNotFound = errors.New("input device not found")
)

// Device reports whether the bound button is currently held. Backends are
// polled; implementations must be safe for use from one goroutine.
type Device interface {
	Pressed() (bool, error)
	// Name describes the backend and device for logs.
	Name() string
	Close() error
}

// Open selects the backend for the binding's device class.
func Open(b Binding, log zerolog.Logger) (Device, error) {
	switch b.Kind {
	case KindKeyboard:
		ds := DetectDisplayServer()
		if !ds.SupportsGlobalHotkeys() {
			return nil, fmt.Errorf("%w: global hotkeys are not supported on %s", ErrBackendNotAvailable, ds)
		}
		return openKeyboard(b, log)
	case KindMouse:
		return openMouse(b, log)
	case KindJoystick, KindVJoy:
		return openJoystick(b, log)
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidBinding, b.Kind)
	}
}
