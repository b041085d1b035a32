//go:build windows

package hotkey

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")

	winmm              = windows.NewLazySystemDLL("winmm.dll")
	procJoyGetNumDevs  = winmm.NewProc("joyGetNumDevs")
	procJoyGetPosEx    = winmm.NewProc("joyGetPosEx")
	procJoyGetDevCapsW = winmm.NewProc("joyGetDevCapsW")
)

const (
	vkMButton  = 0x04
	vkXButton1 = 0x05
	vkXButton2 = 0x06

	joyReturnButtons = 0x00000080
	joyErrNoError    = 0
	maxPNameLen      = 32
	maxJoyStickOEM   = 260
)

// joyInfoEx mirrors JOYINFOEX.
type joyInfoEx struct {
	Size         uint32
	Flags        uint32
	Xpos         uint32
	Ypos         uint32
	Zpos         uint32
	Rpos         uint32
	Upos         uint32
	Vpos         uint32
	Buttons      uint32
	ButtonNumber uint32
	POV          uint32
	Reserved1    uint32
	Reserved2    uint32
}

// joyCapsW mirrors JOYCAPSW.
type joyCapsW struct {
	Mid        uint16
	Pid        uint16
	PName      [maxPNameLen]uint16
	Xmin       uint32
	Xmax       uint32
	Ymin       uint32
	Ymax       uint32
	Zmin       uint32
	Zmax       uint32
	NumButtons uint32
	PeriodMin  uint32
	PeriodMax  uint32
	Rmin       uint32
	Rmax       uint32
	Umin       uint32
	Umax       uint32
	Vmin       uint32
	Vmax       uint32
	Caps       uint32
	MaxAxes    uint32
	NumAxes    uint32
	MaxButtons uint32
	RegKey     [maxPNameLen]uint16
	OEMVxD     [maxJoyStickOEM]uint16
}

func mouseVirtualKey(button string) (uintptr, error) {
	switch button {
	case MouseMiddle:
		return vkMButton, nil
	case MouseX1:
		return vkXButton1, nil
	case MouseX2:
		return vkXButton2, nil
	default:
		return 0, fmt.Errorf("%w: mouse button %q", ErrInvalidBinding, button)
	}
}

func asyncKeyDown(vk uintptr) bool {
	r, _, _ := procGetAsyncKeyState.Call(vk)
	return uint16(r)&0x8000 != 0
}

type mouseDevice struct {
	button string
	vk     uintptr
}

func openMouse(b Binding, log zerolog.Logger) (Device, error) {
	if err := procGetAsyncKeyState.Find(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendNotAvailable, err)
	}
	vk, err := mouseVirtualKey(b.Button)
	if err != nil {
		return nil, err
	}
	log.Info().Str("button", b.Button).Msg("Polling mouse button")
	return &mouseDevice{button: b.Button, vk: vk}, nil
}

func (d *mouseDevice) Pressed() (bool, error) { return asyncKeyDown(d.vk), nil }
func (d *mouseDevice) Name() string           { return "mouse " + d.button }
func (d *mouseDevice) Close() error           { return nil }

func joystickCount() int {
	if procJoyGetNumDevs.Find() != nil {
		return 0
	}
	n, _, _ := procJoyGetNumDevs.Call()
	return int(n)
}

func joystickButtons(id int) (uint32, error) {
	info := joyInfoEx{Flags: joyReturnButtons}
	info.Size = uint32(unsafe.Sizeof(info))
	r, _, _ := procJoyGetPosEx.Call(uintptr(id), uintptr(unsafe.Pointer(&info)))
	if r != joyErrNoError {
		return 0, fmt.Errorf("%w: joystick %d (MMRESULT %d)", ErrDeviceNotFound, id, r)
	}
	return info.Buttons, nil
}

func joystickName(id int) (string, bool) {
	var caps joyCapsW
	r, _, _ := procJoyGetDevCapsW.Call(uintptr(id), uintptr(unsafe.Pointer(&caps)), unsafe.Sizeof(caps))
	if r != joyErrNoError {
		return "", false
	}
	return windows.UTF16ToString(caps.PName[:]), true
}

// resolveVJoy maps a 1-based vJoy device number to a winmm joystick id by
// counting connected devices whose product name contains "vjoy".
func resolveVJoy(device int) (int, error) {
	seen := 0
	for id := 0; id < joystickCount(); id++ {
		name, ok := joystickName(id)
		if !ok || !strings.Contains(strings.ToLower(name), "vjoy") {
			continue
		}
		seen++
		if seen == device {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: vJoy device %d", ErrDeviceNotFound, device)
}

type joystickDevice struct {
	id    int
	index int
	label string
}

func openJoystick(b Binding, log zerolog.Logger) (Device, error) {
	if err := procJoyGetPosEx.Find(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendNotAvailable, err)
	}
	id := b.Device
	if b.Kind == KindVJoy {
		var err error
		if id, err = resolveVJoy(b.Device); err != nil {
			return nil, err
		}
	}
	// Probe once so a missing device is reported at startup.
	if _, err := joystickButtons(id); err != nil {
		return nil, err
	}
	name, _ := joystickName(id)
	log.Info().Int("joystick_id", id).Str("product", name).Int("button", b.Index).Msg("Polling joystick button")
	return &joystickDevice{id: id, index: b.Index, label: b.String()}, nil
}

func (d *joystickDevice) Pressed() (bool, error) {
	buttons, err := joystickButtons(d.id)
	if err != nil {
		return false, err
	}
	return buttons&(1<<uint(d.index)) != 0, nil
}

func (d *joystickDevice) Name() string { return d.label }
func (d *joystickDevice) Close() error { return nil }

// JoystickAvailable reports whether the winmm joystick API can be loaded.
func JoystickAvailable() bool {
	return procJoyGetPosEx.Find() == nil
}

type winScanner struct{}

func newScanner() (buttonScanner, error) {
	if procGetAsyncKeyState.Find() != nil {
		return nil, ErrBackendNotAvailable
	}
	return winScanner{}, nil
}

func (winScanner) close() {}

// scan returns the first non-keyboard binding currently held.
func (winScanner) scan() (Binding, bool) {
	for _, btn := range []string{MouseMiddle, MouseX1, MouseX2} {
		vk, _ := mouseVirtualKey(btn)
		if asyncKeyDown(vk) {
			return Binding{Kind: KindMouse, Button: btn}, true
		}
	}
	if procJoyGetPosEx.Find() != nil {
		return Binding{}, false
	}
	vjoySeen := 0
	for id := 0; id < joystickCount(); id++ {
		name, _ := joystickName(id)
		isVJoy := strings.Contains(strings.ToLower(name), "vjoy")
		if isVJoy {
			vjoySeen++
		}
		buttons, err := joystickButtons(id)
		if err != nil || buttons == 0 {
			continue
		}
		for i := 0; i < MaxJoystickButtons; i++ {
			if buttons&(1<<uint(i)) == 0 {
				continue
			}
			if isVJoy {
				return Binding{Kind: KindVJoy, Device: vjoySeen, Index: i}, true
			}
			return Binding{Kind: KindJoystick, Device: id, Index: i}, true
		}
	}
	return Binding{}, false
}
