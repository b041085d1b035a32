package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalidBinding is returned for keybind strings that do not parse.
	ErrInvalidBinding = errors.New("invalid keybind")
	// ErrIgnoredButton is returned for left and right mouse buttons, which
	// would fire on every click.
	ErrIgnoredButton = errors.New("left and right mouse buttons cannot be bound")
)

// Kind is the input device class of a binding.
type Kind int

const (
	KindKeyboard Kind = iota
	KindMouse
	KindJoystick
	KindVJoy
)

func (k Kind) String() string {
	switch k {
	case KindKeyboard:
		return "keyboard"
	case KindMouse:
		return "mouse"
	case KindJoystick:
		return "joystick"
	case KindVJoy:
		return "vjoy"
	default:
		return "unknown"
	}
}

// Mouse buttons that can be bound.
const (
	MouseMiddle = "middle"
	MouseX1     = "x1"
	MouseX2     = "x2"
)

// MaxJoystickButtons is the number of buttons the joystick APIs report.
const MaxJoystickButtons = 32

// Binding is one parsed keybind: exactly one device and one code.
type Binding struct {
	Kind Kind
	// Combo is the canonical keyboard combination, e.g. "ctrl+alt+f9".
	Combo string
	// Button is the mouse button name.
	Button string
	// Device is the joystick index (0-based) or vJoy device id (1-based).
	Device int
	// Index is the 0-based joystick button.
	Index int
}

// ParseBinding parses the stored keybind. Accepted forms:
//
//	keyboard:ctrl+alt+f9   ctrl+alt+f9   Key.ctrl_l+'a'
//	mouse:x1               <Button.x1>   <Button.button8>
//	joystick:0:3           joybtn_3
//	vjoy:1:12
func ParseBinding(s string) (Binding, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Binding{}, fmt.Errorf("%w: empty", ErrInvalidBinding)
	}
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "<button.") || strings.HasPrefix(lower, "button."):
		name := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(lower, "<"), "button."), ">")
		return parseMouse(name)
	case strings.HasPrefix(lower, "joybtn_"):
		idx, err := parseIndex(strings.TrimPrefix(lower, "joybtn_"), "button")
		if err != nil {
			return Binding{}, err
		}
		return Binding{Kind: KindJoystick, Device: 0, Index: idx}, nil
	}

	prefix, rest, found := strings.Cut(lower, ":")
	if !found {
		return parseKeyboard(lower)
	}
	switch prefix {
	case "keyboard", "key":
		return parseKeyboard(rest)
	case "mouse":
		return parseMouse(rest)
	case "joystick", "joy":
		return parseJoystick(KindJoystick, rest)
	case "vjoy":
		return parseJoystick(KindVJoy, rest)
	default:
		return Binding{}, fmt.Errorf("%w: unknown device %q", ErrInvalidBinding, prefix)
	}
}

func parseMouse(name string) (Binding, error) {
	switch strings.TrimSpace(name) {
	case "middle", "button3":
		return Binding{Kind: KindMouse, Button: MouseMiddle}, nil
	case "x1", "button8", "back":
		return Binding{Kind: KindMouse, Button: MouseX1}, nil
	case "x2", "button9", "forward":
		return Binding{Kind: KindMouse, Button: MouseX2}, nil
	case "left", "right", "button1", "button2":
		return Binding{}, ErrIgnoredButton
	default:
		return Binding{}, fmt.Errorf("%w: unsupported mouse button %q", ErrInvalidBinding, name)
	}
}

func parseJoystick(kind Kind, rest string) (Binding, error) {
	devStr, btnStr, found := strings.Cut(rest, ":")
	if !found {
		return Binding{}, fmt.Errorf("%w: %s binding needs <device>:<button>", ErrInvalidBinding, kind)
	}
	dev, err := strconv.Atoi(strings.TrimSpace(devStr))
	if err != nil || dev < 0 {
		return Binding{}, fmt.Errorf("%w: bad %s device %q", ErrInvalidBinding, kind, devStr)
	}
	if kind == KindVJoy && dev < 1 {
		return Binding{}, fmt.Errorf("%w: vjoy devices are numbered from 1", ErrInvalidBinding)
	}
	idx, err := parseIndex(btnStr, "button")
	if err != nil {
		return Binding{}, err
	}
	return Binding{Kind: kind, Device: dev, Index: idx}, nil
}

func parseIndex(s, what string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n >= MaxJoystickButtons {
		return 0, fmt.Errorf("%w: %s must be 0..%d, got %q", ErrInvalidBinding, what, MaxJoystickButtons-1, s)
	}
	return n, nil
}

// modifier order in canonical combos
var modifierRank = map[string]int{"ctrl": 0, "alt": 1, "shift": 2, "super": 3}

// parseKeyboard normalizes a combo such as "Alt+CTRL+F9" or the legacy
// "Key.ctrl_l+Key.alt_l+'a'" into "ctrl+alt+f9".
func parseKeyboard(combo string) (Binding, error) {
	parts := strings.Split(combo, "+")
	var mods []string
	key := ""
	for _, raw := range parts {
		p := normalizeKeyName(raw)
		if p == "" {
			return Binding{}, fmt.Errorf("%w: empty key in %q", ErrInvalidBinding, combo)
		}
		if _, ok := modifierRank[p]; ok {
			if !contains(mods, p) {
				mods = append(mods, p)
			}
			continue
		}
		if key != "" {
			return Binding{}, fmt.Errorf("%w: more than one key in %q", ErrInvalidBinding, combo)
		}
		if _, ok := KeyMap[p]; !ok {
			return Binding{}, fmt.Errorf("%w: unsupported key %q", ErrInvalidBinding, p)
		}
		key = p
	}
	if key == "" {
		return Binding{}, fmt.Errorf("%w: %q has no key, only modifiers", ErrInvalidBinding, combo)
	}
	sort.Slice(mods, func(i, j int) bool { return modifierRank[mods[i]] < modifierRank[mods[j]] })
	return Binding{Kind: KindKeyboard, Combo: strings.Join(append(mods, key), "+")}, nil
}

func normalizeKeyName(raw string) string {
	p := strings.TrimSpace(raw)
	p = strings.TrimPrefix(p, "key.")
	p = strings.Trim(p, "'<>")
	p = strings.TrimSuffix(strings.TrimSuffix(p, "_l"), "_r")
	switch p {
	case "control":
		return "ctrl"
	case "win", "cmd", "meta":
		return "super"
	case "return":
		return "enter"
	case "esc":
		return "escape"
	}
	return p
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// String renders the canonical stored form.
func (b Binding) String() string {
	switch b.Kind {
	case KindKeyboard:
		return "keyboard:" + b.Combo
	case KindMouse:
		return "mouse:" + b.Button
	case KindJoystick:
		return fmt.Sprintf("joystick:%d:%d", b.Device, b.Index)
	case KindVJoy:
		return fmt.Sprintf("vjoy:%d:%d", b.Device, b.Index)
	default:
		return ""
	}
}

// Display renders the binding for people, e.g. "Ctrl + Alt + F9".
func (b Binding) Display() string {
	switch b.Kind {
	case KindKeyboard:
		parts := strings.Split(b.Combo, "+")
		for i, p := range parts {
			parts[i] = displayKey(p)
		}
		return strings.Join(parts, " + ")
	case KindMouse:
		return "Mouse " + strings.ToUpper(b.Button[:1]) + b.Button[1:]
	case KindJoystick:
		return fmt.Sprintf("Joystick %d Button %d", b.Device, b.Index)
	case KindVJoy:
		return fmt.Sprintf("vJoy %d Button %d", b.Device, b.Index)
	default:
		return "(none)"
	}
}

func displayKey(k string) string {
	if len(k) >= 2 && k[0] == 'f' {
		if _, err := strconv.Atoi(k[1:]); err == nil {
			return strings.ToUpper(k)
		}
	}
	return strings.ToUpper(k[:1]) + k[1:]
}

// DisplayKeybind formats a stored keybind string, falling back to the raw
// text when it does not parse.
func DisplayKeybind(s string) string {
	b, err := ParseBinding(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return b.Display()
}
