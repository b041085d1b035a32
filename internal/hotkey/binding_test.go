package hotkey

import (
	"errors"
	"testing"
)

func TestParseBinding(t *testing.T) {
	tests := []struct {
		input     string
		canonical string
		display   string
	}{
		{"ctrl+alt+f9", "keyboard:ctrl+alt+f9", "Ctrl + Alt + F9"},
		{"keyboard:Alt+CTRL+F9", "keyboard:ctrl+alt+f9", "Ctrl + Alt + F9"},
		{"shift+super+a", "keyboard:shift+super+a", "Shift + Super + A"},
		{"win+space", "keyboard:super+space", "Super + Space"},
		{"Key.ctrl_l+Key.shift_r+'x'", "keyboard:ctrl+shift+x", "Ctrl + Shift + X"},
		{"<ctrl>+<alt>+h", "keyboard:ctrl+alt+h", "Ctrl + Alt + H"},
		{"f12", "keyboard:f12", "F12"},
		{"mouse:x1", "mouse:x1", "Mouse X1"},
		{"<Button.x2>", "mouse:x2", "Mouse X2"},
		{"<Button.middle>", "mouse:middle", "Mouse Middle"},
		{"<Button.button8>", "mouse:x1", "Mouse X1"},
		{"joybtn_5", "joystick:0:5", "Joystick 0 Button 5"},
		{"joystick:2:0", "joystick:2:0", "Joystick 2 Button 0"},
		{"vjoy:1:12", "vjoy:1:12", "vJoy 1 Button 12"},
		{"  VJOY:3:31 ", "vjoy:3:31", "vJoy 3 Button 31"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			b, err := ParseBinding(tt.input)
			if err != nil {
				t.Fatalf("ParseBinding(%q) failed: %v", tt.input, err)
			}
			if got := b.String(); got != tt.canonical {
				t.Errorf("String() = %q, want %q", got, tt.canonical)
			}
			if got := b.Display(); got != tt.display {
				t.Errorf("Display() = %q, want %q", got, tt.display)
			}

			again, err := ParseBinding(b.String())
			if err != nil || again != b {
				t.Errorf("canonical form does not parse back: %v, %+v", err, again)
			}
		})
	}
}

func TestParseBindingErrors(t *testing.T) {
	tests := []struct {
		input string
		err   error
	}{
		{"", ErrInvalidBinding},
		{"ctrl+alt", ErrInvalidBinding},
		{"ctrl+a+b", ErrInvalidBinding},
		{"ctrl+pause", ErrInvalidBinding},
		{"ctrl++", ErrInvalidBinding},
		{"mouse:left", ErrIgnoredButton},
		{"<Button.right>", ErrIgnoredButton},
		{"mouse:wheel", ErrInvalidBinding},
		{"joystick:0", ErrInvalidBinding},
		{"joystick:x:1", ErrInvalidBinding},
		{"joystick:0:32", ErrInvalidBinding},
		{"joybtn_-1", ErrInvalidBinding},
		{"vjoy:0:1", ErrInvalidBinding},
		{"gamepad:0:1", ErrInvalidBinding},
	}
	for _, tt := range tests {
		_, err := ParseBinding(tt.input)
		if !errors.Is(err, tt.err) {
			t.Errorf("ParseBinding(%q) error = %v, want %v", tt.input, err, tt.err)
		}
	}
}

func TestDisplayKeybind(t *testing.T) {
	if got := DisplayKeybind("<Button.x1>"); got != "Mouse X1" {
		t.Errorf("DisplayKeybind = %q", got)
	}
	if got := DisplayKeybind(" something odd "); got != "something odd" {
		t.Errorf("unparseable keybind should display raw, got %q", got)
	}
}

func TestDetectDisplayServer(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}
	tests := []struct {
		goos     string
		vars     map[string]string
		expected DisplayServer
		hotkeys  bool
	}{
		{"windows", nil, DisplayServerWindows, true},
		{"darwin", nil, DisplayServerDarwin, false},
		{"linux", map[string]string{"DISPLAY": ":0"}, DisplayServerX11, true},
		{"linux", map[string]string{"DISPLAY": ":0", "WAYLAND_DISPLAY": "wayland-0"}, DisplayServerWayland, false},
		{"linux", nil, DisplayServerUnknown, false},
	}
	for _, tt := range tests {
		got := detectDisplayServer(tt.goos, env(tt.vars))
		if got != tt.expected {
			t.Errorf("%s %v: got %v, want %v", tt.goos, tt.vars, got, tt.expected)
		}
		if got.SupportsGlobalHotkeys() != tt.hotkeys {
			t.Errorf("%v: SupportsGlobalHotkeys = %v", got, !tt.hotkeys)
		}
	}
}
