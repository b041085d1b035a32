package app

import (
	"github.com/rs/zerolog"

	"github.com/TanaroSch/whisper-lead/internal/config"
	"github.com/TanaroSch/whisper-lead/internal/hotkey"
)

// Capabilities are the optional platform features found at startup. A
// missing one degrades the client, it never stops it.
type Capabilities struct {
	DisplayServer   hotkey.DisplayServer
	KeyboardHotkeys bool
	Joystick        bool
	Keyring         bool
	PriorityBoost   bool
}

// DetectCapabilities probes the platform and applies the priority boost.
func DetectCapabilities(log zerolog.Logger) Capabilities {
	ds := hotkey.DetectDisplayServer()
	c := Capabilities{
		DisplayServer:   ds,
		KeyboardHotkeys: ds.SupportsGlobalHotkeys(),
		Joystick:        hotkey.JoystickAvailable(),
		Keyring:         config.KeyringAvailable(),
	}
	if err := boostPriority(); err != nil {
		log.Debug().Err(err).Msg("Process priority unchanged")
	} else {
		c.PriorityBoost = true
	}

	log.Info().
		Str("display_server", ds.String()).
		Bool("keyboard_hotkeys", c.KeyboardHotkeys).
		Bool("joystick", c.Joystick).
		Bool("keyring", c.Keyring).
		Bool("priority_boost", c.PriorityBoost).
		Msg("Capabilities detected")
	return c
}

// Warnings lists what the user should know about missing features. binding
// is the configured keybind, or nil before setup.
func (c Capabilities) Warnings(binding *hotkey.Binding) []string {
	var out []string
	if !c.KeyboardHotkeys && (binding == nil || binding.Kind == hotkey.KindKeyboard) {
		out = append(out, "Keyboard shortcuts are not available on "+c.DisplayServer.String()+". Use a mouse or joystick button instead.")
	}
	if !c.Joystick && binding != nil && (binding.Kind == hotkey.KindJoystick || binding.Kind == hotkey.KindVJoy) {
		out = append(out, "No joystick interface found. Connect the controller and restart.")
	}
	if !c.Keyring {
		out = append(out, "No system keyring found. The auth token is stored in the config file.")
	}
	return out
}
