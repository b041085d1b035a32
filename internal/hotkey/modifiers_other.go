//go:build !windows && !linux

package hotkey

import "golang.design/x/hotkey"

// Keyboard bindings are not wired up here: macOS needs the main-thread
// integration golang.design/x/hotkey requires. parseHotkey reports
// ErrBackendNotAvailable.
var modifierKeys map[string]hotkey.Modifier

func expandModifiers(modifiers []hotkey.Modifier) [][]hotkey.Modifier {
	return [][]hotkey.Modifier{modifiers}
}
