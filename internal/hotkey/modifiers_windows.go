//go:build windows

package hotkey

import "golang.design/x/hotkey"

var modifierKeys = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"alt":   hotkey.ModAlt,
	"shift": hotkey.ModShift,
	"super": hotkey.ModWin,
}

// RegisterHotKey ignores lock keys, one registration is enough.
func expandModifiers(modifiers []hotkey.Modifier) [][]hotkey.Modifier {
	return [][]hotkey.Modifier{modifiers}
}
