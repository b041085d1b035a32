//go:build linux

package hotkey

import "golang.design/x/hotkey"

// On X11 Alt is Mod1 and Super is Mod4.
var modifierKeys = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"alt":   hotkey.Mod1,
	"shift": hotkey.ModShift,
	"super": hotkey.Mod4,
}

// XGrabKey matches the modifier state exactly, so a grab without the lock
// bits never fires while NumLock (Mod2) or CapsLock (LockMask) is on.
const x11LockMask hotkey.Modifier = 1 << 1

var lockVariants = [][]hotkey.Modifier{
	nil,
	{hotkey.Mod2},
	{x11LockMask},
	{hotkey.Mod2, x11LockMask},
}

// expandModifiers returns one modifier set per lock state, the plain set first.
func expandModifiers(modifiers []hotkey.Modifier) [][]hotkey.Modifier {
	out := make([][]hotkey.Modifier, 0, len(lockVariants))
	for _, locks := range lockVariants {
		mods := make([]hotkey.Modifier, 0, len(modifiers)+len(locks))
		mods = append(mods, modifiers...)
		out = append(out, append(mods, locks...))
	}
	return out
}
