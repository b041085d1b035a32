//go:build !windows

package ui

import "github.com/gen2brain/beeep"

func platformPlay(s Sound) error {
	switch s {
	case SoundEnter:
		return beeep.Beep(880, 120)
	case SoundExit:
		return beeep.Beep(440, 120)
	default:
		return nil
	}
}
