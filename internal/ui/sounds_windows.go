//go:build windows

package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	winmm         = windows.NewLazySystemDLL("winmm.dll")
	procPlaySound = winmm.NewProc("PlaySoundW")
)

const (
	sndAsync     = 0x0001
	sndNoDefault = 0x0002
	sndFilename  = 0x00020000
)

func soundFile(s Sound) string {
	windir := os.Getenv("WINDIR")
	if windir == "" {
		windir = `C:\Windows`
	}
	switch s {
	case SoundEnter:
		return filepath.Join(windir, "Media", "Speech On.wav")
	case SoundExit:
		return filepath.Join(windir, "Media", "Speech Off.wav")
	default:
		return ""
	}
}

func platformPlay(s Sound) error {
	path := soundFile(s)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	r, _, callErr := procPlaySound.Call(uintptr(unsafe.Pointer(p)), 0, sndFilename|sndAsync|sndNoDefault)
	if r == 0 {
		return fmt.Errorf("PlaySoundW %s: %w", path, callErr)
	}
	return nil
}
