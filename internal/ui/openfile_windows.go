//go:build windows

package ui

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// OpenFileInDefaultApp opens path with its associated application.
func OpenFileInDefaultApp(path string) error {
	verb, err := windows.UTF16PtrFromString("open")
	if err != nil {
		return err
	}
	file, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fmt.Errorf("failed to convert file path: %w", err)
	}
	if err := windows.ShellExecute(0, verb, file, nil, nil, windows.SW_SHOWNORMAL); err != nil {
		return fmt.Errorf("ShellExecute open %s: %w", path, err)
	}
	return nil
}
