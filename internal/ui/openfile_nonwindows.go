//go:build !windows

package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenFileInDefaultApp opens path with its associated application.
func OpenFileInDefaultApp(path string) error {
	opener := "xdg-open"
	if runtime.GOOS == "darwin" {
		opener = "open"
	}
	bin, err := exec.LookPath(opener)
	if err != nil {
		return fmt.Errorf("no file opener found (%s): %w", opener, err)
	}

	cmd := exec.Command(bin, path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", opener, err)
	}
	// Reap the opener in the background.
	go func() { _ = cmd.Wait() }()
	return nil
}
