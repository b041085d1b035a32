//go:build windows

package app

import "golang.org/x/sys/windows"

func boostPriority() error {
	return windows.SetPriorityClass(windows.CurrentProcess(), windows.ABOVE_NORMAL_PRIORITY_CLASS)
}
