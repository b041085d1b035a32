//go:build windows

package ui

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-toast/toast"
)

var (
	toastIconOnce sync.Once
	toastIconPath string
)

// toastIcon prefers an icon.png next to the executable and otherwise writes
// the embedded icon once per process.
func (n *NotificationManager) toastIcon() string {
	toastIconOnce.Do(func() {
		if exe, err := os.Executable(); err == nil {
			candidate := filepath.Join(filepath.Dir(exe), "icon.png")
			if _, err := os.Stat(candidate); err == nil {
				toastIconPath = candidate
				return
			}
		}
		if len(n.embeddedIcon) == 0 {
			return
		}
		p, err := writeTempIcon(n.embeddedIcon)
		if err != nil {
			n.log.Warn().Err(err).Msg("Error writing temporary icon")
			return
		}
		toastIconPath = p
	})
	return toastIconPath
}

func (n *NotificationManager) platformNotify(title, message string) error {
	notification := toast.Notification{
		AppID:    n.appName,
		Title:    title,
		Message:  message,
		Icon:     n.toastIcon(),
		Audio:    toast.Silent,
		Duration: toast.Short,
	}

	err := notification.Push()
	if err != nil && strings.Contains(err.Error(), "notification platform is unavailable") {
		n.log.Warn().Msg("Toast notification failed: platform unavailable (notifications might be disabled in Windows Settings)")
	}
	return err
}
