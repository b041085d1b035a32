//go:build !windows

package ui

import (
	"sync"

	"github.com/gen2brain/beeep"
)

var (
	notifyIconOnce sync.Once
	notifyIconPath string
)

// notifyIcon writes the embedded icon once per process. Notifications are
// sent without an icon when that fails.
func (n *NotificationManager) notifyIcon() string {
	notifyIconOnce.Do(func() {
		if len(n.embeddedIcon) == 0 {
			return
		}
		p, err := writeTempIcon(n.embeddedIcon)
		if err != nil {
			n.log.Debug().Err(err).Msg("Notification icon unavailable")
			return
		}
		notifyIconPath = p
	})
	return notifyIconPath
}

func (n *NotificationManager) platformNotify(title, message string) error {
	return beeep.Notify(title, message, n.notifyIcon())
}
