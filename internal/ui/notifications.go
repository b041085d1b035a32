package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Level grades a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// prefix marks the title so the level reads at a glance in the toast list.
func (l Level) prefix() string {
	switch l {
	case LevelSuccess:
		return "✔ "
	case LevelWarn:
		return "⚠ "
	case LevelError:
		return "✖ "
	default:
		return ""
	}
}

const queueSize = 16

type notification struct {
	level   Level
	title   string
	message string
}

// NotificationManager shows desktop notifications from a single dispatcher
// goroutine. Notify never blocks the caller.
type NotificationManager struct {
	enabled      bool
	appName      string
	embeddedIcon []byte
	log          zerolog.Logger
	push         func(title, message string) error

	mu     sync.RWMutex
	closed bool
	queue  chan notification
	done   chan struct{}
}

// NewNotificationManager creates a manager and starts its dispatcher.
func NewNotificationManager(enabled bool, appName string, embeddedIcon []byte, log zerolog.Logger) *NotificationManager {
	n := &NotificationManager{
		enabled:      enabled,
		appName:      appName,
		embeddedIcon: embeddedIcon,
		log:          log,
		queue:        make(chan notification, queueSize),
		done:         make(chan struct{}),
	}
	n.push = n.platformNotify
	go n.dispatch()
	return n
}

// Notify queues a notification. When the queue is full the notification is
// dropped and logged.
func (n *NotificationManager) Notify(level Level, title, message string) {
	ev := n.log.Info()
	if level >= LevelWarn {
		ev = n.log.Warn()
	}
	ev.Str("level", level.String()).Str("title", title).Msg(message)

	if !n.enabled {
		return
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- notification{level: level, title: title, message: message}:
	default:
		n.log.Warn().Str("title", title).Msg("Notification queue full, dropping")
	}
}

// Close stops the dispatcher after the queued notifications are shown.
func (n *NotificationManager) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()
	<-n.done
}

func (n *NotificationManager) dispatch() {
	defer close(n.done)
	for item := range n.queue {
		if err := n.push(item.level.prefix()+item.title, item.message); err != nil {
			n.log.Error().Err(err).Str("title", item.title).Msg("Error showing notification")
		}
	}
}

// writeTempIcon writes the embedded icon to a temporary file and returns its
// absolute path.
func writeTempIcon(iconData []byte) (string, error) {
	if len(iconData) == 0 {
		return "", fmt.Errorf("cannot write empty icon data")
	}
	tmpFile, err := os.CreateTemp("", "whisperlead-icon-*.ico")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	if _, err := tmpFile.Write(iconData); err != nil {
		_ = os.Remove(tmpFile.Name())
		return "", err
	}

	absPath, err := filepath.Abs(tmpFile.Name())
	if err != nil {
		return tmpFile.Name(), nil
	}
	return absPath, nil
}
