package ui

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"
)

// TrayCallbacks are invoked from menu goroutines.
type TrayCallbacks struct {
	OnReady      func()
	OnOpenConfig func()
	OnResetSetup func()
	OnQuit       func()
}

// SystrayManager handles the system tray icon and menu
type SystrayManager struct {
	version      string
	embeddedIcon []byte
	callbacks    TrayCallbacks
	log          zerolog.Logger

	mu        sync.Mutex
	ready     bool
	status    TrayStatus
	detail    string
	keybind   string
	miStatus  *systray.MenuItem
	miHint    *systray.MenuItem
	miKeybind *systray.MenuItem
}

// NewSystrayManager creates a new system tray manager
func NewSystrayManager(version string, embeddedIcon []byte, keybind string, cb TrayCallbacks, log zerolog.Logger) *SystrayManager {
	return &SystrayManager{
		version:      version,
		embeddedIcon: embeddedIcon,
		callbacks:    cb,
		log:          log,
		status:       StatusInactive,
		keybind:      keybind,
	}
}

// Run initializes the tray and blocks until Quit. It must be called from the
// main goroutine.
func (s *SystrayManager) Run() {
	systray.Run(s.onReady, s.onExit)
}

// Quit closes the tray, which makes Run return.
func (s *SystrayManager) Quit() {
	systray.Quit()
}

// SetStatus updates the status line. StatusKeep is ignored.
func (s *SystrayManager) SetStatus(status TrayStatus, detail string) {
	if status == StatusKeep {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.detail = status, detail
	s.refreshLocked()
}

// SetKeybind updates the keybind line.
func (s *SystrayManager) SetKeybind(display string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keybind = display
	s.refreshLocked()
}

func (s *SystrayManager) refreshLocked() {
	if !s.ready {
		return
	}
	line := StatusLine(s.status, s.detail)
	s.miStatus.SetTitle(line)
	s.miHint.SetTitle(Hint(s.status))
	s.miKeybind.SetTitle(keybindLine(s.keybind))
	systray.SetTooltip(fmt.Sprintf("388 Client %s\n%s", s.version, line))
}

func keybindLine(display string) string {
	if display == "" {
		return "Keybind: (not set)"
	}
	return "Keybind: " + display
}

// onReady is called by systray once the tray is ready.
func (s *SystrayManager) onReady() {
	systray.SetTitle("388 Client")
	if len(s.embeddedIcon) > 0 {
		systray.SetIcon(s.embeddedIcon)
	} else {
		s.log.Warn().Msg("No embedded icon data to set for systray")
	}

	miVersion := systray.AddMenuItem(fmt.Sprintf("Version: %s", s.version), "388 Client version")
	miVersion.Disable()
	systray.AddSeparator()

	s.mu.Lock()
	s.miStatus = systray.AddMenuItem(StatusLine(s.status, s.detail), "Team-Lead status")
	s.miStatus.Disable()
	s.miHint = systray.AddMenuItem(Hint(s.status), "")
	s.miHint.Disable()
	s.miKeybind = systray.AddMenuItem(keybindLine(s.keybind), "Configured keybind")
	s.miKeybind.Disable()
	s.ready = true
	s.refreshLocked()
	s.mu.Unlock()

	systray.AddSeparator()
	miOpenConfig := systray.AddMenuItem("Open Config File", "Open config.json in default editor")
	miReset := systray.AddMenuItem("Reset Setup", "Delete the configuration and run setup again")
	systray.AddSeparator()
	miQuit := systray.AddMenuItem("Quit", "Exit the application")

	go func() {
		for range miOpenConfig.ClickedCh {
			s.log.Debug().Msg("Open Config File menu item clicked")
			if s.callbacks.OnOpenConfig != nil {
				s.callbacks.OnOpenConfig()
			}
		}
	}()
	go func() {
		for range miReset.ClickedCh {
			s.log.Debug().Msg("Reset Setup menu item clicked")
			if s.callbacks.OnResetSetup != nil {
				s.callbacks.OnResetSetup()
			}
		}
	}()
	go func() {
		<-miQuit.ClickedCh
		s.log.Info().Msg("Quit menu item clicked")
		if s.callbacks.OnQuit != nil {
			s.callbacks.OnQuit()
		}
		systray.Quit()
	}()

	s.log.Info().Msg("Systray ready and menu configured")
	if s.callbacks.OnReady != nil {
		go s.callbacks.OnReady()
	}
}

// onExit is called when the systray is exiting
func (s *SystrayManager) onExit() {
	s.log.Info().Msg("Systray exiting")
}
