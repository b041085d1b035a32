package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/TanaroSch/whisper-lead/internal/api"
	"github.com/TanaroSch/whisper-lead/internal/config"
	"github.com/TanaroSch/whisper-lead/internal/hotkey"
	"github.com/TanaroSch/whisper-lead/internal/lead"
	"github.com/TanaroSch/whisper-lead/internal/logging"
	"github.com/TanaroSch/whisper-lead/internal/resources"
	"github.com/TanaroSch/whisper-lead/internal/ui"
)

const appName = "388 Client"

// Application represents the main application
type Application struct {
	version string
	cfgPath string
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	iconData      []byte
	caps          Capabilities
	dialogs       *ui.Dialogs
	notifications *ui.NotificationManager
	sounds        *ui.SoundPlayer
	systray       *ui.SystrayManager
	gate          *lead.Gate

	mu        sync.Mutex
	cfg       *config.Config
	loadErr   error
	listener  *listener
	resetting atomic.Bool
}

// New creates a new application instance. The config at cfgPath is loaded
// here; when it is missing or corrupt, setup runs once the tray is up.
func New(ctx context.Context, cfgPath, version string, log zerolog.Logger) *Application {
	ctx, cancel := context.WithCancel(ctx)
	app := &Application{
		version: version,
		cfgPath: cfgPath,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		dialogs: ui.NewDialogs(appName),
		gate:    &lead.Gate{},
	}

	var err error
	app.iconData, err = resources.GetIcon()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load embedded icon")
	}

	app.cfg, app.loadErr = config.Load(cfgPath, config.WithLogger(app.component("config")))
	notify, sounds := true, true
	if app.cfg != nil {
		app.log = app.log.Level(logging.ParseLevel(app.cfg.LogLevel))
		notify, sounds = app.cfg.UseNotifications, app.cfg.PlaySounds
	} else {
		log.Info().Err(app.loadErr).Msg("No usable config, setup will run")
	}

	app.caps = DetectCapabilities(app.component("capabilities"))
	app.notifications = ui.NewNotificationManager(notify, appName, app.iconData, app.component("notifications"))
	app.sounds = ui.NewSoundPlayer(sounds, app.component("sounds"))

	keybind := ""
	if app.cfg != nil {
		keybind = hotkey.DisplayKeybind(app.cfg.Keybind)
	}
	app.systray = ui.NewSystrayManager(version, app.iconData, keybind, ui.TrayCallbacks{
		OnReady:      app.onReady,
		OnOpenConfig: app.onOpenConfigFile,
		OnResetSetup: app.onResetSetup,
		OnQuit:       app.onQuit,
	}, app.component("systray"))

	return app
}

// Run starts the application. It blocks on the tray until Quit or until the
// context passed to New is done.
func (a *Application) Run() {
	go func() {
		<-a.ctx.Done()
		a.systray.Quit()
	}()
	a.systray.Run()
	a.shutdown()
}

func (a *Application) component(name string) zerolog.Logger {
	return a.log.With().Str("component", name).Logger()
}

// onReady runs once the tray is up: setup if needed, then listen.
func (a *Application) onReady() {
	a.mu.Lock()
	cfg, loadErr := a.cfg, a.loadErr
	a.mu.Unlock()

	if cfg == nil || a.needsSetup(cfg) {
		if errors.Is(loadErr, config.ErrCorrupt) {
			a.dialogs.Warn("The configuration file could not be read and will be recreated.")
		}
		var err error
		cfg, err = a.runSetup()
		if err != nil {
			a.setupFailed(err)
			return
		}
	}

	for _, w := range a.caps.Warnings(bindingOf(cfg)) {
		a.notifications.Notify(ui.LevelWarn, "Limited functionality", w)
	}
	if err := a.listen(cfg); err != nil {
		a.log.Error().Err(err).Msg("Listener not started")
	}
}

// needsSetup reports whether cfg lacks a usable keybind. A missing token is
// not a setup trigger: presses report it.
func (a *Application) needsSetup(cfg *config.Config) bool {
	err := cfg.Validate()
	if !errors.Is(err, config.ErrKeybind) {
		return false
	}
	a.log.Warn().Err(err).Str("keybind", cfg.Keybind).Msg("Configured keybind is unusable, running setup")
	return true
}

// retryPolicy returns the configured policy, or the defaults when it is out
// of range.
func (a *Application) retryPolicy(cfg *config.Config) lead.Policy {
	err := cfg.Validate()
	if errors.Is(err, api.ErrTokenMissing) {
		a.log.Warn().Msg("No auth token configured; activation will fail until setup is reset")
	}
	if errors.Is(err, config.ErrRetry) {
		a.log.Warn().Err(err).Msg("Retry settings invalid, using defaults")
		return lead.DefaultPolicy()
	}
	return cfg.Policy()
}

func bindingOf(cfg *config.Config) *hotkey.Binding {
	b, err := cfg.Binding()
	if err != nil {
		return nil
	}
	return &b
}

func (a *Application) runSetup() (*config.Config, error) {
	a.systray.SetStatus(ui.StatusInactive, "")
	a.systray.SetKeybind("")
	w := newWizard(a.dialogs, a.component("setup"), config.WithLogger(a.component("config")))
	cfg, err := w.Run(a.ctx, a.cfgPath)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.cfg, a.loadErr = cfg, nil
	a.mu.Unlock()
	return cfg, nil
}

// setupFailed ends the process: without a config there is nothing to listen for.
func (a *Application) setupFailed(err error) {
	if errors.Is(err, ErrSetupCanceled) {
		a.log.Info().Msg("Setup canceled, exiting")
	} else {
		a.log.Error().Err(err).Msg("Setup failed")
		a.dialogs.Error(fmt.Sprintf("Setup failed:\n%v", err))
	}
	a.cancel()
}

// listen opens the configured input and starts a listener on it.
func (a *Application) listen(cfg *config.Config) error {
	b, err := cfg.Binding()
	if err != nil {
		return err
	}
	dev, err := hotkey.Open(b, a.component("hotkey"))
	if err != nil {
		a.systray.SetStatus(ui.StatusError, "Keybind unavailable")
		a.notifications.Notify(ui.LevelError, "Keybind unavailable",
			fmt.Sprintf("%s could not be registered: %v", b.Display(), err))
		return fmt.Errorf("failed to open %s: %w", b, err)
	}

	lc := listenerConfig{
		cfg:      cfg,
		gate:     a.gate,
		notifier: lead.NotifierFunc(a.onEvent),
		onState:  a.onState,
		policy:   a.retryPolicy(cfg),
		log:      a.component("listener"),
	}

	l := startListener(a.ctx, dev, lc)
	a.mu.Lock()
	a.listener = l
	a.mu.Unlock()

	a.systray.SetKeybind(b.Display())
	a.systray.SetStatus(ui.StatusInactive, "")
	a.notifications.Notify(ui.LevelInfo, appName+" ready", fmt.Sprintf("Press %s to become Team-Lead.", b.Display()))
	return nil
}

// stopListener stops the current listener, if any, deactivating a held role.
func (a *Application) stopListener() {
	a.mu.Lock()
	l := a.listener
	a.listener = nil
	a.mu.Unlock()
	if l != nil {
		l.stop()
	}
}

// onEvent turns a lead event into tray, sound and notification feedback.
func (a *Application) onEvent(ev lead.Event) {
	fb := ui.EventFeedback(ev)
	a.sounds.Play(fb.Sound)
	a.systray.SetStatus(fb.Status, fb.Detail)
	if fb.Notify {
		a.notifications.Notify(fb.Level, fb.Title, fb.Message)
	}
}

func (a *Application) onState(s lead.State) {
	a.systray.SetStatus(ui.StateStatus(s), "")
}

// onQuit is called when the quit menu item is clicked
func (a *Application) onQuit() {
	a.log.Info().Msg("Quit requested")
	a.cancel()
}

// shutdown runs after the tray has closed.
func (a *Application) shutdown() {
	a.cancel()
	a.stopListener()
	a.notifications.Close()
	a.log.Info().Msg("Shutdown complete")
}

// onOpenConfigFile is called when the open config menu item is clicked
func (a *Application) onOpenConfigFile() {
	absPath, err := filepath.Abs(a.cfgPath)
	if err != nil {
		a.log.Warn().Err(err).Str("path", a.cfgPath).Msg("Failed to get absolute config path")
		absPath = a.cfgPath
	}

	if _, err := os.Stat(absPath); err != nil {
		a.log.Warn().Err(err).Str("path", absPath).Msg("Config file not accessible")
		a.notifications.Notify(ui.LevelWarn, "Error Opening File", fmt.Sprintf("Config file not found: %s", absPath))
		return
	}
	if err := ui.OpenFileInDefaultApp(absPath); err != nil {
		a.log.Error().Err(err).Str("path", absPath).Msg("Failed to open config file")
		a.notifications.Notify(ui.LevelError, "Error Opening File", fmt.Sprintf("Could not open config file: %v", err))
		return
	}
	a.log.Info().Str("path", absPath).Msg("Opened config file")
}

// onResetSetup deletes the config (and keyring token) and runs setup again.
func (a *Application) onResetSetup() {
	if !a.resetting.CompareAndSwap(false, true) {
		return
	}
	defer a.resetting.Store(false)

	if !a.dialogs.Confirm("Reset Setup", "This deletes your keybind and auth token and runs setup again.\nContinue?", "Reset") {
		a.log.Info().Msg("Reset setup canceled")
		return
	}
	a.stopListener()

	a.mu.Lock()
	cfg := a.cfg
	a.cfg = nil
	a.mu.Unlock()
	var err error
	if cfg != nil {
		err = cfg.Reset()
	} else {
		err = config.Delete(a.cfgPath)
	}
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to reset config")
		a.notifications.Notify(ui.LevelError, "Reset failed", err.Error())
		return
	}
	a.log.Info().Str("path", a.cfgPath).Msg("Config reset")

	cfg, err = a.runSetup()
	if err != nil {
		a.setupFailed(err)
		return
	}
	if err := a.listen(cfg); err != nil {
		a.log.Error().Err(err).Msg("Listener not started after reset")
	}
}
