package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/TanaroSch/whisper-lead/internal/clipboard"
	"github.com/TanaroSch/whisper-lead/internal/config"
	"github.com/TanaroSch/whisper-lead/internal/hotkey"
	"github.com/TanaroSch/whisper-lead/internal/ui"
)

// ErrSetupCanceled means the user closed a setup dialog. No config was written.
var ErrSetupCanceled = errors.New("setup canceled")

var errStepTimeout = errors.New("no input received in time")

const defaultStepTimeout = 30 * time.Second

// SetupUI is the dialog surface the setup wizard drives. *ui.Dialogs
// implements it.
type SetupUI interface {
	ChooseInput(ctx context.Context) (ui.InputMethod, error)
	AskKeyboardCombo(ctx context.Context, current string) (string, error)
	AskToken(ctx context.Context, prefill string) (string, error)
	AskLocalInstance(ctx context.Context) (bool, error)
	Progress(ctx context.Context, text string) (ui.ProgressDialog, error)
	Warn(text string)
}

// wizard asks for the keybind, the auth token and the server, then writes
// the config file.
type wizard struct {
	ui       SetupUI
	log      zerolog.Logger
	cfgOpts  []config.Option
	timeout  time.Duration
	interval time.Duration

	open     func(hotkey.Binding, zerolog.Logger) (hotkey.Device, error)
	capture  func(context.Context, time.Duration) (hotkey.Binding, error)
	clipText func() string
}

func newWizard(dialogs SetupUI, log zerolog.Logger, opts ...config.Option) *wizard {
	return &wizard{
		ui:       dialogs,
		log:      log,
		cfgOpts:  opts,
		timeout:  defaultStepTimeout,
		interval: hotkey.DefaultPollInterval,
		open:     hotkey.Open,
		capture:  hotkey.Capture,
		clipText: clipboard.TokenCandidate,
	}
}

// Run walks through setup and saves the result to path.
func (w *wizard) Run(ctx context.Context, path string) (*config.Config, error) {
	w.log.Info().Str("path", path).Msg("Starting setup")
	cfg := config.Default(path, w.cfgOpts...)

	b, err := w.keybind(ctx)
	if err != nil {
		return nil, w.canceled(err)
	}
	token, err := w.token(ctx)
	if err != nil {
		return nil, w.canceled(err)
	}
	local, err := w.ui.AskLocalInstance(ctx)
	if err != nil {
		return nil, w.canceled(err)
	}

	cfg.Keybind = b.String()
	cfg.LocalInstance = config.FlexBool(local)
	cfg.SetToken(token)
	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("failed to save setup: %w", err)
	}
	w.log.Info().
		Str("keybind", cfg.Keybind).
		Bool("local_instance", local).
		Bool("token_in_keyring", cfg.TokenInKeyring).
		Msg("Setup complete")
	return cfg, nil
}

func (w *wizard) canceled(err error) error {
	if errors.Is(err, ui.ErrCanceled) || errors.Is(err, context.Canceled) {
		w.log.Info().Msg("Setup canceled")
		return fmt.Errorf("%w: %w", ErrSetupCanceled, err)
	}
	return err
}

// keybind repeats until a binding has been captured and confirmed.
func (w *wizard) keybind(ctx context.Context) (hotkey.Binding, error) {
	for {
		method, err := w.ui.ChooseInput(ctx)
		if err != nil {
			return hotkey.Binding{}, err
		}

		var b hotkey.Binding
		if method == ui.InputKeyboard {
			b, err = w.keyboard(ctx)
		} else {
			b, err = w.button(ctx)
		}
		switch {
		case err == nil:
			return b, nil
		case errors.Is(err, ui.ErrCanceled) || ctx.Err() != nil:
			return hotkey.Binding{}, err
		case errors.Is(err, errStepTimeout):
			w.ui.Warn("No press detected in time. Please try again.")
		default:
			w.log.Warn().Err(err).Msg("Keybind setup failed")
			w.ui.Warn(fmt.Sprintf("That keybind cannot be used:\n%v", err))
		}
	}
}

func (w *wizard) button(ctx context.Context) (hotkey.Binding, error) {
	var b hotkey.Binding
	err := w.step(ctx, "Press the mouse or joystick button you want to use.\n(Left and right mouse buttons are ignored.)", func(ctx context.Context) error {
		var err error
		b, err = w.capture(ctx, w.interval)
		return err
	})
	if err != nil {
		return hotkey.Binding{}, err
	}
	w.log.Info().Str("binding", b.String()).Msg("Button captured")

	// The capture counts as the first press.
	if err := w.confirm(ctx, b, 1); err != nil {
		return hotkey.Binding{}, err
	}
	return b, nil
}

func (w *wizard) keyboard(ctx context.Context) (hotkey.Binding, error) {
	combo, err := w.ui.AskKeyboardCombo(ctx, "")
	if err != nil {
		return hotkey.Binding{}, err
	}
	b, err := hotkey.ParseBinding(combo)
	if err != nil {
		return hotkey.Binding{}, err
	}
	if b.Kind != hotkey.KindKeyboard {
		return hotkey.Binding{}, fmt.Errorf("%w: %q is not a keyboard shortcut", hotkey.ErrInvalidBinding, combo)
	}
	if err := w.confirm(ctx, b, 2); err != nil {
		return hotkey.Binding{}, err
	}
	return b, nil
}

// confirm waits for n more presses of b on the real device.
func (w *wizard) confirm(ctx context.Context, b hotkey.Binding, n int) error {
	dev, err := w.open(b, w.log)
	if err != nil {
		return err
	}
	defer dev.Close()

	text := fmt.Sprintf("Press %s once more to confirm.", b.Display())
	if n > 1 {
		text = fmt.Sprintf("Press %s %d times to confirm.", b.Display(), n)
	}
	return w.step(ctx, text, func(ctx context.Context) error {
		return hotkey.WaitForPresses(ctx, dev, n, w.interval)
	})
}

// step runs fn under a progress dialog and the step timeout. Closing the
// dialog cancels fn.
func (w *wizard) step(ctx context.Context, text string, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	dlg, err := w.ui.Progress(stepCtx, text)
	if err != nil {
		return err
	}
	defer dlg.Close()
	go func() {
		select {
		case <-dlg.Done():
			cancel()
		case <-stepCtx.Done():
		}
	}()

	err = fn(stepCtx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case stepCtx.Err() == nil:
		return err
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
		return errStepTimeout
	default:
		return ui.ErrCanceled
	}
}

// token asks until a non-empty token is entered. The clipboard is offered
// as the default answer.
func (w *wizard) token(ctx context.Context) (string, error) {
	prefill := w.clipText()
	if prefill != "" {
		w.log.Debug().Msg("Offering clipboard text as auth token")
	}
	for {
		token, err := w.ui.AskToken(ctx, prefill)
		if err != nil {
			return "", err
		}
		if token != "" {
			return token, nil
		}
		w.ui.Warn("Token is required to proceed.")
	}
}
