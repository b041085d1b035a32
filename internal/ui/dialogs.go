package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/ncruces/zenity"
)

// ErrCanceled is returned when the user closes or cancels a dialog.
var ErrCanceled = zenity.ErrCanceled

// InputMethod is how the user wants to pick a keybind.
type InputMethod int

const (
	InputButton InputMethod = iota
	InputKeyboard
)

const (
	choiceButton   = "Mouse or joystick button (press it)"
	choiceKeyboard = "Keyboard shortcut (type it)"
)

// ProgressDialog is the subset of zenity.ProgressDialog the setup uses.
type ProgressDialog interface {
	Text(string) error
	Close() error
	Done() <-chan struct{}
}

// Dialogs shows the setup and confirmation dialogs with zenity.
type Dialogs struct {
	appName string
}

func NewDialogs(appName string) *Dialogs {
	return &Dialogs{appName: appName}
}

func (d *Dialogs) title(step string) zenity.Option {
	if step == "" {
		return zenity.Title(d.appName)
	}
	return zenity.Title(d.appName + " - " + step)
}

// ChooseInput asks which kind of keybind to set up.
func (d *Dialogs) ChooseInput(ctx context.Context) (InputMethod, error) {
	choice, err := zenity.List(
		"How do you want to trigger Team-Lead activation?",
		[]string{choiceButton, choiceKeyboard},
		d.title("Setup"),
		zenity.DefaultItems(choiceButton),
		zenity.Context(ctx),
	)
	if err != nil {
		return 0, err
	}
	if choice == choiceKeyboard {
		return InputKeyboard, nil
	}
	return InputButton, nil
}

// AskKeyboardCombo asks for a combo such as ctrl+alt+f9.
func (d *Dialogs) AskKeyboardCombo(ctx context.Context, current string) (string, error) {
	combo, err := zenity.Entry(
		"Enter the keyboard shortcut (e.g. ctrl+alt+f9).\nModifiers: ctrl, alt, shift, super.",
		d.title("Keybind"),
		zenity.EntryText(current),
		zenity.Context(ctx),
	)
	return strings.TrimSpace(combo), err
}

// AskToken asks for the auth token, prefilled with prefill.
func (d *Dialogs) AskToken(ctx context.Context, prefill string) (string, error) {
	token, err := zenity.Entry(
		"Paste the auth token you received from the bot.",
		d.title("Auth Token"),
		zenity.EntryText(prefill),
		zenity.HideText(),
		zenity.Context(ctx),
	)
	return strings.TrimSpace(token), err
}

// AskLocalInstance asks which server to use.
func (d *Dialogs) AskLocalInstance(ctx context.Context) (bool, error) {
	err := zenity.Question(
		"Which whisper server do you want to use?\nChoose the local server only when you are on the same network.",
		d.title("Server"),
		zenity.QuestionIcon,
		zenity.OKLabel("Internet server"),
		zenity.ExtraButton("Local server"),
		zenity.CancelLabel("Cancel"),
		zenity.Context(ctx),
	)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, zenity.ErrExtraButton):
		return true, nil
	default:
		return false, err
	}
}

// Progress shows a pulsating dialog until closed. Done fires when the user
// cancels it.
func (d *Dialogs) Progress(ctx context.Context, text string) (ProgressDialog, error) {
	dlg, err := zenity.Progress(
		d.title("Keybind"),
		zenity.Pulsate(),
		zenity.Context(ctx),
	)
	if err != nil {
		return nil, err
	}
	if err := dlg.Text(text); err != nil {
		_ = dlg.Close()
		return nil, err
	}
	return dlg, nil
}

// Confirm asks a yes/no question. Any error reads as "no".
func (d *Dialogs) Confirm(title, text, okLabel string) bool {
	err := zenity.Question(text,
		d.title(title),
		zenity.WarningIcon,
		zenity.OKLabel(okLabel),
		zenity.CancelLabel("Cancel"),
	)
	return err == nil
}

func (d *Dialogs) Warn(text string) {
	_ = zenity.Warning(text, d.title(""), zenity.WarningIcon)
}

func (d *Dialogs) Error(text string) {
	_ = zenity.Error(text, d.title("Error"), zenity.ErrorIcon)
}
