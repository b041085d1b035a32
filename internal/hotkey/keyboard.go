package hotkey

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.design/x/hotkey"
)

// keyboardDevice wraps golang.design/x/hotkey registrations and turns their
// Keydown/Keyup channels into a pollable pressed flag.
type keyboardDevice struct {
	combo   string
	hotkeys []*hotkey.Hotkey
	down    atomic.Bool
	// latched keeps a tap that starts and ends between two polls visible
	// for one poll.
	latched atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	log     zerolog.Logger
}

// parseHotkey converts a canonical combo such as "ctrl+alt+f9" into the
// modifiers and key golang.design/x/hotkey registers.
func parseHotkey(combo string) ([]hotkey.Modifier, hotkey.Key, error) {
	if modifierKeys == nil {
		return nil, 0, fmt.Errorf("%w: keyboard hotkeys", ErrBackendNotAvailable)
	}
	parts := strings.Split(strings.ToLower(combo), "+")
	name := parts[len(parts)-1]
	key, ok := KeyMap[name]
	if !ok {
		return nil, 0, fmt.Errorf("%w: unsupported key %q", ErrInvalidBinding, name)
	}
	mods := make([]hotkey.Modifier, 0, len(parts)-1)
	for _, part := range parts[:len(parts)-1] {
		m, ok := modifierKeys[part]
		if !ok {
			return nil, 0, fmt.Errorf("%w: unsupported modifier %q", ErrInvalidBinding, part)
		}
		mods = append(mods, m)
	}
	return mods, key, nil
}

func openKeyboard(b Binding, log zerolog.Logger) (Device, error) {
	modifiers, key, err := parseHotkey(b.Combo)
	if err != nil {
		return nil, fmt.Errorf("failed to parse hotkey '%s': %w", b.Combo, err)
	}

	d := &keyboardDevice{combo: b.Combo, stopCh: make(chan struct{}), log: log}
	for _, mods := range expandModifiers(modifiers) {
		hk := hotkey.New(mods, key)
		if err := hk.Register(); err != nil {
			if len(d.hotkeys) == 0 {
				return nil, fmt.Errorf("failed to register hotkey '%s': %w", b.Combo, err)
			}
			// Lock-modifier variants are optional.
			log.Debug().Err(err).Str("hotkey", b.Combo).Msg("Skipping hotkey variant")
			continue
		}
		d.hotkeys = append(d.hotkeys, hk)
		d.wg.Add(1)
		go d.watch(hk)
	}
	log.Info().Str("hotkey", b.Combo).Int("variants", len(d.hotkeys)).Msg("Registered keyboard hotkey")
	return d, nil
}

func (d *keyboardDevice) watch(hk *hotkey.Hotkey) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("hotkey", d.combo).Msg("Recovered from panic in hotkey watcher")
		}
	}()
	for {
		select {
		case <-d.stopCh:
			return
		case <-hk.Keydown():
			d.down.Store(true)
			d.latched.Store(true)
		case <-hk.Keyup():
			d.down.Store(false)
		}
	}
}

func (d *keyboardDevice) Pressed() (bool, error) {
	latched := d.latched.Swap(false)
	return d.down.Load() || latched, nil
}

func (d *keyboardDevice) Name() string {
	return "keyboard " + d.combo
}

func (d *keyboardDevice) Close() error {
	select {
	case <-d.stopCh:
		return nil
	default:
	}
	close(d.stopCh)
	var firstErr error
	for _, hk := range d.hotkeys {
		if err := hk.Unregister(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to unregister hotkey '%s': %w", d.combo, err)
		}
	}
	d.wg.Wait()
	return firstErr
}
