package hotkey

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/TanaroSch/whisper-lead/internal/logging"
)

const (
	DefaultPollInterval = 20 * time.Millisecond
	DefaultDebounce     = 350 * time.Millisecond
)

// Trigger polls a Device and emits one event per press: a rising edge that
// is at least Debounce after the previous event.
type Trigger struct {
	dev      Device
	interval time.Duration
	debounce time.Duration
	fired    chan struct{}
	log      zerolog.Logger

	wasPressed bool
	lastFire   time.Time
	failing    bool
}

// TriggerOption customizes a Trigger.
type TriggerOption func(*Trigger)

func WithPollInterval(d time.Duration) TriggerOption {
	return func(t *Trigger) {
		if d > 0 {
			t.interval = d
		}
	}
}

func WithDebounce(d time.Duration) TriggerOption {
	return func(t *Trigger) {
		if d >= 0 {
			t.debounce = d
		}
	}
}

func WithTriggerLogger(log zerolog.Logger) TriggerOption {
	return func(t *Trigger) { t.log = log }
}

func NewTrigger(dev Device, opts ...TriggerOption) *Trigger {
	t := &Trigger{
		dev:      dev,
		interval: DefaultPollInterval,
		debounce: DefaultDebounce,
		fired:    make(chan struct{}, 1),
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fired delivers press events. A press that arrives while the previous one
// is still unread is dropped.
func (t *Trigger) Fired() <-chan struct{} {
	return t.fired
}

// Run polls until ctx is done. Device errors are logged once per failure
// streak and read as "not pressed".
func (t *Trigger) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if t.tick(now) {
				select {
				case t.fired <- struct{}{}:
				default:
					t.log.Debug().Msg("Trigger event dropped, previous one unread")
				}
			}
		}
	}
}

// tick samples the device once and reports whether a press event fires.
func (t *Trigger) tick(now time.Time) bool {
	pressed, err := t.dev.Pressed()
	if err != nil {
		if !t.failing {
			t.log.Warn().Err(err).Str("device", t.dev.Name()).Msg("Input device read failed")
			t.failing = true
		}
		pressed = false
	} else if t.failing {
		t.log.Info().Str("device", t.dev.Name()).Msg("Input device readable again")
		t.failing = false
	}

	rising := pressed && !t.wasPressed
	t.wasPressed = pressed
	if !rising {
		return false
	}
	if !t.lastFire.IsZero() && now.Sub(t.lastFire) < t.debounce {
		t.log.Debug().Dur("since_last", now.Sub(t.lastFire)).Msg("Trigger debounced")
		return false
	}
	t.lastFire = now
	return true
}

// WaitForPresses blocks until dev has been pressed n times or ctx ends.
func WaitForPresses(ctx context.Context, dev Device, n int, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t := NewTrigger(dev, WithPollInterval(interval))
	go t.Run(ctx)
	for seen := 0; seen < n; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Fired():
			seen++
		}
	}
	return nil
}
