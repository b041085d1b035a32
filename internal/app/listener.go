package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/TanaroSch/whisper-lead/internal/api"
	"github.com/TanaroSch/whisper-lead/internal/config"
	"github.com/TanaroSch/whisper-lead/internal/hotkey"
	"github.com/TanaroSch/whisper-lead/internal/lead"
)

// listenerConfig is what a listener needs besides the device.
type listenerConfig struct {
	cfg      *config.Config
	gate     *lead.Gate
	notifier lead.Notifier
	onState  func(lead.State)
	policy   lead.Policy
	log      zerolog.Logger
	trigger  []hotkey.TriggerOption
}

// listener feeds debounced presses from one device into a lead loop. It lives
// until stop; setup resets replace it with a fresh one.
type listener struct {
	dev     hotkey.Device
	client  *api.Client
	loop    *lead.Loop
	trigger *hotkey.Trigger
	log     zerolog.Logger

	// held is set while a session holds the role. Cancellation leaves it
	// set so stop knows to deactivate.
	held   atomic.Bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func startListener(ctx context.Context, dev hotkey.Device, lc listenerConfig) *listener {
	ctx, cancel := context.WithCancel(ctx)
	cfg := lc.cfg

	client := api.NewClient(cfg.ClientConfig(), api.WithLogger(lc.log.With().Str("component", "api").Logger()))
	opts := []lead.Option{
		lead.WithLogger(lc.log.With().Str("component", "lead").Logger()),
		lead.WithStateHook(lc.onState),
	}
	if cfg.ToggleOnPress {
		opts = append(opts, lead.WithToggler(client))
	}

	topts := append([]hotkey.TriggerOption{hotkey.WithTriggerLogger(lc.log)}, lc.trigger...)
	l := &listener{
		dev:     dev,
		client:  client,
		trigger: hotkey.NewTrigger(dev, topts...),
		log:     lc.log,
		cancel:  cancel,
	}
	l.loop = lead.New(client, lead.NotifierFunc(func(ev lead.Event) {
		switch ev.Kind {
		case lead.EventLeading:
			l.held.Store(true)
		case lead.EventLeadLost, lead.EventFailed:
			l.held.Store(false)
		}
		if lc.notifier != nil {
			lc.notifier.Notify(ev)
		}
	}), lc.gate, lc.policy, opts...)

	l.wg.Add(2)
	go func() {
		defer l.wg.Done()
		l.trigger.Run(ctx)
	}()
	go func() {
		defer l.wg.Done()
		l.dispatch(ctx)
	}()

	l.log.Info().
		Str("device", dev.Name()).
		Str("server", client.BaseURL()).
		Bool("toggle_on_press", cfg.ToggleOnPress).
		Msg("Listening for keybind")
	return l
}

func (l *listener) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.trigger.Fired():
			res := l.loop.Press(ctx)
			l.log.Debug().Str("press", res.String()).Msg("Keybind pressed")
		}
	}
}

// stop cancels the session, waits for every goroutine and releases the
// device. A session that held the role is deactivated on the server.
func (l *listener) stop() {
	l.once.Do(func() {
		l.cancel()
		l.wg.Wait()
		l.loop.Wait()

		if err := l.dev.Close(); err != nil {
			l.log.Warn().Err(err).Str("device", l.dev.Name()).Msg("Failed to close input device")
		}
		if !l.held.Load() {
			return
		}
		if err := l.client.Deactivate(context.Background()); err != nil {
			l.log.Warn().Err(err).Msg("Deactivation signal failed")
			return
		}
		l.log.Info().Msg("Deactivation signal sent")
	})
}
