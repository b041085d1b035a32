// Package lead drives the Team-Lead life cycle: acquire the role with bounded
// retries, supervise it with periodic status checks, and report exactly once
// when a session ends.
package lead

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TanaroSch/whisper-lead/internal/api"
	"github.com/TanaroSch/whisper-lead/internal/logging"
)

// State is the loop's position in the lead life cycle.
type State int

const (
	Idle State = iota
	Acquiring
	Leading
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Leading:
		return "leading"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Activator is the subset of the server client the loop needs.
type Activator interface {
	Activate(ctx context.Context) api.Result
	Status(ctx context.Context) api.Result
}

// Toggler enters or leaves the whisper channel while leading.
type Toggler interface {
	Trigger(ctx context.Context) (api.TriggerState, error)
}

// EventKind tells the notifier what happened.
type EventKind int

const (
	// EventLeading is sent once when a session becomes lead.
	EventLeading EventKind = iota
	// EventFailed is sent once when acquisition gives up.
	EventFailed
	// EventLeadLost is sent once when a leading session ends.
	EventLeadLost
	// EventWhisper is sent after a whisper toggle while leading.
	EventWhisper
	// EventWhisperFailed is sent when a whisper toggle could not be delivered.
	EventWhisperFailed
)

func (k EventKind) String() string {
	switch k {
	case EventLeading:
		return "leading"
	case EventFailed:
		return "failed"
	case EventLeadLost:
		return "lead_lost"
	case EventWhisper:
		return "whisper"
	case EventWhisperFailed:
		return "whisper_failed"
	default:
		return "unknown"
	}
}

// Event is one user-visible report.
type Event struct {
	Kind      EventKind
	SessionID string
	Result    api.Result
	Attempts  int
	Whisper   api.TriggerState
	Err       error
}

// Notifier receives loop events. Implementations must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(ev Event) { f(ev) }

// EndReason says why a session stopped.
type EndReason int

const (
	EndFailed EndReason = iota
	EndLeadLost
	EndCancelled
)

func (r EndReason) String() string {
	switch r {
	case EndFailed:
		return "failed"
	case EndLeadLost:
		return "lead_lost"
	case EndCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Session is the ephemeral record of one trigger cycle.
type Session struct {
	ID          string
	Attempts    int
	IsLead      bool
	LastOutcome api.Outcome
	Polls       int
	End         EndReason
	Started     time.Time
	Ended       time.Time
}

// PressResult tells the caller what a trigger press did.
type PressResult int

const (
	PressIgnored PressResult = iota
	PressStarted
	PressToggled
)

func (r PressResult) String() string {
	switch r {
	case PressStarted:
		return "started"
	case PressToggled:
		return "toggled"
	default:
		return "ignored"
	}
}

// Loop runs lead sessions. One session at a time, enforced by the Gate.
type Loop struct {
	client   Activator
	toggler  Toggler
	notifier Notifier
	gate     *Gate
	policy   Policy
	log      zerolog.Logger
	onState  func(State)

	mu       sync.Mutex
	state    State
	toggling atomic.Bool
	wg       sync.WaitGroup
}

// Option customizes a Loop.
type Option func(*Loop)

// WithToggler enables whisper toggling on presses while leading.
func WithToggler(t Toggler) Option {
	return func(l *Loop) { l.toggler = t }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// WithStateHook registers a callback for every state change. It runs on the
// loop goroutine and must return quickly.
func WithStateHook(fn func(State)) Option {
	return func(l *Loop) { l.onState = fn }
}

// New creates a loop. A nil gate gets a private one.
func New(client Activator, notifier Notifier, gate *Gate, policy Policy, opts ...Option) *Loop {
	if gate == nil {
		gate = &Gate{}
	}
	if notifier == nil {
		notifier = NotifierFunc(func(Event) {})
	}
	l := &Loop{
		client:   client,
		notifier: notifier,
		gate:     gate,
		policy:   policy,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Press handles one debounced trigger. A press starts a session when none is
// active; while leading it toggles the whisper channel if a Toggler is set;
// anything else is ignored.
func (l *Loop) Press(ctx context.Context) PressResult {
	if l.Start(ctx) {
		return PressStarted
	}
	if l.toggler != nil && l.State() == Leading && l.toggling.CompareAndSwap(false, true) {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer l.toggling.Store(false)
			l.toggle(ctx)
		}()
		return PressToggled
	}
	l.log.Debug().Str("state", l.State().String()).Msg("Trigger ignored: session already active")
	return PressIgnored
}

// Start runs a session in the background if the gate is open.
func (l *Loop) Start(ctx context.Context) bool {
	if !l.gate.TryAcquire() {
		return false
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.gate.Release()
		l.Run(ctx)
	}()
	return true
}

// Wait blocks until background sessions and toggles have returned.
func (l *Loop) Wait() {
	l.wg.Wait()
}

// Run executes one full session synchronously and returns its record. It does
// not touch the gate; Start does.
func (l *Loop) Run(ctx context.Context) Session {
	s := Session{ID: uuid.NewString(), Started: time.Now()}
	log := l.log.With().Str("session", s.ID).Logger()
	defer func() {
		s.Ended = time.Now()
		l.setState(Idle)
		log.Info().
			Str("end", s.End.String()).
			Int("attempts", s.Attempts).
			Int("polls", s.Polls).
			Dur("duration", s.Ended.Sub(s.Started)).
			Msg("Lead session finished")
	}()

	l.setState(Acquiring)
	res, ok := l.acquire(ctx, &s, log)
	if ctx.Err() != nil {
		s.End = EndCancelled
		return s
	}
	if !ok {
		s.End = EndFailed
		l.setState(Failed)
		l.notifier.Notify(Event{Kind: EventFailed, SessionID: s.ID, Result: res, Attempts: s.Attempts})
		return s
	}

	s.IsLead = true
	l.setState(Leading)
	l.notifier.Notify(Event{Kind: EventLeading, SessionID: s.ID, Result: res, Attempts: s.Attempts})

	res, lost := l.supervise(ctx, &s, log)
	s.IsLead = false
	if !lost {
		s.End = EndCancelled
		return s
	}
	s.End = EndLeadLost
	l.notifier.Notify(Event{Kind: EventLeadLost, SessionID: s.ID, Result: res, Attempts: s.Attempts})
	return s
}

// acquire calls Activate until lead is confirmed, a non-retryable outcome
// arrives, or MaxAttempts calls have been made.
func (l *Loop) acquire(ctx context.Context, s *Session, log zerolog.Logger) (api.Result, bool) {
	var res api.Result
	for attempt := 1; attempt <= l.policy.MaxAttempts; attempt++ {
		s.Attempts = attempt
		res = l.client.Activate(ctx)
		s.LastOutcome = res.Outcome
		if ctx.Err() != nil {
			return res, false
		}

		if res.Outcome.IsLead() {
			log.Info().Int("attempt", attempt).Str("outcome", res.Outcome.String()).Msg("Lead acquired")
			return res, true
		}
		if !res.Outcome.Retryable() && res.Outcome != api.LeadLost {
			log.Warn().Int("attempt", attempt).Err(res.Err()).Msg("Activation failed, not retrying")
			return res, false
		}
		if attempt == l.policy.MaxAttempts {
			break
		}

		delay := l.policy.Backoff(attempt)
		log.Info().
			Int("attempt", attempt).
			Int("max_attempts", l.policy.MaxAttempts).
			Str("outcome", res.Outcome.String()).
			Dur("retry_in", delay).
			Msg("Activation attempt failed, retrying")
		if !sleep(ctx, delay) {
			return res, false
		}
	}
	log.Warn().Int("attempts", s.Attempts).Err(res.Err()).Msg("Activation attempts exhausted")
	return res, false
}

// supervise polls Status until lead is lost or ctx ends. It reports lost=false
// only on cancellation.
func (l *Loop) supervise(ctx context.Context, s *Session, log zerolog.Logger) (api.Result, bool) {
	failures := 0
	for {
		if !sleep(ctx, l.policy.PollInterval) {
			return api.Result{}, false
		}
		res := l.client.Status(ctx)
		s.Polls++
		s.LastOutcome = res.Outcome
		if ctx.Err() != nil {
			return res, false
		}

		switch {
		case res.Outcome.IsLead():
			if failures > 0 {
				log.Info().Int("failures", failures).Msg("Lead status recovered")
			}
			failures = 0
		case res.Outcome.Retryable():
			failures++
			log.Warn().
				Int("failures", failures).
				Int("tolerance", l.policy.PollFailureTolerance).
				Err(res.Err()).
				Msg("Lead status check failed")
			if failures >= l.policy.PollFailureTolerance {
				return api.Result{Outcome: api.LeadLost, StatusCode: res.StatusCode, Message: res.Message}, true
			}
		default:
			log.Info().Str("outcome", res.Outcome.String()).Msg("Lead lost")
			return res, true
		}
	}
}

func (l *Loop) toggle(ctx context.Context) {
	state, err := l.toggler.Trigger(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.log.Warn().Err(err).Msg("Whisper toggle failed")
		l.notifier.Notify(Event{Kind: EventWhisperFailed, Err: err})
		return
	}
	l.log.Info().Str("whisper", state.String()).Msg("Whisper toggled")
	l.notifier.Notify(Event{Kind: EventWhisper, Whisper: state})
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	changed := l.state != s
	l.state = s
	l.mu.Unlock()
	if changed && l.onState != nil {
		l.onState(s)
	}
}

// sleep waits for d or until ctx is done. It reports false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
