package lead

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/TanaroSch/whisper-lead/internal/api"
)

// scripted returns outcomes from a list; the last entry repeats.
type scripted struct {
	mu            sync.Mutex
	activate      []api.Outcome
	status        []api.Outcome
	activateCalls int
	statusCalls   int
	block         chan struct{} // when set, Activate waits on it
}

func (s *scripted) Activate(ctx context.Context) api.Result {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activateCalls++
	return api.Result{Outcome: pick(s.activate, s.activateCalls)}
}

func (s *scripted) Status(ctx context.Context) api.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCalls++
	return api.Result{Outcome: pick(s.status, s.statusCalls)}
}

func (s *scripted) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activateCalls, s.statusCalls
}

func pick(list []api.Outcome, n int) api.Outcome {
	if len(list) == 0 {
		return api.Success
	}
	if n > len(list) {
		return list[len(list)-1]
	}
	return list[n-1]
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:          4,
		RetryDelay:           time.Millisecond,
		MaxRetryDelay:        4 * time.Millisecond,
		PollInterval:         time.Millisecond,
		PollFailureTolerance: 3,
	}
}

func TestNetworkErrorsExhaustAttempts(t *testing.T) {
	for _, max := range []int{1, 3, 5} {
		client := &scripted{activate: []api.Outcome{api.NetworkError}}
		rec := &recorder{}
		p := fastPolicy()
		p.MaxAttempts = max

		s := New(client, rec, nil, p).Run(context.Background())

		activations, polls := client.calls()
		if activations != max {
			t.Errorf("max=%d: expected exactly %d activation calls, got %d", max, max, activations)
		}
		if polls != 0 {
			t.Errorf("max=%d: expected no status polls, got %d", max, polls)
		}
		if s.End != EndFailed || s.IsLead {
			t.Errorf("max=%d: expected failed session, got end=%v lead=%v", max, s.End, s.IsLead)
		}
		if rec.count(EventFailed) != 1 || rec.count(EventLeading) != 0 {
			t.Errorf("max=%d: expected one failed event and no leading event, got %+v", max, rec.events)
		}
	}
}

func TestExhaustedAttemptsLogOutcomeError(t *testing.T) {
	var buf bytes.Buffer
	client := &scripted{activate: []api.Outcome{api.NetworkError}}
	New(client, &recorder{}, nil, fastPolicy(), WithLogger(zerolog.New(&buf))).Run(context.Background())

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, "Activation attempts exhausted") {
			if !strings.Contains(line, `"error":"network_error"`) {
				t.Errorf("exhausted log line lacks the outcome error: %s", line)
			}
			return
		}
	}
	t.Errorf("no exhausted log line in %q", buf.String())
}

func TestServerRejectedIsRetried(t *testing.T) {
	client := &scripted{
		activate: []api.Outcome{api.ServerRejected, api.NetworkError, api.ServerRejected, api.ServerRejected},
	}
	rec := &recorder{}
	s := New(client, rec, nil, fastPolicy()).Run(context.Background())
	if activations, _ := client.calls(); activations != 4 {
		t.Errorf("expected 4 attempts, got %d", activations)
	}
	if s.End != EndFailed || s.LastOutcome != api.ServerRejected {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestNonRetryableFailsImmediately(t *testing.T) {
	for _, outcome := range []api.Outcome{api.TokenMissing, api.NotInVoiceChannel} {
		client := &scripted{activate: []api.Outcome{outcome}}
		rec := &recorder{}
		s := New(client, rec, nil, fastPolicy()).Run(context.Background())

		if activations, _ := client.calls(); activations != 1 {
			t.Errorf("%v: expected a single attempt, got %d", outcome, activations)
		}
		if s.End != EndFailed {
			t.Errorf("%v: expected EndFailed, got %v", outcome, s.End)
		}
		if rec.count(EventFailed) != 1 {
			t.Errorf("%v: expected one failed notification", outcome)
		}
		if got := rec.events[0].Result.Outcome; got != outcome {
			t.Errorf("notification carries %v, want %v", got, outcome)
		}
	}
}

func TestSuccessAtAttemptKStopsAcquisition(t *testing.T) {
	for k := 1; k <= 4; k++ {
		for _, win := range []api.Outcome{api.Success, api.AlreadyLead} {
			script := make([]api.Outcome, 0, k)
			for i := 1; i < k; i++ {
				script = append(script, api.NetworkError)
			}
			script = append(script, win)
			client := &scripted{activate: script, status: []api.Outcome{api.LeadLost}}
			rec := &recorder{}

			s := New(client, rec, nil, fastPolicy()).Run(context.Background())

			activations, _ := client.calls()
			if activations != k {
				t.Errorf("k=%d %v: expected %d activation calls, got %d", k, win, k, activations)
			}
			if s.Attempts != k {
				t.Errorf("k=%d: session attempts %d", k, s.Attempts)
			}
			if rec.count(EventLeading) != 1 {
				t.Errorf("k=%d: expected one leading event", k)
			}
			if s.End != EndLeadLost {
				t.Errorf("k=%d: expected lead lost after status false, got %v", k, s.End)
			}
		}
	}
}

func TestLeadLostNotifiesOnce(t *testing.T) {
	client := &scripted{
		activate: []api.Outcome{api.Success},
		status:   []api.Outcome{api.Success, api.Success, api.LeadLost},
	}
	rec := &recorder{}
	var states []State
	var mu sync.Mutex
	loop := New(client, rec, nil, fastPolicy(), WithStateHook(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}))

	s := loop.Run(context.Background())

	if s.End != EndLeadLost {
		t.Fatalf("expected EndLeadLost, got %v", s.End)
	}
	if _, polls := client.calls(); polls != 3 {
		t.Errorf("expected 3 polls, got %d", polls)
	}
	if rec.count(EventLeadLost) != 1 {
		t.Errorf("expected exactly one lead-lost notification, got %d", rec.count(EventLeadLost))
	}
	if loop.State() != Idle {
		t.Errorf("expected Idle after session, got %v", loop.State())
	}
	mu.Lock()
	defer mu.Unlock()
	want := []State{Acquiring, Leading, Idle}
	if len(states) != len(want) {
		t.Fatalf("state sequence %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("state[%d] = %v, want %v", i, states[i], want[i])
		}
	}
}

func TestPollFailureTolerance(t *testing.T) {
	// Two failures then recovery must not end the session; three in a row must.
	client := &scripted{
		activate: []api.Outcome{api.Success},
		status: []api.Outcome{
			api.NetworkError, api.NetworkError, api.Success,
			api.NetworkError, api.ServerRejected, api.NetworkError,
		},
	}
	rec := &recorder{}
	s := New(client, rec, nil, fastPolicy()).Run(context.Background())

	if _, polls := client.calls(); polls != 6 {
		t.Errorf("expected 6 polls, got %d", polls)
	}
	if s.End != EndLeadLost {
		t.Errorf("expected EndLeadLost, got %v", s.End)
	}
	if rec.count(EventLeadLost) != 1 {
		t.Errorf("expected one lead-lost notification")
	}
	rec.mu.Lock()
	last := rec.events[len(rec.events)-1]
	rec.mu.Unlock()
	if last.Result.Outcome != api.LeadLost {
		t.Errorf("tolerance exhaustion should be reported as LeadLost, got %v", last.Result.Outcome)
	}
}

func TestCancelInterruptsWaits(t *testing.T) {
	client := &scripted{activate: []api.Outcome{api.NetworkError}}
	rec := &recorder{}
	p := fastPolicy()
	p.RetryDelay = time.Hour
	p.MaxRetryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Session, 1)
	go func() { done <- New(client, rec, nil, p).Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case s := <-done:
		if s.End != EndCancelled {
			t.Errorf("expected EndCancelled, got %v", s.End)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return promptly after cancel")
	}
	if len(rec.events) != 0 {
		t.Errorf("cancelled session must not notify, got %+v", rec.events)
	}
}

func TestCancelWhileLeading(t *testing.T) {
	client := &scripted{activate: []api.Outcome{api.Success}, status: []api.Outcome{api.Success}}
	rec := &recorder{}
	p := fastPolicy()
	p.PollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	loop := New(client, rec, nil, p)
	if !loop.Start(ctx) {
		t.Fatal("Start refused on an open gate")
	}
	deadline := time.Now().Add(2 * time.Second)
	for loop.State() != Leading && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	loop.Wait()

	if rec.count(EventLeadLost) != 0 {
		t.Error("shutdown must not be reported as lead lost")
	}
	if loop.State() != Idle {
		t.Errorf("expected Idle, got %v", loop.State())
	}
}

func TestOverlappingPressesIgnored(t *testing.T) {
	client := &scripted{
		activate: []api.Outcome{api.TokenMissing},
		block:    make(chan struct{}),
	}
	rec := &recorder{}
	gate := &Gate{}
	loop := New(client, rec, gate, fastPolicy())
	ctx := context.Background()

	if got := loop.Press(ctx); got != PressStarted {
		t.Fatalf("first press: expected started, got %v", got)
	}
	for i := 0; i < 5; i++ {
		if got := loop.Press(ctx); got != PressIgnored {
			t.Errorf("overlapping press %d: expected ignored, got %v", i, got)
		}
	}
	if !gate.Active() {
		t.Error("gate should be held while the session runs")
	}

	close(client.block)
	loop.Wait()

	if activations, _ := client.calls(); activations != 1 {
		t.Errorf("expected exactly one activation call, got %d", activations)
	}
	if gate.Active() {
		t.Error("gate should be released after the session")
	}
	if rec.count(EventFailed) != 1 {
		t.Errorf("expected one failed notification, got %d", rec.count(EventFailed))
	}
}

type fakeToggler struct {
	calls atomic.Int32
	state api.TriggerState
	err   error
}

func (f *fakeToggler) Trigger(ctx context.Context) (api.TriggerState, error) {
	f.calls.Add(1)
	return f.state, f.err
}

func TestPressWhileLeadingToggles(t *testing.T) {
	client := &scripted{activate: []api.Outcome{api.Success}, status: []api.Outcome{api.Success}}
	rec := &recorder{}
	toggler := &fakeToggler{state: api.WhisperStarted}
	p := fastPolicy()
	p.PollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := New(client, rec, nil, p, WithToggler(toggler))

	if loop.Press(ctx) != PressStarted {
		t.Fatal("expected first press to start a session")
	}
	deadline := time.Now().Add(2 * time.Second)
	for loop.State() != Leading && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := loop.Press(ctx); got != PressToggled {
		t.Fatalf("press while leading: expected toggled, got %v", got)
	}
	deadline = time.Now().Add(2 * time.Second)
	for rec.count(EventWhisper) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if activations, _ := client.calls(); activations != 1 {
		t.Errorf("toggle must not re-activate, got %d activation calls", activations)
	}
	if toggler.calls.Load() != 1 {
		t.Errorf("expected one trigger call, got %d", toggler.calls.Load())
	}
	cancel()
	loop.Wait()
}

func TestToggleFailureNotifies(t *testing.T) {
	rec := &recorder{}
	loop := New(&scripted{}, rec, nil, fastPolicy(), WithToggler(&fakeToggler{err: errors.New("refused")}))
	loop.toggle(context.Background())
	if rec.count(EventWhisperFailed) != 1 {
		t.Errorf("expected whisper failure notification")
	}
}

func TestPressWithoutTogglerWhileLeadingIgnored(t *testing.T) {
	client := &scripted{activate: []api.Outcome{api.Success}, status: []api.Outcome{api.Success}}
	p := fastPolicy()
	p.PollInterval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	loop := New(client, nil, nil, p)

	loop.Press(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for loop.State() != Leading && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := loop.Press(ctx); got != PressIgnored {
		t.Errorf("expected ignored without toggler, got %v", got)
	}
	cancel()
	loop.Wait()
}

func TestGate(t *testing.T) {
	var g Gate
	if !g.TryAcquire() {
		t.Fatal("zero gate should be open")
	}
	if g.TryAcquire() {
		t.Fatal("second acquire should fail")
	}
	g.Release()
	if g.Active() {
		t.Fatal("released gate reports active")
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Errorf("expected one winner, got %d", wins.Load())
	}
}
