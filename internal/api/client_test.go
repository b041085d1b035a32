package api

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fakeServer answers every request with the given status and body and counts calls.
func fakeServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		calls.Add(1)
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestActivateEmptyTokenMakesNoCall(t *testing.T) {
	srv, calls := fakeServer(t, nethttp.StatusOK, "ok")

	for _, token := range []string{"", "   "} {
		c := NewClient(ClientConfig{BaseURL: srv.URL, Token: token})
		res := c.Activate(context.Background())
		if res.Outcome != TokenMissing {
			t.Errorf("token %q: expected TokenMissing, got %v", token, res.Outcome)
		}
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("expected 0 HTTP calls with empty token, got %d", got)
	}
}

func TestActivateClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected Outcome
	}{
		{"ok", 200, "Activated as Team-Lead", Success},
		{"ok already", 200, "You are already team-lead", AlreadyLead},
		{"unauthorized", 401, "Unauthorized", TokenMissing},
		{"forbidden", 403, "", TokenMissing},
		{"invalid token body", 400, "Invalid token", TokenMissing},
		{"no token body", 400, "No token provided", TokenMissing},
		{"voice", 400, "User not in voice channel", NotInVoiceChannel},
		{"voice 412", 412, "Please join a voice channel first", NotInVoiceChannel},
		{"conflict", 409, "conflict", AlreadyLead},
		{"already lead 400", 400, "already lead for this team", AlreadyLead},
		{"server error", 500, "boom", ServerRejected},
		{"not found", 404, "", ServerRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := fakeServer(t, tt.status, tt.body)
			c := NewClient(ClientConfig{BaseURL: srv.URL + "/", Token: "tok"})
			res := c.Activate(context.Background())
			if res.Outcome != tt.expected {
				t.Errorf("expected %v, got %v (message %q)", tt.expected, res.Outcome, res.Message)
			}
			if res.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, res.StatusCode)
			}
			if calls.Load() != 1 {
				t.Errorf("expected exactly one call, got %d", calls.Load())
			}
		})
	}
}

func TestActivateSendsHeaders(t *testing.T) {
	var gotAuth, gotType, gotMethod, gotPath string
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotMethod = r.Method
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	NewClient(ClientConfig{BaseURL: srv.URL, Token: " secret "}).Activate(context.Background())

	if gotAuth != "secret" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "secret")
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotMethod != nethttp.MethodPost || gotPath != "/activate" {
		t.Errorf("request = %s %s, want POST /activate", gotMethod, gotPath)
	}
}

func TestActivateNetworkError(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {}))
	url := srv.URL
	srv.Close()

	res := NewClient(ClientConfig{BaseURL: url, Token: "tok"}).Activate(context.Background())
	if res.Outcome != NetworkError {
		t.Errorf("expected NetworkError for closed server, got %v", res.Outcome)
	}
	if res.StatusCode != 0 {
		t.Errorf("expected status 0, got %d", res.StatusCode)
	}
}

func TestActivateTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(ClientConfig{BaseURL: srv.URL, Token: "tok", Timeout: 50 * time.Millisecond})
	if res := c.Activate(context.Background()); res.Outcome != NetworkError {
		t.Errorf("expected NetworkError on timeout, got %v", res.Outcome)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected Outcome
	}{
		{"lead", 200, `{"is_lead": true}`, Success},
		{"not lead", 200, `{"is_lead": false}`, LeadLost},
		{"missing field", 200, `{}`, ServerRejected},
		{"garbage", 200, `<html>`, ServerRejected},
		{"unauthorized", 401, "", TokenMissing},
		{"server error", 503, "unavailable", ServerRejected},
		{"conflict is not lead", 409, "conflict", ServerRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := fakeServer(t, tt.status, tt.body)
			res := NewClient(ClientConfig{BaseURL: srv.URL, Token: "tok"}).Status(context.Background())
			if res.Outcome != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, res.Outcome)
			}
		})
	}
}

func TestTrigger(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected TriggerState
		wantErr  bool
	}{
		{"started", 200, "Whisper session STARTED", WhisperStarted, false},
		{"ended", 200, "session ended", WhisperEnded, false},
		{"left", 200, "you left early", WhisperEnded, false},
		{"other ok", 200, "noop", WhisperUnknown, false},
		{"error", 500, "boom", WhisperUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := fakeServer(t, tt.status, tt.body)
			state, err := NewClient(ClientConfig{BaseURL: srv.URL, Token: "tok"}).Trigger(context.Background())
			if state != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, state)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("unexpected error state: %v", err)
			}
		})
	}
}

func TestTriggerWithoutToken(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1"}).Trigger(context.Background())
	if !errors.Is(err, ErrTokenMissing) {
		t.Errorf("expected ErrTokenMissing, got %v", err)
	}
}

func TestDeactivate(t *testing.T) {
	srv, calls := fakeServer(t, nethttp.StatusOK, "bye")
	if err := NewClient(ClientConfig{BaseURL: srv.URL, Token: "tok"}).Deactivate(context.Background()); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one call, got %d", calls.Load())
	}
}

func TestDeactivateRetriesServerErrors(t *testing.T) {
	srv, calls := fakeServer(t, nethttp.StatusServiceUnavailable, "busy")
	err := NewClient(ClientConfig{BaseURL: srv.URL, Token: "tok"}).Deactivate(context.Background())
	if err == nil {
		t.Fatal("expected error after retries")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", got)
	}
}

func TestOutcomeHelpers(t *testing.T) {
	for _, o := range []Outcome{Success, AlreadyLead} {
		if !o.IsLead() || o.Retryable() {
			t.Errorf("%v: expected IsLead and not Retryable", o)
		}
	}
	for _, o := range []Outcome{NetworkError, ServerRejected} {
		if !o.Retryable() || o.IsLead() {
			t.Errorf("%v: expected Retryable and not IsLead", o)
		}
	}
	for _, o := range []Outcome{TokenMissing, NotInVoiceChannel, LeadLost} {
		if o.Retryable() || o.IsLead() {
			t.Errorf("%v: expected neither Retryable nor IsLead", o)
		}
		if o.Describe() == "" {
			t.Errorf("%v: empty description", o)
		}
	}
	if (Result{Outcome: Success}).Err() != nil {
		t.Error("success result should have nil Err")
	}
	err := Result{Outcome: NetworkError, Message: "refused"}.Err()
	var oe *OutcomeError
	if !errors.As(err, &oe) || oe.Result.Outcome != NetworkError {
		t.Errorf("expected OutcomeError wrapping NetworkError, got %v", err)
	}
}
