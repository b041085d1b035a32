// Package api talks to the whisper server: activation, lead status, whisper
// toggle and deactivation. Every call is classified into an Outcome; retry
// policy is left to the caller.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/TanaroSch/whisper-lead/internal/logging"
)

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 10 * time.Second
	// DeactivateTimeout bounds the best-effort deactivation sent on quit.
	DeactivateTimeout = 3 * time.Second

	maxBodyBytes = 4096
)

// ErrTokenMissing is returned by calls that need a token when none is configured.
var ErrTokenMissing = errors.New("auth token is not configured")

// ClientConfig holds what a Client needs from the application config.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client is the whisper server client.
type Client struct {
	httpClient *nethttp.Client
	baseURL    string
	token      string
	log        zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *nethttp.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a client for cfg.
func NewClient(cfg ClientConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		httpClient: &nethttp.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		token:      strings.TrimSpace(cfg.Token),
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server base URL in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Activate asks the server to grant the Team-Lead role.
func (c *Client) Activate(ctx context.Context) Result {
	if c.token == "" {
		c.log.Warn().Msg("Activation skipped: no auth token configured")
		return Result{Outcome: TokenMissing, Message: ErrTokenMissing.Error()}
	}

	status, body, err := c.do(ctx, nethttp.MethodPost, "/activate")
	if err != nil {
		c.log.Warn().Err(err).Msg("Activation request failed")
		return Result{Outcome: NetworkError, Message: err.Error()}
	}

	res := Result{Outcome: classify(status, body), StatusCode: status, Message: body}
	c.log.Info().Int("status", status).Str("outcome", res.Outcome.String()).Msg("Activation response")
	return res
}

// Status asks the server whether we still hold the Team-Lead role.
func (c *Client) Status(ctx context.Context) Result {
	if c.token == "" {
		return Result{Outcome: TokenMissing, Message: ErrTokenMissing.Error()}
	}

	status, body, err := c.do(ctx, nethttp.MethodGet, "/status")
	if err != nil {
		c.log.Debug().Err(err).Msg("Status request failed")
		return Result{Outcome: NetworkError, Message: err.Error()}
	}

	if status < 200 || status > 299 {
		outcome := classify(status, body)
		if outcome.IsLead() {
			outcome = ServerRejected
		}
		return Result{Outcome: outcome, StatusCode: status, Message: body}
	}

	var payload struct {
		IsLead *bool `json:"is_lead"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil || payload.IsLead == nil {
		c.log.Warn().Str("body", body).Msg("Status response not understood")
		return Result{Outcome: ServerRejected, StatusCode: status, Message: "malformed status response"}
	}
	if !*payload.IsLead {
		return Result{Outcome: LeadLost, StatusCode: status, Message: body}
	}
	return Result{Outcome: Success, StatusCode: status, Message: body}
}

// Trigger toggles the whisper session (enter or leave the leader channel).
func (c *Client) Trigger(ctx context.Context) (TriggerState, error) {
	if c.token == "" {
		return WhisperUnknown, ErrTokenMissing
	}

	status, body, err := c.do(ctx, nethttp.MethodPost, "/trigger")
	if err != nil {
		return WhisperUnknown, fmt.Errorf("trigger request failed: %w", err)
	}
	text := strings.ToLower(body)
	c.log.Info().Int("status", status).Str("body", text).Msg("Trigger response")

	switch {
	case strings.Contains(text, "started"):
		return WhisperStarted, nil
	case strings.Contains(text, "ended"), strings.Contains(text, "left"):
		return WhisperEnded, nil
	}
	if status < 200 || status > 299 {
		return WhisperUnknown, &OutcomeError{Result: Result{Outcome: classify(status, body), StatusCode: status, Message: body}}
	}
	return WhisperUnknown, nil
}

// Deactivate tells the server we are going away. Best effort: a couple of
// quick retries within DeactivateTimeout.
func (c *Client) Deactivate(ctx context.Context) error {
	if c.token == "" {
		return ErrTokenMissing
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = c.httpClient
	rc.RetryMax = 2
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 500 * time.Millisecond
	rc.Logger = logging.RetryLogger{Log: c.log}

	ctx, cancel := context.WithTimeout(ctx, DeactivateTimeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.baseURL+"/deactivate", nil)
	if err != nil {
		return fmt.Errorf("failed to build deactivate request: %w", err)
	}
	c.setHeaders(req.Header)

	resp, err := rc.Do(req)
	if err != nil {
		return fmt.Errorf("could not send deactivation signal: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("deactivation rejected with status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string) (int, string, error) {
	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return 0, "", fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, "", fmt.Errorf("failed to read response body: %w", err)
	}
	body := strings.TrimSpace(string(data))
	if body == "" {
		body = strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprintf("%d", resp.StatusCode)))
	}
	return resp.StatusCode, body, nil
}

func (c *Client) setHeaders(h nethttp.Header) {
	h.Set("Authorization", c.token)
	h.Set("Content-Type", "application/json")
}

// classify maps an HTTP response to an Outcome. The server reports token,
// voice-channel and lead conflicts in the body text, so failures are matched
// on the message before falling back to the status class.
func classify(status int, body string) Outcome {
	text := strings.ToLower(body)
	alreadyLead := strings.Contains(text, "already") && strings.Contains(text, "lead")

	if status >= 200 && status <= 299 {
		if alreadyLead {
			return AlreadyLead
		}
		return Success
	}

	switch {
	case status == nethttp.StatusUnauthorized, status == nethttp.StatusForbidden:
		return TokenMissing
	case strings.Contains(text, "token") &&
		(strings.Contains(text, "missing") || strings.Contains(text, "invalid") ||
			strings.Contains(text, "no token") || strings.Contains(text, "unauthorized")):
		return TokenMissing
	case strings.Contains(text, "voice channel"), strings.Contains(text, "not in voice"):
		return NotInVoiceChannel
	case status == nethttp.StatusConflict, alreadyLead:
		return AlreadyLead
	default:
		return ServerRejected
	}
}
