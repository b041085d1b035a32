package lead

import (
	"fmt"
	"time"
)

// Policy bounds the effort spent acquiring and supervising lead.
type Policy struct {
	// MaxAttempts is the total number of activation calls per trigger (1..10).
	MaxAttempts int
	// RetryDelay is the wait after the first failed attempt. It doubles per
	// attempt up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	// PollInterval is the lead status cadence while Leading.
	PollInterval time.Duration
	// PollFailureTolerance is how many consecutive failed status checks are
	// absorbed before lead is considered lost (1..20).
	PollFailureTolerance int
}

// Bounds enforced by Validate.
const (
	MinAttempts          = 1
	MaxAttemptsLimit     = 10
	MaxFailureTolerance  = 20
	MaxRetryDelayLimit   = 5 * time.Minute
	MaxPollIntervalLimit = 10 * time.Minute
)

// DefaultPolicy returns the shipped defaults. The 15 s poll cadence matches
// what the whisper server was built around.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:          4,
		RetryDelay:           1 * time.Second,
		MaxRetryDelay:        8 * time.Second,
		PollInterval:         15 * time.Second,
		PollFailureTolerance: 3,
	}
}

// Validate reports the first out-of-range field.
func (p Policy) Validate() error {
	if p.MaxAttempts < MinAttempts || p.MaxAttempts > MaxAttemptsLimit {
		return fmt.Errorf("max_attempts must be between %d and %d, got %d", MinAttempts, MaxAttemptsLimit, p.MaxAttempts)
	}
	if p.RetryDelay < 0 || p.RetryDelay > MaxRetryDelayLimit {
		return fmt.Errorf("retry_delay must be between 0 and %s, got %s", MaxRetryDelayLimit, p.RetryDelay)
	}
	if p.MaxRetryDelay < p.RetryDelay || p.MaxRetryDelay > MaxRetryDelayLimit {
		return fmt.Errorf("max_retry_delay must be between retry_delay and %s, got %s", MaxRetryDelayLimit, p.MaxRetryDelay)
	}
	if p.PollInterval <= 0 || p.PollInterval > MaxPollIntervalLimit {
		return fmt.Errorf("poll_interval must be between 1ms and %s, got %s", MaxPollIntervalLimit, p.PollInterval)
	}
	if p.PollFailureTolerance < 1 || p.PollFailureTolerance > MaxFailureTolerance {
		return fmt.Errorf("poll_failure_tolerance must be between 1 and %d, got %d", MaxFailureTolerance, p.PollFailureTolerance)
	}
	return nil
}

// Backoff returns the wait after the given failed attempt (1-based):
// min(MaxRetryDelay, RetryDelay * 2^(attempt-1)).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt <= 0 || p.RetryDelay <= 0 {
		return 0
	}
	delay := p.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxRetryDelay {
			return p.MaxRetryDelay
		}
	}
	if delay > p.MaxRetryDelay {
		return p.MaxRetryDelay
	}
	return delay
}
