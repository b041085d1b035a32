package api

// Outcome classifies the result of one call against the whisper server.
type Outcome int

const (
	// Success means the server accepted the call (activation granted or lead confirmed).
	Success Outcome = iota
	// TokenMissing means no token is configured or the server refused it.
	TokenMissing
	// NotInVoiceChannel means the user must join a voice channel first.
	NotInVoiceChannel
	// NetworkError covers transport failures: refused, reset, DNS, timeouts.
	NetworkError
	// ServerRejected is any other non-success response.
	ServerRejected
	// AlreadyLead means this client already holds the Team-Lead role.
	AlreadyLead
	// LeadLost means a status check reported that the role is gone.
	LeadLost
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case TokenMissing:
		return "token_missing"
	case NotInVoiceChannel:
		return "not_in_voice_channel"
	case NetworkError:
		return "network_error"
	case ServerRejected:
		return "server_rejected"
	case AlreadyLead:
		return "already_lead"
	case LeadLost:
		return "lead_lost"
	default:
		return "unknown"
	}
}

// IsLead reports whether the outcome confirms that we hold lead.
func (o Outcome) IsLead() bool {
	return o == Success || o == AlreadyLead
}

// Retryable reports whether another activation attempt may change the result.
func (o Outcome) Retryable() bool {
	return o == NetworkError || o == ServerRejected
}

// Describe returns the user-facing sentence for an outcome.
func (o Outcome) Describe() string {
	switch o {
	case Success:
		return "You are now Team-Lead."
	case TokenMissing:
		return "Auth token missing or rejected. Reset setup and paste a fresh token from the bot."
	case NotInVoiceChannel:
		return "Join a voice channel first, then press your keybind again."
	case NetworkError:
		return "Could not reach the whisper server."
	case ServerRejected:
		return "The whisper server rejected the request."
	case AlreadyLead:
		return "You already hold the Team-Lead role."
	case LeadLost:
		return "Server revoked your Team-Lead role."
	default:
		return "Unknown result."
	}
}

// Result is the classified response of one call.
type Result struct {
	Outcome    Outcome
	StatusCode int    // 0 when no response was received
	Message    string // server body or transport error, trimmed
}

// Err returns a nil-safe error view for logging.
func (r Result) Err() error {
	if r.Outcome.IsLead() {
		return nil
	}
	return &OutcomeError{Result: r}
}

// OutcomeError lets callers treat a failed Result as an error.
type OutcomeError struct {
	Result Result
}

func (e *OutcomeError) Error() string {
	if e.Result.Message == "" {
		return e.Result.Outcome.String()
	}
	return e.Result.Outcome.String() + ": " + e.Result.Message
}

// TriggerState is the whisper channel state reported by /trigger.
type TriggerState int

const (
	WhisperUnknown TriggerState = iota
	WhisperStarted
	WhisperEnded
)

func (s TriggerState) String() string {
	switch s {
	case WhisperStarted:
		return "started"
	case WhisperEnded:
		return "ended"
	default:
		return "unknown"
	}
}
