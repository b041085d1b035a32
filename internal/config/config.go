package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"

	"github.com/TanaroSch/whisper-lead/internal/api"
	"github.com/TanaroSch/whisper-lead/internal/hotkey"
	"github.com/TanaroSch/whisper-lead/internal/lead"
	"github.com/TanaroSch/whisper-lead/internal/logging"
)

var (
	// ErrNotFound means no config file exists yet; run setup.
	ErrNotFound = errors.New("config file not found")
	// ErrCorrupt means the file exists but cannot be parsed; run setup.
	ErrCorrupt = errors.New("config file is corrupt")
	// ErrInvalid wraps validation failures.
	ErrInvalid = errors.New("invalid config")
	// ErrKeybind and ErrRetry tell which part of the config failed validation.
	ErrKeybind = errors.New("keybind")
	ErrRetry   = errors.New("retry")
)

const (
	DefaultLocalURL    = "http://192.168.1.10:28808"
	DefaultExternalURL = "https://whisper.ggkserver.com"

	// Environment overrides.
	EnvLocalURL    = "WHISPER_LOCAL_URL"
	EnvExternalURL = "WHISPER_EXTERNAL_URL"
	EnvConfigPath  = "WHISPER_CONFIG"
	EnvLogLevel    = "WHISPER_LOG_LEVEL"

	appDirName     = "388 Client"
	configFileName = "config.json"
)

// RetryConfig is the on-disk form of lead.Policy. Durations are milliseconds.
type RetryConfig struct {
	MaxAttempts          int `json:"max_attempts"`
	RetryDelayMs         int `json:"retry_delay_ms"`
	MaxRetryDelayMs      int `json:"max_retry_delay_ms"`
	PollIntervalMs       int `json:"poll_interval_ms"`
	PollFailureTolerance int `json:"poll_failure_tolerance"`
}

// Config holds the application configuration
type Config struct {
	Keybind           string      `json:"keybind"`
	AuthToken         string      `json:"auth_token"`
	TokenInKeyring    bool        `json:"token_in_keyring,omitempty"`
	LocalInstance     FlexBool    `json:"local_instance"`
	LocalServerURL    string      `json:"local_server_url,omitempty"`
	ExternalServerURL string      `json:"external_server_url,omitempty"`
	UseNotifications  bool        `json:"use_notifications"`
	PlaySounds        bool        `json:"play_sounds"`
	ToggleOnPress     bool        `json:"toggle_on_press"`
	Retry             RetryConfig `json:"retry"`
	LogLevel          string      `json:"log_level,omitempty"`

	// Non-JSON fields (runtime state)
	path  string
	token string
	kr    keyring.Keyring
	log   zerolog.Logger
}

// Option customizes Load and Default.
type Option func(*Config)

// WithKeyring replaces the OS keyring, mainly for tests.
func WithKeyring(kr keyring.Keyring) Option {
	return func(c *Config) { c.kr = kr }
}

// WithLogger sets the logger used for keyring and migration messages.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Config) { c.log = log }
}

// DefaultPath returns <home>/Documents/388 Client/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, "Documents", appDirName, configFileName), nil
}

// ResolvePath honours WHISPER_CONFIG before falling back to DefaultPath.
func ResolvePath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	return DefaultPath()
}

// Default returns a config with every default applied, bound to path.
func Default(path string, opts ...Option) *Config {
	p := lead.DefaultPolicy()
	c := &Config{
		LocalServerURL:    envOr(EnvLocalURL, DefaultLocalURL),
		ExternalServerURL: envOr(EnvExternalURL, DefaultExternalURL),
		UseNotifications:  true,
		PlaySounds:        true,
		ToggleOnPress:     true,
		Retry: RetryConfig{
			MaxAttempts:          p.MaxAttempts,
			RetryDelayMs:         int(p.RetryDelay / time.Millisecond),
			MaxRetryDelayMs:      int(p.MaxRetryDelay / time.Millisecond),
			PollIntervalMs:       int(p.PollInterval / time.Millisecond),
			PollFailureTolerance: p.PollFailureTolerance,
		},
		LogLevel: "info",
		path:     path,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads path. Keys missing from the file keep their defaults, so configs
// written by older clients (keybind, auth_token, local_instance only) load
// unchanged.
func Load(path string, opts ...Option) (*Config, error) {
	c := Default(path, opts...)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrCorrupt, path)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}

	if c.LocalServerURL == "" {
		c.LocalServerURL = envOr(EnvLocalURL, DefaultLocalURL)
	}
	if c.ExternalServerURL == "" {
		c.ExternalServerURL = envOr(EnvExternalURL, DefaultExternalURL)
	}
	if lvl := strings.TrimSpace(os.Getenv(EnvLogLevel)); lvl != "" {
		c.LogLevel = lvl
	}

	c.token = strings.TrimSpace(c.AuthToken)
	if c.TokenInKeyring {
		c.loadKeyringToken()
	}
	return c, nil
}

// Token returns the auth token, resolved from the keyring when stored there.
func (c *Config) Token() string {
	return c.token
}

// ServerURL picks the local or external server.
func (c *Config) ServerURL() string {
	if c.LocalInstance {
		return c.LocalServerURL
	}
	return c.ExternalServerURL
}

// ClientConfig builds the activation client settings.
func (c *Config) ClientConfig() api.ClientConfig {
	return api.ClientConfig{BaseURL: c.ServerURL(), Token: c.token}
}

// Policy converts the retry block to a lead.Policy.
func (c *Config) Policy() lead.Policy {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return lead.Policy{
		MaxAttempts:          c.Retry.MaxAttempts,
		RetryDelay:           ms(c.Retry.RetryDelayMs),
		MaxRetryDelay:        ms(c.Retry.MaxRetryDelayMs),
		PollInterval:         ms(c.Retry.PollIntervalMs),
		PollFailureTolerance: c.Retry.PollFailureTolerance,
	}
}

// Binding parses the configured keybind.
func (c *Config) Binding() (hotkey.Binding, error) {
	return hotkey.ParseBinding(c.Keybind)
}

// Validate checks the keybind, the token and the retry bounds. Every problem
// found is joined into the result, so callers can test each with errors.Is.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Keybind) == "" {
		errs = append(errs, fmt.Errorf("%w: %w: none configured", ErrInvalid, ErrKeybind))
	} else if _, err := c.Binding(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w: %w", ErrInvalid, ErrKeybind, err))
	}
	if c.token == "" {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, api.ErrTokenMissing))
	}
	if err := c.Policy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w: %w", ErrInvalid, ErrRetry, err))
	}
	return errors.Join(errs...)
}

// SetToken stores the token, preferring the OS keyring and falling back to the
// config file when no keyring is usable. It does not save the file.
func (c *Config) SetToken(token string) {
	token = strings.TrimSpace(token)
	c.token = token

	kr, err := c.keyring()
	if err == nil {
		err = kr.Set(keyring.Item{
			Key:         tokenKey,
			Data:        []byte(token),
			Label:       "388 Client auth token",
			Description: "Managed by whisper-lead",
		})
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("Keyring unavailable, storing auth token in config file")
		c.TokenInKeyring = false
		c.AuthToken = token
		return
	}
	c.log.Info().Msg("Auth token stored in keyring")
	c.TokenInKeyring = true
	c.AuthToken = ""
}

// Save writes the config to its path.
func (c *Config) Save() error {
	return c.SaveTo(c.path)
}

// SaveTo writes the config atomically: temp file in the same directory,
// fsync, rename.
func (c *Config) SaveTo(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory '%s': %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close config: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace config file '%s': %w", path, err)
	}
	c.path = path
	return nil
}

// Reset removes the keyring token (if any) and the config file, forcing setup
// on the next start.
func (c *Config) Reset() error {
	if c.TokenInKeyring {
		if kr, err := c.keyring(); err == nil {
			if err := kr.Remove(tokenKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
				c.log.Warn().Err(err).Msg("Failed to delete auth token from keyring")
			}
		}
	}
	c.token = ""
	return Delete(c.path)
}

// Delete removes the config file. A missing file is not an error.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file '%s': %w", path, err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
