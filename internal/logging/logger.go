// Package logging provides the structured logger shared by every component.
//
// The tray build runs without a console (-H=windowsgui), so log output is
// duplicated into a file next to the configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// FileName is the name of the log file written alongside config.json.
const FileName = "whisperlead.log"

const timeFormat = "15:04:05"

// Logger wraps zerolog with an optional log file.
type Logger struct {
	zlog zerolog.Logger
	file *os.File
}

// New creates a logger writing human-readable output to stderr and, when dir
// is not empty, plain JSON lines to dir/whisperlead.log.
func New(dir string, level string) (*Logger, error) {
	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeFormat}}

	var file *os.File
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory '%s': %w", dir, err)
		}
		f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}

	zlog := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()

	return &Logger{zlog: zlog, file: file}, nil
}

// NewConsole creates a stderr-only logger. Used before the config directory is known.
func NewConsole() *Logger {
	return &Logger{
		zlog: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeFormat}).
			With().
			Timestamp().
			Logger(),
	}
}

// Nop returns a logger that discards everything. Tests use it.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// Zerolog returns the underlying logger so components can derive children.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ParseLevel maps a config/env level string to a zerolog level. Unknown values mean info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// RetryLogger adapts a zerolog.Logger to retryablehttp.LeveledLogger.
type RetryLogger struct {
	Log zerolog.Logger
}

func (r RetryLogger) Error(msg string, keysAndValues ...interface{}) {
	r.Log.Error().Fields(keysAndValues).Msg(msg)
}

func (r RetryLogger) Info(msg string, keysAndValues ...interface{}) {
	r.Log.Debug().Fields(keysAndValues).Msg(msg)
}

func (r RetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.Log.Trace().Fields(keysAndValues).Msg(msg)
}

func (r RetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	r.Log.Warn().Fields(keysAndValues).Msg(msg)
}
