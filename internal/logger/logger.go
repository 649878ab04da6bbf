package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with service-wide context fields.
type Logger struct {
	zerolog.Logger
}

// Config controls logger construction.
type Config struct {
	Level       string // debug | info | warn | error (default info)
	Environment string // "development" enables console output
	ServiceName string
	Version     string
}

// New creates a Logger writing JSON to stderr (or pretty console output in
// development) with service metadata attached to every event.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)

	var out = zerolog.New(os.Stderr)
	if cfg.Environment == "development" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	log := out.Level(level).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("version", cfg.Version).
		Logger()

	return &Logger{Logger: log}
}

func parseLevel(raw string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
