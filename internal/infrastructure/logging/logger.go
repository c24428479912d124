// Package logging builds the zerolog logger shared by the server and CLI.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger construction
type Options struct {
	Level   string
	Format  string // "json" or "console"
	Output  io.Writer
	Service string
}

// New creates a zerolog logger with a timestamp and service field
func New(opts Options) zerolog.Logger {
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	if opts.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	service := opts.Service
	if service == "" {
		service = "shopsense-backend"
	}

	return zerolog.New(output).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Component returns a child logger tagged with the component name
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// ParseLevel converts a level name to a zerolog level, defaulting to info.
// "warning" and "off" are accepted as aliases of "warn" and "disabled".
func ParseLevel(level string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	switch name {
	case "warning":
		name = "warn"
	case "off":
		name = "disabled"
	}

	parsed, err := zerolog.ParseLevel(name)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}
