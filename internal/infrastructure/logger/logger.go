package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "chat-api"

var (
	globalLogger zerolog.Logger
	once         sync.Once
)

// GetLogger returns the process-wide logger. Before New has run it falls
// back to console output at info level, which keeps early infrastructure
// code (database connect, migrations) loggable during startup.
func GetLogger() zerolog.Logger {
	once.Do(func() {
		globalLogger = build(zerolog.InfoLevel, "console")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})
	return globalLogger
}

// New constructs the service logger from level and format configuration
// and installs it as the global logger.
func New(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level %q: %w", level, err)
	}

	format = strings.ToLower(format)
	switch format {
	case "json", "console":
	default:
		return zerolog.Logger{}, fmt.Errorf("unsupported log format %q", format)
	}

	zerolog.SetGlobalLevel(lvl)
	globalLogger = build(lvl, format)
	return globalLogger, nil
}

func build(lvl zerolog.Level, format string) zerolog.Logger {
	var out zerolog.Logger
	if format == "console" {
		out = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		out = zerolog.New(os.Stdout)
	}
	return out.With().Timestamp().Str("service", serviceName).Logger().Level(lvl)
}
