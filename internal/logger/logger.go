// Package logger configures the structured logger shared by every anki-md
// component.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the process-wide logger. Components take a *log.Logger option
// and fall back to this one.
var Logger = newLogger(os.Stderr, log.InfoLevel)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{Prefix: "anki-md"})
	l.SetLevel(level)
	return l
}

// Configure replaces Logger using the given level name and optional log
// file. An empty level falls back to ANKIMD_LOG_LEVEL, then to info.
func Configure(level string, logFile string) error {
	if level == "" {
		level = os.Getenv("ANKIMD_LOG_LEVEL")
	}

	var output io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		output = f
	}

	Logger = newLogger(output, ParseLevel(level))
	return nil
}

// ParseLevel maps a level name to a log.Level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *log.Logger {
	return newLogger(io.Discard, log.FatalLevel)
}
