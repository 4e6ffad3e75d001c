package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns the service logger. Development gets a console writer, every
// other environment writes JSON lines. An unknown level falls back to info.
func New(environment, level string) zerolog.Logger {
	return newWithWriter(os.Stdout, environment, level)
}

func newWithWriter(w io.Writer, environment, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	out := w
	if strings.EqualFold(environment, "development") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "fleet-analytics").Logger()
}
