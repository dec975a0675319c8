// Package log centralises zerolog setup so every component logs through
// the same sink and field conventions.
package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. console selects the
// human-readable writer used by interactive CLI invocations; server
// processes (fundarb serve) should pass console=false for plain JSON lines.
func Init(level string, console bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// Component returns a logger pre-tagged with the emitting component name,
// the convention every package in this module follows for its package-level
// logger.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
