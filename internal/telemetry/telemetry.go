// Package telemetry wires up structured logging for the server and
// client sides of the relay.
package telemetry

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// New returns a logger scoped to component (e.g. "server",
// "connector", "forwarder"), at the given level. An empty or
// unparsable level falls back to info.
func New(component, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Str("component", component).Logger()
}
