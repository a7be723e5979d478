// Package logging wires up the engine's structured logger. The teacher
// logs with bare fmt/log; this package generalizes that into zerolog,
// the one ambient dependency with no teacher precedent (see DESIGN.md).
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a console-writer zerolog.Logger at the given level name
// ("debug", "info", "warn", "error"), defaulting to info on an unknown
// value.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// ForRun returns a child logger with the run_id field bound, so every
// subsequent log line from that run carries its correlation id.
func ForRun(base zerolog.Logger, runID string) zerolog.Logger {
	return base.With().Str("run_id", runID).Logger()
}

// ForTask returns a child logger with task_id and agent_id bound on top of
// a run-scoped logger.
func ForTask(base zerolog.Logger, taskID, agentID string) zerolog.Logger {
	return base.With().Str("task_id", taskID).Str("agent_id", agentID).Logger()
}
