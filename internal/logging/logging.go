package logging

import (
	"io"
	"log/slog"
	"os"
)

// DebugEnv is the environment variable that forces debug logging when
// set to a truthy value. Absence implies quiet (warn-level) output.
const DebugEnv = "TTGRAB_DEBUG"

// Setup builds the application logger. Verbosity is owned by the CLI
// dispatcher: the returned logger is passed explicitly into every
// component instead of living in process-global state.
func Setup(debug bool, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	level := slog.LevelWarn
	if debug || envDebug() {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// Null returns a logger that discards all output. Used in tests and as
// a fallback when no logger is injected.
func Null() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func envDebug() bool {
	switch os.Getenv(DebugEnv) {
	case "1", "true", "yes":
		return true
	}
	return false
}
