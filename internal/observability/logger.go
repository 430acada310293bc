package observability

import (
	"log/slog"
	"os"
)

// NewLogger returns a JSON logger whose records carry trace_id/span_id when the
// context holds a span.
func NewLogger(env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler))
}
