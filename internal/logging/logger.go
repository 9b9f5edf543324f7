package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joao-fontenele/orderflow-insights/internal/config"
)

// New builds a stdout logger from cfg, tagged with the binary's service name.
func New(cfg config.LoggingConfig, service string) *slog.Logger {
	return newLogger(os.Stdout, cfg).With("service", service)
}

func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.IncludeCaller,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
