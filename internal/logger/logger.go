package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/storylines/internal/config"
)

// Setup builds the logger for cfg on stdout and installs it as the slog default.
func Setup(cfg *config.Config) *slog.Logger {
	logger := New(cfg, os.Stdout)
	slog.SetDefault(logger)
	return logger
}

// New returns a JSON logger in production and a text logger otherwise, writing to w.
// Processes that speak a protocol on stdout pass os.Stderr.
func New(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithRequestID tags logger with the request id. An empty id leaves it unchanged.
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	if requestID == "" {
		return logger
	}
	return logger.With("request_id", requestID)
}
