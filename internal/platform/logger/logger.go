package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/config"
)

// New returns the process logger: colourised console output at debug level
// for development builds, JSON at info level otherwise.
func New(cfg config.Config) *slog.Logger {
	return NewWithWriter(os.Stderr, cfg.IsDevelopment())
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, development bool) *slog.Logger {
	if development {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Discard returns a logger that drops everything. Used as the default when no
// logger is injected.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
