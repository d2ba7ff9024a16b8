package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/meridianbank/pix-engine/internal/config"
)

// NewLogger builds the JSON slog.Logger shared by the engine, the
// consumers and the reconciliation scheduler. The level comes from
// configuration; unknown values fall back to info.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Source locations only at debug, they are noise in production
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	logger.Info("logger initialized", "level", level)

	return logger
}
