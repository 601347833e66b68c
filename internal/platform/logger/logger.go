package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/lingo-api/internal/config"
)

// Setup initializes and configures the application's logging system based on
// the provided configuration. It creates a structured JSON logger with the
// appropriate log level, sets it as the process default, and returns it.
//
// An unrecognized log level is not an error: Setup warns on stderr and falls
// back to info so a typo in deployment config cannot take the service down.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
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

		// The configured logger does not exist yet, so warn through a
		// throwaway text handler on stderr.
		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.LogLevel,
			"default_level", "info")
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	log := slog.New(handler)

	// Make the configured logger the default so package-level slog calls
	// and code without an explicit logger still emit structured JSON.
	slog.SetDefault(log)

	return log, nil
}
