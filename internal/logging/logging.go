package logging

import (
	"log/slog"
	"os"
)

// Init configures the default slog logger from the LOG_LEVEL env var.
// The client defaults to errors only so log lines never tear the TUI;
// the relay passes its own default.
func Init(defaultLevel slog.Level) {
	level := defaultLevel

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error", "production", "prod":
			level = slog.LevelError
		}
	}

	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}
