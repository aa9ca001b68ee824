package main

import (
	"log/slog"

	"github.com/ishaan-arora-1/classroom-live/internal/cli"
	"github.com/ishaan-arora-1/classroom-live/internal/logging"
)

func main() {
	// Keep logging quiet by default so it does not fight the TUI.
	logging.Init(slog.LevelError)
	cli.Execute()
}
