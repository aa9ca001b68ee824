package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/ishaan-arora-1/classroom-live/internal/config"
	"github.com/ishaan-arora-1/classroom-live/internal/logging"
	"github.com/ishaan-arora-1/classroom-live/internal/relay"
	"github.com/ishaan-arora-1/classroom-live/internal/server"
)

// Health Check endpoint
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Classroom relay is healthy."))
}

func main() {
	logging.Init(slog.LevelInfo)

	cfg, err := config.LoadRelay()
	if err != nil {
		slog.Error("invalid relay configuration", "err", err)
		os.Exit(1)
	}

	// Seat snapshots live in memory unless a Redis address is
	// configured, in which case rooms survive relay restarts.
	var store relay.SnapshotStore = relay.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rs, err := relay.NewRedisStore(context.Background(), cfg.RedisAddr)
		if err != nil {
			slog.Error("redis unreachable", "addr", cfg.RedisAddr, "err", err)
			os.Exit(1)
		}
		store = rs
		slog.Info("using redis snapshot store", "addr", cfg.RedisAddr)
	}

	hub := relay.NewHub(cfg.SeatRows, cfg.SeatCols, store)
	go hub.Run()

	http.HandleFunc("/health", healthCheckHandler)
	http.HandleFunc("/ws", server.ServeWs(hub))

	addr := fmt.Sprintf(":%s", cfg.Port)
	slog.Info("starting classroom relay", "addr", addr, "rows", cfg.SeatRows, "cols", cfg.SeatCols)

	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("relay stopped", "err", err)
		os.Exit(1)
	}
}
