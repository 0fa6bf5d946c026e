// Command modaltron runs the trail-game server: it loads process
// configuration, wires the room repository through the lobby and
// per-room controllers, and serves the resulting WebSocket/HTTP edge.
// Grounded on the teacher's cmd/gameserver/main.go for the overall
// wiring shape (config -> server -> Start), generalized to supervise its
// background goroutines with golang.org/x/sync/errgroup instead of bare
// go func(){}() calls, and to shut down on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bokeefe123/modaltron/internal/config"
	"github.com/bokeefe123/modaltron/internal/controller"
	"github.com/bokeefe123/modaltron/internal/game"
	"github.com/bokeefe123/modaltron/internal/room"
	"github.com/bokeefe123/modaltron/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "modaltron: config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	if cfg.TickRateOverride > 0 {
		game.SetTickRate(cfg.TickRateOverride)
	}

	repo := room.NewRepository()
	lobby := controller.NewRoomsController(repo)
	srv := transport.NewServer(repo, lobby, log, transport.Config{
		CORSOrigins: cfg.CORSOrigins,
		EnableCORS:  cfg.EnableCORS,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: srv.Router()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		return statsSweep(groupCtx, repo, log)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

// statsSweep periodically logs room/player counts, generalizing the
// teacher's 5-minute stats ticker (cmd/gameserver/main.go's Start) into a
// cancellable goroutine supervised by the errgroup.
func statsSweep(ctx context.Context, repo *room.Repository, log *slog.Logger) error {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rooms := repo.List()
			players := 0
			for _, r := range rooms {
				players += len(r.Players())
			}
			if len(rooms) > 0 || players > 0 {
				log.Info("stats", "rooms", len(rooms), "players", players)
			}
		}
	}
}

func newLogger(cfg *config.ServerConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
