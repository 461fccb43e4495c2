package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Watch/internal/adapters/http"
	"github.com/dkeye/Watch/internal/app"
	"github.com/dkeye/Watch/internal/app/orch"
	"github.com/dkeye/Watch/internal/config"
	"github.com/dkeye/Watch/internal/logging"
	"github.com/dkeye/Watch/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Console output until the config says otherwise.
	logging.Setup("info", true)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.Mode == "debug")

	dir, err := store.New(cfg.Directory)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.Directory.Driver).Msg("room directory unavailable, continuing without it")
		dir = store.Nop{}
	}
	defer dir.Close()

	rooms := app.NewRoomRegistry(
		app.WithIDLength(cfg.Room.IDLength),
		app.WithGracePeriod(cfg.Room.GracePeriod),
		app.WithSweepInterval(cfg.Room.SweepInterval),
		app.WithDirectory(dir),
	)
	relay := app.NewEventRelay(rooms, app.PolicyByName(cfg.Relay.Backpressure))
	manager := orch.NewConnectionManager(rooms, relay)

	r := router.SetupRouter(ctx, cfg, manager)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rooms.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Watch server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}
