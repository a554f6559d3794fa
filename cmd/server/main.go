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

	"go.uber.org/zap"

	"github.com/DoyleJ11/traffic-light-server/internal/config"
	"github.com/DoyleJ11/traffic-light-server/internal/controller"
	"github.com/DoyleJ11/traffic-light-server/internal/engine"
	"github.com/DoyleJ11/traffic-light-server/internal/httpapi"
	"github.com/DoyleJ11/traffic-light-server/internal/hub"
	"github.com/DoyleJ11/traffic-light-server/internal/journal"
	"github.com/DoyleJ11/traffic-light-server/internal/logging"
	"github.com/DoyleJ11/traffic-light-server/internal/patterns"
	"github.com/DoyleJ11/traffic-light-server/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}

	err = run(cfg, log)
	if err != nil {
		log.Error("server stopped", zap.Error(err))
	}
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The state machine outlives the signal so in-flight requests can finish
	// during shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	set := patterns.Default()
	if cfg.PatternsFile != "" {
		loaded, err := patterns.LoadFile(cfg.PatternsFile)
		if err != nil {
			return err
		}
		set = loaded
	}

	var store journal.Store
	if cfg.DatabaseURL != "" {
		pg, err := journal.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = pg.Close() }()
		store = pg
		log.Info("journal: postgres")
	} else {
		store = journal.NewMemory(cfg.HistorySize)
		log.Info("journal: memory", zap.Int("capacity", cfg.HistorySize))
	}
	// Deferred closes run in reverse: the controller stops recording before
	// the recorder flushes, and the recorder flushes before the database closes.
	rec := journal.NewRecorder(store, 0, log.Named("journal"))
	defer rec.Close()

	h := hub.NewHub(ctx, log.Named("hub"))
	ctrl := controller.New(ctx, engine.NewState(cfg.Durations, time.Now()),
		controller.WithLogger(log.Named("controller")),
		controller.WithBroadcaster(h),
		controller.WithRecorder(rec))
	defer ctrl.Close()

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Controller:  ctrl,
			Hub:         h,
			Journal:     store,
			Patterns:    set,
			Static:      web.Static(),
			Log:         log.Named("http"),
			CORSOrigins: cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("traffic light server listening",
			zap.String("addr", cfg.Addr),
			zap.Int64("red_ms", cfg.Durations.Red.Milliseconds()),
			zap.Int64("yellow_ms", cfg.Durations.Yellow.Milliseconds()),
			zap.Int64("green_ms", cfg.Durations.Green.Milliseconds()),
			zap.Strings("endpoints", []string{
				"GET /traffic-status", "POST /control-traffic", "POST /update-settings",
				"POST /emergency", "GET /health", "GET /traffic-stats", "GET /traffic-patterns",
				"GET /traffic-history", "GET /ws",
			}))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
		}
	case <-sigCtx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}

	log.Info("http server stopped")
	return nil
}
