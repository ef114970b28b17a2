package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coachledger/internal/adapters/http/api"
	"coachledger/internal/adapters/ledger"
	"coachledger/internal/adapters/transcript"
	app "coachledger/internal/app"
	"coachledger/internal/config"
	"coachledger/pkg/logger"
	"coachledger/pkg/retry"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	statsInterval     = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	roster, err := config.LoadRoster(cfg.RosterPath)
	if err != nil {
		log.Error(ctx, "failed to load roster",
			logger.String("path", cfg.RosterPath), logger.Error(err))
		return
	}
	log.Info(ctx, "roster loaded",
		logger.String("path", cfg.RosterPath),
		logger.Int("coaches", len(roster.Coaches)),
	)

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithRoster(roster),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithFingerprintCacheSize(cfg.FingerprintCacheSize),
		app.WithBatchSize(cfg.LedgerBatchSize),
		app.WithFlushInterval(time.Duration(cfg.LedgerFlushMS) * time.Millisecond),
		app.WithRawView(cfg.WriteRawView),
		app.WithRetryPolicy(retry.Policy{
			Attempts:       cfg.RetryAttempts,
			InitialBackoff: time.Duration(cfg.RetryBackoffMS) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.RetryMaxBackoffMS) * time.Millisecond,
		}),
	}

	if cfg.LedgerBackend == "sqlite" {
		store, err := ledger.OpenSQLite(cfg.LedgerPath)
		if err != nil {
			log.Error(ctx, "failed to open ledger database",
				logger.String("path", cfg.LedgerPath), logger.Error(err))
			return
		}
		// The sqlite store doubles as the chronology backend so week
		// history survives restarts alongside the rows it produced.
		opts = append(opts, app.WithLedgerStore(store), app.WithChronology(store))
	}
	if cfg.TranscriptDir != "" {
		opts = append(opts, app.WithTranscripts(transcript.NewDirProvider(cfg.TranscriptDir)))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go refreshStats(ctx, svc)

	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// refreshStats keeps the service gauges current between scrapes.
func refreshStats(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.GetStats()
		}
	}
}
