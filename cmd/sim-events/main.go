// Command sim-events generates roster-driven recording events and
// drives them through a running coachledger instance, then reads the
// ledger back to verify what landed.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"coachledger/internal/simevents"
	"coachledger/pkg/logger"
)

func main() {
	cfg := &simevents.Config{}

	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	flag.StringVar(&cfg.RosterPath, "roster", "roster.yaml", "Roster file driving name generation")
	flag.IntVar(&cfg.NumEvents, "events", 1000, "Number of events to generate and submit")
	flag.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "Number of concurrent submitters")
	flag.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	flag.DurationVar(&cfg.SettleWait, "settle", 5*time.Second, "Wait between submission and verification")
	flag.Float64Var(&cfg.MessyRatio, "messy", 0.1, "Share of events with degraded metadata")
	flag.IntVar(&cfg.Duplicates, "duplicates", 50, "Extra resubmissions of already-sent events")
	flag.StringVar(&cfg.OutputFile, "output", "", "Output file for generated events")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if cfg.Verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := simevents.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}
