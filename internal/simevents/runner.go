package simevents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"coachledger/internal/config"
	"coachledger/internal/domain/model"
	"coachledger/pkg/logger"
)

// File permission constants.
const (
	outputFilePermission = 0600
)

// Run executes the complete simulation: generate, submit, verify.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting event simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("roster", cfg.RosterPath),
		logger.Int("events", cfg.NumEvents),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()),
	)

	roster, err := config.LoadRoster(cfg.RosterPath)
	if err != nil {
		return fmt.Errorf("roster load failed: %w", err)
	}

	if err := checkServiceHealth(ctx, cfg); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	events, err := generateEvents(ctx, cfg, roster, stats)
	if err != nil {
		return fmt.Errorf("event generation failed: %w", err)
	}

	if err := submitEvents(ctx, cfg, events, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	logger.Get().Info(ctx, "waiting for events to settle",
		logger.String("wait", cfg.SettleWait.String()))
	select {
	case <-ctx.Done():
		return fmt.Errorf("cancelled during settle wait: %w", ctx.Err())
	case <-time.After(cfg.SettleWait):
	}

	if err := verifyLedger(ctx, cfg, roster, stats); err != nil {
		return fmt.Errorf("ledger verification failed: %w", err)
	}

	if cfg.OutputFile != "" {
		if err := saveEventsToFile(cfg.OutputFile, events); err != nil {
			logger.Get().Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, cfg *Config) error {
	client := newHTTPClient(cfg.Timeout)
	resp, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// verifyLedger reads every partition back and checks the rows against
// what the roster allows.
func verifyLedger(ctx context.Context, cfg *Config, roster *config.Roster, stats *Stats) error {
	client := newHTTPClient(cfg.Timeout)

	resp, err := client.Get(ctx, cfg.BaseURL+"/records")
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read partitions response: %w", err)
	}
	var parts PartitionsResponse
	if err := json.Unmarshal(body, &parts); err != nil {
		return fmt.Errorf("failed to decode partitions response: %w", err)
	}
	stats.Partitions = len(parts.Partitions)

	coaches := make(map[string]bool)
	for _, c := range roster.Coaches {
		coaches[c.Name] = true
	}

	var problems int
	for _, partition := range parts.Partitions {
		resp, err := client.Get(ctx, cfg.BaseURL+"/records?partition="+url.QueryEscape(partition))
		if err != nil {
			return fmt.Errorf("failed to read partition %s: %w", partition, err)
		}
		body, err := readResponseBody(resp)
		if err != nil {
			return fmt.Errorf("failed to read partition %s response: %w", partition, err)
		}
		var records RecordsResponse
		if err := json.Unmarshal(body, &records); err != nil {
			return fmt.Errorf("failed to decode partition %s: %w", partition, err)
		}

		stats.LedgerRows += records.Count
		for _, row := range records.Records {
			if row.Week < 1 {
				logger.Get().Warn(ctx, "row with invalid week",
					logger.String("partition", partition),
					logger.String("fingerprint", row.Fingerprint),
					logger.Int("week", row.Week))
				problems++
			}
			if row.Coach != "unknown" && !coaches[row.Coach] {
				logger.Get().Warn(ctx, "row with off-roster coach",
					logger.String("partition", partition),
					logger.String("coach", row.Coach))
				problems++
			}
		}
		logger.Get().Info(ctx, "partition verified",
			logger.String("partition", partition),
			logger.Int("rows", records.Count))
	}

	if problems > 0 {
		return fmt.Errorf("%d rows failed verification", problems)
	}
	logger.Get().Info(ctx, "ledger verification completed",
		logger.Int("partitions", stats.Partitions),
		logger.Int("rows", stats.LedgerRows))
	return nil
}

// saveEventsToFile writes the generated events as a JSON array for
// replaying the run.
func saveEventsToFile(filename string, events []model.RecordingEvent) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, data, outputFilePermission); err != nil {
		return fmt.Errorf("failed to write events file: %w", err)
	}
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var eventsPerSecond float64
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("ledgerRows", stats.LedgerRows),
		logger.Int("partitions", stats.Partitions),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("eventsPerSecond", eventsPerSecond),
	)
}
