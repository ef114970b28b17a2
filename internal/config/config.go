// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load() layers file/env on top.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory recording event queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of resolution workers.
	WorkerCount int `koanf:"worker_count"`

	// FingerprintCacheSize bounds the in-memory fingerprint seen-index.
	// Zero or negative means unbounded.
	FingerprintCacheSize int `koanf:"fingerprint_cache_size"`

	// RosterPath points at the YAML roster of coaches, students, name
	// variations and program timelines.
	RosterPath string `koanf:"roster_path"`

	// LedgerBackend selects the ledger store: "sqlite" or "memory".
	LedgerBackend string `koanf:"ledger_backend"`

	// LedgerPath is the sqlite database path for the sqlite backend.
	LedgerPath string `koanf:"ledger_path"`

	// LedgerBatchSize coalesces this many pending upserts per partition
	// into one store round trip.
	LedgerBatchSize int `koanf:"ledger_batch_size"`

	// LedgerFlushMS flushes pending upserts at least this often.
	LedgerFlushMS int `koanf:"ledger_flush_ms"`

	// WriteRawView mirrors pre-standardization values into a "-raw"
	// partition next to each standardized partition.
	WriteRawView bool `koanf:"write_raw_view"`

	// TranscriptDir enables the directory-backed transcript provider
	// when non-empty. Transcript-based week inference is skipped
	// otherwise.
	TranscriptDir string `koanf:"transcript_dir"`

	// Retry settings for ledger I/O.
	RetryAttempts     int `koanf:"retry_attempts"`
	RetryBackoffMS    int `koanf:"retry_backoff_ms"`
	RetryMaxBackoffMS int `koanf:"retry_max_backoff_ms"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		QueueSize:            10_000,
		WorkerCount:          min(8, max(3, runtime.NumCPU())),
		FingerprintCacheSize: 100_000,
		RosterPath:           "roster.yaml",
		LedgerBackend:        "sqlite",
		LedgerPath:           "coachledger.db",
		LedgerBatchSize:      32,
		LedgerFlushMS:        2000,
		WriteRawView:         false,
		TranscriptDir:        "",
		RetryAttempts:        4,
		RetryBackoffMS:       100,
		RetryMaxBackoffMS:    2000,
	}
}
