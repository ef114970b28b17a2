package simevents

import "time"

// Config holds configuration for the event simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	RosterPath string        // Roster file driving name generation
	NumEvents  int           // Number of events to generate
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	SettleWait time.Duration // Wait between submission and verification
	MessyRatio float64       // Share of events with degraded metadata
	Duplicates int           // Extra resubmissions of already-sent events
	OutputFile string        // Output file for generated events
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// AckResponse mirrors the service's event submission acknowledgment.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// RecordsResponse mirrors the service's ledger read shape.
type RecordsResponse struct {
	Partition string       `json:"partition"`
	Count     int          `json:"count"`
	Records   []RecordView `json:"records"`
}

// RecordView is one ledger row as served by the API.
type RecordView struct {
	Fingerprint string  `json:"fingerprint"`
	Coach       string  `json:"coach"`
	Student     string  `json:"student"`
	SessionType string  `json:"session_type"`
	Week        int     `json:"week"`
	WeekMethod  string  `json:"week_method"`
	Date        string  `json:"date"`
	Confidence  float64 `json:"confidence"`
	DataSource  string  `json:"data_source"`
}

// PartitionsResponse lists the service's known partitions.
type PartitionsResponse struct {
	Partitions []string `json:"partitions"`
}

// Stats holds simulation statistics.
type Stats struct {
	EventsGenerated  int
	EventsSubmitted  int
	EventsSuccessful int
	EventsDuplicate  int
	EventsFailed     int
	LedgerRows       int
	Partitions       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
