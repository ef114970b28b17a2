package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"coachledger/internal/domain/model"
)

//go:embed schema.sql
var schemaSQL string

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore is the default persistent Store. The same database also
// holds the chronology table, so SQLiteStore doubles as the week
// package's Chronology implementation.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite initializes or connects to the ledger database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Rows implements Store.
func (s *SQLiteStore) Rows(ctx context.Context, partition string) ([]Record, error) {
	const query = `SELECT fingerprint, coach, student, session_type, week, week_method,
		session_date, confidence, per_field, data_source, updated_at
		FROM ledger_rows WHERE part = ? ORDER BY fingerprint`

	var out []Record
	err := retryOnBusy(ctx, func() error {
		rows, queryErr := s.db.QueryContext(ctx, query, partition)
		if queryErr != nil {
			return queryErr
		}
		defer func() { _ = rows.Close() }()

		out = out[:0]
		for rows.Next() {
			record, scanErr := scanRecord(rows)
			if scanErr != nil {
				return scanErr
			}
			out = append(out, record)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read partition %s: %w", ErrUnavailable, partition, err)
	}
	return out, nil
}

// BatchUpsert implements Store. The batch runs in one transaction so a
// partially applied flush can never leave half-written rows behind.
func (s *SQLiteStore) BatchUpsert(ctx context.Context, partition string, records []Record) error {
	const stmt = `INSERT INTO ledger_rows
		(part, fingerprint, coach, student, session_type, week, week_method,
		 session_date, confidence, per_field, data_source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (part, fingerprint) DO UPDATE SET
		 coach = excluded.coach,
		 student = excluded.student,
		 session_type = excluded.session_type,
		 week = excluded.week,
		 week_method = excluded.week_method,
		 session_date = excluded.session_date,
		 confidence = excluded.confidence,
		 per_field = excluded.per_field,
		 data_source = excluded.data_source,
		 updated_at = excluded.updated_at`

	err := retryOnBusy(ctx, func() error {
		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return txErr
		}
		defer func() { _ = tx.Rollback() }()

		for _, record := range records {
			perField, marshalErr := json.Marshal(record.PerField)
			if marshalErr != nil {
				return marshalErr
			}
			if _, execErr := tx.ExecContext(ctx, stmt,
				partition,
				record.Fingerprint,
				record.Coach,
				record.Student,
				record.SessionType,
				record.Week,
				record.WeekMethod,
				formatDate(record.Date),
				record.Confidence,
				string(perField),
				record.DataSource,
				record.UpdatedAt.UTC().Format(time.RFC3339Nano),
			); execErr != nil {
				return execErr
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("%w: upsert %d rows into %s: %w", ErrUnavailable, len(records), partition, err)
	}
	return nil
}

// Partitions implements Store.
func (s *SQLiteStore) Partitions(ctx context.Context) ([]string, error) {
	var out []string
	err := retryOnBusy(ctx, func() error {
		rows, queryErr := s.db.QueryContext(ctx, `SELECT DISTINCT part FROM ledger_rows ORDER BY part`)
		if queryErr != nil {
			return queryErr
		}
		defer func() { _ = rows.Close() }()

		out = out[:0]
		for rows.Next() {
			var partition string
			if scanErr := rows.Scan(&partition); scanErr != nil {
				return scanErr
			}
			out = append(out, partition)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list partitions: %w", ErrUnavailable, err)
	}
	return out, nil
}

// Latest implements the week package's Chronology interface.
func (s *SQLiteStore) Latest(ctx context.Context, coach, student string, before time.Time) (model.ChronologyEntry, bool, error) {
	const query = `SELECT session_date, week FROM chronology
		WHERE coach = ? AND student = ? AND session_date < ?
		ORDER BY session_date DESC LIMIT 1`

	var (
		entry model.ChronologyEntry
		found bool
	)
	err := retryOnBusy(ctx, func() error {
		var dateStr string
		row := s.db.QueryRowContext(ctx, query, coach, student, formatDate(before))
		scanErr := row.Scan(&dateStr, &entry.Week)
		if errors.Is(scanErr, sql.ErrNoRows) {
			found = false
			return nil
		}
		if scanErr != nil {
			return scanErr
		}
		date, parseErr := time.Parse("2006-01-02", dateStr)
		if parseErr != nil {
			return parseErr
		}
		entry.Coach = coach
		entry.Student = student
		entry.Date = date
		found = true
		return nil
	})
	if err != nil {
		return model.ChronologyEntry{}, false, fmt.Errorf("%w: chronology lookup: %w", ErrUnavailable, err)
	}
	return entry, found, nil
}

// Append implements the week package's Chronology interface.
func (s *SQLiteStore) Append(ctx context.Context, entry model.ChronologyEntry) error {
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO chronology (coach, student, session_date, week) VALUES (?, ?, ?, ?)`,
			entry.Coach, entry.Student, formatDate(entry.Date), entry.Week,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("%w: chronology append: %w", ErrUnavailable, err)
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		record    Record
		dateStr   string
		perField  string
		updatedAt string
	)
	if err := rows.Scan(
		&record.Fingerprint,
		&record.Coach,
		&record.Student,
		&record.SessionType,
		&record.Week,
		&record.WeekMethod,
		&dateStr,
		&record.Confidence,
		&perField,
		&record.DataSource,
		&updatedAt,
	); err != nil {
		return Record{}, err
	}
	if dateStr != "" {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return Record{}, err
		}
		record.Date = date
	}
	if perField != "" && perField != "null" {
		if err := json.Unmarshal([]byte(perField), &record.PerField); err != nil {
			return Record{}, err
		}
	}
	if updatedAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return Record{}, err
		}
		record.UpdatedAt = ts
	}
	return record, nil
}
