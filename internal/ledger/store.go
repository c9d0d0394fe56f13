package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Run summarizes one batch invocation.
type Run struct {
	ID         string
	TargetID   string
	StartedAt  time.Time
	FinishedAt *time.Time
	Summary    map[string]int
}

// Entry is the recorded terminal outcome of one job.
type Entry struct {
	RunID        string
	Row          int
	JobID        string
	Title        string
	Mode         string
	Status       string
	OutputPath   string
	Destination  string
	RemoteID     string
	RemoteLink   string
	ErrorKind    string
	ErrorMessage string
	RecordedAt   time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// StatusPublished is the entry status Published looks for.
const StatusPublished = "published"

// Open initializes or connects to the ledger database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per-connection; a single connection keeps them in force.
	db.SetMaxOpenConns(1)

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

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// BeginRun inserts the run row.
func (s *Store) BeginRun(ctx context.Context, runID, targetID string) error {
	return s.exec(ctx,
		"INSERT INTO runs (id, target_id, started_at) VALUES (?, ?, ?)",
		runID, nullableString(targetID), formatTime(s.now()),
	)
}

// FinishRun stamps the run with its end time and per-status counts.
func (s *Store) FinishRun(ctx context.Context, runID string, summary map[string]int) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return s.exec(ctx,
		"UPDATE runs SET finished_at = ?, summary_json = ? WHERE id = ?",
		formatTime(s.now()), string(payload), runID,
	)
}

// Record appends one job outcome.
func (s *Store) Record(ctx context.Context, e Entry) error {
	recorded := e.RecordedAt
	if recorded.IsZero() {
		recorded = s.now()
	}
	return s.exec(ctx, `INSERT INTO entries (
        run_id, row_index, job_id, title, mode, status, output_path, destination,
        remote_id, remote_link, error_kind, error_message, recorded_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Row, nullableString(e.JobID), nullableString(e.Title), nullableString(e.Mode), e.Status,
		nullableString(e.OutputPath), nullableString(e.Destination), nullableString(e.RemoteID),
		nullableString(e.RemoteLink), nullableString(e.ErrorKind), nullableString(e.ErrorMessage),
		formatTime(recorded),
	)
}

// Published reports whether any earlier run published jobID in mode to
// destination.
func (s *Store) Published(ctx context.Context, jobID, mode, destination string) (bool, error) {
	var count int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM entries WHERE job_id = ? AND mode = ? AND destination = ? AND status = ?",
			jobID, mode, destination, StatusPublished,
		).Scan(&count)
	})
	if err != nil {
		return false, fmt.Errorf("query published: %w", err)
	}
	return count > 0, nil
}

// Runs returns the most recent runs first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, target_id, started_at, finished_at, summary_json FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                 Run
			target, finished    sql.NullString
			started, summaryRaw sql.NullString
		)
		if err := rows.Scan(&run.ID, &target, &started, &finished, &summaryRaw); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.TargetID = target.String
		if t, err := parseTime(started.String); err == nil {
			run.StartedAt = t
		}
		if finished.Valid {
			if t, err := parseTime(finished.String); err == nil {
				run.FinishedAt = &t
			}
		}
		if summaryRaw.Valid && summaryRaw.String != "" {
			_ = json.Unmarshal([]byte(summaryRaw.String), &run.Summary)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Entries returns the outcomes recorded for runID in row order.
func (s *Store) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, row_index, job_id, title, mode, status, output_path,
        destination, remote_id, remote_link, error_kind, error_message, recorded_at
        FROM entries WHERE run_id = ? ORDER BY row_index, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                          Entry
			jobID, title, mode, output, dest, remoteID sql.NullString
			link, kind, msg, recorded                  sql.NullString
		)
		if err := rows.Scan(&e.RunID, &e.Row, &jobID, &title, &mode, &e.Status, &output,
			&dest, &remoteID, &link, &kind, &msg, &recorded); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.JobID, e.Title, e.Mode = jobID.String, title.String, mode.String
		e.OutputPath, e.Destination = output.String, dest.String
		e.RemoteID, e.RemoteLink = remoteID.String, link.String
		e.ErrorKind, e.ErrorMessage = kind.String, msg.String
		if t, err := parseTime(recorded.String); err == nil {
			e.RecordedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
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
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
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

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
