// Package history records the outcome of each update check in a local SQLite
// database so past results can be listed later.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	apperrors "releasecheck/internal/errors"
	"releasecheck/internal/update"
)

// OutcomeOK marks a check that completed, with or without an update.
const OutcomeOK = "ok"

// Record is one stored check result.
type Record struct {
	ID             int64     `json:"id"`
	CheckedAt      time.Time `json:"checkedAt"`
	Repo           string    `json:"repo"`
	CurrentVersion string    `json:"currentVersion"`
	LatestVersion  string    `json:"latestVersion,omitempty"`
	HasUpdate      bool      `json:"hasUpdate"`
	Outcome        string    `json:"outcome"`
	Message        string    `json:"message,omitempty"`
}

// Store persists check records.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and runs
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("history path is empty")
	}
	//nolint:gosec // G301: User data directory needs standard permissions
	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", buildDSN(trimmed))
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return s, nil
}

func buildDSN(path string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(path),
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(3000)")
	q.Add("_pragma", "journal_mode(WAL)")
	u.RawQuery = q.Encode()
	return u.String()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS checks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			checked_at TEXT NOT NULL,
			repo TEXT NOT NULL,
			current_version TEXT NOT NULL,
			latest_version TEXT NOT NULL DEFAULT '',
			has_update INTEGER NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checks_checked_at ON checks(checked_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}
	return nil
}

// Add stores a record and returns its id.
func (s *Store) Add(ctx context.Context, r Record) (int64, error) {
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO checks (checked_at, repo, current_version, latest_version, has_update, outcome, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.CheckedAt.UTC().Format(time.RFC3339Nano), r.Repo, r.CurrentVersion, r.LatestVersion,
		boolToInt(r.HasUpdate), r.Outcome, r.Message,
	)
	if err != nil {
		return 0, fmt.Errorf("insert check: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, checked_at, repo, current_version, latest_version, has_update, outcome, message
		FROM checks
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query checks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []Record
	for rows.Next() {
		var (
			r         Record
			checkedAt string
			hasUpdate int
		)
		if err := rows.Scan(&r.ID, &checkedAt, &r.Repo, &r.CurrentVersion, &r.LatestVersion, &hasUpdate, &r.Outcome, &r.Message); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, checkedAt); err == nil {
			r.CheckedAt = t
		}
		r.HasUpdate = hasUpdate == 1
		records = append(records, r)
	}
	return records, rows.Err()
}

// FromCheck converts a checker result into a record.
func FromCheck(cfg update.Config, decision *update.Decision, checkErr error, at time.Time) Record {
	r := Record{
		CheckedAt:      at,
		Repo:           cfg.FullName(),
		CurrentVersion: cfg.CurrentVersion,
		Outcome:        OutcomeOK,
	}
	if checkErr != nil {
		r.Outcome = string(apperrors.CodeOf(checkErr))
		r.Message = checkErr.Error()
		return r
	}
	if decision != nil {
		r.HasUpdate = decision.HasUpdate
		r.LatestVersion = decision.LatestVersion
	}
	return r
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
