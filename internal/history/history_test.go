package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	apperrors "releasecheck/internal/errors"
	"releasecheck/internal/update"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, tag := range []string{"v1.0.0", "v1.1.0", "v1.2.0"} {
		_, err := s.Add(ctx, Record{
			CheckedAt:      base.Add(time.Duration(i) * time.Hour),
			Repo:           "owner/repo",
			CurrentVersion: "v0.0.1",
			LatestVersion:  tag,
			HasUpdate:      true,
			Outcome:        OutcomeOK,
		})
		if err != nil {
			t.Fatalf("Add() error: %v", err)
		}
	}

	records, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Recent(2) returned %d records", len(records))
	}
	if records[0].LatestVersion != "v1.2.0" || records[1].LatestVersion != "v1.1.0" {
		t.Errorf("records not newest first: %+v", records)
	}
	if !records[0].HasUpdate {
		t.Error("HasUpdate should round-trip")
	}
	if !records[0].CheckedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("CheckedAt = %v", records[0].CheckedAt)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("first Open() error: %v", err)
	}
	if _, err := first.Add(ctx, Record{Repo: "owner/repo", CurrentVersion: "v1", Outcome: OutcomeOK}); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	_ = first.Close()

	second, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	defer func() { _ = second.Close() }()

	records, err := second.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record after reopen, got %d", len(records))
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestFromCheck(t *testing.T) {
	cfg := update.Config{Owner: "owner", Repo: "repo", CurrentVersion: "v0.0.1"}
	at := time.Now()

	ok := FromCheck(cfg, &update.Decision{HasUpdate: true, LatestVersion: "v1.0.0"}, nil, at)
	if ok.Outcome != OutcomeOK || !ok.HasUpdate || ok.LatestVersion != "v1.0.0" || ok.Repo != "owner/repo" {
		t.Errorf("unexpected record: %+v", ok)
	}

	checkErr := apperrors.New(apperrors.CodeNoLatestRelease, "latest release not found", errors.New("HTTP 404"))
	failed := FromCheck(cfg, nil, checkErr, at)
	if failed.Outcome != string(apperrors.CodeNoLatestRelease) {
		t.Errorf("Outcome = %q", failed.Outcome)
	}
	if failed.Message != "latest release not found: HTTP 404" {
		t.Errorf("Message = %q", failed.Message)
	}
	if failed.HasUpdate {
		t.Error("failed check should not report an update")
	}
}
