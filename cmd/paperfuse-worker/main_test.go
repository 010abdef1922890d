package main

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/paperfuse/core/internal/config"
	"github.com/paperfuse/core/internal/scheduler"
	"github.com/paperfuse/core/internal/types"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func withHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)
	return dir
}

func TestRunWithDisabledScheduleRecordsFailedRunAndExitsNonZero(t *testing.T) {
	withHome(t)

	code := run()
	if code != 1 {
		t.Fatalf("expected exit code 1 for a disabled schedule, got %d", code)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Schedule.Enabled {
		t.Fatalf("expected default config to have schedule disabled")
	}

	dbPath, err := config.DBPath()
	if err != nil {
		t.Fatalf("resolve database path: %v", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	store, err := scheduler.Open(db)
	if err != nil {
		t.Fatalf("open schedule store: %v", err)
	}
	recent, err := store.RecentRuns(1)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(recent) != 1 || recent[0].Status != types.RunFailed {
		t.Fatalf("expected one failed run recorded, got %+v", recent)
	}
}

func TestRecordRefusalWritesFailedRun(t *testing.T) {
	withHome(t)

	// recordRefusal only needs an opened *scheduler.Store; exercise it
	// directly against a throwaway in-memory schedule store.
	store := openTestScheduleStore(t)

	code := recordRefusal(store, "missing api key")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}

	recent, err := store.RecentRuns(1)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(recent) != 1 || recent[0].Status != types.RunFailed || recent[0].ErrorMessage != "missing api key" {
		t.Fatalf("unexpected recorded run: %+v", recent)
	}
}

func openTestScheduleStore(t *testing.T) *scheduler.Store {
	t.Helper()
	db := openMemoryDB(t)
	store, err := scheduler.Open(db)
	if err != nil {
		t.Fatalf("open schedule store: %v", err)
	}
	return store
}
