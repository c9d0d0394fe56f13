package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	clock := time.Date(2024, 7, 20, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	if err := store.BeginRun(ctx, "run-1", "MainComposition"); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	entries := []Entry{
		{RunID: "run-1", Row: 1, JobID: "keynote", Title: "Keynote", Mode: "animated", Status: StatusPublished, Destination: "folder-main", RemoteID: "f1"},
		{RunID: "run-1", Row: 2, Status: "rejected_record", ErrorKind: "validation", ErrorMessage: "title empty"},
		{RunID: "run-1", Row: 3, JobID: "panel", Mode: "still", Status: "render_failed", ErrorKind: "external_tool"},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	clock = clock.Add(5 * time.Minute)
	if err := store.FinishRun(ctx, "run-1", map[string]int{"published": 1, "rejected_record": 1, "render_failed": 1}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" || runs[0].TargetID != "MainComposition" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[0].FinishedAt == nil || runs[0].FinishedAt.Sub(runs[0].StartedAt) != 5*time.Minute {
		t.Fatalf("unexpected run timing %+v", runs[0])
	}
	if runs[0].Summary["published"] != 1 {
		t.Fatalf("unexpected summary %v", runs[0].Summary)
	}

	got, err := store.Entries(ctx, "run-1")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(got) != 3 || got[0].JobID != "keynote" || got[1].Status != "rejected_record" || got[2].ErrorKind != "external_tool" {
		t.Fatalf("unexpected entries %+v", got)
	}
}

func TestPublished(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.BeginRun(ctx, "run-1", ""); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(ctx, Entry{RunID: "run-1", Row: 1, JobID: "keynote", Mode: "animated", Status: StatusPublished, Destination: "main"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(ctx, Entry{RunID: "run-1", Row: 2, JobID: "panel", Mode: "animated", Status: "publish_failed", Destination: "main"}); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		job, mode, dest string
		want            bool
	}{
		{"keynote", "animated", "main", true},
		{"keynote", "still", "main", false},
		{"keynote", "animated", "side", false},
		{"panel", "animated", "main", false},
	}
	for _, tc := range cases {
		got, err := store.Published(ctx, tc.job, tc.mode, tc.dest)
		if err != nil {
			t.Fatalf("Published: %v", err)
		}
		if got != tc.want {
			t.Errorf("Published(%s,%s,%s) = %v, want %v", tc.job, tc.mode, tc.dest, got, tc.want)
		}
	}
}

func TestRecordRequiresRun(t *testing.T) {
	store := openTestStore(t)
	err := store.Record(context.Background(), Entry{RunID: "missing", Row: 1, Status: StatusPublished})
	if err == nil {
		t.Fatal("expected foreign key violation for unknown run")
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.BeginRun(context.Background(), "run-1", ""); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	runs, err := store.Runs(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %v %v", runs, err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()
	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestIsSQLiteBusy(t *testing.T) {
	if !isSQLiteBusy(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatal("expected busy detection by message")
	}
	if isSQLiteBusy(errors.New("constraint failed")) || isSQLiteBusy(nil) {
		t.Fatal("unexpected busy detection")
	}
}
