package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sessionreel/internal/logs"
)

const sample = `2024-07-20T10:00:00Z INFO batch: batch started run_id=r1 rows=2
2024-07-20T10:00:01Z WARN publish: routing key unmapped; using default destination run_id=r1 job_id=keynote
{"ts":"2024-07-20T10:00:02Z","level":"ERROR","msg":"render failed","run_id":"r2","job_id":"closing"}
2024-07-20T10:00:03Z INFO batch: batch finished run_id=r1
`

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessionreel.log")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func collect(t *testing.T, path string, opts logs.Options) []string {
	t.Helper()
	var lines []string
	if err := logs.Tail(context.Background(), path, opts, func(line string) { lines = append(lines, line) }); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	return lines
}

func TestTailLastLines(t *testing.T) {
	lines := collect(t, writeLog(t), logs.Options{Lines: 2})
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %#v", lines)
	}
	if lines[1] != "2024-07-20T10:00:03Z INFO batch: batch finished run_id=r1" {
		t.Fatalf("unexpected last line %q", lines[1])
	}
}

func TestTailFilters(t *testing.T) {
	path := writeLog(t)
	cases := []struct {
		name   string
		filter logs.Filter
		want   int
	}{
		{"run console", logs.Filter{RunID: "r1"}, 3},
		{"run json", logs.Filter{RunID: "r2"}, 1},
		{"job", logs.Filter{JobID: "keynote"}, 1},
		{"warn and above", logs.Filter{MinLevel: "warn"}, 2},
		{"error in run", logs.Filter{RunID: "r1", MinLevel: "error"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := collect(t, path, logs.Options{Filter: tc.filter}); len(got) != tc.want {
				t.Fatalf("expected %d lines, got %#v", tc.want, got)
			}
		})
	}
}

func TestTailMissingFile(t *testing.T) {
	if lines := collect(t, filepath.Join(t.TempDir(), "none.log"), logs.Options{}); len(lines) != 0 {
		t.Fatalf("expected no lines, got %#v", lines)
	}
}

func TestTailFollow(t *testing.T) {
	path := writeLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var (
		mu    sync.Mutex
		lines []string
	)
	got := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- logs.Tail(ctx, path, logs.Options{Lines: 1, Follow: true, Poll: 20 * time.Millisecond}, func(line string) {
			mu.Lock()
			lines = append(lines, line)
			n := len(lines)
			mu.Unlock()
			if n == 2 {
				got <- struct{}{}
			}
		})
	}()

	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("2024-07-20T10:00:04Z INFO batch: later run_id=r3\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not pick up the appended line")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Tail returned %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if lines[1] != "2024-07-20T10:00:04Z INFO batch: later run_id=r3" {
		t.Fatalf("unexpected followed line %q", lines[1])
	}
}
