package batch

import (
	"errors"
	"time"

	"sessionreel/internal/publish"
	"sessionreel/internal/render"
	"sessionreel/internal/session"
)

// Status is the terminal state of one row.
type Status string

const (
	StatusPublished        Status = "published"
	StatusRejectedRecord   Status = "rejected_record"
	StatusRenderFailed     Status = "render_failed"
	StatusPublishFailed    Status = "publish_failed"
	StatusSkippedPublished Status = "skipped_published"
	StatusCancelled        Status = "cancelled"
	StatusPlanned          Status = "planned"
)

// Statuses lists every status in summary display order.
var Statuses = []Status{
	StatusPublished,
	StatusPlanned,
	StatusSkippedPublished,
	StatusRejectedRecord,
	StatusRenderFailed,
	StatusPublishFailed,
	StatusCancelled,
}

// Failed reports whether s is a per-row failure.
func (s Status) Failed() bool {
	switch s {
	case StatusRejectedRecord, StatusRenderFailed, StatusPublishFailed:
		return true
	}
	return false
}

// ErrSetup marks failures in the one-time setup phase.
var ErrSetup = errors.New("batch setup failed")

// Entry is the outcome of one source row.
type Entry struct {
	Row         int // 1-based position among fetched rows
	JobID       string
	Title       string
	Mode        render.Mode
	ModeReason  string
	RoutingKey  string
	Status      Status
	OutputPath  string
	Destination string
	Fallback    bool
	Remote      publish.Remote
	Err         error
	Warnings    []session.Warning
	Duration    time.Duration
}

// Report aggregates a batch run. Entries follow source row order.
type Report struct {
	RunID      string
	TargetID   string
	Target     render.Target
	Entries    []Entry
	Fatal      bool
	FatalErr   error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Summary counts entries per status.
func (r Report) Summary() map[string]int {
	counts := make(map[string]int, len(Statuses))
	for _, entry := range r.Entries {
		counts[string(entry.Status)]++
	}
	return counts
}

// Count returns the number of entries with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, entry := range r.Entries {
		if entry.Status == s {
			n++
		}
	}
	return n
}

// Failures returns the entries whose status is a per-row failure.
func (r Report) Failures() []Entry {
	var out []Entry
	for _, entry := range r.Entries {
		if entry.Status.Failed() {
			out = append(out, entry)
		}
	}
	return out
}
