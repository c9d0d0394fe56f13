package session

import (
	"errors"
	"fmt"
	"time"
)

// Participant is one named speaker or host on a session.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Record is a validated schedule entry. Title is never empty.
type Record struct {
	Row            int
	Title          string
	Description    string
	Stage          string
	Day            string
	StartTime      string
	SessionType    string
	PlaceholderURL string
	Participants   []Participant
	Start          time.Time
	StartFallback  bool
}

// WarningKind classifies non-fatal normalization notes.
type WarningKind string

// WarnTimestampFallback records that the current time replaced an absent or
// unparsable day/start pair.
const WarnTimestampFallback WarningKind = "timestamp_fallback"

// Warning is a non-fatal annotation produced while normalizing a row.
type Warning struct {
	Kind   WarningKind
	Detail string
}

// ErrRejected matches every RejectedError.
var ErrRejected = errors.New("record rejected")

// RejectedError reports a row that cannot become a Record.
type RejectedError struct {
	Row    int
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d rejected: %s", e.Row, e.Reason)
	}
	return "record rejected: " + e.Reason
}

// Is makes errors.Is(err, ErrRejected) succeed.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}
