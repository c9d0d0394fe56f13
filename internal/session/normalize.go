package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sessionreel/internal/source"
)

// Columns names the schedule headers that feed each Record field.
type Columns struct {
	Title             string
	Description       string
	Stage             string
	Day               string
	StartTime         string
	SessionType       string
	PlaceholderURL    string
	ParticipantPrefix string
	ParticipantSlots  int
	ParticipantsList  string
}

// DefaultColumns returns the header labels used by the conference schedule
// template.
func DefaultColumns() Columns {
	return Columns{
		Title:             "Title of the session",
		Description:       "Description",
		Stage:             "Stage",
		Day:               "Day",
		StartTime:         "Start",
		SessionType:       "Render Type",
		PlaceholderURL:    "Placeholder URL",
		ParticipantPrefix: "Speaker ",
		ParticipantSlots:  6,
		ParticipantsList:  "Speakers",
	}
}

// dateTimeLayouts are tried in order against "day start".
var dateTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04",
	"2006-01-02 3:04 PM",
	"2006-01-02 3:04PM",
}

// Normalizer converts rows into Records.
type Normalizer struct {
	Columns  Columns
	Location *time.Location
	Now      func() time.Time
}

// Normalize validates row and builds a Record. Rows without a title yield a
// *RejectedError. index is the 1-based row position used in diagnostics.
func (n *Normalizer) Normalize(index int, row source.Row) (Record, []Warning, error) {
	cols := n.Columns
	if cols == (Columns{}) {
		cols = DefaultColumns()
	} else if cols.Title == "" {
		cols.Title = DefaultColumns().Title
	}
	title := row.Get(cols.Title)
	if title == "" {
		return Record{}, nil, &RejectedError{Row: index, Reason: fmt.Sprintf("column %q is empty or missing", cols.Title)}
	}

	rec := Record{
		Row:            index,
		Title:          title,
		Description:    get(row, cols.Description),
		Stage:          get(row, cols.Stage),
		Day:            get(row, cols.Day),
		StartTime:      get(row, cols.StartTime),
		SessionType:    get(row, cols.SessionType),
		PlaceholderURL: get(row, cols.PlaceholderURL),
		Participants:   participants(row, cols),
	}

	var warnings []Warning
	start, err := n.parseStart(rec.Day, rec.StartTime)
	if err != nil {
		rec.Start = n.now()
		rec.StartFallback = true
		warnings = append(warnings, Warning{Kind: WarnTimestampFallback, Detail: err.Error()})
	} else {
		rec.Start = start
	}
	return rec, warnings, nil
}

func (n *Normalizer) parseStart(day, clock string) (time.Time, error) {
	loc := n.Location
	if loc == nil {
		loc = time.UTC
	}
	switch {
	case day == "" && clock == "":
		return time.Time{}, fmt.Errorf("day and start time are empty")
	case day != "" && clock == "":
		if t, err := time.Parse(time.RFC3339, day); err == nil {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("start time is empty")
	case day == "":
		return time.Time{}, fmt.Errorf("day is empty")
	}
	combined := day + " " + clock
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, combined, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date/time %q", combined)
}

func (n *Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func get(row source.Row, header string) string {
	if header == "" {
		return ""
	}
	return row.Get(header)
}

func participants(row source.Row, cols Columns) []Participant {
	var out []Participant
	seen := map[string]struct{}{}
	for i := 1; i <= cols.ParticipantSlots; i++ {
		name := row.Get(cols.ParticipantPrefix + strconv.Itoa(i))
		if name == "" {
			continue
		}
		seen[strings.ToLower(name)] = struct{}{}
		out = append(out, Participant{ID: Slug(name), Name: name})
	}
	if cols.ParticipantsList == "" {
		return out
	}
	// The list column only adds names the slots did not already carry.
	for _, name := range strings.Split(row.Get(cols.ParticipantsList), ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			continue
		}
		seen[strings.ToLower(name)] = struct{}{}
		out = append(out, Participant{ID: Slug(name), Name: name})
	}
	return out
}
