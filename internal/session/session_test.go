package session_test

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"sessionreel/internal/session"
	"sessionreel/internal/source"
)

var fixedNow = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func newNormalizer() *session.Normalizer {
	return &session.Normalizer{
		Columns:  session.DefaultColumns(),
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Keynote":                 "keynote",
		"  Ada   Lovelace ":       "ada-lovelace",
		"Rust & Go: a love story": "rust--go-a-love-story",
		"ÉCOLE Île":               "cole-le",
		"already-slugged-2024":    "already-slugged-2024",
		"!!!":                     "",
		"Tab\tand\nnewline":       "tab-and-newline",
	}
	for in, want := range cases {
		if got := session.Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
	if session.Slug("KEYNOTE ") != session.Slug(" keynote") {
		t.Fatal("slug should ignore case and surrounding whitespace")
	}
}

func TestSlugConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := fmt.Sprintf("ÉCOLE Talk %d", i)
			want := fmt.Sprintf("cole-talk-%d", i)
			for j := 0; j < 50; j++ {
				if got := session.Slug(in); got != want {
					errs <- fmt.Sprintf("Slug(%q) = %q, want %q", in, got, want)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}

func TestNormalizeKeynoteRow(t *testing.T) {
	row := source.Row{
		"Title of the session": "Keynote",
		"Day":                  "2024-07-20",
		"Start":                "10:00",
		"Speaker 1":            "Ada Lovelace",
		"Speaker 2":            "",
		"Stage":                "Main Stage",
	}
	rec, warnings, err := newNormalizer().Normalize(1, row)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}
	if rec.Title != "Keynote" || rec.Stage != "Main Stage" {
		t.Fatalf("unexpected record %+v", rec)
	}
	want := time.Date(2024, 7, 20, 10, 0, 0, 0, time.UTC)
	if !rec.Start.Equal(want) || rec.StartFallback {
		t.Fatalf("start = %v (fallback %v), want %v", rec.Start, rec.StartFallback, want)
	}
	wantP := []session.Participant{{ID: "ada-lovelace", Name: "Ada Lovelace"}}
	if !reflect.DeepEqual(rec.Participants, wantP) {
		t.Fatalf("participants = %v, want %v", rec.Participants, wantP)
	}
}

func TestNormalizeRejectsBlankTitle(t *testing.T) {
	for _, row := range []source.Row{
		{"Title of the session": "   ", "Stage": "Main"},
		{"Stage": "Main"},
	} {
		_, _, err := newNormalizer().Normalize(4, row)
		if !errors.Is(err, session.ErrRejected) {
			t.Fatalf("expected rejection, got %v", err)
		}
		var rejected *session.RejectedError
		if !errors.As(err, &rejected) || rejected.Row != 4 {
			t.Fatalf("expected RejectedError for row 4, got %#v", err)
		}
	}
}

func TestNormalizeTrimsTitle(t *testing.T) {
	rec, _, err := newNormalizer().Normalize(1, source.Row{"Title of the session": "  Panel  "})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.Title != "Panel" {
		t.Fatalf("title = %q", rec.Title)
	}
}

func TestNormalizeTimestampFallback(t *testing.T) {
	cases := []source.Row{
		{"Title of the session": "A"},
		{"Title of the session": "B", "Day": "2024-07-20"},
		{"Title of the session": "C", "Start": "10:00"},
		{"Title of the session": "D", "Day": "someday", "Start": "noon"},
	}
	for _, row := range cases {
		rec, warnings, err := newNormalizer().Normalize(1, row)
		if err != nil {
			t.Fatalf("%v: unexpected error %v", row, err)
		}
		if !rec.StartFallback || !rec.Start.Equal(fixedNow) {
			t.Fatalf("%v: expected fallback to now, got %v", row, rec.Start)
		}
		if len(warnings) != 1 || warnings[0].Kind != session.WarnTimestampFallback {
			t.Fatalf("%v: expected one fallback warning, got %v", row, warnings)
		}
	}
}

func TestNormalizeAlternateLayoutsAndLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	n := newNormalizer()
	n.Location = berlin
	cases := []struct {
		day, start string
		want       time.Time
	}{
		{"2024-05-22", "09:30:15", time.Date(2024, 5, 22, 9, 30, 15, 0, berlin)},
		{"22/05/2024", "14:00", time.Date(2024, 5, 22, 14, 0, 0, 0, berlin)},
		{"2024-05-22", "2:15 PM", time.Date(2024, 5, 22, 14, 15, 0, 0, berlin)},
	}
	for _, tc := range cases {
		rec, warnings, err := n.Normalize(1, source.Row{"Title of the session": "T", "Day": tc.day, "Start": tc.start})
		if err != nil || len(warnings) != 0 {
			t.Fatalf("%s %s: err=%v warnings=%v", tc.day, tc.start, err, warnings)
		}
		if !rec.Start.Equal(tc.want) {
			t.Fatalf("%s %s: got %v want %v", tc.day, tc.start, rec.Start, tc.want)
		}
	}

	rec, warnings, _ := n.Normalize(1, source.Row{"Title of the session": "T", "Day": "2024-05-22T09:00:00Z"})
	if len(warnings) != 0 || !rec.Start.Equal(time.Date(2024, 5, 22, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("rfc3339 day: got %v warnings %v", rec.Start, warnings)
	}
}

func TestNormalizeParticipants(t *testing.T) {
	row := source.Row{
		"Title of the session": "Panel",
		"Speaker 1":            "Grace Hopper",
		"Speaker 2":            "",
		"Speaker 3":            "Alan Turing",
		"Speaker 7":            "Outside slots",
		"Speakers":             "alan turing, Barbara Liskov ,",
	}
	rec, _, err := newNormalizer().Normalize(1, row)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []session.Participant{
		{ID: "grace-hopper", Name: "Grace Hopper"},
		{ID: "alan-turing", Name: "Alan Turing"},
		{ID: "barbara-liskov", Name: "Barbara Liskov"},
	}
	if !reflect.DeepEqual(rec.Participants, want) {
		t.Fatalf("participants = %v, want %v", rec.Participants, want)
	}
}

func TestNormalizeDefaultsOnlyMissingTitleColumn(t *testing.T) {
	n := newNormalizer()
	n.Columns = session.Columns{Stage: "Room", ParticipantPrefix: "Host ", ParticipantSlots: 2}
	row := source.Row{
		"Title of the session": "Workshop",
		"Room":                 "Lab",
		"Stage":                "ignored",
		"Host 1":               "Ada Lovelace",
	}
	rec, _, err := n.Normalize(1, row)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.Title != "Workshop" || rec.Stage != "Lab" {
		t.Fatalf("expected custom stage column to survive, got %+v", rec)
	}
	if len(rec.Participants) != 1 || rec.Participants[0].Name != "Ada Lovelace" {
		t.Fatalf("expected custom participant prefix to survive, got %v", rec.Participants)
	}

	zero := &session.Normalizer{Location: time.UTC, Now: func() time.Time { return fixedNow }}
	rec, _, err = zero.Normalize(1, row)
	if err != nil {
		t.Fatalf("zero columns Normalize: %v", err)
	}
	if rec.Stage != "ignored" {
		t.Fatalf("zero columns should use the default mapping, got stage %q", rec.Stage)
	}
}
