// Package planner turns validated session records into render jobs.
package planner

import (
	"fmt"
	"strings"
	"time"

	"sessionreel/internal/render"
	"sessionreel/internal/session"
)

// Mode decision reasons recorded on each job.
const (
	ReasonHintStill    = "hint_still"
	ReasonHintAnimated = "hint_animated"
	ReasonSingleFrame  = "single_frame_target"
	ReasonMultiFrame   = "multi_frame_target"
)

// Planner assembles render jobs. Now is only consulted when a title slugs to
// the empty string.
type Planner struct {
	Now func() time.Time
}

// Plan derives the job identity, render mode, and composition props for rec.
func (p *Planner) Plan(rec session.Record, target render.Target) render.Job {
	id := session.Slug(rec.Title)
	if id == "" {
		id = fmt.Sprintf("session-%d", p.now().UnixMilli())
	}
	mode, reason := DecideMode(rec.SessionType, target)
	return render.Job{
		ID:         id,
		Title:      rec.Title,
		Mode:       mode,
		ModeReason: reason,
		Props:      Props(id, rec),
		RoutingKey: rec.Stage,
		Row:        rec.Row,
	}
}

// DecideMode applies the mode table: an explicit hint wins, otherwise a
// single-frame target is still and anything longer is animated.
func DecideMode(hint string, target render.Target) (render.Mode, string) {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "still":
		return render.ModeStill, ReasonHintStill
	case "animation", "animated":
		return render.ModeAnimated, ReasonHintAnimated
	}
	if target.DurationInFrames <= 1 {
		return render.ModeStill, ReasonSingleFrame
	}
	return render.ModeAnimated, ReasonMultiFrame
}

// Props flattens rec into the composition input payload.
func Props(id string, rec session.Record) map[string]any {
	speakers := make([]map[string]string, 0, len(rec.Participants))
	for _, p := range rec.Participants {
		speakers = append(speakers, map[string]string{"id": p.ID, "name": p.Name})
	}
	return map[string]any{
		"id":             id,
		"name":           rec.Title,
		"description":    rec.Description,
		"stage":          rec.Stage,
		"day":            rec.Day,
		"startTime":      rec.StartTime,
		"start":          rec.Start.UnixMilli(),
		"sessionType":    rec.SessionType,
		"placeholderUrl": rec.PlaceholderURL,
		"speakers":       speakers,
	}
}

func (p *Planner) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
