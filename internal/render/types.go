package render

import (
	"fmt"
	"sort"
	"strings"
)

// Target is a discoverable composition the renderer can produce.
type Target struct {
	ID               string  `json:"id"`
	DurationInFrames int     `json:"durationInFrames"`
	FPS              float64 `json:"fps"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
}

// Mode selects still-image or animated output.
type Mode string

const (
	ModeStill    Mode = "still"
	ModeAnimated Mode = "animated"
)

// Extension returns the output file extension for the mode.
func (m Mode) Extension() string {
	if m == ModeStill {
		return ".png"
	}
	return ".mp4"
}

// Job is one planned unit of render work. Props are passed to the
// composition unchanged.
type Job struct {
	ID         string
	Title      string
	Mode       Mode
	ModeReason string
	Props      map[string]any
	RoutingKey string
	Row        int
}

// Result describes a successfully rendered artifact.
type Result struct {
	JobID      string
	OutputPath string
	Mode       Mode
}

// SelectTarget returns the target whose ID equals id.
func SelectTarget(targets []Target, id string) (Target, error) {
	for _, target := range targets {
		if target.ID == id {
			return target, nil
		}
	}
	ids := make([]string, 0, len(targets))
	for _, target := range targets {
		ids = append(ids, target.ID)
	}
	sort.Strings(ids)
	return Target{}, fmt.Errorf("composition %q not found (available: %s)", id, strings.Join(ids, ", "))
}
