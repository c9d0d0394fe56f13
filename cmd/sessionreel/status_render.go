package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"sessionreel/internal/batch"
	"sessionreel/internal/preflight"
)

// tone selects the bracketed tag and color of a status line.
type tone int

const (
	toneInfo tone = iota
	toneOK
	toneWarn
	toneFail
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var toneStyles = [...]struct {
	tag   string
	color string
}{
	toneInfo: {"INFO", ansiBlue},
	toneOK:   {"OK", ansiGreen},
	toneWarn: {"WARN", ansiYellow},
	toneFail: {"FAIL", ansiRed},
}

// outcomeStyles labels each terminal job status in the run summary.
var outcomeStyles = map[batch.Status]struct {
	label string
	tone  tone
}{
	batch.StatusPublished:        {"Published", toneOK},
	batch.StatusPlanned:          {"Planned", toneOK},
	batch.StatusSkippedPublished: {"Already published", toneInfo},
	batch.StatusRejectedRecord:   {"Rejected rows", toneWarn},
	batch.StatusRenderFailed:     {"Render failures", toneFail},
	batch.StatusPublishFailed:    {"Publish failures", toneFail},
	batch.StatusCancelled:        {"Cancelled", toneWarn},
}

const labelWidth = 24

// outcomeLine renders the count line for status. Unknown statuses show their
// raw name with the fail tone.
func outcomeLine(status batch.Status, count int, colorize bool) string {
	style, ok := outcomeStyles[status]
	if !ok {
		style.label, style.tone = string(status), toneFail
	}
	return statusLine(style.label, style.tone, fmt.Sprint(count), colorize)
}

// checkTone maps a preflight result: optional failures only warn.
func checkTone(r preflight.Result) tone {
	switch {
	case r.Passed:
		return toneOK
	case r.Optional:
		return toneWarn
	default:
		return toneFail
	}
}

func statusLine(label string, t tone, detail string, colorize bool) string {
	style := toneStyles[t]
	line := fmt.Sprintf("  %-*s [%s]", labelWidth, label+":", style.tag)
	if detail != "" {
		line += " " + detail
	}
	if colorize {
		line = style.color + line + ansiReset
	}
	return line
}

// sectionHeader returns a title line and its underline, each newline-terminated.
func sectionHeader(title string, colorize bool) string {
	title = "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(title))
	if colorize {
		title, rule = ansiBlue+title+ansiReset, ansiBlue+rule+ansiReset
	}
	return title + "\n" + rule + "\n"
}

// colorEnabled reports whether w is a terminal and NO_COLOR is unset.
func colorEnabled(w io.Writer) bool {
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
