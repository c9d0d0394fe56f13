package main

import (
	"fmt"
	"strconv"
	"strings"

	"sessionreel/internal/batch"
	"sessionreel/internal/services"
)

// renderReportSummary prints one count line per outcome category followed by
// the failing rows.
func renderReportSummary(report batch.Report, colorize bool) string {
	var b strings.Builder
	b.WriteString(sectionHeader("Run "+report.RunID, colorize))
	if report.Fatal {
		b.WriteString(statusLine("Setup", toneFail, services.Classify(report.FatalErr), colorize) + "\n")
		return b.String()
	}
	if report.Target.ID != "" {
		b.WriteString(statusLine("Target", toneInfo,
			fmt.Sprintf("%s (%d frames)", report.Target.ID, report.Target.DurationInFrames), colorize) + "\n")
	}
	summary := report.Summary()
	for _, status := range batch.Statuses {
		n := summary[string(status)]
		if n == 0 {
			continue
		}
		b.WriteString(outcomeLine(status, n, colorize) + "\n")
	}
	if len(report.Entries) == 0 {
		b.WriteString(statusLine("Rows", toneInfo, "none", colorize) + "\n")
	}
	for _, entry := range report.Failures() {
		label := fmt.Sprintf("Row %d", entry.Row)
		if entry.JobID != "" {
			label += " " + entry.JobID
		}
		b.WriteString(statusLine(label, toneFail, truncate(errorText(entry.Err), 100), colorize) + "\n")
	}
	return b.String()
}

func renderPlanTable(report batch.Report) string {
	rows := make([][]string, 0, len(report.Entries))
	for _, entry := range report.Entries {
		dest := entry.Destination
		if entry.Fallback {
			dest += " (default)"
		}
		rows = append(rows, []string{
			strconv.Itoa(entry.Row),
			entry.JobID,
			entry.Title,
			string(entry.Mode),
			entry.ModeReason,
			dest,
			string(entry.Status),
		})
	}
	return renderTable(
		[]string{"Row", "Job", "Title", "Mode", "Reason", "Destination", "Status"},
		rows,
		[]columnAlignment{alignRight},
	)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
