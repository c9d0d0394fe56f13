package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sessionreel/internal/batch"
	"sessionreel/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs, or the entries of one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if runID != "" {
				entries, err := store.Entries(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintf(out, "No entries recorded for run %s\n", runID)
					return nil
				}
				fmt.Fprintln(out, renderEntriesTable(entries))
				return nil
			}

			runs, err := store.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunsTable(runs))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Show entries for this run id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	return cmd
}

func renderRunsTable(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		finished := "running"
		if run.FinishedAt != nil {
			finished = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		failed := 0
		for _, status := range batch.Statuses {
			if status.Failed() {
				failed += run.Summary[string(status)]
			}
		}
		rows = append(rows, []string{
			run.ID,
			run.TargetID,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			finished,
			strconv.Itoa(run.Summary[string(batch.StatusPublished)]),
			strconv.Itoa(run.Summary[string(batch.StatusSkippedPublished)]),
			strconv.Itoa(failed),
		})
	}
	return renderTable(
		[]string{"Run", "Target", "Started", "Duration", "Published", "Skipped", "Failed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderEntriesTable(entries []ledger.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		detail := e.RemoteLink
		if e.ErrorMessage != "" {
			detail = truncate(e.ErrorKind+": "+e.ErrorMessage, 60)
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Row),
			e.JobID,
			e.Mode,
			e.Status,
			e.Destination,
			detail,
		})
	}
	return renderTable(
		[]string{"Row", "Job", "Mode", "Status", "Destination", "Detail"},
		rows,
		[]columnAlignment{alignRight},
	)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
