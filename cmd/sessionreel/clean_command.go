package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sessionreel/internal/assets"
	"sessionreel/internal/logging"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var (
		olderThan time.Duration
		dryRun    bool
		list      bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove rendered assets older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				files, err := assets.List(cfg.Paths.AssetDir)
				if err != nil {
					return fmt.Errorf("list assets: %w", err)
				}
				if len(files) == 0 {
					fmt.Fprintln(out, "No rendered assets")
					return nil
				}
				rows := make([][]string, 0, len(files))
				for _, f := range files {
					rows = append(rows, []string{f.Name, humanize.IBytes(uint64(f.Size)), f.ModTime.Local().Format("2006-01-02 15:04")})
				}
				fmt.Fprintln(out, renderTable([]string{"File", "Size", "Modified"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			}

			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			logger, closeLog, err := ctx.logger()
			if err != nil {
				return err
			}
			defer closeLog()
			result := assets.CleanStale(cmd.Context(), cfg.Paths.AssetDir, olderThan, dryRun,
				logging.NewComponentLogger(logger, "assets"))

			verb := "Removed"
			if dryRun {
				verb = "Would remove"
			}
			fmt.Fprintf(out, "%s %d file(s), %s\n", verb, len(result.Removed), humanize.IBytes(uint64(result.Freed)))
			if len(result.Errors) > 0 {
				for _, e := range result.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", e.Path, e.Error)
				}
				return fmt.Errorf("%d asset(s) could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Remove assets last modified before this age")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be removed without deleting")
	cmd.Flags().BoolVar(&list, "list", false, "List rendered assets instead of cleaning")
	return cmd
}
