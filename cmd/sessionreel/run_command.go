package main

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"sessionreel/internal/batch"
	"sessionreel/internal/ledger"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var workers int
	var skipPublished bool
	var noLedger bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Render every schedule row and publish the results",
		Long: "Run discovers the configured composition, reads every schedule row once, " +
			"then renders and publishes each session. Individual failures are reported " +
			"in the summary; only setup failures exit non-zero.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, closeLog, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer closeLog()

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("%w: acquire lock: %w", batch.ErrSetup, err)
			}
			if !ok {
				return fmt.Errorf("%w: another sessionreel run holds %s", batch.ErrSetup, cfg.LockPath())
			}
			defer func() { _ = lock.Unlock() }()

			params := runnerParams{workers: workers, skipPublished: skipPublished || cfg.Workflow.SkipPublished}
			if !noLedger {
				store, err := ledger.Open(cfg.LedgerPath())
				if err != nil {
					return fmt.Errorf("%w: open ledger: %w", batch.ErrSetup, err)
				}
				defer store.Close()
				params.ledger = store
			} else if params.skipPublished {
				return errors.New("--skip-published needs the ledger; drop --no-ledger")
			}

			runner, err := buildRunner(cfg, logger, params)
			if err != nil {
				return err
			}
			report, runErr := runner.Run(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderReportSummary(report, colorEnabled(out)))
			return runErr
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Jobs to render and publish in parallel (default from config)")
	cmd.Flags().BoolVar(&skipPublished, "skip-published", false, "Skip jobs the ledger already shows as published")
	cmd.Flags().BoolVar(&noLedger, "no-ledger", false, "Do not record this run in the ledger")
	return cmd
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the jobs a run would render without rendering or publishing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, closeLog, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer closeLog()
			runner, err := buildRunner(cfg, logger, runnerParams{dryRun: true, workers: 1})
			if err != nil {
				return err
			}
			report, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(report.Entries) == 0 {
				fmt.Fprintln(out, "No schedule rows found")
				return nil
			}
			fmt.Fprintln(out, renderPlanTable(report))
			fmt.Fprint(out, renderReportSummary(report, colorEnabled(out)))
			return nil
		},
	}
}
