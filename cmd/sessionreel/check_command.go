package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sessionreel/internal/preflight"
	"sessionreel/internal/publish"
	"sessionreel/internal/source"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, renderer toolchain, and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var remotes preflight.Remotes
			src, err := buildSource(cfg)
			if err != nil {
				return err
			}
			if auth, ok := src.(source.Authenticator); ok {
				remotes.Source = auth.Authenticate
			}
			uploader, err := buildUploader(cfg)
			if err != nil {
				return err
			}
			if checker, ok := uploader.(publish.Checker); ok {
				remotes.Publisher = checker.Check
			}

			results := preflight.RunAll(cmd.Context(), cfg, remotes)
			out := cmd.OutOrStdout()
			colorize := colorEnabled(out)
			if ctx.configPath != "" {
				fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			}
			fmt.Fprint(out, sectionHeader("Preflight", colorize))
			for _, r := range results {
				fmt.Fprintln(out, statusLine(r.Name, checkTone(r), r.Detail, colorize))
			}
			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}
