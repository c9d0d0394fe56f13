package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"sessionreel/internal/planner"
)

func newTargetsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the compositions the renderer can produce",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			targets, err := buildEngine(cfg).Compositions(cmd.Context())
			if err != nil {
				return fmt.Errorf("discover targets: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(targets) == 0 {
				fmt.Fprintln(out, "No compositions found")
				return nil
			}
			sort.Slice(targets, func(i, j int) bool { return targets[i].ID < targets[j].ID })

			rows := make([][]string, 0, len(targets))
			for _, target := range targets {
				mode, _ := planner.DecideMode("", target)
				selected := ""
				if target.ID == cfg.Renderer.CompositionID {
					selected = "*"
				}
				rows = append(rows, []string{
					selected,
					target.ID,
					strconv.Itoa(target.DurationInFrames),
					strconv.FormatFloat(target.FPS, 'f', -1, 64),
					fmt.Sprintf("%dx%d", target.Width, target.Height),
					string(mode),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"", "ID", "Frames", "FPS", "Size", "Default Mode"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}
