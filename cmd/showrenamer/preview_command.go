package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"showrenamer/internal/config"
)

// newPreviewCommand runs the full parse-match-plan pipeline for the named
// files and prints where each would land, applying nothing.
func newPreviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <file>...",
		Short: "Show where files would be renamed without touching them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.buildPipeline()
			if err != nil {
				return err
			}

			mode := p.cfg.OperationMode()
			if mode == config.ModeDryRun {
				mode = config.ModeRenameAndMove
			}

			var rows [][]string
			for _, path := range args {
				candidate, err := p.parser.Parse(path)
				if err != nil {
					rows = append(rows, []string{path, "-", fmt.Sprintf("unparsable: %v", err)})
					continue
				}
				result, err := p.matcher.Match(cmd.Context(), candidate)
				if err != nil {
					rows = append(rows, []string{path, "-", fmt.Sprintf("no match: %v", err)})
					continue
				}
				plan, err := p.executor.Build(path, result, mode)
				if err != nil {
					rows = append(rows, []string{path, "-", fmt.Sprintf("plan failed: %v", err)})
					continue
				}
				status := "would rename"
				if plan.NoOp() {
					status = "already in place"
				}
				rows = append(rows, []string{path, plan.Destination, status})
			}

			cmd.Println(renderTable(
				[]string{"Source", "Destination", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
