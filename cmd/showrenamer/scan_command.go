package main

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"
)

// newScanCommand lists every video file currently in the watch directories
// with its parse outcome, without queuing or renaming anything.
func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List video files in the watch directories and how they parse",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.buildPipeline()
			if err != nil {
				return err
			}

			var rows [][]string
			for _, dir := range p.cfg.Paths.WatchDirs {
				err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
					if err != nil {
						return err
					}
					if entry.IsDir() || !p.cfg.IsVideoFile(path) {
						return nil
					}
					candidate, parseErr := p.parser.Parse(path)
					if parseErr != nil {
						rows = append(rows, []string{path, "-", "-", "unparsable"})
						return nil
					}
					rows = append(rows, []string{
						path, candidate.Title, candidate.Label(), "ok",
					})
					return nil
				})
				if err != nil {
					return fmt.Errorf("scan %s: %w", dir, err)
				}
			}

			if len(rows) == 0 {
				cmd.Println("No video files found in the watch directories.")
				return nil
			}
			cmd.Println(renderTable(
				[]string{"File", "Title", "Episode", "Parse"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
