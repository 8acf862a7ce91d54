package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"showrenamer/internal/audit"
	"showrenamer/internal/fileutil"
)

// newUndoCommand reverts the most recent applied rename by moving the file
// back to its original path and recording the reversal on the trail.
func newUndoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the most recent applied rename",
		RunE: func(cmd *cobra.Command, args []string) error {
			trail, err := ctx.trail()
			if err != nil {
				return err
			}

			record, err := trail.LastApplied()
			if err != nil {
				return err
			}
			if record == nil {
				return errors.New("nothing to undo")
			}

			if _, err := os.Stat(record.Destination); err != nil {
				return fmt.Errorf("renamed file no longer at %s: %w", record.Destination, err)
			}
			if _, err := os.Stat(record.Source); err == nil {
				return fmt.Errorf("original path %s is occupied", record.Source)
			} else if !os.IsNotExist(err) {
				return fmt.Errorf("check original path: %w", err)
			}

			if err := os.MkdirAll(filepath.Dir(record.Source), 0o755); err != nil {
				return fmt.Errorf("recreate source directory: %w", err)
			}
			if err := fileutil.MoveFile(record.Destination, record.Source); err != nil {
				return fmt.Errorf("move file back: %w", err)
			}

			if _, err := trail.Append(audit.Record{
				Action:      audit.ActionUndone,
				Source:      record.Destination,
				Destination: record.Source,
				Series:      record.Series,
				Season:      record.Season,
				Episodes:    record.Episodes,
				Reason:      record.ID,
			}); err != nil {
				return fmt.Errorf("record undo: %w", err)
			}

			cmd.Printf("Restored %s\n", record.Source)
			return nil
		},
	}
}
