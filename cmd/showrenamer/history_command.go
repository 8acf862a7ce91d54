package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var forPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent rename outcomes from the audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			trail, err := ctx.trail()
			if err != nil {
				return err
			}

			records, err := trail.Recent(limit)
			if err != nil {
				return err
			}
			if forPath != "" {
				records, err = trail.ForPath(forPath)
				if err != nil {
					return err
				}
			}
			if len(records) == 0 {
				cmd.Println("No audit records yet.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				detail := record.Destination
				if record.Action == "failed" {
					detail = fmt.Sprintf("%s: %s", record.FailureKind, record.Reason)
				}
				rows = append(rows, []string{
					record.Timestamp.Local().Format(time.RFC3339),
					record.Action,
					record.Source,
					detail,
				})
			}
			cmd.Println(renderTable(
				[]string{"Time", "Action", "Source", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum records to show")
	cmd.Flags().StringVar(&forPath, "path", "", "Only show records touching this path")
	return cmd
}
