package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"showrenamer/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the tracked-file queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listQueue(ctx, cmd)
		},
	}

	queueCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show queue counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			var rows [][]string
			for _, status := range []queue.Status{
				queue.StatusNew, queue.StatusStable, queue.StatusMatched,
				queue.StatusFailed, queue.StatusRetrying,
			} {
				rows = append(rows, []string{string(status), strconv.Itoa(stats.ByStatus[status])})
			}
			rows = append(rows, []string{"total", strconv.Itoa(stats.Total)})
			cmd.Println(renderTable(
				[]string{"Status", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	})

	queueCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every tracked file from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			items, err := store.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := store.Remove(cmd.Context(), item.ID); err != nil {
					return err
				}
			}
			cmd.Printf("Removed %d tracked files.\n", len(items))
			return nil
		},
	})

	return queueCmd
}

func listQueue(ctx *commandContext, cmd *cobra.Command) error {
	store, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	items, err := store.ListAll(cmd.Context())
	if err != nil {
		return err
	}
	if len(items) == 0 {
		cmd.Println("Queue is empty.")
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		retry := "-"
		if item.NextRetryAt != nil {
			retry = item.NextRetryAt.Local().Format(time.RFC3339)
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Path,
			string(item.Status),
			fmt.Sprintf("%d", item.Attempts),
			item.FailureKind,
			retry,
		})
	}
	cmd.Println(renderTable(
		[]string{"ID", "Path", "Status", "Attempts", "Failure", "Next Retry"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}
