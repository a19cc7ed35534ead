package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"conveyor/internal/catalog"
	"conveyor/internal/ipc"
	"conveyor/internal/progress"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Submit and track consolidation batches",
	}

	batchCmd.AddCommand(newBatchSubmitCommand(ctx))
	batchCmd.AddCommand(newBatchListCommand(ctx))
	batchCmd.AddCommand(newBatchShowCommand(ctx))
	batchCmd.AddCommand(newBatchApplyCommand(ctx))
	batchCmd.AddCommand(newBatchWatchCommand(ctx))

	return batchCmd
}

func newBatchSubmitCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "submit <sku>...",
		Short: "Submit SKUs for consolidation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BatchSubmit(args)
				if err != nil {
					return fmt.Errorf("submit batch: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted batch %s (%d SKUs)\n", resp.BatchID, len(args))
				if watch {
					return watchBatch(cmd, client, resp.BatchID)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow progress until the batch finishes")
	return cmd
}

func newBatchListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BatchList(limit)
				if err != nil {
					return fmt.Errorf("list batches: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(resp.Batches) == 0 {
					fmt.Fprintln(out, "No batches")
					return nil
				}
				rows := make([][]string, 0, len(resp.Batches))
				for _, batch := range resp.Batches {
					rows = append(rows, []string{
						batch.ID,
						batch.Status,
						fmt.Sprintf("%d%%", batch.Progress),
						fmt.Sprintf("%d/%d", batch.ProcessedCount, batch.TotalCount),
						fmt.Sprintf("%d", batch.FailedCount),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Status", "Progress", "Processed", "Failed"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum batches to show")
	return cmd
}

func newBatchShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one batch in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BatchDescribe(args[0])
				if err != nil {
					return fmt.Errorf("describe batch: %w", err)
				}
				batch := resp.Batch
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", batch.ID)
				fmt.Fprintf(out, "Status:    %s\n", batch.Status)
				fmt.Fprintf(out, "Progress:  %d%%\n", batch.Progress)
				fmt.Fprintf(out, "Processed: %d/%d\n", batch.ProcessedCount, batch.TotalCount)
				fmt.Fprintf(out, "Failed:    %d\n", batch.FailedCount)
				if batch.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:     %s\n", batch.ErrorMessage)
				}
				return nil
			})
		},
	}
}

func newBatchApplyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <id>",
		Short: "Move a completed batch's products to consolidated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BatchApply(args[0])
				if err != nil {
					return fmt.Errorf("apply batch: %w", err)
				}
				if resp.Applied {
					fmt.Fprintln(cmd.OutOrStdout(), "Batch applied")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to apply (batch not completed, already applied, or empty)")
				}
				return nil
			})
		},
	}
}

func newBatchWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Follow a batch's progress until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				return watchBatch(cmd, client, args[0])
			})
		},
	}
}

// watchBatch follows a batch through the progress tracker and prints a line
// whenever its progress or status changes. The tracker streams the daemon's
// event feed and degrades to status polling when the feed is unavailable.
func watchBatch(cmd *cobra.Command, client *ipc.Client, batchID string) error {
	out := cmd.OutOrStdout()

	// The batch may have finished before the watch started; the event buffer
	// alone cannot prove that.
	described, err := client.BatchDescribe(batchID)
	if err != nil {
		return fmt.Errorf("describe batch: %w", err)
	}
	if catalog.BatchStatus(described.Batch.Status).IsTerminal() {
		fmt.Fprintf(out, "%s  %3d%%  %s\n", described.Batch.Status, described.Batch.Progress, batchID)
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	source := ipc.NewTrackerSource(client)
	tracker := progress.NewTracker(source, source, progress.Options{})
	tracker.SubscribeToBatch(batchID)
	tracker.Connect(ctx)
	defer tracker.Close()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	lastProgress := -1
	var lastStatus catalog.BatchStatus
	var lastConn progress.ConnectionStatus
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if conn := tracker.ConnectionStatus(); conn != lastConn {
			if conn == progress.StatusDegraded {
				fmt.Fprintln(out, "event feed unavailable, polling for updates")
			}
			lastConn = conn
		}

		state, ok := tracker.Snapshot(batchID)
		if !ok {
			continue
		}
		if state.Progress != lastProgress || state.Status != lastStatus {
			lastProgress = state.Progress
			lastStatus = state.Status
			fmt.Fprintf(out, "%s  %3d%%  %s\n", state.Status, state.Progress, batchID)
		}
		if state.Terminal {
			return nil
		}
	}
}
