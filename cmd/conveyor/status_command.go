package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"conveyor/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and catalog counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return fmt.Errorf("fetch status: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Running:  %s\n", yesNo(status.Running))
				fmt.Fprintf(out, "PID:      %d\n", status.PID)
				fmt.Fprintf(out, "Database: %s\n", status.DatabasePath)
				if status.APIAddr != "" {
					fmt.Fprintf(out, "API:      %s\n", status.APIAddr)
				}
				if status.StartedAt != "" {
					fmt.Fprintf(out, "Started:  %s\n", status.StartedAt)
				}

				if len(status.StatusCounts) > 0 {
					rows := make([][]string, 0, len(status.StatusCounts))
					for _, count := range status.StatusCounts {
						rows = append(rows, []string{count.Status, fmt.Sprintf("%d", count.Count)})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Status", "Products"},
						rows,
						[]columnAlignment{alignLeft, alignRight},
					))
				}
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the conveyor daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return fmt.Errorf("stop daemon: %w", err)
				}
				if resp.Stopped {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Stop request sent")
				}
				return nil
			})
		},
	}
}
