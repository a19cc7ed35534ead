package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"conveyor/internal/ipc"
)

func newUndoCommand(ctx *commandContext) *cobra.Command {
	undoCmd := &cobra.Command{
		Use:   "undo",
		Short: "List and revert recent bulk operations",
	}

	undoCmd.AddCommand(newUndoListCommand(ctx))
	undoCmd.AddCommand(newUndoRevertCommand(ctx))

	return undoCmd
}

func newUndoListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending undo entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.UndoList()
				if err != nil {
					return fmt.Errorf("list undo entries: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(out, "No pending undo entries")
					return nil
				}
				rows := make([][]string, 0, len(resp.Entries))
				for _, entry := range resp.Entries {
					rows = append(rows, []string{
						entry.ID,
						fmt.Sprintf("%s -> %s", entry.FromStatus, entry.ToStatus),
						fmt.Sprintf("%d", len(entry.SKUs)),
						fmt.Sprintf("%ds", entry.RemainingSeconds),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Transition", "SKUs", "Remaining"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func newUndoRevertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "revert <id>",
		Short: "Revert one pending bulk operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.UndoRevert(args[0]); err != nil {
					if strings.Contains(err.Error(), "expired") {
						return fmt.Errorf("undo entry %s has expired or does not exist", args[0])
					}
					return fmt.Errorf("revert: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Reverted")
				return nil
			})
		},
	}
}
