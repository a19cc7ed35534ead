package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"conveyor/internal/ipc"
)

func newBulkCommand(ctx *commandContext) *cobra.Command {
	bulkCmd := &cobra.Command{
		Use:   "bulk",
		Short: "Apply bulk operations to explicit SKU sets",
	}

	bulkCmd.AddCommand(newBulkApplyCommand(ctx))
	bulkCmd.AddCommand(newBulkDeleteCommand(ctx))

	return bulkCmd
}

func newBulkApplyCommand(ctx *commandContext) *cobra.Command {
	var (
		tab   string
		actor string
	)

	cmd := &cobra.Command{
		Use:   "apply <action> <sku>...",
		Short: "Apply a pipeline action (consolidate, approve, publish, reject) to SKUs",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := args[0]
			skus := args[1:]
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BulkTransition(ipc.BulkTransitionRequest{
					Tab:    tab,
					Action: action,
					SKUs:   skus,
					Actor:  actor,
				})
				if err != nil {
					return fmt.Errorf("bulk %s: %w", action, err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Updated %d product(s) to %s\n", resp.UpdatedCount, resp.TargetStatus)
				if resp.UndoID != "" {
					fmt.Fprintf(out, "Undo within 30s: conveyor undo revert %s\n", resp.UndoID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tab, "tab", "", "Status tab the SKUs are viewed from (required)")
	cmd.Flags().StringVar(&actor, "actor", "", "Actor id recorded in the audit log")
	_ = cmd.MarkFlagRequired("tab")
	return cmd
}

func newBulkDeleteCommand(ctx *commandContext) *cobra.Command {
	var (
		tab   string
		actor string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "delete <sku>...",
		Short: "Permanently delete SKUs (not undoable)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if !confirm(cmd, fmt.Sprintf(
					"Permanently delete %d product(s)? This cannot be undone. [y/N] ", len(args))) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BulkDelete(ipc.BulkDeleteRequest{
					Tab:   tab,
					SKUs:  args,
					Actor: actor,
				})
				if err != nil {
					return fmt.Errorf("bulk delete: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d product(s)\n", resp.DeletedCount)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tab, "tab", "", "Status tab the SKUs are viewed from (required)")
	cmd.Flags().StringVar(&actor, "actor", "", "Actor id recorded in the audit log")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("tab")
	return cmd
}
