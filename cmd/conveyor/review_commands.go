package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"conveyor/internal/ipc"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Run filter-driven bulk operations through a daemon review session",
	}

	reviewCmd.AddCommand(newReviewSelectCommand(ctx))
	reviewCmd.AddCommand(newReviewApplyCommand(ctx))
	reviewCmd.AddCommand(newReviewDeleteCommand(ctx))
	reviewCmd.AddCommand(newReviewConsolidateCommand(ctx))

	return reviewCmd
}

// reviewFilters holds the flags shared by all review subcommands. The
// selection is always drawn server-side from every product matching them.
type reviewFilters struct {
	tab           string
	search        string
	brand         string
	category      string
	minConfidence float64
}

func (f *reviewFilters) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tab, "tab", "", "Status tab the selection is drawn from (required)")
	cmd.Flags().StringVar(&f.search, "search", "", "Match SKU or name substring")
	cmd.Flags().StringVar(&f.brand, "brand", "", "Filter by brand")
	cmd.Flags().StringVar(&f.category, "category", "", "Filter by category")
	cmd.Flags().Float64Var(&f.minConfidence, "min-confidence", 0, "Minimum confidence score")
	_ = cmd.MarkFlagRequired("tab")
}

// openMatchingSelection opens a session, applies the filters, and selects
// every matching SKU. The caller must close the returned session id.
func openMatchingSelection(client *ipc.Client, actor string, filters reviewFilters) (string, int, error) {
	opened, err := client.SessionOpen(actor)
	if err != nil {
		return "", 0, fmt.Errorf("open session: %w", err)
	}
	sessionID := opened.SessionID

	if err := client.SessionFilter(ipc.SessionFilterRequest{
		SessionID:     sessionID,
		Status:        filters.tab,
		Search:        filters.search,
		Brand:         filters.brand,
		Category:      filters.category,
		MinConfidence: filters.minConfidence,
	}); err != nil {
		_, _ = client.SessionClose(sessionID)
		return "", 0, fmt.Errorf("set filter: %w", err)
	}

	selected, err := client.SessionSelectAll(sessionID)
	if err != nil {
		_, _ = client.SessionClose(sessionID)
		return "", 0, fmt.Errorf("select matching: %w", err)
	}
	return sessionID, selected.SelectedCount, nil
}

func newReviewSelectCommand(ctx *commandContext) *cobra.Command {
	var filters reviewFilters

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Count the products a filter would select",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				sessionID, count, err := openMatchingSelection(client, "", filters)
				if err != nil {
					return err
				}
				defer func() { _, _ = client.SessionClose(sessionID) }()
				fmt.Fprintf(cmd.OutOrStdout(), "%d product(s) match in %s\n", count, filters.tab)
				return nil
			})
		},
	}

	filters.register(cmd)
	return cmd
}

func newReviewApplyCommand(ctx *commandContext) *cobra.Command {
	var (
		filters reviewFilters
		actor   string
	)

	cmd := &cobra.Command{
		Use:   "apply <action>",
		Short: "Apply a pipeline action to every product matching a filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := args[0]
			return ctx.withClient(func(client *ipc.Client) error {
				sessionID, count, err := openMatchingSelection(client, actor, filters)
				if err != nil {
					return err
				}
				defer func() { _, _ = client.SessionClose(sessionID) }()

				if count == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No products match")
					return nil
				}
				resp, err := client.SessionApply(sessionID, action)
				if err != nil {
					return fmt.Errorf("review %s: %w", action, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d product(s) to %s\n", resp.UpdatedCount, resp.TargetStatus)
				return nil
			})
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&actor, "actor", "", "Actor id recorded in the audit log")
	return cmd
}

func newReviewDeleteCommand(ctx *commandContext) *cobra.Command {
	var (
		filters reviewFilters
		actor   string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Permanently delete every product matching a filter (not undoable)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				sessionID, count, err := openMatchingSelection(client, actor, filters)
				if err != nil {
					return err
				}
				defer func() { _, _ = client.SessionClose(sessionID) }()

				if count == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No products match")
					return nil
				}
				if !force {
					if !confirm(cmd, fmt.Sprintf(
						"Permanently delete %d product(s)? This cannot be undone. [y/N] ", count)) {
						fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
						return nil
					}
				}
				resp, err := client.SessionDelete(sessionID)
				if err != nil {
					return fmt.Errorf("review delete: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d product(s)\n", resp.DeletedCount)
				return nil
			})
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&actor, "actor", "", "Actor id recorded in the audit log")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	return cmd
}

func newReviewConsolidateCommand(ctx *commandContext) *cobra.Command {
	var (
		filters reviewFilters
		actor   string
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Submit every product matching a filter as a consolidation batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				sessionID, count, err := openMatchingSelection(client, actor, filters)
				if err != nil {
					return err
				}
				defer func() { _, _ = client.SessionClose(sessionID) }()

				if count == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No products match")
					return nil
				}
				resp, err := client.SessionConsolidate(sessionID)
				if err != nil {
					return fmt.Errorf("review consolidate: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted batch %s (%d SKUs)\n", resp.BatchID, count)
				if watch {
					return watchBatch(cmd, client, resp.BatchID)
				}
				return nil
			})
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&actor, "actor", "", "Actor id recorded in the audit log")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow progress until the batch finishes")
	return cmd
}
