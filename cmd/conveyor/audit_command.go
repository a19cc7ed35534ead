package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"conveyor/internal/ipc"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AuditList(limit)
				if err != nil {
					return fmt.Errorf("list audit entries: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(out, "No audit entries")
					return nil
				}
				rows := make([][]string, 0, len(resp.Entries))
				for _, entry := range resp.Entries {
					actor := entry.ActorID
					if actor == "" {
						actor = entry.ActorType
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", entry.ID),
						entry.JobType,
						entry.FromState,
						entry.ToState,
						actor,
						entry.CreatedAt,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Job", "From", "To", "Actor", "At"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show")
	return cmd
}
