package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"conveyor/internal/ipc"
)

func newProductsCommand(ctx *commandContext) *cobra.Command {
	productsCmd := &cobra.Command{
		Use:   "products",
		Short: "Inspect and manage catalog products",
	}

	productsCmd.AddCommand(newProductsListCommand(ctx))
	productsCmd.AddCommand(newProductsShowCommand(ctx))
	productsCmd.AddCommand(newProductsCountsCommand(ctx))
	productsCmd.AddCommand(newProductsRetryCommand(ctx))

	return productsCmd
}

func newProductsListCommand(ctx *commandContext) *cobra.Command {
	var (
		status        string
		search        string
		brand         string
		category      string
		minConfidence float64
		offset        int
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products in one status tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ProductList(ipc.ProductListRequest{
					Status:        status,
					Search:        search,
					Brand:         brand,
					Category:      category,
					MinConfidence: minConfidence,
					Offset:        offset,
					Limit:         limit,
				})
				if err != nil {
					return fmt.Errorf("list products: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(resp.Products) == 0 {
					fmt.Fprintf(out, "No products in %s\n", status)
					return nil
				}

				rows := make([][]string, 0, len(resp.Products))
				for _, product := range resp.Products {
					rows = append(rows, []string{
						product.SKU,
						product.Name,
						product.Brand,
						product.Category,
						fmt.Sprintf("%.2f", product.Confidence),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"SKU", "Name", "Brand", "Category", "Confidence"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				fmt.Fprintf(out, "Showing %d of %d\n", len(resp.Products), resp.TotalCount)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "staging", "Status tab to list")
	cmd.Flags().StringVar(&search, "search", "", "Substring match on SKU or name")
	cmd.Flags().StringVar(&brand, "brand", "", "Exact brand filter")
	cmd.Flags().StringVar(&category, "category", "", "Exact category filter")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Minimum confidence score")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	cmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	return cmd
}

func newProductsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <sku>",
		Short: "Show one product in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ProductDescribe(args[0])
				if err != nil {
					return fmt.Errorf("describe product: %w", err)
				}
				product := resp.Product

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "SKU:        %s\n", product.SKU)
				fmt.Fprintf(out, "Name:       %s\n", product.Name)
				fmt.Fprintf(out, "Brand:      %s\n", product.Brand)
				fmt.Fprintf(out, "Category:   %s\n", product.Category)
				fmt.Fprintf(out, "Status:     %s\n", product.Status)
				fmt.Fprintf(out, "Confidence: %.2f\n", product.Confidence)
				if product.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:      %s\n", product.ErrorMessage)
					fmt.Fprintf(out, "Retries:    %d\n", product.RetryCount)
				}
				if len(product.Consolidated) > 0 {
					fmt.Fprintf(out, "Consolidated: %s\n", string(product.Consolidated))
				}
				return nil
			})
		},
	}
}

func newProductsCountsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show per-status product counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StatusCounts()
				if err != nil {
					return fmt.Errorf("fetch counts: %w", err)
				}
				rows := make([][]string, 0, len(resp.Counts))
				for _, count := range resp.Counts {
					rows = append(rows, []string{count.Status, fmt.Sprintf("%d", count.Count)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Products"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newProductsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <sku>...",
		Short: "Move failed products back into the pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				var failed []string
				for _, sku := range args {
					if _, err := client.ProductRetry(sku); err != nil {
						failed = append(failed, fmt.Sprintf("%s: %v", sku, err))
						continue
					}
					fmt.Fprintf(out, "Retried %s\n", sku)
				}
				if len(failed) > 0 {
					return fmt.Errorf("retry failed for %d product(s):\n  %s",
						len(failed), strings.Join(failed, "\n  "))
				}
				return nil
			})
		},
	}
}
