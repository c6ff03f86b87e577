package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkellner/basis/internal/engine"
	"github.com/mkellner/basis/internal/export"
)

func exportCmd() *cobra.Command {
	var (
		from    string
		to      string
		account string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions to a review CSV",
		Long: `Write a period's transactions to a CSV for manual review. Edit the
category and amortize_months columns in a spreadsheet, then feed the file
back with 'basis apply'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			start, end, err := parsePeriod(from, to)
			if err != nil {
				return err
			}
			// Widen the end to cover its whole month.
			end = end.AddDate(0, 1, -1)

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var accountID *int64
			if account != "" {
				acct, err := store.GetAccountByName(ctx, account)
				if err != nil {
					return fmt.Errorf("failed to resolve account %q: %w", account, err)
				}
				accountID = &acct.ID
			}

			transactions, err := store.GetTransactionsByDateRange(ctx, start, end, accountID)
			if err != nil {
				return fmt.Errorf("failed to load transactions: %w", err)
			}
			categories, err := store.ListCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}

			w := os.Stdout
			if out != "" {
				f, err := os.Create(out) //nolint:gosec // output path comes from the user's own CLI invocation
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			if err := export.WriteReview(w, transactions, categories); err != nil {
				return fmt.Errorf("failed to write review file: %w", err)
			}

			if out != "" {
				fmt.Printf("Exported %d transactions to %s\n", len(transactions), out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first month of the period (YYYY-MM, required)")
	cmd.Flags().StringVar(&to, "to", "", "last month of the period (YYYY-MM, defaults to --from)")
	cmd.Flags().StringVar(&account, "account", "", "restrict to one account")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <review-file>",
		Short: "Apply an edited review CSV",
		Long: `Read back a review CSV and apply its decisions: filled-in categories are
assigned, blank categories with a pending suggestion promote the suggestion,
and amortize_months values schedule accrual windows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			rows, err := export.ParseReview(f)
			if err != nil {
				return fmt.Errorf("failed to parse review file: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			result, err := engine.NewReviewer(store).Apply(ctx, rows)
			if err != nil {
				return err
			}

			fmt.Printf("Applied review: %d categorized, %d suggestions promoted, %d amortized\n",
				result.Categorized, result.Promoted, result.Amortized)
			return nil
		},
	}
}
