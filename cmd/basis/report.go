package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkellner/basis/internal/accrual"
	"github.com/mkellner/basis/internal/model"
	"github.com/mkellner/basis/internal/report"
	"github.com/mkellner/basis/internal/service"
)

const monthArgFormat = "2006-01"

func reportCmd() *cobra.Command {
	var (
		from       string
		to         string
		categories []string
		basis      string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report income and expenses by month",
		Long: `Summarize income, expenses, and per-category expense totals for each month
in a period. The cash basis reports transactions in the month they occurred;
the accrual basis spreads amortized transactions across their windows.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			start, end, err := parsePeriod(from, to)
			if err != nil {
				return err
			}
			if basis != "cash" && basis != "accrual" && basis != "both" {
				return fmt.Errorf("invalid basis %q (want cash, accrual, or both)", basis)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categoryIDs, err := resolveCategoryIDs(ctx, store, categories)
			if err != nil {
				return err
			}

			aggregator := report.NewAggregator(accrual.NewEngine(store))
			summary, err := aggregator.PeriodSummary(ctx, start, end, categoryIDs)
			if err != nil {
				return fmt.Errorf("failed to build report: %w", err)
			}

			names, err := categoryNames(ctx, store)
			if err != nil {
				return err
			}

			if basis == "cash" || basis == "both" {
				printBasis("Cash basis", summary.CashBasis, names)
			}
			if basis == "accrual" || basis == "both" {
				printBasis("Accrual basis", summary.AccrualBasis, names)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first month of the period (YYYY-MM, required)")
	cmd.Flags().StringVar(&to, "to", "", "last month of the period (YYYY-MM, defaults to --from)")
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "restrict to these categories (names or ids)")
	cmd.Flags().StringVar(&basis, "basis", "both", "which basis to report (cash, accrual, both)")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func parsePeriod(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(monthArgFormat, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from month %q: %w", from, err)
	}
	if to == "" {
		return start, start, nil
	}
	end, err := time.Parse(monthArgFormat, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --to month %q: %w", to, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return start, end, nil
}

func categoryNames(ctx context.Context, store service.Storage) (map[int64]string, error) {
	categories, err := store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	names := make(map[int64]string, len(categories)+1)
	names[model.UncategorizedID] = "(uncategorized)"
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

func printBasis(title string, months map[string]report.Summary, names map[int64]string) {
	keys := make([]string, 0, len(months))
	for key := range months {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Printf("\n%s\n", title)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Month\tIncome\tExpenses\tNet")
	for _, key := range keys {
		s := months[key]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			key, s.Income.StringFixed(2), s.Expenses.StringFixed(2), s.Net.StringFixed(2))
	}
	_ = w.Flush()

	for _, key := range keys {
		s := months[key]
		if len(s.ExpensesByCategory) == 0 {
			continue
		}

		ids := make([]int64, 0, len(s.ExpensesByCategory))
		for id := range s.ExpensesByCategory {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		fmt.Printf("\n%s expenses by category:\n", key)
		cw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, id := range ids {
			name := names[id]
			if name == "" {
				name = fmt.Sprintf("category %d", id)
			}
			fmt.Fprintf(cw, "  %s\t%s\n", name, s.ExpensesByCategory[id].StringFixed(2))
		}
		_ = cw.Flush()
	}
}
