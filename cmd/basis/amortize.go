package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mkellner/basis/internal/accrual"
)

func amortizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "amortize <transaction-id> <months>",
		Short: "Spread a transaction across months for accrual reporting",
		Long: `Schedule a transaction for amortization. A transaction dated Jan 15
amortized over 12 months is accrued in equal slices from January through
December; any month touched by the window gets a full slice.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			transactionID := args[0]

			months, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid month count %q: %w", args[1], err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			txn, err := store.GetTransactionByID(ctx, transactionID)
			if err != nil {
				return fmt.Errorf("failed to load transaction %s: %w", transactionID, err)
			}

			if err := accrual.Schedule(txn, months); err != nil {
				return err
			}

			if err := store.UpdateAmortization(ctx, txn.ID, *txn.AmortizeMonths, *txn.AmortizeEndDate); err != nil {
				return fmt.Errorf("failed to save amortization: %w", err)
			}

			fmt.Printf("Amortizing %s over %d months (through %s)\n",
				txn.ID, months, txn.AmortizeEndDate.Format("2006-01-02"))
			return nil
		},
	}
}
