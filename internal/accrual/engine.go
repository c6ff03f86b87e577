package accrual

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkellner/basis/internal/model"
	"github.com/mkellner/basis/internal/service"
)

// Engine answers month queries under the two accounting bases.
type Engine struct {
	store service.Storage
}

// NewEngine creates an accrual engine over the given storage.
func NewEngine(store service.Storage) *Engine {
	return &Engine{store: store}
}

// CashBasis returns the non-amortized transactions dated in the given month.
func (e *Engine) CashBasis(ctx context.Context, year int, month time.Month, filter service.MonthFilter) ([]model.Transaction, error) {
	txns, err := e.store.GetTransactionsByMonth(ctx, year, month, true, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query cash-basis transactions: %w", err)
	}
	return txns, nil
}

// AccrualBasis returns one synthetic slice per amortized transaction whose
// window covers the given month. Each slice is a view: the date is reset to
// the first of the month and the amount is the per-month share, rounded to
// cents. Slices are never persisted.
//
// Because each month is rounded independently, the slices of one transaction
// may sum to up to (months-1) cents away from the original amount.
func (e *Engine) AccrualBasis(ctx context.Context, year int, month time.Month, filter service.MonthFilter) ([]model.Transaction, error) {
	matches, err := e.store.GetAmortizedTransactionsCovering(ctx, year, month, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query amortized transactions: %w", err)
	}

	slices := make([]model.Transaction, 0, len(matches))
	for _, txn := range matches {
		if txn.AmortizeMonths == nil || *txn.AmortizeMonths < 1 {
			continue
		}
		slice := txn
		slice.TransactionDate = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		slice.Amount = txn.Amount.DivRound(decimal.NewFromInt(int64(*txn.AmortizeMonths)), 2)
		slice.Accrued = true
		slices = append(slices, slice)
	}
	return slices, nil
}
