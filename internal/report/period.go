// Package report folds month queries into period reports, with the cash and
// accrual views computed independently and returned side by side.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkellner/basis/internal/accrual"
	"github.com/mkellner/basis/internal/model"
	"github.com/mkellner/basis/internal/service"
)

// PeriodTransactions holds raw transaction lists keyed by "YYYY/MM". Every
// month in the requested range is present, even when empty.
type PeriodTransactions struct {
	CashBasis    map[string][]model.Transaction
	AccrualBasis map[string][]model.Transaction
}

// Summary is one month's totals under a single basis. Income and Expenses are
// non-negative; transfers contribute to neither. Uncategorized expenses are
// bucketed under model.UncategorizedID.
type Summary struct {
	ExpensesByCategory map[int64]decimal.Decimal
	Income             decimal.Decimal
	Expenses           decimal.Decimal
	Net                decimal.Decimal
}

// PeriodSummary holds per-month summaries keyed by "YYYY/MM" for each basis.
type PeriodSummary struct {
	CashBasis    map[string]Summary
	AccrualBasis map[string]Summary
}

// Aggregator iterates month ranges and folds engine results.
type Aggregator struct {
	engine *accrual.Engine
}

// NewAggregator creates a period aggregator over an accrual engine.
func NewAggregator(engine *accrual.Engine) *Aggregator {
	return &Aggregator{engine: engine}
}

// MonthKey formats a month as "YYYY/MM".
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d/%02d", year, int(month))
}

// PeriodTransactions returns both basis views for every month between start
// and end inclusive. Day components are ignored.
func (a *Aggregator) PeriodTransactions(ctx context.Context, start, end time.Time, categoryIDs []int64) (*PeriodTransactions, error) {
	result := &PeriodTransactions{
		CashBasis:    make(map[string][]model.Transaction),
		AccrualBasis: make(map[string][]model.Transaction),
	}
	filter := service.MonthFilter{CategoryIDs: categoryIDs}

	for _, ym := range monthRange(start, end) {
		cash, err := a.engine.CashBasis(ctx, ym.year, ym.month, filter)
		if err != nil {
			return nil, err
		}
		accrued, err := a.engine.AccrualBasis(ctx, ym.year, ym.month, filter)
		if err != nil {
			return nil, err
		}

		key := MonthKey(ym.year, ym.month)
		result.CashBasis[key] = cash
		result.AccrualBasis[key] = accrued
	}
	return result, nil
}

// PeriodSummary returns per-month totals for every month between start and
// end inclusive, for both bases.
func (a *Aggregator) PeriodSummary(ctx context.Context, start, end time.Time, categoryIDs []int64) (*PeriodSummary, error) {
	txns, err := a.PeriodTransactions(ctx, start, end, categoryIDs)
	if err != nil {
		return nil, err
	}

	result := &PeriodSummary{
		CashBasis:    make(map[string]Summary, len(txns.CashBasis)),
		AccrualBasis: make(map[string]Summary, len(txns.AccrualBasis)),
	}
	for key, monthTxns := range txns.CashBasis {
		result.CashBasis[key] = summarize(monthTxns)
	}
	for key, monthTxns := range txns.AccrualBasis {
		result.AccrualBasis[key] = summarize(monthTxns)
	}
	return result, nil
}

func summarize(txns []model.Transaction) Summary {
	s := Summary{
		ExpensesByCategory: make(map[int64]decimal.Decimal),
	}
	for _, txn := range txns {
		switch txn.Type {
		case model.TypeIncome:
			s.Income = s.Income.Add(txn.Amount)
		case model.TypeExpense:
			s.Expenses = s.Expenses.Add(txn.Amount)
			categoryID := model.UncategorizedID
			if txn.CategoryID != nil {
				categoryID = *txn.CategoryID
			}
			s.ExpensesByCategory[categoryID] = s.ExpensesByCategory[categoryID].Add(txn.Amount)
		case model.TypeTransfer:
			// Transfers move money between owned accounts; not income or expense.
		}
	}
	s.Net = s.Income.Sub(s.Expenses)
	return s
}

type yearMonth struct {
	year  int
	month time.Month
}

func monthRange(start, end time.Time) []yearMonth {
	var months []yearMonth
	year, month := start.Year(), start.Month()
	endYear, endMonth := end.Year(), end.Month()

	for year < endYear || (year == endYear && month <= endMonth) {
		months = append(months, yearMonth{year: year, month: month})
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return months
}
