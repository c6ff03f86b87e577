package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkellner/basis/internal/accrual"
	"github.com/mkellner/basis/internal/common"
	"github.com/mkellner/basis/internal/export"
	"github.com/mkellner/basis/internal/model"
	"github.com/mkellner/basis/internal/service"
)

// ReviewResult summarizes one review application run.
type ReviewResult struct {
	Categorized int
	Promoted    int
	Amortized   int
}

// Reviewer applies edited review CSV rows back to the database.
type Reviewer struct {
	store service.Storage
}

// NewReviewer creates a Reviewer.
func NewReviewer(store service.Storage) *Reviewer {
	return &Reviewer{store: store}
}

// Apply writes the user's review decisions back. The rules:
//
//   - a filled-in category column always wins and becomes the assignment;
//   - a blank category on a transaction that has a pending suggestion
//     promotes the suggestion to the real assignment;
//   - a positive amortize_months schedules the transaction for accrual.
//
// Unknown category names abort the whole run before anything is written, so
// a typo in a spreadsheet can't half-apply a review.
func (r *Reviewer) Apply(ctx context.Context, rows []export.ReviewRow) (*ReviewResult, error) {
	categories, err := r.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	categoryIDs := make(map[string]int64, len(categories))
	for _, c := range categories {
		categoryIDs[strings.ToLower(c.Name)] = c.ID
	}

	var unknown []string
	for _, row := range rows {
		if row.Category == "" {
			continue
		}
		if _, ok := categoryIDs[strings.ToLower(row.Category)]; !ok {
			unknown = append(unknown, row.Category)
		}
	}
	if len(unknown) > 0 {
		return nil, common.NewUserError(
			fmt.Sprintf("unknown categories in review file: %s", strings.Join(unknown, ", ")), nil)
	}

	var (
		categorized []model.Transaction
		amortized   []model.Transaction
		result      ReviewResult
	)

	for _, row := range rows {
		txn, err := r.store.GetTransactionByID(ctx, row.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load transaction %s: %w", row.TransactionID, err)
		}

		switch {
		case row.Category != "":
			id := categoryIDs[strings.ToLower(row.Category)]
			if txn.CategoryID == nil || *txn.CategoryID != id {
				categorized = append(categorized, model.Transaction{ID: txn.ID, CategoryID: &id})
				result.Categorized++
			}
		case txn.CategoryID == nil && txn.AutoCategoryID != nil:
			id := *txn.AutoCategoryID
			categorized = append(categorized, model.Transaction{ID: txn.ID, CategoryID: &id})
			result.Promoted++
		}

		if row.AmortizeMonths > 0 {
			if txn.AmortizeMonths != nil && *txn.AmortizeMonths == row.AmortizeMonths {
				continue
			}
			if err := accrual.Schedule(txn, row.AmortizeMonths); err != nil {
				return nil, fmt.Errorf("failed to schedule %s: %w", txn.ID, err)
			}
			amortized = append(amortized, *txn)
			result.Amortized++
		}
	}

	if len(categorized) > 0 {
		if _, err := r.store.BatchUpdateCategories(ctx, categorized); err != nil {
			return nil, fmt.Errorf("failed to apply categories: %w", err)
		}
	}
	if len(amortized) > 0 {
		if _, err := r.store.BatchUpdateAmortization(ctx, amortized); err != nil {
			return nil, fmt.Errorf("failed to apply amortization: %w", err)
		}
	}

	return &result, nil
}
