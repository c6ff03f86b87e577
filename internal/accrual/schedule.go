// Package accrual implements amortization scheduling and the accrual-basis
// query engine.
//
// Scheduling follows a month-boundary convention: any month touched by the
// start date or the window gets a full month of accrual, so a transaction
// dated Jan 15 spread over 12 months ends Dec 31 of the same year.
package accrual

import (
	"fmt"
	"time"

	"github.com/mkellner/basis/internal/model"
)

// InvalidMonthsError is returned when an amortization period is not a
// positive month count.
type InvalidMonthsError struct {
	Months int
}

func (e *InvalidMonthsError) Error() string {
	return fmt.Sprintf("invalid amortization period: %d months (must be >= 1)", e.Months)
}

// EndDate computes the amortization window end: start plus (months-1)
// calendar months, clamped to the last day of the resulting month.
func EndDate(start time.Time, months int) (time.Time, error) {
	if months < 1 {
		return time.Time{}, &InvalidMonthsError{Months: months}
	}
	year, month, _ := start.Date()
	// Day zero of the following month normalizes to the last day we want.
	return time.Date(year, month+time.Month(months), 0, 0, 0, 0, 0, start.Location()), nil
}

// Schedule marks a transaction for amortization over the given number of
// months. The transition is one-way; calling it again overwrites the window.
func Schedule(txn *model.Transaction, months int) error {
	end, err := EndDate(txn.TransactionDate, months)
	if err != nil {
		return err
	}
	txn.AmortizeMonths = &months
	txn.AmortizeEndDate = &end
	return nil
}
