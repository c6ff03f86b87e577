package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType describes the direction of money movement.
type TransactionType string

const (
	// TypeIncome represents money coming into an account.
	TypeIncome TransactionType = "income"
	// TypeExpense represents money leaving an account.
	TypeExpense TransactionType = "expense"
	// TypeTransfer represents movement between owned accounts, such as a
	// credit card payment. Transfers never contribute to totals.
	TypeTransfer TransactionType = "transfer"
)

// Transaction is the canonical record produced by a statement parser.
//
// The ID is a sha256 hex digest of the raw source row, so re-ingesting the
// same export is idempotent and two legitimate repeated charges (which differ
// somewhere in the raw row, typically a reference number) stay distinct.
type Transaction struct {
	TransactionDate  time.Time
	PostDate         *time.Time
	AmortizeEndDate  *time.Time
	Metadata         map[string]string
	ID               string
	Description      string
	BankCategory     string
	AutoMerchantName string
	Type             TransactionType
	Amount           decimal.Decimal
	AccountID        int64
	DataImportID     int64
	CategoryID       *int64
	AutoCategoryID   *int64
	AmortizeMonths   *int

	// Accrued marks a transient view produced by the accrual engine, with
	// TransactionDate and Amount recomputed. Never persisted.
	Accrued bool
}

// Checksum returns the content hash used as a transaction ID.
func Checksum(rawLine string) string {
	sum := sha256.Sum256([]byte(rawLine))
	return fmt.Sprintf("%x", sum)
}

// NewTransaction builds a canonical transaction from a raw source row,
// deriving the ID from the row's content.
func NewTransaction(rawLine string, accountID int64, date time.Time, amount decimal.Decimal, description string, txType TransactionType) Transaction {
	return Transaction{
		ID:              Checksum(rawLine),
		AccountID:       accountID,
		TransactionDate: date,
		Description:     description,
		Amount:          amount,
		Type:            txType,
	}
}

// Amortized reports whether this transaction has been scheduled for accrual.
func (t *Transaction) Amortized() bool {
	return t.AmortizeMonths != nil && t.AmortizeEndDate != nil
}
