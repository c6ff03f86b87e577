package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/mkellner/basis/internal/model"
)

var bofaHeader = []string{"Date", "Description", "Amount", "Running Bal."}

// Descriptions that are really credit card payments from this checking
// account; they must not count as expenses.
var bofaTransferPrefixes = []string{
	"DISCOVER DES:E-PAYMENT",
	"CHASE CREDIT CRD DES:AUTOPAY",
	"AMERICAN EXPRESS DES:ACH PMT",
}

// bofaParser handles Bank of America checking exports, which carry a
// several-line account summary before the transaction header.
type bofaParser struct{}

func init() {
	Register("bofa", bofaParser{})
}

func (bofaParser) Parse(_ context.Context, r io.Reader, accountID int64) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	// Skip the summary section; the transaction header marks the real start.
	lineNum := 0
	found := false
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if err != nil {
			continue
		}
		if headerMatches(row, bofaHeader) {
			found = true
			break
		}
	}
	if !found {
		return nil, &FormatError{Institution: "bofa", Expected: bofaHeader}
	}

	var transactions []model.Transaction
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if err != nil {
			slog.Warn("skipping unreadable line", "institution", "bofa", "line", lineNum, "error", err)
			continue
		}
		if len(row) < 4 {
			slog.Warn("skipping malformed line", "institution", "bofa", "line", lineNum)
			continue
		}

		dateStr := strings.TrimSpace(row[0])
		description := cleanField(row[1])
		amountStr := cleanField(row[2])
		runningBalance := cleanField(row[3])
		if dateStr == "" || amountStr == "" {
			slog.Warn("skipping line with missing date/amount", "institution", "bofa", "line", lineNum)
			continue
		}

		date, err := parseDate(dateStr)
		if err != nil {
			slog.Warn("skipping line with invalid date", "institution", "bofa", "line", lineNum, "error", err)
			continue
		}
		value, err := parseAmount(amountStr)
		if err != nil {
			slog.Warn("skipping line with invalid amount", "institution", "bofa", "line", lineNum, "error", err)
			continue
		}

		txType := model.TypeIncome
		if value.IsNegative() {
			txType = model.TypeExpense
		}
		for _, prefix := range bofaTransferPrefixes {
			if strings.HasPrefix(description, prefix) {
				txType = model.TypeTransfer
				break
			}
		}

		txn := model.NewTransaction(rawLine(row), accountID, date, value.Abs(), description, txType)
		txn.Metadata = map[string]string{"running_balance": runningBalance}
		transactions = append(transactions, txn)
	}

	slog.Info("parsed bofa transactions", "count", len(transactions))
	return transactions, nil
}
