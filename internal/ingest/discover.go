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

var discoverHeader = []string{"Trans. Date", "Post Date", "Description", "Amount", "Category"}

// discoverParser handles Discover card exports.
type discoverParser struct{}

func init() {
	Register("discover", discoverParser{})
}

func (discoverParser) Parse(_ context.Context, r io.Reader, accountID int64) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &FormatError{Institution: "discover", Expected: discoverHeader}
	}
	if !headerMatches(header, discoverHeader) {
		return nil, &FormatError{Institution: "discover", Expected: discoverHeader, Got: header}
	}

	var transactions []model.Transaction
	lineNum := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if err != nil {
			slog.Warn("skipping unreadable line", "institution", "discover", "line", lineNum, "error", err)
			continue
		}
		if len(row) < 5 {
			slog.Warn("skipping malformed line", "institution", "discover", "line", lineNum)
			continue
		}

		transDateStr := strings.TrimSpace(row[0])
		postDateStr := strings.TrimSpace(row[1])
		description := cleanField(row[2])
		amountStr := strings.TrimSpace(row[3])
		category := cleanField(row[4])

		if transDateStr == "" || amountStr == "" {
			slog.Warn("skipping line with missing date/amount", "institution", "discover", "line", lineNum)
			continue
		}

		date, err := parseDate(transDateStr)
		if err != nil {
			slog.Warn("skipping line with invalid date", "institution", "discover", "line", lineNum, "error", err)
			continue
		}
		postDate, err := parseDate(postDateStr)
		if err != nil {
			slog.Warn("skipping line with invalid post date", "institution", "discover", "line", lineNum, "error", err)
			continue
		}
		value, err := parseAmount(amountStr)
		if err != nil {
			slog.Warn("skipping line with invalid amount", "institution", "discover", "line", lineNum, "error", err)
			continue
		}

		// Discover: positive = charge, negative = payment/credit. A full
		// balance direct payment is a transfer from checking, not income.
		var txType model.TransactionType
		switch {
		case category == "Payments and Credits" && strings.HasPrefix(description, "DIRECTPAY FULL BALANCE"):
			txType = model.TypeTransfer
		case value.IsNegative():
			txType = model.TypeIncome
		default:
			txType = model.TypeExpense
		}

		txn := model.NewTransaction(rawLine(row), accountID, date, value.Abs(), description, txType)
		txn.PostDate = &postDate
		txn.BankCategory = category
		transactions = append(transactions, txn)
	}

	slog.Info("parsed discover transactions", "count", len(transactions))
	return transactions, nil
}
