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

var chaseHeader = []string{"Transaction Date", "Post Date", "Description", "Category", "Type", "Amount", "Memo"}

// chaseParser handles Chase credit card exports.
type chaseParser struct{}

func init() {
	Register("chase", chaseParser{})
}

func (chaseParser) Parse(_ context.Context, r io.Reader, accountID int64) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &FormatError{Institution: "chase", Expected: chaseHeader}
	}
	if !headerMatches(header, chaseHeader) {
		return nil, &FormatError{Institution: "chase", Expected: chaseHeader, Got: header}
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
			slog.Warn("skipping unreadable line", "institution", "chase", "line", lineNum, "error", err)
			continue
		}
		if len(row) < 6 {
			slog.Warn("skipping malformed line", "institution", "chase", "line", lineNum)
			continue
		}

		txn, err := chaseRow(row, accountID)
		if err != nil {
			slog.Warn("skipping line", "institution", "chase", "line", lineNum, "error", err)
			continue
		}
		transactions = append(transactions, txn)
	}

	slog.Info("parsed chase transactions", "count", len(transactions))
	return transactions, nil
}

func chaseRow(row []string, accountID int64) (model.Transaction, error) {
	transDateStr := strings.TrimSpace(row[0])
	postDateStr := strings.TrimSpace(row[1])
	description := cleanField(row[2])
	category := cleanField(row[3])
	typeField := strings.TrimSpace(row[4])
	amountStr := strings.TrimSpace(row[5])
	memo := ""
	if len(row) > 6 {
		memo = cleanField(row[6])
	}

	if transDateStr == "" || amountStr == "" {
		return model.Transaction{}, errors.New("missing date or amount")
	}

	date, err := parseDate(transDateStr)
	if err != nil {
		return model.Transaction{}, err
	}
	postDate, err := parseDate(postDateStr)
	if err != nil {
		return model.Transaction{}, err
	}
	value, err := parseAmount(amountStr)
	if err != nil {
		return model.Transaction{}, err
	}

	// Chase credit card: negative = charge, positive = payment or refund.
	var txType model.TransactionType
	switch {
	case typeField == "Payment" || strings.Contains(strings.ToUpper(description), "AUTOMATIC PAYMENT"):
		txType = model.TypeTransfer
	case value.IsNegative():
		txType = model.TypeExpense
	default:
		txType = model.TypeIncome
	}

	txn := model.NewTransaction(rawLine(row), accountID, date, value.Abs(), description, txType)
	txn.PostDate = &postDate
	txn.BankCategory = category
	if memo != "" {
		txn.Metadata = map[string]string{"memo": memo}
	}
	return txn, nil
}
