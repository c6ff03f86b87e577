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

var bofaccHeader = []string{"Posted Date", "Reference Number", "Payee", "Address", "Amount"}

// bofaccParser handles Bank of America credit card exports.
type bofaccParser struct{}

func init() {
	Register("bofacc", bofaccParser{})
}

func (bofaccParser) Parse(_ context.Context, r io.Reader, accountID int64) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &FormatError{Institution: "bofacc", Expected: bofaccHeader}
	}
	if !headerMatches(header, bofaccHeader) {
		return nil, &FormatError{Institution: "bofacc", Expected: bofaccHeader, Got: header}
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
			slog.Warn("skipping unreadable line", "institution", "bofacc", "line", lineNum, "error", err)
			continue
		}
		if len(row) < 5 {
			slog.Warn("skipping malformed line", "institution", "bofacc", "line", lineNum)
			continue
		}

		txn, err := bofaccRow(row, accountID)
		if err != nil {
			slog.Warn("skipping line", "institution", "bofacc", "line", lineNum, "error", err)
			continue
		}
		transactions = append(transactions, txn)
	}

	slog.Info("parsed bofacc transactions", "count", len(transactions))
	return transactions, nil
}

func bofaccRow(row []string, accountID int64) (model.Transaction, error) {
	dateStr := strings.TrimSpace(row[0])
	reference := strings.TrimSpace(row[1])
	payee := cleanField(row[2])
	address := cleanField(row[3])
	amountStr := strings.TrimSpace(row[4])

	if dateStr == "" || amountStr == "" {
		return model.Transaction{}, errors.New("missing date or amount")
	}

	date, err := parseDate(dateStr)
	if err != nil {
		return model.Transaction{}, err
	}
	value, err := parseAmount(amountStr)
	if err != nil {
		return model.Transaction{}, err
	}

	// BofA CC: negative = charge, positive = payment toward the card.
	txType := model.TypeExpense
	if value.IsPositive() {
		txType = model.TypeTransfer
	}

	txn := model.NewTransaction(rawLine(row), accountID, date, value.Abs(), payee, txType)
	txn.Metadata = map[string]string{
		"reference_number": reference,
		"address":          address,
	}
	return txn, nil
}
