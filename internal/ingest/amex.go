package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mkellner/basis/internal/model"
)

var amexHeader = []string{
	"Date", "Description", "Amount", "Extended Details",
	"Appears On Your Statement As", "Address", "City/State",
	"Zip Code", "Country", "Reference", "Category",
}

// amexParser handles American Express card exports. Extended Details and
// other fields may contain newlines within quoted fields.
type amexParser struct{}

func init() {
	Register("amex", amexParser{})
}

func (amexParser) Parse(_ context.Context, r io.Reader, accountID int64) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &FormatError{Institution: "amex", Expected: amexHeader}
	}
	if !headerMatches(header, amexHeader) {
		return nil, &FormatError{Institution: "amex", Expected: amexHeader, Got: header}
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
			slog.Warn("skipping unreadable line", "institution", "amex", "line", lineNum, "error", err)
			continue
		}
		if len(row) < 3 {
			slog.Warn("skipping malformed line", "institution", "amex", "line", lineNum)
			continue
		}

		dateStr := strings.TrimSpace(row[0])
		description := cleanField(row[1])
		amountStr := strings.TrimSpace(row[2])
		if dateStr == "" || amountStr == "" {
			slog.Warn("skipping line with missing date/amount", "institution", "amex", "line", lineNum)
			continue
		}

		date, err := parseDate(dateStr)
		if err != nil {
			slog.Warn("skipping line with invalid date", "institution", "amex", "line", lineNum, "error", err)
			continue
		}
		value, err := parseAmount(amountStr)
		if err != nil {
			slog.Warn("skipping line with invalid amount", "institution", "amex", "line", lineNum, "error", err)
			continue
		}

		field := func(i int) string {
			if len(row) > i {
				return cleanField(row[i])
			}
			return ""
		}

		metadata := make(map[string]string)
		if v := field(3); v != "" {
			metadata["extended_details"] = v
		}
		if v := field(4); v != "" && v != description {
			metadata["appears_as"] = v
		}
		if v := field(5); v != "" {
			metadata["address"] = v
		}
		if v := field(6); v != "" {
			metadata["city_state"] = v
		}
		if v := field(7); v != "" {
			metadata["zip_code"] = v
		}
		if v := field(8); v != "" {
			metadata["country"] = v
		}
		if v := strings.Trim(field(9), "'"); v != "" {
			metadata["reference"] = v
		}
		if len(metadata) == 0 {
			metadata = nil
		}

		// AMEX: positive = charge, negative = payment/credit.
		var txType model.TransactionType
		switch {
		case value.IsNegative() && strings.Contains(strings.ToUpper(description), "AUTOPAY PAYMENT"):
			txType = model.TypeTransfer
		case value.IsNegative():
			txType = model.TypeIncome
		default:
			txType = model.TypeExpense
		}

		txn := model.NewTransaction(rawLine(row), accountID, date, value.Abs(), description, txType)
		txn.BankCategory = field(10)
		txn.Metadata = metadata
		transactions = append(transactions, txn)
	}

	slog.Info(fmt.Sprintf("parsed %d amex transactions", len(transactions)))
	return transactions, nil
}
