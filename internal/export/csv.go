// Package export writes transactions to a review CSV and reads the edited
// file back. The review file is the manual categorization surface: the user
// fills in the category column in a spreadsheet and feeds the file back.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mkellner/basis/internal/model"
)

var reviewHeader = []string{
	"id",
	"account_id",
	"date",
	"post_date",
	"amount",
	"type",
	"description",
	"bank_category",
	"category",
	"suggested_category",
	"suggested_merchant",
	"amortize_months",
	"amortize_end",
}

// WriteReview writes transactions as a review CSV. The category column holds
// the user's current assignment; suggested_* columns are advisory and ignored
// on the way back in except when category is left blank.
func WriteReview(w io.Writer, transactions []model.Transaction, categories []model.Category) error {
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(reviewHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, t := range transactions {
		var category, suggested, months, amortizeEnd, postDate string
		if t.CategoryID != nil {
			category = names[*t.CategoryID]
		}
		if t.AutoCategoryID != nil {
			suggested = names[*t.AutoCategoryID]
		}
		if t.AmortizeMonths != nil {
			months = strconv.Itoa(*t.AmortizeMonths)
		}
		if t.AmortizeEndDate != nil {
			amortizeEnd = t.AmortizeEndDate.Format("2006-01-02")
		}
		if t.PostDate != nil {
			postDate = t.PostDate.Format("2006-01-02")
		}

		record := []string{
			t.ID,
			strconv.FormatInt(t.AccountID, 10),
			t.TransactionDate.Format("2006-01-02"),
			postDate,
			t.Amount.String(),
			string(t.Type),
			t.Description,
			t.BankCategory,
			category,
			suggested,
			t.AutoMerchantName,
			months,
			amortizeEnd,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", t.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReviewRow is one edited line of a review CSV.
type ReviewRow struct {
	TransactionID  string
	Category       string
	AmortizeMonths int
}

// ParseReview reads back an edited review CSV. Only the columns the user may
// edit are extracted; everything else in the file is informational.
func ParseReview(r io.Reader) ([]ReviewRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"id", "category", "amortize_months"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("review file missing %q column", required)
		}
	}

	field := func(record []string, name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []ReviewRow
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read review row %d: %w", line, err)
		}

		row := ReviewRow{
			TransactionID: field(record, "id"),
			Category:      field(record, "category"),
		}
		if row.TransactionID == "" {
			continue
		}

		if raw := field(record, "amortize_months"); raw != "" {
			months, err := strconv.Atoi(raw)
			if err != nil {
				slog.Warn("skipping row with invalid amortize_months",
					"row", line, "value", raw, "transaction", row.TransactionID)
				continue
			}
			row.AmortizeMonths = months
		}

		rows = append(rows, row)
	}

	return rows, nil
}
