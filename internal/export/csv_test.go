package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkellner/basis/internal/model"
)

func TestWriteReviewAndParseBack(t *testing.T) {
	groceryID := int64(1)
	travelID := int64(2)
	months := 12

	categories := []model.Category{
		{ID: groceryID, Name: "Groceries"},
		{ID: travelID, Name: "Travel"},
	}
	transactions := []model.Transaction{
		{
			ID:              "aaa",
			TransactionDate: time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
			Amount:          decimal.RequireFromString("85.25"),
			Type:            model.TypeExpense,
			Description:     "GROCERY STORE",
			CategoryID:      &groceryID,
		},
		{
			ID:               "bbb",
			TransactionDate:  time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC),
			Amount:           decimal.RequireFromString("300.00"),
			Type:             model.TypeExpense,
			Description:      "AIRLINE, INC",
			AutoCategoryID:   &travelID,
			AutoMerchantName: "Some Airline",
			AmortizeMonths:   &months,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReview(&buf, transactions, categories))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "id,account_id,date,post_date,amount,"))
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "Some Airline")
	assert.Contains(t, out, `"AIRLINE, INC"`, "embedded commas survive quoting")

	rows, err := ParseReview(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "aaa", rows[0].TransactionID)
	assert.Equal(t, "Groceries", rows[0].Category)
	assert.Equal(t, 0, rows[0].AmortizeMonths)

	assert.Equal(t, "bbb", rows[1].TransactionID)
	assert.Equal(t, "", rows[1].Category, "suggested category does not round-trip into the user column")
	assert.Equal(t, 12, rows[1].AmortizeMonths)
}

func TestParseReviewToleratesColumnReordering(t *testing.T) {
	input := "category,id,amortize_months\nGroceries,aaa,\n,bbb,6\n"

	rows, err := ParseReview(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "aaa", rows[0].TransactionID)
	assert.Equal(t, "Groceries", rows[0].Category)
	assert.Equal(t, 6, rows[1].AmortizeMonths)
}

func TestParseReviewRejectsMissingColumns(t *testing.T) {
	_, err := ParseReview(strings.NewReader("id,description\naaa,foo\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category")
}

func TestParseReviewSkipsBadMonths(t *testing.T) {
	input := "id,category,amortize_months\naaa,,twelve\nbbb,Groceries,3\n"

	rows, err := ParseReview(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1, "rows with unparseable months are skipped, not fatal")
	assert.Equal(t, "bbb", rows[0].TransactionID)
	assert.Equal(t, 3, rows[0].AmortizeMonths)
}

func TestParseReviewSkipsBlankIDs(t *testing.T) {
	input := "id,category,amortize_months\n,Groceries,\naaa,Travel,\n"

	rows, err := ParseReview(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "aaa", rows[0].TransactionID)
}
