package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkellner/basis/internal/common"
	"github.com/mkellner/basis/internal/model"
	"github.com/mkellner/basis/internal/service"
	"github.com/mkellner/basis/internal/testutil"
)

func TestSaveTransactionsIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t, "amex")
	ctx := context.Background()

	batch := []model.Transaction{
		newTxn(t, db, "2024-01-15", "4.50", "COFFEE,row-1"),
		newTxn(t, db, "2024-01-16", "85.25", "GROCERIES,row-2"),
	}

	inserted, err := db.Storage.SaveTransactions(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Same batch again: content hashes collide, nothing is inserted.
	inserted, err = db.Storage.SaveTransactions(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	all, err := db.Storage.GetTransactionsByAccount(ctx, db.Account.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSaveTransactionsPartialOverlap(t *testing.T) {
	db := testutil.SetupTestDB(t, "amex")
	ctx := context.Background()

	first := []model.Transaction{newTxn(t, db, "2024-01-15", "4.50", "COFFEE,row-1")}
	_, err := db.Storage.SaveTransactions(ctx, first)
	require.NoError(t, err)

	second := []model.Transaction{
		newTxn(t, db, "2024-01-15", "4.50", "COFFEE,row-1"),
		newTxn(t, db, "2024-01-17", "12.00", "LUNCH,row-3"),
	}
	inserted, err := db.Storage.SaveTransactions(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted, "only the new row counts")
}

func TestTransactionRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t, "amex")
	ctx := context.Background()

	post := time.Date(2024, time.January, 17, 0, 0, 0, 0, time.UTC)
	txn := newTxn(t, db, "2024-01-15", "42.50", "FULL ROW")
	txn.PostDate = &post
	txn.BankCategory = "Merchandise"
	txn.Metadata = map[string]string{"reference": "REF001", "memo": "note"}

	_, err := db.Storage.SaveTransactions(ctx, []model.Transaction{txn})
	require.NoError(t, err)

	got, err := db.Storage.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)

	assert.Equal(t, txn.ID, got.ID)
	assert.True(t, txn.Amount.Equal(got.Amount))
	assert.Equal(t, txn.TransactionDate, got.TransactionDate)
	require.NotNil(t, got.PostDate)
	assert.Equal(t, post, *got.PostDate)
	assert.Equal(t, "Merchandise", got.BankCategory)
	assert.Equal(t, txn.Metadata, got.Metadata)
	assert.Nil(t, got.CategoryID)
	assert.Nil(t, got.AmortizeMonths)
}

func TestGetTransactionByIDNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t, "amex")

	_, err := db.Storage.GetTransactionByID(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateTransactionCategory(t *testing.T) {
	db := testutil.SetupTestDB(t, "amex", "Groceries")
	ctx := context.Background()

	txn := db.Transaction("2024-01-15", "85.25", "GROCERY STORE", model.TypeExpense)
	categoryID := db.Categories["Groceries"].ID

	require.NoError(t, db.Storage.UpdateTransactionCategory(ctx, txn.ID, &categoryID))

	got, err := db.Storage.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, categoryID, *got.CategoryID)

	// Clearing works too.
	require.NoError(t, db.Storage.UpdateTransactionCategory(ctx, txn.ID, nil))
	got, err = db.Storage.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)

	assert.ErrorIs(t, db.Storage.UpdateTransactionCategory(ctx, "missing", &categoryID), common.ErrNotFound)
}

func TestGetTransactionsByMonthFilters(t *testing.T) {
	db := testutil.SetupTestDB(t, "amex", "Groceries", "Travel")
	ctx := context.Background()

	groceries := db.Transaction("2024-01-10", "85.25", "GROCERY STORE", model.TypeExpense)
	travel := db.Transaction("2024-01-20", "300.00", "AIRLINE", model.TypeExpense)
	db.Transaction("2024-02-01", "10.00", "FEBRUARY", model.TypeExpense)

	groceryID := db.Categories["Groceries"].ID
	travelID := db.Categories["Travel"].ID
	require.NoError(t, db.Storage.UpdateTransactionCategory(ctx, groceries.ID, &groceryID))
	require.NoError(t, db.Storage.UpdateTransactionCategory(ctx, travel.ID, &travelID))

	january, err := db.Storage.GetTransactionsByMonth(ctx, 2024, time.January, false, service.MonthFilter{})
	require.NoError(t, err)
	assert.Len(t, january, 2, "february stays out of january")

	onlyTravel, err := db.Storage.GetTransactionsByMonth(ctx, 2024, time.January, false,
		service.MonthFilter{CategoryIDs: []int64{travelID}})
	require.NoError(t, err)
	require.Len(t, onlyTravel, 1)
	assert.Equal(t, travel.ID, onlyTravel[0].ID)

	other := int64(9999)
	none, err := db.Storage.GetTransactionsByMonth(ctx, 2024, time.January, false,
		service.MonthFilter{AccountID: &other})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAmortizedWindowQueries(t *testing.T) {
	db := testutil.SetupTestDB(t, "amex")
	ctx := context.Background()

	txn := db.Transaction("2024-01-15", "120.00", "LICENSE", model.TypeExpense)
	end := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Storage.UpdateAmortization(ctx, txn.ID, 3, end))

	// Excluded from the plain month query when asked.
	cash, err := db.Storage.GetTransactionsByMonth(ctx, 2024, time.January, true, service.MonthFilter{})
	require.NoError(t, err)
	assert.Empty(t, cash)

	// Covered months see it; outside months don't.
	for _, month := range []time.Month{time.January, time.February, time.March} {
		covering, err := db.Storage.GetAmortizedTransactionsCovering(ctx, 2024, month, service.MonthFilter{})
		require.NoError(t, err)
		require.Len(t, covering, 1, "month %s", month)
		require.NotNil(t, covering[0].AmortizeMonths)
		assert.Equal(t, 3, *covering[0].AmortizeMonths)
	}
	outside, err := db.Storage.GetAmortizedTransactionsCovering(ctx, 2024, time.April, service.MonthFilter{})
	require.NoError(t, err)
	assert.Empty(t, outside)
}

func TestBatchUpdateAutoSuggestions(t *testing.T) {
	db := testutil.SetupTestDB(t, "amex", "Groceries")
	ctx := context.Background()

	txn := db.Transaction("2024-01-15", "85.25", "WHOLEFDS PDX 10245", model.TypeExpense)
	categoryID := db.Categories["Groceries"].ID

	updated, err := db.Storage.BatchUpdateAutoSuggestions(ctx, []model.Suggestion{
		{TransactionID: txn.ID, MerchantName: "Whole Foods", CategoryID: &categoryID, Confidence: 0.92},
		{TransactionID: "unknown-id", MerchantName: "Nowhere", Confidence: 0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated, "unknown ids are skipped, not errors")

	got, err := db.Storage.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "Whole Foods", got.AutoMerchantName)
	require.NotNil(t, got.AutoCategoryID)
	assert.Equal(t, categoryID, *got.AutoCategoryID)
	assert.Nil(t, got.CategoryID, "suggestions never touch the user assignment")
}

func TestFindHistoricalForSuggestion(t *testing.T) {
	db := testutil.SetupTestDB(t, "amex", "Groceries")
	ctx := context.Background()

	recent := db.Transaction(time.Now().AddDate(0, 0, -10).Format("2006-01-02"), "85.25", "RECENT", model.TypeExpense)
	old := db.Transaction(time.Now().AddDate(0, 0, -400).Format("2006-01-02"), "12.00", "ANCIENT", model.TypeExpense)
	uncategorized := db.Transaction(time.Now().AddDate(0, 0, -5).Format("2006-01-02"), "9.99", "PENDING", model.TypeExpense)
	_ = uncategorized

	categoryID := db.Categories["Groceries"].ID
	require.NoError(t, db.Storage.UpdateTransactionCategory(ctx, recent.ID, &categoryID))
	require.NoError(t, db.Storage.UpdateTransactionCategory(ctx, old.ID, &categoryID))

	history, err := db.Storage.FindHistoricalForSuggestion(ctx, db.Account.ID, 365)
	require.NoError(t, err)
	require.Len(t, history, 1, "only categorized transactions inside the window")
	assert.Equal(t, recent.ID, history[0].ID)
}

func TestCategoryHierarchyRejectsCycles(t *testing.T) {
	db := testutil.SetupTestDB(t, "amex", "Food", "Groceries", "Produce")
	ctx := context.Background()

	food := db.Categories["Food"].ID
	groceries := db.Categories["Groceries"].ID
	produce := db.Categories["Produce"].ID

	require.NoError(t, db.Storage.SetCategoryParent(ctx, groceries, &food))
	require.NoError(t, db.Storage.SetCategoryParent(ctx, produce, &groceries))

	// Closing the loop at any depth is rejected.
	assert.ErrorIs(t, db.Storage.SetCategoryParent(ctx, food, &produce), common.ErrCategoryCycle)
	assert.ErrorIs(t, db.Storage.SetCategoryParent(ctx, food, &groceries), common.ErrCategoryCycle)
	assert.ErrorIs(t, db.Storage.SetCategoryParent(ctx, food, &food), common.ErrCategoryCycle)

	// Reparenting within the tree is fine.
	require.NoError(t, db.Storage.SetCategoryParent(ctx, produce, &food))

	// Clearing a parent works.
	require.NoError(t, db.Storage.SetCategoryParent(ctx, groceries, nil))
	got, err := db.Storage.GetCategoryByID(ctx, groceries)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
}

func TestDataImportProvenance(t *testing.T) {
	db := testutil.SetupTestDB(t, "amex")
	ctx := context.Background()

	first, err := db.Storage.CreateDataImport(ctx, db.Account.ID, "jan.csv")
	require.NoError(t, err)
	second, err := db.Storage.CreateDataImport(ctx, db.Account.ID, "feb.csv")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	imports, err := db.Storage.GetDataImportsByAccount(ctx, db.Account.ID)
	require.NoError(t, err)
	require.Len(t, imports, 2)
	assert.Equal(t, second.ID, imports[0].ID, "newest first")
}

func newTxn(t *testing.T, db *testutil.TestDB, date, amount, raw string) model.Transaction {
	t.Helper()
	day, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	return model.NewTransaction(raw, db.Account.ID, day, decimal.RequireFromString(amount), raw, model.TypeExpense)
}
