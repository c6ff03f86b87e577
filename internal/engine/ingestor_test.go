package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkellner/basis/internal/engine"
	"github.com/mkellner/basis/internal/model"
	"github.com/mkellner/basis/internal/testutil"
)

const chaseStatement = `Transaction Date,Post Date,Description,Category,Type,Amount,Memo
01/15/2024,01/17/2024,GROCERY STORE,Groceries,Sale,-85.25,
01/20/2024,01/20/2024,AUTOMATIC PAYMENT - THANK,,Payment,500.00,
01/22/2024,01/23/2024,COFFEE SHOP,Food & Drink,Sale,-4.50,
`

func writeStatement(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestIngestEndToEnd(t *testing.T) {
	db := testutil.SetupTestDB(t, "chase")
	ingestor := engine.NewIngestor(db.Storage, nil)
	ctx := context.Background()

	path := writeStatement(t, chaseStatement)

	result, err := ingestor.Ingest(ctx, db.Account.Name, path)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Parsed)
	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 0, result.Skipped)

	stored, err := db.Storage.GetTransactionsByAccount(ctx, db.Account.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, txn := range stored {
		assert.Equal(t, db.Account.ID, txn.AccountID)
		assert.NotZero(t, txn.DataImportID, "every row carries import provenance")
	}

	imports, err := db.Storage.GetDataImportsByAccount(ctx, db.Account.ID)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, "statement.csv", imports[0].Filename)
}

func TestIngestTwiceSkipsDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t, "chase")
	ingestor := engine.NewIngestor(db.Storage, nil)
	ctx := context.Background()

	path := writeStatement(t, chaseStatement)

	_, err := ingestor.Ingest(ctx, db.Account.Name, path)
	require.NoError(t, err)

	second, err := ingestor.Ingest(ctx, db.Account.Name, path)
	require.NoError(t, err)
	assert.Equal(t, 3, second.Parsed)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Skipped)

	stored, err := db.Storage.GetTransactionsByAccount(ctx, db.Account.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestIngestUnknownAccount(t *testing.T) {
	db := testutil.SetupTestDB(t, "chase")
	ingestor := engine.NewIngestor(db.Storage, nil)

	_, err := ingestor.Ingest(context.Background(), "nobody", writeStatement(t, chaseStatement))
	require.Error(t, err)
}

func TestIngestMalformedFileAborts(t *testing.T) {
	db := testutil.SetupTestDB(t, "chase")
	ingestor := engine.NewIngestor(db.Storage, nil)
	ctx := context.Background()

	path := writeStatement(t, "Wrong,Header,Entirely\n01/15/2024,foo,-1.00\n")

	_, err := ingestor.Ingest(ctx, db.Account.Name, path)
	require.Error(t, err)

	stored, err := db.Storage.GetTransactionsByAccount(ctx, db.Account.ID)
	require.NoError(t, err)
	assert.Empty(t, stored, "a rejected file writes nothing")
}

func TestIngestArchivesFile(t *testing.T) {
	db := testutil.SetupTestDB(t, "chase")
	archiveDir := t.TempDir()
	ingestor := engine.NewIngestor(db.Storage, nil, engine.WithArchiveDir(archiveDir))

	result, err := ingestor.Ingest(context.Background(), db.Account.Name, writeStatement(t, chaseStatement))
	require.NoError(t, err)
	require.NotEmpty(t, result.Archived)

	info, err := os.Stat(result.Archived)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.Equal(t, ".gz", filepath.Ext(result.Archived))
}

// failingSuggester simulates a broken suggestion backend.
type failingSuggester struct {
	panics bool
}

func (f failingSuggester) Suggest(_ context.Context, _ []model.Transaction, _ []model.Category, _ []model.Transaction) ([]model.Suggestion, error) {
	if f.panics {
		panic("suggester exploded")
	}
	return nil, errors.New("backend unavailable")
}

func TestIngestSurvivesSuggesterFailure(t *testing.T) {
	for _, tt := range []struct {
		name   string
		panics bool
	}{
		{"error", false},
		{"panic", true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t, "chase")
			ingestor := engine.NewIngestor(db.Storage, failingSuggester{panics: tt.panics})
			ctx := context.Background()

			result, err := ingestor.Ingest(ctx, db.Account.Name, writeStatement(t, chaseStatement))
			require.NoError(t, err, "suggestion failures never fail ingestion")
			assert.Equal(t, 3, result.Inserted)
			assert.Equal(t, 0, result.Suggested)

			stored, err := db.Storage.GetTransactionsByAccount(ctx, db.Account.ID)
			require.NoError(t, err)
			assert.Len(t, stored, 3, "transactions are durable before the suggester runs")
		})
	}
}

// recordingSuggester returns a canned suggestion for every transaction.
type recordingSuggester struct {
	categoryID int64
}

func (r recordingSuggester) Suggest(_ context.Context, txns []model.Transaction, _ []model.Category, _ []model.Transaction) ([]model.Suggestion, error) {
	suggestions := make([]model.Suggestion, 0, len(txns))
	for _, txn := range txns {
		id := r.categoryID
		suggestions = append(suggestions, model.Suggestion{
			TransactionID: txn.ID,
			MerchantName:  "Cleaned " + txn.Description,
			CategoryID:    &id,
			Confidence:    0.9,
		})
	}
	return suggestions, nil
}

func TestIngestStoresSuggestions(t *testing.T) {
	db := testutil.SetupTestDB(t, "chase", "Groceries")
	ingestor := engine.NewIngestor(db.Storage, recordingSuggester{categoryID: db.Categories["Groceries"].ID})
	ctx := context.Background()

	result, err := ingestor.Ingest(ctx, db.Account.Name, writeStatement(t, chaseStatement))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Suggested)

	stored, err := db.Storage.GetTransactionsByAccount(ctx, db.Account.ID)
	require.NoError(t, err)
	for _, txn := range stored {
		require.NotNil(t, txn.AutoCategoryID, "%s", txn.Description)
		assert.Nil(t, txn.CategoryID, "suggestions stay advisory")
	}
}
