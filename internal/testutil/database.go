// Package testutil provides test fixtures shared across packages.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkellner/basis/internal/model"
	"github.com/mkellner/basis/internal/service"
	"github.com/mkellner/basis/internal/storage"
)

// TestDB wraps an in-memory database with its seeded fixtures.
type TestDB struct {
	Storage    service.Storage
	Account    *model.Account
	Categories map[string]*model.Category
	t          *testing.T
}

// SetupTestDB creates a migrated in-memory database, seeds one account of the
// given type plus the named categories, and registers cleanup.
func SetupTestDB(t *testing.T, accountType string, categoryNames ...string) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	account, err := store.CreateAccount(ctx, "test-account", accountType, "")
	if err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}

	categories := make(map[string]*model.Category, len(categoryNames))
	for _, name := range categoryNames {
		category, err := store.CreateCategory(ctx, name, "")
		if err != nil {
			t.Fatalf("failed to seed category %q: %v", name, err)
		}
		categories[name] = category
	}

	return &TestDB{
		Storage:    store,
		Account:    account,
		Categories: categories,
		t:          t,
	}
}

// Transaction builds and saves one transaction dated on the given day,
// returning it as stored.
func (db *TestDB) Transaction(date string, amount string, description string, txType model.TransactionType) model.Transaction {
	db.t.Helper()

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		db.t.Fatalf("invalid test date %q: %v", date, err)
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		db.t.Fatalf("invalid test amount %q: %v", amount, err)
	}

	txn := model.NewTransaction(date+","+amount+","+description, db.Account.ID, day, value, description, txType)
	if _, err := db.Storage.SaveTransactions(context.Background(), []model.Transaction{txn}); err != nil {
		db.t.Fatalf("failed to save test transaction: %v", err)
	}
	return txn
}
