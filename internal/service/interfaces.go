// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/mkellner/basis/internal/model"
)

// MonthFilter narrows month queries to an account and/or a set of categories.
// A nil AccountID or empty CategoryIDs means no filtering on that dimension.
type MonthFilter struct {
	AccountID   *int64
	CategoryIDs []int64
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Account operations
	CreateAccount(ctx context.Context, name, accountType, description string) (*model.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	GetAccountByName(ctx context.Context, name string) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	DeleteAccount(ctx context.Context, id int64) error

	// Category operations
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, id int64, name, description string) error
	SetCategoryParent(ctx context.Context, id int64, parentID *int64) error
	DeleteCategory(ctx context.Context, id int64) error

	// Data import provenance
	CreateDataImport(ctx context.Context, accountID int64, filename string) (*model.DataImport, error)
	GetDataImportsByAccount(ctx context.Context, accountID int64) ([]model.DataImport, error)

	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactionsByAccount(ctx context.Context, accountID int64) ([]model.Transaction, error)
	GetTransactionsByMonth(ctx context.Context, year int, month time.Month, excludeAmortized bool, filter MonthFilter) ([]model.Transaction, error)
	GetAmortizedTransactionsCovering(ctx context.Context, year int, month time.Month, filter MonthFilter) ([]model.Transaction, error)
	GetTransactionsByDateRange(ctx context.Context, start, end time.Time, accountID *int64) ([]model.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, transactionID string, categoryID *int64) error
	BatchUpdateCategories(ctx context.Context, transactions []model.Transaction) (int, error)
	BatchUpdateAutoSuggestions(ctx context.Context, suggestions []model.Suggestion) (int, error)
	UpdateAmortization(ctx context.Context, transactionID string, months int, endDate time.Time) error
	BatchUpdateAmortization(ctx context.Context, transactions []model.Transaction) (int, error)
	FindHistoricalForSuggestion(ctx context.Context, accountID int64, days int) ([]model.Transaction, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Suggester proposes advisory categories for freshly ingested transactions.
// Implementations may perform network I/O; callers must treat any error as
// "zero suggestions" and never let it affect ingestion.
type Suggester interface {
	Suggest(ctx context.Context, transactions []model.Transaction, categories []model.Category, history []model.Transaction) ([]model.Suggestion, error)
}
