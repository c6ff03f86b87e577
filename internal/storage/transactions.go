package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkellner/basis/internal/common"
	"github.com/mkellner/basis/internal/model"
	"github.com/mkellner/basis/internal/service"
)

// dateFormat is how dates are stored. TEXT ISO dates compare correctly with
// plain string comparison, which every window query below relies on.
const dateFormat = "2006-01-02"

const transactionColumns = `id, account_id, data_import_id, transaction_date, post_date,
	description, bank_category, category_id, amount, transaction_type,
	additional_metadata, auto_category_id, auto_merchant_name,
	amortize_months, amortize_end_date`

// SaveTransactions persists a batch in a single transaction using
// INSERT OR IGNORE, so re-ingesting a file the bank re-exports is a no-op.
// Returns the number of rows actually inserted.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(transactions) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for i := range transactions {
		t := &transactions[i]
		if t.ID == "" {
			return 0, fmt.Errorf("transaction %d has no id", i)
		}

		metadata, err := encodeMetadata(t.Metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to encode metadata for %s: %w", t.ID, err)
		}

		result, err := stmt.ExecContext(ctx,
			t.ID,
			t.AccountID,
			nullInt64(ptrOrZero(t.DataImportID)),
			t.TransactionDate.Format(dateFormat),
			nullDate(t.PostDate),
			t.Description,
			nullString(t.BankCategory),
			nullInt64(t.CategoryID),
			t.Amount.String(),
			string(t.Type),
			metadata,
			nullInt64(t.AutoCategoryID),
			nullString(t.AutoMerchantName),
			nullInt(t.AmortizeMonths),
			nullDate(t.AmortizeEndDate),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get affected rows: %w", err)
		}
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return inserted, nil
}

// GetTransactionByID returns a single transaction, or common.ErrNotFound.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransactionsByAccount returns every transaction for an account,
// oldest first.
func (s *SQLiteStorage) GetTransactionsByAccount(ctx context.Context, accountID int64) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE account_id = ?
		 ORDER BY transaction_date, id`, accountID)
}

// GetTransactionsByMonth returns transactions dated within the given month.
// When excludeAmortized is true, transactions scheduled for accrual are left
// out so they can be reported through their monthly slices instead.
func (s *SQLiteStorage) GetTransactionsByMonth(ctx context.Context, year int, month time.Month, excludeAmortized bool, filter service.MonthFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	first, last := monthBounds(year, month)
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE transaction_date >= ? AND transaction_date <= ?`
	args := []any{first, last}

	if excludeAmortized {
		query += ` AND amortize_months IS NULL`
	}
	query, args = applyFilter(query, args, filter)
	query += ` ORDER BY transaction_date, id`

	return s.queryTransactions(ctx, query, args...)
}

// GetAmortizedTransactionsCovering returns amortized transactions whose
// accrual window intersects the given month.
func (s *SQLiteStorage) GetAmortizedTransactionsCovering(ctx context.Context, year int, month time.Month, filter service.MonthFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	first, last := monthBounds(year, month)
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE amortize_months IS NOT NULL
		  AND transaction_date <= ?
		  AND amortize_end_date >= ?`
	args := []any{last, first}

	query, args = applyFilter(query, args, filter)
	query += ` ORDER BY transaction_date, id`

	return s.queryTransactions(ctx, query, args...)
}

// GetTransactionsByDateRange returns transactions dated within [start, end],
// optionally restricted to one account.
func (s *SQLiteStorage) GetTransactionsByDateRange(ctx context.Context, start, end time.Time, accountID *int64) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE transaction_date >= ? AND transaction_date <= ?`
	args := []any{start.Format(dateFormat), end.Format(dateFormat)}

	if accountID != nil {
		query += ` AND account_id = ?`
		args = append(args, *accountID)
	}
	query += ` ORDER BY transaction_date, id`

	return s.queryTransactions(ctx, query, args...)
}

// UpdateTransactionCategory assigns (or clears, with nil) a transaction's
// user category.
func (s *SQLiteStorage) UpdateTransactionCategory(ctx context.Context, transactionID string, categoryID *int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE id = ?`,
		nullInt64(categoryID), transactionID)
	if err != nil {
		return fmt.Errorf("failed to update category for %s: %w", transactionID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// BatchUpdateCategories applies the CategoryID of each given transaction in
// one database transaction. Unknown IDs are skipped. Returns the number of
// rows updated.
func (s *SQLiteStorage) BatchUpdateCategories(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(transactions) == 0 {
		return 0, nil
	}

	return s.batchUpdate(ctx,
		`UPDATE transactions SET category_id = ? WHERE id = ?`,
		len(transactions),
		func(i int) []any {
			t := &transactions[i]
			return []any{nullInt64(t.CategoryID), t.ID}
		})
}

// BatchUpdateAutoSuggestions records advisory suggestions. Category and
// merchant name land in separate columns so a user assignment never collides
// with them. Returns the number of rows updated.
func (s *SQLiteStorage) BatchUpdateAutoSuggestions(ctx context.Context, suggestions []model.Suggestion) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(suggestions) == 0 {
		return 0, nil
	}

	return s.batchUpdate(ctx,
		`UPDATE transactions SET auto_category_id = ?, auto_merchant_name = ? WHERE id = ?`,
		len(suggestions),
		func(i int) []any {
			sg := &suggestions[i]
			return []any{nullInt64(sg.CategoryID), nullString(sg.MerchantName), sg.TransactionID}
		})
}

// UpdateAmortization sets a transaction's accrual window.
func (s *SQLiteStorage) UpdateAmortization(ctx context.Context, transactionID string, months int, endDate time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET amortize_months = ?, amortize_end_date = ? WHERE id = ?`,
		months, endDate.Format(dateFormat), transactionID)
	if err != nil {
		return fmt.Errorf("failed to update amortization for %s: %w", transactionID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// BatchUpdateAmortization applies the amortization window of each given
// transaction in one database transaction. Transactions without a window are
// skipped. Returns the number of rows updated.
func (s *SQLiteStorage) BatchUpdateAmortization(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var scheduled []model.Transaction
	for _, t := range transactions {
		if t.Amortized() {
			scheduled = append(scheduled, t)
		}
	}
	if len(scheduled) == 0 {
		return 0, nil
	}

	return s.batchUpdate(ctx,
		`UPDATE transactions SET amortize_months = ?, amortize_end_date = ? WHERE id = ?`,
		len(scheduled),
		func(i int) []any {
			t := &scheduled[i]
			return []any{*t.AmortizeMonths, t.AmortizeEndDate.Format(dateFormat), t.ID}
		})
}

// FindHistoricalForSuggestion returns an account's categorized transactions
// from the last N days, newest first. This is the context handed to the
// suggester so it can learn the user's prior choices.
func (s *SQLiteStorage) FindHistoricalForSuggestion(ctx context.Context, accountID int64, days int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if days < 1 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	cutoff := time.Now().AddDate(0, 0, -days).Format(dateFormat)
	return s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE account_id = ?
		   AND category_id IS NOT NULL
		   AND transaction_date >= ?
		 ORDER BY transaction_date DESC, id`, accountID, cutoff)
}

func (s *SQLiteStorage) batchUpdate(ctx context.Context, query string, n int, args func(int) []any) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare update: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	updated := 0
	for i := 0; i < n; i++ {
		result, err := stmt.ExecContext(ctx, args(i)...)
		if err != nil {
			return 0, fmt.Errorf("failed to execute batch update: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get affected rows: %w", err)
		}
		updated += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch update: %w", err)
	}
	return updated, nil
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// applyFilter appends the optional account and category restrictions of a
// MonthFilter to a query.
func applyFilter(query string, args []any, filter service.MonthFilter) (string, []any) {
	if filter.AccountID != nil {
		query += ` AND account_id = ?`
		args = append(args, *filter.AccountID)
	}
	if len(filter.CategoryIDs) > 0 {
		placeholders := make([]string, len(filter.CategoryIDs))
		for i, id := range filter.CategoryIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += ` AND category_id IN (` + strings.Join(placeholders, ", ") + `)`
	}
	return query, args
}

// monthBounds returns the first and last day of a month as stored dates.
func monthBounds(year int, month time.Month) (string, string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	return first.Format(dateFormat), last.Format(dateFormat)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn             model.Transaction
		dataImportID    sql.NullInt64
		transactionDate string
		postDate        sql.NullString
		bankCategory    sql.NullString
		categoryID      sql.NullInt64
		amount          string
		txType          string
		metadata        sql.NullString
		autoCategoryID  sql.NullInt64
		autoMerchant    sql.NullString
		amortizeMonths  sql.NullInt64
		amortizeEnd     sql.NullString
	)

	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&dataImportID,
		&transactionDate,
		&postDate,
		&txn.Description,
		&bankCategory,
		&categoryID,
		&amount,
		&txType,
		&metadata,
		&autoCategoryID,
		&autoMerchant,
		&amortizeMonths,
		&amortizeEnd,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.TransactionDate, err = time.Parse(dateFormat, transactionDate)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction date %q: %w", transactionDate, err)
	}
	if postDate.Valid {
		parsed, err := time.Parse(dateFormat, postDate.String)
		if err != nil {
			return nil, fmt.Errorf("invalid post date %q: %w", postDate.String, err)
		}
		txn.PostDate = &parsed
	}
	if amortizeEnd.Valid {
		parsed, err := time.Parse(dateFormat, amortizeEnd.String)
		if err != nil {
			return nil, fmt.Errorf("invalid amortize end date %q: %w", amortizeEnd.String, err)
		}
		txn.AmortizeEndDate = &parsed
	}

	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	txn.Type = model.TransactionType(txType)

	if dataImportID.Valid {
		txn.DataImportID = dataImportID.Int64
	}
	if bankCategory.Valid {
		txn.BankCategory = bankCategory.String
	}
	if categoryID.Valid {
		txn.CategoryID = &categoryID.Int64
	}
	if autoCategoryID.Valid {
		txn.AutoCategoryID = &autoCategoryID.Int64
	}
	if autoMerchant.Valid {
		txn.AutoMerchantName = autoMerchant.String
	}
	if amortizeMonths.Valid {
		months := int(amortizeMonths.Int64)
		txn.AmortizeMonths = &months
	}

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &txn.Metadata); err != nil {
			return nil, fmt.Errorf("invalid metadata for %s: %w", txn.ID, err)
		}
	}

	return &txn, nil
}

func encodeMetadata(metadata map[string]string) (any, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateFormat)
}

func ptrOrZero(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
