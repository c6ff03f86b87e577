package storage

import (
	"context"
	"fmt"

	"github.com/mkellner/basis/internal/model"
)

// CreateDataImport records one ingestion event for provenance. The filename
// may be empty when archiving is disabled.
func (s *SQLiteStorage) CreateDataImport(ctx context.Context, accountID int64, filename string) (*model.DataImport, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO data_imports (account_id, filename) VALUES (?, ?)`,
		accountID, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create data import: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get data import id: %w", err)
	}

	imp := &model.DataImport{ID: id, AccountID: accountID, Filename: filename}
	if err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM data_imports WHERE id = ?`, id).Scan(&imp.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to read data import timestamp: %w", err)
	}
	return imp, nil
}

// GetDataImportsByAccount returns an account's imports, newest first.
func (s *SQLiteStorage) GetDataImportsByAccount(ctx context.Context, accountID int64) ([]model.DataImport, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, COALESCE(filename, ''), created_at
		 FROM data_imports
		 WHERE account_id = ?
		 ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query data imports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var imports []model.DataImport
	for rows.Next() {
		var imp model.DataImport
		if err := rows.Scan(&imp.ID, &imp.AccountID, &imp.Filename, &imp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan data import: %w", err)
		}
		imports = append(imports, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating data imports: %w", err)
	}
	return imports, nil
}
