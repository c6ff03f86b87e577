package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mkellner/basis/internal/common"
	"github.com/mkellner/basis/internal/model"
)

// CreateAccount creates a new account. The type selects the statement parser.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, name, accountType, description string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	if err := validateString(accountType, "accountType"); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (name, type, description) VALUES (?, ?, ?)`,
		name, accountType, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create account %q: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get account id: %w", err)
	}

	return &model.Account{
		ID:          id,
		Name:        name,
		Type:        accountType,
		Description: description,
	}, nil
}

// GetAccountByID returns a single account, or common.ErrNotFound.
func (s *SQLiteStorage) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getAccount(ctx, `SELECT id, name, type, description FROM accounts WHERE id = ?`, id)
}

// GetAccountByName returns a single account, or common.ErrNotFound.
func (s *SQLiteStorage) GetAccountByName(ctx context.Context, name string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getAccount(ctx, `SELECT id, name, type, description FROM accounts WHERE name = ?`, name)
}

func (s *SQLiteStorage) getAccount(ctx context.Context, query string, arg any) (*model.Account, error) {
	var account model.Account
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID, &account.Name, &account.Type, &account.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &account, nil
}

// ListAccounts returns all accounts ordered by id.
func (s *SQLiteStorage) ListAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, type, description FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var account model.Account
		if err := rows.Scan(&account.ID, &account.Name, &account.Type, &account.Description); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// DeleteAccount removes an account. Returns common.ErrNotFound if absent.
func (s *SQLiteStorage) DeleteAccount(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account %d: %w", id, err)
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
