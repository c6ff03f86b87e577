package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mkellner/basis/internal/common"
	"github.com/mkellner/basis/internal/model"
)

// CreateCategory creates a new category with a unique name.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, description) VALUES (?, ?)`,
		name, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category id: %w", err)
	}

	return &model.Category{
		ID:          id,
		Name:        name,
		Description: description,
	}, nil
}

// GetCategoryByID returns a single category, or common.ErrNotFound.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategory(ctx, `SELECT id, name, COALESCE(description, ''), parent_id FROM categories WHERE id = ?`, id)
}

// GetCategoryByName returns a single category, or common.ErrNotFound.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getCategory(ctx, `SELECT id, name, COALESCE(description, ''), parent_id FROM categories WHERE name = ?`, name)
}

func (s *SQLiteStorage) getCategory(ctx context.Context, query string, arg any) (*model.Category, error) {
	var category model.Category
	var parentID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&category.ID, &category.Name, &category.Description, &parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	if parentID.Valid {
		category.ParentID = &parentID.Int64
	}
	return &category, nil
}

// ListCategories returns all categories ordered by name.
func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, ''), parent_id FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var category model.Category
		var parentID sql.NullInt64
		if err := rows.Scan(&category.ID, &category.Name, &category.Description, &parentID); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if parentID.Valid {
			category.ParentID = &parentID.Int64
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory renames a category and replaces its description.
func (s *SQLiteStorage) UpdateCategory(ctx context.Context, id int64, name, description string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ? WHERE id = ?`,
		name, description, id)
	if err != nil {
		return fmt.Errorf("failed to update category %d: %w", id, err)
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

// SetCategoryParent assigns (or clears, with nil) a category's parent.
// An assignment that would make the category its own ancestor is rejected
// with common.ErrCategoryCycle; an undetected cycle would make every tree
// traversal loop forever.
func (s *SQLiteStorage) SetCategoryParent(ctx context.Context, id int64, parentID *int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if parentID != nil {
		if *parentID == id {
			return common.ErrCategoryCycle
		}
		ancestor := *parentID
		for {
			parent, err := s.GetCategoryByID(ctx, ancestor)
			if err != nil {
				return fmt.Errorf("failed to walk category ancestry: %w", err)
			}
			if parent.ParentID == nil {
				break
			}
			if *parent.ParentID == id {
				return common.ErrCategoryCycle
			}
			ancestor = *parent.ParentID
		}
	}

	var value any
	if parentID != nil {
		value = *parentID
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE categories SET parent_id = ? WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("failed to set category parent: %w", err)
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

// DeleteCategory removes a category. Returns common.ErrNotFound if absent.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category %d: %w", id, err)
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
