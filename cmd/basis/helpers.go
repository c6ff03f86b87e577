package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/viper"

	"github.com/mkellner/basis/internal/config"
	"github.com/mkellner/basis/internal/service"
	"github.com/mkellner/basis/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/basis/basis.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// resolveCategoryIDs turns category names or numeric ids into ids.
func resolveCategoryIDs(ctx context.Context, store service.Storage, names []string) ([]int64, error) {
	var ids []int64
	for _, name := range names {
		if id, err := strconv.ParseInt(name, 10, 64); err == nil {
			ids = append(ids, id)
			continue
		}
		category, err := store.GetCategoryByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("unknown category %q: %w", name, err)
		}
		ids = append(ids, category.ID)
	}
	return ids, nil
}
