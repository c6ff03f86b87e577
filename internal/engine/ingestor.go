// Package engine wires the parsers, storage, accrual scheduler, and the
// suggestion service into the two application workflows: ingesting statement
// files and applying reviewed categorizations.
package engine

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mkellner/basis/internal/common"
	"github.com/mkellner/basis/internal/ingest"
	"github.com/mkellner/basis/internal/model"
	"github.com/mkellner/basis/internal/service"
)

// defaultHistoryDays bounds how much categorized history is sent to the
// suggester as context.
const defaultHistoryDays = 365

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Account   string
	Parsed    int
	Inserted  int
	Skipped   int
	Suggested int
	Archived  string
}

// Ingestor runs the statement ingestion workflow.
type Ingestor struct {
	store       service.Storage
	suggester   service.Suggester
	archiveDir  string
	historyDays int
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithArchiveDir enables archiving: every ingested file is stored gzipped
// under dir so the original export can be replayed later.
func WithArchiveDir(dir string) IngestorOption {
	return func(i *Ingestor) { i.archiveDir = dir }
}

// WithHistoryDays overrides how many days of categorized history are given to
// the suggester.
func WithHistoryDays(days int) IngestorOption {
	return func(i *Ingestor) { i.historyDays = days }
}

// NewIngestor creates an Ingestor. A nil suggester disables the suggestion
// phase entirely.
func NewIngestor(store service.Storage, suggester service.Suggester, opts ...IngestorOption) *Ingestor {
	ing := &Ingestor{
		store:       store,
		suggester:   suggester,
		historyDays: defaultHistoryDays,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Ingest parses a statement file for the named account and persists the
// resulting transactions. The account's type selects the parser. Duplicate
// rows (same content hash) are silently skipped, so re-running on the same
// file is a no-op.
//
// Suggestions run only after everything is durably persisted; any suggestion
// failure is logged and the ingestion still succeeds.
func (i *Ingestor) Ingest(ctx context.Context, accountName, path string) (*IngestResult, error) {
	account, err := i.store.GetAccountByName(ctx, accountName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account %q: %w", accountName, err)
	}

	parser, err := ingest.Lookup(account.Type)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path) //nolint:gosec // path comes from the user's own CLI invocation
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	transactions, err := parser.Parse(ctx, bytes.NewReader(raw), account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	result := &IngestResult{
		Account: account.Name,
		Parsed:  len(transactions),
	}
	if len(transactions) == 0 {
		return result, nil
	}

	imp, err := i.store.CreateDataImport(ctx, account.ID, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}
	for idx := range transactions {
		transactions[idx].DataImportID = imp.ID
	}

	inserted, err := i.store.SaveTransactions(ctx, transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to save transactions: %w", err)
	}
	result.Inserted = inserted
	result.Skipped = len(transactions) - inserted

	if i.archiveDir != "" {
		archived, err := i.archive(raw, account.Name, imp.ID, filepath.Base(path))
		if err != nil {
			// Transactions are already durable; losing the archive copy is
			// worth a warning, not a failed ingestion.
			common.LogError(err, "failed to archive statement file", common.Fields{
				"path": path,
			})
		} else {
			result.Archived = archived
		}
	}

	result.Suggested = i.runSuggestions(ctx, account.ID, transactions)

	common.LogInfo("ingestion complete", common.Fields{
		"account":   account.Name,
		"parsed":    result.Parsed,
		"inserted":  result.Inserted,
		"skipped":   result.Skipped,
		"suggested": result.Suggested,
	})

	return result, nil
}

// archive writes a gzipped copy of the raw statement into the archive
// directory, named by account, import id, and original filename.
func (i *Ingestor) archive(raw []byte, accountName string, importID int64, filename string) (string, error) {
	if err := os.MkdirAll(i.archiveDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("%s-%d-%s.gz", accountName, importID, filename)
	dest := filepath.Join(i.archiveDir, name)

	f, err := os.Create(dest) //nolint:gosec // archive dir is operator-configured
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}

	zw := gzip.NewWriter(f)
	zw.Name = filename
	zw.ModTime = time.Now()
	if _, err := zw.Write(raw); err != nil {
		_ = zw.Close()
		_ = f.Close()
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close archive: %w", err)
	}
	return dest, nil
}

// runSuggestions invokes the suggester for the just-ingested transactions.
// The suggester is untrusted from the ingestion path's point of view: errors
// and panics alike are logged and counted as zero suggestions.
func (i *Ingestor) runSuggestions(ctx context.Context, accountID int64, transactions []model.Transaction) (stored int) {
	if i.suggester == nil {
		return 0
	}

	defer func() {
		if r := recover(); r != nil {
			common.LogError(fmt.Errorf("suggester panic: %v", r), "suggestion phase failed", common.Fields{
				"account_id": accountID,
			})
			stored = 0
		}
	}()

	var pending []model.Transaction
	for _, t := range transactions {
		if t.CategoryID == nil {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return 0
	}

	categories, err := i.store.ListCategories(ctx)
	if err != nil {
		common.LogError(err, "failed to load categories for suggestions", nil)
		return 0
	}
	history, err := i.store.FindHistoricalForSuggestion(ctx, accountID, i.historyDays)
	if err != nil {
		common.LogError(err, "failed to load history for suggestions", nil)
		return 0
	}

	suggestions, err := i.suggester.Suggest(ctx, pending, categories, history)
	if err != nil {
		common.LogError(err, "suggestion request failed", common.Fields{
			"account_id": accountID,
		})
		return 0
	}
	if len(suggestions) == 0 {
		return 0
	}

	stored, err = i.store.BatchUpdateAutoSuggestions(ctx, suggestions)
	if err != nil {
		common.LogError(err, "failed to store suggestions", nil)
		return 0
	}
	return stored
}
