package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mkellner/basis/internal/common"
	"github.com/mkellner/basis/internal/config"
	"github.com/mkellner/basis/internal/engine"
	"github.com/mkellner/basis/internal/service"
	"github.com/mkellner/basis/internal/suggest"
)

func ingestCmd() *cobra.Command {
	var (
		archiveDir  string
		noSuggest   bool
		historyDays int
	)

	cmd := &cobra.Command{
		Use:   "ingest <account> <file>...",
		Short: "Ingest statement files for an account",
		Long: `Parse one or more statement exports and store their transactions. The
account's type selects the parser. Rows already present (same content hash)
are skipped, so re-ingesting a file is safe.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			accountName := args[0]
			files := args[1:]

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			suggester, err := buildSuggester(noSuggest)
			if err != nil {
				return err
			}

			if archiveDir == "" {
				archiveDir = viper.GetString("ingest.archive_dir")
			}

			var opts []engine.IngestorOption
			if archiveDir != "" {
				opts = append(opts, engine.WithArchiveDir(config.ExpandPath(archiveDir)))
			}
			if historyDays > 0 {
				opts = append(opts, engine.WithHistoryDays(historyDays))
			}
			ingestor := engine.NewIngestor(store, suggester, opts...)

			bar := progressbar.Default(int64(len(files)), "ingesting")

			var parsed, inserted, skipped, suggested int
			for _, file := range files {
				result, err := ingestor.Ingest(ctx, accountName, file)
				if err != nil {
					return fmt.Errorf("failed to ingest %s: %w", file, err)
				}
				parsed += result.Parsed
				inserted += result.Inserted
				skipped += result.Skipped
				suggested += result.Suggested
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			fmt.Printf("Parsed %d transactions: %d new, %d duplicates skipped, %d suggestions\n",
				parsed, inserted, skipped, suggested)
			return nil
		},
	}

	cmd.Flags().StringVar(&archiveDir, "archive-dir", "", "archive ingested files (gzipped) into this directory")
	cmd.Flags().BoolVar(&noSuggest, "no-suggest", false, "skip the auto-categorization phase")
	cmd.Flags().IntVar(&historyDays, "history-days", 0, "days of categorized history given to the suggester")

	return cmd
}

// buildSuggester constructs the configured suggestion service, or nil when
// disabled. Misconfiguration is downgraded to a warning: ingestion must never
// fail because the suggester can't start.
func buildSuggester(disabled bool) (service.Suggester, error) {
	if disabled {
		return nil, nil
	}

	provider, cfg := config.LoadSuggestConfig()
	if provider == "" {
		return nil, nil
	}

	suggester, err := suggest.New(provider, cfg)
	if err != nil {
		common.LogError(err, "suggestions disabled", common.Fields{"provider": provider})
		return nil, nil
	}
	return suggester, nil
}
