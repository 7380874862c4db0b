package backend

import (
	"context"
	"fmt"

	"dompet/internal/config"
	"dompet/internal/log"
	"dompet/internal/search"
	"dompet/internal/sheets"
	"dompet/internal/sheets/google"
	"dompet/internal/worker"
)

// BuildMirrors creates every mirror enabled in cfg.
func BuildMirrors(ctx context.Context, cfg *config.Config, logger *log.Logger) ([]worker.Mirror, error) {
	var mirrors []worker.Mirror

	if cfg.SheetsEnabled() {
		client, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("sheets mirror: %w", err)
		}
		mirrors = append(mirrors, sheets.NewMirror(client))
	}

	if cfg.SearchEnabled() {
		idx, err := search.New(search.Config{
			Addresses: cfg.ElasticsearchAddresses(),
			Index:     cfg.ElasticsearchIndex,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("search mirror: %w", err)
		}
		if err := idx.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("search mirror: %w", err)
		}
		mirrors = append(mirrors, idx)
	}

	return mirrors, nil
}
