package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mundotango/compas/pkg/persistence"
	"github.com/mundotango/compas/pkg/persistence/file"
	"github.com/mundotango/compas/pkg/persistence/postgresql"
)

// NewPersistence selects a persistence backend by URL scheme. postgres://
// and postgresql:// use PostgreSQL; everything else falls back to the file
// store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize PostgreSQL persistence: %w", err))
		}

		return store
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
