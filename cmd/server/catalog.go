package main

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/vgmguess/internal/catalog"
	"github.com/jason-s-yu/vgmguess/internal/config"
	"github.com/jason-s-yu/vgmguess/internal/database"
	"github.com/sirupsen/logrus"
)

// loadCatalog builds the song catalog from the configured source. A Postgres
// catalog with no songs is seeded from the embedded list.
func loadCatalog(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*catalog.Memory, error) {
	var (
		cat *catalog.Memory
		err error
	)
	switch cfg.CatalogSource {
	case config.CatalogFile:
		cat, err = catalog.LoadFile(cfg.CatalogPath)
	case config.CatalogPostgres:
		cat, err = loadPostgresCatalog(ctx, cfg.DatabaseURL, logger)
	default:
		cat, err = catalog.Embedded()
	}
	if err != nil {
		return nil, fmt.Errorf("load %s catalog: %w", cfg.CatalogSource, err)
	}
	if cat.Len() == 0 {
		return nil, fmt.Errorf("load %s catalog: %w", cfg.CatalogSource, catalog.ErrEmpty)
	}
	logger.WithFields(logrus.Fields{"source": cfg.CatalogSource, "songs": cat.Len()}).Info("song catalog loaded")
	return cat, nil
}

func loadPostgresCatalog(ctx context.Context, url string, logger logrus.FieldLogger) (*catalog.Memory, error) {
	db, err := database.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return nil, err
	}
	songs, err := db.LoadSongs(ctx)
	if err != nil {
		return nil, err
	}
	if len(songs) > 0 {
		return catalog.NewMemory(songs), nil
	}

	seed, err := catalog.Embedded()
	if err != nil {
		return nil, err
	}
	if err := db.UpsertSongs(ctx, seed.Songs()); err != nil {
		return nil, fmt.Errorf("seed songs: %w", err)
	}
	logger.WithField("songs", seed.Len()).Info("seeded empty songs table")
	return seed, nil
}
