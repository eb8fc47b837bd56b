package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/vgmguess/internal/models"
)

// LoadSongs reads the whole song catalog, ordered by id.
func (db *DB) LoadSongs(ctx context.Context) ([]models.Song, error) {
	q := `
		SELECT id, title, game, artist, year, console
		FROM songs
		ORDER BY id
	`
	rows, err := db.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query songs: %w", err)
	}
	songs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Song, error) {
		var s models.Song
		err := row.Scan(&s.ID, &s.Title, &s.Game, &s.Artist, &s.Year, &s.Console)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan songs: %w", err)
	}
	return songs, nil
}

// UpsertSongs inserts or refreshes catalog entries in one transaction.
func (db *DB) UpsertSongs(ctx context.Context, songs []models.Song) error {
	q := `
	INSERT INTO songs (id, title, game, artist, year, console)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE
	SET title = EXCLUDED.title,
	    game = EXCLUDED.game,
	    artist = EXCLUDED.artist,
	    year = EXCLUDED.year,
	    console = EXCLUDED.console
	`
	return pgx.BeginTxFunc(ctx, db.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, s := range songs {
			batch.Queue(q, s.ID, s.Title, s.Game, s.Artist, s.Year, s.Console)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}
