package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/vgmguess/internal/models"
	"github.com/jason-s-yu/vgmguess/internal/scoring"
)

// Game statuses stored in the games table.
const (
	GameInProgress = "in_progress"
	GameCompleted  = "completed"
	GameAbandoned  = "abandoned"
)

const (
	insertEventQ = `
	INSERT INTO room_events (id, room_code, game_id, type, actor, round, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING
	`
	upsertGameQ = `
	INSERT INTO games (id, room_code, status, started_at)
	VALUES ($1, $2, 'in_progress', $3)
	ON CONFLICT (id) DO NOTHING
	`
	finishGameQ = `
	UPDATE games
	SET status = $2, ended_at = $3
	WHERE id = $1 AND status = 'in_progress'
	`
	insertResultQ = `
	INSERT INTO game_results (game_id, room_code, player, score, rank, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (game_id, player) DO NOTHING
	`
)

// SaveEvents persists a batch of room events in one transaction. Events that
// carry a game id also keep the games table current; a game_finished event
// records one game_results row per ranked player.
func (db *DB) SaveEvents(ctx context.Context, events []models.RoomEvent) error {
	if len(events) == 0 {
		return nil
	}

	return pgx.BeginTxFunc(ctx, db.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, ev := range events {
			at := time.UnixMilli(ev.Timestamp).UTC()
			payload := ev.Payload
			if payload == nil {
				payload = map[string]any{}
			}
			batch.Queue(insertEventQ, ev.ID, ev.RoomCode, nullableUUID(ev.GameID), string(ev.Type), ev.Actor, ev.Round, payload, at)

			if ev.GameID == uuid.Nil {
				continue
			}
			switch ev.Type {
			case models.EventGameStarted:
				batch.Queue(upsertGameQ, ev.GameID, ev.RoomCode, at)
			case models.EventGameReset:
				batch.Queue(finishGameQ, ev.GameID, GameAbandoned, at)
			case models.EventGameFinished:
				batch.Queue(finishGameQ, ev.GameID, GameCompleted, at)
				standings, err := StandingsFromPayload(ev.Payload)
				if err != nil {
					return fmt.Errorf("event %s: %w", ev.ID, err)
				}
				for _, s := range standings {
					batch.Queue(insertResultQ, ev.GameID, ev.RoomCode, s.Player, s.Score, s.Rank, at)
				}
			}
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// MarkAbandoned closes out a game that is still in progress.
func (db *DB) MarkAbandoned(ctx context.Context, gameID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, finishGameQ, gameID, GameAbandoned, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark game %s abandoned: %w", gameID, err)
	}
	return nil
}

// StandingsFromPayload decodes the "standings" entry of a game_finished
// payload after it has been through JSON.
func StandingsFromPayload(payload map[string]any) ([]scoring.Standing, error) {
	raw, ok := payload["standings"]
	if !ok {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode standings: %w", err)
	}
	var standings []scoring.Standing
	if err := json.Unmarshal(data, &standings); err != nil {
		return nil, fmt.Errorf("decode standings: %w", err)
	}
	return standings, nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
