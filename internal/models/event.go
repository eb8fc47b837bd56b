package models

import "github.com/google/uuid"

// EventType names a room event recorded for game history.
type EventType string

const (
	EventRoomCreated   EventType = "room_created"
	EventPlayerJoined  EventType = "player_joined"
	EventPlayerLeft    EventType = "player_left"
	EventRoomDeleted   EventType = "room_deleted"
	EventGameStarted   EventType = "game_started"
	EventGuess         EventType = "guess"
	EventSkip          EventType = "skip"
	EventRoundFinished EventType = "round_finished"
	EventNextRound     EventType = "next_round"
	EventGameFinished  EventType = "game_finished"
	EventGameReset     EventType = "game_reset"
)

// RoomEvent is one entry in the history queue drained by the historian.
type RoomEvent struct {
	ID        uuid.UUID      `json:"id"`
	RoomCode  string         `json:"room_code"`
	GameID    uuid.UUID      `json:"game_id"`
	Type      EventType      `json:"type"`
	Actor     string         `json:"actor,omitempty"`
	Round     int            `json:"round,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp int64          `json:"timestamp"` // unix millis
}
