// Package store keeps lobbies keyed by room code and serializes mutations per
// room, so one request's load -> transition -> store sequence never
// interleaves with another request for the same room.
package store

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/jason-s-yu/vgmguess/internal/models"
)

var (
	// ErrNotFound is returned for a room code with no live lobby.
	ErrNotFound = errors.New("store: room not found")

	// ErrConflict is returned when an optimistic mutation kept losing races.
	ErrConflict = errors.New("store: too many concurrent updates")

	// ErrCodeSpace is returned when no free room code could be drawn.
	ErrCodeSpace = errors.New("store: could not allocate a room code")
)

// MutateFunc applies a transition to a private copy of the lobby. Returning an
// error discards the copy. Implementations may call it more than once for a
// single Mutate, so it must not have side effects outside the lobby.
type MutateFunc func(l *models.Lobby) error

// RoomStore is the storage contract behind the lobby gateway.
type RoomStore interface {
	// Create allocates a fresh room code and seats host in a new lobby.
	Create(ctx context.Context, host string) (*models.Lobby, error)
	// Get returns a copy of the lobby or ErrNotFound.
	Get(ctx context.Context, code string) (*models.Lobby, error)
	// Mutate atomically applies fn to the lobby and stores the result. A
	// lobby left without players is deleted; the emptied copy is returned.
	Mutate(ctx context.Context, code string, fn MutateFunc) (*models.Lobby, error)
	// Delete removes a room outright.
	Delete(ctx context.Context, code string) error
}

const (
	// RoomCodeLength is the number of characters in a room code.
	RoomCodeLength = 6

	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxCodeAttempts bounds collision retries when allocating a code.
	maxCodeAttempts = 64
)

// NewRoomCode draws RoomCodeLength characters uniformly from [A-Z0-9].
func NewRoomCode() string {
	var b strings.Builder
	b.Grow(RoomCodeLength)
	for i := 0; i < RoomCodeLength; i++ {
		b.WriteByte(roomCodeAlphabet[rand.IntN(len(roomCodeAlphabet))])
	}
	return b.String()
}

// ValidRoomCode reports whether code is exactly six uppercase alphanumerics.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(roomCodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
