// internal/models/lobby.go
package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxAttempts is the per-round guess budget for each player.
	MaxAttempts = 6

	// NoWinner is the roundWinners sentinel for a round nobody solved.
	NoWinner = "NONE"

	// DefaultTotalRounds is used when a start request does not name a round count.
	DefaultTotalRounds = 10
)

// Lobby is the root aggregate for a room. The JSON form doubles as the
// snapshot returned to polling clients and the value persisted by the stores.
type Lobby struct {
	RoomCode    string     `json:"roomCode"`
	Players     []string   `json:"players"`
	Host        string     `json:"host"`
	GameStarted bool       `json:"gameStarted"`
	Game        *GameState `json:"game,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GameState is one started game inside a lobby.
type GameState struct {
	ID           uuid.UUID          `json:"id"`
	CurrentRound int                `json:"currentRound"`
	TotalRounds  int                `json:"totalRounds"`
	Songs        []Song             `json:"songs"`
	Scores       map[string]int     `json:"scores"`
	Attempts     map[string]int     `json:"attempts"`
	Guesses      map[string][]Guess `json:"guesses"`
	RoundWinners []string           `json:"roundWinners"`

	// Departed holds what players who left spent in the current round, so a
	// rejoin cannot refill their attempt budget.
	Departed map[string]RoundRecord `json:"departed,omitempty"`

	RoundFinished bool `json:"roundFinished"`
	GameFinished  bool `json:"gameFinished"`

	// IsTiebreaker is reserved for tie-break rounds and is never set yet.
	IsTiebreaker bool `json:"isTiebreaker"`
}

// RoundRecord is one player's attempts and guesses in a single round.
type RoundRecord struct {
	Attempts int     `json:"attempts"`
	Guesses  []Guess `json:"guesses,omitempty"`
}

// NewGameState returns a zeroed game for the given players. Songs are left
// empty until the game is started.
func NewGameState(players []string) *GameState {
	id, _ := uuid.NewV7()
	gs := &GameState{
		ID:           id,
		CurrentRound: 1,
		TotalRounds:  DefaultTotalRounds,
		Scores:       make(map[string]int, len(players)),
		Attempts:     make(map[string]int),
		Guesses:      make(map[string][]Guess),
		RoundWinners: []string{},
	}
	for _, p := range players {
		gs.Scores[p] = 0
	}
	return gs
}

// CurrentSong returns the target of the current round, or nil once the game
// has run past its last round.
func (gs *GameState) CurrentSong() *Song {
	if gs == nil || gs.CurrentRound < 1 || gs.CurrentRound > len(gs.Songs) {
		return nil
	}
	return &gs.Songs[gs.CurrentRound-1]
}

// HasWon reports whether player is in this round's winners.
func (gs *GameState) HasWon(player string) bool {
	return slices.Contains(gs.RoundWinners, player)
}

// HasPlayer reports whether nickname is seated in the lobby.
func (l *Lobby) HasPlayer(nickname string) bool {
	return slices.Contains(l.Players, nickname)
}

// IsHost reports whether nickname currently holds host.
func (l *Lobby) IsHost(nickname string) bool {
	return l.Host != "" && l.Host == nickname
}

// Empty reports whether the lobby has no players left and must be deleted.
func (l *Lobby) Empty() bool {
	return len(l.Players) == 0
}

// Clone returns a deep copy so a mutation can be applied and discarded
// without touching the stored value.
func (l *Lobby) Clone() *Lobby {
	if l == nil {
		return nil
	}
	c := *l
	c.Players = slices.Clone(l.Players)
	if l.Game != nil {
		c.Game = l.Game.Clone()
	}
	return &c
}

// Clone returns a deep copy of the game state.
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	c := *gs
	c.Songs = slices.Clone(gs.Songs)
	c.RoundWinners = slices.Clone(gs.RoundWinners)
	c.Scores = cloneIntMap(gs.Scores)
	c.Attempts = cloneIntMap(gs.Attempts)
	c.Guesses = make(map[string][]Guess, len(gs.Guesses))
	for k, v := range gs.Guesses {
		c.Guesses[k] = slices.Clone(v)
	}
	if gs.Departed != nil {
		c.Departed = make(map[string]RoundRecord, len(gs.Departed))
		for k, v := range gs.Departed {
			v.Guesses = slices.Clone(v.Guesses)
			c.Departed[k] = v
		}
	}
	return &c
}

func cloneIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// NewLobby returns a lobby seated with its creating player as host.
func NewLobby(code, host string, now time.Time) *Lobby {
	return &Lobby{
		RoomCode:  code,
		Players:   []string{host},
		Host:      host,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
