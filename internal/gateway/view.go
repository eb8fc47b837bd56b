package gateway

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/vgmguess/internal/models"
	"github.com/jason-s-yu/vgmguess/internal/scoring"
)

// Snapshot is the lobby as polling clients see it. It carries everything in
// the stored lobby except the songs of rounds that have not been played yet.
type Snapshot struct {
	RoomCode    string    `json:"roomCode"`
	Players     []string  `json:"players"`
	Host        string    `json:"host"`
	GameStarted bool      `json:"gameStarted"`
	Game        *GameView `json:"game,omitempty"`
}

// GameView is the client-facing form of models.GameState.
type GameView struct {
	ID            uuid.UUID                 `json:"id"`
	CurrentRound  int                       `json:"currentRound"`
	TotalRounds   int                       `json:"totalRounds"`
	CurrentSong   *models.Song              `json:"currentSong,omitempty"`
	PlayedSongs   []models.Song             `json:"playedSongs"`
	Scores        map[string]int            `json:"scores"`
	Attempts      map[string]int            `json:"attempts"`
	Guesses       map[string][]models.Guess `json:"guesses"`
	RoundWinners  []string                  `json:"roundWinners"`
	RoundFinished bool                      `json:"roundFinished"`
	GameFinished  bool                      `json:"gameFinished"`
	IsTiebreaker  bool                      `json:"isTiebreaker"`
	Standings     []scoring.Standing        `json:"standings"`
	Winners       []string                  `json:"winners,omitempty"`
}

// NewSnapshot builds the client view of l.
func NewSnapshot(l *models.Lobby) *Snapshot {
	if l == nil {
		return nil
	}
	c := l.Clone()
	s := &Snapshot{
		RoomCode:    c.RoomCode,
		Players:     c.Players,
		Host:        c.Host,
		GameStarted: c.GameStarted,
	}
	if s.Players == nil {
		s.Players = []string{}
	}
	if gs := c.Game; gs != nil {
		s.Game = newGameView(c.Players, gs)
	}
	return s
}

func newGameView(players []string, gs *models.GameState) *GameView {
	v := &GameView{
		ID:            gs.ID,
		CurrentRound:  gs.CurrentRound,
		TotalRounds:   gs.TotalRounds,
		CurrentSong:   gs.CurrentSong(),
		Scores:        seatedScores(players, gs.Scores),
		Attempts:      gs.Attempts,
		Guesses:       gs.Guesses,
		RoundWinners:  gs.RoundWinners,
		RoundFinished: gs.RoundFinished,
		GameFinished:  gs.GameFinished,
		IsTiebreaker:  gs.IsTiebreaker,
		Standings:     scoring.Standings(players, gs.Scores),
	}

	played := gs.CurrentRound - 1
	if gs.RoundFinished || gs.GameFinished {
		played = gs.CurrentRound
	}
	played = min(max(played, 0), len(gs.Songs))
	v.PlayedSongs = gs.Songs[:played]

	if gs.GameFinished {
		v.Winners = scoring.Winners(v.Standings)
	}
	return v
}

// seatedScores drops the banked scores of players who left mid-game.
func seatedScores(players []string, scores map[string]int) map[string]int {
	out := make(map[string]int, len(players))
	for _, p := range players {
		if n, ok := scores[p]; ok {
			out[p] = n
		}
	}
	return out
}
