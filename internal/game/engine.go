// internal/game/engine.go
package game

import (
	"fmt"
	"slices"

	"github.com/jason-s-yu/vgmguess/internal/catalog"
	"github.com/jason-s-yu/vgmguess/internal/evaluator"
	"github.com/jason-s-yu/vgmguess/internal/models"
	"github.com/jason-s-yu/vgmguess/internal/scoring"
	"github.com/sirupsen/logrus"
)

// Engine applies round/game transitions to a lobby. It holds no per-room
// state: every method mutates the *models.Lobby it is given, and callers are
// responsible for serializing calls on the same room (see store.RoomStore).
type Engine struct {
	catalog catalog.Catalog
	eval    *evaluator.Evaluator
	log     logrus.FieldLogger

	// DefaultRounds is used when Start is called with totalRounds == 0.
	DefaultRounds int
}

// GuessOutcome describes how one guess was graded and what it changed.
type GuessOutcome struct {
	Guess         models.Guess
	Result        evaluator.Result
	Points        int
	RoundFinished bool
}

// NewEngine builds an engine drawing songs from c.
func NewEngine(c catalog.Catalog, logger logrus.FieldLogger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		catalog:       c,
		eval:          evaluator.New(c.Songs()),
		log:           logger,
		DefaultRounds: models.DefaultTotalRounds,
	}
}

// Evaluator exposes the guess evaluator built over the engine's catalog.
func (e *Engine) Evaluator() *evaluator.Evaluator {
	return e.eval
}

// Join seats nickname in the lobby. Joining twice is a no-op and reports false.
func (e *Engine) Join(l *models.Lobby, nickname string) bool {
	if l.HasPlayer(nickname) {
		return false
	}
	l.Players = append(l.Players, nickname)
	if l.Host == "" {
		l.Host = nickname
	}

	if gs := l.Game; gs != nil {
		if _, ok := gs.Scores[nickname]; !ok {
			gs.Scores[nickname] = 0
		}
		switch {
		case !l.GameStarted || gs.GameFinished:
		case gs.RoundFinished:
			// A player arriving after everyone finished sits the round out so
			// the completion invariant still holds for the whole table.
			gs.Attempts[nickname] = models.MaxAttempts
		default:
			if rec, ok := gs.Departed[nickname]; ok {
				gs.Attempts[nickname] = rec.Attempts
				gs.Guesses[nickname] = rec.Guesses
				delete(gs.Departed, nickname)
			}
		}
	}

	e.log.WithFields(logrus.Fields{"room": l.RoomCode, "player": nickname}).Debug("player joined")
	return true
}

// Leave removes nickname from the lobby and this round's maps, hands host to
// the earliest remaining joiner and re-checks round completion. The game score
// is kept for a rejoin. Leaving a room you are not in is a no-op and reports
// false. Callers delete the lobby once it is Empty.
func (e *Engine) Leave(l *models.Lobby, nickname string) bool {
	idx := slices.Index(l.Players, nickname)
	if idx < 0 {
		return false
	}
	l.Players = slices.Delete(l.Players, idx, idx+1)

	if l.Host == nickname {
		l.Host = ""
		if len(l.Players) > 0 {
			l.Host = l.Players[0]
		}
	}

	if gs := l.Game; gs != nil {
		if n := gs.Attempts[nickname]; n > 0 && l.GameStarted && !gs.RoundFinished {
			if gs.Departed == nil {
				gs.Departed = make(map[string]models.RoundRecord)
			}
			gs.Departed[nickname] = models.RoundRecord{Attempts: n, Guesses: gs.Guesses[nickname]}
		}
		delete(gs.Attempts, nickname)
		delete(gs.Guesses, nickname)
		if l.GameStarted && !gs.GameFinished {
			e.settleRound(l)
		}
	}

	e.log.WithFields(logrus.Fields{"room": l.RoomCode, "player": nickname, "host": l.Host}).Debug("player left")
	return true
}

// Start draws the game's songs and opens round one. totalRounds of zero uses
// DefaultRounds; a catalog smaller than the request shortens the game.
func (e *Engine) Start(l *models.Lobby, caller string, totalRounds int) error {
	if !l.IsHost(caller) {
		return Errorf(CodeForbidden, "only the host can start the game")
	}
	if l.GameStarted {
		return Errorf(CodeAlreadyInProgress, "game already started")
	}
	if len(l.Players) < 2 {
		return Errorf(CodeNotEnoughPlayers, "at least 2 players are needed to start")
	}
	if totalRounds < 0 {
		return Errorf(CodeInvalidInput, "totalRounds must be positive")
	}
	if totalRounds == 0 {
		totalRounds = e.DefaultRounds
	}

	songs, err := e.catalog.Sample(totalRounds)
	if err != nil {
		return fmt.Errorf("drawing songs for room %s: %w", l.RoomCode, err)
	}
	if len(songs) < totalRounds {
		e.log.WithFields(logrus.Fields{
			"room":      l.RoomCode,
			"requested": totalRounds,
			"available": len(songs),
		}).Warn("catalog smaller than requested rounds; shortening game")
	}

	gs := models.NewGameState(l.Players)
	gs.Songs = songs
	gs.TotalRounds = len(songs)

	l.Game = gs
	l.GameStarted = true

	e.log.WithFields(logrus.Fields{"room": l.RoomCode, "game": gs.ID, "rounds": gs.TotalRounds}).Info("game started")
	return nil
}

// Guess grades one guess from player. round, when non-zero, must equal the
// current round; it guards against a guess aimed at an earlier round being
// charged to the next one.
func (e *Engine) Guess(l *models.Lobby, player, text string, round int) (*GuessOutcome, error) {
	gs, err := e.openRoundFor(l, player, round)
	if err != nil {
		return nil, err
	}
	target := gs.CurrentSong()
	if target == nil {
		return nil, fmt.Errorf("room %s round %d has no song", l.RoomCode, gs.CurrentRound)
	}

	attempt := gs.Attempts[player] + 1
	gs.Attempts[player] = attempt

	res := e.eval.Classify(text, *target)
	out := &GuessOutcome{
		Guess:  models.Guess{Text: text, AttemptNumber: attempt, Tier: res.Tier},
		Result: res,
	}

	if res.Tier == models.TierExact && !gs.HasWon(player) {
		out.Points = scoring.PointsFor(attempt)
		out.Guess.AwardedWin = true
		gs.Scores[player] += out.Points
		gs.RoundWinners = append(gs.RoundWinners, player)
	}
	gs.Guesses[player] = append(gs.Guesses[player], out.Guess)
	out.RoundFinished = e.settleRound(l)

	e.log.WithFields(logrus.Fields{
		"room":    l.RoomCode,
		"player":  player,
		"round":   gs.CurrentRound,
		"attempt": attempt,
		"tier":    res.Tier,
		"points":  out.Points,
	}).Debug("guess graded")
	return out, nil
}

// Skip spends one attempt without guessing. It never wins the round.
func (e *Engine) Skip(l *models.Lobby, player string, round int) (*GuessOutcome, error) {
	gs, err := e.openRoundFor(l, player, round)
	if err != nil {
		return nil, err
	}

	attempt := gs.Attempts[player] + 1
	gs.Attempts[player] = attempt

	out := &GuessOutcome{
		Guess:  models.Guess{AttemptNumber: attempt, Tier: models.TierSkipped},
		Result: evaluator.Result{Tier: models.TierSkipped},
	}
	gs.Guesses[player] = append(gs.Guesses[player], out.Guess)
	out.RoundFinished = e.settleRound(l)

	e.log.WithFields(logrus.Fields{
		"room":    l.RoomCode,
		"player":  player,
		"round":   gs.CurrentRound,
		"attempt": attempt,
	}).Debug("attempt skipped")
	return out, nil
}

// NextRound advances a finished round. Advancing past the last round ends the
// game.
func (e *Engine) NextRound(l *models.Lobby, caller string, round int) error {
	if !l.IsHost(caller) {
		return Errorf(CodeForbidden, "only the host can advance the round")
	}
	gs := l.Game
	if !l.GameStarted || gs == nil {
		return Errorf(CodeGameNotStarted, "game has not started")
	}
	if gs.GameFinished {
		return Errorf(CodeStaleRound, "game is already finished")
	}
	if round != 0 && round != gs.CurrentRound {
		return Errorf(CodeStaleRound, "round %d is over; current round is %d", round, gs.CurrentRound)
	}
	if !gs.RoundFinished {
		return Errorf(CodeStaleRound, "round %d is still in progress", gs.CurrentRound)
	}

	gs.Attempts = make(map[string]int)
	gs.Guesses = make(map[string][]models.Guess)
	gs.RoundWinners = []string{}
	gs.Departed = nil
	gs.RoundFinished = false
	gs.CurrentRound++

	fields := logrus.Fields{"room": l.RoomCode, "round": gs.CurrentRound}
	if gs.CurrentRound > gs.TotalRounds {
		gs.GameFinished = true
		e.log.WithFields(fields).Info("game finished")
		return nil
	}
	e.log.WithFields(fields).Debug("round advanced")
	return nil
}

// Reset discards the current game and returns the lobby to the waiting state
// with every score at zero.
func (e *Engine) Reset(l *models.Lobby, caller string) error {
	if !l.IsHost(caller) {
		return Errorf(CodeForbidden, "only the host can reset the game")
	}
	l.Game = models.NewGameState(l.Players)
	l.GameStarted = false

	e.log.WithFields(logrus.Fields{"room": l.RoomCode}).Info("game reset")
	return nil
}

// openRoundFor validates that player may spend an attempt right now.
func (e *Engine) openRoundFor(l *models.Lobby, player string, round int) (*models.GameState, error) {
	gs := l.Game
	if !l.GameStarted || gs == nil {
		return nil, Errorf(CodeGameNotStarted, "game has not started")
	}
	if !l.HasPlayer(player) {
		return nil, Errorf(CodeForbidden, "%s is not in this room", player)
	}
	if gs.GameFinished {
		return nil, Errorf(CodeStaleRound, "game is already finished")
	}
	if round != 0 && round != gs.CurrentRound {
		return nil, Errorf(CodeStaleRound, "round %d is over; current round is %d", round, gs.CurrentRound)
	}
	if gs.RoundFinished {
		return nil, Errorf(CodeStaleRound, "round %d is already finished", gs.CurrentRound)
	}
	if gs.HasWon(player) {
		return nil, Errorf(CodeStaleRound, "%s already answered this round", player)
	}

	if n := gs.Attempts[player]; n > models.MaxAttempts {
		e.log.WithFields(logrus.Fields{
			"room":     l.RoomCode,
			"player":   player,
			"attempts": n,
		}).Warn("attempt count above limit; clamping")
		gs.Attempts[player] = models.MaxAttempts
	}
	if gs.Attempts[player] >= models.MaxAttempts {
		return nil, Errorf(CodeStaleRound, "%s has no attempts left this round", player)
	}
	return gs, nil
}

// settleRound marks the round finished once every seated player has either
// won or spent every attempt, filling in the NONE sentinel when nobody won.
func (e *Engine) settleRound(l *models.Lobby) bool {
	gs := l.Game
	if gs.RoundFinished {
		return true
	}
	if len(l.Players) == 0 {
		return false
	}
	for _, p := range l.Players {
		if gs.Attempts[p] < models.MaxAttempts && !gs.HasWon(p) {
			return false
		}
	}

	gs.RoundFinished = true
	if len(gs.RoundWinners) == 0 {
		gs.RoundWinners = []string{models.NoWinner}
	}
	e.log.WithFields(logrus.Fields{
		"room":    l.RoomCode,
		"round":   gs.CurrentRound,
		"winners": gs.RoundWinners,
	}).Debug("round finished")
	return true
}
