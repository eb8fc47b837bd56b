// Package gateway is the transport-agnostic entry point for room actions. It
// validates input, runs each transition inside a RoomStore mutation and turns
// the result into client snapshots.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/vgmguess/internal/game"
	"github.com/jason-s-yu/vgmguess/internal/models"
	"github.com/jason-s-yu/vgmguess/internal/scoring"
	"github.com/jason-s-yu/vgmguess/internal/store"
	"github.com/sirupsen/logrus"
)

// MaxNicknameLength bounds a nickname in characters after trimming.
const MaxNicknameLength = 20

// EventPublisher receives room history events. *cache.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.RoomEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.RoomEvent) error { return nil }

// Gateway exposes the lobby operations.
type Gateway struct {
	store  store.RoomStore
	engine *game.Engine
	events EventPublisher
	log    logrus.FieldLogger
	now    func() time.Time

	publishTimeout time.Duration
	pending        sync.WaitGroup
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithEvents publishes room history to p.
func WithEvents(p EventPublisher) Option {
	return func(g *Gateway) {
		if p != nil {
			g.events = p
		}
	}
}

// New builds a gateway over s and e.
func New(s store.RoomStore, e *game.Engine, logger logrus.FieldLogger, opts ...Option) *Gateway {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	g := &Gateway{
		store:          s,
		engine:         e,
		events:         nopPublisher{},
		log:            logger,
		now:            time.Now,
		publishTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Close waits for in-flight event publishes.
func (g *Gateway) Close() {
	g.pending.Wait()
}

// GuessResult is the reply to a guess.
type GuessResult struct {
	Correct     bool        `json:"correct"`
	GameCorrect bool        `json:"gameCorrect"`
	Tier        models.Tier `json:"tier"`
	Attempts    int         `json:"attempts"`
	Points      int         `json:"points"`
	Message     string      `json:"message"`
	Lobby       *Snapshot   `json:"lobby"`
}

// LeaveResult is the reply to a leave. Lobby is nil when the room was deleted.
type LeaveResult struct {
	RoomDeleted bool      `json:"roomDeleted"`
	Lobby       *Snapshot `json:"lobby,omitempty"`
}

// CreateRoom opens a room hosted by nickname and returns its code.
func (g *Gateway) CreateRoom(ctx context.Context, nickname string) (string, error) {
	nick, err := validNickname(nickname)
	if err != nil {
		return "", err
	}
	l, err := g.store.Create(ctx, nick)
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	g.log.WithFields(logrus.Fields{"room": l.RoomCode, "host": nick}).Info("room created")
	g.publish(g.event(l, models.EventRoomCreated, nick, nil))
	return l.RoomCode, nil
}

// JoinRoom seats nickname in the room. Joining twice is not an error.
func (g *Gateway) JoinRoom(ctx context.Context, roomCode, nickname string) (*Snapshot, error) {
	code, nick, err := validRoomAndNickname(roomCode, nickname)
	if err != nil {
		return nil, err
	}
	var joined bool
	l, err := g.mutate(ctx, code, func(l *models.Lobby) error {
		joined = g.engine.Join(l, nick)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if joined {
		g.publish(g.event(l, models.EventPlayerJoined, nick, nil))
	}
	return NewSnapshot(l), nil
}

// PollRoom returns the current snapshot of a room.
func (g *Gateway) PollRoom(ctx context.Context, roomCode string) (*Snapshot, error) {
	code, err := validRoomCode(roomCode)
	if err != nil {
		return nil, err
	}
	l, err := g.store.Get(ctx, code)
	if err != nil {
		return nil, storeErr(err)
	}
	return NewSnapshot(l), nil
}

// StartGame starts a game of totalRounds rounds; zero uses the default.
func (g *Gateway) StartGame(ctx context.Context, roomCode, nickname string, totalRounds int) (*Snapshot, error) {
	code, nick, err := validRoomAndNickname(roomCode, nickname)
	if err != nil {
		return nil, err
	}
	if totalRounds < 0 {
		return nil, game.Errorf(game.CodeInvalidInput, "totalRounds must be positive")
	}
	l, err := g.mutate(ctx, code, func(l *models.Lobby) error {
		return g.engine.Start(l, nick, totalRounds)
	})
	if err != nil {
		return nil, err
	}
	g.publish(g.event(l, models.EventGameStarted, nick, map[string]any{
		"totalRounds": l.Game.TotalRounds,
		"players":     l.Players,
	}))
	return NewSnapshot(l), nil
}

// Guess grades a guess for the player's current round. round, when non-zero,
// must match the room's current round.
func (g *Gateway) Guess(ctx context.Context, roomCode, nickname, text string, round int) (*GuessResult, error) {
	code, nick, err := validRoomAndNickname(roomCode, nickname)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, game.Errorf(game.CodeInvalidInput, "guess is required")
	}

	var out *game.GuessOutcome
	l, err := g.mutate(ctx, code, func(l *models.Lobby) error {
		var err error
		out, err = g.engine.Guess(l, nick, text, round)
		return err
	})
	if err != nil {
		return nil, err
	}

	g.publish(g.event(l, models.EventGuess, nick, map[string]any{
		"text":    text,
		"tier":    out.Guess.Tier,
		"attempt": out.Guess.AttemptNumber,
		"points":  out.Points,
	}))
	if out.RoundFinished {
		g.publish(g.roundFinished(l))
	}

	return &GuessResult{
		Correct:     out.Guess.Tier == models.TierExact,
		GameCorrect: out.Guess.Tier == models.TierExact || out.Guess.Tier == models.TierSameGame,
		Tier:        out.Guess.Tier,
		Attempts:    out.Guess.AttemptNumber,
		Points:      out.Points,
		Message:     guessMessage(out),
		Lobby:       NewSnapshot(l),
	}, nil
}

// Skip spends one of the player's attempts.
func (g *Gateway) Skip(ctx context.Context, roomCode, nickname string, round int) (*Snapshot, error) {
	code, nick, err := validRoomAndNickname(roomCode, nickname)
	if err != nil {
		return nil, err
	}
	var out *game.GuessOutcome
	l, err := g.mutate(ctx, code, func(l *models.Lobby) error {
		var err error
		out, err = g.engine.Skip(l, nick, round)
		return err
	})
	if err != nil {
		return nil, err
	}
	g.publish(g.event(l, models.EventSkip, nick, map[string]any{"attempt": out.Guess.AttemptNumber}))
	if out.RoundFinished {
		g.publish(g.roundFinished(l))
	}
	return NewSnapshot(l), nil
}

// NextRound advances a finished round. Host only.
func (g *Gateway) NextRound(ctx context.Context, roomCode, nickname string, round int) (*Snapshot, error) {
	code, nick, err := validRoomAndNickname(roomCode, nickname)
	if err != nil {
		return nil, err
	}
	l, err := g.mutate(ctx, code, func(l *models.Lobby) error {
		return g.engine.NextRound(l, nick, round)
	})
	if err != nil {
		return nil, err
	}
	if l.Game.GameFinished {
		standings := scoring.Standings(l.Players, l.Game.Scores)
		g.publish(g.event(l, models.EventGameFinished, nick, map[string]any{
			"standings": standings,
			"winners":   scoring.Winners(standings),
		}))
	} else {
		g.publish(g.event(l, models.EventNextRound, nick, nil))
	}
	return NewSnapshot(l), nil
}

// ResetGame discards the current game. Host only.
func (g *Gateway) ResetGame(ctx context.Context, roomCode, nickname string) (*Snapshot, error) {
	code, nick, err := validRoomAndNickname(roomCode, nickname)
	if err != nil {
		return nil, err
	}
	var previous uuid.UUID
	l, err := g.mutate(ctx, code, func(l *models.Lobby) error {
		previous = uuid.Nil
		if l.Game != nil {
			previous = l.Game.ID
		}
		return g.engine.Reset(l, nick)
	})
	if err != nil {
		return nil, err
	}
	ev := g.event(l, models.EventGameReset, nick, nil)
	ev.GameID = previous
	g.publish(ev)
	return NewSnapshot(l), nil
}

// LeaveRoom removes nickname from the room, deleting the room once it is empty.
func (g *Gateway) LeaveRoom(ctx context.Context, roomCode, nickname string) (*LeaveResult, error) {
	code, nick, err := validRoomAndNickname(roomCode, nickname)
	if err != nil {
		return nil, err
	}
	var left, finishedBefore bool
	l, err := g.mutate(ctx, code, func(l *models.Lobby) error {
		finishedBefore = l.Game != nil && l.Game.RoundFinished
		left = g.engine.Leave(l, nick)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if left {
		g.publish(g.event(l, models.EventPlayerLeft, nick, map[string]any{"host": l.Host}))
	}
	if l.Empty() {
		g.log.WithField("room", code).Info("room deleted after last player left")
		g.publish(g.event(l, models.EventRoomDeleted, nick, nil))
		return &LeaveResult{RoomDeleted: true}, nil
	}
	if left && l.GameStarted && !finishedBefore && l.Game.RoundFinished {
		g.publish(g.roundFinished(l))
	}
	return &LeaveResult{Lobby: NewSnapshot(l)}, nil
}

func (g *Gateway) mutate(ctx context.Context, code string, fn store.MutateFunc) (*models.Lobby, error) {
	l, err := g.store.Mutate(ctx, code, fn)
	if err != nil {
		return nil, storeErr(err)
	}
	return l, nil
}

func (g *Gateway) roundFinished(l *models.Lobby) models.RoomEvent {
	return g.event(l, models.EventRoundFinished, "", map[string]any{
		"winners": l.Game.RoundWinners,
		"songId":  songID(l.Game.CurrentSong()),
	})
}

func (g *Gateway) event(l *models.Lobby, typ models.EventType, actor string, payload map[string]any) models.RoomEvent {
	id, _ := uuid.NewV7()
	ev := models.RoomEvent{
		ID:        id,
		RoomCode:  l.RoomCode,
		Type:      typ,
		Actor:     actor,
		Payload:   payload,
		Timestamp: g.now().UnixMilli(),
	}
	if gs := l.Game; gs != nil && l.GameStarted {
		ev.GameID = gs.ID
		ev.Round = gs.CurrentRound
	}
	return ev
}

// publish hands ev to the publisher without holding up the request.
func (g *Gateway) publish(ev models.RoomEvent) {
	g.pending.Add(1)
	go func() {
		defer g.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), g.publishTimeout)
		defer cancel()
		if err := g.events.Publish(ctx, ev); err != nil {
			g.log.WithError(err).WithFields(logrus.Fields{
				"room": ev.RoomCode,
				"type": ev.Type,
			}).Warn("failed to publish room event")
		}
	}()
}

func storeErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return game.ErrRoomNotFound
	}
	return err
}

func songID(s *models.Song) string {
	if s == nil {
		return ""
	}
	return s.ID
}

func validRoomAndNickname(roomCode, nickname string) (string, string, error) {
	code, err := validRoomCode(roomCode)
	if err != nil {
		return "", "", err
	}
	nick, err := validNickname(nickname)
	if err != nil {
		return "", "", err
	}
	return code, nick, nil
}

func validRoomCode(roomCode string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(roomCode))
	if code == "" {
		return "", game.Errorf(game.CodeInvalidInput, "roomCode is required")
	}
	if !store.ValidRoomCode(code) {
		return "", game.Errorf(game.CodeInvalidInput, "roomCode must be %d letters or digits", store.RoomCodeLength)
	}
	return code, nil
}

func validNickname(nickname string) (string, error) {
	nick := strings.TrimSpace(nickname)
	if nick == "" {
		return "", game.Errorf(game.CodeInvalidInput, "nickname is required")
	}
	if utf8.RuneCountInString(nick) > MaxNicknameLength {
		return "", game.Errorf(game.CodeInvalidInput, "nickname must be at most %d characters", MaxNicknameLength)
	}
	// NONE marks a round nobody won
	if nick == models.NoWinner {
		return "", game.Errorf(game.CodeInvalidInput, "nickname %q is reserved", nick)
	}
	return nick, nil
}

func guessMessage(out *game.GuessOutcome) string {
	var msg string
	switch out.Guess.Tier {
	case models.TierExact:
		return fmt.Sprintf("Correct! +%d points", out.Points)
	case models.TierSameGame:
		msg = "Right game, wrong track."
	case models.TierSameFranchise:
		msg = "Right series, wrong game."
	default:
		msg = "Not quite."
		if out.Result.Close {
			msg = "So close! Check your spelling."
		}
	}
	switch left := models.MaxAttempts - out.Guess.AttemptNumber; {
	case left > 1:
		return fmt.Sprintf("%s %d attempts left.", msg, left)
	case left == 1:
		return msg + " 1 attempt left."
	default:
		return msg + " No attempts left this round."
	}
}
