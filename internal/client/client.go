// Package client talks to the room API over HTTP and keeps a local copy of
// a room current by polling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jason-s-yu/vgmguess/internal/game"
	"github.com/jason-s-yu/vgmguess/internal/gateway"
	"github.com/jason-s-yu/vgmguess/internal/handlers"
)

// DefaultTimeout bounds every call so a stalled server fails soft.
const DefaultTimeout = 5 * time.Second

// ErrRoomGone means the room no longer exists. Polling should stop.
var ErrRoomGone = errors.New("client: room no longer exists")

// APIError is a rejection returned by the server.
type APIError struct {
	Status  int
	Code    game.Code
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Is lets errors.Is(err, ErrRoomGone) match a ROOM_NOT_FOUND rejection.
func (e *APIError) Is(target error) bool {
	return target == ErrRoomGone && e.Code == game.CodeRoomNotFound
}

// IsRejection reports whether err is the server refusing an action, as
// opposed to a transport failure or server fault. Rejections should be shown
// to the user without resetting local state.
func IsRejection(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code == game.CodeRoomNotFound {
		return false
	}
	if apiErr.Status == http.StatusTooManyRequests || apiErr.Status == http.StatusRequestTimeout {
		return false
	}
	return apiErr.Status >= 400 && apiErr.Status < 500
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrRoomGone) || errors.Is(err, context.Canceled) {
		return false
	}
	return !IsRejection(err)
}

// Client calls the room API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateRoom opens a room hosted by nickname.
func (c *Client) CreateRoom(ctx context.Context, nickname string) (string, error) {
	var out handlers.CreateResponse
	err := c.do(ctx, http.MethodPost, handlers.RoomRequest{Nickname: nickname}, &out)
	return out.RoomCode, err
}

// JoinRoom seats nickname in roomCode.
func (c *Client) JoinRoom(ctx context.Context, roomCode, nickname string) (*gateway.Snapshot, error) {
	var out gateway.Snapshot
	if err := c.do(ctx, http.MethodPut, handlers.RoomRequest{RoomCode: roomCode, Nickname: nickname}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Poll fetches the latest snapshot of roomCode.
func (c *Client) Poll(ctx context.Context, roomCode string) (*gateway.Snapshot, error) {
	var out gateway.Snapshot
	u := c.baseURL + "/api/room?roomCode=" + url.QueryEscape(roomCode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Start starts the game; totalRounds of zero uses the server default.
func (c *Client) Start(ctx context.Context, roomCode, nickname string, totalRounds int) (*gateway.Snapshot, error) {
	return c.action(ctx, handlers.RoomRequest{Action: handlers.ActionStart, RoomCode: roomCode, Nickname: nickname, TotalRounds: totalRounds})
}

// Guess submits a guess for round.
func (c *Client) Guess(ctx context.Context, roomCode, nickname, guess string, round int) (*gateway.GuessResult, error) {
	var out gateway.GuessResult
	req := handlers.RoomRequest{Action: handlers.ActionGuess, RoomCode: roomCode, Nickname: nickname, Guess: guess, Round: round}
	if err := c.do(ctx, http.MethodPatch, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Skip spends one attempt in round.
func (c *Client) Skip(ctx context.Context, roomCode, nickname string, round int) (*gateway.Snapshot, error) {
	return c.action(ctx, handlers.RoomRequest{Action: handlers.ActionSkip, RoomCode: roomCode, Nickname: nickname, Round: round})
}

// NextRound advances past a finished round.
func (c *Client) NextRound(ctx context.Context, roomCode, nickname string, round int) (*gateway.Snapshot, error) {
	return c.action(ctx, handlers.RoomRequest{Action: handlers.ActionNextRound, RoomCode: roomCode, Nickname: nickname, Round: round})
}

// Reset discards the current game.
func (c *Client) Reset(ctx context.Context, roomCode, nickname string) (*gateway.Snapshot, error) {
	return c.action(ctx, handlers.RoomRequest{Action: handlers.ActionReset, RoomCode: roomCode, Nickname: nickname})
}

// Leave removes nickname from the room. The snapshot is nil when the room
// was deleted.
func (c *Client) Leave(ctx context.Context, roomCode, nickname string) (*gateway.Snapshot, bool, error) {
	var raw json.RawMessage
	req := handlers.RoomRequest{Action: handlers.ActionLeave, RoomCode: roomCode, Nickname: nickname}
	if err := c.do(ctx, http.MethodPatch, req, &raw); err != nil {
		return nil, false, err
	}
	var deleted gateway.LeaveResult
	if err := json.Unmarshal(raw, &deleted); err == nil && deleted.RoomDeleted {
		return nil, true, nil
	}
	var snap gateway.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, fmt.Errorf("decode leave response: %w", err)
	}
	return &snap, false, nil
}

func (c *Client) action(ctx context.Context, body handlers.RoomRequest) (*gateway.Snapshot, error) {
	var out gateway.Snapshot
	if err := c.do(ctx, http.MethodPatch, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method string, body handlers.RoomRequest, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/room", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var env struct {
		Error        *game.Error `json:"error"`
		RoomNotFound bool        `json:"roomNotFound"`
	}
	apiErr := &APIError{Status: status, Code: game.CodeInternal, Message: http.StatusText(status)}
	if json.Unmarshal(data, &env) == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	if env.RoomNotFound {
		apiErr.Code = game.CodeRoomNotFound
	}
	return apiErr
}
