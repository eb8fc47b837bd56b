// internal/handlers/room_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jason-s-yu/vgmguess/internal/catalog"
	"github.com/jason-s-yu/vgmguess/internal/game"
	"github.com/jason-s-yu/vgmguess/internal/gateway"
	"github.com/jason-s-yu/vgmguess/internal/middleware"
	"github.com/jason-s-yu/vgmguess/internal/models"
	"github.com/jason-s-yu/vgmguess/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, opts RouterOptions) http.Handler {
	t.Helper()
	logger, _ := test.NewNullLogger()
	songs := make([]models.Song, 5)
	for i := range songs {
		songs[i] = models.Song{ID: fmt.Sprintf("s%d", i), Title: fmt.Sprintf("Stage Theme %d", i), Game: fmt.Sprintf("Quest %d", i)}
	}
	eng := game.NewEngine(catalog.NewMemory(songs, catalog.WithSeed(3)), logger)
	gw := gateway.New(store.NewMemoryStore(), eng, logger)
	t.Cleanup(gw.Close)
	return NewRouter(gw, logger, opts)
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorEnvelope struct {
	Error        game.Error `json:"error"`
	RoomNotFound bool       `json:"roomNotFound"`
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	h := newTestRouter(t, RouterOptions{})

	w := do(t, h, http.MethodPost, "/api/room", RoomRequest{Nickname: "Ana"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	code := decode[CreateResponse](t, w).RoomCode
	require.True(t, store.ValidRoomCode(code))

	w = do(t, h, http.MethodPut, "/api/room", RoomRequest{RoomCode: code, Nickname: "Bo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Ana", "Bo"}, decode[gateway.Snapshot](t, w).Players)

	w = do(t, h, http.MethodPatch, "/api/room", RoomRequest{Action: ActionStart, RoomCode: code, Nickname: "Ana", TotalRounds: 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decode[gateway.Snapshot](t, w)
	require.NotNil(t, snap.Game.CurrentSong)

	w = do(t, h, http.MethodPatch, "/api/room", RoomRequest{Action: ActionGuess, RoomCode: code, Nickname: "Bo", Guess: snap.Game.CurrentSong.Title, Round: 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[gateway.GuessResult](t, w)
	assert.True(t, res.Correct)
	assert.Equal(t, 6, res.Lobby.Game.Scores["Bo"])

	w = do(t, h, http.MethodPatch, "/api/room", RoomRequest{Action: ActionSkip, RoomCode: code, Nickname: "Ana"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[gateway.Snapshot](t, w).Game.Attempts["Ana"])

	w = do(t, h, http.MethodGet, "/api/room?roomCode="+code, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[gateway.Snapshot](t, w).Game.CurrentRound)

	w = do(t, h, http.MethodPatch, "/api/room", RoomRequest{Action: ActionReset, RoomCode: code, Nickname: "Ana"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[gateway.Snapshot](t, w).GameStarted)

	w = do(t, h, http.MethodPatch, "/api/room", RoomRequest{Action: ActionLeave, RoomCode: code, Nickname: "Ana"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bo", decode[gateway.Snapshot](t, w).Host)

	w = do(t, h, http.MethodPatch, "/api/room", RoomRequest{Action: ActionLeave, RoomCode: code, Nickname: "Bo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[gateway.LeaveResult](t, w).RoomDeleted)

	w = do(t, h, http.MethodGet, "/api/room?roomCode="+code, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	env := decode[errorEnvelope](t, w)
	assert.True(t, env.RoomNotFound)
	assert.Equal(t, game.CodeRoomNotFound, env.Error.Code)
}

func TestErrorStatuses(t *testing.T) {
	h := newTestRouter(t, RouterOptions{})
	w := do(t, h, http.MethodPost, "/api/room", RoomRequest{Nickname: "Ana"})
	require.Equal(t, http.StatusCreated, w.Code)
	code := decode[CreateResponse](t, w).RoomCode
	do(t, h, http.MethodPut, "/api/room", RoomRequest{RoomCode: code, Nickname: "Bo"})

	tests := []struct {
		name   string
		method string
		body   any
		status int
		code   game.Code
	}{
		{"malformed json", http.MethodPost, "{nope", http.StatusBadRequest, game.CodeInvalidInput},
		{"empty body", http.MethodPut, "", http.StatusBadRequest, game.CodeInvalidInput},
		{"missing action", http.MethodPatch, RoomRequest{RoomCode: code, Nickname: "Ana"}, http.StatusBadRequest, game.CodeInvalidInput},
		{"unknown action", http.MethodPatch, RoomRequest{Action: "dance", RoomCode: code, Nickname: "Ana"}, http.StatusBadRequest, game.CodeInvalidInput},
		{"non-host start", http.MethodPatch, RoomRequest{Action: ActionStart, RoomCode: code, Nickname: "Bo"}, http.StatusForbidden, game.CodeForbidden},
		{"guess before start", http.MethodPatch, RoomRequest{Action: ActionGuess, RoomCode: code, Nickname: "Bo", Guess: "x"}, http.StatusConflict, game.CodeGameNotStarted},
		{"join missing room", http.MethodPut, RoomRequest{RoomCode: "ZZZZZ9", Nickname: "Cy"}, http.StatusNotFound, game.CodeRoomNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, tc.method, "/api/room", tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.code, decode[errorEnvelope](t, w).Error.Code)
		})
	}

	// a second start is rejected as already in progress
	w = do(t, h, http.MethodPatch, "/api/room", RoomRequest{Action: ActionStart, RoomCode: code, Nickname: "Ana"})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, http.MethodPatch, "/api/room", RoomRequest{Action: ActionStart, RoomCode: code, Nickname: "Ana"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, game.CodeAlreadyInProgress, decode[errorEnvelope](t, w).Error.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusFor(game.CodeRoomNotFound))
	assert.Equal(t, http.StatusConflict, StatusFor(game.CodeStaleRound))
	assert.Equal(t, http.StatusConflict, StatusFor(game.CodeNotEnoughPlayers))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(game.CodeInternal))
	assert.Equal(t, http.StatusInternalServerError, StatusFor("SOMETHING_ELSE"))
}

func TestHealthAndRateLimit(t *testing.T) {
	h := newTestRouter(t, RouterOptions{Limiter: middleware.NewRateLimiter(0.001, 1)})

	w := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/room?roomCode=ZZZZZ9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, http.MethodGet, "/api/room?roomCode=ZZZZZ9", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// health checks are not throttled
	w = do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
	send := func(h http.Handler, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/room?roomCode=ZZZZZ9", nil)
		req.RemoteAddr = "192.0.2.1:4000"
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	h := newTestRouter(t, RouterOptions{Limiter: middleware.NewRateLimiter(0.001, 1)})
	assert.Equal(t, http.StatusNotFound, send(h, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, send(h, "203.0.113.2"), "a new forwarded address shares the peer's bucket")

	// behind a trusted proxy each forwarded client gets its own bucket
	h = newTestRouter(t, RouterOptions{Limiter: middleware.NewRateLimiter(0.001, 1), TrustProxy: true})
	assert.Equal(t, http.StatusNotFound, send(h, "203.0.113.1"))
	assert.Equal(t, http.StatusNotFound, send(h, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send(h, "203.0.113.1"))
}
