// internal/handlers/room.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/vgmguess/internal/game"
	"github.com/jason-s-yu/vgmguess/internal/gateway"
	"github.com/sirupsen/logrus"
)

// Room actions accepted by PATCH /api/room.
const (
	ActionStart     = "start"
	ActionGuess     = "guess"
	ActionSkip      = "skip"
	ActionNextRound = "nextRound"
	ActionReset     = "reset"
	ActionLeave     = "leave"
)

// RoomRequest is the body shared by every room call. Fields an action does
// not use are ignored.
type RoomRequest struct {
	Action      string `json:"action,omitempty"`
	RoomCode    string `json:"roomCode,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
	Guess       string `json:"guess,omitempty"`
	TotalRounds int    `json:"totalRounds,omitempty"`
	// Round is the round the client believes is current. Zero skips the check.
	Round int `json:"round,omitempty"`
}

// CreateResponse is the body returned by POST /api/room.
type CreateResponse struct {
	RoomCode string `json:"roomCode"`
}

type roomAPI struct {
	gw  *gateway.Gateway
	log logrus.FieldLogger
}

func (a *roomAPI) create(w http.ResponseWriter, r *http.Request) {
	var req RoomRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	code, err := a.gw.CreateRoom(r.Context(), req.Nickname)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateResponse{RoomCode: code})
}

func (a *roomAPI) join(w http.ResponseWriter, r *http.Request) {
	var req RoomRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	snap, err := a.gw.JoinRoom(r.Context(), req.RoomCode, req.Nickname)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *roomAPI) poll(w http.ResponseWriter, r *http.Request) {
	snap, err := a.gw.PollRoom(r.Context(), r.URL.Query().Get("roomCode"))
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *roomAPI) action(w http.ResponseWriter, r *http.Request) {
	var req RoomRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}

	ctx := r.Context()
	var (
		body any
		err  error
	)
	switch req.Action {
	case ActionStart:
		body, err = a.gw.StartGame(ctx, req.RoomCode, req.Nickname, req.TotalRounds)
	case ActionGuess:
		body, err = a.gw.Guess(ctx, req.RoomCode, req.Nickname, req.Guess, req.Round)
	case ActionSkip:
		body, err = a.gw.Skip(ctx, req.RoomCode, req.Nickname, req.Round)
	case ActionNextRound:
		body, err = a.gw.NextRound(ctx, req.RoomCode, req.Nickname, req.Round)
	case ActionReset:
		body, err = a.gw.ResetGame(ctx, req.RoomCode, req.Nickname)
	case ActionLeave:
		var res *gateway.LeaveResult
		res, err = a.gw.LeaveRoom(ctx, req.RoomCode, req.Nickname)
		if err == nil {
			if res.RoomDeleted {
				body = res
			} else {
				body = res.Lobby
			}
		}
	case "":
		err = game.Errorf(game.CodeInvalidInput, "action is required")
	default:
		err = game.Errorf(game.CodeInvalidInput, "unknown action %q", req.Action)
	}
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}
