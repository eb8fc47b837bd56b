package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jason-s-yu/vgmguess/internal/game"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 64 << 10

type errorBody struct {
	Error        *game.Error `json:"error"`
	RoomNotFound bool        `json:"roomNotFound,omitempty"`
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code game.Code) int {
	switch code {
	case game.CodeRoomNotFound:
		return http.StatusNotFound
	case game.CodeForbidden:
		return http.StatusForbidden
	case game.CodeInvalidInput:
		return http.StatusBadRequest
	case game.CodeStaleRound, game.CodeAlreadyInProgress, game.CodeGameNotStarted, game.CodeNotEnoughPlayers:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as the error envelope. Anything that is not a
// *game.Error is logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error) {
	var ge *game.Error
	if !errors.As(err, &ge) {
		logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		ge = &game.Error{Code: game.CodeInternal, Message: "internal error"}
	}
	writeJSON(w, StatusFor(ge.Code), errorBody{
		Error:        ge,
		RoomNotFound: ge.Code == game.CodeRoomNotFound,
	})
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return game.Errorf(game.CodeInvalidInput, "request body is required")
		}
		return game.Errorf(game.CodeInvalidInput, "malformed request body")
	}
	return nil
}
