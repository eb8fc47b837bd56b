package game

import (
	"errors"
	"fmt"
)

// Code is a stable, client-facing error identifier.
type Code string

const (
	CodeRoomNotFound      Code = "ROOM_NOT_FOUND"
	CodeForbidden         Code = "FORBIDDEN"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeStaleRound        Code = "STALE_ROUND"
	CodeAlreadyInProgress Code = "ALREADY_IN_PROGRESS"
	CodeNotEnoughPlayers  Code = "NOT_ENOUGH_PLAYERS"
	CodeGameNotStarted    Code = "GAME_NOT_STARTED"
	CodeInternal          Code = "INTERNAL"
)

// Error is a recoverable, user-facing rejection of an action.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from err, or CodeInternal for anything that is
// not an *Error.
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// ErrRoomNotFound is returned for any action against a room that does not exist.
var ErrRoomNotFound = &Error{Code: CodeRoomNotFound, Message: "room not found"}
