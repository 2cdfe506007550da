package game

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrRoomNotFound          = fmt.Errorf("room %w", ErrNotFound)
	ErrPlayerNotFound        = fmt.Errorf("player %w", ErrNotFound)
	ErrDrawingNotFound       = fmt.Errorf("drawing %w", ErrNotFound)
	ErrRoomFull              = errors.New("room is full")
	ErrInvalidPhase          = errors.New("action not allowed in current phase")
	ErrDuplicateWord         = errors.New("word already submitted")
	ErrInsufficientPlayers   = fmt.Errorf("at least %d players required", MinPlayersToStart)
	ErrIncompleteSubmissions = errors.New("not all players have submitted a word")
	ErrAlreadyVoted          = errors.New("already voted this round")
	ErrAlreadySubmitted      = errors.New("drawing already submitted this round")
	ErrNotBound              = errors.New("connection is not in a lobby")
	ErrInvalidInput          = errors.New("invalid input")
)

// ErrorCode maps an action error to the code sent to clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrPlayerNotFound):
		return "player_not_found"
	case errors.Is(err, ErrDrawingNotFound):
		return "drawing_not_found"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRoomFull):
		return "room_full"
	case errors.Is(err, ErrInvalidPhase):
		return "invalid_phase"
	case errors.Is(err, ErrDuplicateWord):
		return "duplicate_word"
	case errors.Is(err, ErrInsufficientPlayers):
		return "insufficient_players"
	case errors.Is(err, ErrIncompleteSubmissions):
		return "incomplete_submissions"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, ErrAlreadySubmitted):
		return "already_submitted"
	case errors.Is(err, ErrNotBound):
		return "not_bound"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
