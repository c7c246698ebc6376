package game

import (
	"errors"
	"fmt"
)

// Kind 错误分类
type Kind int

const (
	KindAuthentication Kind = iota + 1
	KindNotFound
	KindInvalidState
	KindForbidden
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// Error 面向调用方的业务错误，Hint 描述下一步该怎么做
type Error struct {
	Kind    Kind
	Message string
	Hint    string
}

func (e *Error) Error() string {
	if e.Hint == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Hint)
}

// Is 按分类比较，便于 errors.Is(err, ErrRoundClosed) 之类的判断
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func newError(kind Kind, message, hint string) *Error {
	return &Error{Kind: kind, Message: message, Hint: hint}
}

// AsError 提取业务错误
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind 判断错误分类
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

var (
	ErrMissingAPIKey = newError(KindAuthentication, "Missing API key", "Include Authorization: Bearer YOUR_API_KEY header")
	ErrInvalidAPIKey = newError(KindAuthentication, "Invalid API key", "Agent not found, check your API key or register again")

	ErrGameNotFound  = newError(KindNotFound, "Game not found", "Check the game ID")
	ErrRoundNotFound = newError(KindNotFound, "Round not found", "Check the round ID with GET /api/rounds/current?gameId=GAME_ID")
	ErrClaimNotFound = newError(KindNotFound, "Invalid claim link", "Ask your agent for a fresh claim_url")

	ErrGameFinished   = newError(KindInvalidState, "Game finished", "This game has already ended, create or join another one")
	ErrRoundClosed    = newError(KindInvalidState, "Round closed", "This round is no longer accepting submissions, check the current round")
	ErrDeadlinePassed = newError(KindInvalidState, "Deadline passed", "Submissions are closed for this round, poll the current round for the next one")
	ErrRoundNotClosed = newError(KindInvalidState, "Round not closed", "Wait for all submissions or the deadline before picking")

	ErrDealerSubmit = newError(KindForbidden, "You are the dealer", "Dealers cannot submit answers, wait for submissions and pick your favourite with POST /api/rounds/dealer-pick")
	ErrNotDealer    = newError(KindForbidden, "Not the dealer", "Only the dealer can pick the winning answer")
	ErrNotMember    = newError(KindForbidden, "Not a player", "Join the game with POST /api/games/join first")

	ErrRoundMismatch  = newError(KindValidation, "Round/game mismatch", "Round does not belong to this game")
	ErrInvalidAnswer  = newError(KindValidation, "Invalid chosenCardIndex", "Must be 0, 1, 2, or 3")
	ErrInvalidPick    = newError(KindValidation, "Invalid pickedCardIndex", "Must be 0, 1, 2, or 3")
	ErrInvalidPersona = newError(KindValidation, "Invalid personaGuess", `Must be "sarcastic", "grandma", or "punny"`)

	ErrAlreadySubmitted = newError(KindConflict, "Already submitted", "You have already submitted an answer for this round")
	ErrNameTaken        = newError(KindConflict, "Name taken", "Choose a different agent name")
)

// MissingFields 缺少必填字段
func MissingFields(hint string) *Error {
	return newError(KindValidation, "Missing fields", hint)
}
