package room

import (
	"errors"

	"github.com/battleiq/quiz-battle-backend/internal/engine"
)

type EventKind string

const (
	KindRoster   EventKind = "roster"
	KindQuestion EventKind = "question"
	KindGameOver EventKind = "game_over"
	KindError    EventKind = "error"
)

// Event is what rooms push to connection outboxes. Question events carry
// the prompt and options only; the correct answer never leaves the
// engine, because scoring happens server-side.
type Event struct {
	Kind     EventKind
	Players  []engine.Player // roster and game_over, sorted by score
	Capacity int
	Prompt   string
	Options  []string
	Index    int
	Total    int
	Code     string // error events
	Message  string
}

const (
	CodeRoomFull       = "room_full"
	CodeGameInProgress = "game_in_progress"
	CodeAlreadyStarted = "already_started"
	CodeNoQuestions    = "no_questions"
	CodeUnknownRoom    = "unknown_room"
	CodeFetchError     = "fetch_error"
	CodeBadRequest     = "bad_request"
)

func rosterEvent(s engine.State) Event {
	return Event{Kind: KindRoster, Players: engine.Standings(s), Capacity: s.Capacity}
}

func questionEvent(q engine.Question, index, total int) Event {
	return Event{Kind: KindQuestion, Prompt: q.Prompt, Options: q.Options, Index: index, Total: total}
}

func gameOverEvent(s engine.State) Event {
	return Event{Kind: KindGameOver, Players: engine.Standings(s)}
}

// ErrorCode maps engine rejections onto wire error codes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrRoomFull):
		return CodeRoomFull
	case errors.Is(err, engine.ErrGameInProgress):
		return CodeGameInProgress
	case errors.Is(err, engine.ErrAlreadyStarted):
		return CodeAlreadyStarted
	case errors.Is(err, engine.ErrNoQuestions):
		return CodeNoQuestions
	default:
		return CodeBadRequest
	}
}

func errorEvent(err error) Event {
	return Event{Kind: KindError, Code: ErrorCode(err), Message: err.Error()}
}
