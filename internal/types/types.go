package types

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/battleiq/quiz-battle-backend/internal/engine"
)

const (
	MsgJoin         = "join"
	MsgStartBattle  = "start_battle"
	MsgSubmitAnswer = "submit_answer"
	MsgLeave        = "leave"
)

// ClientMessage is the inbound tagged variant. Per-kind required fields
// are enforced by Validate before anything reaches the state machine.
type ClientMessage struct {
	Type          string            `json:"type" validate:"required,oneof=join start_battle submit_answer leave"`
	RoomID        string            `json:"room_id,omitempty" validate:"omitempty,alphanum,max=12"`
	PlayerID      string            `json:"player_id,omitempty" validate:"omitempty,max=64"`
	Name          string            `json:"name,omitempty" validate:"omitempty,max=32"`
	Capacity      int               `json:"capacity,omitempty" validate:"omitempty,min=1,max=16"`
	Policy        string            `json:"policy,omitempty" validate:"omitempty,oneof=flat speed"`
	Option        string            `json:"option,omitempty"`
	TimeRemaining int               `json:"time_remaining,omitempty" validate:"omitempty,min=0"`
	Questions     []QuestionPayload `json:"questions,omitempty" validate:"omitempty,max=50,dive"`
	Amount        int               `json:"amount,omitempty" validate:"omitempty,min=1,max=50"`
	Category      int               `json:"category,omitempty" validate:"omitempty,min=0"`
}

// QuestionPayload is the external question-record shape: entities already
// decoded by the question source, correct answer an exact option member.
type QuestionPayload struct {
	Prompt        string   `json:"prompt" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,max=6,dive,required"`
	CorrectAnswer string   `json:"correct_answer" validate:"required"`
}

type ServerMessage struct {
	Type     string        `json:"type"` // "roster" | "question" | "game_over" | "error"
	Players  []PlayerInfo  `json:"players,omitempty"`
	Capacity int           `json:"capacity,omitempty"`
	Question *QuestionView `json:"question,omitempty"`
	Code     string        `json:"code,omitempty"`
	Message  string        `json:"message,omitempty"`
}

type PlayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Answered bool   `json:"answered"`
}

// QuestionView is the broadcast form of a question. The correct answer is
// deliberately absent: answers are scored server-side.
type QuestionView struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Index   int      `json:"index"`
	Total   int      `json:"total"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks both the struct tags and the per-kind requirements the
// tags cannot express.
func (m ClientMessage) Validate() error {
	if err := validate.Struct(m); err != nil {
		return err
	}

	switch m.Type {
	case MsgJoin:
		if m.RoomID == "" || m.PlayerID == "" || m.Name == "" {
			return errors.New("join requires room_id, player_id and name")
		}
	case MsgStartBattle:
		if len(m.Questions) == 0 && m.Amount == 0 {
			return errors.New("start_battle requires questions or an amount to fetch")
		}
		for i, q := range m.Questions {
			if !slices.Contains(q.Options, q.CorrectAnswer) {
				return fmt.Errorf("question %d: correct_answer is not one of the options", i)
			}
		}
	case MsgSubmitAnswer:
		if m.PlayerID == "" {
			return errors.New("submit_answer requires player_id")
		}
	}
	return nil
}

// ToQuestions converts validated payloads into engine questions.
func ToQuestions(payloads []QuestionPayload) []engine.Question {
	out := make([]engine.Question, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, engine.Question{
			Prompt:        p.Prompt,
			Options:       slices.Clone(p.Options),
			CorrectAnswer: p.CorrectAnswer,
		})
	}
	return out
}

func ToPlayerInfos(players []engine.Player) []PlayerInfo {
	out := make([]PlayerInfo, 0, len(players))
	for _, p := range players {
		out = append(out, PlayerInfo{ID: p.ID, Name: p.Name, Score: p.Score, Answered: p.Answered})
	}
	return out
}
