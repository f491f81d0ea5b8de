package engine

import (
	"errors"
	"slices"
)

var ErrRoomFull = errors.New("room is full")
var ErrGameInProgress = errors.New("game already in progress")
var ErrAlreadyStarted = errors.New("battle already started")
var ErrNoQuestions = errors.New("no questions provided")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

type Player struct {
	ID       string
	Name     string
	Score    int
	Answered bool
}

type Question struct {
	Prompt        string
	Options       []string
	CorrectAnswer string
}

// State is the full per-room game state. Players keeps join order; use
// Standings for score-sorted views.
type State struct {
	Status          Status
	Players         []Player
	Questions       []Question
	CurrentIndex    int // -1 until the battle starts
	AnswersReceived int
	Capacity        int
	Policy          Policy
	TimerSeconds    int
}

func NewState(capacity int, policy Policy, timerSeconds int) State {
	return State{
		Status:       StatusWaiting,
		Players:      []Player{},
		CurrentIndex: -1,
		Capacity:     capacity,
		Policy:       policy,
		TimerSeconds: timerSeconds,
	}
}

type CommandType string

const (
	CmdJoin         CommandType = "Join"
	CmdStartBattle  CommandType = "StartBattle"
	CmdSubmitAnswer CommandType = "SubmitAnswer"
	CmdForceAdvance CommandType = "ForceAdvance"
	CmdLeave        CommandType = "Leave"
)

type Command struct {
	Type          CommandType
	PlayerID      string
	Name          string
	Option        string // "" means no answer chosen
	TimeRemaining int
	Questions     []Question
}

type EventType string

const (
	EvtRosterUpdated   EventType = "RosterUpdated"
	EvtQuestionStarted EventType = "QuestionStarted"
	EvtGameOver        EventType = "GameOver"
	EvtRoomEmptied     EventType = "RoomEmptied"
)

type Event struct {
	Type  EventType
	Index int
}

// Apply evaluates one command against the state and returns the events to
// fan out plus the successor state. Callers must serialize Apply per room.
// Late or duplicate SubmitAnswer/ForceAdvance are no-ops rather than
// errors: the network may deliver duplicates, and a client submission can
// race the timer-driven advance.
func Apply(s State, cmd Command) ([]Event, State, error) {
	newState := s

	switch cmd.Type {
	case CmdJoin:
		if playerIndex(s, cmd.PlayerID) >= 0 {
			// Rejoin by a known player is accepted at any status: the
			// transport handle changes, the Player does not.
			return []Event{{Type: EvtRosterUpdated}}, s, nil
		}
		if s.Status != StatusWaiting {
			return nil, s, ErrGameInProgress
		}
		if len(s.Players) >= s.Capacity {
			return nil, s, ErrRoomFull
		}
		newState.Players = append(slices.Clone(s.Players), Player{ID: cmd.PlayerID, Name: cmd.Name})
		return []Event{{Type: EvtRosterUpdated}}, newState, nil

	case CmdStartBattle:
		if s.Status != StatusWaiting {
			return nil, s, ErrAlreadyStarted
		}
		if len(cmd.Questions) == 0 {
			return nil, s, ErrNoQuestions
		}
		newState.Questions = cmd.Questions
		newState.Status = StatusInProgress
		newState.CurrentIndex = 0
		newState.AnswersReceived = 0
		newState.Players = clearAnswered(s.Players)
		return []Event{{Type: EvtQuestionStarted, Index: 0}}, newState, nil

	case CmdSubmitAnswer:
		if s.Status != StatusInProgress {
			return nil, s, nil
		}
		idx := playerIndex(s, cmd.PlayerID)
		if idx < 0 || s.Players[idx].Answered {
			return nil, s, nil
		}
		newState.Players = slices.Clone(s.Players)
		correct := cmd.Option != "" && cmd.Option == s.Questions[s.CurrentIndex].CorrectAnswer
		newState.Players[idx].Score += Score(s.Policy, correct, cmd.TimeRemaining, s.TimerSeconds)
		newState.Players[idx].Answered = true
		newState.AnswersReceived++
		events := []Event{{Type: EvtRosterUpdated}}
		if newState.AnswersReceived == len(newState.Players) {
			return advance(newState, events)
		}
		return events, newState, nil

	case CmdForceAdvance:
		if s.Status != StatusInProgress {
			return nil, s, nil
		}
		// Zero-point submissions for everyone who ran out the clock.
		newState.Players = slices.Clone(s.Players)
		for i := range newState.Players {
			if !newState.Players[i].Answered {
				newState.Players[i].Answered = true
				newState.AnswersReceived++
			}
		}
		return advance(newState, []Event{{Type: EvtRosterUpdated}})

	case CmdLeave:
		idx := playerIndex(s, cmd.PlayerID)
		if idx < 0 {
			return nil, s, nil
		}
		newState.Players = slices.Delete(slices.Clone(s.Players), idx, idx+1)
		events := []Event{{Type: EvtRosterUpdated}}
		if len(newState.Players) == 0 {
			return append(events, Event{Type: EvtRoomEmptied}), newState, nil
		}
		newState.AnswersReceived = countAnswered(newState.Players)
		if newState.Status == StatusInProgress && newState.AnswersReceived == len(newState.Players) {
			// A departing unanswered player must not stall the round.
			return advance(newState, events)
		}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// advance moves to the next question or finishes the game. The caller has
// already cloned ns.Players.
func advance(ns State, events []Event) ([]Event, State, error) {
	ns.CurrentIndex++
	ns.AnswersReceived = 0
	for i := range ns.Players {
		ns.Players[i].Answered = false
	}
	if ns.CurrentIndex < len(ns.Questions) {
		return append(events, Event{Type: EvtQuestionStarted, Index: ns.CurrentIndex}), ns, nil
	}
	ns.Status = StatusFinished
	return append(events, Event{Type: EvtGameOver}), ns, nil
}
