package engine

import (
	"errors"
	"testing"
)

func twoQuestions() []Question {
	return []Question{
		{Prompt: "Which planet is known as the Red Planet?", Options: []string{"Jupiter", "Mars", "Saturn", "Venus"}, CorrectAnswer: "Mars"},
		{Prompt: "What is the capital of France?", Options: []string{"Berlin", "London", "Madrid", "Paris"}, CorrectAnswer: "Paris"},
	}
}

func startedState(t *testing.T, capacity int, policy Policy, players []string, questions []Question) State {
	t.Helper()
	s := NewState(capacity, policy, 15)
	var err error
	for _, id := range players {
		_, s, err = Apply(s, Command{Type: CmdJoin, PlayerID: id, Name: id})
		if err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	_, s, err = Apply(s, Command{Type: CmdStartBattle, Questions: questions})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return s
}

func TestJoin_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(t *testing.T) State
		cmd     Command
		wantErr error
	}{
		{
			name: "room full rejects unseen player",
			setup: func(t *testing.T) State {
				s := NewState(1, PolicyFlat, 15)
				_, s, _ = Apply(s, Command{Type: CmdJoin, PlayerID: "a", Name: "Alice"})
				return s
			},
			cmd:     Command{Type: CmdJoin, PlayerID: "b", Name: "Bob"},
			wantErr: ErrRoomFull,
		},
		{
			name: "in-progress rejects unseen player",
			setup: func(t *testing.T) State {
				return startedState(t, 3, PolicyFlat, []string{"a", "b"}, twoQuestions())
			},
			cmd:     Command{Type: CmdJoin, PlayerID: "c", Name: "Carol"},
			wantErr: ErrGameInProgress,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.setup(t)
			before := len(s.Players)
			_, after, err := Apply(s, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if len(after.Players) != before {
				t.Fatalf("rejected join mutated roster: %d -> %d", before, len(after.Players))
			}
		})
	}
}

func TestJoin_ReconnectKeepsScoreAndRosterSize(t *testing.T) {
	s := startedState(t, 2, PolicyFlat, []string{"a", "b"}, twoQuestions())
	_, s, _ = Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "a", Option: "Mars", TimeRemaining: 9})

	events, after, err := Apply(s, Command{Type: CmdJoin, PlayerID: "a", Name: "Alice"})
	if err != nil {
		t.Fatalf("reconnect rejected: %v", err)
	}
	if len(after.Players) != 2 {
		t.Fatalf("reconnect changed roster size: %d", len(after.Players))
	}
	if after.Players[0].Score != 10 {
		t.Fatalf("reconnect lost score: got %d", after.Players[0].Score)
	}
	if !containsEvent(events, EvtRosterUpdated) {
		t.Fatalf("expected roster event on reconnect")
	}
}

func TestStartBattle_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(t *testing.T) State
		cmd     Command
		wantErr error
	}{
		{
			name: "empty question list",
			setup: func(t *testing.T) State {
				s := NewState(2, PolicyFlat, 15)
				_, s, _ = Apply(s, Command{Type: CmdJoin, PlayerID: "a", Name: "Alice"})
				return s
			},
			cmd:     Command{Type: CmdStartBattle},
			wantErr: ErrNoQuestions,
		},
		{
			name: "already started",
			setup: func(t *testing.T) State {
				return startedState(t, 2, PolicyFlat, []string{"a", "b"}, twoQuestions())
			},
			cmd:     Command{Type: CmdStartBattle, Questions: twoQuestions()},
			wantErr: ErrAlreadyStarted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.setup(t)
			_, after, err := Apply(s, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if after.Status != s.Status {
				t.Fatalf("rejected start changed status: %v -> %v", s.Status, after.Status)
			}
		})
	}
}

func TestStartBattle_SetsSequenceAndBroadcastsFirstQuestion(t *testing.T) {
	s := NewState(2, PolicyFlat, 15)
	_, s, _ = Apply(s, Command{Type: CmdJoin, PlayerID: "a", Name: "Alice"})
	_, s, _ = Apply(s, Command{Type: CmdJoin, PlayerID: "b", Name: "Bob"})

	events, s, err := Apply(s, Command{Type: CmdStartBattle, Questions: twoQuestions()})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Status != StatusInProgress || s.CurrentIndex != 0 {
		t.Fatalf("bad post-start state: status=%v index=%d", s.Status, s.CurrentIndex)
	}
	if len(events) != 1 || events[0].Type != EvtQuestionStarted || events[0].Index != 0 {
		t.Fatalf("want QuestionStarted(0), got %+v", events)
	}
}

func TestSubmitAnswer_LockstepRoundToGameOver(t *testing.T) {
	questions := twoQuestions()[:1]
	s := startedState(t, 2, PolicyFlat, []string{"a", "b"}, questions)

	// A answers correctly: no advance while B is outstanding.
	events, s, err := Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "a", Option: "Mars", TimeRemaining: 12})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if containsEvent(events, EvtQuestionStarted) || containsEvent(events, EvtGameOver) {
		t.Fatalf("advanced after a single answer: %+v", events)
	}
	if s.AnswersReceived != 1 {
		t.Fatalf("want AnswersReceived=1, got %d", s.AnswersReceived)
	}

	// B answers incorrectly: round complete, single question, game over.
	events, s, err = Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "b", Option: "Venus", TimeRemaining: 3})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !containsEvent(events, EvtGameOver) {
		t.Fatalf("want GameOver, got %+v", events)
	}
	if s.Status != StatusFinished {
		t.Fatalf("want Finished, got %v", s.Status)
	}

	standings := Standings(s)
	if standings[0].ID != "a" || standings[0].Score != 10 {
		t.Fatalf("want a=10 first, got %+v", standings)
	}
	if standings[1].ID != "b" || standings[1].Score != 0 {
		t.Fatalf("want b=0 second, got %+v", standings)
	}
}

func TestSubmitAnswer_DuplicateIsSilentNoOp(t *testing.T) {
	s := startedState(t, 2, PolicyFlat, []string{"a", "b"}, twoQuestions())

	_, s, _ = Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "a", Option: "Mars", TimeRemaining: 10})
	events, after, err := Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "a", Option: "Mars", TimeRemaining: 8})
	if err != nil {
		t.Fatalf("duplicate submission errored: %v", err)
	}
	if events != nil {
		t.Fatalf("duplicate submission emitted events: %+v", events)
	}
	if after.Players[0].Score != s.Players[0].Score || after.AnswersReceived != s.AnswersReceived {
		t.Fatalf("duplicate submission mutated state")
	}
}

func TestSubmitAnswer_AfterFinishIsSilentNoOp(t *testing.T) {
	s := startedState(t, 2, PolicyFlat, []string{"a", "b"}, twoQuestions()[:1])
	_, s, _ = Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "a", Option: "Mars", TimeRemaining: 10})
	_, s, _ = Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "b", Option: "Mars", TimeRemaining: 10})

	events, after, err := Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "a", Option: "Mars", TimeRemaining: 5})
	if err != nil || events != nil {
		t.Fatalf("late submission after finish: events=%+v err=%v", events, err)
	}
	if after.Status != StatusFinished {
		t.Fatalf("finished is terminal, got %v", after.Status)
	}
}

func TestForceAdvance_SynthesizesZeroPointAnswers(t *testing.T) {
	s := startedState(t, 2, PolicySpeed, []string{"a", "b"}, twoQuestions())
	_, s, _ = Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "a", Option: "Mars", TimeRemaining: 7})

	events, s, err := Apply(s, Command{Type: CmdForceAdvance})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !containsEvent(events, EvtQuestionStarted) {
		t.Fatalf("want advance to next question, got %+v", events)
	}
	if s.CurrentIndex != 1 || s.AnswersReceived != 0 {
		t.Fatalf("bad post-advance state: index=%d received=%d", s.CurrentIndex, s.AnswersReceived)
	}
	if s.Players[0].Score != 7 || s.Players[1].Score != 0 {
		t.Fatalf("want scores [7 0], got [%d %d]", s.Players[0].Score, s.Players[1].Score)
	}
	for _, p := range s.Players {
		if p.Answered {
			t.Fatalf("answered flag not reset for %s", p.ID)
		}
	}
}

func TestForceAdvance_WhenNotInProgressIsNoOp(t *testing.T) {
	s := NewState(2, PolicyFlat, 15)
	_, s, _ = Apply(s, Command{Type: CmdJoin, PlayerID: "a", Name: "Alice"})

	events, after, err := Apply(s, Command{Type: CmdForceAdvance})
	if err != nil || events != nil {
		t.Fatalf("force advance in waiting room: events=%+v err=%v", events, err)
	}
	if after.Status != StatusWaiting {
		t.Fatalf("status changed: %v", after.Status)
	}
}

func TestLeave_UnansweredDeparture_TriggersAdvance(t *testing.T) {
	s := startedState(t, 2, PolicyFlat, []string{"a", "b"}, twoQuestions())
	_, s, _ = Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "a", Option: "Mars", TimeRemaining: 10})

	// B leaves without answering; A alone now satisfies the round.
	events, s, err := Apply(s, Command{Type: CmdLeave, PlayerID: "b"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !containsEvent(events, EvtQuestionStarted) {
		t.Fatalf("departure stalled the round: %+v", events)
	}
	if s.CurrentIndex != 1 || len(s.Players) != 1 {
		t.Fatalf("bad state after leave: index=%d players=%d", s.CurrentIndex, len(s.Players))
	}
}

func TestLeave_LastPlayerEmitsRoomEmptied(t *testing.T) {
	s := NewState(2, PolicyFlat, 15)
	_, s, _ = Apply(s, Command{Type: CmdJoin, PlayerID: "a", Name: "Alice"})

	events, s, err := Apply(s, Command{Type: CmdLeave, PlayerID: "a"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !containsEvent(events, EvtRoomEmptied) {
		t.Fatalf("want RoomEmptied, got %+v", events)
	}
	if len(s.Players) != 0 {
		t.Fatalf("players remain after last leave")
	}
}

func TestLeave_AnsweredPlayer_DecrementsCount(t *testing.T) {
	s := startedState(t, 3, PolicyFlat, []string{"a", "b", "c"}, twoQuestions())
	_, s, _ = Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "a", Option: "Mars", TimeRemaining: 10})

	_, s, err := Apply(s, Command{Type: CmdLeave, PlayerID: "a"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.AnswersReceived != 0 {
		t.Fatalf("want AnswersReceived recomputed to 0, got %d", s.AnswersReceived)
	}
	if s.AnswersReceived > len(s.Players) {
		t.Fatalf("invariant violated: %d > %d", s.AnswersReceived, len(s.Players))
	}
}

func TestStandings_TieBrokenByJoinOrder(t *testing.T) {
	s := startedState(t, 3, PolicyFlat, []string{"a", "b", "c"}, twoQuestions()[:1])
	_, s, _ = Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "b", Option: "Venus", TimeRemaining: 10})
	_, s, _ = Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "c", Option: "Mars", TimeRemaining: 10})
	_, s, _ = Apply(s, Command{Type: CmdSubmitAnswer, PlayerID: "a", Option: "Venus", TimeRemaining: 10})

	standings := Standings(s)
	want := []string{"c", "a", "b"} // c scored; a and b tie at zero, join order holds
	for i, id := range want {
		if standings[i].ID != id {
			t.Fatalf("standings[%d]: want %s, got %s (%+v)", i, id, standings[i].ID, standings)
		}
	}
}

func TestApply_UnsupportedCommand(t *testing.T) {
	s := NewState(2, PolicyFlat, 15)
	_, _, err := Apply(s, Command{Type: CommandType("Dance")})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}

func containsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
