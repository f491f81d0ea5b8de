package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/battleiq/quiz-battle-backend/internal/config"
	"github.com/battleiq/quiz-battle-backend/internal/engine"
	"github.com/battleiq/quiz-battle-backend/internal/hub"
	"github.com/battleiq/quiz-battle-backend/internal/room"
	"github.com/battleiq/quiz-battle-backend/internal/types"
)

const writeTimeout = 3 * time.Second

// QuestionSource supplies an ordered question list at battle start. The
// fetch happens on the gateway side, outside the room's serialized
// transition window: the room stays Waiting until it resolves.
type QuestionSource interface {
	Fetch(ctx context.Context, amount, category int) ([]engine.Question, error)
}

func Handler(h *hub.Hub, source QuestionSource, cfg config.Config, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := &websocket.AcceptOptions{}
		if len(cfg.AllowedOrigins) > 0 {
			opts.OriginPatterns = cfg.AllowedOrigins
		}
		conn, err := websocket.Accept(w, r, opts)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		s := &session{
			conn:   conn,
			hub:    h,
			source: source,
			cfg:    cfg,
			log:    log.With(zap.String("conn", uuid.NewString())),
		}
		s.run(r.Context())
	}
}

// session binds one websocket connection to at most one player in one
// room. The reader loop below is the only goroutine parsing inbound
// frames; a writer goroutine per join drains the room outbox.
type session struct {
	conn   *websocket.Conn
	hub    *hub.Hub
	source QuestionSource
	cfg    config.Config
	log    *zap.Logger

	rm       *room.Room
	playerID string
	epoch    uint64
}

func (s *session) run(ctx context.Context) {
	defer func() {
		// Abrupt transport loss: hand the player to the grace window
		// rather than removing them outright.
		if s.rm != nil {
			s.rm.Inbox() <- room.Disconnect{PlayerID: s.playerID, Epoch: s.epoch}
		}
	}()

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			s.writeError(ctx, room.CodeBadRequest, "bad json")
			continue
		}
		if err := cm.Validate(); err != nil {
			s.log.Debug("rejected malformed command", zap.Error(err))
			s.writeError(ctx, room.CodeBadRequest, err.Error())
			continue
		}

		s.handle(ctx, cm)
	}
}

func (s *session) handle(ctx context.Context, cm types.ClientMessage) {
	switch cm.Type {
	case types.MsgJoin:
		s.handleJoin(ctx, cm)

	case types.MsgStartBattle:
		if s.rm == nil {
			s.writeError(ctx, room.CodeUnknownRoom, "join a room first")
			return
		}
		qs := types.ToQuestions(cm.Questions)
		if len(qs) == 0 {
			fetched, err := s.source.Fetch(ctx, cm.Amount, cm.Category)
			if err != nil {
				// Recoverable: the room is still Waiting, the host may retry.
				s.log.Warn("question fetch failed", zap.Error(err))
				s.writeError(ctx, room.CodeFetchError, "could not fetch questions")
				return
			}
			qs = fetched
		}
		s.rm.Inbox() <- room.FromClient{PlayerID: s.playerID, Cmd: engine.Command{
			Type:      engine.CmdStartBattle,
			Questions: qs,
		}}

	case types.MsgSubmitAnswer:
		if s.rm == nil {
			s.writeError(ctx, room.CodeUnknownRoom, "join a room first")
			return
		}
		s.rm.Inbox() <- room.FromClient{PlayerID: s.playerID, Cmd: engine.Command{
			Type:          engine.CmdSubmitAnswer,
			PlayerID:      s.playerID,
			Option:        cm.Option,
			TimeRemaining: cm.TimeRemaining,
		}}

	case types.MsgLeave:
		if s.rm == nil {
			return
		}
		s.rm.Inbox() <- room.Leave{PlayerID: s.playerID}
		s.rm = nil
		s.playerID = ""
	}
}

func (s *session) handleJoin(ctx context.Context, cm types.ClientMessage) {
	if s.rm != nil {
		s.writeError(ctx, room.CodeBadRequest, "connection already joined a room")
		return
	}

	capacity := cm.Capacity
	if capacity == 0 {
		capacity = s.cfg.DefaultCapacity
	}
	policy, _ := engine.ParsePolicy(cm.Policy)

	// The room handed out by the hub can stop between the lookup and the
	// join: it empties, its loop exits, and its removal request has not
	// drained yet. Selecting on Done keeps the reader from blocking on a
	// reply that will never come; one retry picks up the replacement.
	var (
		rm     *room.Room
		outbox chan room.Event
		res    room.JoinResult
	)
	joined := false
	for attempt := 0; attempt < 2 && !joined; attempt++ {
		reply := make(chan *room.Room, 1)
		s.hub.Inbox() <- hub.EnsureRoom{
			Code:  cm.RoomID,
			State: engine.NewState(capacity, policy, s.cfg.QuestionSeconds),
			Opts:  room.Options{QuestionTime: s.cfg.QuestionTime(), Grace: s.cfg.Grace()},
			Reply: reply,
		}
		rm = <-reply
		if rm == nil {
			s.writeError(ctx, room.CodeUnknownRoom, "room unavailable")
			return
		}

		outbox = make(chan room.Event, 16)
		joinReply := make(chan room.JoinResult, 1)
		select {
		case rm.Inbox() <- room.Join{PlayerID: cm.PlayerID, Name: cm.Name, Outbox: outbox, Reply: joinReply}:
		case <-rm.Done():
			continue
		}
		select {
		case res = <-joinReply:
			joined = true
		case <-rm.Done():
		}
	}
	if !joined {
		s.writeError(ctx, room.CodeUnknownRoom, "room unavailable")
		return
	}
	if res.Err != nil {
		s.writeError(ctx, room.ErrorCode(res.Err), res.Err.Error())
		return
	}

	s.rm = rm
	s.playerID = cm.PlayerID
	s.epoch = res.Epoch
	s.log.Info("player joined", zap.String("room", cm.RoomID), zap.String("player", cm.PlayerID))

	// Writer goroutine: the outbox closes when the room drops, replaces,
	// or shuts down this connection.
	go func() {
		for ev := range outbox {
			payload, err := json.Marshal(toServerMessage(ev))
			if err != nil {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			_ = s.conn.Write(wctx, websocket.MessageText, payload)
			cancel()
		}
	}()
}

func (s *session) writeError(ctx context.Context, code, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "error", Code: code, Message: msg})
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = s.conn.Write(wctx, websocket.MessageText, payload)
}

func toServerMessage(ev room.Event) types.ServerMessage {
	switch ev.Kind {
	case room.KindRoster:
		return types.ServerMessage{Type: "roster", Players: types.ToPlayerInfos(ev.Players), Capacity: ev.Capacity}
	case room.KindQuestion:
		return types.ServerMessage{Type: "question", Question: &types.QuestionView{
			Prompt:  ev.Prompt,
			Options: ev.Options,
			Index:   ev.Index,
			Total:   ev.Total,
		}}
	case room.KindGameOver:
		return types.ServerMessage{Type: "game_over", Players: types.ToPlayerInfos(ev.Players)}
	default:
		return types.ServerMessage{Type: "error", Code: ev.Code, Message: ev.Message}
	}
}
