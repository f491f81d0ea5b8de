package room

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/battleiq/quiz-battle-backend/internal/engine"
)

// Msg is the tagged-variant inbox protocol. Everything that can touch a
// room's state arrives here and is handled by the single room goroutine.
type Msg interface{ isRoomMsg() }

// Join registers (or re-binds) a player connection. The result is sent on
// Reply: a rejection for an unseen player in a full or running room, or
// the connection epoch the caller must present on Disconnect.
type Join struct {
	PlayerID string
	Name     string
	Outbox   chan Event
	Reply    chan JoinResult
}

func (Join) isRoomMsg() {}

type JoinResult struct {
	Err   error
	Epoch uint64
}

// Leave is an explicit departure: the player is removed immediately.
type Leave struct{ PlayerID string }

func (Leave) isRoomMsg() {}

// Disconnect reports transport loss. Unlike Leave it starts the grace
// window instead of removing the player, so a quick reconnect keeps the
// score and seat. Epoch guards against a stale disconnect arriving after
// the player already reconnected on a newer transport.
type Disconnect struct {
	PlayerID string
	Epoch    uint64
}

func (Disconnect) isRoomMsg() {}

type FromClient struct {
	PlayerID string
	Cmd      engine.Command
}

func (FromClient) isRoomMsg() {}

type timerFired struct{ gen uint64 }

func (timerFired) isRoomMsg() {}

type graceExpired struct {
	playerID string
	epoch    uint64
}

func (graceExpired) isRoomMsg() {}

// GetView reflects internal state without data races. Test-only.
type GetView struct{ Reply chan View }

func (GetView) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type View struct {
	State    engine.State
	NumConns int
	TimerGen uint64
}

type Options struct {
	QuestionTime time.Duration
	Grace        time.Duration
}

type conn struct {
	outbox chan Event // nil while the player is in the grace window
	epoch  uint64
}

// Room is the single logical actor for one game session: all commands,
// timer fires, and membership changes for the room are applied in the
// order they drain from inbox, which is the only thing that keeps the
// read-then-write transitions on AnswersReceived and CurrentIndex sound.
type Room struct {
	inbox   chan Msg
	code    string
	state   engine.State
	conns   map[string]*conn
	gen     uint64 // question-timer generation, bumped on every arm
	epoch   uint64 // connection epoch counter
	opts    Options
	onEmpty func()
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New starts the room actor. onEmpty is invoked from the room goroutine
// once the last player is gone, right before the actor stops; the
// registry uses it to drop its entry.
func New(parent context.Context, code string, initial engine.State, opts Options, onEmpty func(), log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)

	if opts.QuestionTime <= 0 {
		opts.QuestionTime = 15 * time.Second
	}
	if opts.Grace <= 0 {
		opts.Grace = 10 * time.Second
	}

	r := &Room{
		inbox:   make(chan Msg, 64),
		code:    code,
		state:   initial,
		conns:   make(map[string]*conn),
		opts:    opts,
		onEmpty: onEmpty,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room actor has stopped draining its inbox.
// Senders that expect a reply must select on it: messages to a stopped
// room are never answered.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)

			case Leave:
				if stop := r.removePlayer(msg.PlayerID); stop {
					return
				}

			case Disconnect:
				r.handleDisconnect(msg)

			case graceExpired:
				c := r.conns[msg.playerID]
				if c == nil || c.outbox != nil || c.epoch != msg.epoch {
					break // reconnected, already gone, or a newer grace window is pending
				}
				r.log.Info("grace expired, removing player",
					zap.String("room", r.code), zap.String("player", msg.playerID))
				if stop := r.removePlayer(msg.playerID); stop {
					return
				}

			case FromClient:
				events, newState, err := engine.Apply(r.state, msg.Cmd)
				if err != nil {
					r.unicast(msg.PlayerID, errorEvent(err))
					break
				}
				r.state = newState
				if stop := r.dispatch(events); stop {
					return
				}

			case timerFired:
				if msg.gen != r.gen {
					break // stale fire from a round that already advanced
				}
				events, newState, err := engine.Apply(r.state, engine.Command{Type: engine.CmdForceAdvance})
				if err != nil {
					break
				}
				r.state = newState
				if stop := r.dispatch(events); stop {
					return
				}

			case GetView:
				msg.Reply <- View{State: r.state, NumConns: r.numConnected(), TimerGen: r.gen}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	events, newState, err := engine.Apply(r.state, engine.Command{
		Type:     engine.CmdJoin,
		PlayerID: msg.PlayerID,
		Name:     msg.Name,
	})
	if err != nil {
		msg.Reply <- JoinResult{Err: err}
		return
	}
	r.state = newState

	// Latest connection wins: re-binding closes the previous outbox so a
	// superseded writer drains and exits.
	if old := r.conns[msg.PlayerID]; old != nil && old.outbox != nil {
		close(old.outbox)
	}
	r.epoch++
	r.conns[msg.PlayerID] = &conn{outbox: msg.Outbox, epoch: r.epoch}
	msg.Reply <- JoinResult{Epoch: r.epoch}

	// Catch the (re)joining player up on the in-flight question.
	if q, ok := engine.CurrentQuestion(r.state); ok {
		r.send(r.conns[msg.PlayerID], questionEvent(q, r.state.CurrentIndex, len(r.state.Questions)))
	}
	r.dispatch(events)
}

func (r *Room) handleDisconnect(msg Disconnect) {
	c := r.conns[msg.PlayerID]
	if c == nil || c.epoch != msg.Epoch {
		return // already reconnected on a newer transport
	}
	c.outbox = nil
	epoch := c.epoch
	r.log.Debug("transport lost, grace window opened",
		zap.String("room", r.code), zap.String("player", msg.PlayerID))
	r.afterFunc(r.opts.Grace, graceExpired{playerID: msg.PlayerID, epoch: epoch})
}

// removePlayer routes both explicit leave and grace expiry through the
// same engine transition. Reports whether the room emptied and stopped.
func (r *Room) removePlayer(playerID string) bool {
	if c := r.conns[playerID]; c != nil {
		if c.outbox != nil {
			close(c.outbox)
		}
		delete(r.conns, playerID)
	}
	events, newState, err := engine.Apply(r.state, engine.Command{Type: engine.CmdLeave, PlayerID: playerID})
	if err != nil {
		return false
	}
	r.state = newState
	return r.dispatch(events)
}

// dispatch fans engine events out to connected players and performs their
// side effects (timer arming, registry removal). Reports whether the room
// stopped.
func (r *Room) dispatch(events []engine.Event) bool {
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtRosterUpdated:
			r.broadcast(rosterEvent(r.state))

		case engine.EvtQuestionStarted:
			q := r.state.Questions[ev.Index]
			r.broadcast(questionEvent(q, ev.Index, len(r.state.Questions)))
			r.armQuestionTimer()

		case engine.EvtGameOver:
			r.gen++ // logical cancel: any in-flight question timer is now stale
			r.broadcast(gameOverEvent(r.state))
			r.log.Info("game over", zap.String("room", r.code),
				zap.Int("questions", len(r.state.Questions)), zap.Int("players", len(r.state.Players)))

		case engine.EvtRoomEmptied:
			r.log.Info("room emptied", zap.String("room", r.code))
			if r.onEmpty != nil {
				r.onEmpty()
			}
			r.shutdown()
			return true
		}
	}
	return false
}

func (r *Room) armQuestionTimer() {
	r.gen++
	gen := r.gen
	r.afterFunc(r.opts.QuestionTime, timerFired{gen: gen})
}

// afterFunc schedules a message back onto the inbox. Physical timer
// cancellation is never relied upon: stale deliveries are filtered by
// generation or epoch at receive time, and a stopped room drops them via
// ctx.
func (r *Room) afterFunc(d time.Duration, msg Msg) {
	time.AfterFunc(d, func() {
		select {
		case r.inbox <- msg:
		case <-r.ctx.Done():
		}
	})
}

func (r *Room) broadcast(ev Event) {
	for id, c := range r.conns {
		if c.outbox == nil {
			continue
		}
		select {
		case c.outbox <- ev:
		default:
			// Slow consumer: treat like a transport loss so the grace
			// window, not the send path, decides their fate.
			close(c.outbox)
			c.outbox = nil
			r.afterFunc(r.opts.Grace, graceExpired{playerID: id, epoch: c.epoch})
		}
	}
}

func (r *Room) unicast(playerID string, ev Event) {
	r.send(r.conns[playerID], ev)
}

func (r *Room) send(c *conn, ev Event) {
	if c == nil || c.outbox == nil {
		return
	}
	select {
	case c.outbox <- ev:
	default:
	}
}

func (r *Room) numConnected() int {
	n := 0
	for _, c := range r.conns {
		if c.outbox != nil {
			n++
		}
	}
	return n
}

func (r *Room) shutdown() {
	for id, c := range r.conns {
		if c.outbox != nil {
			close(c.outbox)
		}
		delete(r.conns, id)
	}
	r.cancel()
}
