package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/battleiq/quiz-battle-backend/internal/engine"
	"github.com/battleiq/quiz-battle-backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

// EnsureRoom creates the room if absent and replies with it either way.
// State and Opts only take effect on creation; an existing room keeps the
// capacity and policy it was created with.
type EnsureRoom struct {
	Code  string
	State engine.State
	Opts  room.Options
	Reply chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

// RemoveRoom drops the registry entry. Rooms request this themselves when
// their last player leaves.
type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub owns the room table. Create-vs-remove races on the same code are
// impossible because every mutation flows through the single hub
// goroutine.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				// A stopped room can linger in the table briefly: it
				// stops before its removal request drains from the
				// inbox. Handing it out would strand the caller, so a
				// dead entry is replaced instead.
				if rm := h.rooms[msg.Code]; rm != nil && !stopped(rm) {
					msg.Reply <- rm
					break
				}
				code := msg.Code
				rm := room.New(h.ctx, code, msg.State, msg.Opts, func() {
					h.inbox <- RemoveRoom{Code: code}
				}, h.log)
				h.rooms[code] = rm
				h.log.Info("room created", zap.String("room", code),
					zap.Int("capacity", msg.State.Capacity), zap.String("policy", string(msg.State.Policy)))
				msg.Reply <- rm

			case GetRoom:
				rm := h.rooms[msg.Code]
				if rm != nil && stopped(rm) {
					delete(h.rooms, msg.Code)
					rm = nil
				}
				msg.Reply <- rm // may be nil

			case RemoveRoom:
				// Only stopped rooms are dropped: a stale removal from
				// a room that was already replaced must not take the
				// successor with it.
				if rm := h.rooms[msg.Code]; rm != nil && stopped(rm) {
					delete(h.rooms, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code))
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

// stopped reports whether the room's actor loop has exited.
func stopped(rm *room.Room) bool {
	select {
	case <-rm.Done():
		return true
	default:
		return false
	}
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		rm.Inbox() <- room.Shutdown{}
	}
	clear(h.rooms)
	h.cancel()
}
