package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"go.uber.org/zap"

	"github.com/battleiq/quiz-battle-backend/internal/config"
	"github.com/battleiq/quiz-battle-backend/internal/engine"
	"github.com/battleiq/quiz-battle-backend/internal/hub"
	"github.com/battleiq/quiz-battle-backend/internal/room"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type createRoomRequest struct {
	Capacity int    `json:"capacity"`
	Policy   string `json:"policy"`
}

type createRoomResponse struct {
	Code     string `json:"code"`
	Capacity int    `json:"capacity"`
	Policy   string `json:"policy"`
}

// CreateRoom pre-creates a room with a fresh shareable code. Joining an
// unseen code over the websocket also creates a room; this endpoint just
// guarantees an unclaimed code.
func CreateRoom(h *hub.Hub, cfg config.Config, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req) // empty body means defaults
		}

		capacity := req.Capacity
		if capacity <= 0 {
			capacity = cfg.DefaultCapacity
		}
		policy, ok := engine.ParsePolicy(req.Policy)
		if !ok {
			http.Error(w, "unknown scoring policy", http.StatusBadRequest)
			return
		}

		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan *room.Room, 1)
			h.Inbox() <- hub.GetRoom{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
			log.Debug("room code collision, regenerating", zap.String("code", c))
		}

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.EnsureRoom{
			Code:  code,
			State: engine.NewState(capacity, policy, cfg.QuestionSeconds),
			Opts:  room.Options{QuestionTime: cfg.QuestionTime(), Grace: cfg.Grace()},
			Reply: reply,
		}
		if <-reply == nil {
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createRoomResponse{Code: code, Capacity: capacity, Policy: string(policy)})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
