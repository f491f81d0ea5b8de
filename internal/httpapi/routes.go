package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/battleiq/quiz-battle-backend/internal/config"
	"github.com/battleiq/quiz-battle-backend/internal/hub"
	"github.com/battleiq/quiz-battle-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, source ws.QuestionSource, cfg config.Config, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/rooms", CreateRoom(h, cfg, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, source, cfg, log))

	return r
}
