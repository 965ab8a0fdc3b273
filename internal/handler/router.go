package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/medic/backend/internal/handler/chat"
	"github.com/zhouzirui/medic/backend/internal/handler/stream"
	"github.com/zhouzirui/medic/backend/internal/handler/topic"
	"github.com/zhouzirui/medic/backend/internal/handler/web"
	"github.com/zhouzirui/medic/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/medic/backend/internal/middleware"
	topicModel "github.com/zhouzirui/medic/backend/internal/model/topic"
	chatService "github.com/zhouzirui/medic/backend/internal/service/chat"
	"github.com/zhouzirui/medic/backend/pkg/utils"
)

// Options carries what the router needs beyond the services.
type Options struct {
	Info      web.Info
	Streaming bool
	Logger    *slog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(topics topicModel.Store, chatSvc *chatService.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	webHandler := web.New(opts.Info)
	topicHandler := topic.New(topics)
	chatHandler := chat.New(chatSvc)
	streamHandler := stream.New(chatSvc, opts.Streaming, logger)
	wsHandler := ws.New(chatSvc, logger)

	webHandler.RegisterPage(r)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": chatSvc.Count(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		webHandler.RegisterRoutes(api)
		topicHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
