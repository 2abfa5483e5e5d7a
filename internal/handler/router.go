package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/homewiz/lease-concierge/backend/internal/config"
	"github.com/homewiz/lease-concierge/backend/internal/handler/chat"
	middlewarePkg "github.com/homewiz/lease-concierge/backend/internal/middleware"
	chatService "github.com/homewiz/lease-concierge/backend/internal/service/chat"
	"github.com/homewiz/lease-concierge/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the chat service.
func NewRouter(cfg *config.Config, chatSvc *chatService.Service, limiter *middlewarePkg.RateLimiter, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chatHandler := chat.New(chatSvc, logger)
	wsHandler := chat.NewWebSocketHandler(chatSvc, logger, originChecker(cfg.Server.AllowedOrigins))

	r.Route("/api", func(api chi.Router) {
		if limiter != nil {
			api.Use(limiter.Handler)
		}
		chatHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}

// originChecker mirrors the CORS allow-list for websocket upgrades.
func originChecker(allowed []string) func(*http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return nil
		}
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
