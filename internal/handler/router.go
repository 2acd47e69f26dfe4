package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/opencode-chat/internal/config"
	"github.com/zhouzirui/opencode-chat/internal/handler/chat"
	"github.com/zhouzirui/opencode-chat/internal/handler/provider"
	"github.com/zhouzirui/opencode-chat/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/opencode-chat/internal/middleware"
)

// Handlers groups the route handlers mounted by NewRouter.
type Handlers struct {
	Chat      *chat.Handler
	Providers *provider.Handler
	WebSocket *ws.Handler
	Limiter   *middlewarePkg.RateLimiter
}

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg config.ServerConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.AllowedOrigins))

	var sendMiddlewares []func(http.Handler) http.Handler
	if h.Limiter != nil {
		sendMiddlewares = append(sendMiddlewares, h.Limiter.Middleware)
	}

	r.Route("/api", func(api chi.Router) {
		h.Chat.RegisterRoutes(api, sendMiddlewares...)
		h.Providers.RegisterRoutes(api)
	})

	// broker 入口挂在根路径
	h.WebSocket.RegisterRoutes(r)

	return r
}
