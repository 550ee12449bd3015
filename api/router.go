package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"Kirana/core"
	"Kirana/lib/sl"
)

type RouterConfig struct {
	FrontendURL string
	UserHeader  string
	AuthToken   string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func NewRouter(chat core.ChatService, conf RouterConfig, log *slog.Logger) http.Handler {
	log = log.With(sl.Module("http"))

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(CORS([]string{conf.FrontendURL}, conf.UserHeader))

	if conf.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", conf.Metrics)
	}

	chatHandler := NewChatHandler(chat, log)
	r.Route("/api", func(r chi.Router) {
		r.Use(BearerAuth(conf.AuthToken))
		r.Use(Identity(conf.UserHeader))
		chatHandler.RegisterRoutes(r)
	})
	return r
}
