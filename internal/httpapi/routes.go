package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/squares-backend/internal/directory"
	"github.com/DoyleJ11/squares-backend/internal/lobby"
	"github.com/DoyleJ11/squares-backend/internal/ws"
)

type Options struct {
	SubscriberBuffer int
}

func SetupRoutes(l *lobby.Lobby, store directory.Store, log *zap.Logger, opts Options) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(l, log, opts.SubscriberBuffer))

	r.Route("/api", func(r chi.Router) {
		r.Post("/players", Register(store, log))
		r.Post("/login", Login(store, log))
		r.Post("/join", Join(l, log))
		r.Post("/hold", Hold(l, log))
		r.Post("/release", Release(l, log))
		r.Get("/board", Board(l))
		r.Get("/leaderboard", Leaderboard(store, log))
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
