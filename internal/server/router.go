package server

import (
	"net/http"
	"time"

	"plate/internal/auth"
	"plate/internal/kds"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(module *kds.Module, screens http.Handler, authenticator *auth.Authenticator, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/kds", func(r chi.Router) {
		r.Get("/stations", module.Board.ListStations)
		r.Get("/orders", module.Board.ListOrders)
		r.Get("/stats", module.Board.Stats)

		r.Group(func(r chi.Router) {
			r.Use(authenticator.Middleware)
			r.Post("/voice", module.Commands.Voice)
			r.Route("/routings/{routingId}", func(r chi.Router) {
				r.Use(auth.RequireRoles(auth.RoleAdmin, auth.RoleKitchen, auth.RoleManager))
				r.Post("/start", module.Commands.Start)
				r.Post("/bump", module.Commands.Bump)
				r.Post("/recall", module.Commands.Recall)
				r.Put("/priority", module.Commands.SetPriority)
			})
		})
	})

	r.With(authenticator.Middleware).Post("/api/orders", module.Orders.CreateOrder)
	r.Post("/api/transcribe", module.Transcribe.Transcribe)

	r.Handle("/ws/kds", screens)

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request served",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
