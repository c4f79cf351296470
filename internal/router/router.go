// Package router wires the HTTP routes and middleware.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"graph-rag/internal/handlers"
)

// Handlers groups the endpoints served by the API.
type Handlers struct {
	Documents *handlers.DocumentHandler
	Ask       *handlers.AskHandler
	Health    *handlers.HealthHandler
}

// New builds the chi router.
func New(h Handlers, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/upload", h.Documents.Upload)
	r.Post("/ask", h.Ask.Ask)
	r.Get("/health", h.Health.Health)
	r.Get("/stats", h.Documents.Stats)
	r.Post("/papers/{paperID}/relations", h.Documents.CreateRelation)

	logrus.Info("routes registered")
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logrus.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration":    time.Since(start).String(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Info("handler: request served")
		}()
		next.ServeHTTP(ww, r)
	})
}
