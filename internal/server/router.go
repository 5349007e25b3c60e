package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aura-systems/aura/internal/api"
	"github.com/aura-systems/aura/internal/api/handlers"
	"github.com/aura-systems/aura/internal/api/middleware"
)

type RouterConfig struct {
	PrincipalStore  middleware.PrincipalStore
	BrainHandler    *handlers.BrainHandler
	DocumentHandler *handlers.DocumentHandler
	ChatHandler     *handlers.ChatHandler
	SearchHandler   *handlers.SearchHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Uploads dominate request size; documents up to 25 MiB are accepted.
	const maxBodyBytes int64 = 25 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.PrincipalStore))

		r.Route("/brains", func(r chi.Router) {
			r.Post("/", cfg.BrainHandler.Create)
			r.Get("/", cfg.BrainHandler.List)
			r.Get("/{brainID}", cfg.BrainHandler.Get)
			r.Put("/{brainID}", cfg.BrainHandler.Update)
			r.Delete("/{brainID}", cfg.BrainHandler.Delete)

			r.Post("/{brainID}/documents", cfg.DocumentHandler.Upload)
			r.Get("/{brainID}/documents", cfg.DocumentHandler.List)
			r.Post("/{brainID}/search", cfg.SearchHandler.Search)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/{documentID}", cfg.DocumentHandler.Get)
			r.Get("/{documentID}/download", cfg.DocumentHandler.Download)
			r.Post("/{documentID}/reprocess", cfg.DocumentHandler.Reprocess)
			r.Delete("/{documentID}", cfg.DocumentHandler.Delete)
		})

		r.Route("/chat/sessions", func(r chi.Router) {
			r.Post("/", cfg.ChatHandler.CreateSession)
			r.Get("/", cfg.ChatHandler.ListSessions)
			r.Get("/{sessionID}/messages", cfg.ChatHandler.ListMessages)
			r.Post("/{sessionID}/messages", cfg.ChatHandler.SendMessage)
			r.Delete("/{sessionID}", cfg.ChatHandler.DeleteSession)
		})
	})

	return r
}
