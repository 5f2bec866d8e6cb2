package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/c-c-k/progirl/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Resolution and navigation.
	r.Get("/resolve", h.Resolve)
	r.Post("/goto", h.Goto)
	r.Post("/ex", h.Ex)

	// Notes and ids.
	r.Post("/notes", h.CreateNote)
	r.Post("/ids", h.AllocateID)

	// Links.
	r.Post("/links/at", h.LinkAt)
	r.Post("/links/ref", h.AddRefLink)
	r.Get("/links/refs", h.RefTargets)

	// Collections.
	r.Get("/collections", h.Collections)
	r.Put("/collections/active", h.SetActive)

	// Index.
	r.Get("/search", h.Search)
	r.Get("/backlinks", h.Backlinks)
	r.Post("/index/sync", h.Sync)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
