package match

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Registrar ties the match service into the HTTP router.
type Registrar struct {
	svc         *Service
	requireAuth func(http.Handler) http.Handler
}

// NewRegistrar creates a new Registrar for the match service
func NewRegistrar(svc *Service, requireAuth func(http.Handler) http.Handler) *Registrar {
	return &Registrar{svc: svc, requireAuth: requireAuth}
}

// RegisterRoutes mounts /match behind the auth middleware.
func (r *Registrar) RegisterRoutes(router chi.Router) {
	h := NewHandler(r.svc)
	router.Route("/match", func(mr chi.Router) {
		mr.Use(r.requireAuth)
		mr.Post("/like/{userId}", h.Like)
		mr.Post("/dislike/{userId}", h.Dislike)
		mr.Get("/matches", h.Matches)
		mr.Get("/liked-you", h.LikedYou)
		mr.Get("/liked-you/count", h.LikedYouCount)
	})
}
