package message

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Registrar ties the message service into the HTTP router.
type Registrar struct {
	svc         *Service
	notifier    Notifier
	requireAuth func(http.Handler) http.Handler
}

// NewRegistrar creates a new Registrar for the message service
func NewRegistrar(svc *Service, notifier Notifier, requireAuth func(http.Handler) http.Handler) *Registrar {
	return &Registrar{svc: svc, notifier: notifier, requireAuth: requireAuth}
}

// RegisterRoutes mounts /message behind the auth middleware.
func (r *Registrar) RegisterRoutes(router chi.Router) {
	h := NewHandler(r.svc, r.notifier)
	router.Route("/message", func(mr chi.Router) {
		mr.Use(r.requireAuth)
		mr.Post("/send", h.Send)
		mr.Get("/history/{userId}", h.History)
		mr.Get("/list", h.List)
	})
}
