package auth

import (
	"github.com/go-chi/chi/v5"
)

// Registrar ties the auth routes into the HTTP router.
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the auth service
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// RegisterRoutes mounts /auth. Login is public; logout needs the token it
// revokes.
func (r *Registrar) RegisterRoutes(router chi.Router) {
	h := NewHandler(r.svc)
	router.Route("/auth", func(ar chi.Router) {
		ar.Post("/login", h.Login)
		ar.Group(func(pr chi.Router) {
			pr.Use(RequireAuth(r.svc))
			pr.Post("/logout", h.Logout)
			pr.Post("/logoutAll", h.LogoutAll)
		})
	})
}
