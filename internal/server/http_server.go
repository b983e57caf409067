package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/oggyb/matchchat/internal/app"
	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/logger"
	"github.com/oggyb/matchchat/internal/utils/httpjson"
)

// RouterOptions are the optional pieces of the HTTP surface.
type RouterOptions struct {
	Health *Health
	Socket http.Handler
}

// NewRouter builds the chi router: global middleware, /health, /metrics,
// /socket.io/ and every registrar under /api.
func NewRouter(appCtx *app.AppContext, opts RouterOptions, registrars ...RouteRegistrar) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(appCtx.Logger))
	r.Use(middleware.Recoverer)
	r.Use(appCtx.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(appCtx),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpjson.Error(w, r, svcErr.NotFound("Not found."))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpjson.Write(w, http.StatusMethodNotAllowed, httpjson.ErrorResponse{Error: "Method not allowed."})
	})

	if opts.Health != nil {
		r.Method(http.MethodGet, "/health", opts.Health)
	}
	r.Method(http.MethodGet, "/metrics", appCtx.Metrics.Handler())
	if opts.Socket != nil {
		r.Handle("/socket.io/*", opts.Socket)
	}

	// API routes
	r.Route("/api", func(api chi.Router) {
		for _, reg := range registrars {
			reg.RegisterRoutes(api)
		}
	})

	return r
}

func allowedOrigins(appCtx *app.AppContext) []string {
	if appCtx.Config == nil || len(appCtx.Config.App.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return appCtx.Config.App.AllowedOrigins
}

// HTTPServer wraps http.Server with the configured address and timeouts.
type HTTPServer struct {
	srv *http.Server
}

func NewHTTPServer(addr string, handler http.Handler) *HTTPServer {
	return &HTTPServer{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Start serves until Shutdown. http.ErrServerClosed is not an error.
func (s *HTTPServer) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
