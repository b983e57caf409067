package server

import (
	"context"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/utils/httpjson"
)

// Health probes the database and Redis and publishes the result through the
// gRPC health service and GET /health.
type Health struct {
	appCtx *app.AppContext
	hs     *health.Server
}

func NewHealth(appCtx *app.AppContext) *Health {
	return &Health{appCtx: appCtx, hs: health.NewServer()}
}

// Register attaches grpc.health.v1.Health to the gRPC server
func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.hs)
}

// Probe pings both stores and updates the serving status.
func (h *Health) Probe(ctx context.Context) error {
	err := h.ping(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.hs.SetServingStatus("", status)
	return err
}

func (h *Health) ping(ctx context.Context) error {
	sqlDB, err := h.appCtx.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	return h.appCtx.RedisCache.Ping(ctx)
}

// Run probes every interval until ctx is done.
func (h *Health) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		if err := h.Probe(probeCtx); err != nil {
			h.appCtx.Logger.Warn("health probe failed", "err", err)
		}
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown marks every service NOT_SERVING so clients drain.
func (h *Health) Shutdown() {
	h.hs.Shutdown()
}

// ServeHTTP answers GET /health.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.appCtx.WithTimeout(r.Context())
	defer cancel()

	if err := h.Probe(ctx); err != nil {
		h.appCtx.Logger.Warn("health check failed", "err", err)
		httpjson.Write(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}
