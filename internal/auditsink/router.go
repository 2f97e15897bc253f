package auditsink

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/httputil"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type routerConfig struct {
	checks map[string]HealthChecker
}

type RouterOption func(*routerConfig)

// WithHealthCheck adds a named dependency to /healthz.
func WithHealthCheck(name string, c HealthChecker) RouterOption {
	return func(rc *routerConfig) {
		rc.checks[name] = c
	}
}

// NewRouter builds the sink's router: request IDs, panic recovery, health,
// metrics and the audit log endpoints.
func NewRouter(h *Handler, gatherer prometheus.Gatherer, logger *slog.Logger, opts ...RouterOption) http.Handler {
	rc := routerConfig{checks: make(map[string]HealthChecker)}
	for _, opt := range opts {
		opt(&rc)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", healthHandler(rc.checks, logger))
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	h.Register(r)
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.DebugContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, c := range checks {
			if err := c.Health(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "health check failed", "check", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
