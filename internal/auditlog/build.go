package auditlog

import (
	"log/slog"
	"net/http"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/clock"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/config"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/metrics"
)

// FromConfig builds the client used in production wiring: configured timeout
// and a circuit breaker when a threshold is set.
func FromConfig(cfg config.Config, log *slog.Logger, m *metrics.Metrics, clk clock.Clock) (*Client, error) {
	opts := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		WithLogger(log),
		WithMetrics(m),
	}
	if cfg.Audit.BreakerThreshold > 0 {
		opts = append(opts, WithCircuitBreaker(NewCircuitBreaker(cfg.Audit.BreakerThreshold, cfg.Audit.BreakerCooldown, clk)))
	}
	return New(cfg.APIBaseURL, opts...)
}
