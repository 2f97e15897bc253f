package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the capture and audit pipeline.
// All methods are safe to call on a nil receiver.
type Metrics struct {
	CaptureEvents       *prometheus.CounterVec
	AuditActions        *prometheus.CounterVec
	PostDuration        prometheus.Histogram
	CircuitBreakerState prometheus.Gauge
	ProtectionActive    prometheus.Gauge
	SinkReceived        prometheus.Counter
}

// New registers the pipeline metrics with reg. Pass prometheus.NewRegistry()
// in tests so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CaptureEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gesflow_capture_events_total",
			Help: "Capture events seen by the detector, by classification and outcome",
		}, []string{"class", "outcome"}),
		AuditActions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gesflow_audit_actions_total",
			Help: "Audit actions by outcome (sent, duplicate, unauthenticated, failed, ...)",
		}, []string{"outcome"}),
		PostDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gesflow_audit_post_duration_seconds",
			Help:    "Latency of POST /api/logs",
			Buckets: prometheus.DefBuckets,
		}),
		CircuitBreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "gesflow_audit_circuit_breaker_state",
			Help: "Audit client circuit breaker state (0=closed, 1=open)",
		}),
		ProtectionActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "gesflow_capture_protection_active",
			Help: "Whether OS-level capture prevention is engaged (0/1)",
		}),
		SinkReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "gesflow_sink_records_received_total",
			Help: "Audit records accepted by the development sink",
		}),
	}
}

func (m *Metrics) ObserveCapture(class, outcome string) {
	if m == nil {
		return
	}
	m.CaptureEvents.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) ObserveAction(outcome string) {
	if m == nil {
		return
	}
	m.AuditActions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePostDuration(seconds float64) {
	if m == nil {
		return
	}
	m.PostDuration.Observe(seconds)
}

func (m *Metrics) SetCircuitBreakerState(open bool) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.Set(boolToFloat(open))
}

func (m *Metrics) SetProtectionActive(active bool) {
	if m == nil {
		return
	}
	m.ProtectionActive.Set(boolToFloat(active))
}

func (m *Metrics) IncSinkReceived() {
	if m == nil {
		return
	}
	m.SinkReceived.Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
