package auditlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/logger"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/metrics"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/sentinel"
)

// LogsPath is the endpoint accepting audit records.
const LogsPath = "/api/logs"

const maxDrainBytes = 64 << 10

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("audit log endpoint returned %d", e.StatusCode)
}

// Client posts audit records with a bearer token. It never retries.
type Client struct {
	endpoint   string
	httpClient *http.Client
	breaker    *CircuitBreaker
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// WithCircuitBreaker drops posts while the endpoint is failing.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(cl *Client) {
		cl.breaker = cb
	}
}

// New builds a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid audit api base url %q: %w", baseURL, sentinel.ErrInvalidInput)
	}

	c := &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + LogsPath,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Discard(),
		tracer:     otel.Tracer("github.com/Kabinet98/gesflow-manager-sub003/internal/auditlog"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker != nil && c.metrics != nil {
		c.breaker.OnStateChange(c.metrics.SetCircuitBreakerState)
	}
	return c, nil
}

// Post sends one record. The caller supplies the token read from the token
// store at send time.
func (c *Client) Post(ctx context.Context, token string, record Record) error {
	if record.Action == "" {
		return fmt.Errorf("audit record requires action: %w", sentinel.ErrInvalidInput)
	}
	if token == "" {
		return sentinel.ErrUnauthenticated
	}
	if c.breaker != nil && !c.breaker.Allow() {
		return sentinel.ErrCircuitOpen
	}

	ctx, span := c.tracer.Start(ctx, "auditlog.Post", trace.WithAttributes(
		attribute.String("audit.action", record.Action),
		attribute.Bool("audit.is_screenshot", record.IsScreenshot),
	))
	defer span.End()

	start := time.Now()
	err := c.post(ctx, token, record)
	c.metrics.ObservePostDuration(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if c.breaker != nil {
			c.breaker.RecordFailure()
		}
		return err
	}
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}
	return nil
}

func (c *Client) post(ctx context.Context, token string, record Record) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build audit request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post audit log: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	c.logger.DebugContext(ctx, "audit log posted",
		"action", record.Action,
		"request_id", requestID,
		"status", resp.StatusCode,
	)
	return nil
}
