// Package audit is the app-wide action logging facade. Calls are
// fire-and-forget: gates run synchronously, the post runs in the background,
// and no error ever reaches the caller.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/auditlog"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/clock"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/logger"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/metrics"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/ports"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/tokenstore"
)

// Type aliases for shared interfaces.
type (
	Poster      = ports.AuditPoster
	TokenReader = ports.TokenReader
)

const (
	ActionScreenView = "mobile_screen_view"
	PlatformMobile   = "mobile"
	DefaultSource    = "gesflow-manager-mobile"

	DefaultActionDedupeWindow = 3 * time.Second
	DefaultScreenViewWindow   = 60 * time.Second
)

// Options carries the optional fields of an action record.
type Options struct {
	Resource    string
	ResourceID  string
	Description string
	Metadata    map[string]any
}

type invalidator struct {
	fn func()
}

type Service struct {
	poster  Poster
	tokens  TokenReader
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   clock.Clock
	source  string
	devMode bool

	actionWindow time.Duration
	screenWindow time.Duration

	mu             sync.Mutex
	lastActionKey  string
	lastActionTime time.Time
	screenViews    map[string]time.Time

	invMu       sync.Mutex
	invalidator *invalidator

	inflight sync.WaitGroup
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithSource(source string) Option {
	return func(s *Service) {
		s.source = source
	}
}

// WithDevelopment enables diagnostic logging of skipped and failed posts.
func WithDevelopment(enabled bool) Option {
	return func(s *Service) {
		s.devMode = enabled
	}
}

func WithActionDedupeWindow(d time.Duration) Option {
	return func(s *Service) {
		s.actionWindow = d
	}
}

func WithScreenViewWindow(d time.Duration) Option {
	return func(s *Service) {
		s.screenWindow = d
	}
}

func New(poster Poster, tokens TokenReader, opts ...Option) (*Service, error) {
	if poster == nil {
		return nil, errors.New("audit poster is required")
	}
	if tokens == nil {
		return nil, errors.New("token reader is required")
	}

	s := &Service{
		poster:       poster,
		tokens:       tokens,
		logger:       logger.Discard(),
		clock:        clock.Real(),
		source:       DefaultSource,
		actionWindow: DefaultActionDedupeWindow,
		screenWindow: DefaultScreenViewWindow,
		screenViews:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LogAction records an action. Without an auth token, or when the same
// action|resourceID was accepted less than the dedupe window ago, it does
// nothing.
func (s *Service) LogAction(ctx context.Context, action string, opts Options) {
	s.logAction(ctx, action, opts)
}

// LogScreenView records a screen view at most once per screen per screen-view
// window. Accepted views still pass through the LogAction dedupe.
func (s *Service) LogScreenView(ctx context.Context, screenName string) {
	now := s.clock.Now()

	s.mu.Lock()
	if last, ok := s.screenViews[screenName]; ok && now.Sub(last) < s.screenWindow {
		s.mu.Unlock()
		s.observe(ctx, ActionScreenView, auditlog.OutcomeDebounced)
		return
	}
	s.screenViews[screenName] = now
	s.mu.Unlock()

	s.logAction(ctx, ActionScreenView, Options{ResourceID: screenName})
}

// SetAuditLogsInvalidator installs the callback run after each successful
// post, replacing any previous one. Passing nil clears the slot. The returned
// func clears the slot only if it still holds this registration, so a stale
// owner cannot remove a newer one.
func (s *Service) SetAuditLogsInvalidator(fn func()) (unregister func()) {
	s.invMu.Lock()
	defer s.invMu.Unlock()

	if fn == nil {
		s.invalidator = nil
		return func() {}
	}
	slot := &invalidator{fn: fn}
	s.invalidator = slot
	return func() {
		s.invMu.Lock()
		defer s.invMu.Unlock()
		if s.invalidator == slot {
			s.invalidator = nil
		}
	}
}

// Wait blocks until in-flight posts finish. Posts are never cancelled.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Close drops the invalidator and waits for in-flight posts.
func (s *Service) Close() {
	s.invMu.Lock()
	s.invalidator = nil
	s.invMu.Unlock()
	s.Wait()
}

func (s *Service) logAction(ctx context.Context, action string, opts Options) auditlog.Outcome {
	if action == "" {
		return s.observe(ctx, action, auditlog.OutcomeInvalid)
	}

	token, err := s.tokens.Get(ctx, tokenstore.AuthTokenKey)
	if err != nil || token == "" {
		return s.observe(ctx, action, auditlog.OutcomeUnauthenticated)
	}

	now := s.clock.Now()
	key := action + "|" + opts.ResourceID

	s.mu.Lock()
	if key == s.lastActionKey && now.Sub(s.lastActionTime) < s.actionWindow {
		s.mu.Unlock()
		return s.observe(ctx, action, auditlog.OutcomeDuplicate)
	}
	s.lastActionKey = key
	s.lastActionTime = now
	if action == ActionScreenView && opts.ResourceID != "" {
		// Direct screen-view actions count toward the per-screen debounce too.
		s.screenViews[opts.ResourceID] = now
	}
	s.mu.Unlock()

	record := auditlog.Record{
		Action:       action,
		Resource:     opts.Resource,
		ResourceID:   opts.ResourceID,
		Description:  opts.Description,
		Metadata:     s.stamp(opts.Metadata),
		IsScreenshot: false,
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.send(context.WithoutCancel(ctx), token, record)
	}()
	return auditlog.OutcomeDispatched
}

func (s *Service) send(ctx context.Context, token string, record auditlog.Record) {
	if err := s.poster.Post(ctx, token, record); err != nil {
		s.metrics.ObserveAction(string(auditlog.OutcomeFailed))
		if s.devMode {
			s.logger.WarnContext(ctx, "audit log post failed",
				"action", record.Action,
				"resource_id", record.ResourceID,
				"error", err,
			)
		}
		return
	}
	s.metrics.ObserveAction(string(auditlog.OutcomeSent))
	s.invalidate()
}

func (s *Service) invalidate() {
	s.invMu.Lock()
	slot := s.invalidator
	s.invMu.Unlock()

	if slot != nil {
		slot.fn()
	}
}

func (s *Service) stamp(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata)+2)
	for k, v := range metadata {
		out[k] = v
	}
	out["platform"] = PlatformMobile
	out["source"] = s.source
	return out
}

func (s *Service) observe(ctx context.Context, action string, outcome auditlog.Outcome) auditlog.Outcome {
	s.metrics.ObserveAction(string(outcome))
	if s.devMode {
		s.logger.DebugContext(ctx, "audit action skipped", "action", action, "outcome", outcome)
	}
	return outcome
}
