// Package shell is the app root: it builds the capture detector, the blocker
// view and the audit service, starts them in order and owns final teardown.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/audit"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/blocker"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/capture"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/clock"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/config"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/logger"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/metrics"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/ports"
)

// Deps are the platform collaborators the shell is built on.
type Deps struct {
	Gateway   capture.Gateway
	Lifecycle capture.Lifecycle
	Poster    ports.AuditPoster
	Tokens    ports.TokenReader
}

type Shell struct {
	cfg      config.Config
	logger   *slog.Logger
	detector *capture.Detector
	view     *blocker.View
	audit    *audit.Service

	invalidate func()
	unregister func()
	started    bool
}

type options struct {
	logger       *slog.Logger
	metrics      *metrics.Metrics
	clock        clock.Clock
	invalidate   func()
	onVisibility func(bool)
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithAuditLogsInvalidator registers fn to run after each successful audit
// post while the shell is started.
func WithAuditLogsInvalidator(fn func()) Option {
	return func(o *options) {
		o.invalidate = fn
	}
}

// WithCoverChange is called whenever the blocker cover shows or hides.
func WithCoverChange(fn func(visible bool)) Option {
	return func(o *options) {
		o.onVisibility = fn
	}
}

func New(cfg config.Config, deps Deps, opts ...Option) (*Shell, error) {
	if deps.Gateway == nil || deps.Lifecycle == nil || deps.Poster == nil || deps.Tokens == nil {
		return nil, errors.New("gateway, lifecycle, poster and token reader are required")
	}

	o := options{
		logger: logger.Discard(),
		clock:  clock.Real(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	source := cfg.Source
	if source == "" {
		source = audit.DefaultSource
	}

	detectorOpts := []capture.Option{
		capture.WithLogger(o.logger),
		capture.WithMetrics(o.metrics),
		capture.WithClock(o.clock),
		capture.WithSource(source),
	}
	if cfg.Capture.Cooldown > 0 {
		detectorOpts = append(detectorOpts, capture.WithCooldown(cfg.Capture.Cooldown))
	}
	detector, err := capture.NewDetector(deps.Gateway, deps.Lifecycle, deps.Poster, deps.Tokens, detectorOpts...)
	if err != nil {
		return nil, fmt.Errorf("building capture detector: %w", err)
	}

	auditOpts := []audit.Option{
		audit.WithLogger(o.logger),
		audit.WithMetrics(o.metrics),
		audit.WithClock(o.clock),
		audit.WithSource(source),
		audit.WithDevelopment(cfg.IsDevelopment()),
	}
	if cfg.Audit.ActionDedupeWindow > 0 {
		auditOpts = append(auditOpts, audit.WithActionDedupeWindow(cfg.Audit.ActionDedupeWindow))
	}
	if cfg.Audit.ScreenViewWindow > 0 {
		auditOpts = append(auditOpts, audit.WithScreenViewWindow(cfg.Audit.ScreenViewWindow))
	}
	auditSvc, err := audit.New(deps.Poster, deps.Tokens, auditOpts...)
	if err != nil {
		return nil, fmt.Errorf("building audit service: %w", err)
	}

	view := blocker.NewView(deps.Gateway, detector, deps.Lifecycle,
		blocker.WithClock(o.clock),
		blocker.WithLogger(o.logger),
		blocker.WithCoverDuration(cfg.Capture.CoverDuration),
		blocker.WithVisibilityChange(o.onVisibility),
	)

	return &Shell{
		cfg:        cfg,
		logger:     o.logger,
		detector:   detector,
		view:       view,
		audit:      auditSvc,
		invalidate: o.invalidate,
	}, nil
}

// Start initialises protection, mounts the cover and registers the audit
// invalidator. Starting twice is a no-op.
func (s *Shell) Start(ctx context.Context) {
	if s.started {
		return
	}
	s.started = true

	s.detector.Init(ctx)
	s.view.Mount(ctx)
	if s.invalidate != nil {
		s.unregister = s.audit.SetAuditLogsInvalidator(s.invalidate)
	}
	s.logger.InfoContext(ctx, "capture protection started", "active", s.detector.IsActive())
}

// TrackScreen records a screen view, debounced per screen.
func (s *Shell) TrackScreen(ctx context.Context, screen string) {
	s.audit.LogScreenView(ctx, screen)
}

// LogAction records a user action.
func (s *Shell) LogAction(ctx context.Context, action string, opts audit.Options) {
	s.audit.LogAction(ctx, action, opts)
}

// CoverVisible reports whether the blocker cover is shown.
func (s *Shell) CoverVisible() bool {
	return s.view.Visible()
}

func (s *Shell) Detector() *capture.Detector { return s.detector }

func (s *Shell) Audit() *audit.Service { return s.audit }

// Stop tears the app root down. In-flight posts are waited for, never
// cancelled. Prevention is released only when configured to.
func (s *Shell) Stop(ctx context.Context) {
	if !s.started {
		return
	}
	s.started = false

	if s.unregister != nil {
		s.unregister()
		s.unregister = nil
	}
	s.view.Unmount()
	s.detector.Destroy()
	s.detector.Wait()
	s.audit.Wait()

	if s.cfg.Capture.DisableOnStop {
		s.detector.Disable(ctx)
	}
	s.logger.InfoContext(ctx, "capture protection stopped", "active", s.detector.IsActive())
}
