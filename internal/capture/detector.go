package capture

import (
	"context"
	"errors"
	"fmt"
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
	ActionScreenshotDetected     = "screenshot_detected"
	ActionVideoRecordingDetected = "video_recording_detected"
	ResourceScreenCapture        = "screen_capture"

	DefaultCooldown = 5 * time.Second
	DefaultSource   = "gesflow-manager-mobile"
)

// ProtectionState is the detector's view of OS-level prevention.
type ProtectionState struct {
	Active  bool
	LastLog time.Time
}

// Detector owns the protection lifecycle. Build one per app process and pass
// it to whoever needs it; there is no package-level instance.
type Detector struct {
	gateway   Gateway
	lifecycle Lifecycle
	caps      Capabilities
	poster    Poster
	tokens    TokenReader
	logger    *slog.Logger
	metrics   *metrics.Metrics
	clock     clock.Clock
	source    string
	cooldown  time.Duration

	mu       sync.Mutex
	state    ProtectionState
	lastApp  AppState
	observer *recordingObserver
	baseCtx  context.Context
	subs     []Subscription

	inflight sync.WaitGroup
}

type recordingObserver struct {
	fn func(recording bool)
}

type Option func(*Detector)

func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Detector) {
		d.metrics = m
	}
}

func WithClock(c clock.Clock) Option {
	return func(d *Detector) {
		d.clock = c
	}
}

func WithCooldown(cd time.Duration) Option {
	return func(d *Detector) {
		d.cooldown = cd
	}
}

func WithSource(source string) Option {
	return func(d *Detector) {
		d.source = source
	}
}

func NewDetector(gateway Gateway, lifecycle Lifecycle, poster Poster, tokens TokenReader, opts ...Option) (*Detector, error) {
	if gateway == nil || lifecycle == nil {
		return nil, errors.New("capture gateway and lifecycle are required")
	}
	if poster == nil || tokens == nil {
		return nil, errors.New("audit poster and token reader are required")
	}

	d := &Detector{
		gateway:   gateway,
		lifecycle: lifecycle,
		caps:      gateway.Capabilities(),
		poster:    poster,
		tokens:    tokens,
		logger:    logger.Discard(),
		clock:     clock.Real(),
		source:    DefaultSource,
		cooldown:  DefaultCooldown,
		lastApp:   StateActive,
		baseCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Init engages capture prevention and attaches listeners. Calling it again
// re-affirms prevention and replaces the previous listeners. Failures leave
// the detector unprotected and are never returned.
func (d *Detector) Init(ctx context.Context) {
	d.mu.Lock()
	d.baseCtx = context.WithoutCancel(ctx)
	old := d.subs
	d.subs = nil
	d.mu.Unlock()
	removeAll(old)

	d.enable(ctx)

	var subs []Subscription
	if d.caps.HasNativeScreenshotListener {
		sub, err := d.gateway.AddScreenshotListener(d.handleScreenshot)
		if err != nil {
			d.logger.DebugContext(ctx, "screenshot listener unavailable", "error", err)
		} else {
			subs = append(subs, sub)
		}
	}
	if d.caps.HasRecordingStateListener {
		sub, err := d.gateway.AddRecordingListener(d.handleRecording)
		if err != nil {
			d.logger.DebugContext(ctx, "recording listener unavailable", "error", err)
		} else {
			subs = append(subs, sub)
		}
	}
	subs = append(subs, d.lifecycle.Subscribe(d.handleAppState))

	d.mu.Lock()
	d.subs = subs
	d.mu.Unlock()
}

// State returns a copy of the protection state.
func (d *Detector) State() ProtectionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// IsActive reports whether OS-level prevention is engaged.
func (d *Detector) IsActive() bool {
	return d.State().Active
}

// OnVideoRecordingDetected installs the recording observer, replacing any
// previous one. nil clears the slot. The returned func clears the slot only
// while it still holds this registration.
func (d *Detector) OnVideoRecordingDetected(fn func(recording bool)) (unregister func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if fn == nil {
		d.observer = nil
		return func() {}
	}
	slot := &recordingObserver{fn: fn}
	d.observer = slot
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.observer == slot {
			d.observer = nil
		}
	}
}

// LogCapture reports a detection. Calls inside the cooldown window, calls
// without an auth token and events classified as noise are dropped silently.
func (d *Detector) LogCapture(ctx context.Context, method string, details Details) {
	d.logCapture(ctx, method, details, true)
}

// Destroy detaches listeners. OS-level prevention stays engaged; only the
// root component decides to release it, through Disable.
func (d *Detector) Destroy() {
	d.mu.Lock()
	subs := d.subs
	d.subs = nil
	d.mu.Unlock()
	removeAll(subs)
}

// Disable releases OS-level prevention.
func (d *Detector) Disable(ctx context.Context) {
	if err := d.gateway.AllowCapture(ctx); err != nil {
		d.logger.DebugContext(ctx, "failed to allow capture", "error", err)
		return
	}
	d.setActive(false)
}

// Wait blocks until in-flight posts finish.
func (d *Detector) Wait() {
	d.inflight.Wait()
}

func (d *Detector) enable(ctx context.Context) bool {
	if err := d.gateway.PreventCapture(ctx); err != nil {
		d.logger.DebugContext(ctx, "capture prevention unavailable", "error", err)
		d.setActive(false)
		return false
	}
	d.setActive(true)
	return true
}

func (d *Detector) setActive(active bool) {
	d.mu.Lock()
	d.state.Active = active
	d.mu.Unlock()
	d.metrics.SetProtectionActive(active)
}

func (d *Detector) handleScreenshot() {
	d.logCapture(d.context(), MethodScreenshotListener, Details{Type: TypeScreenshot}, true)
}

func (d *Detector) handleRecording(recording bool) {
	ctx := d.context()
	d.notify(recording)
	if recording {
		d.logCapture(ctx, MethodRecordingListener, Details{Type: TypeVideoRecording}, false)
	}
}

func (d *Detector) handleAppState(next AppState) {
	ctx := d.context()

	d.mu.Lock()
	prev := d.lastApp
	d.lastApp = next
	d.mu.Unlock()

	if next != StateActive {
		d.logger.DebugContext(ctx, "app left foreground", "state", next)
		return
	}
	d.enable(ctx)
	if prev != StateActive && !d.caps.HasNativeScreenshotListener {
		d.logCapture(ctx, MethodAppStateActive, Details{Type: TypeScreenshot}, true)
	}
}

func (d *Detector) logCapture(ctx context.Context, method string, details Details, notify bool) auditlog.Outcome {
	now := d.clock.Now()

	d.mu.Lock()
	if !d.state.LastLog.IsZero() && now.Sub(d.state.LastLog) < d.cooldown {
		d.mu.Unlock()
		return d.observe(ctx, method, ClassIgnored, auditlog.OutcomeCooldown)
	}
	d.state.LastLog = now
	d.mu.Unlock()

	token, err := d.tokens.Get(ctx, tokenstore.AuthTokenKey)
	if err != nil || token == "" {
		return d.observe(ctx, method, ClassIgnored, auditlog.OutcomeUnauthenticated)
	}

	class := Classify(method, details.Type)
	if class == ClassIgnored {
		return d.observe(ctx, method, class, auditlog.OutcomeIgnored)
	}

	event := Event{
		Method:    method,
		Type:      details.Type,
		Platform:  d.caps.Platform,
		Timestamp: now,
	}
	record := d.record(event, class)

	if class == ClassVideoRecording && notify {
		d.notify(true)
	}

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		d.send(context.WithoutCancel(ctx), token, class, record)
	}()
	return d.observe(ctx, method, class, auditlog.OutcomeDispatched)
}

func (d *Detector) record(event Event, class Class) auditlog.Record {
	isVideo := class == ClassVideoRecording
	action := ActionScreenshotDetected
	description := fmt.Sprintf("Screenshot detected on %s", event.Platform)
	if isVideo {
		action = ActionVideoRecordingDetected
		description = fmt.Sprintf("Screen recording detected on %s", event.Platform)
	}
	return auditlog.Record{
		Action:      action,
		Resource:    ResourceScreenCapture,
		Description: description,
		Metadata: map[string]any{
			"method":    event.Method,
			"type":      string(event.Type),
			"platform":  string(event.Platform),
			"timestamp": event.Timestamp.UTC().Format(time.RFC3339Nano),
			"source":    d.source,
		},
		IsScreenshot: !isVideo,
	}
}

func (d *Detector) send(ctx context.Context, token string, class Class, record auditlog.Record) {
	if err := d.poster.Post(ctx, token, record); err != nil {
		d.metrics.ObserveCapture(string(class), string(auditlog.OutcomeFailed))
		d.logger.DebugContext(ctx, "capture log post failed", "action", record.Action, "error", err)
		return
	}
	d.metrics.ObserveCapture(string(class), string(auditlog.OutcomeSent))
}

func (d *Detector) notify(recording bool) {
	d.mu.Lock()
	slot := d.observer
	d.mu.Unlock()
	if slot != nil {
		slot.fn(recording)
	}
}

func (d *Detector) context() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baseCtx
}

func (d *Detector) observe(ctx context.Context, method string, class Class, outcome auditlog.Outcome) auditlog.Outcome {
	d.metrics.ObserveCapture(string(class), string(outcome))
	d.logger.DebugContext(ctx, "capture event", "method", method, "class", class, "outcome", outcome)
	return outcome
}

func removeAll(subs []Subscription) {
	for _, s := range subs {
		if s != nil {
			s.Remove()
		}
	}
}
