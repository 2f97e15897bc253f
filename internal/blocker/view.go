// Package blocker renders the opaque cover that hides sensitive screens from
// the app switcher and from screen recordings.
package blocker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/capture"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/clock"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/logger"
)

const DefaultCoverDuration = 500 * time.Millisecond

// Preventer engages OS-level capture prevention.
type Preventer interface {
	PreventCapture(ctx context.Context) error
}

// RecordingSource notifies a single observer about recording start and stop.
// The returned func releases the slot only while fn still holds it.
type RecordingSource interface {
	OnVideoRecordingDetected(fn func(recording bool)) (unregister func())
}

// View tracks two independent covers. The transition cover is raised when
// the app leaves the foreground and drops after a fixed duration; the
// recording cover follows the recording observer.
type View struct {
	preventer Preventer
	recording RecordingSource
	lifecycle capture.Lifecycle
	clock     clock.Clock
	logger    *slog.Logger
	duration  time.Duration
	onChange  func(visible bool)

	mu              sync.Mutex
	ctx             context.Context
	transitionCover bool
	recordingCover  bool
	timer           clock.Timer
	sub             capture.Subscription
	release         func()
	mounted         bool
}

type Option func(*View)

func WithClock(c clock.Clock) Option {
	return func(v *View) {
		v.clock = c
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(v *View) {
		v.logger = l
	}
}

// WithCoverDuration sets how long the transition cover stays up.
func WithCoverDuration(d time.Duration) Option {
	return func(v *View) {
		if d > 0 {
			v.duration = d
		}
	}
}

// WithVisibilityChange installs a callback invoked whenever Visible changes.
// It runs without the view's lock held.
func WithVisibilityChange(fn func(visible bool)) Option {
	return func(v *View) {
		v.onChange = fn
	}
}

func NewView(preventer Preventer, recording RecordingSource, lifecycle capture.Lifecycle, opts ...Option) *View {
	v := &View{
		preventer: preventer,
		recording: recording,
		lifecycle: lifecycle,
		clock:     clock.Real(),
		logger:    logger.Discard(),
		duration:  DefaultCoverDuration,
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Mount engages prevention, takes the recording observer slot and subscribes
// to lifecycle transitions. Mounting twice is a no-op.
func (v *View) Mount(ctx context.Context) {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return
	}
	v.mounted = true
	v.ctx = context.WithoutCancel(ctx)
	v.mu.Unlock()

	v.prevent(ctx)
	var release func()
	if v.recording != nil {
		release = v.recording.OnVideoRecordingDetected(v.SetRecording)
	}
	sub := v.lifecycle.Subscribe(v.HandleAppState)

	v.mu.Lock()
	v.sub = sub
	v.release = release
	v.mu.Unlock()
}

// Unmount detaches from the lifecycle, releases the observer slot if the view
// still holds it, stops a pending cover timer and drops both covers.
// Prevention is left engaged.
func (v *View) Unmount() {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.mounted = false
	sub, release := v.sub, v.release
	v.sub, v.release = nil, nil
	v.mu.Unlock()

	if sub != nil {
		sub.Remove()
	}
	if release != nil {
		release()
	}

	v.update(func() {
		if v.timer != nil {
			v.timer.Stop()
			v.timer = nil
		}
		v.transitionCover = false
		v.recordingCover = false
	})
}

// HandleAppState reacts to a lifecycle transition.
func (v *View) HandleAppState(state capture.AppState) {
	if state == capture.StateActive {
		v.mu.Lock()
		ctx := v.ctx
		v.mu.Unlock()
		v.prevent(ctx)
		return
	}

	v.update(func() {
		if v.transitionCover {
			return
		}
		v.transitionCover = true
		v.timer = v.clock.AfterFunc(v.duration, v.expire)
	})
}

// SetRecording raises or drops the recording cover.
func (v *View) SetRecording(recording bool) {
	v.update(func() {
		v.recordingCover = recording
	})
}

// Visible reports whether any cover is up.
func (v *View) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible()
}

func (v *View) expire() {
	v.update(func() {
		v.transitionCover = false
		v.timer = nil
	})
}

func (v *View) update(fn func()) {
	v.mu.Lock()
	before := v.visible()
	fn()
	after := v.visible()
	onChange := v.onChange
	v.mu.Unlock()

	if before != after && onChange != nil {
		onChange(after)
	}
}

func (v *View) visible() bool {
	return v.transitionCover || v.recordingCover
}

func (v *View) prevent(ctx context.Context) {
	if v.preventer == nil {
		return
	}
	if err := v.preventer.PreventCapture(ctx); err != nil {
		v.logger.DebugContext(ctx, "capture prevention unavailable", "error", err)
	}
}
