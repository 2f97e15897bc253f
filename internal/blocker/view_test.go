package blocker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/capture"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/clock"
)

type observerSlot struct {
	mu  sync.Mutex
	fn  func(bool)
	gen int
}

func (o *observerSlot) OnVideoRecordingDetected(fn func(bool)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fn = fn
	o.gen++
	mine := o.gen
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.gen == mine {
			o.fn = nil
		}
	}
}

func (o *observerSlot) fire(recording bool) {
	o.mu.Lock()
	fn := o.fn
	o.mu.Unlock()
	if fn != nil {
		fn(recording)
	}
}

func (o *observerSlot) installed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fn != nil
}

type fixture struct {
	gateway  *capture.SimulatedGateway
	observer *observerSlot
	clock    *clock.Fake
	changes  []bool
	view     *View
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gateway:  capture.NewSimulatedGateway(capture.Capabilities{Platform: capture.PlatformIOS}),
		observer: &observerSlot{},
		clock:    clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	f.view = NewView(f.gateway, f.observer, f.gateway,
		WithClock(f.clock),
		WithVisibilityChange(func(visible bool) { f.changes = append(f.changes, visible) }),
	)
	f.view.Mount(context.Background())
	return f
}

func TestMount(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.gateway.Prevented())
	assert.True(t, f.observer.installed())
	_, _, life := f.gateway.Listeners()
	assert.Equal(t, 1, life)
	assert.False(t, f.view.Visible())

	f.view.Mount(context.Background())
	_, _, life = f.gateway.Listeners()
	assert.Equal(t, 1, life, "second mount is a no-op")
}

func TestTransitionCover(t *testing.T) {
	t.Run("background raises cover for fixed duration", func(t *testing.T) {
		f := newFixture(t)

		f.gateway.Transition(capture.StateBackground)
		assert.True(t, f.view.Visible())

		f.clock.Advance(499 * time.Millisecond)
		assert.True(t, f.view.Visible())

		f.clock.Advance(time.Millisecond)
		assert.False(t, f.view.Visible())
		assert.Equal(t, []bool{true, false}, f.changes)
	})

	t.Run("repeated transitions do not extend the cover", func(t *testing.T) {
		f := newFixture(t)

		f.gateway.Transition(capture.StateInactive)
		f.clock.Advance(300 * time.Millisecond)
		f.gateway.Transition(capture.StateBackground)
		f.clock.Advance(200 * time.Millisecond)

		assert.False(t, f.view.Visible())
		assert.Zero(t, f.clock.Pending())
	})

	t.Run("returning to foreground does not clear cover early", func(t *testing.T) {
		f := newFixture(t)

		f.gateway.Transition(capture.StateBackground)
		f.gateway.Transition(capture.StateActive)
		assert.True(t, f.view.Visible())

		prevent, _ := f.gateway.Calls()
		assert.Equal(t, 2, prevent, "foreground re-affirms prevention")

		f.clock.Advance(DefaultCoverDuration)
		assert.False(t, f.view.Visible())
	})
}

func TestBackgroundActiveBackgroundDoesNotRestartCover(t *testing.T) {
	f := newFixture(t)

	f.gateway.Transition(capture.StateBackground)
	f.clock.Advance(200 * time.Millisecond)
	f.gateway.Transition(capture.StateActive)
	f.clock.Advance(200 * time.Millisecond)
	f.gateway.Transition(capture.StateBackground)

	assert.True(t, f.view.Visible())
	assert.Equal(t, 1, f.clock.Pending(), "no second timer is armed")

	f.clock.Advance(100 * time.Millisecond)
	assert.False(t, f.view.Visible(), "cover drops 500ms after the first transition")
	assert.Zero(t, f.clock.Pending())
	assert.Equal(t, []bool{true, false}, f.changes)
}

func TestRecordingCover(t *testing.T) {
	f := newFixture(t)

	f.observer.fire(true)
	assert.True(t, f.view.Visible())

	f.gateway.Transition(capture.StateBackground)
	f.clock.Advance(DefaultCoverDuration)
	assert.True(t, f.view.Visible(), "timer only clears the transition cover")

	f.gateway.Transition(capture.StateActive)
	assert.True(t, f.view.Visible(), "foreground does not clear the recording cover")

	f.observer.fire(false)
	assert.False(t, f.view.Visible())
	assert.Equal(t, []bool{true, false}, f.changes)
}

func TestUnmount(t *testing.T) {
	f := newFixture(t)
	f.gateway.Transition(capture.StateBackground)
	require.Equal(t, 1, f.clock.Pending())

	f.view.Unmount()

	assert.False(t, f.observer.installed())
	_, _, life := f.gateway.Listeners()
	assert.Zero(t, life)
	assert.Zero(t, f.clock.Pending())
	assert.True(t, f.gateway.Prevented(), "unmount leaves prevention engaged")

	f.gateway.Transition(capture.StateBackground)
	assert.False(t, f.view.Visible())
}

func TestUnmountDuringCoverReportsHidden(t *testing.T) {
	f := newFixture(t)
	f.gateway.Transition(capture.StateBackground)
	require.True(t, f.view.Visible())

	f.view.Unmount()

	assert.False(t, f.view.Visible())
	assert.Equal(t, []bool{true, false}, f.changes)
}

func TestUnmountLeavesNewerObserver(t *testing.T) {
	f := newFixture(t)
	var got []bool
	f.observer.OnVideoRecordingDetected(func(recording bool) { got = append(got, recording) })

	f.view.Unmount()
	f.observer.fire(true)

	assert.True(t, f.observer.installed())
	assert.Equal(t, []bool{true}, got)
	assert.False(t, f.view.Visible())
}

func TestPreventionFailureIsSwallowed(t *testing.T) {
	gw := capture.NewSimulatedGateway(capture.Capabilities{Platform: capture.PlatformOther})
	gw.FailPrevent(errors.New("unsupported"))
	v := NewView(gw, nil, gw)

	assert.NotPanics(t, func() { v.Mount(context.Background()) })
	assert.False(t, v.Visible())
}
