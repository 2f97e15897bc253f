package capture

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/sentinel"
)

// SimulatedGateway stands in for the native layer on hosts without one. It
// implements both Gateway and Lifecycle and lets callers inject screenshots,
// recording changes, lifecycle transitions and prevention failures.
type SimulatedGateway struct {
	caps Capabilities

	mu          sync.Mutex
	prevented   bool
	preventErr  error
	preventN    int
	allowN      int
	nextID      int
	screenshots map[int]func()
	recordings  map[int]func(bool)
	lifecycle   map[int]func(AppState)
}

func NewSimulatedGateway(caps Capabilities) *SimulatedGateway {
	return &SimulatedGateway{
		caps:        caps,
		screenshots: make(map[int]func()),
		recordings:  make(map[int]func(bool)),
		lifecycle:   make(map[int]func(AppState)),
	}
}

func (g *SimulatedGateway) Capabilities() Capabilities { return g.caps }

func (g *SimulatedGateway) PreventCapture(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.preventN++
	if g.preventErr != nil {
		return g.preventErr
	}
	g.prevented = true
	return nil
}

func (g *SimulatedGateway) AllowCapture(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.allowN++
	g.prevented = false
	return nil
}

func (g *SimulatedGateway) AddScreenshotListener(fn func()) (Subscription, error) {
	if !g.caps.HasNativeScreenshotListener {
		return nil, fmt.Errorf("screenshot listener on %s: %w", g.caps.Platform, sentinel.ErrUnavailable)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.screenshots[id] = fn
	return g.remover(func() { delete(g.screenshots, id) }), nil
}

func (g *SimulatedGateway) AddRecordingListener(fn func(bool)) (Subscription, error) {
	if !g.caps.HasRecordingStateListener {
		return nil, fmt.Errorf("recording listener on %s: %w", g.caps.Platform, sentinel.ErrUnavailable)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.recordings[id] = fn
	return g.remover(func() { delete(g.recordings, id) }), nil
}

func (g *SimulatedGateway) Subscribe(fn func(AppState)) Subscription {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.lifecycle[id] = fn
	return g.remover(func() { delete(g.lifecycle, id) })
}

// FailPrevent makes subsequent PreventCapture calls return err; nil restores
// normal behavior.
func (g *SimulatedGateway) FailPrevent(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.preventErr = err
}

// Prevented reports whether capture prevention is engaged.
func (g *SimulatedGateway) Prevented() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prevented
}

// Calls returns how many times PreventCapture and AllowCapture ran.
func (g *SimulatedGateway) Calls() (prevent, allow int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.preventN, g.allowN
}

// Listeners returns the number of attached screenshot, recording and
// lifecycle listeners.
func (g *SimulatedGateway) Listeners() (screenshot, recording, lifecycle int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.screenshots), len(g.recordings), len(g.lifecycle)
}

func (g *SimulatedGateway) TakeScreenshot() {
	for _, fn := range snapshot(g, g.screenshots) {
		fn()
	}
}

func (g *SimulatedGateway) SetRecording(recording bool) {
	for _, fn := range snapshot(g, g.recordings) {
		fn(recording)
	}
}

func (g *SimulatedGateway) Transition(state AppState) {
	for _, fn := range snapshot(g, g.lifecycle) {
		fn(state)
	}
}

func (g *SimulatedGateway) remover(fn func()) Subscription {
	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			fn()
		})
	})
}

// snapshot copies listeners so callbacks run without the lock held, in
// registration order.
func snapshot[T any](g *SimulatedGateway, m map[int]T) []T {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}
