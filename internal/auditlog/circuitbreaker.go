package auditlog

import (
	"sync"
	"time"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/clock"
)

// CircuitBreaker stops the client hammering an unreachable endpoint. While
// open, posts are dropped without a network call; logging is fire-and-forget
// so dropped records are an accepted loss.
type CircuitBreaker struct {
	mu    sync.Mutex
	clock clock.Clock

	threshold int
	cooldown  time.Duration

	failures  int
	openUntil time.Time
	isOpen    bool

	onStateChange func(open bool)
}

// NewCircuitBreaker opens after threshold consecutive failures and stays open
// for cooldown before letting a probe through.
func NewCircuitBreaker(threshold int, cooldown time.Duration, clk clock.Clock) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &CircuitBreaker{
		clock:     clk,
		threshold: threshold,
		cooldown:  cooldown,
	}
}

// OnStateChange registers a callback invoked with the new state on each
// open/close transition.
func (cb *CircuitBreaker) OnStateChange(fn func(open bool)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Allow reports whether a post may be attempted. An expired open circuit
// moves to half-open and lets the next post probe the endpoint.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	if !cb.isOpen {
		cb.mu.Unlock()
		return true
	}
	if cb.clock.Now().Before(cb.openUntil) {
		cb.mu.Unlock()
		return false
	}
	cb.isOpen = false
	cb.failures = cb.threshold - 1
	notify := cb.onStateChange
	cb.mu.Unlock()

	if notify != nil {
		notify(false)
	}
	return true
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	cb.failures = 0
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	cb.failures++
	opened := false
	if !cb.isOpen && cb.failures >= cb.threshold {
		cb.isOpen = true
		cb.openUntil = cb.clock.Now().Add(cb.cooldown)
		opened = true
	}
	notify := cb.onStateChange
	cb.mu.Unlock()

	if opened && notify != nil {
		notify(true)
	}
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.isOpen
}
