package auditlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/clock"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute, clock.NewFake(time.Unix(0, 0)))

	cb.RecordFailure()
	cb.RecordFailure()
	assert.True(t, cb.Allow())
	assert.False(t, cb.IsOpen())

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute, clock.NewFake(time.Unix(0, 0)))

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.False(t, cb.IsOpen())
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	cb := NewCircuitBreaker(1, 30*time.Second, fake)

	var transitions []bool
	cb.OnStateChange(func(open bool) { transitions = append(transitions, open) })

	cb.RecordFailure()
	fake.Advance(29 * time.Second)
	assert.False(t, cb.Allow())

	fake.Advance(time.Second)
	assert.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.True(t, cb.Allow())

	assert.Equal(t, []bool{true, false}, transitions)
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(0, 0, nil)
	for range 4 {
		cb.RecordFailure()
	}
	assert.False(t, cb.IsOpen())
	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
}
