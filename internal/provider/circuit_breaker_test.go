package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker()

	assert.True(t, cb.CanAttempt())
	assert.Equal(t, StateClosed, cb.GetState())

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}

	assert.Equal(t, StateOpen, cb.GetState())
	assert.False(t, cb.CanAttempt())
	assert.Equal(t, "open", cb.GetStateName())
}

func TestCircuitBreakerHalfOpenAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker()
	cb.timeout = 10 * time.Millisecond

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	assert.False(t, cb.CanAttempt())

	time.Sleep(20 * time.Millisecond)

	// First attempt after the cool-down probes in half-open
	assert.True(t, cb.CanAttempt())
	assert.Equal(t, StateHalfOpen, cb.GetState())

	// A failure during the probe reopens the circuit
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreakerClosesAfterSuccesses(t *testing.T) {
	cb := NewCircuitBreaker()
	cb.timeout = 10 * time.Millisecond

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.CanAttempt())

	cb.RecordSuccess()
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.True(t, cb.CanAttempt())
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker()

	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	cb.RecordSuccess()

	// The streak restarted, so four more failures do not open the circuit
	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	assert.Equal(t, StateClosed, cb.GetState())
}
