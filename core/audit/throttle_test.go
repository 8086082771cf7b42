package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoginThrottle(t *testing.T) {
	throttle := NewLoginThrottle()
	ip := "203.0.113.7"

	assert.False(t, throttle.IsThrottled(ip))
	assert.Equal(t, 5, throttle.Remaining(ip))

	for i := 0; i < 4; i++ {
		assert.False(t, throttle.RecordFailure(ip), "attempt %d should not throttle yet", i+1)
	}
	assert.Equal(t, 1, throttle.Remaining(ip))
	assert.False(t, throttle.IsThrottled(ip))

	assert.True(t, throttle.RecordFailure(ip))
	assert.True(t, throttle.IsThrottled(ip))
	assert.Equal(t, 0, throttle.Remaining(ip))

	// other IPs are unaffected
	assert.False(t, throttle.IsThrottled("198.51.100.1"))

	throttle.Reset(ip)
	assert.False(t, throttle.IsThrottled(ip))
	assert.Equal(t, 5, throttle.Remaining(ip))
}
