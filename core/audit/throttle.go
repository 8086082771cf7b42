package audit

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// throttleMaxFailures locks an IP out of login after this many
	// failures within the window.
	throttleMaxFailures = 5
	throttleWindow      = 24 * time.Hour
)

// LoginThrottle tracks failed login attempts per source IP. Counters live
// in memory and expire with the window; a restart resets them, which is an
// accepted trade-off for a single-instance deployment.
type LoginThrottle struct {
	mu       sync.Mutex
	failures *gocache.Cache
}

func NewLoginThrottle() *LoginThrottle {
	return &LoginThrottle{
		failures: gocache.New(throttleWindow, 10*time.Minute),
	}
}

// RecordFailure counts a failed attempt and reports whether the IP is now
// throttled.
func (t *LoginThrottle) RecordFailure(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 1
	if cached, ok := t.failures.Get(ip); ok {
		count = cached.(int) + 1
	}
	// keep the original window; SetDefault would slide it on every failure
	if _, expiry, ok := t.failures.GetWithExpiration(ip); ok && !expiry.IsZero() {
		t.failures.Set(ip, count, time.Until(expiry))
	} else {
		t.failures.SetDefault(ip, count)
	}
	return count >= throttleMaxFailures
}

// IsThrottled reports whether the IP has exhausted its attempts.
func (t *LoginThrottle) IsThrottled(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cached, ok := t.failures.Get(ip); ok {
		return cached.(int) >= throttleMaxFailures
	}
	return false
}

// Remaining returns how many attempts the IP has left.
func (t *LoginThrottle) Remaining(ip string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cached, ok := t.failures.Get(ip); ok {
		if left := throttleMaxFailures - cached.(int); left > 0 {
			return left
		}
		return 0
	}
	return throttleMaxFailures
}

// Reset clears the counter for an IP, e.g. after a successful login.
func (t *LoginThrottle) Reset(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures.Delete(ip)
}
