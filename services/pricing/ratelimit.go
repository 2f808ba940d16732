package pricing

import (
	"sync"
	"time"
)

// RateLimiter spaces out calls per provider and backs off exponentially
// after consecutive failures. It never blocks: Allow reports whether a
// call may proceed now, and callers skip the provider otherwise.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval map[string]time.Duration
	lastCall    map[string]time.Time
	failures    map[string]int
	backoffBase time.Duration
	backoffMax  time.Duration
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		minInterval: make(map[string]time.Duration),
		lastCall:    make(map[string]time.Time),
		failures:    make(map[string]int),
		backoffBase: 2 * time.Second,
		backoffMax:  5 * time.Minute,
	}
}

// SetMinInterval configures the minimum spacing between calls to a
// provider. AlphaVantage free tier allows 5 calls per minute, so its
// spacing is 12 seconds; CoinGecko tolerates roughly one per second.
func (r *RateLimiter) SetMinInterval(provider string, interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.minInterval[provider] = interval
}

// Allow reports whether a call to the provider may proceed now and, if
// so, records the call time.
func (r *RateLimiter) Allow(provider string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	wait := r.minInterval[provider]
	if n := r.failures[provider]; n > 0 {
		backoff := r.backoffBase << uint(n-1)
		if backoff > r.backoffMax {
			backoff = r.backoffMax
		}
		if backoff > wait {
			wait = backoff
		}
	}
	if last, ok := r.lastCall[provider]; ok && now.Sub(last) < wait {
		return false
	}
	r.lastCall[provider] = now
	return true
}

// RecordSuccess resets the failure streak for a provider.
func (r *RateLimiter) RecordSuccess(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[provider] = 0
}

// RecordFailure lengthens the backoff window for a provider.
func (r *RateLimiter) RecordFailure(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures[provider] < 10 {
		r.failures[provider]++
	}
}

// NextAllowedIn reports how long until the provider may be called,
// zero when it is callable now.
func (r *RateLimiter) NextAllowedIn(provider string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	wait := r.minInterval[provider]
	if n := r.failures[provider]; n > 0 {
		backoff := r.backoffBase << uint(n-1)
		if backoff > r.backoffMax {
			backoff = r.backoffMax
		}
		if backoff > wait {
			wait = backoff
		}
	}
	last, ok := r.lastCall[provider]
	if !ok {
		return 0
	}
	remaining := wait - time.Since(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}
