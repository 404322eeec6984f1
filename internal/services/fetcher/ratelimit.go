package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/openkenya/hazina/internal/common"
)

// HostLimiter enforces the courtesy delay between requests to the same
// publisher host. Each host gets a token bucket holding one token that
// refills once per delay, so the first request goes straight through and
// every later one waits out the remainder. www and apex variants share a
// bucket.
type HostLimiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultDelay time.Duration
}

// NewHostLimiter creates a limiter with the given minimum same-host delay.
func NewHostLimiter(defaultDelay time.Duration) *HostLimiter {
	return &HostLimiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultDelay: defaultDelay,
	}
}

// Wait blocks until the host's courtesy delay has elapsed, honouring
// context cancellation.
func (hl *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	host := common.HostOf(rawURL)
	if host == "" {
		return nil
	}
	return hl.limiterFor(host).Wait(ctx)
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	limiter, ok := hl.limiters[host]
	if !ok {
		limit := rate.Inf
		if hl.defaultDelay > 0 {
			limit = rate.Every(hl.defaultDelay)
		}
		limiter = rate.NewLimiter(limit, 1)
		hl.limiters[host] = limiter
	}
	return limiter
}
