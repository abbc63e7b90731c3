package guard

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryThrottle allows max failures per window per key as a token bucket: each
// Hit spends a token and tokens refill at max/window.
type MemoryThrottle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func NewMemoryThrottle(max int, window time.Duration) *MemoryThrottle {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryThrottle{
		limiters: map[string]*rate.Limiter{},
		limit:    rate.Limit(float64(max) / window.Seconds()),
		burst:    max,
		now:      time.Now,
	}
}

func (t *MemoryThrottle) limiter(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	lim, ok := t.limiters[key]
	if !ok {
		lim = rate.NewLimiter(t.limit, t.burst)
		t.limiters[key] = lim
	}
	return lim
}

func (t *MemoryThrottle) Limited(_ context.Context, key string) (time.Duration, bool, error) {
	lim := t.limiter(key)
	now := t.now()
	tokens := lim.TokensAt(now)
	if tokens >= 1 {
		return 0, false, nil
	}
	wait := time.Duration((1 - tokens) / float64(lim.Limit()) * float64(time.Second))
	return wait, true, nil
}

func (t *MemoryThrottle) Hit(_ context.Context, key string) error {
	t.limiter(key).AllowN(t.now(), 1)
	return nil
}
