package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// hitScript counts one failure in a fixed window that starts at the first hit.
var hitScript = goredis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Throttle is a fixed-window failure counter shared by all workers.
type Throttle struct {
	rdb    *goredis.Client
	max    int64
	window time.Duration
}

func NewThrottle(rdb *goredis.Client, max int, window time.Duration) *Throttle {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Throttle{rdb: rdb, max: int64(max), window: window}
}

func (t *Throttle) Limited(ctx context.Context, key string) (time.Duration, bool, error) {
	n, err := t.rdb.Get(ctx, key).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis throttle get %s: %w", key, err)
	}
	if n < t.max {
		return 0, false, nil
	}
	ttl, err := t.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis throttle ttl %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = t.window
	}
	return ttl, true, nil
}

func (t *Throttle) Hit(ctx context.Context, key string) error {
	if err := hitScript.Run(ctx, t.rdb, []string{key}, t.window.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis throttle hit %s: %w", key, err)
	}
	return nil
}
