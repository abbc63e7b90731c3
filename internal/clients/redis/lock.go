package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/episode-duplication/internal/platform/guard"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

// releaseScript deletes the key only while it still holds our token, so a
// worker whose lease expired cannot drop the next holder's lock.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the key's ttl only while it still holds our token.
var refreshScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type Locker struct {
	rdb *goredis.Client
	log *logger.Logger
}

func NewLocker(rdb *goredis.Client, baseLog *logger.Logger) *Locker {
	return &Locker{rdb: rdb, log: baseLog.With("service", "RedisLocker")}
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (guard.Lease, bool, error) {
	if l == nil || l.rdb == nil {
		return nil, false, fmt.Errorf("redis locker not initialized")
	}
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &lease{locker: l, key: key, token: token}, true, nil
}

type lease struct {
	locker *Locker
	key    string
	token  string
}

func (s *lease) Refresh(ctx context.Context, ttl time.Duration) (bool, error) {
	n, err := refreshScript.Run(ctx, s.locker.rdb, []string{s.key}, s.token, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis refresh lock %s: %w", s.key, err)
	}
	return n == 1, nil
}

func (s *lease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, s.locker.rdb, []string{s.key}, s.token).Int()
	if err != nil {
		return fmt.Errorf("redis unlock %s: %w", s.key, err)
	}
	if n == 0 {
		s.locker.log.Warn("Lock expired before release", "key", s.key)
	}
	return nil
}
