package runtime

import (
	"context"
	"time"

	"github.com/yungbote/episode-duplication/internal/platform/guard"
)

// Locker provides per-key mutual exclusion across workers. A lease that is
// neither refreshed nor released expires after ttl.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (lease Lease, acquired bool, err error)
}

type Lease = guard.Lease

// Throttler counts failures per key and reports when the key is over its limit.
type Throttler interface {
	Limited(ctx context.Context, key string) (retryAfter time.Duration, limited bool, err error)
	Hit(ctx context.Context, key string) error
}

type FeatureGate interface {
	Enabled(ctx context.Context) (bool, error)
}

func LockKey(duplicationID string) string { return "duplication:lock:" + duplicationID }

func ThrottleKey(jobType string) string { return "duplication:exceptions:" + jobType }
