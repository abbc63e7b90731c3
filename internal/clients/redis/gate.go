package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

// FeatureGate reads an on/off flag from a redis key. A missing key falls back
// to the configured default.
type FeatureGate struct {
	rdb *goredis.Client
	key string
	def bool
}

func NewFeatureGate(rdb *goredis.Client, key string, def bool) *FeatureGate {
	return &FeatureGate{rdb: rdb, key: key, def: def}
}

func (g *FeatureGate) Enabled(ctx context.Context) (bool, error) {
	raw, err := g.rdb.Get(ctx, g.key).Result()
	if errors.Is(err, goredis.Nil) {
		return g.def, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis feature %s: %w", g.key, err)
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on", "enabled":
		return true, nil
	case "0", "false", "no", "off", "disabled":
		return false, nil
	default:
		return g.def, nil
	}
}
