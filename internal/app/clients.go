package app

import (
	"fmt"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/episode-duplication/internal/clients/redis"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
	"github.com/yungbote/episode-duplication/internal/temporalx"
)

type Clients struct {
	Redis    *goredis.Client
	Temporal temporalsdkclient.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	var rdb *goredis.Client
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		c, err := redis.NewClient(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		rdb = c
	} else {
		log.Warn("REDIS_ADDR not set; duplication locks and throttles are process-local")
	}

	tc, err := temporalx.NewClient(log)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}

	return Clients{Redis: rdb, Temporal: tc}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
