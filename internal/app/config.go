package app

import (
	"fmt"

	"github.com/yungbote/episode-duplication/internal/modules/duplication"
	"github.com/yungbote/episode-duplication/internal/platform/envutil"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
	"github.com/yungbote/episode-duplication/internal/temporalx"
	"github.com/yungbote/episode-duplication/internal/utils"
)

type Config struct {
	ServiceName string
	HTTPAddr    string
	CORSOrigins string

	// RunServer serves the HTTP API; RunWorker executes duplication chains.
	// One process may do both.
	RunServer bool
	RunWorker bool

	WorkerConcurrency int

	Duplication duplication.Settings
	Temporal    temporalx.Config
}

func LoadConfig(log *logger.Logger) (Config, error) {
	settings, err := duplication.LoadSettings(log)
	if err != nil {
		return Config{}, fmt.Errorf("load duplication settings: %w", err)
	}
	cfg := Config{
		ServiceName:       envutil.String("SERVICE_NAME", "episode-duplication"),
		HTTPAddr:          utils.GetEnv("HTTP_ADDR", ":8080", log),
		CORSOrigins:       envutil.String("CORS_ALLOW_ORIGINS", ""),
		RunServer:         envutil.Bool("RUN_SERVER", true),
		RunWorker:         envutil.Bool("RUN_WORKER", true),
		WorkerConcurrency: utils.GetEnvAsInt("WORKER_CONCURRENCY", 4, log),
		Duplication:       settings,
		Temporal:          temporalx.LoadConfig(),
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	return cfg, nil
}
