package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/episode-duplication/internal/clients/redis"
	"github.com/yungbote/episode-duplication/internal/data/repos"
	"github.com/yungbote/episode-duplication/internal/jobs/orchestrator"
	"github.com/yungbote/episode-duplication/internal/jobs/pipeline"
	jobruntime "github.com/yungbote/episode-duplication/internal/jobs/runtime"
	"github.com/yungbote/episode-duplication/internal/platform/guard"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
	"github.com/yungbote/episode-duplication/internal/services"
	"github.com/yungbote/episode-duplication/internal/temporalx/duplicationrun"
	"github.com/yungbote/episode-duplication/internal/temporalx/temporalworker"
)

type Services struct {
	Duplication services.DuplicationService

	// Job infra
	JobRegistry *jobruntime.Registry
	Executor    *jobruntime.Executor
	Submitter   orchestrator.Submitter

	// Exactly one runner is set: Temporal when TEMPORAL_ADDRESS is configured,
	// otherwise the in-process engine.
	TemporalSubmitter *duplicationrun.Submitter
	TemporalWorker    *temporalworker.Runner
	Engine            *orchestrator.Engine
}

type guards struct {
	locker   jobruntime.Locker
	throttle jobruntime.Throttler
	gate     jobruntime.FeatureGate
}

func wireGuards(log *logger.Logger, cfg Config, clients Clients) guards {
	s := cfg.Duplication
	if clients.Redis != nil {
		return guards{
			locker:   redis.NewLocker(clients.Redis, log),
			throttle: redis.NewThrottle(clients.Redis, s.ThrottleMaxExceptions, s.ThrottleWindow()),
			gate:     redis.NewFeatureGate(clients.Redis, s.FeatureKey, s.Enabled),
		}
	}
	return guards{
		locker:   guard.NewMemoryLocker(),
		throttle: guard.NewMemoryThrottle(s.ThrottleMaxExceptions, s.ThrottleWindow()),
		gate:     guard.StaticGate(s.Enabled),
	}
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet repos.Set, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	jobRegistry := jobruntime.NewRegistry()
	if err := pipeline.RegisterDuplication(jobRegistry, db, log, reposet, cfg.Duplication); err != nil {
		return Services{}, err
	}

	g := wireGuards(log, cfg, clients)
	executor := jobruntime.NewExecutor(db, log, reposet.Duplications, jobRegistry, g.locker, g.throttle, g.gate, cfg.Duplication)

	out := Services{JobRegistry: jobRegistry, Executor: executor}

	if clients.Temporal != nil {
		out.TemporalSubmitter = duplicationrun.NewSubmitter(clients.Temporal, log, cfg.Temporal.TaskQueue, cfg.Duplication.StageMaxAttempts)
		out.Submitter = out.TemporalSubmitter
		if cfg.RunWorker {
			w, err := temporalworker.NewRunner(log, clients.Temporal, cfg.Temporal, executor)
			if err != nil {
				return Services{}, fmt.Errorf("init temporal worker: %w", err)
			}
			out.TemporalWorker = w
		}
	} else {
		if cfg.RunServer && !cfg.RunWorker {
			return Services{}, fmt.Errorf("RUN_WORKER=false requires TEMPORAL_ADDRESS: the local chain engine runs in-process")
		}
		log.Warn("TEMPORAL_ADDRESS not set; running duplication chains in-process")
		out.Engine = orchestrator.NewEngine(executor, log, orchestrator.StageRetryPolicy(cfg.Duplication.StageMaxAttempts), cfg.WorkerConcurrency)
		out.Submitter = out.Engine
	}

	out.Duplication = services.NewDuplicationService(db, log, reposet.Episodes, reposet.Duplications, out.Submitter)
	return out, nil
}
