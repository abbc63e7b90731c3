package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/episode-duplication/internal/jobs/orchestrator"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
	"github.com/yungbote/episode-duplication/internal/temporalx"
	"github.com/yungbote/episode-duplication/internal/temporalx/duplicationrun"
	"github.com/yungbote/episode-duplication/internal/utils"
)

type Runner struct {
	log    *logger.Logger
	tc     temporalsdkclient.Client
	cfg    temporalx.Config
	runner orchestrator.StageRunner
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, runner orchestrator.StageRunner) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if runner == nil {
		return nil, fmt.Errorf("temporal worker missing stage runner")
	}
	return &Runner{
		log:    log.With("component", "TemporalWorker"),
		tc:     tc,
		cfg:    cfg,
		runner: runner,
	}, nil
}

// Start polls the task queue until ctx is done. It retries worker start while
// the frontend or namespace is not ready, up to WorkerStartMaxWait.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	if cfg.AutoRegisterNamespace {
		if err := temporalx.EnsureNamespace(ctx, cfg, r.log); err != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", cfg.Namespace, "error", err)
		}
	}

	deadline := time.Now().Add(cfg.WorkerStartMaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && cfg.AutoRegisterNamespace {
			_ = temporalx.EnsureNamespace(ctx, cfg, r.log)
		}

		if cfg.WorkerStartMaxWait <= 0 || time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
			}
			return startErr
		}

		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)
		t := time.NewTimer(temporalx.ClampBackoff(cfg.DialBackoff, cfg.DialBackoffMax, attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := utils.GetEnvAsInt("WORKER_CONCURRENCY", 4, r.log)
	if concurrency < 1 {
		concurrency = 1
	}

	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	Register(w, &duplicationrun.Activities{Log: r.log, Runner: r.runner})
	return w
}

// Register binds the duplication workflow and its activities under their
// stable names.
func Register(reg worker.Registry, acts *duplicationrun.Activities) {
	reg.RegisterWorkflowWithOptions(duplicationrun.Workflow, workflow.RegisterOptions{Name: duplicationrun.WorkflowName})
	reg.RegisterActivityWithOptions(acts.Stage, activity.RegisterOptions{Name: duplicationrun.ActivityStage})
	reg.RegisterActivityWithOptions(acts.Complete, activity.RegisterOptions{Name: duplicationrun.ActivityComplete})
	reg.RegisterActivityWithOptions(acts.Fail, activity.RegisterOptions{Name: duplicationrun.ActivityFail})
}
