package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/episode-duplication/internal/data/repos"
	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/modules/duplication"
	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/episode-duplication/internal/jobs/runtime")

// ErrStageNotStarted wraps failures that happened before the handler ran. The
// record was not touched, so the stage can be retried.
var ErrStageNotStarted = errors.New("stage not started")

// ErrLeaseLost is the cancellation cause of a stage whose duplication lock
// expired or passed to another worker while its handler was running.
var ErrLeaseLost = errors.New("duplication lock lost")

type OutcomeStatus string

const (
	// OutcomeDone: the handler ran and returned nil.
	OutcomeDone OutcomeStatus = "done"
	// OutcomeDeferred: nothing ran; run the same stage again after Delay.
	OutcomeDeferred OutcomeStatus = "deferred"
	// OutcomeStopped: the duplication is not runnable; the rest of the chain must not run.
	OutcomeStopped OutcomeStatus = "stopped"
)

type Outcome struct {
	Status OutcomeStatus
	Delay  time.Duration
	Reason string
	Result map[string]any
}

func deferred(delay time.Duration, reason string) Outcome {
	return Outcome{Status: OutcomeDeferred, Delay: delay, Reason: reason}
}

func stopped(reason string) Outcome {
	return Outcome{Status: OutcomeStopped, Reason: reason}
}

/*
Executor is the stage job harness. For one (stage, duplication) it:
	- takes the per-duplication lock (deferred when another worker holds it) and
	  keeps refreshing it until the stage returns
	- checks the exception throttle for the stage's job type (deferred when over)
	- consults the feature gate (deferred by FeatureDeferDelay when disabled)
	- applies the status gate: pending -> in_progress, in_progress continues,
	  anything else stops the chain without doing work
	- runs the handler, recovering panics
	- on failure marks the record failed, counts the exception and returns the
	  original error so the queue runtime observes it too
*/
type Executor struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.DuplicationRepo
	registry *Registry
	locker   Locker
	throttle Throttler
	gate     FeatureGate
	settings duplication.Settings
}

func NewExecutor(db *gorm.DB, baseLog *logger.Logger, repo repos.DuplicationRepo, registry *Registry, locker Locker, throttle Throttler, gate FeatureGate, settings duplication.Settings) *Executor {
	return &Executor{
		db:       db,
		log:      baseLog.With("component", "StageExecutor"),
		repo:     repo,
		registry: registry,
		locker:   locker,
		throttle: throttle,
		gate:     gate,
		settings: settings,
	}
}

func (e *Executor) Execute(ctx context.Context, stage types.DuplicationStage, duplicationID uuid.UUID) (Outcome, error) {
	if !stage.Valid() {
		return Outcome{}, fmt.Errorf("execute: unknown stage %q", stage)
	}
	jobType := stage.JobType()
	h, ok := e.registry.Get(jobType)
	if !ok {
		return Outcome{}, &missingHandlerError{JobType: jobType}
	}
	log := e.log.With("job", jobType, "stage", string(stage), "duplication_id", duplicationID)

	ctx, span := tracer.Start(ctx, "duplication.stage", trace.WithAttributes(
		attribute.String("duplication_id", duplicationID.String()),
		attribute.String("stage", string(stage)),
	))
	defer span.End()

	if e.locker != nil {
		lease, acquired, err := e.locker.Acquire(ctx, LockKey(duplicationID.String()), e.settings.LockTTL())
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: acquire duplication lock: %w", ErrStageNotStarted, err)
		}
		if !acquired {
			log.Info("Duplication is being processed by another worker; deferring")
			span.SetAttributes(attribute.String("outcome", "locked"))
			return deferred(e.settings.LockRetryDelay(), "locked"), nil
		}
		var stopRefresh func()
		ctx, stopRefresh = e.keepLease(ctx, log, lease)
		defer func() {
			stopRefresh()
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to release duplication lock", "error", err)
			}
		}()
	}

	throttleKey := ThrottleKey(jobType)
	if e.throttle != nil {
		retryAfter, limited, err := e.throttle.Limited(ctx, throttleKey)
		if err != nil {
			log.Warn("Exception throttle check failed; continuing", "error", err)
		} else if limited {
			log.Warn("Too many recent stage failures; deferring", "retry_after", retryAfter)
			span.SetAttributes(attribute.String("outcome", "throttled"))
			return deferred(retryAfter, "throttled"), nil
		}
	}

	if e.gate != nil {
		enabled, err := e.gate.Enabled(ctx)
		if err != nil {
			log.Warn("Feature gate lookup failed; treating as disabled", "error", err)
		}
		if err != nil || !enabled {
			log.Info("Duplication feature disabled; deferring stage", "delay", e.settings.FeatureDeferDelay())
			span.SetAttributes(attribute.String("outcome", "feature_disabled"))
			return deferred(e.settings.FeatureDeferDelay(), "feature_disabled"), nil
		}
	}

	d, out, err := e.statusGate(ctx, log, duplicationID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}
	if d == nil {
		span.SetAttributes(attribute.String("outcome", out.Reason))
		return out, nil
	}

	log = log.With("source_episode_id", d.SourceEpisodeID)
	if d.TargetEpisodeID != nil {
		log = log.With("target_episode_id", *d.TargetEpisodeID)
	}
	jc := NewContext(ctx, e.db, log, d, e.repo, stage)

	log.Info("Running duplication stage")
	start := time.Now()
	if err := runHandler(h, jc); err != nil {
		if errors.Is(context.Cause(ctx), ErrLeaseLost) {
			err = fmt.Errorf("%w: %w", ErrLeaseLost, err)
		}
		jc.Fail(err)
		if e.throttle != nil {
			if herr := e.throttle.Hit(context.WithoutCancel(ctx), throttleKey); herr != nil {
				log.Warn("Failed to record stage exception", "error", herr)
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}
	log.Info("Duplication stage finished", "duration_ms", time.Since(start).Milliseconds())
	return Outcome{Status: OutcomeDone, Result: jc.Result()}, nil
}

// keepLease refreshes lease every third of the lock ttl until the returned stop
// func is called. The returned context is cancelled with ErrLeaseLost as soon as
// a refresh reports the lease is no longer held.
func (e *Executor) keepLease(ctx context.Context, log *logger.Logger, lease Lease) (context.Context, func()) {
	ttl := e.settings.LockTTL()
	every := ttl / 3
	if every <= 0 {
		every = time.Second
	}
	leaseCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-leaseCtx.Done():
				return
			case <-t.C:
				held, err := lease.Refresh(leaseCtx, ttl)
				if err != nil {
					log.Warn("Failed to refresh duplication lock", "error", err)
					continue
				}
				if !held {
					log.Error("Duplication lock lost; cancelling stage")
					cancel(ErrLeaseLost)
					return
				}
			}
		}
	}()
	return leaseCtx, func() {
		close(done)
		<-stopped
		cancel(nil)
	}
}

// statusGate returns the record when the stage may run, or the stop outcome.
func (e *Executor) statusGate(ctx context.Context, log *logger.Logger, id uuid.UUID) (*types.Duplication, Outcome, error) {
	dbc := dbctx.Context{Ctx: ctx}
	d, err := e.repo.GetByID(dbc, id)
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("%w: load duplication: %w", ErrStageNotStarted, err)
	}
	if d == nil {
		log.Warn("Duplication not found; stopping chain")
		return nil, stopped("not_found"), nil
	}

	switch d.Status {
	case types.DuplicationPending:
		moved, err := e.repo.TransitionStatus(dbc, id, types.DuplicationPending, types.DuplicationInProgress)
		if err != nil {
			return nil, Outcome{}, fmt.Errorf("%w: start duplication: %w", ErrStageNotStarted, err)
		}
		if !moved {
			// another worker changed it first; judge the status it left behind
			if d, err = e.repo.GetByID(dbc, id); err != nil {
				return nil, Outcome{}, fmt.Errorf("%w: reload duplication: %w", ErrStageNotStarted, err)
			}
			if d == nil || d.Status != types.DuplicationInProgress {
				log.Info("Duplication status changed by another worker; stopping chain")
				return nil, stopped("status_changed"), nil
			}
			return d, Outcome{}, nil
		}
		d.Status = types.DuplicationInProgress
		log.Info("Duplication started")
		return d, Outcome{}, nil
	case types.DuplicationInProgress:
		return d, Outcome{}, nil
	default:
		log.Info("Duplication is not runnable; skipping stage", "status", string(d.Status))
		return nil, stopped("status_" + string(d.Status)), nil
	}
}

// Complete moves an in-progress duplication to completed after the last stage.
func (e *Executor) Complete(ctx context.Context, duplicationID uuid.UUID) (bool, error) {
	ok, err := e.repo.TransitionStatus(dbctx.Context{Ctx: ctx}, duplicationID, types.DuplicationInProgress, types.DuplicationCompleted)
	if err != nil {
		return false, fmt.Errorf("complete duplication: %w", err)
	}
	if ok {
		e.log.Info("Duplication completed", "duplication_id", duplicationID)
	} else {
		e.log.Warn("Duplication was not in progress at completion", "duplication_id", duplicationID)
	}
	return ok, nil
}

// Abort is the chain failure handler for errors raised outside a stage handler
// (lock store down, record unreadable). Stage handler errors are already recorded.
func (e *Executor) Abort(ctx context.Context, duplicationID uuid.UUID, cause error) error {
	e.log.Error("Aborting duplication chain",
		"duplication_id", duplicationID,
		"error", cause,
		"error_type", duplication.ErrorType(cause),
	)
	if err := e.repo.MarkFailed(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, duplicationID); err != nil {
		return fmt.Errorf("mark duplication failed: %w", err)
	}
	return nil
}

func runHandler(h Handler, jc *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if jc.Log != nil {
				jc.Log.Error("Stage handler panic", "panic", r)
			}
			err = &panicError{Val: r}
		}
	}()
	return h.Run(jc)
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
