package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	jobrt "github.com/yungbote/episode-duplication/internal/jobs/runtime"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

type RetryPolicy struct {
	MaxAttempts int
	Retryable   func(err error) bool

	MinBackoff time.Duration // default 1s
	MaxBackoff time.Duration // default 30s
	JitterFrac float64       // default 0.20
}

// StageRetryPolicy retries only stage runs that failed before their handler
// started; a handler failure has already marked the record failed.
func StageRetryPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Retryable: func(err error) bool {
			return errors.Is(err, jobrt.ErrStageNotStarted)
		},
	}
}

/*
Engine runs duplication chains in-process on a fixed pool of workers.
Stages of one chain run strictly in order; different chains run in parallel.
Per-duplication mutual exclusion is the StageRunner's job (its lock), so two
submissions of the same chain cannot overlap stage executions.
The queue is memory only: chains accepted but not yet finished are lost on
shutdown and their records stay pending/in_progress.
*/
type Engine struct {
	runner      StageRunner
	log         *logger.Logger
	retry       RetryPolicy
	concurrency int
	queue       chan Chain

	// MaxDeferDelay caps a single deferral sleep. Zero means no cap.
	MaxDeferDelay time.Duration

	mu   sync.RWMutex
	runs map[uuid.UUID]*ChainState

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewEngine(runner StageRunner, baseLog *logger.Logger, retry RetryPolicy, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		runner:      runner,
		log:         baseLog.With("component", "ChainEngine"),
		retry:       retry,
		concurrency: concurrency,
		queue:       make(chan Chain, 256),
		runs:        map[uuid.UUID]*ChainState{},
		sleep:       sleepCtx,
		now:         time.Now,
	}
}

func (e *Engine) Submit(ctx context.Context, chain Chain) error {
	if err := chain.Validate(); err != nil {
		return err
	}
	select {
	case e.queue <- chain:
		e.log.Info("Chain submitted", "duplication_id", chain.DuplicationID, "steps", len(chain.Steps))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("submit chain %s: %w", chain.DuplicationID, ctx.Err())
	}
}

// Run starts the worker pool and blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("Starting chain worker pool", "concurrency", e.concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.concurrency; i++ {
		workerID := i + 1
		g.Go(func() error {
			e.loop(gctx, workerID)
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) loop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			e.log.Info("Chain worker stopped", "worker_id", workerID)
			return
		case chain := <-e.queue:
			if _, err := e.RunChain(ctx, chain); err != nil {
				e.log.Warn("Chain ended with error",
					"worker_id", workerID,
					"duplication_id", chain.DuplicationID,
					"error", err,
				)
			}
		}
	}
}

// State returns a snapshot of the latest run of a duplication's chain.
func (e *Engine) State(duplicationID uuid.UUID) (ChainState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.runs[duplicationID]
	if !ok {
		return ChainState{}, false
	}
	return st.clone(), true
}

func (e *Engine) update(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// RunChain runs every stage of chain in order on the calling goroutine.
func (e *Engine) RunChain(ctx context.Context, chain Chain) (ChainState, error) {
	if err := chain.Validate(); err != nil {
		return ChainState{}, err
	}
	st := NewChainState(chain)
	e.update(func() { e.runs[chain.DuplicationID] = st })
	log := e.log.With("duplication_id", chain.DuplicationID, "source_episode_id", chain.SourceEpisodeID)

	for _, stage := range chain.Steps {
		ss := st.Stage(stage)
		done, err := e.runStage(ctx, log, chain, st, ss)
		if err != nil || !done {
			snap, _ := e.State(chain.DuplicationID)
			return snap, err
		}
	}

	if err := e.complete(ctx, log, chain, st); err != nil {
		snap, _ := e.State(chain.DuplicationID)
		return snap, err
	}
	snap, _ := e.State(chain.DuplicationID)
	return snap, nil
}

// runStage returns done=false when the chain must not continue.
func (e *Engine) runStage(ctx context.Context, log *logger.Logger, chain Chain, st *ChainState, ss *StageState) (bool, error) {
	failures := 0
	for {
		e.update(func() {
			ss.Attempts++
			markStarted(ss, e.now())
		})
		out, err := e.runner.Execute(ctx, ss.Name, chain.DuplicationID)
		if err != nil {
			failures++
			if shouldRetry(e.retry, failures, err) {
				delay := computeBackoff(e.retry, failures)
				log.Warn("Stage did not start; retrying", "stage", string(ss.Name), "attempt", failures, "delay", delay, "error", err)
				if serr := e.sleep(ctx, delay); serr != nil {
					e.interrupt(log, st, ss, serr)
					return false, serr
				}
				continue
			}
			e.fail(ctx, log, chain, st, ss, err)
			return false, err
		}

		switch out.Status {
		case jobrt.OutcomeDone:
			e.update(func() {
				markFinished(ss, StageSucceeded, "", e.now())
				if out.Result != nil {
					ss.Outputs = out.Result
				}
			})
			return true, nil
		case jobrt.OutcomeDeferred:
			delay := clampDuration(out.Delay, 0, e.MaxDeferDelay)
			e.update(func() {
				ss.Status = StageDeferred
				ss.Deferrals++
			})
			log.Info("Stage deferred", "stage", string(ss.Name), "reason", out.Reason, "delay", delay)
			if serr := e.sleep(ctx, delay); serr != nil {
				e.interrupt(log, st, ss, serr)
				return false, serr
			}
		case jobrt.OutcomeStopped:
			e.update(func() {
				markFinished(ss, StageSkipped, "", e.now())
				st.Status = ChainStopped
				st.StopReason = out.Reason
			})
			log.Info("Chain stopped", "stage", string(ss.Name), "reason", out.Reason)
			return false, nil
		default:
			err := fmt.Errorf("stage %s: unknown outcome %q", ss.Name, out.Status)
			e.fail(ctx, log, chain, st, ss, err)
			return false, err
		}
	}
}

func (e *Engine) fail(ctx context.Context, log *logger.Logger, chain Chain, st *ChainState, ss *StageState, err error) {
	e.update(func() {
		markFinished(ss, StageFailed, errString(err), e.now())
		st.Status = ChainFailed
		for _, rest := range st.Stages {
			if rest.Status == StagePending {
				rest.Status = StageSkipped
			}
		}
	})
	if aerr := e.runner.Abort(ctx, chain.DuplicationID, err); aerr != nil {
		log.Error("Chain failure handler could not mark duplication failed", "error", aerr)
	}
}

func (e *Engine) interrupt(log *logger.Logger, st *ChainState, ss *StageState, err error) {
	e.update(func() {
		ss.LastError = errString(err)
		st.Status = ChainInterrupted
	})
	log.Warn("Chain interrupted", "stage", string(ss.Name), "error", err)
}

func (e *Engine) complete(ctx context.Context, log *logger.Logger, chain Chain, st *ChainState) error {
	attempts := 0
	for {
		attempts++
		ok, err := e.runner.Complete(ctx, chain.DuplicationID)
		if err == nil {
			e.update(func() {
				if ok {
					st.Status = ChainCompleted
				} else {
					st.Status = ChainStopped
					st.StopReason = "not_in_progress"
				}
			})
			return nil
		}
		if attempts >= e.retry.MaxAttempts {
			log.Error("Could not complete duplication", "error", err)
			e.update(func() { st.Status = ChainFailed })
			return err
		}
		if serr := e.sleep(ctx, computeBackoff(e.retry, attempts)); serr != nil {
			e.update(func() { st.Status = ChainInterrupted })
			return serr
		}
	}
}

func shouldRetry(r RetryPolicy, attempts int, err error) bool {
	if r.MaxAttempts <= 0 || attempts >= r.MaxAttempts {
		return false
	}
	if r.Retryable == nil {
		return true
	}
	return r.Retryable(err)
}

func computeBackoff(r RetryPolicy, attempts int) time.Duration {
	minB := r.MinBackoff
	maxB := r.MaxBackoff
	j := r.JitterFrac
	if minB <= 0 {
		minB = 1 * time.Second
	}
	if maxB <= 0 {
		maxB = 30 * time.Second
	}
	if j <= 0 {
		j = 0.20
	}
	if attempts < 1 {
		attempts = 1
	}
	d := time.Duration(float64(minB) * math.Pow(2, float64(attempts-1)))
	if d > maxB {
		d = maxB
	}
	delta := float64(d) * j
	low := float64(d) - delta
	high := float64(d) + delta
	if low < 0 {
		low = 0
	}
	return time.Duration(low + rand.Float64()*(high-low))
}

func clampDuration(d, minD, maxD time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if minD > 0 && d < minD {
		return minD
	}
	if maxD > 0 && d > maxD {
		return maxD
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
