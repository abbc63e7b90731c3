package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	types "github.com/yungbote/episode-duplication/internal/domain"
	jobrt "github.com/yungbote/episode-duplication/internal/jobs/runtime"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

type call struct {
	stage types.DuplicationStage
	id    uuid.UUID
}

// scriptedRunner returns queued outcomes per stage; an empty queue means done.
type scriptedRunner struct {
	mu        sync.Mutex
	script    map[types.DuplicationStage][]scripted
	calls     []call
	completed []uuid.UUID
	aborted   []uuid.UUID
}

type scripted struct {
	out jobrt.Outcome
	err error
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{script: map[types.DuplicationStage][]scripted{}}
}

func (r *scriptedRunner) on(stage types.DuplicationStage, steps ...scripted) {
	r.script[stage] = append(r.script[stage], steps...)
}

func (r *scriptedRunner) Execute(_ context.Context, stage types.DuplicationStage, id uuid.UUID) (jobrt.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{stage: stage, id: id})
	if q := r.script[stage]; len(q) > 0 {
		r.script[stage] = q[1:]
		return q[0].out, q[0].err
	}
	return jobrt.Outcome{Status: jobrt.OutcomeDone, Result: map[string]any{"stage": string(stage)}}, nil
}

func (r *scriptedRunner) Complete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, id)
	return true, nil
}

func (r *scriptedRunner) Abort(_ context.Context, id uuid.UUID, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aborted = append(r.aborted, id)
	return nil
}

func (r *scriptedRunner) stagesFor(id uuid.UUID) []types.DuplicationStage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.DuplicationStage
	for _, c := range r.calls {
		if c.id == id {
			out = append(out, c.stage)
		}
	}
	return out
}

func newTestEngine(r *scriptedRunner) (*Engine, *[]time.Duration) {
	e := NewEngine(r, logger.NewNop(), StageRetryPolicy(3), 2)
	var slept []time.Duration
	var mu sync.Mutex
	e.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
		return ctx.Err()
	}
	return e, &slept
}

func testChain() Chain {
	return DuplicationChain(uuid.New(), uuid.New())
}

func TestDuplicationChainOrder(t *testing.T) {
	c := testChain()
	want := []types.DuplicationStage{types.StageEpisode, types.StageParts, types.StageItems, types.StageBlocks}
	if fmt.Sprint(c.Steps) != fmt.Sprint(want) {
		t.Fatalf("steps: want=%v got=%v", want, c.Steps)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	c.Steps = append(c.Steps, types.StageParts)
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate: duplicate stage accepted")
	}
	if err := (Chain{SourceEpisodeID: uuid.New(), Steps: want}).Validate(); err == nil {
		t.Fatalf("Validate: missing duplication id accepted")
	}
}

func TestRunChainCompletes(t *testing.T) {
	r := newScriptedRunner()
	e, _ := newTestEngine(r)
	c := testChain()

	st, err := e.RunChain(context.Background(), c)
	if err != nil {
		t.Fatalf("RunChain: %v", err)
	}
	if st.Status != ChainCompleted {
		t.Fatalf("status: want=%s got=%s", ChainCompleted, st.Status)
	}
	if got := r.stagesFor(c.DuplicationID); fmt.Sprint(got) != fmt.Sprint(c.Steps) {
		t.Fatalf("stage order: want=%v got=%v", c.Steps, got)
	}
	if len(r.completed) != 1 || len(r.aborted) != 0 {
		t.Fatalf("completed=%d aborted=%d", len(r.completed), len(r.aborted))
	}
	for _, ss := range st.Stages {
		if ss.Status != StageSucceeded || ss.Outputs["stage"] != string(ss.Name) {
			t.Fatalf("stage %s: got=%+v", ss.Name, ss)
		}
	}
}

func TestRunChainAbortsOnFirstFailure(t *testing.T) {
	r := newScriptedRunner()
	r.on(types.StageItems, scripted{err: errors.New("insert failed")})
	e, _ := newTestEngine(r)
	c := testChain()

	st, err := e.RunChain(context.Background(), c)
	if err == nil {
		t.Fatalf("RunChain: want error")
	}
	if st.Status != ChainFailed {
		t.Fatalf("status: want=failed got=%s", st.Status)
	}
	got := r.stagesFor(c.DuplicationID)
	if len(got) != 3 || got[2] != types.StageItems {
		t.Fatalf("stages run: got=%v", got)
	}
	if st.Stage(types.StageBlocks).Status != StageSkipped {
		t.Fatalf("blocks: want=skipped got=%s", st.Stage(types.StageBlocks).Status)
	}
	if len(r.aborted) != 1 || len(r.completed) != 0 {
		t.Fatalf("aborted=%d completed=%d", len(r.aborted), len(r.completed))
	}
}

func TestRunChainRetriesStagesThatDidNotStart(t *testing.T) {
	r := newScriptedRunner()
	notStarted := fmt.Errorf("%w: redis down", jobrt.ErrStageNotStarted)
	r.on(types.StageParts, scripted{err: notStarted}, scripted{err: notStarted})
	e, slept := newTestEngine(r)
	c := testChain()

	st, err := e.RunChain(context.Background(), c)
	if err != nil || st.Status != ChainCompleted {
		t.Fatalf("RunChain: status=%s err=%v", st.Status, err)
	}
	if st.Stage(types.StageParts).Attempts != 3 {
		t.Fatalf("parts attempts: want=3 got=%d", st.Stage(types.StageParts).Attempts)
	}
	if len(*slept) != 2 {
		t.Fatalf("backoff sleeps: want=2 got=%d", len(*slept))
	}

	r2 := newScriptedRunner()
	r2.on(types.StageParts, scripted{err: notStarted}, scripted{err: notStarted}, scripted{err: notStarted})
	e2, _ := newTestEngine(r2)
	if st, err := e2.RunChain(context.Background(), testChain()); err == nil || st.Status != ChainFailed || len(r2.aborted) != 1 {
		t.Fatalf("exhausted retries: status=%s err=%v aborted=%d", st.Status, err, len(r2.aborted))
	}
}

func TestRunChainDefersAndResumesSameStage(t *testing.T) {
	r := newScriptedRunner()
	r.on(types.StageItems, scripted{out: jobrt.Outcome{Status: jobrt.OutcomeDeferred, Delay: 30 * time.Second, Reason: "feature_disabled"}})
	e, slept := newTestEngine(r)
	c := testChain()

	st, err := e.RunChain(context.Background(), c)
	if err != nil || st.Status != ChainCompleted {
		t.Fatalf("RunChain: status=%s err=%v", st.Status, err)
	}
	if len(*slept) != 1 || (*slept)[0] != 30*time.Second {
		t.Fatalf("defer sleeps: got=%v", *slept)
	}
	items := st.Stage(types.StageItems)
	if items.Deferrals != 1 || items.Attempts != 2 {
		t.Fatalf("items: deferrals=%d attempts=%d", items.Deferrals, items.Attempts)
	}
	if len(r.aborted) != 0 {
		t.Fatalf("deferral treated as failure")
	}
}

func TestRunChainStopsWhenNotRunnable(t *testing.T) {
	r := newScriptedRunner()
	r.on(types.StageParts, scripted{out: jobrt.Outcome{Status: jobrt.OutcomeStopped, Reason: "status_failed"}})
	e, _ := newTestEngine(r)
	c := testChain()

	st, err := e.RunChain(context.Background(), c)
	if err != nil {
		t.Fatalf("RunChain: %v", err)
	}
	if st.Status != ChainStopped || st.StopReason != "status_failed" {
		t.Fatalf("status: got=%s reason=%s", st.Status, st.StopReason)
	}
	if got := r.stagesFor(c.DuplicationID); len(got) != 2 {
		t.Fatalf("stages run: got=%v", got)
	}
	if len(r.completed) != 0 || len(r.aborted) != 0 {
		t.Fatalf("completed=%d aborted=%d", len(r.completed), len(r.aborted))
	}
}

func TestEnginePoolRunsSubmittedChains(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newScriptedRunner()
	e, _ := newTestEngine(r)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	chains := []Chain{testChain(), testChain(), testChain()}
	for _, c := range chains {
		if err := e.Submit(ctx, c); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		finished := 0
		for _, c := range chains {
			if st, ok := e.State(c.DuplicationID); ok && st.Status == ChainCompleted {
				finished++
			}
		}
		if finished == len(chains) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("chains not completed in time: %d/%d", finished, len(chains))
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestSubmitRejectsInvalidChain(t *testing.T) {
	e, _ := newTestEngine(newScriptedRunner())
	if err := e.Submit(context.Background(), Chain{}); err == nil {
		t.Fatalf("Submit: want error for empty chain")
	}
}

func TestComputeBackoffBounds(t *testing.T) {
	r := RetryPolicy{MinBackoff: time.Second, MaxBackoff: 4 * time.Second, JitterFrac: 0.2}
	for attempt, base := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second, 6: 4 * time.Second} {
		d := computeBackoff(r, attempt)
		lo := time.Duration(float64(base) * 0.8)
		hi := time.Duration(float64(base) * 1.2)
		if d < lo || d > hi {
			t.Fatalf("computeBackoff(%d): want in [%v,%v] got=%v", attempt, lo, hi, d)
		}
	}
}
