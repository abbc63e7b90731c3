package duplicationrun

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/jobs/orchestrator"
	jobrt "github.com/yungbote/episode-duplication/internal/jobs/runtime"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

type fakeActivities struct {
	mu        sync.Mutex
	stages    []types.DuplicationStage
	stage     func(n int, in StageInput) (StageResult, error)
	completed int
	failed    []FailInput
}

func (f *fakeActivities) Stage(_ context.Context, in StageInput) (StageResult, error) {
	f.mu.Lock()
	f.stages = append(f.stages, in.Stage)
	n := len(f.stages)
	f.mu.Unlock()
	if f.stage != nil {
		return f.stage(n, in)
	}
	return StageResult{Status: string(jobrt.OutcomeDone), Result: map[string]any{"stage": string(in.Stage)}}, nil
}

func (f *fakeActivities) Complete(_ context.Context, _ uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed++
	return true, nil
}

func (f *fakeActivities) Fail(_ context.Context, in FailInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, in)
	return nil
}

func newWorkflowEnv(t *testing.T, acts *fakeActivities) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.Stage, activity.RegisterOptions{Name: ActivityStage})
	env.RegisterActivityWithOptions(acts.Complete, activity.RegisterOptions{Name: ActivityComplete})
	env.RegisterActivityWithOptions(acts.Fail, activity.RegisterOptions{Name: ActivityFail})
	return env
}

func testInput() WorkflowInput {
	return WorkflowInput{Chain: orchestrator.DuplicationChain(uuid.New(), uuid.New()), StageMaxAttempts: 3}
}

func TestWorkflowRunsStagesInOrder(t *testing.T) {
	acts := &fakeActivities{}
	env := newWorkflowEnv(t, acts)
	in := testInput()

	env.ExecuteWorkflow(WorkflowName, in)
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var st orchestrator.ChainState
	if err := env.GetWorkflowResult(&st); err != nil {
		t.Fatalf("GetWorkflowResult: %v", err)
	}
	if st.Status != orchestrator.ChainCompleted {
		t.Fatalf("status: want=completed got=%s", st.Status)
	}
	if fmt.Sprint(acts.stages) != fmt.Sprint(in.Chain.Steps) {
		t.Fatalf("stage order: want=%v got=%v", in.Chain.Steps, acts.stages)
	}
	if acts.completed != 1 || len(acts.failed) != 0 {
		t.Fatalf("completed=%d failed=%d", acts.completed, len(acts.failed))
	}
}

func TestWorkflowFailsChainOnHandlerError(t *testing.T) {
	acts := &fakeActivities{stage: func(_ int, in StageInput) (StageResult, error) {
		if in.Stage == types.StageItems {
			return StageResult{}, temporal.NewNonRetryableApplicationError("insert failed", "DatabaseError", nil)
		}
		return StageResult{Status: string(jobrt.OutcomeDone)}, nil
	}}
	env := newWorkflowEnv(t, acts)

	env.ExecuteWorkflow(WorkflowName, testInput())
	if err := env.GetWorkflowError(); err == nil {
		t.Fatalf("workflow error: want failure")
	}
	if len(acts.stages) != 3 {
		t.Fatalf("stages run: want=3 got=%v", acts.stages)
	}
	if len(acts.failed) != 1 || acts.failed[0].ErrorType != "DatabaseError" {
		t.Fatalf("fail activity: got=%+v", acts.failed)
	}
	if acts.completed != 0 {
		t.Fatalf("completed after failure")
	}
}

func TestWorkflowRetriesStageThatDidNotStart(t *testing.T) {
	acts := &fakeActivities{stage: func(n int, in StageInput) (StageResult, error) {
		if in.Stage == types.StageParts && n <= 3 {
			return StageResult{}, fmt.Errorf("%w: redis down", jobrt.ErrStageNotStarted)
		}
		return StageResult{Status: string(jobrt.OutcomeDone)}, nil
	}}
	env := newWorkflowEnv(t, acts)

	env.ExecuteWorkflow(WorkflowName, testInput())
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	// episode once, parts twice failed then once ok, items, blocks
	if len(acts.stages) != 6 {
		t.Fatalf("stage calls: want=6 got=%v", acts.stages)
	}
}

func TestWorkflowSleepsOnDeferral(t *testing.T) {
	acts := &fakeActivities{stage: func(n int, in StageInput) (StageResult, error) {
		if in.Stage == types.StageEpisode && n == 1 {
			return StageResult{Status: string(jobrt.OutcomeDeferred), Delay: 30 * time.Second, Reason: "feature_disabled"}, nil
		}
		return StageResult{Status: string(jobrt.OutcomeDone)}, nil
	}}
	env := newWorkflowEnv(t, acts)

	env.ExecuteWorkflow(WorkflowName, testInput())
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var st orchestrator.ChainState
	_ = env.GetWorkflowResult(&st)
	ep := st.Stage(types.StageEpisode)
	if ep == nil || ep.Deferrals != 1 || ep.Attempts != 2 {
		t.Fatalf("episode stage: got=%+v", ep)
	}
	if st.Status != orchestrator.ChainCompleted {
		t.Fatalf("status: want=completed got=%s", st.Status)
	}
}

func TestWorkflowStopsWithoutCompleting(t *testing.T) {
	acts := &fakeActivities{stage: func(_ int, in StageInput) (StageResult, error) {
		if in.Stage == types.StageParts {
			return StageResult{Status: string(jobrt.OutcomeStopped), Reason: "status_failed"}, nil
		}
		return StageResult{Status: string(jobrt.OutcomeDone)}, nil
	}}
	env := newWorkflowEnv(t, acts)

	env.ExecuteWorkflow(WorkflowName, testInput())
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var st orchestrator.ChainState
	_ = env.GetWorkflowResult(&st)
	if st.Status != orchestrator.ChainStopped || st.StopReason != "status_failed" {
		t.Fatalf("status: got=%s reason=%s", st.Status, st.StopReason)
	}
	if acts.completed != 0 || len(acts.failed) != 0 || len(acts.stages) != 2 {
		t.Fatalf("completed=%d failed=%d stages=%v", acts.completed, len(acts.failed), acts.stages)
	}
}

func TestWorkflowRejectsInvalidChain(t *testing.T) {
	env := newWorkflowEnv(t, &fakeActivities{})
	env.ExecuteWorkflow(WorkflowName, WorkflowInput{})
	if err := env.GetWorkflowError(); err == nil {
		t.Fatalf("workflow error: want invalid chain")
	}
}

type stubRunner struct {
	out     jobrt.Outcome
	err     error
	aborted []uuid.UUID
}

func (s *stubRunner) Execute(context.Context, types.DuplicationStage, uuid.UUID) (jobrt.Outcome, error) {
	return s.out, s.err
}

func (s *stubRunner) Complete(context.Context, uuid.UUID) (bool, error) { return true, nil }

func (s *stubRunner) Abort(_ context.Context, id uuid.UUID, _ error) error {
	s.aborted = append(s.aborted, id)
	return nil
}

func runStageActivity(t *testing.T, r *stubRunner) error {
	t.Helper()
	var s testsuite.WorkflowTestSuite
	env := s.NewTestActivityEnvironment()
	acts := &Activities{Log: logger.NewNop(), Runner: r}
	env.RegisterActivityWithOptions(acts.Stage, activity.RegisterOptions{Name: ActivityStage})
	_, err := env.ExecuteActivity(ActivityStage, StageInput{DuplicationID: uuid.New(), Stage: types.StageParts})
	return err
}

func TestStageActivityMarksHandlerErrorsNonRetryable(t *testing.T) {
	err := runStageActivity(t, &stubRunner{err: errors.New("insert failed")})
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) || !appErr.NonRetryable() {
		t.Fatalf("handler error: want non-retryable application error got=%v", err)
	}

	err = runStageActivity(t, &stubRunner{err: fmt.Errorf("%w: lock store down", jobrt.ErrStageNotStarted)})
	if err == nil {
		t.Fatalf("not-started error: want error")
	}
	if errors.As(err, &appErr) && appErr.NonRetryable() {
		t.Fatalf("not-started error: must stay retryable")
	}
}

func TestStageActivityReportsOutcome(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestActivityEnvironment()
	acts := &Activities{Log: logger.NewNop(), Runner: &stubRunner{out: jobrt.Outcome{Status: jobrt.OutcomeDeferred, Delay: 5 * time.Second, Reason: "locked"}}}
	env.RegisterActivityWithOptions(acts.Stage, activity.RegisterOptions{Name: ActivityStage})

	val, err := env.ExecuteActivity(ActivityStage, StageInput{DuplicationID: uuid.New(), Stage: types.StageParts})
	if err != nil {
		t.Fatalf("ExecuteActivity: %v", err)
	}
	var res StageResult
	if err := val.Get(&res); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Status != string(jobrt.OutcomeDeferred) || res.Delay != 5*time.Second || res.Reason != "locked" {
		t.Fatalf("result: got=%+v", res)
	}
}

func TestWorkflowID(t *testing.T) {
	id := uuid.MustParse("7f1c9a52-3f0b-4a7e-9a53-0d1f2b9e4c11")
	if got := WorkflowID(id); got != "duplication-7f1c9a52-3f0b-4a7e-9a53-0d1f2b9e4c11" {
		t.Fatalf("WorkflowID: got=%s", got)
	}
}
