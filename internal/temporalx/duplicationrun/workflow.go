package duplicationrun

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/episode-duplication/internal/jobs/orchestrator"
	jobrt "github.com/yungbote/episode-duplication/internal/jobs/runtime"
)

const continueHistoryLimit = 15000

// Workflow runs one duplication chain: stages strictly in order, a deferred
// stage sleeps and runs again, a stopped stage ends the chain, and the first
// failure runs the fail activity and ends the workflow with that failure.
func Workflow(ctx workflow.Context, in WorkflowInput) (orchestrator.ChainState, error) {
	chain := in.Chain
	if err := chain.Validate(); err != nil {
		return orchestrator.ChainState{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidChain", err)
	}
	log := workflow.GetLogger(ctx)
	st := orchestrator.NewChainState(chain)

	maxAttempts := in.StageMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	stageCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 12 * time.Hour,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    int32(maxAttempts),
		},
	})
	bookkeepingCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 10,
		},
	})

	for i, ss := range st.Stages {
		for {
			now := workflow.Now(ctx)
			ss.Attempts++
			ss.Status = orchestrator.StageRunning
			if ss.StartedAt == nil {
				ss.StartedAt = &now
			}

			var res StageResult
			err := workflow.ExecuteActivity(stageCtx, ActivityStage, StageInput{
				DuplicationID: chain.DuplicationID,
				Stage:         ss.Name,
			}).Get(ctx, &res)
			if err != nil {
				return failChain(bookkeepingCtx, st, ss, err)
			}

			switch jobrt.OutcomeStatus(res.Status) {
			case jobrt.OutcomeDone:
				finished := workflow.Now(ctx)
				ss.Status = orchestrator.StageSucceeded
				ss.FinishedAt = &finished
				ss.Outputs = res.Result
			case jobrt.OutcomeDeferred:
				ss.Status = orchestrator.StageDeferred
				ss.Deferrals++
				log.Info("Stage deferred", "stage", string(ss.Name), "reason", res.Reason, "delay", res.Delay)
				if err := workflow.Sleep(ctx, res.Delay); err != nil {
					return *st, err
				}
				if workflow.GetInfo(ctx).GetCurrentHistoryLength() >= continueHistoryLimit {
					next := in
					next.Chain.Steps = chain.Steps[i:]
					return *st, workflow.NewContinueAsNewError(ctx, WorkflowName, next)
				}
				continue
			case jobrt.OutcomeStopped:
				ss.Status = orchestrator.StageSkipped
				st.Status = orchestrator.ChainStopped
				st.StopReason = res.Reason
				log.Info("Chain stopped", "stage", string(ss.Name), "reason", res.Reason)
				return *st, nil
			default:
				return failChain(bookkeepingCtx, st, ss, fmt.Errorf("stage %s: unknown outcome %q", ss.Name, res.Status))
			}
			break
		}
	}

	var completed bool
	if err := workflow.ExecuteActivity(bookkeepingCtx, ActivityComplete, chain.DuplicationID).Get(ctx, &completed); err != nil {
		st.Status = orchestrator.ChainFailed
		return *st, err
	}
	if completed {
		st.Status = orchestrator.ChainCompleted
	} else {
		st.Status = orchestrator.ChainStopped
		st.StopReason = "not_in_progress"
	}
	return *st, nil
}

func failChain(ctx workflow.Context, st *orchestrator.ChainState, ss *orchestrator.StageState, cause error) (orchestrator.ChainState, error) {
	now := workflow.Now(ctx)
	ss.Status = orchestrator.StageFailed
	ss.FinishedAt = &now
	ss.LastError = cause.Error()
	st.Status = orchestrator.ChainFailed
	for _, rest := range st.Stages {
		if rest.Status == orchestrator.StagePending {
			rest.Status = orchestrator.StageSkipped
		}
	}

	in := FailInput{DuplicationID: st.DuplicationID, Message: cause.Error()}
	var appErr *temporal.ApplicationError
	if errors.As(cause, &appErr) {
		in.ErrorType = appErr.Type()
	}
	if err := workflow.ExecuteActivity(ctx, ActivityFail, in).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Error("Fail activity did not run", "duplication_id", st.DuplicationID.String(), "error", err)
	}
	return *st, cause
}
