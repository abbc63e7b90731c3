package duplicationrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/episode-duplication/internal/jobs/orchestrator"
	jobrt "github.com/yungbote/episode-duplication/internal/jobs/runtime"
	"github.com/yungbote/episode-duplication/internal/modules/duplication"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

type Activities struct {
	Log    *logger.Logger
	Runner orchestrator.StageRunner
}

// Stage runs one stage through the harness. Only failures that happened before
// the handler started are left retryable; anything else already marked the
// record failed and would only be stopped by the status gate on retry.
func (a *Activities) Stage(ctx context.Context, in StageInput) (StageResult, error) {
	if a == nil || a.Runner == nil {
		return StageResult{}, fmt.Errorf("duplicationrun: activity not configured")
	}
	stop := startHeartbeat(ctx)
	defer stop()

	out, err := a.Runner.Execute(ctx, in.Stage, in.DuplicationID)
	if err != nil {
		if errors.Is(err, jobrt.ErrStageNotStarted) {
			return StageResult{}, err
		}
		return StageResult{}, temporal.NewNonRetryableApplicationError(err.Error(), duplication.ErrorType(err), err)
	}
	return StageResult{
		Status: string(out.Status),
		Delay:  out.Delay,
		Reason: out.Reason,
		Result: out.Result,
	}, nil
}

func (a *Activities) Complete(ctx context.Context, duplicationID uuid.UUID) (bool, error) {
	if a == nil || a.Runner == nil {
		return false, fmt.Errorf("duplicationrun: activity not configured")
	}
	return a.Runner.Complete(ctx, duplicationID)
}

func (a *Activities) Fail(ctx context.Context, in FailInput) error {
	if a == nil || a.Runner == nil {
		return fmt.Errorf("duplicationrun: activity not configured")
	}
	if a.Log != nil {
		a.Log.Warn("Duplication chain aborted by workflow", "duplication_id", in.DuplicationID, "error_type", in.ErrorType)
	}
	return a.Runner.Abort(ctx, in.DuplicationID, errors.New(in.Message))
}

func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
