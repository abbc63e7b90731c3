package duplicationrun

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/episode-duplication/internal/jobs/orchestrator"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

// Submitter starts one workflow per duplication. Submitting the same
// duplication twice while its workflow runs is a no-op.
type Submitter struct {
	tc          temporalsdkclient.Client
	log         *logger.Logger
	taskQueue   string
	maxAttempts int
}

func NewSubmitter(tc temporalsdkclient.Client, baseLog *logger.Logger, taskQueue string, stageMaxAttempts int) *Submitter {
	return &Submitter{
		tc:          tc,
		log:         baseLog.With("component", "TemporalChainSubmitter"),
		taskQueue:   taskQueue,
		maxAttempts: stageMaxAttempts,
	}
}

func (s *Submitter) Submit(ctx context.Context, chain orchestrator.Chain) error {
	if s == nil || s.tc == nil {
		return fmt.Errorf("temporal submitter not initialized")
	}
	if err := chain.Validate(); err != nil {
		return err
	}
	run, err := s.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    WorkflowID(chain.DuplicationID),
		TaskQueue:             s.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}, WorkflowName, WorkflowInput{Chain: chain, StageMaxAttempts: s.maxAttempts})
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			s.log.Info("Duplication workflow already running", "duplication_id", chain.DuplicationID)
			return nil
		}
		return fmt.Errorf("start duplication workflow: %w", err)
	}
	s.log.Info("Duplication workflow started",
		"duplication_id", chain.DuplicationID,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)
	return nil
}

// Wait blocks until the duplication's workflow finishes and returns its chain state.
func (s *Submitter) Wait(ctx context.Context, duplicationID uuid.UUID) (orchestrator.ChainState, error) {
	var st orchestrator.ChainState
	err := s.tc.GetWorkflow(ctx, WorkflowID(duplicationID), "").Get(ctx, &st)
	return st, err
}
