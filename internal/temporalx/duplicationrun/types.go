package duplicationrun

import (
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/jobs/orchestrator"
)

const (
	WorkflowName     = "episode_duplication"
	ActivityStage    = "duplication_stage"
	ActivityComplete = "duplication_complete"
	ActivityFail     = "duplication_fail"
)

func WorkflowID(duplicationID uuid.UUID) string { return "duplication-" + duplicationID.String() }

type WorkflowInput struct {
	Chain orchestrator.Chain `json:"chain"`
	// StageMaxAttempts bounds Temporal retries of a stage that failed before its handler ran.
	StageMaxAttempts int `json:"stage_max_attempts"`
}

type StageInput struct {
	DuplicationID uuid.UUID              `json:"duplication_id"`
	Stage         types.DuplicationStage `json:"stage"`
}

type StageResult struct {
	Status string         `json:"status"`
	Delay  time.Duration  `json:"delay,omitempty"`
	Reason string         `json:"reason,omitempty"`
	Result map[string]any `json:"result,omitempty"`
}

type FailInput struct {
	DuplicationID uuid.UUID `json:"duplication_id"`
	Message       string    `json:"message"`
	ErrorType     string    `json:"error_type,omitempty"`
}
