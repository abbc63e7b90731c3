package orchestrator

import (
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/episode-duplication/internal/domain"
)

type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageDeferred  StageStatus = "deferred"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
)

type ChainStatus string

const (
	ChainRunning     ChainStatus = "running"
	ChainCompleted   ChainStatus = "completed"
	ChainFailed      ChainStatus = "failed"
	ChainStopped     ChainStatus = "stopped"
	ChainInterrupted ChainStatus = "interrupted"
)

type StageState struct {
	Name       types.DuplicationStage `json:"name"`
	Status     StageStatus            `json:"status"`
	Attempts   int                    `json:"attempts"`
	Deferrals  int                    `json:"deferrals"`
	StartedAt  *time.Time             `json:"started_at,omitempty"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
	LastError  string                 `json:"last_error,omitempty"`
	Outputs    map[string]any         `json:"outputs,omitempty"`
}

// ChainState is the runner's view of one chain run. The duplication record
// stays the source of truth; this is kept for logs, the CLI and tests.
type ChainState struct {
	DuplicationID uuid.UUID     `json:"duplication_id"`
	Status        ChainStatus   `json:"status"`
	Stages        []*StageState `json:"stages"`
	StopReason    string        `json:"stop_reason,omitempty"`
}

func NewChainState(chain Chain) *ChainState {
	st := &ChainState{DuplicationID: chain.DuplicationID, Status: ChainRunning}
	for _, s := range chain.Steps {
		st.Stages = append(st.Stages, &StageState{Name: s, Status: StagePending, Outputs: map[string]any{}})
	}
	return st
}

func (s *ChainState) Stage(name types.DuplicationStage) *StageState {
	for _, ss := range s.Stages {
		if ss.Name == name {
			return ss
		}
	}
	return nil
}

func (s *ChainState) clone() ChainState {
	out := ChainState{DuplicationID: s.DuplicationID, Status: s.Status, StopReason: s.StopReason}
	for _, ss := range s.Stages {
		cp := *ss
		cp.Outputs = make(map[string]any, len(ss.Outputs))
		for k, v := range ss.Outputs {
			cp.Outputs[k] = v
		}
		out.Stages = append(out.Stages, &cp)
	}
	return out
}

func markStarted(ss *StageState, now time.Time) {
	ss.Status = StageRunning
	if ss.StartedAt == nil {
		ss.StartedAt = &now
	}
}

func markFinished(ss *StageState, status StageStatus, lastErr string, now time.Time) {
	ss.Status = status
	ss.LastError = lastErr
	ss.FinishedAt = &now
}
