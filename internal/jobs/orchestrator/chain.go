package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	types "github.com/yungbote/episode-duplication/internal/domain"
	jobrt "github.com/yungbote/episode-duplication/internal/jobs/runtime"
)

// Chain is the ordered list of stages for one duplication. It carries ids only;
// every stage reads what it needs from the database.
type Chain struct {
	DuplicationID   uuid.UUID                `json:"duplication_id"`
	SourceEpisodeID uuid.UUID                `json:"source_episode_id"`
	Steps           []types.DuplicationStage `json:"steps"`
}

func DuplicationChain(duplicationID, sourceEpisodeID uuid.UUID) Chain {
	return Chain{
		DuplicationID:   duplicationID,
		SourceEpisodeID: sourceEpisodeID,
		Steps:           append([]types.DuplicationStage(nil), types.DuplicationStages...),
	}
}

func (c Chain) Validate() error {
	if c.DuplicationID == uuid.Nil {
		return fmt.Errorf("chain: missing duplication_id")
	}
	if c.SourceEpisodeID == uuid.Nil {
		return fmt.Errorf("chain: missing source_episode_id")
	}
	if len(c.Steps) == 0 {
		return fmt.Errorf("chain: no steps")
	}
	seen := map[types.DuplicationStage]bool{}
	for _, s := range c.Steps {
		if !s.Valid() {
			return fmt.Errorf("chain: unknown stage %q", s)
		}
		if seen[s] {
			return fmt.Errorf("chain: duplicate stage %q", s)
		}
		seen[s] = true
	}
	return nil
}

// Submitter hands a chain to whatever runs it. Submit returns once the chain is
// accepted, not when it finishes.
type Submitter interface {
	Submit(ctx context.Context, chain Chain) error
}

// StageRunner is the stage harness surface a chain runner drives.
type StageRunner interface {
	Execute(ctx context.Context, stage types.DuplicationStage, duplicationID uuid.UUID) (jobrt.Outcome, error)
	Complete(ctx context.Context, duplicationID uuid.UUID) (bool, error)
	Abort(ctx context.Context, duplicationID uuid.UUID, cause error) error
}
