package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/yungbote/episode-duplication/internal/data/db"
	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/modules/duplication"
	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
)

type EpisodeOutput struct {
	TargetEpisodeID uuid.UUID `json:"target_episode_id"`
	Reused          bool      `json:"reused"`
}

func (o EpisodeOutput) Result() map[string]any {
	return map[string]any{
		"stage":             string(types.StageEpisode),
		"target_episode_id": o.TargetEpisodeID.String(),
		"reused":            o.Reused,
	}
}

// DuplicateEpisode copies the source episode row and records the copy as the
// duplication's target. A target recorded by an earlier run is reused.
func DuplicateEpisode(ctx context.Context, deps Deps, in Input) (EpisodeOutput, error) {
	out := EpisodeOutput{}
	if err := deps.validate("duplicate_episode", deps.Episodes != nil); err != nil {
		return out, err
	}
	log := stageLogger(deps.Log, in, types.StageEpisode)

	if in.TargetEpisodeID != nil && *in.TargetEpisodeID != uuid.Nil {
		log.Info("Target episode already recorded; reusing it")
		out.TargetEpisodeID = *in.TargetEpisodeID
		out.Reused = true
		return out, nil
	}

	src, err := deps.Episodes.GetByID(dbctx.Context{Ctx: ctx}, in.SourceEpisodeID)
	if err != nil {
		return out, fmt.Errorf("duplicate_episode: load source episode: %w", err)
	}
	if src == nil {
		log.Error("Original episode not found")
		return out, &duplication.OriginalEpisodeNotFoundError{DuplicationID: in.DuplicationID, EpisodeID: in.SourceEpisodeID}
	}

	dup := src.Duplicate(deps.now())
	err = dbpkg.Transaction(ctx, deps.DB, deps.Settings.TxAttempts, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := deps.Episodes.Create(dbc, &dup); err != nil {
			return err
		}
		if err := deps.Duplications.SetTargetEpisode(dbc, in.DuplicationID, dup.ID); err != nil {
			return err
		}
		return deps.Duplications.AddProgress(dbc, in.DuplicationID, types.StageEpisode, 1)
	})
	if err != nil {
		return out, fmt.Errorf("duplicate_episode: %w", err)
	}

	out.TargetEpisodeID = dup.ID
	log.Info("Episode duplicated", "target_episode_id", dup.ID)
	return out, nil
}
