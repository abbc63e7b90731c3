package steps

import (
	"context"

	types "github.com/yungbote/episode-duplication/internal/domain"
)

// DuplicateParts copies the parts of the source episode under the target
// episode. The only parent mapping is source episode -> target episode.
func DuplicateParts(ctx context.Context, deps Deps, in Input) (LevelOutput, error) {
	out := LevelOutput{Stage: types.StageParts}
	if err := deps.validate("duplicate_parts", deps.Parts != nil); err != nil {
		return out, err
	}
	log := stageLogger(deps.Log, in, types.StageParts)
	target, err := requireTarget(log, in, types.StageParts)
	if err != nil {
		return out, err
	}
	out.TargetEpisodeID = target

	log.Info("Duplicating parts", "chunk_size", deps.Settings.InnerChunkSize)
	copier := newLevelCopier(deps, in, types.StageParts, deps.Parts, deps.Settings.InnerChunkSize, log, &out)
	out.OuterChunks = 1
	if err := copier.copyUnder(ctx, parentMap{in.SourceEpisodeID: target}); err != nil {
		return out, err
	}
	if out.InnerChunks == 0 {
		log.Info("Source episode has no parts; nothing to duplicate")
	}

	log.Info("Parts duplicated",
		"inserted", out.Inserted,
		"dropped", out.Dropped,
		"already_duplicated", out.AlreadyDuplicated,
		"chunks", out.InnerChunks,
	)
	return out, nil
}
