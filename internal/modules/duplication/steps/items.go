package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
)

// DuplicateItems walks the duplicated parts of the target episode in outer
// chunks, rebuilds orig part -> new part from their provenance, and copies the
// items of the original parts under the new ones.
func DuplicateItems(ctx context.Context, deps Deps, in Input) (LevelOutput, error) {
	out := LevelOutput{Stage: types.StageItems}
	if err := deps.validate("duplicate_items", deps.Parts != nil, deps.Items != nil); err != nil {
		return out, err
	}
	log := stageLogger(deps.Log, in, types.StageItems)
	target, err := requireTarget(log, in, types.StageItems)
	if err != nil {
		return out, err
	}
	out.TargetEpisodeID = target
	dbc := dbctx.Context{Ctx: ctx}

	n, err := deps.Parts.CountDuplicates(dbc, []uuid.UUID{target})
	if err != nil {
		return out, fmt.Errorf("duplicate_items: count duplicated parts: %w", err)
	}
	if n == 0 {
		log.Info("No duplicated parts under target episode; skipping items")
		out.Skipped = true
		return out, nil
	}

	outerSize := deps.Settings.OuterChunkSize()
	log.Info("Duplicating items", "parts", n, "parts_chunk_size", outerSize, "items_chunk_size", deps.Settings.InnerChunkSize)
	copier := newLevelCopier(deps, in, types.StageItems, deps.Items, deps.Settings.InnerChunkSize, log, &out)

	err = deps.Parts.FindDuplicatesInBatches(dbc, []uuid.UUID{target}, outerSize, func(parts []types.Part) error {
		out.OuterChunks++
		chunkCtx, span := tracer.Start(ctx, "duplication.outer_chunk", trace.WithAttributes(
			attribute.String("stage", string(types.StageItems)),
			attribute.Int("chunk", out.OuterChunks),
			attribute.Int("parents", len(parts)),
		))
		defer span.End()
		log.Debug("Processing parts chunk", "parts_chunk", out.OuterChunks, "parts", len(parts))
		return copier.copyUnder(chunkCtx, parentMapFrom(parts))
	})
	if err != nil {
		return out, err
	}

	log.Info("Items duplicated",
		"inserted", out.Inserted,
		"dropped", out.Dropped,
		"already_duplicated", out.AlreadyDuplicated,
		"parts_chunks", out.OuterChunks,
		"items_chunks", out.InnerChunks,
	)
	return out, nil
}
