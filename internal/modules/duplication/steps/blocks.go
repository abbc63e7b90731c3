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

// DuplicateBlocks needs orig item -> new item, which is two hops from the target
// episode: duplicated parts are chunked first, then the duplicated items of each
// parts chunk, then the blocks of the original items.
func DuplicateBlocks(ctx context.Context, deps Deps, in Input) (LevelOutput, error) {
	out := LevelOutput{Stage: types.StageBlocks}
	if err := deps.validate("duplicate_blocks", deps.Parts != nil, deps.Items != nil, deps.Blocks != nil); err != nil {
		return out, err
	}
	log := stageLogger(deps.Log, in, types.StageBlocks)
	target, err := requireTarget(log, in, types.StageBlocks)
	if err != nil {
		return out, err
	}
	out.TargetEpisodeID = target
	dbc := dbctx.Context{Ctx: ctx}

	n, err := deps.Parts.CountDuplicates(dbc, []uuid.UUID{target})
	if err != nil {
		return out, fmt.Errorf("duplicate_blocks: count duplicated parts: %w", err)
	}
	if n == 0 {
		log.Info("No duplicated parts under target episode; skipping blocks")
		out.Skipped = true
		return out, nil
	}

	partsChunk := deps.Settings.OuterChunkSize()
	itemsChunk := deps.Settings.InnerChunkSize
	log.Info("Duplicating blocks",
		"parts", n,
		"parts_chunk_size", partsChunk,
		"items_chunk_size", itemsChunk,
		"blocks_chunk_size", deps.Settings.BlockChunkSize,
	)
	copier := newLevelCopier(deps, in, types.StageBlocks, deps.Blocks, deps.Settings.BlockChunkSize, log, &out)

	err = deps.Parts.FindDuplicatesInBatches(dbc, []uuid.UUID{target}, partsChunk, func(parts []types.Part) error {
		out.OuterChunks++
		partsCtx, span := tracer.Start(ctx, "duplication.outer_chunk", trace.WithAttributes(
			attribute.String("stage", string(types.StageBlocks)),
			attribute.Int("chunk", out.OuterChunks),
			attribute.Int("parents", len(parts)),
		))
		defer span.End()
		log.Debug("Processing parts chunk", "parts_chunk", out.OuterChunks, "parts", len(parts))

		return deps.Items.FindDuplicatesInBatches(dbctx.Context{Ctx: partsCtx}, nodeIDs(parts), itemsChunk, func(items []types.Item) error {
			out.MiddleChunks++
			log.Debug("Processing items chunk", "parts_chunk", out.OuterChunks, "items_chunk", out.MiddleChunks, "items", len(items))
			return copier.copyUnder(partsCtx, parentMapFrom(items))
		})
	})
	if err != nil {
		return out, err
	}

	log.Info("Blocks duplicated",
		"inserted", out.Inserted,
		"dropped", out.Dropped,
		"already_duplicated", out.AlreadyDuplicated,
		"parts_chunks", out.OuterChunks,
		"items_chunks", out.MiddleChunks,
		"blocks_chunks", out.InnerChunks,
	)
	return out, nil
}
