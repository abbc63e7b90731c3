package steps

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	dbpkg "github.com/yungbote/episode-duplication/internal/data/db"
	contentrepo "github.com/yungbote/episode-duplication/internal/data/repos/content"
	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/domain/content"
	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/episode-duplication/internal/modules/duplication/steps")

// levelCopier copies the children of already-mapped parents for one level.
// Chunks are processed strictly in sequence; each chunk commits on its own.
type levelCopier[T content.Duplicable[T]] struct {
	deps      Deps
	in        Input
	stage     types.DuplicationStage
	rows      contentrepo.NodeRepo[T]
	chunkSize int
	log       *logger.Logger
	out       *LevelOutput
}

func newLevelCopier[T content.Duplicable[T]](deps Deps, in Input, stage types.DuplicationStage, rows contentrepo.NodeRepo[T], chunkSize int, log *logger.Logger, out *LevelOutput) *levelCopier[T] {
	return &levelCopier[T]{
		deps:      deps,
		in:        in,
		stage:     stage,
		rows:      rows,
		chunkSize: chunkSize,
		log:       log,
		out:       out,
	}
}

// copyUnder duplicates every row whose parent is a key of parents.
func (c *levelCopier[T]) copyUnder(ctx context.Context, parents parentMap) error {
	if len(parents) == 0 {
		return nil
	}
	return c.rows.FindByParentsInBatches(dbctx.Context{Ctx: ctx}, parents.origIDs(), c.chunkSize, func(batch []T) error {
		c.out.InnerChunks++
		return c.commitChunk(ctx, batch, parents, c.out.InnerChunks)
	})
}

func (c *levelCopier[T]) commitChunk(ctx context.Context, batch []T, parents parentMap, chunkNo int) error {
	ctx, span := tracer.Start(ctx, "duplication.chunk", trace.WithAttributes(
		attribute.String("duplication_id", c.in.DuplicationID.String()),
		attribute.String("stage", string(c.stage)),
		attribute.Int("chunk", chunkNo),
		attribute.Int("rows", len(batch)),
	))
	defer span.End()

	c.log.Debug("Processing chunk", "chunk", chunkNo, "rows", len(batch))

	dups, dropped := remap(batch, parents, c.deps.now())
	for _, row := range dropped {
		c.log.Warn("No duplicated parent for row; dropping it",
			"chunk", chunkNo,
			"row_id", row.NodeID(),
			"orig_parent_id", row.NodeParentID(),
		)
		span.AddEvent("duplication.row_dropped", trace.WithAttributes(
			attribute.String("row_id", row.NodeID().String()),
			attribute.String("orig_parent_id", row.NodeParentID().String()),
		))
	}
	c.out.Dropped += len(dropped)

	dups, already, err := c.withoutExisting(ctx, dups)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: check existing duplicates in chunk %d: %w", c.stage, chunkNo, err)
	}
	if already > 0 {
		c.log.Info("Skipping rows already duplicated", "chunk", chunkNo, "already_duplicated", already)
		c.out.AlreadyDuplicated += already
	}
	if len(dups) == 0 {
		return nil
	}

	inserted := 0
	err = dbpkg.Transaction(ctx, c.deps.DB, c.deps.Settings.TxAttempts, func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		n, err := c.rows.InsertBatch(dbc, dups)
		if err != nil {
			return err
		}
		if err := c.deps.Duplications.AddProgress(dbc, c.in.DuplicationID, c.stage, int64(n)); err != nil {
			return err
		}
		inserted = n
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: insert chunk %d: %w", c.stage, chunkNo, err)
	}
	c.out.Inserted += inserted
	span.SetAttributes(attribute.Int("inserted", inserted))
	c.log.Debug("Chunk processed", "chunk", chunkNo, "inserted", inserted, "dropped", len(dropped))
	return nil
}

// withoutExisting removes duplicates whose source row already has a copy under
// the same new parent, so a re-run stage never copies a row twice.
func (c *levelCopier[T]) withoutExisting(ctx context.Context, dups []T) ([]T, int, error) {
	if len(dups) == 0 {
		return dups, 0, nil
	}
	parentSet := map[uuid.UUID]struct{}{}
	origIDs := make([]uuid.UUID, 0, len(dups))
	for _, d := range dups {
		parentSet[d.NodeParentID()] = struct{}{}
		origIDs = append(origIDs, *d.NodeOrigID())
	}
	parentIDs := make([]uuid.UUID, 0, len(parentSet))
	for id := range parentSet {
		parentIDs = append(parentIDs, id)
	}

	existing, err := c.rows.ExistingProvenance(dbctx.Context{Ctx: ctx}, parentIDs, origIDs)
	if err != nil {
		return nil, 0, err
	}
	if len(existing) == 0 {
		return dups, 0, nil
	}
	kept := dups[:0]
	for _, d := range dups {
		if existing[*d.NodeOrigID()] {
			continue
		}
		kept = append(kept, d)
	}
	return kept, len(dups) - len(kept), nil
}
