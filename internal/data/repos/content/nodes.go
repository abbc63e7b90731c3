package content

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/episode-duplication/internal/domain/content"
	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

// NodeRepo reads and writes one level of the content tree. Every query is keyed by
// the parent column of the level, so the same implementation serves parts, items
// and blocks.
type NodeRepo[T domain.Duplicable[T]] interface {
	// FindByParentsInBatches walks the rows under parentIDs in primary key order,
	// handing fn at most batchSize rows at a time.
	FindByParentsInBatches(dbc dbctx.Context, parentIDs []uuid.UUID, batchSize int, fn func(batch []T) error) error
	// FindDuplicatesInBatches is FindByParentsInBatches restricted to rows with a
	// provenance link.
	FindDuplicatesInBatches(dbc dbctx.Context, parentIDs []uuid.UUID, batchSize int, fn func(batch []T) error) error
	// ExistingProvenance returns the orig_ids among origIDs that already have a
	// duplicate under one of parentIDs.
	ExistingProvenance(dbc dbctx.Context, parentIDs []uuid.UUID, origIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	InsertBatch(dbc dbctx.Context, rows []T) (int, error)
	CountByParents(dbc dbctx.Context, parentIDs []uuid.UUID) (int64, error)
	CountDuplicates(dbc dbctx.Context, parentIDs []uuid.UUID) (int64, error)
	ListByParents(dbc dbctx.Context, parentIDs []uuid.UUID) ([]T, error)
}

type nodeRepo[T domain.Duplicable[T]] struct {
	db  *gorm.DB
	log *logger.Logger
}

type PartRepo = NodeRepo[domain.Part]
type ItemRepo = NodeRepo[domain.Item]
type BlockRepo = NodeRepo[domain.Block]

func NewPartRepo(db *gorm.DB, baseLog *logger.Logger) PartRepo {
	return &nodeRepo[domain.Part]{db: db, log: baseLog.With("repo", "PartRepo")}
}

func NewItemRepo(db *gorm.DB, baseLog *logger.Logger) ItemRepo {
	return &nodeRepo[domain.Item]{db: db, log: baseLog.With("repo", "ItemRepo")}
}

func NewBlockRepo(db *gorm.DB, baseLog *logger.Logger) BlockRepo {
	return &nodeRepo[domain.Block]{db: db, log: baseLog.With("repo", "BlockRepo")}
}

func (r *nodeRepo[T]) parentColumn() string {
	var zero T
	return zero.ParentColumn()
}

func (r *nodeRepo[T]) FindByParentsInBatches(dbc dbctx.Context, parentIDs []uuid.UUID, batchSize int, fn func(batch []T) error) error {
	return r.findInBatches(dbc, parentIDs, batchSize, false, fn)
}

func (r *nodeRepo[T]) FindDuplicatesInBatches(dbc dbctx.Context, parentIDs []uuid.UUID, batchSize int, fn func(batch []T) error) error {
	return r.findInBatches(dbc, parentIDs, batchSize, true, fn)
}

func (r *nodeRepo[T]) findInBatches(dbc dbctx.Context, parentIDs []uuid.UUID, batchSize int, onlyDuplicates bool, fn func(batch []T) error) error {
	if len(parentIDs) == 0 {
		return nil
	}
	if batchSize <= 0 {
		return fmt.Errorf("find in batches: batch size must be positive, got %d", batchSize)
	}
	q := dbc.Conn(r.db).Model(new(T)).Where(r.parentColumn()+" IN ?", parentIDs)
	if onlyDuplicates {
		q = q.Where("orig_id IS NOT NULL")
	}
	var rows []T
	res := q.FindInBatches(&rows, batchSize, func(tx *gorm.DB, batch int) error {
		out := make([]T, len(rows))
		copy(out, rows)
		return fn(out)
	})
	return res.Error
}

func (r *nodeRepo[T]) ExistingProvenance(dbc dbctx.Context, parentIDs []uuid.UUID, origIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := map[uuid.UUID]bool{}
	if len(parentIDs) == 0 || len(origIDs) == 0 {
		return out, nil
	}
	var found []uuid.UUID
	err := dbc.Conn(r.db).
		Model(new(T)).
		Where(r.parentColumn()+" IN ?", parentIDs).
		Where("orig_id IN ?", origIDs).
		Pluck("orig_id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}

func (r *nodeRepo[T]) InsertBatch(dbc dbctx.Context, rows []T) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := dbc.Conn(r.db).Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *nodeRepo[T]) CountByParents(dbc dbctx.Context, parentIDs []uuid.UUID) (int64, error) {
	return r.count(dbc, parentIDs, false)
}

func (r *nodeRepo[T]) CountDuplicates(dbc dbctx.Context, parentIDs []uuid.UUID) (int64, error) {
	return r.count(dbc, parentIDs, true)
}

func (r *nodeRepo[T]) count(dbc dbctx.Context, parentIDs []uuid.UUID, onlyDuplicates bool) (int64, error) {
	if len(parentIDs) == 0 {
		return 0, nil
	}
	q := dbc.Conn(r.db).Model(new(T)).Where(r.parentColumn()+" IN ?", parentIDs)
	if onlyDuplicates {
		q = q.Where("orig_id IS NOT NULL")
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *nodeRepo[T]) ListByParents(dbc dbctx.Context, parentIDs []uuid.UUID) ([]T, error) {
	var out []T
	if len(parentIDs) == 0 {
		return out, nil
	}
	err := dbc.Conn(r.db).
		Where(r.parentColumn()+" IN ?", parentIDs).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
