package duplication

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

type DuplicationRepo interface {
	Create(dbc dbctx.Context, d *types.Duplication) error
	// GetByID returns (nil, nil) when the record does not exist.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Duplication, error)
	ListBySourceEpisode(dbc dbctx.Context, sourceEpisodeID uuid.UUID) ([]*types.Duplication, error)
	// TransitionStatus moves the record from one status to another only if it is
	// still in from. It reports whether the row changed.
	TransitionStatus(dbc dbctx.Context, id uuid.UUID, from, to types.DuplicationStatus) (bool, error)
	// MarkFailed sets status=failed unless the record already completed.
	MarkFailed(dbc dbctx.Context, id uuid.UUID) error
	SetTargetEpisode(dbc dbctx.Context, id uuid.UUID, targetEpisodeID uuid.UUID) error
	// AddProgress adds n to progress[stage] under a row lock.
	AddProgress(dbc dbctx.Context, id uuid.UUID, stage types.DuplicationStage, n int64) error
}

type duplicationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDuplicationRepo(db *gorm.DB, baseLog *logger.Logger) DuplicationRepo {
	return &duplicationRepo{
		db:  db,
		log: baseLog.With("repo", "DuplicationRepo"),
	}
}

func (r *duplicationRepo) Create(dbc dbctx.Context, d *types.Duplication) error {
	if d == nil {
		return nil
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = types.DuplicationPending
	}
	if d.Progress.Data() == nil {
		d.Progress = datatypes.NewJSONType(types.DuplicationProgress{})
	}
	return dbc.Conn(r.db).Create(d).Error
}

func (r *duplicationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Duplication, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var d types.Duplication
	err := dbc.Conn(r.db).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *duplicationRepo) ListBySourceEpisode(dbc dbctx.Context, sourceEpisodeID uuid.UUID) ([]*types.Duplication, error) {
	var out []*types.Duplication
	if sourceEpisodeID == uuid.Nil {
		return out, nil
	}
	err := dbc.Conn(r.db).
		Where("source_episode_id = ?", sourceEpisodeID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *duplicationRepo) TransitionStatus(dbc dbctx.Context, id uuid.UUID, from, to types.DuplicationStatus) (bool, error) {
	res := dbc.Conn(r.db).
		Model(&types.Duplication{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *duplicationRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.Conn(r.db).
		Model(&types.Duplication{}).
		Where("id = ? AND status <> ?", id, types.DuplicationCompleted).
		Updates(map[string]interface{}{
			"status":     types.DuplicationFailed,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *duplicationRepo) SetTargetEpisode(dbc dbctx.Context, id uuid.UUID, targetEpisodeID uuid.UUID) error {
	res := dbc.Conn(r.db).
		Model(&types.Duplication{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"target_episode_id": targetEpisodeID,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set target episode: duplication %s not found", id)
	}
	return nil
}

func (r *duplicationRepo) AddProgress(dbc dbctx.Context, id uuid.UUID, stage types.DuplicationStage, n int64) error {
	apply := func(tx *gorm.DB) error {
		var d types.Duplication
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&d).Error
		if err != nil {
			return fmt.Errorf("add progress: load duplication %s: %w", id, err)
		}
		next, err := d.ProgressMap().Add(stage, n)
		if err != nil {
			return err
		}
		return tx.Model(&types.Duplication{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"progress":   datatypes.NewJSONType(next),
				"updated_at": time.Now().UTC(),
			}).Error
	}
	if dbc.Tx != nil {
		return apply(dbc.Conn(r.db))
	}
	return dbc.Conn(r.db).Transaction(apply)
}
