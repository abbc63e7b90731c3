package content

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

type EpisodeRepo interface {
	Create(dbc dbctx.Context, ep *types.Episode) error
	// GetByID returns (nil, nil) when the episode does not exist.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Episode, error)
}

type episodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEpisodeRepo(db *gorm.DB, baseLog *logger.Logger) EpisodeRepo {
	return &episodeRepo{
		db:  db,
		log: baseLog.With("repo", "EpisodeRepo"),
	}
}

func (r *episodeRepo) Create(dbc dbctx.Context, ep *types.Episode) error {
	if ep == nil {
		return nil
	}
	if ep.ID == uuid.Nil {
		ep.ID = uuid.New()
	}
	return dbc.Conn(r.db).Create(ep).Error
}

func (r *episodeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Episode, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var ep types.Episode
	err := dbc.Conn(r.db).Where("id = ?", id).First(&ep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ep, nil
}
