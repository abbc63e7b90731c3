package duplicate_blocks

import (
	"gorm.io/gorm"

	"github.com/yungbote/episode-duplication/internal/data/repos"
	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/modules/duplication"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

type Pipeline struct {
	db       *gorm.DB
	log      *logger.Logger
	repos    repos.Set
	settings duplication.Settings
}

func New(db *gorm.DB, baseLog *logger.Logger, set repos.Set, settings duplication.Settings) *Pipeline {
	return &Pipeline{
		db:       db,
		log:      baseLog.With("component", "BlocksStage"),
		repos:    set,
		settings: settings,
	}
}

func (p *Pipeline) Type() string { return types.StageBlocks.JobType() }
