package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/episode-duplication/internal/data/repos/content"
	"github.com/yungbote/episode-duplication/internal/data/repos/duplication"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

type EpisodeRepo = content.EpisodeRepo
type PartRepo = content.PartRepo
type ItemRepo = content.ItemRepo
type BlockRepo = content.BlockRepo

type DuplicationRepo = duplication.DuplicationRepo

func NewEpisodeRepo(db *gorm.DB, baseLog *logger.Logger) EpisodeRepo {
	return content.NewEpisodeRepo(db, baseLog)
}

func NewPartRepo(db *gorm.DB, baseLog *logger.Logger) PartRepo {
	return content.NewPartRepo(db, baseLog)
}

func NewItemRepo(db *gorm.DB, baseLog *logger.Logger) ItemRepo {
	return content.NewItemRepo(db, baseLog)
}

func NewBlockRepo(db *gorm.DB, baseLog *logger.Logger) BlockRepo {
	return content.NewBlockRepo(db, baseLog)
}

func NewDuplicationRepo(db *gorm.DB, baseLog *logger.Logger) DuplicationRepo {
	return duplication.NewDuplicationRepo(db, baseLog)
}

// Set bundles every repository the duplication pipeline touches.
type Set struct {
	Episodes     EpisodeRepo
	Parts        PartRepo
	Items        ItemRepo
	Blocks       BlockRepo
	Duplications DuplicationRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Episodes:     NewEpisodeRepo(db, baseLog),
		Parts:        NewPartRepo(db, baseLog),
		Items:        NewItemRepo(db, baseLog),
		Blocks:       NewBlockRepo(db, baseLog),
		Duplications: NewDuplicationRepo(db, baseLog),
	}
}
