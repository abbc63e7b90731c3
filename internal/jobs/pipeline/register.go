package pipeline

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/episode-duplication/internal/data/repos"
	"github.com/yungbote/episode-duplication/internal/jobs/pipeline/duplicate_blocks"
	"github.com/yungbote/episode-duplication/internal/jobs/pipeline/duplicate_episode"
	"github.com/yungbote/episode-duplication/internal/jobs/pipeline/duplicate_items"
	"github.com/yungbote/episode-duplication/internal/jobs/pipeline/duplicate_parts"
	jobrt "github.com/yungbote/episode-duplication/internal/jobs/runtime"
	"github.com/yungbote/episode-duplication/internal/modules/duplication"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

// RegisterDuplication registers one handler per duplication stage.
func RegisterDuplication(reg *jobrt.Registry, db *gorm.DB, log *logger.Logger, set repos.Set, settings duplication.Settings) error {
	handlers := []jobrt.Handler{
		duplicate_episode.New(db, log, set, settings),
		duplicate_parts.New(db, log, set, settings),
		duplicate_items.New(db, log, set, settings),
		duplicate_blocks.New(db, log, set, settings),
	}
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			return fmt.Errorf("register %s: %w", h.Type(), err)
		}
	}
	return nil
}
