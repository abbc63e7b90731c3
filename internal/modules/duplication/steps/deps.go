package steps

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/episode-duplication/internal/data/repos"
	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/modules/duplication"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

// Deps is shared by every duplication step.
type Deps struct {
	DB           *gorm.DB
	Log          *logger.Logger
	Episodes     repos.EpisodeRepo
	Parts        repos.PartRepo
	Items        repos.ItemRepo
	Blocks       repos.BlockRepo
	Duplications repos.DuplicationRepo
	Settings     duplication.Settings
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

type Input struct {
	DuplicationID   uuid.UUID
	SourceEpisodeID uuid.UUID
	// TargetEpisodeID is the value recorded on the duplication when the stage started.
	TargetEpisodeID *uuid.UUID
}

type LevelOutput struct {
	Stage             types.DuplicationStage `json:"stage"`
	TargetEpisodeID   uuid.UUID              `json:"target_episode_id"`
	Inserted          int                    `json:"inserted"`
	Dropped           int                    `json:"dropped"`
	AlreadyDuplicated int                    `json:"already_duplicated"`
	OuterChunks       int                    `json:"outer_chunks"`
	MiddleChunks      int                    `json:"middle_chunks,omitempty"`
	InnerChunks       int                    `json:"inner_chunks"`
	Skipped           bool                   `json:"skipped,omitempty"`
}

func (o LevelOutput) Result() map[string]any {
	return map[string]any{
		"stage":              string(o.Stage),
		"target_episode_id":  o.TargetEpisodeID.String(),
		"inserted":           o.Inserted,
		"dropped":            o.Dropped,
		"already_duplicated": o.AlreadyDuplicated,
		"outer_chunks":       o.OuterChunks,
		"middle_chunks":      o.MiddleChunks,
		"inner_chunks":       o.InnerChunks,
		"skipped":            o.Skipped,
	}
}

func (d Deps) validate(name string, needs ...bool) error {
	if d.DB == nil || d.Log == nil || d.Duplications == nil {
		return fmt.Errorf("%s: missing deps", name)
	}
	for _, ok := range needs {
		if !ok {
			return fmt.Errorf("%s: missing deps", name)
		}
	}
	if err := d.Settings.Validate(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func stageLogger(base *logger.Logger, in Input, stage types.DuplicationStage) *logger.Logger {
	log := base.With(
		"job", stage.JobType(),
		"stage", string(stage),
		"duplication_id", in.DuplicationID,
		"source_episode_id", in.SourceEpisodeID,
	)
	if in.TargetEpisodeID != nil {
		log = log.With("target_episode_id", *in.TargetEpisodeID)
	}
	return log
}

// requireTarget fails before any query when the episode stage has not recorded
// a target episode.
func requireTarget(log *logger.Logger, in Input, stage types.DuplicationStage) (uuid.UUID, error) {
	if in.TargetEpisodeID == nil || *in.TargetEpisodeID == uuid.Nil {
		log.Error("New episode id not set on duplication; chain ran out of order")
		return uuid.Nil, &duplication.NewEpisodeIDMissingError{DuplicationID: in.DuplicationID, Stage: stage}
	}
	return *in.TargetEpisodeID, nil
}
