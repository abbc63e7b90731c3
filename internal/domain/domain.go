package domain

import (
	"github.com/yungbote/episode-duplication/internal/domain/content"
	"github.com/yungbote/episode-duplication/internal/domain/duplication"
)

type Episode = content.Episode
type Part = content.Part
type Item = content.Item
type Block = content.Block

type Duplication = duplication.Duplication
type DuplicationStatus = duplication.Status
type DuplicationStage = duplication.Stage
type DuplicationProgress = duplication.Progress

const (
	DuplicationPending    = duplication.StatusPending
	DuplicationInProgress = duplication.StatusInProgress
	DuplicationCompleted  = duplication.StatusCompleted
	DuplicationFailed     = duplication.StatusFailed

	StageEpisode = duplication.StageEpisode
	StageParts   = duplication.StageParts
	StageItems   = duplication.StageItems
	StageBlocks  = duplication.StageBlocks
)

// DuplicationStages is the chain order: episode, parts, items, blocks.
var DuplicationStages = duplication.Stages

// Models lists every persisted model in migration order.
func Models() []interface{} {
	return []interface{}{
		&Episode{},
		&Part{},
		&Item{},
		&Block{},
		&Duplication{},
	}
}
