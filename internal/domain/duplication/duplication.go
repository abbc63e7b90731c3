package duplication

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Duplication tracks one run of the episode duplication chain.
type Duplication struct {
	ID              uuid.UUID                    `gorm:"type:uuid;primaryKey" json:"id"`
	SourceEpisodeID uuid.UUID                    `gorm:"type:uuid;column:source_episode_id;not null;index" json:"source_episode_id"`
	TargetEpisodeID *uuid.UUID                   `gorm:"type:uuid;column:target_episode_id;index" json:"target_episode_id,omitempty"`
	Status          Status                       `gorm:"column:status;not null;index" json:"status"`
	Progress        datatypes.JSONType[Progress] `gorm:"column:progress" json:"progress"`
	CreatedAt       time.Time                    `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time                    `gorm:"not null" json:"updated_at"`
}

func (Duplication) TableName() string { return "duplication" }

// New returns a pending record for sourceEpisodeID with empty progress.
func New(sourceEpisodeID uuid.UUID, now time.Time) *Duplication {
	return &Duplication{
		ID:              uuid.New(),
		SourceEpisodeID: sourceEpisodeID,
		Status:          StatusPending,
		Progress:        datatypes.NewJSONType(Progress{}),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (d *Duplication) ProgressMap() Progress {
	if d == nil {
		return Progress{}
	}
	p := d.Progress.Data()
	if p == nil {
		return Progress{}
	}
	return p
}
