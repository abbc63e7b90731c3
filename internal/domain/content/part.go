package content

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/episode-duplication/internal/pkg/pointers"
)

type Part struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EpisodeID uuid.UUID  `gorm:"type:uuid;column:episode_id;not null;index" json:"episode_id"`
	OrigID    *uuid.UUID `gorm:"type:uuid;column:orig_id;index" json:"orig_id,omitempty"`
	Name      *string    `gorm:"column:name" json:"name"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (Part) TableName() string    { return "part" }
func (Part) ParentColumn() string { return "episode_id" }

func (p Part) NodeID() uuid.UUID       { return p.ID }
func (p Part) NodeParentID() uuid.UUID { return p.EpisodeID }
func (p Part) NodeOrigID() *uuid.UUID  { return p.OrigID }

func (p Part) DuplicateUnder(episodeID uuid.UUID, now time.Time) Part {
	return Part{
		ID:        uuid.New(),
		EpisodeID: episodeID,
		OrigID:    origOf(p.ID),
		Name:      pointers.Clone(p.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
