package content

import (
	"time"

	"github.com/google/uuid"
)

type Episode struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrigID    *uuid.UUID `gorm:"type:uuid;column:orig_id;index" json:"orig_id,omitempty"`
	Title     string     `gorm:"column:title;not null" json:"title"`
	CreatedAt time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (Episode) TableName() string { return "episode" }

// Duplicate copies the episode payload into a new row whose orig_id is e.ID.
func (e Episode) Duplicate(now time.Time) Episode {
	return Episode{
		ID:        uuid.New(),
		OrigID:    origOf(e.ID),
		Title:     e.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
