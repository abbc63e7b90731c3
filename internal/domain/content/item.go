package content

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/episode-duplication/internal/pkg/pointers"
)

type Item struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PartID    uuid.UUID  `gorm:"type:uuid;column:part_id;not null;index" json:"part_id"`
	OrigID    *uuid.UUID `gorm:"type:uuid;column:orig_id;index" json:"orig_id,omitempty"`
	Name      *string    `gorm:"column:name" json:"name"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (Item) TableName() string    { return "item" }
func (Item) ParentColumn() string { return "part_id" }

func (i Item) NodeID() uuid.UUID       { return i.ID }
func (i Item) NodeParentID() uuid.UUID { return i.PartID }
func (i Item) NodeOrigID() *uuid.UUID  { return i.OrigID }

func (i Item) DuplicateUnder(partID uuid.UUID, now time.Time) Item {
	return Item{
		ID:        uuid.New(),
		PartID:    partID,
		OrigID:    origOf(i.ID),
		Name:      pointers.Clone(i.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
