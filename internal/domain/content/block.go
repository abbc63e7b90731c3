package content

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/episode-duplication/internal/pkg/pointers"
)

type Block struct {
	ID     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID uuid.UUID  `gorm:"type:uuid;column:item_id;not null;index" json:"item_id"`
	OrigID *uuid.UUID `gorm:"type:uuid;column:orig_id;index" json:"orig_id,omitempty"`
	Name   *string    `gorm:"column:name" json:"name"`
	Field1 *string    `gorm:"column:field_1" json:"field_1"`
	Field2 *string    `gorm:"column:field_2" json:"field_2"`
	Field3 *string    `gorm:"column:field_3" json:"field_3"`
	// Media is a storage path, not the file itself; a copy points at the same file.
	Media     *string   `gorm:"type:text;column:media" json:"media"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Block) TableName() string    { return "block" }
func (Block) ParentColumn() string { return "item_id" }

func (b Block) NodeID() uuid.UUID       { return b.ID }
func (b Block) NodeParentID() uuid.UUID { return b.ItemID }
func (b Block) NodeOrigID() *uuid.UUID  { return b.OrigID }

func (b Block) DuplicateUnder(itemID uuid.UUID, now time.Time) Block {
	return Block{
		ID:        uuid.New(),
		ItemID:    itemID,
		OrigID:    origOf(b.ID),
		Name:      pointers.Clone(b.Name),
		Field1:    pointers.Clone(b.Field1),
		Field2:    pointers.Clone(b.Field2),
		Field3:    pointers.Clone(b.Field3),
		Media:     pointers.Clone(b.Media),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
