package content

import (
	"time"

	"github.com/google/uuid"
)

// Node is a row in one level of the content tree below Episode.
type Node interface {
	TableName() string
	// ParentColumn names the foreign key column that points at the containing level.
	ParentColumn() string
	NodeID() uuid.UUID
	NodeParentID() uuid.UUID
	NodeOrigID() *uuid.UUID
}

// Duplicable is a Node that can produce its own copy under a new parent.
// The copy gets a fresh id, the given parent, orig_id pointing at the receiver,
// and every payload field unchanged.
type Duplicable[T any] interface {
	Node
	DuplicateUnder(parentID uuid.UUID, now time.Time) T
}

// IsDuplicate reports whether n was produced by a duplication.
func IsDuplicate(n Node) bool {
	return n.NodeOrigID() != nil
}

func origOf(id uuid.UUID) *uuid.UUID {
	v := id
	return &v
}

