package steps

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/episode-duplication/internal/domain/content"
)

// parentMap maps an original parent id to the id of its duplicate.
type parentMap map[uuid.UUID]uuid.UUID

func (m parentMap) origIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for orig := range m {
		out = append(out, orig)
	}
	return out
}

// parentMapFrom builds orig -> new from duplicated rows. Rows without a
// provenance link are ignored.
func parentMapFrom[T content.Node](dups []T) parentMap {
	m := make(parentMap, len(dups))
	for _, d := range dups {
		orig := d.NodeOrigID()
		if orig == nil {
			continue
		}
		m[*orig] = d.NodeID()
	}
	return m
}

func nodeIDs[T content.Node](rows []T) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.NodeID())
	}
	return out
}

// remap builds the duplicate of every row whose parent has a mapping. Rows whose
// parent is missing from parents are returned in dropped.
func remap[T content.Duplicable[T]](rows []T, parents parentMap, now time.Time) (dups []T, dropped []T) {
	dups = make([]T, 0, len(rows))
	for _, row := range rows {
		newParent, ok := parents[row.NodeParentID()]
		if !ok {
			dropped = append(dropped, row)
			continue
		}
		dups = append(dups, row.DuplicateUnder(newParent, now))
	}
	return dups, dropped
}
