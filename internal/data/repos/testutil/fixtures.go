package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/pkg/pointers"
)

// TreeShape describes a uniform source tree.
type TreeShape struct {
	Parts         int
	ItemsPerPart  int
	BlocksPerItem int
}

type SeededTree struct {
	Episode *types.Episode
	Parts   []types.Part
	Items   []types.Item
	Blocks  []types.Block
}

func SeedEpisode(tb testing.TB, ctx context.Context, db *gorm.DB, title string) *types.Episode {
	tb.Helper()
	now := time.Now().UTC()
	ep := &types.Episode{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(ep).Error; err != nil {
		tb.Fatalf("seed episode: %v", err)
	}
	return ep
}

// SeedTree creates an original (never duplicated) episode tree of the given shape.
func SeedTree(tb testing.TB, ctx context.Context, db *gorm.DB, shape TreeShape) *SeededTree {
	tb.Helper()
	now := time.Now().UTC()
	out := &SeededTree{Episode: SeedEpisode(tb, ctx, db, "source episode")}

	for p := 0; p < shape.Parts; p++ {
		out.Parts = append(out.Parts, types.Part{
			ID:        uuid.New(),
			EpisodeID: out.Episode.ID,
			Name:      pointers.String(fmt.Sprintf("part %d", p)),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	for _, part := range out.Parts {
		for i := 0; i < shape.ItemsPerPart; i++ {
			out.Items = append(out.Items, types.Item{
				ID:        uuid.New(),
				PartID:    part.ID,
				Name:      pointers.String(fmt.Sprintf("%s / item %d", *part.Name, i)),
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}
	for _, item := range out.Items {
		for b := 0; b < shape.BlocksPerItem; b++ {
			out.Blocks = append(out.Blocks, types.Block{
				ID:        uuid.New(),
				ItemID:    item.ID,
				Name:      pointers.String(fmt.Sprintf("%s / block %d", *item.Name, b)),
				Field1:    pointers.String("f1"),
				Field2:    pointers.String("f2"),
				Field3:    pointers.String("f3"),
				Media:     pointers.String("media/block.png"),
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}

	createInBatches(tb, ctx, db, out.Parts)
	createInBatches(tb, ctx, db, out.Items)
	createInBatches(tb, ctx, db, out.Blocks)
	return out
}

func createInBatches[T any](tb testing.TB, ctx context.Context, db *gorm.DB, rows []T) {
	tb.Helper()
	if len(rows) == 0 {
		return
	}
	if err := db.WithContext(ctx).CreateInBatches(&rows, 200).Error; err != nil {
		tb.Fatalf("seed %T: %v", rows, err)
	}
}

func SeedDuplication(tb testing.TB, ctx context.Context, db *gorm.DB, sourceEpisodeID uuid.UUID, status types.DuplicationStatus) *types.Duplication {
	tb.Helper()
	d := &types.Duplication{
		ID:              uuid.New(),
		SourceEpisodeID: sourceEpisodeID,
		Status:          status,
		Progress:        datatypes.NewJSONType(types.DuplicationProgress{}),
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed duplication: %v", err)
	}
	return d
}

func ReloadDuplication(tb testing.TB, ctx context.Context, db *gorm.DB, id uuid.UUID) *types.Duplication {
	tb.Helper()
	var d types.Duplication
	if err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		tb.Fatalf("reload duplication: %v", err)
	}
	return &d
}
