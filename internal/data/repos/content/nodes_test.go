package content

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/episode-duplication/internal/data/repos/testutil"
	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
)

func TestNodeRepoBatchesAndProvenance(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	tree := testutil.SeedTree(t, ctx, db, testutil.TreeShape{Parts: 25})

	repo := NewPartRepo(db, testutil.Logger(t))

	var batches []int
	seen := map[uuid.UUID]bool{}
	err := repo.FindByParentsInBatches(dbc, []uuid.UUID{tree.Episode.ID}, 10, func(batch []types.Part) error {
		batches = append(batches, len(batch))
		for _, p := range batch {
			if seen[p.ID] {
				t.Fatalf("FindByParentsInBatches: part %s yielded twice", p.ID)
			}
			seen[p.ID] = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("FindByParentsInBatches: %v", err)
	}
	if len(batches) != 3 || batches[0] != 10 || batches[1] != 10 || batches[2] != 5 {
		t.Fatalf("FindByParentsInBatches: batches want=[10 10 5] got=%v", batches)
	}

	target := testutil.SeedEpisode(t, ctx, db, "target")
	now := time.Now().UTC()
	dups := []types.Part{
		tree.Parts[0].DuplicateUnder(target.ID, now),
		tree.Parts[1].DuplicateUnder(target.ID, now),
	}
	n, err := repo.InsertBatch(dbc, dups)
	if err != nil || n != 2 {
		t.Fatalf("InsertBatch: n=%d err=%v", n, err)
	}

	existing, err := repo.ExistingProvenance(dbc, []uuid.UUID{target.ID}, []uuid.UUID{tree.Parts[0].ID, tree.Parts[1].ID, tree.Parts[2].ID})
	if err != nil {
		t.Fatalf("ExistingProvenance: %v", err)
	}
	if !existing[tree.Parts[0].ID] || !existing[tree.Parts[1].ID] || existing[tree.Parts[2].ID] {
		t.Fatalf("ExistingProvenance: got=%v", existing)
	}

	var dupCount int
	err = repo.FindDuplicatesInBatches(dbc, []uuid.UUID{target.ID, tree.Episode.ID}, 100, func(batch []types.Part) error {
		for _, p := range batch {
			if p.OrigID == nil {
				t.Fatalf("FindDuplicatesInBatches: yielded original part %s", p.ID)
			}
		}
		dupCount += len(batch)
		return nil
	})
	if err != nil || dupCount != 2 {
		t.Fatalf("FindDuplicatesInBatches: count=%d err=%v", dupCount, err)
	}

	if c, err := repo.CountDuplicates(dbc, []uuid.UUID{target.ID}); err != nil || c != 2 {
		t.Fatalf("CountDuplicates: c=%d err=%v", c, err)
	}
	if c, err := repo.CountByParents(dbc, []uuid.UUID{tree.Episode.ID}); err != nil || c != 25 {
		t.Fatalf("CountByParents: c=%d err=%v", c, err)
	}
}

func TestNodeRepoEmptyParentsIsNoop(t *testing.T) {
	db := testutil.DB(t)
	repo := NewBlockRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	called := false
	err := repo.FindByParentsInBatches(dbc, nil, 10, func([]types.Block) error {
		called = true
		return nil
	})
	if err != nil || called {
		t.Fatalf("FindByParentsInBatches(nil): called=%v err=%v", called, err)
	}
	if err := repo.FindByParentsInBatches(dbc, []uuid.UUID{uuid.New()}, 0, func([]types.Block) error { return nil }); err == nil {
		t.Fatalf("FindByParentsInBatches: expected error for zero batch size")
	}
}

func TestEpisodeRepoGetByIDInTx(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewEpisodeRepo(db, testutil.Logger(t))

	ep := &types.Episode{Title: "Pilot", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := repo.Create(dbctx.Context{Ctx: ctx, Tx: tx}, ep); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByID(dbctx.Context{Ctx: ctx, Tx: tx}, ep.ID)
	if err != nil || got == nil || got.Title != "Pilot" {
		t.Fatalf("GetByID: got=%+v err=%v", got, err)
	}
	missing, err := repo.GetByID(dbctx.Context{Ctx: ctx, Tx: tx}, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID missing: got=%+v err=%v", missing, err)
	}
}
