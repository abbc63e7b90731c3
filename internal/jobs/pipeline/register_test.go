package pipeline

import (
	"sort"
	"testing"

	"github.com/yungbote/episode-duplication/internal/data/repos"
	"github.com/yungbote/episode-duplication/internal/data/repos/testutil"
	types "github.com/yungbote/episode-duplication/internal/domain"
	jobrt "github.com/yungbote/episode-duplication/internal/jobs/runtime"
	"github.com/yungbote/episode-duplication/internal/modules/duplication"
)

func TestRegisterDuplicationCoversEveryStage(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	reg := jobrt.NewRegistry()
	if err := RegisterDuplication(reg, db, log, repos.NewSet(db, log), duplication.DefaultSettings()); err != nil {
		t.Fatalf("RegisterDuplication: %v", err)
	}
	for _, stage := range types.DuplicationStages {
		if _, ok := reg.Get(stage.JobType()); !ok {
			t.Fatalf("no handler for %s", stage.JobType())
		}
	}
	got := reg.Types()
	sort.Strings(got)
	if len(got) != len(types.DuplicationStages) {
		t.Fatalf("registered types: got=%v", got)
	}

	if err := RegisterDuplication(reg, db, log, repos.NewSet(db, log), duplication.DefaultSettings()); err == nil {
		t.Fatalf("second registration: want error")
	}
}
