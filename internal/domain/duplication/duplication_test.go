package duplication

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestProgressAddIsAdditive(t *testing.T) {
	p := Progress{}
	var err error
	for _, n := range []int64{100, 100, 50} {
		p, err = p.Add(StageParts, n)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if got := p.Get(StageParts); got != 250 {
		t.Fatalf("Add: want=250 got=%d", got)
	}
	if got := p.Get(StageItems); got != 0 {
		t.Fatalf("Get untouched stage: want=0 got=%d", got)
	}
}

func TestProgressAddDoesNotMutateReceiver(t *testing.T) {
	p := Progress{StageEpisode: 1}
	next, err := p.Add(StageEpisode, 0)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	next[StageEpisode] = 9
	if p[StageEpisode] != 1 {
		t.Fatalf("Add: receiver mutated, got=%d", p[StageEpisode])
	}
}

func TestProgressAddRejectsUnknownStageAndNegative(t *testing.T) {
	if _, err := (Progress{}).Add(Stage("chapters"), 1); err == nil {
		t.Fatalf("Add unknown stage: expected error")
	}
	if _, err := (Progress{}).Add(StageBlocks, -1); err == nil {
		t.Fatalf("Add negative: expected error")
	}
}

func TestStatusRunnable(t *testing.T) {
	cases := map[Status]bool{
		StatusPending:    true,
		StatusInProgress: true,
		StatusCompleted:  false,
		StatusFailed:     false,
		Status("weird"):  false,
	}
	for s, want := range cases {
		if got := s.Runnable(); got != want {
			t.Fatalf("Runnable(%s): want=%v got=%v", s, want, got)
		}
	}
}

func TestNewStartsPendingWithEmptyProgress(t *testing.T) {
	d := New(uuid.New(), time.Now().UTC())
	if d.Status != StatusPending {
		t.Fatalf("New: status want=pending got=%s", d.Status)
	}
	if d.TargetEpisodeID != nil {
		t.Fatalf("New: target should be unset")
	}
	if len(d.ProgressMap()) != 0 {
		t.Fatalf("New: progress want empty got=%v", d.ProgressMap())
	}
}

func TestStageJobType(t *testing.T) {
	if got := StageBlocks.JobType(); got != "duplicate_blocks" {
		t.Fatalf("JobType: want=duplicate_blocks got=%s", got)
	}
	if _, err := ParseStage("items"); err != nil {
		t.Fatalf("ParseStage: %v", err)
	}
}
