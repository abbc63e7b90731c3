package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/domain/duplication"
)

func TestRenderDuplicationListsStagesInChainOrder(t *testing.T) {
	d := duplication.New(uuid.New(), time.Now())
	d.Progress = datatypes.NewJSONType(types.DuplicationProgress{types.StageParts: 3, types.StageItems: 12})

	out := renderDuplication(d)
	for _, want := range []string{d.ID.String(), "pending", "episode", "parts", "items", "blocks", "12"} {
		if !strings.Contains(out, want) {
			t.Fatalf("renderDuplication: missing %q in\n%s", want, out)
		}
	}
	if strings.Index(out, "parts") > strings.Index(out, "blocks") {
		t.Fatalf("renderDuplication: stages out of order\n%s", out)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, nil)
	if !strings.Contains(out, "only") {
		t.Fatalf("renderTable: got=%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatalf("renderTable: want empty output without headers")
	}
}

func TestStartRequiresEpisodeFlag(t *testing.T) {
	cc := &commandContext{}
	cmd := newRootCommand(cc)
	cmd.SetArgs([]string{"start"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "episode") {
		t.Fatalf("start without --episode: want flag error got=%v", err)
	}
	if cc.app != nil {
		t.Fatalf("app initialized before flag validation")
	}
}
