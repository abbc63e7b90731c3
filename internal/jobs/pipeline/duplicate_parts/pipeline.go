package duplicate_parts

import (
	"fmt"

	jobrt "github.com/yungbote/episode-duplication/internal/jobs/runtime"
	"github.com/yungbote/episode-duplication/internal/modules/duplication/steps"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Duplication == nil {
		return fmt.Errorf("%s: missing duplication", p.Type())
	}
	d := jc.Duplication
	// steps scope the logger with the stage and duplication fields themselves
	log := p.log
	out, err := steps.DuplicateParts(jc.Ctx, steps.Deps{
		DB:           p.db,
		Log:          log,
		Episodes:     p.repos.Episodes,
		Parts:        p.repos.Parts,
		Items:        p.repos.Items,
		Blocks:       p.repos.Blocks,
		Duplications: p.repos.Duplications,
		Settings:     p.settings,
	}, steps.Input{
		DuplicationID:   d.ID,
		SourceEpisodeID: d.SourceEpisodeID,
		TargetEpisodeID: d.TargetEpisodeID,
	})
	if err != nil {
		return err
	}
	jc.Succeed(out.Result())
	return nil
}
