package duplication

import "fmt"

type Stage string

const (
	StageEpisode Stage = "episode"
	StageParts   Stage = "parts"
	StageItems   Stage = "items"
	StageBlocks  Stage = "blocks"
)

// Stages is the fixed execution order of a duplication chain.
var Stages = []Stage{StageEpisode, StageParts, StageItems, StageBlocks}

func (s Stage) Valid() bool {
	switch s {
	case StageEpisode, StageParts, StageItems, StageBlocks:
		return true
	default:
		return false
	}
}

// JobType is the handler name registered for the stage.
func (s Stage) JobType() string {
	return "duplicate_" + string(s)
}

func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown duplication stage %q", raw)
	}
	return s, nil
}
