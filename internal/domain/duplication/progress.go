package duplication

import "fmt"

// Progress holds the cumulative number of rows committed per stage.
type Progress map[Stage]int64

// Add returns a copy of p with n added to stage. Counters never decrease.
func (p Progress) Add(stage Stage, n int64) (Progress, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("progress: unknown stage %q", stage)
	}
	if n < 0 {
		return nil, fmt.Errorf("progress: negative increment %d for stage %s", n, stage)
	}
	out := make(Progress, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[stage] += n
	return out, nil
}

func (p Progress) Get(stage Stage) int64 {
	if p == nil {
		return 0
	}
	return p[stage]
}
