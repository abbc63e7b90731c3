package guard

import "context"

// StaticGate is a FeatureGate fixed at construction, used when no shared flag
// store is configured.
type StaticGate bool

func (g StaticGate) Enabled(context.Context) (bool, error) { return bool(g), nil }
