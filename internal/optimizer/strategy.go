package optimizer

import "github.com/valpere/adaptran/internal"

// Strategy bounds how hard the optimizer searches.
//
// RangeFactor is the half-width of the initial bracket as a fraction of the
// seed chunk size. Epsilon is the smallest best-score gain between two
// iterations that keeps the search going.
type Strategy struct {
	Name          string
	RangeFactor   float64
	Epsilon       float64
	MaxIterations int
}

var strategies = map[internal.UserPreference]Strategy{
	internal.PreferenceFast:     {Name: "fast", RangeFactor: 0.2, Epsilon: 0.05, MaxIterations: 1},
	internal.PreferenceBalanced: {Name: "balanced", RangeFactor: 0.5, Epsilon: 0.01, MaxIterations: 4},
	internal.PreferenceQuality:  {Name: "quality", RangeFactor: 0.8, Epsilon: 0.002, MaxIterations: 8},
}

// StrategyFor maps a user preference to a Strategy. Unknown preferences get
// the balanced strategy.
func StrategyFor(pref internal.UserPreference) Strategy {
	if s, ok := strategies[pref]; ok {
		return s
	}
	return strategies[internal.PreferenceBalanced]
}
