package scorer

// Level is a coarse display bucket for a confidence value.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

const (
	highCutoff   = 0.7
	mediumCutoff = 0.4
)

// LevelOf buckets a confidence value for display.
func LevelOf(confidence float64) Level {
	switch {
	case confidence >= highCutoff:
		return LevelHigh
	case confidence >= mediumCutoff:
		return LevelMedium
	default:
		return LevelLow
	}
}
