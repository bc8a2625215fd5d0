package usage

import "math"

// multipliers scale raw media duration into billable time per feature.
// Transcription and analysis are cheaper to run than isolation, so their
// minutes bill at a fraction of wall clock.
var multipliers = map[Feature]float64{
	FeatureIsolation:     1.0,
	FeatureTranscription: 0.5,
	FeatureAnalysis:      0.1,
}

// EstimateMinutes converts media duration in seconds into billable
// minutes for a feature. The result always rounds up: partial minutes
// bill as a full minute. Unknown features bill at full rate.
func EstimateMinutes(feature Feature, durationSeconds float64) int {
	if durationSeconds <= 0 {
		return 0
	}
	mult, ok := multipliers[feature]
	if !ok {
		mult = 1.0
	}
	return int(math.Ceil(durationSeconds / 60.0 * mult))
}
