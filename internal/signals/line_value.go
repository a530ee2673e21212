package signals

import (
	"fmt"
	"math"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// Line value thresholds
const (
	lineMinDeviation = 0.05
	lineMaxDeviation = 0.30
	lineRecentWeight = 0.6
	lineSeasonWeight = 0.4
)

// LineValue compares the market line to a blend of season and recent averages
type LineValue struct{}

// NewLineValue creates a line value evaluator
func NewLineValue() *LineValue {
	return &LineValue{}
}

// Type returns the signal type
func (s *LineValue) Type() models.SignalType {
	return models.SignalLineValue
}

// Evaluate scores the deviation between expected output and the line
func (s *LineValue) Evaluate(pc models.PropContext) models.SignalResult {
	var expected float64
	switch {
	case pc.RecentAvg > 0 && pc.SeasonAvg > 0:
		expected = pc.RecentAvg*lineRecentWeight + pc.SeasonAvg*lineSeasonWeight
	case pc.RecentAvg > 0:
		expected = pc.RecentAvg
	case pc.SeasonAvg > 0:
		expected = pc.SeasonAvg
	default:
		return neutral(s.Type(), "Insufficient data for line value analysis")
	}

	deviation := (expected - pc.Line) / expected
	absDev := math.Abs(deviation)
	data := map[string]float64{
		"line":          pc.Line,
		"expected":      models.Round(expected, 2),
		"season_avg":    pc.SeasonAvg,
		"recent_avg":    pc.RecentAvg,
		"deviation_pct": models.Round(absDev*100, 2),
	}

	if absDev < lineMinDeviation {
		return models.NewSignalResult(s.Type(), 0, 0.2,
			fmt.Sprintf("Line (%.1f) is close to expected (%.1f)", pc.Line, expected)).WithData(data)
	}

	magnitude := (math.Min(absDev, lineMaxDeviation) - lineMinDeviation) / (lineMaxDeviation - lineMinDeviation)
	strength := magnitude * sign(deviation > 0)

	confidence := 0.5 + math.Min(float64(pc.GamesPlayed)/20, 1)*0.2
	if pc.IsHighValue {
		confidence += 0.1
	}
	if absDev > 0.25 {
		confidence -= 0.15
	}
	if pc.RecentAvg > 0 {
		confidence += 0.1
	}
	confidence -= variancePenalty(pc, expected)

	dir := "OVER"
	if strength < 0 {
		dir = "UNDER"
	}
	evidence := fmt.Sprintf("Line %.1f vs expected %.1f (%.1f%% deviation → %s)", pc.Line, expected, absDev*100, dir)
	return models.NewSignalResult(s.Type(), strength, confidence, evidence).WithData(data)
}
