package signals

import (
	"fmt"
	"math"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

const (
	trendMin = 0.10
	trendMax = 0.40
)

// Trend compares the last-five average against the season baseline
type Trend struct{}

// NewTrend creates a trend evaluator
func NewTrend() *Trend {
	return &Trend{}
}

// Type returns the signal type
func (s *Trend) Type() models.SignalType {
	return models.SignalTrend
}

// Evaluate scores recent momentum, amplified when minutes move the same way
func (s *Trend) Evaluate(pc models.PropContext) models.SignalResult {
	if pc.SeasonAvg <= 0 || pc.RecentAvg <= 0 {
		return neutral(s.Type(), "Insufficient data for trend analysis")
	}

	trend := (pc.RecentAvg - pc.SeasonAvg) / pc.SeasonAvg
	absTrend := math.Abs(trend)

	var minutesTrend float64
	if pc.MinutesPerGame > 0 && pc.RecentMinutes > 0 {
		minutesTrend = (pc.RecentMinutes - pc.MinutesPerGame) / pc.MinutesPerGame
	}

	data := map[string]float64{
		"season_avg":        pc.SeasonAvg,
		"recent_avg":        pc.RecentAvg,
		"trend_pct":         models.Round(trend*100, 2),
		"minutes_trend_pct": models.Round(minutesTrend*100, 2),
	}

	if absTrend < trendMin {
		return models.NewSignalResult(s.Type(), 0, 0.2,
			fmt.Sprintf("Stable performance (L5: %.1f vs Season: %.1f)", pc.RecentAvg, pc.SeasonAvg)).WithData(data)
	}

	strength := (math.Min(absTrend, trendMax) - trendMin) / (trendMax - trendMin) * sign(trend > 0)
	switch {
	case minutesTrend*trend > 0:
		strength *= 1.1
	case math.Abs(minutesTrend) > 0.1 && minutesTrend*trend < 0:
		strength *= 0.85
	}

	confidence := 0.5 + math.Min(float64(pc.GamesPlayed)/20, 1)*0.15
	if absTrend > 0.30 {
		confidence -= 0.15
	}
	if math.Abs(minutesTrend) < 0.05 {
		confidence += 0.1
	}
	if pc.IsHighValue {
		confidence += 0.1
	}
	confidence -= variancePenalty(pc, pc.SeasonAvg)

	dir := "UP"
	if strength < 0 {
		dir = "DOWN"
	}
	evidence := fmt.Sprintf("Trending %s: L5 avg %.1f vs season %.1f (%+.1f%%)", dir, pc.RecentAvg, pc.SeasonAvg, trend*100)
	if math.Abs(minutesTrend) > 0.05 {
		evidence += fmt.Sprintf(" [Minutes: %+.0f%%]", minutesTrend*100)
	}
	return models.NewSignalResult(s.Type(), strength, confidence, evidence).WithData(data)
}
