package signals

import (
	"fmt"
	"math"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// Game total tiers
const (
	LeagueAvgTotal = 223.0
	highTotal      = 230.0
	veryHighTotal  = 238.0
	lowTotal       = 215.0
	veryLowTotal   = 208.0
)

var totalCorrelation = map[models.StatType]float64{
	models.StatPoints:    0.9,
	models.StatThrees:    0.8,
	models.StatAssists:   0.7,
	models.StatRebounds:  0.5,
	models.StatTurnovers: 0.4,
	models.StatSteals:    0.4,
	models.StatBlocks:    0.3,
	models.StatPRA:       0.8,
	models.StatPR:        0.7,
	models.StatPA:        0.8,
	models.StatRA:        0.6,
	models.StatFGM:       0.85,
	models.StatFTM:       0.6,
}

const defaultCorrelation = 0.5

// Correlation nudges scoring stats with the game total
type Correlation struct{}

// NewCorrelation creates a correlation evaluator
func NewCorrelation() *Correlation {
	return &Correlation{}
}

// Type returns the signal type
func (s *Correlation) Type() models.SignalType {
	return models.SignalCorrelation
}

// Evaluate maps the distance from the league average total to a nudge
func (s *Correlation) Evaluate(pc models.PropContext) models.SignalResult {
	if pc.GameTotal == nil || *pc.GameTotal <= 0 {
		return neutral(s.Type(), "No game total available")
	}
	total := *pc.GameTotal
	diff := total - LeagueAvgTotal
	corr, ok := totalCorrelation[pc.StatType]
	if !ok {
		corr = defaultCorrelation
	}

	strength := diff / 30.0 * corr
	if total >= veryHighTotal || total <= veryLowTotal {
		strength *= 1.2
	}

	confidence := 0.4
	switch absDiff := math.Abs(diff); {
	case absDiff >= 10:
		confidence += 0.15
	case absDiff >= 5:
		confidence += 0.08
	}
	confidence += corr * 0.1
	if pc.IsHighValue {
		confidence += 0.05
	}

	dir := "neutral"
	if strength > 0.02 {
		dir = "OVER"
	} else if strength < -0.02 {
		dir = "UNDER"
	}
	evidence := fmt.Sprintf("Game total %.1f (%s) → %s for %s", total, totalTier(total), dir, pc.StatType)
	return models.NewSignalResult(s.Type(), strength, confidence, evidence).WithData(map[string]float64{
		"game_total":       total,
		"total_diff":       models.Round(diff, 2),
		"stat_correlation": corr,
	})
}

func totalTier(total float64) string {
	switch {
	case total >= veryHighTotal:
		return "very high"
	case total >= highTotal:
		return "high"
	case total >= LeagueAvgTotal:
		return "above average"
	case total >= lowTotal:
		return "below average"
	case total >= veryLowTotal:
		return "low"
	}
	return "very low"
}
