package signals

import (
	"fmt"
	"math"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// Usage and minutes tiers
const (
	usageLow      = 15.0
	usageHigh     = 25.0
	usageElite    = 30.0
	minutesStart  = 28.0
	minutesHigh   = 32.0
	avgRebFreq    = 0.12
	smallSample   = 5
	smallSampleCp = 0.30
)

// Usage weighs a player's opportunity (usage rate and minutes) against the line
type Usage struct{}

// NewUsage creates a usage evaluator
func NewUsage() *Usage {
	return &Usage{}
}

// Type returns the signal type
func (s *Usage) Type() models.SignalType {
	return models.SignalUsage
}

// Evaluate scores opportunity. Rebounds use tracking frequency instead of usage.
func (s *Usage) Evaluate(pc models.PropContext) models.SignalResult {
	r := s.evaluate(pc)
	if pc.GamesPlayed < smallSample && r.Confidence > smallSampleCp {
		r.Confidence = smallSampleCp
	}
	return r
}

func (s *Usage) evaluate(pc models.PropContext) models.SignalResult {
	if pc.StatType == models.StatRebounds {
		return s.rebounds(pc)
	}
	if pc.UsagePct <= 0 || pc.MinutesPerGame <= 0 {
		return neutral(s.Type(), "Insufficient usage/minutes data")
	}

	us := usageScore(pc.UsagePct)
	ms := minutesScore(pc.MinutesPerGame)
	opportunity := us*0.6 + ms*0.4
	strength := lineVsOpportunity(pc, opportunity)

	confidence := 0.4 + us*0.2 + ms*0.15
	switch {
	case pc.GamesPlayed >= 20:
		confidence += 0.15
	case pc.GamesPlayed >= 10:
		confidence += 0.08
	}
	if pc.IsHighValue {
		confidence += 0.1
	}

	dir := "Neutral"
	if strength > 0 {
		dir = "Favorable OVER"
	} else if strength < 0 {
		dir = "Favorable UNDER"
	}
	evidence := fmt.Sprintf("%s usage (%.1f%%), %s minutes (%.1f) → %s",
		usageTier(pc.UsagePct), pc.UsagePct, minutesTier(pc.MinutesPerGame), pc.MinutesPerGame, dir)

	return models.NewSignalResult(s.Type(), strength, confidence, evidence).WithData(map[string]float64{
		"usage_pct":         pc.UsagePct,
		"minutes_per_game":  pc.MinutesPerGame,
		"usage_score":       models.Round(us, 3),
		"minutes_score":     models.Round(ms, 3),
		"opportunity_score": models.Round(opportunity, 3),
	})
}

func (s *Usage) rebounds(pc models.PropContext) models.SignalResult {
	if pc.RebFrequency > 0 {
		strength := (pc.RebFrequency - avgRebFreq) / 0.10
		switch {
		case pc.UncontestedRebPct > 0.6:
			strength *= 1.1
		case pc.ContestedRebPct > 0.5:
			strength *= 0.8
		}
		return models.NewSignalResult(s.Type(), strength, 0.6,
			fmt.Sprintf("Rebound frequency: %.2f → %s", pc.RebFrequency, leaning(strength))).
			WithData(map[string]float64{
				"reb_frequency":   pc.RebFrequency,
				"contested_pct":   pc.ContestedRebPct,
				"uncontested_pct": pc.UncontestedRebPct,
			})
	}
	if pc.MinutesPerGame > 0 {
		strength := (minutesScore(pc.MinutesPerGame) - 0.5) * 0.3
		return models.NewSignalResult(s.Type(), strength, 0.3,
			fmt.Sprintf("Minutes only signal (%.1f mpg), no rebound tracking", pc.MinutesPerGame)).
			WithData(map[string]float64{"minutes_per_game": pc.MinutesPerGame})
	}
	return neutral(s.Type(), "No rebound opportunity data available")
}

func usageScore(u float64) float64 {
	switch {
	case u >= usageElite:
		return 1.0
	case u >= usageHigh:
		return 0.6 + (u-usageHigh)/(usageElite-usageHigh)*0.4
	case u >= usageLow:
		return (u - usageLow) / (usageHigh - usageLow) * 0.6
	}
	return math.Max(0, u/usageLow*0.2)
}

func minutesScore(m float64) float64 {
	switch {
	case m >= minutesHigh:
		return 1.0
	case m >= minutesStart:
		return 0.6 + (m-minutesStart)/(minutesHigh-minutesStart)*0.4
	}
	return math.Max(0, m/minutesStart*0.6)
}

// lineVsOpportunity leans over when a high-opportunity player's line sits
// below recent output and under in the opposite case
func lineVsOpportunity(pc models.PropContext, opportunity float64) float64 {
	if pc.RecentAvg <= 0 || pc.Line <= 0 {
		return 0
	}
	lvr := (pc.RecentAvg - pc.Line) / pc.RecentAvg
	switch {
	case opportunity >= 0.7:
		if lvr > 0.05 {
			return opportunity * 0.5
		}
		if lvr < -0.10 {
			return -0.2
		}
	case opportunity < 0.4:
		if lvr > 0.10 {
			return 0.1
		}
		if lvr < -0.05 {
			return -opportunity * 0.3
		}
	}
	return lvr * 0.3
}

func usageTier(u float64) string {
	switch {
	case u >= usageElite:
		return "Elite"
	case u >= usageHigh:
		return "High"
	case u >= 20:
		return "Average"
	}
	return "Low"
}

func minutesTier(m float64) string {
	switch {
	case m >= minutesHigh:
		return "high"
	case m >= minutesStart:
		return "starter"
	}
	return "limited"
}
