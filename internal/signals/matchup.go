package signals

import (
	"fmt"
	"math"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// League baselines
const (
	LeagueAvgDefRating = 112.0
	LeagueAvgPace      = 99.5
	LeagueAvgOrebPct   = 0.25
	LeagueAvgDrebPct   = 0.75
)

var statImpact = map[models.StatType]float64{
	models.StatPoints: 1.0,
	models.StatThrees: 0.9,
	models.StatFGM:    0.9,
	models.StatFTM:    0.7,
	models.StatPRA:    0.85,
	models.StatPR:     0.75,
	models.StatPA:     0.85,
}

const defaultImpact = 0.8

// Matchup scores the opponent's defense relative to league average
type Matchup struct{}

// NewMatchup creates a matchup evaluator
func NewMatchup() *Matchup {
	return &Matchup{}
}

// Type returns the signal type
func (s *Matchup) Type() models.SignalType {
	return models.SignalMatchup
}

// Evaluate selects the defensive metric by stat type
func (s *Matchup) Evaluate(pc models.PropContext) models.SignalResult {
	switch pc.StatType {
	case models.StatRebounds:
		return s.rebounds(pc)
	case models.StatAssists:
		return s.assists(pc)
	}
	return s.scoring(pc)
}

func (s *Matchup) scoring(pc models.PropContext) models.SignalResult {
	if pc.OpponentDefRating <= 0 {
		return neutral(s.Type(), "No opponent defensive data")
	}
	diff := pc.OpponentDefRating - LeagueAvgDefRating
	impact, ok := statImpact[pc.StatType]
	if !ok {
		impact = defaultImpact
	}
	pace := paceAdjustment(pc.OpponentPace)
	strength := diff/12.0*impact + pace
	confidence := defenseConfidence(pc, math.Abs(diff), impact)

	evidence := fmt.Sprintf("vs %s (%s defense, %.1f DEF_RTG) → %s",
		pc.OpponentTeam, defenseTier(pc.OpponentDefRating), pc.OpponentDefRating, leaning(strength))
	if math.Abs(pace) > 0.02 {
		if pace > 0 {
			evidence += " [fast pace]"
		} else {
			evidence += " [slow pace]"
		}
	}
	return models.NewSignalResult(s.Type(), strength, confidence, evidence).WithData(map[string]float64{
		"opp_def_rtg": pc.OpponentDefRating,
		"def_diff":    models.Round(diff, 2),
		"opp_pace":    pc.OpponentPace,
		"stat_impact": impact,
	})
}

func (s *Matchup) assists(pc models.PropContext) models.SignalResult {
	if pc.OpponentDefRating <= 0 {
		return neutral(s.Type(), "No opponent defensive data")
	}
	diff := pc.OpponentDefRating - LeagueAvgDefRating
	strength := diff/12.0*0.6 + paceAdjustment(pc.OpponentPace)*1.5
	if pc.PassToAstRate > 0.1 {
		strength *= 1.1
	}
	confidence := defenseConfidence(pc, math.Abs(diff), 0.7)
	evidence := fmt.Sprintf("vs %s (%s defense, pace: %.1f) → %s",
		pc.OpponentTeam, defenseTier(pc.OpponentDefRating), pc.OpponentPace, leaning(strength))
	return models.NewSignalResult(s.Type(), strength, confidence, evidence).WithData(map[string]float64{
		"opp_def_rtg": pc.OpponentDefRating,
		"opp_pace":    pc.OpponentPace,
		"def_diff":    models.Round(diff, 2),
	})
}

func (s *Matchup) rebounds(pc models.PropContext) models.SignalResult {
	dreb, oreb := pc.OpponentDrebPct, pc.OpponentOrebPct
	if dreb <= 0 && oreb <= 0 {
		return neutral(s.Type(), "No opponent rebounding data")
	}
	if dreb <= 0 {
		dreb = LeagueAvgDrebPct
	}
	if oreb <= 0 {
		oreb = LeagueAvgOrebPct
	}

	// Low opponent DREB% leaves offensive boards; high OREB% takes defensive ones
	net := (LeagueAvgDrebPct-dreb)*0.7 - (oreb-LeagueAvgOrebPct)*0.3
	base := net / 0.08
	switch {
	case pc.ContestedRebPct > 0.5:
		base *= 0.7
	case pc.UncontestedRebPct > 0.6:
		base *= 1.2
	}
	strength := base + paceAdjustment(pc.OpponentPace)*0.5

	confidence := 0.5
	switch absNet := math.Abs(net); {
	case absNet >= 0.05:
		confidence += 0.15
	case absNet >= 0.03:
		confidence += 0.08
	}
	if pc.RebFrequency > 0 {
		confidence += 0.1
	}
	if pc.IsHighValue {
		confidence += 0.1
	}
	if pc.OpponentTeam != "" {
		confidence += 0.05
	}

	evidence := fmt.Sprintf("vs %s (%s rebounding, DREB%%: %.1f%%) → %s",
		pc.OpponentTeam, reboundingTier(dreb), dreb*100, leaning(strength))
	return models.NewSignalResult(s.Type(), strength, confidence, evidence).WithData(map[string]float64{
		"opp_dreb_pct":         dreb,
		"opp_oreb_pct":         oreb,
		"net_reb_diff":         models.Round(net, 4),
		"player_contested_pct": pc.ContestedRebPct,
	})
}

func defenseConfidence(pc models.PropContext, absDiff, impact float64) float64 {
	confidence := 0.5
	switch {
	case absDiff >= 5:
		confidence += 0.15
	case absDiff >= 3:
		confidence += 0.08
	}
	confidence += impact * 0.1
	if pc.IsHighValue {
		confidence += 0.1
	}
	if pc.OpponentTeam != "" {
		confidence += 0.05
	}
	return confidence
}

func paceAdjustment(pace float64) float64 {
	if pace <= 0 {
		return 0
	}
	return (pace - LeagueAvgPace) / 60.0
}

func defenseTier(rating float64) string {
	switch {
	case rating >= 119:
		return "awful"
	case rating >= 116:
		return "weak"
	case rating >= LeagueAvgDefRating:
		return "average"
	case rating >= 109:
		return "good"
	case rating >= 106:
		return "strong"
	}
	return "elite"
}

func reboundingTier(dreb float64) string {
	switch {
	case dreb <= 0.70:
		return "awful"
	case dreb <= 0.72:
		return "weak"
	case dreb <= LeagueAvgDrebPct:
		return "average"
	case dreb <= 0.77:
		return "good"
	}
	return "elite"
}
