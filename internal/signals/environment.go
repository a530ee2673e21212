package signals

import (
	"fmt"
	"math"
	"strings"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

var b2bImpact = map[models.StatType]float64{
	models.StatPoints:    -0.25,
	models.StatRebounds:  -0.15,
	models.StatAssists:   -0.15,
	models.StatThrees:    -0.20,
	models.StatBlocks:    -0.10,
	models.StatSteals:    -0.10,
	models.StatTurnovers: 0.10,
	models.StatPRA:       -0.20,
	models.StatPR:        -0.20,
	models.StatPA:        -0.20,
	models.StatRA:        -0.15,
	models.StatFGM:       -0.20,
	models.StatFTM:       -0.15,
}

const (
	defaultB2BImpact = -0.15
	threeInFourMult  = 1.5
	homeAdvantage    = 0.05
	envDeadband      = 0.03
)

// Environment applies a rule table over rest, venue and blowout risk
type Environment struct{}

// NewEnvironment creates an environment evaluator
func NewEnvironment() *Environment {
	return &Environment{}
}

// Type returns the signal type
func (s *Environment) Type() models.SignalType {
	return models.SignalEnvironment
}

// Evaluate sums the increments of every active flag
func (s *Environment) Evaluate(pc models.PropContext) models.SignalResult {
	var factors []string
	var total float64

	// B2B carries the full fatigue impact and 3-in-4 adds half of it on top,
	// so each flag counts whether or not the other is set
	fatigue, ok := b2bImpact[pc.StatType]
	if !ok {
		fatigue = defaultB2BImpact
	}
	var impact float64
	if pc.IsB2B {
		impact += fatigue
	}
	if pc.Is3In4 {
		impact += fatigue * (threeInFourMult - 1)
	}
	switch {
	case pc.IsB2B && pc.Is3In4:
		factors = append(factors, fmt.Sprintf("B2B in 3-in-4 nights (%.0f%% impact)", impact*100))
	case pc.IsB2B:
		factors = append(factors, fmt.Sprintf("B2B (%.0f%% impact)", impact*100))
	case pc.Is3In4:
		factors = append(factors, fmt.Sprintf("3-in-4 nights (%.0f%% impact)", impact*100))
	}
	total += impact

	if pc.IsHome {
		total += homeAdvantage
		factors = append(factors, "Home court (+5%)")
	} else {
		factors = append(factors, "Road game")
	}

	if pc.Spread != nil {
		if blowout := blowoutRisk(*pc.Spread, pc.IsHome); math.Abs(blowout) > envDeadband {
			total += blowout
			factors = append(factors, "Blowout risk (reduced minutes)")
		}
	}

	strength := total
	confidence := 0.3
	if math.Abs(strength) < envDeadband {
		strength = 0
	} else {
		confidence = 0.5
		if pc.IsB2B || pc.Is3In4 {
			confidence += 0.15
		}
		if pc.IsHighValue {
			confidence += 0.1
		}
		if pc.Spread != nil {
			confidence += 0.05
		}
	}

	evidence := strings.Join(factors, " | ")
	if strength != 0 {
		evidence += " → " + leaning(strength)
	}

	data := map[string]float64{
		"is_b2b":           boolf(pc.IsB2B),
		"is_3_in_4":        boolf(pc.Is3In4),
		"is_home":          boolf(pc.IsHome),
		"total_impact_pct": models.Round(total*100, 2),
	}
	if pc.Spread != nil {
		data["spread"] = *pc.Spread
	}
	return models.NewSignalResult(s.Type(), strength, confidence, evidence).WithData(data)
}

// blowoutRisk reads the spread from the player's team perspective. Heavy
// favorites and heavy underdogs both risk reduced starter minutes.
func blowoutRisk(homeSpread float64, isHome bool) float64 {
	team := homeSpread
	if !isHome {
		team = -homeSpread
	}
	switch {
	case team < -12:
		return -0.10
	case team < -8:
		return -0.05
	case team > 12:
		return -0.08
	case team > 8:
		return -0.04
	}
	return 0
}
