package parlay

import (
	"time"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/oddsmath"
)

// Confidence tiers shown with each leg
const (
	TierVeryHigh = "very_high"
	TierHigh     = "high"
	TierMedium   = "medium"
	TierLow      = "low"
)

const maxSupportingReasons = 3

// NewLeg snapshots an edge result into a pending leg
func NewLeg(r models.EdgeResult, number int) models.Leg {
	price := r.Price
	if price == 0 {
		price = r.OverPrice
		if r.Direction == models.DirectionUnder {
			price = r.UnderPrice
		}
	}
	marketProb := r.MarketProbability
	if marketProb == 0 && price != 0 {
		marketProb, _ = oddsmath.AmericanToImpliedProbability(price)
	}

	var reasons []string
	for _, s := range r.Signals {
		if s.Strength != 0 && s.Evidence != "" {
			reasons = append(reasons, s.Evidence)
		}
		if len(reasons) == maxSupportingReasons {
			break
		}
	}

	return models.Leg{
		LegNumber:         number,
		PlayerName:        r.PlayerName,
		PlayerID:          r.PlayerID,
		Team:              r.Team,
		StatType:          r.StatType,
		Line:              r.Line,
		Direction:         r.Direction,
		Price:             price,
		EdgePct:           models.Round(r.EdgeScore*100, 4),
		Confidence:        models.Round(r.Confidence, 4),
		ConfidenceTier:    ConfidenceTier(r.Confidence),
		ModelProbability:  models.Round(r.ModelProbability, 4),
		MarketProbability: models.Round(marketProb, 4),
		Signals:           r.SignalStrengths(),
		PrimaryReason:     string(r.Recommendation),
		SupportingReasons: reasons,
		Result:            models.OutcomePending,
	}
}

// ConfidenceTier buckets a confidence score
func ConfidenceTier(confidence float64) string {
	switch {
	case confidence >= 0.70:
		return TierVeryHigh
	case confidence >= 0.55:
		return TierHigh
	case confidence >= 0.40:
		return TierMedium
	}
	return TierLow
}

// Game slots by Eastern tip-off hour
const (
	SlotAfternoon = "AFTERNOON"
	SlotEvening   = "EVENING"
	SlotLate      = "LATE"
)

// GameSlot classifies a tip-off by its Eastern hour
func GameSlot(commence time.Time) string {
	if commence.IsZero() {
		return SlotEvening
	}
	switch hour := commence.In(models.Eastern).Hour(); {
	case hour < 17:
		return SlotAfternoon
	case hour < 21:
		return SlotEvening
	}
	return SlotLate
}

// GameDate is the Eastern calendar day of a tip-off, at midnight UTC
func GameDate(commence time.Time) time.Time {
	return models.EasternDate(commence)
}
