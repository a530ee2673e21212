package edge

import (
	"math"
	"sort"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/signals"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/oddsmath"
)

// Calculator aggregates the six signals of a prop into one edge
type Calculator struct {
	config  Config
	signals *signals.Set
}

// NewCalculator creates a calculator with the standard signal set
func NewCalculator(config Config) *Calculator {
	return &Calculator{
		config:  config,
		signals: signals.NewSet(),
	}
}

// Config returns the calculator configuration
func (c *Calculator) Config() Config {
	return c.config
}

// Calculate evaluates every signal for the context and aggregates them
func (c *Calculator) Calculate(pc models.PropContext) models.EdgeResult {
	return c.Aggregate(pc, c.signals.EvaluateAll(pc))
}

// Aggregate combines signal results into an edge result. It depends only on
// its inputs.
func (c *Calculator) Aggregate(pc models.PropContext, results []models.SignalResult) models.EdgeResult {
	var edgeScore, weightedConf, totalWeight float64
	for _, r := range results {
		w := c.config.Weights.For(r.Type)
		if w <= 0 {
			continue
		}
		edgeScore += w * r.Strength
		weightedConf += w * r.Confidence
		totalWeight += w
	}

	var confidence float64
	if totalWeight > 0 {
		confidence = weightedConf / totalWeight
	}
	edgeScore = models.Clamp(edgeScore, -1, 1)

	if c.disagrees(edgeScore, results) {
		confidence *= 1 - c.config.DispersionPenalty
	}
	confidence = models.Clamp(confidence*pc.InjuryStatus.ConfidenceModifier(), 0, 1)

	dir, tie := c.direction(edgeScore)
	rec := c.recommend(math.Abs(edgeScore), confidence, dir, pc.IsHighValue)
	if tie && c.config.TieBreak == TieBreakPass {
		rec = models.RecommendPass
	}

	price := pc.PriceFor(dir)
	if price == 0 {
		price = c.config.DefaultPrice
	}
	modelProb := models.Clamp(0.5+math.Abs(edgeScore)/2, 0.01, 0.99)
	marketProb, _ := oddsmath.AmericanToImpliedProbability(price)
	ev, _ := oddsmath.CalculateEV(price, modelProb)

	return models.EdgeResult{
		PlayerID:          pc.PlayerID,
		PlayerName:        pc.PlayerName,
		Team:              pc.Team,
		StatType:          pc.StatType,
		Line:              pc.Line,
		EdgeScore:         edgeScore,
		Confidence:        confidence,
		Direction:         dir,
		Signals:           results,
		Recommendation:    rec,
		Price:             price,
		ModelProbability:  modelProb,
		MarketProbability: marketProb,
		ExpectedValue:     ev,
		IsHighValue:       pc.IsHighValue,
		OverPrice:         pc.OverPrice,
		UnderPrice:        pc.UnderPrice,
	}
}

// disagrees reports whether more than half of the directional signals
// oppose the aggregate
func (c *Calculator) disagrees(edgeScore float64, results []models.SignalResult) bool {
	if edgeScore == 0 {
		return false
	}
	var directional, opposing int
	for _, r := range results {
		if r.Strength == 0 || c.config.Weights.For(r.Type) <= 0 {
			continue
		}
		directional++
		if (r.Strength > 0) != (edgeScore > 0) {
			opposing++
		}
	}
	return opposing*2 > directional
}

func (c *Calculator) direction(edgeScore float64) (models.Direction, bool) {
	switch {
	case edgeScore > 0:
		return models.DirectionOver, false
	case edgeScore < 0:
		return models.DirectionUnder, false
	}
	if c.config.TieBreak == TieBreakOver {
		return models.DirectionOver, true
	}
	return models.DirectionUnder, true
}

func (c *Calculator) recommend(absEdge, confidence float64, dir models.Direction, highValue bool) models.Recommendation {
	cfg := c.config
	if confidence < cfg.MinConfidence || absEdge < cfg.MinEdge {
		return models.RecommendPass
	}
	switch {
	case absEdge >= cfg.StrongEdge && confidence >= cfg.StrongConfidence:
		return models.NewRecommendation(models.TierStrong, dir)
	case absEdge >= cfg.LeanEdge && confidence >= cfg.LeanConfidence:
		return models.NewRecommendation(models.TierLean, dir)
	case highValue:
		return models.NewRecommendation(models.TierSlight, dir)
	}
	return models.RecommendPass
}

// Rank sorts results by |edge| x confidence, strongest first. Ties keep
// player name order so the ranking is reproducible.
func Rank(results []models.EdgeResult) []models.EdgeResult {
	ranked := make([]models.EdgeResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := ranked[i].Rank(), ranked[j].Rank()
		if ri != rj {
			return ri > rj
		}
		if ranked[i].PlayerName != ranked[j].PlayerName {
			return ranked[i].PlayerName < ranked[j].PlayerName
		}
		return ranked[i].StatType < ranked[j].StatType
	})
	return ranked
}

// Actionable filters out pass recommendations
func Actionable(results []models.EdgeResult) []models.EdgeResult {
	var out []models.EdgeResult
	for _, r := range results {
		if !r.Recommendation.IsPass() {
			out = append(out, r)
		}
	}
	return out
}
