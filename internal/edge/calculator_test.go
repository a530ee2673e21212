package edge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

func floatPtr(v float64) *float64 { return &v }

func exampleContext(overrides ...func(*models.PropContext)) models.PropContext {
	pc := models.PropContext{
		PlayerID:          1628369,
		PlayerName:        "Jayson Tatum",
		Team:              "BOS",
		StatType:          models.StatPoints,
		Line:              24.5,
		OverPrice:         -110,
		UnderPrice:        -110,
		GamesPlayed:       30,
		MinutesPerGame:    34,
		UsagePct:          31.5,
		SeasonAvg:         23.8,
		RecentAvg:         27.2,
		RecentMinutes:     36,
		OpponentTeam:      "WAS",
		OpponentDefRating: 118.5,
		OpponentPace:      99.5,
		IsHome:            true,
		GameTotal:         floatPtr(232.5),
		IsHighValue:       true,
	}
	for _, o := range overrides {
		o(&pc)
	}
	return pc
}

func signal(t models.SignalType, strength, confidence float64) models.SignalResult {
	return models.NewSignalResult(t, strength, confidence, "")
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 1.0, cfg.Weights.Sum(), 1e-9)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"weights off", func(c *Config) { c.Weights.Trend = 0.5 }},
		{"thresholds reversed", func(c *Config) { c.LeanEdge = 0.3 }},
		{"penalty too large", func(c *Config) { c.DispersionPenalty = 1 }},
		{"unknown tie break", func(c *Config) { c.TieBreak = "coin" }},
		{"zero default price", func(c *Config) { c.DefaultPrice = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCalculateWorkedExample(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	result := calc.Calculate(exampleContext())

	assert.InDelta(t, 0.23, result.EdgeScore, 0.02)
	assert.InDelta(t, 0.84, result.Confidence, 0.02)
	assert.Equal(t, models.DirectionOver, result.Direction)
	assert.Equal(t, models.RecommendLeanOver, result.Recommendation)
	require.Len(t, result.Signals, 6)
	assert.Equal(t, -110, result.Price)
	assert.InDelta(t, 0.617, result.ModelProbability, 0.001)
	assert.InDelta(t, 0.5238, result.MarketProbability, 0.001)
	assert.Greater(t, result.ExpectedValue, 0.0)
}

func TestCalculateDeterministic(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	pc := exampleContext()

	first := calc.Calculate(pc)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, calc.Calculate(pc))
	}
}

func TestAggregateDispersionPenalty(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	// line value dominates the weighted sum, four smaller signals oppose it
	results := []models.SignalResult{
		signal(models.SignalLineValue, 1.0, 0.8),
		signal(models.SignalTrend, -0.1, 0.8),
		signal(models.SignalUsage, -0.1, 0.8),
		signal(models.SignalMatchup, -0.1, 0.8),
		signal(models.SignalEnvironment, -0.1, 0.8),
		signal(models.SignalCorrelation, 0, 0.8),
	}

	result := calc.Aggregate(exampleContext(), results)
	assert.InDelta(t, 0.235, result.EdgeScore, 1e-9)
	assert.InDelta(t, 0.8*0.8, result.Confidence, 1e-9)

	agreeing := calc.Aggregate(exampleContext(), []models.SignalResult{
		signal(models.SignalLineValue, 1.0, 0.8),
		signal(models.SignalTrend, 0.1, 0.8),
	})
	assert.InDelta(t, 0.8, agreeing.Confidence, 1e-9)
}

func TestAggregateRecommendation(t *testing.T) {
	tests := []struct {
		name      string
		strength  float64
		conf      float64
		highValue bool
		want      models.Recommendation
	}{
		{"strong over", 0.30, 0.60, false, models.RecommendStrongOver},
		{"strong edge moderate confidence leans", 0.30, 0.52, false, models.RecommendLeanOver},
		{"lean under", -0.18, 0.51, false, models.RecommendLeanUnder},
		{"slight for high value", 0.10, 0.45, true, models.RecommendSlightOver},
		{"small edge for role player", 0.10, 0.45, false, models.RecommendPass},
		{"below minimum edge", 0.05, 0.90, true, models.RecommendPass},
		{"below minimum confidence", 0.60, 0.35, true, models.RecommendPass},
	}

	calc := NewCalculator(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var results []models.SignalResult
			for _, st := range models.AllSignalTypes {
				results = append(results, signal(st, tt.strength, tt.conf))
			}
			pc := exampleContext(func(pc *models.PropContext) { pc.IsHighValue = tt.highValue })
			got := calc.Aggregate(pc, results)
			assert.Equal(t, tt.want, got.Recommendation)
			assert.InDelta(t, tt.strength, got.EdgeScore, 1e-9)
		})
	}
}

func TestAggregateTieBreak(t *testing.T) {
	neutral := []models.SignalResult{signal(models.SignalLineValue, 0, 0.9)}

	under := NewCalculator(DefaultConfig()).Aggregate(exampleContext(), neutral)
	assert.Equal(t, models.DirectionUnder, under.Direction)
	assert.Equal(t, models.RecommendPass, under.Recommendation)

	cfg := DefaultConfig()
	cfg.TieBreak = TieBreakPass
	cfg.MinEdge = 0
	cfg.LeanEdge = 0
	cfg.StrongEdge = 0
	pass := NewCalculator(cfg).Aggregate(exampleContext(), neutral)
	assert.Equal(t, models.RecommendPass, pass.Recommendation)
}

func TestAggregateInjuryModifier(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	healthy := calc.Calculate(exampleContext())
	gtd := calc.Calculate(exampleContext(func(pc *models.PropContext) {
		pc.InjuryStatus = models.InjuryDayToDay
	}))

	assert.InDelta(t, healthy.Confidence*0.6, gtd.Confidence, 1e-9)
	assert.Equal(t, healthy.EdgeScore, gtd.EdgeScore)
}

func TestAggregateMissingPriceUsesDefault(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	result := calc.Calculate(exampleContext(func(pc *models.PropContext) { pc.OverPrice = 0 }))
	assert.Equal(t, -110, result.Price)
}

func TestRank(t *testing.T) {
	in := []models.EdgeResult{
		{PlayerName: "B", EdgeScore: 0.2, Confidence: 0.5},
		{PlayerName: "A", EdgeScore: -0.3, Confidence: 0.6},
		{PlayerName: "C", EdgeScore: 0.1, Confidence: 1.0},
		{PlayerName: "A0", EdgeScore: 0.1, Confidence: 1.0},
	}

	ranked := Rank(in)
	names := []string{ranked[0].PlayerName, ranked[1].PlayerName, ranked[2].PlayerName, ranked[3].PlayerName}
	assert.Equal(t, []string{"A", "A0", "B", "C"}, names)
	assert.Equal(t, "B", in[0].PlayerName, "input must not be reordered")
}
