package edge

import (
	"fmt"
	"math"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// TieBreak decides the outcome of an exactly zero edge
type TieBreak string

const (
	TieBreakUnder TieBreak = "under"
	TieBreakOver  TieBreak = "over"
	TieBreakPass  TieBreak = "pass"
)

// Weights are the fixed per-signal weights, summing to 1.0
type Weights struct {
	LineValue   float64 `mapstructure:"line_value"`
	Trend       float64 `mapstructure:"trend"`
	Usage       float64 `mapstructure:"usage"`
	Matchup     float64 `mapstructure:"matchup"`
	Environment float64 `mapstructure:"environment"`
	Correlation float64 `mapstructure:"correlation"`
}

// For returns the weight of a signal type
func (w Weights) For(t models.SignalType) float64 {
	switch t {
	case models.SignalLineValue:
		return w.LineValue
	case models.SignalTrend:
		return w.Trend
	case models.SignalUsage:
		return w.Usage
	case models.SignalMatchup:
		return w.Matchup
	case models.SignalEnvironment:
		return w.Environment
	case models.SignalCorrelation:
		return w.Correlation
	}
	return 0
}

// Sum totals all six weights
func (w Weights) Sum() float64 {
	return w.LineValue + w.Trend + w.Usage + w.Matchup + w.Environment + w.Correlation
}

// Config holds every tunable threshold of the calculator
type Config struct {
	Weights           Weights  `mapstructure:"weights"`
	MinEdge           float64  `mapstructure:"min_edge"`
	MinConfidence     float64  `mapstructure:"min_confidence"`
	StrongEdge        float64  `mapstructure:"strong_edge"`
	StrongConfidence  float64  `mapstructure:"strong_confidence"`
	LeanEdge          float64  `mapstructure:"lean_edge"`
	LeanConfidence    float64  `mapstructure:"lean_confidence"`
	DispersionPenalty float64  `mapstructure:"dispersion_penalty"`
	TieBreak          TieBreak `mapstructure:"tie_break"`
	DefaultPrice      int      `mapstructure:"default_price"`
}

// DefaultConfig returns the production weights and thresholds
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			LineValue:   0.30,
			Trend:       0.20,
			Usage:       0.20,
			Matchup:     0.15,
			Environment: 0.10,
			Correlation: 0.05,
		},
		MinEdge:           0.08,
		MinConfidence:     0.40,
		StrongEdge:        0.25,
		StrongConfidence:  0.55,
		LeanEdge:          0.15,
		LeanConfidence:    0.50,
		DispersionPenalty: 0.20,
		TieBreak:          TieBreakUnder,
		DefaultPrice:      -110,
	}
}

// Validate checks that the weights sum to one and thresholds are ordered
func (c Config) Validate() error {
	if math.Abs(c.Weights.Sum()-1.0) > 1e-6 {
		return fmt.Errorf("signal weights must sum to 1.0, got %.4f", c.Weights.Sum())
	}
	for _, t := range models.AllSignalTypes {
		if c.Weights.For(t) < 0 {
			return fmt.Errorf("weight for %s must be >= 0", t)
		}
	}
	if c.MinEdge < 0 || c.MinEdge > c.LeanEdge || c.LeanEdge > c.StrongEdge {
		return fmt.Errorf("edge thresholds must satisfy 0 <= min (%.2f) <= lean (%.2f) <= strong (%.2f)",
			c.MinEdge, c.LeanEdge, c.StrongEdge)
	}
	if c.MinConfidence < 0 || c.LeanConfidence > c.StrongConfidence || c.StrongConfidence > 1 {
		return fmt.Errorf("confidence thresholds out of order")
	}
	if c.DispersionPenalty < 0 || c.DispersionPenalty >= 1 {
		return fmt.Errorf("dispersion penalty must be in [0,1)")
	}
	switch c.TieBreak {
	case TieBreakUnder, TieBreakOver, TieBreakPass:
	default:
		return fmt.Errorf("unknown tie break: %q", c.TieBreak)
	}
	if c.DefaultPrice == 0 {
		return fmt.Errorf("default price cannot be 0")
	}
	return nil
}
