package models

import "math"

// EdgeResult is the aggregated view of one prop
type EdgeResult struct {
	PlayerID   int      `json:"player_id"`
	PlayerName string   `json:"player_name"`
	Team       string   `json:"team"`
	StatType   StatType `json:"stat_type"`
	Line       float64  `json:"line"`

	EdgeScore      float64        `json:"edge_score"`
	Confidence     float64        `json:"confidence"`
	Direction      Direction      `json:"direction"`
	Signals        []SignalResult `json:"signals"`
	Recommendation Recommendation `json:"recommendation"`

	Price             int     `json:"price"`
	ModelProbability  float64 `json:"model_probability"`
	MarketProbability float64 `json:"market_probability"`
	ExpectedValue     float64 `json:"expected_value"`

	IsHighValue bool `json:"is_high_value"`
	OverPrice   int  `json:"over_price"`
	UnderPrice  int  `json:"under_price"`
}

// Rank is the composite used to order candidates: |edge| x confidence
func (e EdgeResult) Rank() float64 {
	return math.Abs(e.EdgeScore) * e.Confidence
}

// Signal returns the result of one evaluator, if present
func (e EdgeResult) Signal(t SignalType) (SignalResult, bool) {
	for _, s := range e.Signals {
		if s.Type == t {
			return s, true
		}
	}
	return SignalResult{}, false
}

// SignalStrengths returns strength per signal type rounded to the
// persisted precision
func (e EdgeResult) SignalStrengths() map[SignalType]float64 {
	out := make(map[SignalType]float64, len(e.Signals))
	for _, s := range e.Signals {
		out[s.Type] = Round(s.Strength, SignalPrecision)
	}
	return out
}

// SignalPrecision is the number of decimals kept for stored signal strengths
const SignalPrecision = 3

// Round rounds v to the given number of decimals
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
