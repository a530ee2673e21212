package models

import (
	"math"
	"time"
)

// SignalType names one of the six evaluators
type SignalType string

const (
	SignalLineValue   SignalType = "line_value"
	SignalTrend       SignalType = "trend"
	SignalUsage       SignalType = "usage"
	SignalMatchup     SignalType = "matchup"
	SignalEnvironment SignalType = "environment"
	SignalCorrelation SignalType = "correlation"
)

// AllSignalTypes is the canonical evaluation order
var AllSignalTypes = []SignalType{
	SignalLineValue, SignalTrend, SignalUsage, SignalMatchup, SignalEnvironment, SignalCorrelation,
}

// PropContext is the immutable input bundle for one candidate prop.
// Zero values mean "unknown" for every optional numeric field.
type PropContext struct {
	PlayerID   int      `json:"player_id"`
	PlayerName string   `json:"player_name"`
	Team       string   `json:"team"`
	StatType   StatType `json:"stat_type"`
	Line       float64  `json:"line"`
	OverPrice  int      `json:"over_price"`
	UnderPrice int      `json:"under_price"`

	GamesPlayed    int     `json:"games_played"`
	MinutesPerGame float64 `json:"minutes_per_game"`
	UsagePct       float64 `json:"usage_pct"`
	SeasonAvg      float64 `json:"season_avg"`
	RecentAvg      float64 `json:"recent_avg"`
	RecentMinutes  float64 `json:"recent_minutes"`
	StatStdDev     float64 `json:"stat_std_dev,omitempty"`

	// Rebounding and passing tracking, used by stat-specific branches
	RebFrequency      float64 `json:"reb_frequency,omitempty"`
	ContestedRebPct   float64 `json:"contested_reb_pct,omitempty"`
	UncontestedRebPct float64 `json:"uncontested_reb_pct,omitempty"`
	PassToAstRate     float64 `json:"pass_to_ast_rate,omitempty"`

	OpponentTeam      string  `json:"opponent_team"`
	OpponentDefRating float64 `json:"opponent_def_rating"`
	OpponentPace      float64 `json:"opponent_pace"`
	OpponentOrebPct   float64 `json:"opponent_oreb_pct,omitempty"`
	OpponentDrebPct   float64 `json:"opponent_dreb_pct,omitempty"`

	GameDate  time.Time `json:"game_date"`
	IsHome    bool      `json:"is_home"`
	IsB2B     bool      `json:"is_b2b"`
	Is3In4    bool      `json:"is_3_in_4"`
	GameTotal *float64  `json:"game_total,omitempty"`
	Spread    *float64  `json:"spread,omitempty"`

	IsHighValue  bool         `json:"is_high_value"`
	InjuryStatus InjuryStatus `json:"injury_status,omitempty"`

	// Unavailable marks signals whose inputs could not be fetched
	Unavailable map[SignalType]bool `json:"unavailable,omitempty"`
}

// PriceFor returns the offered price on the given side
func (c PropContext) PriceFor(dir Direction) int {
	if dir == DirectionOver {
		return c.OverPrice
	}
	return c.UnderPrice
}

// IsUnavailable reports whether the inputs of a signal failed to load
func (c PropContext) IsUnavailable(t SignalType) bool {
	return c.Unavailable[t]
}

// SignalResult is the bounded output of one evaluator
type SignalResult struct {
	Type       SignalType         `json:"signal_type"`
	Strength   float64            `json:"strength"`
	Confidence float64            `json:"confidence"`
	Evidence   string             `json:"evidence"`
	Data       map[string]float64 `json:"raw_data,omitempty"`
}

// NewSignalResult builds a result with strength clamped to [-1,1] and
// confidence clamped to [0,1]
func NewSignalResult(t SignalType, strength, confidence float64, evidence string) SignalResult {
	return SignalResult{
		Type:       t,
		Strength:   Clamp(strength, -1, 1),
		Confidence: Clamp(confidence, 0, 1),
		Evidence:   evidence,
	}
}

// WithData attaches supporting numbers
func (r SignalResult) WithData(data map[string]float64) SignalResult {
	r.Data = data
	return r
}

// Direction returns over for positive strength, under otherwise
func (r SignalResult) Direction() Direction {
	if r.Strength > 0 {
		return DirectionOver
	}
	return DirectionUnder
}

// Clamp bounds v to [lo, hi]. NaN collapses to zero before clamping.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		v = 0
	}
	return math.Max(lo, math.Min(hi, v))
}
