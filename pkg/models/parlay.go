package models

import (
	"fmt"
	"time"
)

// ParlayType distinguishes parallel parlay products for the same game
type ParlayType string

const (
	ParlayTypePrimary ParlayType = "primary"
)

// SeasonType is the phase of the NBA calendar
type SeasonType string

const (
	SeasonOffseason    SeasonType = "offseason"
	SeasonPreseason    SeasonType = "preseason"
	SeasonRegular      SeasonType = "regular"
	SeasonCup          SeasonType = "cup"
	SeasonAllStarBreak SeasonType = "allstar_break"
	SeasonPlayIn       SeasonType = "playin"
	SeasonPlayoffs     SeasonType = "playoffs"
)

// ParseSeasonType validates an operator supplied season type
func ParseSeasonType(s string) (SeasonType, error) {
	switch st := SeasonType(s); st {
	case SeasonOffseason, SeasonPreseason, SeasonRegular, SeasonCup,
		SeasonAllStarBreak, SeasonPlayIn, SeasonPlayoffs:
		return st, nil
	}
	return "", fmt.Errorf("unknown season type: %q", s)
}

// SeasonInfo places a date on the NBA calendar
type SeasonInfo struct {
	Season      int        `json:"season"`
	Type        SeasonType `json:"season_type"`
	ShouldRun   bool       `json:"should_run"`
	IsCupPeriod bool       `json:"is_cup_period,omitempty"`
}

// Leg is one persisted prop pick inside a parlay
type Leg struct {
	ID                string                 `json:"id" db:"id"`
	ParlayID          string                 `json:"parlay_id" db:"parlay_id"`
	LegNumber         int                    `json:"leg_number" db:"leg_number"`
	PlayerName        string                 `json:"player_name" db:"player_name"`
	PlayerID          int                    `json:"player_id" db:"player_id"`
	Team              string                 `json:"team" db:"team"`
	StatType          StatType               `json:"stat_type" db:"stat_type"`
	Line              float64                `json:"line" db:"line"`
	Direction         Direction              `json:"direction" db:"direction"`
	Price             int                    `json:"price" db:"price"`
	EdgePct           float64                `json:"edge_pct" db:"edge_pct"`
	Confidence        float64                `json:"confidence" db:"confidence"`
	ConfidenceTier    string                 `json:"confidence_tier" db:"confidence_tier"`
	ModelProbability  float64                `json:"model_probability" db:"model_probability"`
	MarketProbability float64                `json:"market_probability" db:"market_probability"`
	Signals           map[SignalType]float64 `json:"signals" db:"-"`
	PrimaryReason     string                 `json:"primary_reason" db:"primary_reason"`
	SupportingReasons []string               `json:"supporting_reasons" db:"-"`
	ActualValue       *float64               `json:"actual_value,omitempty" db:"actual_value"`
	Result            Outcome                `json:"result" db:"result"`
	VoidReason        string                 `json:"void_reason,omitempty" db:"void_reason"`
}

// ParlayKey identifies the single parlay allowed per game and product
type ParlayKey struct {
	Season     int
	SeasonType SeasonType
	Type       ParlayType
	GameID     string
}

func (k ParlayKey) String() string {
	return fmt.Sprintf("%d:%s:%s:%s", k.Season, k.SeasonType, k.Type, k.GameID)
}

// Parlay is a group of legs for one game
type Parlay struct {
	ID                 string     `json:"id"`
	Type               ParlayType `json:"parlay_type"`
	GameID             string     `json:"game_id"`
	GameDate           time.Time  `json:"game_date"`
	HomeTeam           string     `json:"home_team"`
	AwayTeam           string     `json:"away_team"`
	GameSlot           string     `json:"game_slot"`
	TotalLegs          int        `json:"total_legs"`
	CombinedPrice      int        `json:"combined_price"`
	ImpliedProbability float64    `json:"implied_probability"`
	Narrative          string     `json:"narrative"`
	GameTotal          *float64   `json:"game_total,omitempty"`
	Spread             *float64   `json:"spread,omitempty"`
	Season             int        `json:"season"`
	SeasonType         SeasonType `json:"season_type"`
	CreatedAt          time.Time  `json:"created_at"`

	Legs       []Leg       `json:"legs"`
	Settlement *Settlement `json:"settlement,omitempty"`
}

// Key returns the uniqueness key of the parlay
func (p Parlay) Key() ParlayKey {
	return ParlayKey{Season: p.Season, SeasonType: p.SeasonType, Type: p.Type, GameID: p.GameID}
}

// Players returns the player names of every leg in order
func (p Parlay) Players() []string {
	names := make([]string, 0, len(p.Legs))
	for _, l := range p.Legs {
		names = append(names, l.PlayerName)
	}
	return names
}

// Settlement is the resolution record of a parlay
type Settlement struct {
	ID        string    `json:"id" db:"id"`
	ParlayID  string    `json:"parlay_id" db:"parlay_id"`
	LegsHit   int       `json:"legs_hit" db:"legs_hit"`
	TotalLegs int       `json:"total_legs" db:"total_legs"`
	Result    Outcome   `json:"result" db:"result"`
	Profit    float64   `json:"profit" db:"profit"`
	SettledAt time.Time `json:"settled_at" db:"settled_at"`
}

// PerformanceSummary aggregates settled parlays
type PerformanceSummary struct {
	Season      int        `json:"season,omitempty"`
	SeasonType  SeasonType `json:"season_type,omitempty"`
	Parlays     int        `json:"parlays"`
	Wins        int        `json:"wins"`
	Losses      int        `json:"losses"`
	Voids       int        `json:"voids"`
	WinRate     float64    `json:"win_rate"`
	LegsHit     int        `json:"legs_hit"`
	LegsTotal   int        `json:"legs_total"`
	LegHitRate  float64    `json:"leg_hit_rate"`
	TotalProfit float64    `json:"total_profit"`
}
