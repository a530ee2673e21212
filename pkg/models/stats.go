package models

import (
	"math"
	"time"
)

// High-value player thresholds
const (
	HighValueMinMinutes = 25.0
	HighValueMinGames   = 15
	HighValueMinUsage   = 18.0
)

// PlayerRef resolves a market name to the statistics provider's id
type PlayerRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Team string `json:"team"`
}

// GameLog is one game of a player's history, newest first when returned
// as a sequence
type GameLog struct {
	GameID   string             `json:"game_id"`
	GameDate time.Time          `json:"game_date"`
	Matchup  string             `json:"matchup"`
	Minutes  float64            `json:"minutes"`
	Stats    map[string]float64 `json:"stats"`
}

// SeasonAverages are per-game averages for the current season
type SeasonAverages struct {
	PlayerID       int                `json:"player_id"`
	GamesPlayed    int                `json:"games_played"`
	MinutesPerGame float64            `json:"minutes_per_game"`
	UsagePct       float64            `json:"usage_pct"`
	Stats          map[string]float64 `json:"stats"`

	RebFrequency      float64 `json:"reb_frequency,omitempty"`
	ContestedRebPct   float64 `json:"contested_reb_pct,omitempty"`
	UncontestedRebPct float64 `json:"uncontested_reb_pct,omitempty"`
	PassToAstRate     float64 `json:"pass_to_ast_rate,omitempty"`
}

// IsHighValue reports whether the player is stable enough to model
func (a SeasonAverages) IsHighValue() bool {
	return a.MinutesPerGame >= HighValueMinMinutes &&
		a.GamesPlayed >= HighValueMinGames &&
		a.UsagePct >= HighValueMinUsage
}

// TeamDefense holds the opponent metrics used by the matchup signal
type TeamDefense struct {
	Team      string  `json:"team"`
	DefRating float64 `json:"def_rating"`
	Pace      float64 `json:"pace"`
	OrebPct   float64 `json:"oreb_pct,omitempty"`
	DrebPct   float64 `json:"dreb_pct,omitempty"`
}

// ScheduleContext describes rest for a team ahead of a game date
type ScheduleContext struct {
	Team     string `json:"team"`
	IsB2B    bool   `json:"is_b2b"`
	Is3In4   bool   `json:"is_3_in_4"`
	DaysRest int    `json:"days_rest"`
}

// RecentAverage averages a stat and minutes over the first n logs
func RecentAverage(logs []GameLog, stat StatType, n int) (avg, minutes float64, count int) {
	if n > len(logs) {
		n = len(logs)
	}
	var total, mins float64
	for _, g := range logs[:n] {
		v, ok := stat.Sum(g.Stats)
		if !ok {
			continue
		}
		total += v
		mins += g.Minutes
		count++
	}
	if count == 0 {
		return 0, 0, 0
	}
	return total / float64(count), mins / float64(count), count
}

// StdDev is the population standard deviation of a stat over logs
func StdDev(logs []GameLog, stat StatType) float64 {
	var vals []float64
	for _, g := range logs {
		if v, ok := stat.Sum(g.Stats); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) < 2 {
		return 0
	}
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	var ss float64
	for _, v := range vals {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(vals)))
}
