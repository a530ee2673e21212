package models

import "time"

// Game is a scheduled matchup as listed by the market provider
type Game struct {
	ID           string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	CommenceTime time.Time `json:"commence_time"`
}

// PropLine is one player prop offered on a game
type PropLine struct {
	PlayerName string   `json:"player_name"`
	StatType   StatType `json:"stat_type"`
	Line       float64  `json:"line"`
	OverPrice  int      `json:"over_price"`
	UnderPrice int      `json:"under_price"`
	BookKey    string   `json:"book_key"`
}

// GameLines holds the game-level total and home spread. Nil means the
// market was not offered.
type GameLines struct {
	Total  *float64 `json:"total,omitempty"`
	Spread *float64 `json:"spread,omitempty"`
}
