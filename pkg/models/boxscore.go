package models

import (
	"strings"
	"time"
)

// GameStatus is the lifecycle state of a game on the schedule
type GameStatus string

const (
	GameUpcoming  GameStatus = "upcoming"
	GameLive      GameStatus = "live"
	GameFinal     GameStatus = "final"
	GamePostponed GameStatus = "postponed"
	GameCancelled GameStatus = "cancelled"
	// GameUnknown is a finished game whose box score could not be read
	GameUnknown GameStatus = "unknown"
)

// IsVoiding reports whether every bet on the game must be refunded
func (s GameStatus) IsVoiding() bool {
	return s == GamePostponed || s == GameCancelled
}

// BoxScore holds the final per-player statistics of one game
type BoxScore struct {
	GameID   string       `json:"game_id"`
	GameDate time.Time    `json:"game_date"`
	HomeTeam string       `json:"home_team"`
	AwayTeam string       `json:"away_team"`
	Status   GameStatus   `json:"status"`
	Players  []PlayerLine `json:"players"`
}

// PlayerLine is one player's row in a box score
type PlayerLine struct {
	PlayerID   string             `json:"player_id"`
	PlayerName string             `json:"player_name"`
	Team       string             `json:"team"`
	Minutes    float64            `json:"minutes"`
	DNP        bool               `json:"dnp,omitempty"`
	Stats      map[string]float64 `json:"stats"`
}

// Value returns the stat total for the row. ok is false when any
// component column is missing.
func (p PlayerLine) Value(stat StatType) (float64, bool) {
	return stat.Sum(p.Stats)
}

// Played reports whether the player logged any minutes
func (p PlayerLine) Played() bool {
	return !p.DNP && p.Minutes > 0
}

// HasTeam reports whether team is one of the two sides
func (b BoxScore) HasTeam(team string) bool {
	return strings.EqualFold(b.HomeTeam, team) || strings.EqualFold(b.AwayTeam, team)
}

// Matches reports whether the box score covers the given pairing
func (b BoxScore) Matches(home, away string) bool {
	return strings.EqualFold(b.HomeTeam, home) && strings.EqualFold(b.AwayTeam, away)
}
