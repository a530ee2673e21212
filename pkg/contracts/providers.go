package contracts

import (
	"context"
	"time"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// SignalEvaluator scores one statistical dimension of a prop
type SignalEvaluator interface {
	// Type returns the signal this evaluator produces
	Type() models.SignalType

	// Evaluate never fails; missing inputs lower the confidence instead
	Evaluate(pc models.PropContext) models.SignalResult
}

// StatsProvider supplies player and team statistics
type StatsProvider interface {
	// FindPlayer resolves a market player name to the provider's id
	FindPlayer(ctx context.Context, name string) (models.PlayerRef, error)

	// RecentGames returns up to lookback games, newest first
	RecentGames(ctx context.Context, playerID int, lookback int) ([]models.GameLog, error)

	// SeasonAverages returns per-stat averages and games played
	SeasonAverages(ctx context.Context, playerID int) (models.SeasonAverages, error)

	// TeamDefense returns defensive rating and pace for a team abbreviation
	TeamDefense(ctx context.Context, team string) (models.TeamDefense, error)

	// ScheduleContext returns rest flags for a team ahead of date
	ScheduleContext(ctx context.Context, team string, date time.Time) (models.ScheduleContext, error)
}

// MarketProvider supplies games and lines from the odds market
type MarketProvider interface {
	// Games lists the games that start on the given ET date
	Games(ctx context.Context, date time.Time) ([]models.Game, error)

	// Props returns the player props offered on a game
	Props(ctx context.Context, gameID string) ([]models.PropLine, error)

	// GameLines returns the game total and home spread
	GameLines(ctx context.Context, gameID string) (models.GameLines, error)
}

// InjuryProvider reports player availability
type InjuryProvider interface {
	// Status returns the designation for a player, available when unlisted
	Status(ctx context.Context, playerName string) (models.InjuryStatus, error)
}

// BoxScoreSource supplies final statistics for settlement
type BoxScoreSource interface {
	// BoxScores returns every game played on the given ET date
	BoxScores(ctx context.Context, date time.Time) ([]models.BoxScore, error)

	// BoxScore returns a single game by the source's id
	BoxScore(ctx context.Context, gameID string) (models.BoxScore, error)
}

// Narrator writes the human readable summary of a parlay
type Narrator interface {
	Narrate(ctx context.Context, p models.Parlay, edges []models.EdgeResult) (string, error)
}
