package contracts

import (
	"context"
	"time"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// ParlayStore is the write side used by generation and settlement
type ParlayStore interface {
	// UpsertParlay replaces any parlay with the same key, legs included
	UpsertParlay(ctx context.Context, p *models.Parlay) error

	// GetUnsettledParlays returns parlays dated before the given day with no settlement
	GetUnsettledParlays(ctx context.Context, before time.Time) ([]models.Parlay, error)

	// RecordSettlement stores leg results and the parlay settlement atomically
	RecordSettlement(ctx context.Context, s models.Settlement, legs []models.Leg) error

	// ClearSettlementsForDate removes settlements so a date can be re-settled
	ClearSettlementsForDate(ctx context.Context, date time.Time) (int64, error)
}

// ParlayReader is the read side served over HTTP
type ParlayReader interface {
	GetParlaysByDate(ctx context.Context, date time.Time) ([]models.Parlay, error)
	GetParlay(ctx context.Context, id string) (*models.Parlay, error)
	PerformanceSummary(ctx context.Context, season int, seasonType models.SeasonType) (models.PerformanceSummary, error)
}

// EventPublisher fans out generated and settled parlays
type EventPublisher interface {
	PublishParlay(ctx context.Context, p models.Parlay) error
	PublishSettlement(ctx context.Context, p models.Parlay, s models.Settlement) error
}
