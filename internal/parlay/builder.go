package parlay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/edge"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/contracts"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/oddsmath"
)

// ErrInsufficientLegs means fewer distinct-player candidates than the parlay size
var ErrInsufficientLegs = errors.New("not enough distinct-player legs")

// Config controls parlay assembly
type Config struct {
	Size    int               `mapstructure:"size"`
	Type    models.ParlayType `mapstructure:"type"`
	MinEdge float64           `mapstructure:"min_edge"`
}

// DefaultConfig returns the three-leg primary parlay
func DefaultConfig() Config {
	return Config{
		Size:    3,
		Type:    models.ParlayTypePrimary,
		MinEdge: 0.08,
	}
}

// Builder assembles same-game parlays from ranked edge results
type Builder struct {
	config   Config
	narrator contracts.Narrator
	fallback *RuleNarrator
	logger   zerolog.Logger
	now      func() time.Time
}

// NewBuilder creates a builder. narrator may be nil, in which case the
// rule-based narrative is always used.
func NewBuilder(config Config, narrator contracts.Narrator, logger zerolog.Logger) *Builder {
	return &Builder{
		config:   config,
		narrator: narrator,
		fallback: NewRuleNarrator(),
		logger:   logger.With().Str("component", "parlay_builder").Logger(),
		now:      time.Now,
	}
}

// Candidates keeps actionable results above the minimum edge, ranked by
// |edge| x confidence
func (b *Builder) Candidates(results []models.EdgeResult) []models.EdgeResult {
	var kept []models.EdgeResult
	for _, r := range edge.Actionable(results) {
		if math.Abs(r.EdgeScore) >= b.config.MinEdge {
			kept = append(kept, r)
		}
	}
	return edge.Rank(kept)
}

// SelectLegs walks a ranked list and takes the first results whose player is
// not already selected. It returns nil when fewer than the configured size
// remain.
func (b *Builder) SelectLegs(ranked []models.EdgeResult) []models.EdgeResult {
	picks := make([]models.EdgeResult, 0, b.config.Size)
	seenIDs := make(map[int]bool)
	seenNames := make(map[string]bool)

	for _, r := range ranked {
		name := models.NormalizeName(r.PlayerName)
		if seenNames[name] || (r.PlayerID != 0 && seenIDs[r.PlayerID]) {
			continue
		}
		picks = append(picks, r)
		seenNames[name] = true
		if r.PlayerID != 0 {
			seenIDs[r.PlayerID] = true
		}
		if len(picks) == b.config.Size {
			return picks
		}
	}
	return nil
}

// Build turns one game's edge results into a parlay. It returns
// ErrInsufficientLegs when the game does not support a full parlay.
func (b *Builder) Build(ctx context.Context, game models.Game, lines models.GameLines, season models.SeasonInfo, results []models.EdgeResult) (*models.Parlay, error) {
	picks := b.SelectLegs(b.Candidates(results))
	if picks == nil {
		return nil, ErrInsufficientLegs
	}

	parlayID := uuid.New().String()
	legs := make([]models.Leg, 0, len(picks))
	prices := make([]int, 0, len(picks))
	for i, pick := range picks {
		leg := NewLeg(pick, i+1)
		leg.ID = uuid.New().String()
		leg.ParlayID = parlayID
		legs = append(legs, leg)
		prices = append(prices, leg.Price)
	}

	combined, implied, err := oddsmath.CombineAmerican(prices)
	if err != nil {
		return nil, fmt.Errorf("price parlay for game %s: %w", game.ID, err)
	}

	p := &models.Parlay{
		ID:                 parlayID,
		Type:               b.config.Type,
		GameID:             game.ID,
		GameDate:           GameDate(game.CommenceTime),
		HomeTeam:           game.HomeTeam,
		AwayTeam:           game.AwayTeam,
		GameSlot:           GameSlot(game.CommenceTime),
		TotalLegs:          len(legs),
		CombinedPrice:      combined,
		ImpliedProbability: implied,
		GameTotal:          lines.Total,
		Spread:             lines.Spread,
		Season:             season.Season,
		SeasonType:         season.Type,
		CreatedAt:          b.now().UTC(),
		Legs:               legs,
	}
	p.Narrative = b.narrate(ctx, *p, picks)

	return p, nil
}

func (b *Builder) narrate(ctx context.Context, p models.Parlay, picks []models.EdgeResult) string {
	if b.narrator != nil {
		text, err := b.narrator.Narrate(ctx, p, picks)
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		if err != nil {
			b.logger.Warn().Err(err).Str("game_id", p.GameID).Msg("narrator failed, using rule-based narrative")
		}
	}
	text, _ := b.fallback.Narrate(ctx, p, picks)
	return text
}
