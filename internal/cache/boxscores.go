package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/metrics"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/contracts"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// TTL constants
const (
	BoxScoreTTL = 6 * time.Hour
	GameDayTTL  = 24 * time.Hour
)

const (
	SportKey = "basketball_nba"

	cacheName    = "boxscore"
	dateKeyStyle = "2006-01-02"
)

// BoxScoreKey is the key of one game's box score
func BoxScoreKey(gameID string) string {
	return fmt.Sprintf("game:%s:boxscore", gameID)
}

// GameDayKey is the key of every box score of one date
func GameDayKey(date time.Time) string {
	return fmt.Sprintf("games:boxscores:%s:%s", SportKey, date.Format(dateKeyStyle))
}

// BoxScoreCache serves box scores from Redis in front of a source. Only
// settled games are cached: final, postponed or cancelled.
type BoxScoreCache struct {
	client  redis.Cmdable
	source  contracts.BoxScoreSource
	metrics *metrics.Registry
	logger  zerolog.Logger
}

// NewBoxScoreCache wraps source with a Redis cache. m may be nil.
func NewBoxScoreCache(client redis.Cmdable, source contracts.BoxScoreSource, m *metrics.Registry, logger zerolog.Logger) *BoxScoreCache {
	return &BoxScoreCache{
		client:  client,
		source:  source,
		metrics: m,
		logger:  logger.With().Str("component", "boxscore_cache").Logger(),
	}
}

// BoxScores returns a date's games. The day is cached only once no game on
// it can change.
func (c *BoxScoreCache) BoxScores(ctx context.Context, date time.Time) ([]models.BoxScore, error) {
	key := GameDayKey(date)

	var cached []models.BoxScore
	if c.read(ctx, key, &cached) {
		return cached, nil
	}

	boxes, err := c.source.BoxScores(ctx, date)
	if err != nil {
		return nil, err
	}

	complete := len(boxes) > 0
	for i := range boxes {
		if !settled(boxes[i]) {
			complete = false
			continue
		}
		c.write(ctx, BoxScoreKey(boxes[i].GameID), boxes[i], BoxScoreTTL)
	}
	if complete {
		c.write(ctx, key, boxes, GameDayTTL)
	}
	return boxes, nil
}

// BoxScore returns one game, from cache when settled
func (c *BoxScoreCache) BoxScore(ctx context.Context, gameID string) (models.BoxScore, error) {
	key := BoxScoreKey(gameID)

	var cached models.BoxScore
	if c.read(ctx, key, &cached) {
		return cached, nil
	}

	box, err := c.source.BoxScore(ctx, gameID)
	if err != nil {
		return models.BoxScore{}, err
	}
	if settled(box) {
		c.write(ctx, key, box, BoxScoreTTL)
	}
	return box, nil
}

// Invalidate drops a date's cached day list so the next read refetches
func (c *BoxScoreCache) Invalidate(ctx context.Context, date time.Time) error {
	if err := c.client.Del(ctx, GameDayKey(date)).Err(); err != nil {
		return fmt.Errorf("invalidate %s: %w", date.Format(dateKeyStyle), err)
	}
	return nil
}

func (c *BoxScoreCache) read(ctx context.Context, key string, out interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.metrics.ObserveCache(cacheName, false)
		return false
	case err != nil:
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		c.metrics.ObserveCache(cacheName, false)
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding corrupt cache entry")
		c.metrics.ObserveCache(cacheName, false)
		return false
	}
	c.metrics.ObserveCache(cacheName, true)
	return true
}

func (c *BoxScoreCache) write(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("marshaling cache entry")
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func settled(b models.BoxScore) bool {
	return b.Status == models.GameFinal || b.Status.IsVoiding()
}
