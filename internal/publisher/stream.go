package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// Stream keys
const (
	ParlayStream     = "sgp.parlays.basketball_nba"
	SettlementStream = "sgp.settlements.basketball_nba"

	defaultMaxLen = 10000
)

// StreamPublisher publishes parlays and settlements to Redis streams
type StreamPublisher struct {
	client redis.Cmdable
	maxLen int64
}

// NewStreamPublisher creates a new stream publisher
func NewStreamPublisher(client redis.Cmdable) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		maxLen: defaultMaxLen,
	}
}

// PublishParlay publishes a generated parlay
func (p *StreamPublisher) PublishParlay(ctx context.Context, parlay models.Parlay) error {
	data, err := json.Marshal(parlay)
	if err != nil {
		return fmt.Errorf("marshaling parlay: %w", err)
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: ParlayStream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: []interface{}{
			"data", string(data),
			"parlay_id", parlay.ID,
			"game_id", parlay.GameID,
			"type", "parlay",
		},
	}).Err()
}

// settlementEvent is the payload of a settlement message
type settlementEvent struct {
	Parlay     models.Parlay     `json:"parlay"`
	Settlement models.Settlement `json:"settlement"`
}

// PublishSettlement publishes a settled parlay with its result
func (p *StreamPublisher) PublishSettlement(ctx context.Context, parlay models.Parlay, s models.Settlement) error {
	data, err := json.Marshal(settlementEvent{Parlay: parlay, Settlement: s})
	if err != nil {
		return fmt.Errorf("marshaling settlement: %w", err)
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: SettlementStream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: []interface{}{
			"data", string(data),
			"parlay_id", parlay.ID,
			"game_id", parlay.GameID,
			"result", string(s.Result),
			"type", "settlement",
		},
	}).Err()
}
