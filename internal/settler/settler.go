package settler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/metrics"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/contracts"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/oddsmath"
)

var (
	// ErrNoBoxScore means no box score covers the parlay's game
	ErrNoBoxScore = errors.New("no box score for game")

	// ErrGameNotFinal means the game has not finished yet
	ErrGameNotFinal = errors.New("game not final")
)

// Void reasons recorded on legs
const (
	ReasonGameVoided     = "game postponed or cancelled"
	ReasonPlayerNotFound = "player not found in box score"
	ReasonDidNotPlay     = "did not play"
	ReasonUnknownStat    = "stat not available in box score"
)

// Policy decides how PUSH and VOID legs affect a parlay
type Policy string

const (
	// PolicyReduce drops the leg and settles on the remaining legs
	PolicyReduce Policy = "reduce"
	// PolicyLoss treats the leg as a miss
	PolicyLoss Policy = "loss"
)

// Config controls settlement
type Config struct {
	Stake      float64       `mapstructure:"stake"`
	VoidPolicy Policy        `mapstructure:"void_policy"`
	PushPolicy Policy        `mapstructure:"push_policy"`
	Interval   time.Duration `mapstructure:"interval"`
}

// DefaultConfig returns sportsbook-convention settlement at a $100 stake
func DefaultConfig() Config {
	return Config{
		Stake:      100,
		VoidPolicy: PolicyReduce,
		PushPolicy: PolicyReduce,
		Interval:   time.Hour,
	}
}

// Validate checks stake, interval and policies
func (c Config) Validate() error {
	if c.Stake <= 0 {
		return fmt.Errorf("settlement stake must be positive, got %v", c.Stake)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("settlement interval must be positive, got %s", c.Interval)
	}
	for name, p := range map[string]Policy{"void_policy": c.VoidPolicy, "push_policy": c.PushPolicy} {
		if p != PolicyReduce && p != PolicyLoss {
			return fmt.Errorf("settlement %s must be %q or %q, got %q", name, PolicyReduce, PolicyLoss, p)
		}
	}
	return nil
}

// Summary reports one settlement pass
type Summary struct {
	Date           time.Time `json:"date"`
	ParlaysFound   int       `json:"parlays_found"`
	ParlaysSettled int       `json:"parlays_settled"`
	Wins           int       `json:"wins"`
	Losses         int       `json:"losses"`
	Voids          int       `json:"voids"`
	Errors         []string  `json:"errors,omitempty"`
}

// Settler resolves stored parlays against box scores
type Settler struct {
	store     contracts.ParlayStore
	boxes     contracts.BoxScoreSource
	publisher contracts.EventPublisher
	config    Config
	metrics   *metrics.Registry
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSettler creates a new settler. publisher and m may be nil.
func NewSettler(store contracts.ParlayStore, boxes contracts.BoxScoreSource, publisher contracts.EventPublisher, config Config, m *metrics.Registry, logger zerolog.Logger) *Settler {
	return &Settler{
		store:     store,
		boxes:     boxes,
		publisher: publisher,
		config:    config,
		metrics:   m,
		logger:    logger.With().Str("component", "settler").Logger(),
		now:       time.Now,
	}
}

// SettleDate settles every unsettled parlay dated on or before date. Parlays
// whose game has no final box score yet are left for a later run. Only a
// failure to read the pending parlays is returned as an error.
func (s *Settler) SettleDate(ctx context.Context, date time.Time) (Summary, error) {
	summary := Summary{Date: date}
	log := s.logger.With().Str("date", date.Format("2006-01-02")).Logger()

	parlays, err := s.store.GetUnsettledParlays(ctx, date.AddDate(0, 0, 1))
	if err != nil {
		return summary, fmt.Errorf("get unsettled parlays: %w", err)
	}
	summary.ParlaysFound = len(parlays)
	if len(parlays) == 0 {
		log.Info().Msg("no unsettled parlays")
		return summary, nil
	}
	log.Info().Int("parlays", len(parlays)).Msg("settling parlays")

	for _, day := range gameDays(parlays) {
		boxes, err := s.boxes.BoxScores(ctx, day)
		if err != nil {
			log.Warn().Err(err).Time("game_date", day).Msg("box scores unavailable")
			summary.Errors = append(summary.Errors, fmt.Sprintf("box scores %s: %v", day.Format("2006-01-02"), err))
			continue
		}

		for _, p := range parlays {
			if dayKey(p.GameDate) != dayKey(day) {
				continue
			}
			settlement, err := s.settleOne(ctx, p, boxes)
			if err != nil {
				if errors.Is(err, ErrGameNotFinal) {
					log.Debug().Str("parlay_id", p.ID).Str("game_id", p.GameID).Msg("game not final, skipping")
					continue
				}
				log.Error().Err(err).Str("parlay_id", p.ID).Str("game_id", p.GameID).Msg("settle parlay failed")
				summary.Errors = append(summary.Errors, fmt.Sprintf("parlay %s: %v", shortID(p.ID), err))
				continue
			}

			summary.ParlaysSettled++
			switch settlement.Result {
			case models.OutcomeWin:
				summary.Wins++
			case models.OutcomeLoss:
				summary.Losses++
			default:
				summary.Voids++
			}
		}
	}

	log.Info().
		Int("settled", summary.ParlaysSettled).
		Int("wins", summary.Wins).
		Int("losses", summary.Losses).
		Int("voids", summary.Voids).
		Int("errors", len(summary.Errors)).
		Msg("settlement complete")
	return summary, nil
}

// settleOne settles and records a single parlay, converting a panic into an error
func (s *Settler) settleOne(ctx context.Context, p models.Parlay, boxes []models.BoxScore) (settlement models.Settlement, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic settling parlay %s: %v", p.ID, r)
		}
	}()

	box := findBoxScore(p, boxes)
	settlement, legs, err := s.SettleParlay(p, box)
	if err != nil {
		return settlement, err
	}

	if err := s.store.RecordSettlement(ctx, settlement, legs); err != nil {
		return settlement, fmt.Errorf("record settlement: %w", err)
	}

	for _, leg := range legs {
		s.metrics.ObserveLeg(string(leg.Result))
	}
	s.metrics.ObserveSettlement(string(settlement.Result))

	s.logger.Info().
		Str("parlay_id", p.ID).
		Str("game_id", p.GameID).
		Str("result", string(settlement.Result)).
		Int("legs_hit", settlement.LegsHit).
		Int("total_legs", settlement.TotalLegs).
		Float64("profit", settlement.Profit).
		Msg("settled parlay")

	if s.publisher != nil {
		p.Legs = legs
		if err := s.publisher.PublishSettlement(ctx, p, settlement); err != nil {
			s.logger.Warn().Err(err).Str("parlay_id", p.ID).Msg("publish settlement failed")
		}
	}
	return settlement, nil
}

// SettleParlay resolves every leg of p against box and rolls them up. box
// may be nil, which is an ErrNoBoxScore. The input parlay is not modified.
func (s *Settler) SettleParlay(p models.Parlay, box *models.BoxScore) (models.Settlement, []models.Leg, error) {
	if len(p.Legs) == 0 {
		return models.Settlement{}, nil, fmt.Errorf("parlay %s has no legs", p.ID)
	}
	if box == nil {
		return models.Settlement{}, nil, fmt.Errorf("%w %s (%s @ %s)", ErrNoBoxScore, p.GameID, p.AwayTeam, p.HomeTeam)
	}

	legs := make([]models.Leg, len(p.Legs))
	switch {
	case box.Status.IsVoiding():
		for i, leg := range p.Legs {
			legs[i] = voidLeg(leg, ReasonGameVoided)
		}
	case box.Status == models.GameFinal:
		players := newRoster(box.Players)
		for i, leg := range p.Legs {
			legs[i] = SettleLeg(leg, players.find(leg.PlayerName, leg.Team))
		}
	default:
		return models.Settlement{}, nil, fmt.Errorf("%w: %s is %s", ErrGameNotFinal, box.GameID, box.Status)
	}

	result := RollUp(legs, s.config.VoidPolicy, s.config.PushPolicy)
	profit, err := s.profit(p, legs, result)
	if err != nil {
		return models.Settlement{}, nil, fmt.Errorf("compute profit: %w", err)
	}

	settlement := models.Settlement{
		ID:        uuid.New().String(),
		ParlayID:  p.ID,
		LegsHit:   countResult(legs, models.OutcomeWin),
		TotalLegs: len(legs),
		Result:    result,
		Profit:    profit,
		SettledAt: s.now().UTC(),
	}
	return settlement, legs, nil
}

// SettleLeg resolves a leg against the player's box score row. player is nil
// when the player could not be matched.
func SettleLeg(leg models.Leg, player *models.PlayerLine) models.Leg {
	if player == nil {
		return voidLeg(leg, ReasonPlayerNotFound)
	}
	if !player.Played() {
		settled := voidLeg(leg, ReasonDidNotPlay)
		zero := 0.0
		settled.ActualValue = &zero
		return settled
	}

	actual, ok := player.Value(leg.StatType)
	if !ok {
		return voidLeg(leg, ReasonUnknownStat)
	}
	leg.ActualValue = &actual
	leg.VoidReason = ""

	switch {
	case actual == leg.Line:
		leg.Result = models.OutcomePush
	case leg.Direction == models.DirectionUnder:
		leg.Result = lossUnless(actual < leg.Line)
	default:
		leg.Result = lossUnless(actual > leg.Line)
	}
	return leg
}

// RollUp derives the parlay result from settled legs. Any LOSS loses; all
// VOID is VOID. PUSH and VOID legs are dropped under PolicyReduce and count
// as a miss under PolicyLoss. A parlay left with no decided legs is VOID.
func RollUp(legs []models.Leg, voidPolicy, pushPolicy Policy) models.Outcome {
	wins, voids, pushes := 0, 0, 0
	for _, leg := range legs {
		switch leg.Result {
		case models.OutcomeLoss:
			return models.OutcomeLoss
		case models.OutcomeWin:
			wins++
		case models.OutcomeVoid:
			voids++
		case models.OutcomePush:
			pushes++
		default:
			return models.OutcomePending
		}
	}

	if voids == len(legs) {
		return models.OutcomeVoid
	}
	if (pushes > 0 && pushPolicy == PolicyLoss) || (voids > 0 && voidPolicy == PolicyLoss) {
		return models.OutcomeLoss
	}
	if wins == 0 {
		return models.OutcomeVoid
	}
	return models.OutcomeWin
}

// profit pays a WIN at the price of the legs that actually won, so a parlay
// reduced by VOID or PUSH legs pays at the shorter price
func (s *Settler) profit(p models.Parlay, legs []models.Leg, result models.Outcome) (float64, error) {
	switch result {
	case models.OutcomeLoss:
		return -s.config.Stake, nil
	case models.OutcomeWin:
	default:
		return 0, nil
	}

	price := p.CombinedPrice
	if hit := countResult(legs, models.OutcomeWin); hit != len(legs) || price == 0 {
		prices := make([]int, 0, hit)
		for _, leg := range legs {
			if leg.Result == models.OutcomeWin {
				prices = append(prices, leg.Price)
			}
		}
		var err error
		if price, _, err = oddsmath.CombineAmerican(prices); err != nil {
			return 0, err
		}
	}

	profit, err := oddsmath.Profit(s.config.Stake, price)
	if err != nil {
		return 0, err
	}
	return models.Round(profit, 2), nil
}

func voidLeg(leg models.Leg, reason string) models.Leg {
	leg.Result = models.OutcomeVoid
	leg.VoidReason = reason
	leg.ActualValue = nil
	return leg
}

func lossUnless(hit bool) models.Outcome {
	if hit {
		return models.OutcomeWin
	}
	return models.OutcomeLoss
}

func countResult(legs []models.Leg, o models.Outcome) int {
	n := 0
	for _, leg := range legs {
		if leg.Result == o {
			n++
		}
	}
	return n
}

// findBoxScore matches by game id first, then by the two teams
func findBoxScore(p models.Parlay, boxes []models.BoxScore) *models.BoxScore {
	for i := range boxes {
		if boxes[i].GameID == p.GameID {
			return &boxes[i]
		}
	}
	for i := range boxes {
		if boxes[i].Matches(p.HomeTeam, p.AwayTeam) {
			return &boxes[i]
		}
	}
	for i := range boxes {
		if boxes[i].HasTeam(p.HomeTeam) && boxes[i].HasTeam(p.AwayTeam) {
			return &boxes[i]
		}
	}
	return nil
}

// gameDays lists the distinct game dates of parlays, oldest first
func gameDays(parlays []models.Parlay) []time.Time {
	seen := make(map[string]bool)
	var days []time.Time
	for _, p := range parlays {
		if key := dayKey(p.GameDate); !seen[key] {
			seen[key] = true
			days = append(days, p.GameDate)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
