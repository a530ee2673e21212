package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/cache"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/edge"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/metrics"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/parlay"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/settler"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/contracts"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// Phase names used for metrics and logs
const (
	PhaseSettle   = "settle"
	PhaseGenerate = "generate"
)

// Config controls generation
type Config struct {
	RecentGames int           `mapstructure:"recent_games"`
	MinProps    int           `mapstructure:"min_props"`
	Interval    time.Duration `mapstructure:"interval"`
}

// DefaultConfig returns a five game lookback and two passes a day
func DefaultConfig() Config {
	return Config{
		RecentGames: 5,
		MinProps:    3,
		Interval:    12 * time.Hour,
	}
}

// Validate checks the generation settings
func (c Config) Validate() error {
	if c.RecentGames < 1 {
		return fmt.Errorf("recent_games must be at least 1, got %d", c.RecentGames)
	}
	if c.MinProps < 1 {
		return fmt.Errorf("min_props must be at least 1, got %d", c.MinProps)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	return nil
}

// Options select what one run does
type Options struct {
	// Date is the Eastern game date to generate for. Zero means today.
	Date time.Time
	// DryRun scores and builds without writing or settling
	DryRun bool
	// ForceRefresh drops cached box scores and regenerates games that already tipped
	ForceRefresh bool
	SettleOnly   bool
	GenerateOnly bool
	// Resettle drops cached box scores and clears the previous day's
	// settlements before settling again
	Resettle bool
	// SeasonType overrides the calendar and forces generation
	SeasonType models.SeasonType
}

// Validate rejects contradictory options
func (o Options) Validate() error {
	if o.SettleOnly && o.GenerateOnly {
		return errors.New("settle-only and generate-only are mutually exclusive")
	}
	if o.DryRun && o.Resettle {
		return errors.New("resettle writes and cannot be combined with dry-run")
	}
	if o.SeasonType != "" {
		if _, err := models.ParseSeasonType(string(o.SeasonType)); err != nil {
			return err
		}
	}
	return nil
}

// Summary reports one orchestrated run
type Summary struct {
	Date               time.Time         `json:"date"`
	Season             models.SeasonInfo `json:"season"`
	Settlement         *settler.Summary  `json:"settlement,omitempty"`
	ClearedSettlements int64             `json:"cleared_settlements,omitempty"`
	GamesFound         int               `json:"games_found"`
	GamesSkipped       int               `json:"games_skipped"`
	PropsEvaluated     int               `json:"props_evaluated"`
	ParlaysGenerated   int               `json:"parlays_generated"`
	LegsGenerated      int               `json:"legs_generated"`
	Parlays            []models.Parlay   `json:"parlays,omitempty"`
	Errors             []string          `json:"errors,omitempty"`
}

// Settler settles every pending parlay up to a date
type Settler interface {
	SettleDate(ctx context.Context, date time.Time) (settler.Summary, error)
}

// Locker keeps runs from overlapping
type Locker interface {
	Acquire(ctx context.Context) (func(context.Context) error, error)
}

// PhaseAware is implemented by stats sources that keep separate tables per
// phase of the season
type PhaseAware interface {
	UsePhase(phase models.SeasonType)
}

// Invalidator drops cached box scores for a date
type Invalidator interface {
	Invalidate(ctx context.Context, date time.Time) error
}

// Deps are the collaborators of the orchestrator. Publisher, Cache, Lock and
// Metrics may be nil.
type Deps struct {
	Market     contracts.MarketProvider
	Stats      contracts.StatsProvider
	Injuries   contracts.InjuryProvider
	Store      contracts.ParlayStore
	Settler    Settler
	Calculator *edge.Calculator
	Builder    *parlay.Builder
	Publisher  contracts.EventPublisher
	Cache      Invalidator
	Lock       Locker
	Metrics    *metrics.Registry
}

// Orchestrator settles yesterday and generates today's parlays
type Orchestrator struct {
	deps   Deps
	config Config
	logger zerolog.Logger
	now    func() time.Time

	// serializes scheduled passes in this process, with or without Redis
	mu sync.Mutex
}

// New creates an orchestrator
func New(deps Deps, config Config, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		config: config,
		logger: logger.With().Str("component", "orchestrator").Logger(),
		now:    time.Now,
	}
}

// Today is the current Eastern date
func (o *Orchestrator) Today() time.Time {
	return models.EasternDate(o.now())
}

// Start runs the pipeline for the current day on every tick until ctx is done
func (o *Orchestrator) Start(ctx context.Context, opts Options) error {
	return o.Every(ctx, o.config.Interval, opts)
}

// Every runs the pipeline with opts every interval until ctx is done.
// Scheduled passes of one process run one at a time, and each takes the run
// lock; a pass that finds the lock held by another process is skipped.
func (o *Orchestrator) Every(ctx context.Context, interval time.Duration, opts Options) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	o.runSafe(ctx, opts)

	for {
		select {
		case <-ticker.C:
			o.runSafe(ctx, opts)
		case <-ctx.Done():
			return nil
		}
	}
}

func (o *Orchestrator) runSafe(ctx context.Context, opts Options) {
	o.mu.Lock()
	defer o.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Interface("panic", r).Msg("pipeline run panicked")
		}
	}()
	opts.Date = time.Time{}
	if _, err := o.Run(ctx, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		if errors.Is(err, cache.ErrLocked) {
			o.logger.Info().Bool("settle_only", opts.SettleOnly).Msg("another run holds the lock, skipping")
			return
		}
		o.logger.Error().Err(err).Msg("pipeline run failed")
	}
}

// Run settles the day before opts.Date and then generates opts.Date. Only a
// lock conflict, bad options or a failure to list games are returned as
// errors; per-game problems land in Summary.Errors.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Summary, error) {
	if err := opts.Validate(); err != nil {
		return Summary{}, fmt.Errorf("invalid options: %w", err)
	}

	date := opts.Date
	if date.IsZero() {
		date = o.Today()
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	summary := Summary{Date: date, Season: SeasonFor(date)}
	if opts.SeasonType != "" {
		summary.Season.Type = opts.SeasonType
		summary.Season.ShouldRun = true
		summary.Season.IsCupPeriod = opts.SeasonType == models.SeasonCup
	}

	if o.deps.Lock != nil && !opts.DryRun {
		release, err := o.deps.Lock.Acquire(ctx)
		if err != nil {
			return summary, fmt.Errorf("acquire run lock: %w", err)
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				o.logger.Warn().Err(err).Msg("failed to release run lock")
			}
		}()
	}

	log := o.logger.With().
		Str("date", date.Format("2006-01-02")).
		Int("season", summary.Season.Season).
		Str("season_type", string(summary.Season.Type)).
		Logger()
	log.Info().
		Bool("dry_run", opts.DryRun).
		Bool("force_refresh", opts.ForceRefresh).
		Msg("pipeline run started")

	if !opts.GenerateOnly {
		if opts.DryRun {
			log.Info().Msg("dry run, skipping settlement")
		} else {
			o.settle(ctx, date.AddDate(0, 0, -1), opts, &summary)
		}
	}

	if !opts.SettleOnly {
		if !summary.Season.ShouldRun {
			log.Info().Msg("no generation during this phase of the season")
		} else if err := o.generate(ctx, date, opts, &summary); err != nil {
			return summary, err
		}
	}

	log.Info().
		Int("games", summary.GamesFound).
		Int("skipped", summary.GamesSkipped).
		Int("props", summary.PropsEvaluated).
		Int("parlays", summary.ParlaysGenerated).
		Int("legs", summary.LegsGenerated).
		Int("errors", len(summary.Errors)).
		Msg("pipeline run complete")
	return summary, nil
}

func (o *Orchestrator) settle(ctx context.Context, date time.Time, opts Options, summary *Summary) {
	started := time.Now()
	log := o.logger.With().Str("date", date.Format("2006-01-02")).Logger()

	// Re-settlement exists to pick up stat corrections, so it always refetches
	if (opts.ForceRefresh || opts.Resettle) && o.deps.Cache != nil {
		if err := o.deps.Cache.Invalidate(ctx, date); err != nil {
			log.Warn().Err(err).Msg("failed to invalidate box score cache")
		}
	}

	if opts.Resettle {
		cleared, err := o.deps.Store.ClearSettlementsForDate(ctx, date)
		if err != nil {
			log.Error().Err(err).Msg("failed to clear settlements")
			summary.Errors = append(summary.Errors, fmt.Sprintf("clear settlements: %v", err))
			o.deps.Metrics.ObservePhase(PhaseSettle, started, err)
			return
		}
		summary.ClearedSettlements = cleared
		log.Info().Int64("cleared", cleared).Msg("cleared settlements for re-settlement")
	}

	result, err := o.deps.Settler.SettleDate(ctx, date)
	o.deps.Metrics.ObservePhase(PhaseSettle, started, err)
	if err != nil {
		log.Error().Err(err).Msg("settlement failed")
		summary.Errors = append(summary.Errors, fmt.Sprintf("settle %s: %v", date.Format("2006-01-02"), err))
		return
	}
	summary.Settlement = &result
	summary.Errors = append(summary.Errors, result.Errors...)
}

func (o *Orchestrator) generate(ctx context.Context, date time.Time, opts Options, summary *Summary) (err error) {
	started := time.Now()
	defer func() { o.deps.Metrics.ObservePhase(PhaseGenerate, started, err) }()

	games, err := o.deps.Market.Games(ctx, date)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	summary.GamesFound = len(games)
	if len(games) == 0 {
		o.logger.Info().Str("date", date.Format("2006-01-02")).Msg("no games scheduled")
		return nil
	}

	if pa, ok := o.deps.Stats.(PhaseAware); ok {
		pa.UsePhase(summary.Season.Type)
	}

	run := newRunCache(o.deps.Stats, o.deps.Injuries)
	now := o.now()
	for _, game := range games {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !opts.ForceRefresh && !game.CommenceTime.After(now) {
			o.logger.Info().Str("game_id", game.ID).Msg("game already started, skipping")
			summary.GamesSkipped++
			continue
		}

		p, err := o.processGame(ctx, game, summary.Season, run, summary)
		if err != nil {
			if errors.Is(err, errSkipped) {
				summary.GamesSkipped++
				continue
			}
			o.logger.Error().Err(err).Str("game_id", game.ID).Msg("game failed")
			summary.Errors = append(summary.Errors, fmt.Sprintf("game %s: %v", game.ID, err))
			continue
		}

		if !opts.DryRun {
			if err := o.deps.Store.UpsertParlay(ctx, p); err != nil {
				o.logger.Error().Err(err).Str("game_id", game.ID).Msg("failed to store parlay")
				summary.Errors = append(summary.Errors, fmt.Sprintf("store %s: %v", game.ID, err))
				continue
			}
			o.publish(ctx, *p)
		}

		summary.ParlaysGenerated++
		summary.LegsGenerated += len(p.Legs)
		summary.Parlays = append(summary.Parlays, *p)
		o.deps.Metrics.ObserveParlay(string(p.SeasonType), len(p.Legs))
	}
	return nil
}

var errSkipped = errors.New("game skipped")

// processGame scores every prop of one game and builds its parlay. A panic
// fails the game, not the run.
func (o *Orchestrator) processGame(ctx context.Context, game models.Game, season models.SeasonInfo, run *runCache, summary *Summary) (p *models.Parlay, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing game: %v", r)
		}
	}()

	log := o.logger.With().
		Str("game_id", game.ID).
		Str("matchup", game.AwayTeam+" @ "+game.HomeTeam).
		Logger()

	props, err := o.deps.Market.Props(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("get props: %w", err)
	}
	if len(props) < o.config.MinProps {
		log.Info().Int("props", len(props)).Msg("not enough props, skipping")
		return nil, errSkipped
	}

	lines, err := o.deps.Market.GameLines(ctx, game.ID)
	if err != nil {
		log.Warn().Err(err).Msg("game lines unavailable")
		lines = models.GameLines{}
	}

	results := make([]models.EdgeResult, 0, len(props))
	for _, prop := range props {
		pc, ok := o.buildContext(ctx, run, game, lines, prop, log)
		if !ok {
			continue
		}
		results = append(results, o.deps.Calculator.Calculate(pc))
	}
	summary.PropsEvaluated += len(results)
	o.deps.Metrics.ObserveProps(len(results))

	p, err = o.deps.Builder.Build(ctx, game, lines, season, results)
	if err != nil {
		if errors.Is(err, parlay.ErrInsufficientLegs) {
			log.Info().Int("scored", len(results)).Msg("not enough qualifying legs")
			return nil, errSkipped
		}
		return nil, err
	}

	log.Info().
		Str("parlay_id", p.ID).
		Int("legs", len(p.Legs)).
		Int("price", p.CombinedPrice).
		Msg("parlay built")
	return p, nil
}

func (o *Orchestrator) publish(ctx context.Context, p models.Parlay) {
	if o.deps.Publisher == nil {
		return
	}
	if err := o.deps.Publisher.PublishParlay(ctx, p); err != nil {
		o.logger.Warn().Err(err).Str("parlay_id", p.ID).Msg("failed to publish parlay")
	}
}
