package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/cache"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/config"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/edge"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/httpclient"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/logging"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/metrics"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/orchestrator"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/parlay"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/providers/espn"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/providers/nbastats"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/providers/oddsapi"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/publisher"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/repository"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/internal/settler"
	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/contracts"
)

// app holds every wired component of the engine
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.Registry
	repo    *repository.Repository
	redis   *redis.Client

	settler      *settler.Settler
	orchestrator *orchestrator.Orchestrator
}

// loadConfig reads config and applies CLI overrides
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format), nil
}

// connectDB opens Postgres and runs the schema migration when enabled
func connectDB(ctx context.Context, cfg *config.Config) (*repository.Repository, error) {
	repo, err := repository.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Migrate {
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}
	}
	return repo, nil
}

// connectRedis returns nil when Redis is disabled or unreachable. The engine
// then runs uncached and unlocked.
func connectRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid redis url, continuing without redis")
		return nil
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, continuing without redis")
		client.Close()
		return nil
	}
	return client
}

// newApp wires the full pipeline
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, metrics: metrics.NewRegistry()}

	a.repo, err = connectDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	fmt.Println("✓ Connected to Postgres")

	a.redis = connectRedis(ctx, cfg, logger)
	if a.redis != nil {
		fmt.Println("✓ Connected to Redis")
	}

	p := cfg.Providers
	oddsHTTP := httpclient.New(p.Client("odds", p.Odds), a.metrics, logger)
	espnHTTP := httpclient.New(p.Client("espn", p.ESPN), a.metrics, logger)
	statsCfg := p.Client("nba_stats", p.NBAStats)
	statsCfg.Headers = nbastats.DefaultHeaders()
	statsHTTP := httpclient.New(statsCfg, a.metrics, logger)

	market := oddsapi.New(oddsHTTP, p.Odds.BaseURL, p.OddsAPIKey, p.Bookmakers, logger)
	scores := espn.New(espnHTTP, p.ESPN.BaseURL, logger)
	stats := nbastats.New(statsHTTP, p.NBAStats.BaseURL, logger)

	deps := orchestrator.Deps{
		Market:     market,
		Stats:      stats,
		Injuries:   scores,
		Store:      a.repo,
		Calculator: edge.NewCalculator(cfg.Edge),
		Builder:    parlay.NewBuilder(cfg.Parlay, nil, logger),
		Metrics:    a.metrics,
	}

	var boxes contracts.BoxScoreSource = scores
	var events contracts.EventPublisher
	if a.redis != nil {
		boxCache := cache.NewBoxScoreCache(a.redis, scores, a.metrics, logger)
		boxes = boxCache
		deps.Cache = boxCache
		deps.Lock = cache.NewRunLock(a.redis, "pipeline", cfg.Redis.LockTTL)
		streams := publisher.NewStreamPublisher(a.redis)
		events = streams
		deps.Publisher = streams
	}

	a.settler = settler.NewSettler(a.repo, boxes, events, cfg.Settlement, a.metrics, logger)
	deps.Settler = a.settler
	a.orchestrator = orchestrator.New(deps, cfg.Generation, logger)

	return a, nil
}

// Close releases connections
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close redis")
		}
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close database")
		}
	}
}
