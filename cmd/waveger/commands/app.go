package commands

import (
	"context"
	"fmt"

	"github.com/wonny/waveger/backend/internal/batch"
	"github.com/wonny/waveger/backend/internal/chart"
	"github.com/wonny/waveger/backend/internal/contest"
	"github.com/wonny/waveger/backend/internal/contestconfig"
	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/internal/evaluator"
	"github.com/wonny/waveger/backend/internal/prediction"
	"github.com/wonny/waveger/backend/internal/stats"
	"github.com/wonny/waveger/backend/internal/user"
	"github.com/wonny/waveger/backend/pkg/config"
	"github.com/wonny/waveger/backend/pkg/database"
	"github.com/wonny/waveger/backend/pkg/logger"
	"github.com/wonny/waveger/backend/pkg/metrics"
	"github.com/wonny/waveger/backend/pkg/redis"
)

// cachePrefix namespaces every Redis key of this service
const cachePrefix = "waveger"

// app holds every wired component. Commands build one with newApp.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	redis   *redis.Client
	metrics *metrics.Metrics
	rules   *contestconfig.Config

	contests       *contest.Service
	predictionRepo *prediction.Repository
	predictions    *prediction.Service
	users          *user.Repository
	charts         *chart.Repository
	snapshots      *chart.Adapter
	stats          *stats.Service
	processor      *batch.Processor
	cycle          *batch.Cycle
}

// newApp loads config and rules, connects to Postgres and Redis and wires
// the services
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	path := cfg.Contest.RulesPath
	if rulesPath != "" {
		path = rulesPath
	}
	rules, _, err := contestconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load contest rules: %w", err)
	}
	if hash, err := contestconfig.Hash(rules); err == nil {
		log.WithFields(map[string]interface{}{
			"rules_id": rules.Meta.RulesID,
			"version":  rules.Meta.Version,
			"hash":     hash[:12],
		}).Debug("Contest rules loaded")
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rdb = redis.Disabled()
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		redis:   rdb,
		metrics: metrics.New(),
		rules:   rules,
	}
	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	zl := a.log.Zerolog()
	clock := contracts.SystemClock{}
	cache := redis.NewCache(a.redis, cachePrefix)

	a.contests = contest.NewService(contest.NewRepository(a.db.Pool), a.rules, clock, zl)
	a.predictionRepo = prediction.NewRepository(a.db.Pool)
	a.predictions = prediction.NewService(a.predictionRepo, a.contests, a.rules, clock, a.metrics, zl)
	a.users = user.NewRepository(a.db.Pool)
	a.charts = chart.NewRepository(a.db.Pool)

	provider, err := chart.NewProvider(a.cfg.Chart, redis.NewRateLimiter(a.redis, cachePrefix), a.log)
	if err != nil {
		return fmt.Errorf("chart provider: %w", err)
	}
	a.snapshots = chart.NewAdapter(provider, a.charts, a.contests, cache, a.metrics, zl)

	a.stats = stats.NewService(a.predictionRepo, a.contests, stats.NewRepository(a.db.Pool), a.users, cache, zl)

	a.processor = batch.NewProcessor(
		a.predictionRepo,
		a.contests,
		a.snapshots,
		evaluator.New(),
		batch.NewPGCommitter(a.db),
		a.rules,
		clock,
		a.metrics,
		zl,
	)
	a.cycle = batch.NewCycle(a.contests, a.processor, a.stats, a.users, a.metrics, zl)
	return nil
}

// serveMetrics exposes /metrics when enabled, until ctx ends
func (a *app) serveMetrics(ctx context.Context) {
	if !a.cfg.MetricsEnabled {
		return
	}
	go func() {
		if err := a.metrics.Serve(ctx, ":"+a.cfg.MetricsPort, a.log.Component("metrics")); err != nil {
			a.log.WithError(err).Error("Metrics server failed")
		}
	}()
}

// Close releases connections
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
