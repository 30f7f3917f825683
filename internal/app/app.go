package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aethersegment/backend/internal/ai"
	"github.com/aethersegment/backend/internal/cache"
	"github.com/aethersegment/backend/internal/config"
	"github.com/aethersegment/backend/internal/db"
	"github.com/aethersegment/backend/internal/events"
	"github.com/aethersegment/backend/internal/intent"
	"github.com/aethersegment/backend/internal/predicate"
	"github.com/aethersegment/backend/internal/query"
	"github.com/aethersegment/backend/internal/refine"
	"github.com/aethersegment/backend/internal/scoring"
	"github.com/aethersegment/backend/internal/segment"
	"github.com/aethersegment/backend/internal/service"
	"github.com/aethersegment/backend/internal/store"
)

// Warehouse is what the pipeline and the overview page read from.
type Warehouse interface {
	query.Warehouse
	service.StatsSource
}

type pinger interface {
	Ping(ctx context.Context) error
}

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config    config.Config
	Logger    zerolog.Logger
	Warehouse Warehouse
	Segments  *service.SegmentService
	Overview  *service.OverviewService

	closers []func()
}

func NewLogger(cfg config.Config, service string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	l := log.Level(level).With().Str("service", service).Logger()
	if cfg.Env == "dev" {
		l = l.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return l
}

// New wires every component from cfg. Unset external endpoints fall back
// to in-process implementations.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	wh, err := a.warehouse(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Warehouse = wh

	shared, err := a.cache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	segments, err := a.segmentStore()
	if err != nil {
		a.Close()
		return nil, err
	}

	publisher, err := a.publisher()
	if err != nil {
		a.Close()
		return nil, err
	}

	resolver := query.Resolver{
		Builder:   query.Builder{Registry: predicate.NewRegistry(), CartLookback: cfg.CartLookback},
		Warehouse: wh,
		Logger:    logger.With().Str("component", "resolver").Logger(),
	}

	a.Segments = &service.SegmentService{
		Interpreter: intent.Interpreter{
			Completer: a.completer(shared),
			Logger:    logger.With().Str("component", "interpreter").Logger(),
		},
		Resolver: resolver,
		Scorer:   scoring.Engine{Seed: cfg.ScoringSeed, Workers: cfg.ScoringWorkers},
		Aggregator: segment.Aggregator{
			ROI:           segment.ROIPolicy{HighThreshold: cfg.ROIHighThreshold, HighLabel: cfg.ROIHighLabel, LowLabel: cfg.ROILowLabel},
			DefaultAvgCLV: cfg.DefaultAvgCLV,
		},
		Refiner:        refine.Engine{Threshold: cfg.SensitivityThreshold, DefaultAvgCLV: cfg.DefaultAvgCLV},
		Store:          segments,
		Publisher:      publisher,
		Logger:         logger.With().Str("component", "segments").Logger(),
		MaxSegmentSize: cfg.MaxSegmentSize,
	}
	a.Overview = &service.OverviewService{
		Source:   wh,
		Resolver: resolver,
		Cache:    shared,
		TTL:      cfg.OverviewCacheTTL,
		Logger:   logger.With().Str("component", "overview").Logger(),
	}
	return a, nil
}

// Ping checks the warehouse when it is remote.
func (a *App) Ping(ctx context.Context) error {
	if p, ok := a.Warehouse.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) warehouse(ctx context.Context) (Warehouse, error) {
	if a.Config.DatabaseURL == "" || a.Config.WarehouseDemo {
		now := time.Now().UTC()
		a.Logger.Info().Msg("using generated demo warehouse")
		return db.NewMemory(db.Generate(db.DefaultFixture(now))), nil
	}
	pg, err := db.New(ctx, a.Config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect warehouse: %w", err)
	}
	a.closers = append(a.closers, pg.Close)
	return pg, nil
}

func (a *App) cache(ctx context.Context) (cache.Cache, error) {
	if a.Config.RedisURL == "" {
		return cache.NewMemory(), nil
	}
	client, err := cache.Connect(ctx, a.Config.RedisURL)
	if err != nil {
		return nil, err
	}
	r := cache.NewRedis(client, "segment:")
	a.closers = append(a.closers, func() { _ = r.Close() })
	return r, nil
}

func (a *App) segmentStore() (store.SegmentStore, error) {
	if a.Config.SegmentStorePath == "" {
		a.Logger.Warn().Msg("SEGMENT_STORE_PATH not set, segments are kept in memory")
		return store.NewMemory(), nil
	}
	s, err := store.OpenSQLite(a.Config.SegmentStorePath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = s.Close() })
	return s, nil
}

func (a *App) publisher() (events.Publisher, error) {
	brokers := events.SplitBrokers(a.Config.KafkaBrokers)
	if len(brokers) == 0 {
		return events.Nop{}, nil
	}
	p, err := events.NewKafkaPublisher(brokers, map[string]string{events.TypeSegmentCreated: a.Config.KafkaSegmentsTopic})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = p.Close() })
	return p, nil
}

func (a *App) completer(shared cache.Cache) ai.Completer {
	var c ai.Completer
	switch {
	case a.Config.AIURL != "":
		c = ai.HTTPCompleter{BaseURL: a.Config.AIURL, Client: &http.Client{Timeout: a.Config.RequestTimeout}}
		a.Logger.Info().Str("url", a.Config.AIURL).Msg("using interpretation sidecar")
	case a.Config.LLMBaseURL != "" || a.Config.LLMAPIKey != "":
		c = ai.NewOpenAICompleter(a.Config.LLMBaseURL, a.Config.LLMAPIKey, a.Config.LLMModel, a.Config.LLMTemperature, a.Config.LLMMaxTokens)
		a.Logger.Info().Str("model", a.Config.LLMModel).Msg("using openai-compatible interpreter")
	default:
		a.Logger.Info().Msg("using mock interpreter")
		return ai.MockCompleter{}
	}
	c = ai.NewRateLimited(c, a.Config.LLMRPM)
	return ai.NewCached(c, shared, a.Config.LLMCacheTTL, a.Logger.With().Str("component", "llm_cache").Logger())
}
