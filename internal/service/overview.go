package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aethersegment/backend/internal/cache"
	"github.com/aethersegment/backend/internal/models"
	"github.com/aethersegment/backend/internal/query"
	"github.com/aethersegment/backend/internal/scoring"
)

const (
	overviewCacheKey = "overview:stats"
	topCountries     = 10
)

// StatsSource serves the aggregate reads behind the overview page.
type StatsSource interface {
	KeyMetrics(ctx context.Context, now time.Time) (models.KeyMetrics, error)
	CountryDistribution(ctx context.Context, limit int) (map[string]int, error)
	ValueSegments(ctx context.Context) (map[string]int, error)
	DataHealth(ctx context.Context) (models.DataHealth, error)
}

type opportunity struct {
	title       string
	description string
	objective   models.CampaignObjective
	uplift      float64
}

var opportunities = []opportunity{
	{
		title:       "Abandoned Cart Recovery",
		description: "Above-average carts abandoned in the last 7 days",
		objective:   models.CampaignObjective{CampaignGoal: "conversion", TargetBehavior: "abandoned_cart", TimeConstraint: "7 days"},
		uplift:      0.25,
	},
	{
		title:       "Win-Back High-Value Customers",
		description: "At-risk customers with high lifetime value",
		objective:   models.CampaignObjective{CampaignGoal: "retention", TargetBehavior: "lapsed_customer", TargetSubgroup: "high_value_shopper"},
		uplift:      0.30,
	},
	{
		title:       "New Customer Onboarding",
		description: "Recently acquired customers ready for engagement",
		objective:   models.CampaignObjective{CampaignGoal: "engagement", TargetBehavior: "new_customer"},
		uplift:      0.20,
	},
	{
		title:       "Retention Campaign",
		description: "Customers who have not purchased recently",
		objective:   models.CampaignObjective{CampaignGoal: "retention", TargetBehavior: "retention"},
		uplift:      0.18,
	},
}

// OverviewService assembles dashboard statistics. Each section fails on
// its own; the failure is reported in Errors and the rest is still served.
type OverviewService struct {
	Source   StatsSource
	Resolver query.Resolver
	Cache    cache.Cache
	TTL      time.Duration
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *OverviewService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Stats returns cached statistics unless refresh is set or the entry expired.
func (s *OverviewService) Stats(ctx context.Context, refresh bool) (models.OverviewStats, error) {
	if !refresh && s.Cache != nil {
		if stats, ok := s.cached(ctx); ok {
			return stats, nil
		}
	}

	now := s.now()
	stats := models.OverviewStats{
		GeographicDistribution: map[string]int{},
		ValueSegments:          map[string]int{},
		Opportunities:          []models.CampaignOpportunity{},
		LastUpdated:            now,
	}

	var (
		mu   sync.Mutex
		errs = map[string]string{}
	)
	section := func(name string, fn func() error) func() error {
		return func() error {
			if err := fn(); err != nil {
				s.Logger.Error().Err(err).Str("section", name).Msg("overview section failed")
				mu.Lock()
				errs[name] = err.Error()
				mu.Unlock()
			}
			return nil
		}
	}

	var g errgroup.Group
	g.Go(section("metrics", func() error {
		km, err := s.Source.KeyMetrics(ctx, now)
		if err != nil {
			return err
		}
		km.AvgCLVScore = scoring.Round(km.AvgCLVScore, 3)
		stats.Metrics = &km
		return nil
	}))
	g.Go(section("geographic_distribution", func() error {
		dist, err := s.Source.CountryDistribution(ctx, topCountries)
		if err != nil {
			return err
		}
		stats.GeographicDistribution = dist
		return nil
	}))
	g.Go(section("value_segments", func() error {
		segs, err := s.Source.ValueSegments(ctx)
		if err != nil {
			return err
		}
		stats.ValueSegments = segs
		return nil
	}))
	g.Go(section("opportunities", func() error {
		opps, err := s.opportunities(ctx, now)
		if err != nil {
			return err
		}
		stats.Opportunities = opps
		return nil
	}))
	g.Go(section("data_health", func() error {
		dh, err := s.Source.DataHealth(ctx)
		if err != nil {
			return err
		}
		stats.DataHealth = &dh
		return nil
	}))
	_ = g.Wait()

	if len(errs) > 0 {
		stats.Errors = errs
	} else if s.Cache != nil {
		// partial results are not cached
		s.store(ctx, stats)
	}
	return stats, nil
}

func (s *OverviewService) opportunities(ctx context.Context, now time.Time) ([]models.CampaignOpportunity, error) {
	out := []models.CampaignOpportunity{}
	for _, o := range opportunities {
		plan := s.Resolver.Builder.Build(o.objective, now)
		n, err := s.Resolver.Warehouse.Count(ctx, plan)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		out = append(out, models.CampaignOpportunity{
			Title:           o.title,
			Description:     o.description,
			SegmentSize:     n,
			PotentialUplift: o.uplift,
		})
	}
	return out, nil
}

func (s *OverviewService) cached(ctx context.Context) (models.OverviewStats, bool) {
	raw, ok, err := s.Cache.Get(ctx, overviewCacheKey)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("overview cache read failed")
		return models.OverviewStats{}, false
	}
	if !ok {
		return models.OverviewStats{}, false
	}
	var stats models.OverviewStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.Logger.Warn().Err(err).Msg("overview cache entry is corrupt")
		return models.OverviewStats{}, false
	}
	stats.Cached = true
	return stats, true
}

func (s *OverviewService) store(ctx context.Context, stats models.OverviewStats) {
	b, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, overviewCacheKey, b, s.TTL); err != nil {
		s.Logger.Warn().Err(err).Msg("overview cache write failed")
	}
}

