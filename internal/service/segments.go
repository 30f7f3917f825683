package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aethersegment/backend/internal/events"
	"github.com/aethersegment/backend/internal/intent"
	"github.com/aethersegment/backend/internal/models"
	"github.com/aethersegment/backend/internal/query"
	"github.com/aethersegment/backend/internal/refine"
	"github.com/aethersegment/backend/internal/scoring"
	"github.com/aethersegment/backend/internal/segment"
	"github.com/aethersegment/backend/internal/store"
)

// SegmentService runs the pipeline: interpret, resolve, score, aggregate
// and optionally refine. Nothing but Store and Publisher is written to.
type SegmentService struct {
	Interpreter intent.Interpreter
	Resolver    query.Resolver
	Scorer      scoring.Engine
	Aggregator  segment.Aggregator
	Refiner     refine.Engine
	Store       store.SegmentStore
	Publisher   events.Publisher
	Logger      zerolog.Logger

	// MaxSegmentSize caps the stored customer list; 0 means no cap.
	MaxSegmentSize int
	Now            func() time.Time
}

func (s *SegmentService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Analyze interprets free text and previews the matching segment.
func (s *SegmentService) Analyze(ctx context.Context, text string) (models.AnalysisResult, error) {
	coo, err := s.Interpreter.Interpret(ctx, text)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	return s.AnalyzeObjective(ctx, coo)
}

// AnalyzeObjective previews the segment for an already structured objective.
func (s *SegmentService) AnalyzeObjective(ctx context.Context, coo models.CampaignObjective) (models.AnalysisResult, error) {
	start := time.Now()
	plan, records, err := s.resolve(ctx, coo)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	triggers := scoring.Candidates(coo)
	scores, err := s.Scorer.ScoreAll(ctx, records, triggers, coo)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("score population: %w", err)
	}

	md := s.Aggregator.Aggregate(records, triggers, scores, plan.Filters)
	recs := []models.TriggerRecommendation{}
	if len(records) > 0 {
		recs = scoring.Recommend(triggers, scores, s.Refiner.Threshold)
	}

	s.Logger.Info().
		Str("goal", coo.CampaignGoal).
		Str("behavior", coo.TargetBehavior).
		Int("population", md.EstimatedSize).
		Str("recommended_trigger", md.RecommendedTrigger).
		Dur("took", time.Since(start)).
		Msg("objective analyzed")

	return models.AnalysisResult{
		CampaignObjective: coo,
		SegmentPreview:    md,
		TriggerCandidates: recs,
		Explanation:       segment.Explain(coo, md, recs, records),
	}, nil
}

// PreviewRefinement re-resolves the objective and reports how the extra
// filters would narrow it. The interpretation service is not called.
func (s *SegmentService) PreviewRefinement(ctx context.Context, coo models.CampaignObjective, filters models.RefinementFilters, trigger string) (models.RefinementResult, error) {
	_, records, err := s.resolve(ctx, coo)
	if err != nil {
		return models.RefinementResult{}, err
	}
	res := s.Refiner.Refine(records, filters, trigger)
	return res.RefinementResult, nil
}

// CreateSegment freezes the refined population under a new segment id and
// announces it. A failed announcement is logged only.
func (s *SegmentService) CreateSegment(ctx context.Context, coo models.CampaignObjective, trigger string, filters models.RefinementFilters) (models.Segment, error) {
	if strings.TrimSpace(trigger) == "" {
		return models.Segment{}, ErrTriggerRequired
	}
	now := s.now()

	plan, records, err := s.resolve(ctx, coo)
	if err != nil {
		return models.Segment{}, err
	}
	refined := s.Refiner.Refine(records, filters, trigger)
	population := refined.Population

	t := scoring.Resolve(trigger)
	scores, err := s.Scorer.ScoreAll(ctx, population, []scoring.Trigger{t}, coo)
	if err != nil {
		return models.Segment{}, fmt.Errorf("score population: %w", err)
	}
	md := s.Aggregator.Aggregate(population, []scoring.Trigger{t}, scores, plan.Filters)
	md.RecommendedTrigger = t.ID
	md.SegmentID = segment.NewID(t.ID, now)
	summary := segment.Summarize(coo, md, t, s.Refiner.Threshold, refined.FiltersApplied)
	md.AppliedFilters = append(append([]models.AppliedFilter{}, md.AppliedFilters...), refined.AppliedFilters()...)

	customers := population
	if s.MaxSegmentSize > 0 && len(customers) > s.MaxSegmentSize {
		customers = customers[:s.MaxSegmentSize]
		s.Logger.Warn().
			Str("segment_id", md.SegmentID).
			Int("population", len(population)).
			Int("stored", s.MaxSegmentSize).
			Msg("segment population truncated")
	}

	seg := models.Segment{
		SegmentID:         md.SegmentID,
		Trigger:           t.ID,
		CampaignObjective: coo,
		Filters:           filters,
		Metadata:          md,
		Summary:           summary,
		Customers:         append([]models.CustomerRecord{}, customers...),
		CreatedAt:         now,
	}
	if err := s.Store.Save(ctx, seg); err != nil {
		return models.Segment{}, fmt.Errorf("save segment %s: %w", seg.SegmentID, err)
	}

	if s.Publisher != nil {
		if err := events.PublishSegmentCreated(ctx, s.Publisher, seg); err != nil {
			s.Logger.Error().Err(err).Str("segment_id", seg.SegmentID).Msg("failed to publish segment.created")
		}
	}

	s.Logger.Info().
		Str("segment_id", seg.SegmentID).
		Str("trigger", seg.Trigger).
		Int("starting_size", refined.StartingSize).
		Int("final_size", refined.FinalSize).
		Msg("segment created")
	return seg, nil
}

func (s *SegmentService) GetSegment(ctx context.Context, id string) (models.Segment, error) {
	return s.Store.Get(ctx, id)
}

func (s *SegmentService) GetSegmentCustomers(ctx context.Context, id string, limit int) ([]models.CustomerRecord, error) {
	return s.Store.Customers(ctx, id, limit)
}

func (s *SegmentService) resolve(ctx context.Context, coo models.CampaignObjective) (query.Plan, []models.CustomerRecord, error) {
	plan, records, err := s.Resolver.Resolve(ctx, coo, s.now())
	if err != nil {
		var dup *query.DuplicateCustomerError
		if errors.As(err, &dup) {
			return plan, nil, err
		}
		return plan, nil, &WarehouseError{Err: err}
	}
	return plan, records, nil
}
