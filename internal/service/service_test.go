package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aethersegment/backend/internal/ai"
	"github.com/aethersegment/backend/internal/db"
	"github.com/aethersegment/backend/internal/events"
	"github.com/aethersegment/backend/internal/intent"
	"github.com/aethersegment/backend/internal/models"
	"github.com/aethersegment/backend/internal/predicate"
	"github.com/aethersegment/backend/internal/query"
	"github.com/aethersegment/backend/internal/refine"
	"github.com/aethersegment/backend/internal/scoring"
	"github.com/aethersegment/backend/internal/segment"
	"github.com/aethersegment/backend/internal/store"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type stubCompleter struct {
	answer string
	err    error
}

func (s stubCompleter) Complete(context.Context, string) (string, error) {
	return s.answer, s.err
}

type brokenWarehouse struct{}

func (brokenWarehouse) FetchCandidates(context.Context, query.Plan) ([]models.CustomerRecord, error) {
	return nil, errors.New("connection refused")
}

func (brokenWarehouse) Count(context.Context, query.Plan) (int, error) {
	return 0, errors.New("connection refused")
}

func fixture() *db.Memory {
	opts := db.DefaultFixture(now)
	opts.Customers = 2000
	opts.Carts = 400
	opts.Transactions = 4000
	opts.Events = 6000
	return db.NewMemory(db.Generate(opts))
}

func resolverFor(w query.Warehouse) query.Resolver {
	return query.Resolver{
		Builder:   query.Builder{Registry: predicate.NewRegistry(), CartLookback: predicate.DefaultCartLookback},
		Warehouse: w,
		Logger:    zerolog.Nop(),
	}
}

func newService(w query.Warehouse, completer ai.Completer) (*SegmentService, *events.Recorder) {
	rec := &events.Recorder{}
	return &SegmentService{
		Interpreter: intent.Interpreter{Completer: completer, Logger: zerolog.Nop()},
		Resolver:    resolverFor(w),
		Scorer:      scoring.Engine{Seed: 7, Workers: 2},
		Aggregator:  segment.Aggregator{ROI: segment.DefaultROIPolicy(), DefaultAvgCLV: 0.7},
		Refiner:     refine.Engine{Threshold: 0.65, DefaultAvgCLV: 0.7},
		Store:       store.NewMemory(),
		Publisher:   rec,
		Logger:      zerolog.Nop(),
		Now:         func() time.Time { return now },
	}, rec
}

func TestAnalyzeAbandonedCart(t *testing.T) {
	svc, _ := newService(fixture(), ai.MockCompleter{})
	res, err := svc.Analyze(context.Background(), "Recover abandoned carts from high value shoppers within 48 hours, lift conversion 20%")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.CampaignObjective.TargetBehavior != "abandoned_cart" {
		t.Fatalf("unexpected objective %+v", res.CampaignObjective)
	}
	size := res.SegmentPreview.EstimatedSize
	if size == 0 || size >= 2000 {
		t.Fatalf("expected a strict non-empty subset, got %d", size)
	}
	if len(res.TriggerCandidates) != len(scoring.Catalogue) {
		t.Fatalf("expected %d candidates, got %d", len(scoring.Catalogue), len(res.TriggerCandidates))
	}
	var best float64
	for i, c := range res.TriggerCandidates {
		if i > 0 && c.PredictedUplift > res.TriggerCandidates[i-1].PredictedUplift {
			t.Fatalf("candidates not sorted by uplift: %+v", res.TriggerCandidates)
		}
		if c.PredictedUplift > best {
			best = c.PredictedUplift
		}
	}
	if res.SegmentPreview.PredictedUplift != best {
		t.Fatalf("preview uplift %v should equal best candidate %v", res.SegmentPreview.PredictedUplift, best)
	}
	if res.Explanation.SampleSize != size || res.Explanation.RecommendedTrigger != res.SegmentPreview.RecommendedTrigger {
		t.Fatalf("explanation out of sync with preview: %+v", res.Explanation)
	}
}

func TestAnalyzeUnparseableAnswer(t *testing.T) {
	svc, _ := newService(fixture(), stubCompleter{answer: "I am not sure what you mean"})
	_, err := svc.Analyze(context.Background(), "anything")
	var perr *intent.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestAnalyzeRateLimited(t *testing.T) {
	svc, _ := newService(fixture(), stubCompleter{err: ai.RateLimitError{RetryAfter: time.Second}})
	_, err := svc.Analyze(context.Background(), "anything")
	var rl ai.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
}

func TestAnalyzeUnknownBehaviorCoversEveryone(t *testing.T) {
	svc, _ := newService(fixture(), ai.MockCompleter{})
	res, err := svc.AnalyzeObjective(context.Background(), models.CampaignObjective{CampaignGoal: "conversion", TargetBehavior: "foo_bar"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.SegmentPreview.EstimatedSize != 2000 || len(res.SegmentPreview.AppliedFilters) != 0 {
		t.Fatalf("expected the whole customer table, got %d with %d filters", res.SegmentPreview.EstimatedSize, len(res.SegmentPreview.AppliedFilters))
	}
}

func TestWarehouseFailure(t *testing.T) {
	svc, _ := newService(brokenWarehouse{}, ai.MockCompleter{})
	_, err := svc.AnalyzeObjective(context.Background(), models.CampaignObjective{TargetBehavior: "abandoned_cart"})
	var werr *WarehouseError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WarehouseError, got %v", err)
	}
}

func TestPreviewRefinement(t *testing.T) {
	svc, _ := newService(fixture(), ai.MockCompleter{})
	coo := models.CampaignObjective{CampaignGoal: "retention", TargetBehavior: "lapsed_customer"}

	res, err := svc.PreviewRefinement(context.Background(), coo, models.RefinementFilters{}, "")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if res.StartingSize != res.FinalSize || res.PercentageRetained != 100 {
		t.Fatalf("empty filters should keep everyone: %+v", res)
	}

	narrowed, err := svc.PreviewRefinement(context.Background(), coo, models.RefinementFilters{LocationCountry: "UK"}, "free_shipping")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if narrowed.StartingSize != res.StartingSize || narrowed.FinalSize > narrowed.StartingSize {
		t.Fatalf("refinement must not grow the population: %+v", narrowed)
	}
	if len(narrowed.FiltersApplied) != 2 {
		t.Fatalf("expected location and sensitivity steps, got %+v", narrowed.FiltersApplied)
	}
}

func TestCreateSegment(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(fixture(), ai.MockCompleter{})
	coo := models.CampaignObjective{CampaignGoal: "conversion", TargetBehavior: "abandoned_cart"}

	seg, err := svc.CreateSegment(ctx, coo, "free_shipping", models.RefinementFilters{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if seg.Trigger != "free_shipping" || seg.Metadata.SegmentID != seg.SegmentID {
		t.Fatalf("unexpected segment %+v", seg.Metadata)
	}
	if len(seg.Customers) != seg.Metadata.EstimatedSize {
		t.Fatalf("stored %d customers for size %d", len(seg.Customers), seg.Metadata.EstimatedSize)
	}
	for _, c := range seg.Customers {
		if c.FreeShippingSensitivity <= 0.65 {
			t.Fatalf("customer %s is below the sensitivity threshold", c.CustomerID)
		}
	}
	if seg.Summary.SummaryText == "" || len(seg.Summary.FilteringSteps) == 0 {
		t.Fatalf("expected a filtering journey, got %+v", seg.Summary)
	}

	got, err := svc.GetSegment(ctx, seg.SegmentID)
	if err != nil || got.SegmentID != seg.SegmentID {
		t.Fatalf("get: %+v %v", got.SegmentID, err)
	}
	if msgs := rec.Messages(); len(msgs) != 1 || msgs[0].Key != seg.SegmentID {
		t.Fatalf("expected one segment.created message, got %+v", msgs)
	}

	if _, err := svc.GetSegmentCustomers(ctx, "SEG_missing", 10); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSegmentCapsStoredPopulation(t *testing.T) {
	svc, _ := newService(fixture(), ai.MockCompleter{})
	svc.Refiner.Threshold = 0
	svc.MaxSegmentSize = 5

	seg, err := svc.CreateSegment(context.Background(), models.CampaignObjective{TargetBehavior: "lapsed_customer"}, "generic_discount", models.RefinementFilters{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if seg.Metadata.EstimatedSize <= 5 || len(seg.Customers) != 5 {
		t.Fatalf("expected full size in metadata and 5 stored, got %d and %d", seg.Metadata.EstimatedSize, len(seg.Customers))
	}
	top, err := svc.GetSegmentCustomers(context.Background(), seg.SegmentID, 3)
	if err != nil || len(top) != 3 || top[0].CustomerID != seg.Customers[0].CustomerID {
		t.Fatalf("unexpected customers page %+v %v", top, err)
	}
}

func TestCreateSegmentRecordsRefinementFilters(t *testing.T) {
	svc, _ := newService(fixture(), ai.MockCompleter{})
	coo := models.CampaignObjective{CampaignGoal: "conversion", TargetBehavior: "abandoned_cart"}
	clv := 0.5
	seg, err := svc.CreateSegment(context.Background(), coo, "free_shipping", models.RefinementFilters{CLVMin: &clv})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var clvFilter, sensFilter bool
	for _, f := range seg.Metadata.AppliedFilters {
		switch f.FilterType {
		case refine.StageCLV:
			clvFilter = f.CanModify
		case refine.StageSensitivity:
			sensFilter = f.CanModify
		}
	}
	if !clvFilter || !sensFilter {
		t.Fatalf("expected modifiable refinement filters, got %+v", seg.Metadata.AppliedFilters)
	}
	if seg.Metadata.AppliedFilters[0].FilterType != models.FilterBehavior {
		t.Fatalf("behavior predicates should come first, got %+v", seg.Metadata.AppliedFilters)
	}
}

func TestCreateSegmentRequiresTrigger(t *testing.T) {
	svc, _ := newService(fixture(), ai.MockCompleter{})
	_, err := svc.CreateSegment(context.Background(), models.CampaignObjective{}, "  ", models.RefinementFilters{})
	if !errors.Is(err, ErrTriggerRequired) {
		t.Fatalf("expected ErrTriggerRequired, got %v", err)
	}
}

func TestCreateSegmentPublishFailureIsNotFatal(t *testing.T) {
	svc, _ := newService(fixture(), ai.MockCompleter{})
	svc.Publisher = &events.Recorder{Err: errors.New("broker down")}
	seg, err := svc.CreateSegment(context.Background(), models.CampaignObjective{TargetBehavior: "retention"}, "scarcity", models.RefinementFilters{})
	if err != nil {
		t.Fatalf("create should succeed, got %v", err)
	}
	if _, err := svc.GetSegment(context.Background(), seg.SegmentID); err != nil {
		t.Fatalf("segment should be stored: %v", err)
	}
}
