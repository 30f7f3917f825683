package query

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aethersegment/backend/internal/models"
)

// Warehouse executes compiled plans read-only.
type Warehouse interface {
	FetchCandidates(ctx context.Context, plan Plan) ([]models.CustomerRecord, error)
	Count(ctx context.Context, plan Plan) (int, error)
}

// DuplicateCustomerError means a warehouse returned the same customer twice
// for one plan.
type DuplicateCustomerError struct {
	CustomerID string
}

func (e *DuplicateCustomerError) Error() string {
	return fmt.Sprintf("duplicate customer %s in resolved population", e.CustomerID)
}

type Resolver struct {
	Builder   Builder
	Warehouse Warehouse
	Logger    zerolog.Logger
}

// Resolve builds and runs the plan for an objective and checks that every
// customer appears once.
func (r Resolver) Resolve(ctx context.Context, coo models.CampaignObjective, now time.Time) (Plan, []models.CustomerRecord, error) {
	plan := r.Builder.Build(coo, now)

	start := time.Now()
	records, err := r.Warehouse.FetchCandidates(ctx, plan)
	if err != nil {
		return plan, nil, fmt.Errorf("fetch candidates: %w", err)
	}
	if err := VerifyUnique(records); err != nil {
		r.Logger.Error().Err(err).Str("behavior", coo.TargetBehavior).Msg("population invariant violated")
		return plan, nil, err
	}

	r.Logger.Debug().
		Str("behavior", coo.TargetBehavior).
		Int("predicates", len(plan.Predicates)).
		Int("population", len(records)).
		Dur("took", time.Since(start)).
		Msg("population resolved")
	return plan, records, nil
}

func VerifyUnique(records []models.CustomerRecord) error {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.CustomerID]; ok {
			return &DuplicateCustomerError{CustomerID: rec.CustomerID}
		}
		seen[rec.CustomerID] = struct{}{}
	}
	return nil
}
