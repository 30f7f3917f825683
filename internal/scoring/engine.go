package scoring

import (
	"context"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/aethersegment/backend/internal/models"
)

const (
	MaxScore       = 0.95
	AlignmentBonus = 0.08
	clvWeight      = 0.15
	sensWeight     = 0.7
	baseWeight     = 0.3
)

// Scores holds one score per record, keyed by trigger id. Slices are
// index-aligned with the scored records.
type Scores map[string][]float64

// Mean returns the average score of a trigger, or 0 for an empty population.
func (s Scores) Mean(triggerID string) float64 {
	vals := s[triggerID]
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// Engine computes uplift scores. A zero Seed draws noise from an unseeded
// source; any other value makes ScoreAll reproducible.
type Engine struct {
	Seed    uint64
	Workers int
}

// Deterministic part of the score, before noise and clamping.
func Base(c models.CustomerRecord, t Trigger, coo models.CampaignObjective) float64 {
	s := t.Sensitivity(c)*sensWeight + t.BaseEffectiveness*baseWeight + (c.CLVScore-0.5)*clvWeight
	if coo.ProposedIntervention != "" && Resolve(coo.ProposedIntervention).ID == t.ID {
		s += AlignmentBonus
	}
	return s
}

// Score returns the bounded score of one customer for one trigger.
func Score(c models.CustomerRecord, t Trigger, coo models.CampaignObjective, rng *rand.Rand) float64 {
	s := Base(c, t, coo)
	if rng != nil && t.NoiseStdDev > 0 {
		s += rng.NormFloat64() * t.NoiseStdDev
	}
	return clamp(s)
}

// ScoreAll scores every record against every trigger, one goroutine per
// trigger. Each trigger draws from its own stream so results do not depend
// on scheduling.
func (e Engine) ScoreAll(ctx context.Context, records []models.CustomerRecord, triggers []Trigger, coo models.CampaignObjective) (Scores, error) {
	results := make([][]float64, len(triggers))

	g, ctx := errgroup.WithContext(ctx)
	if e.Workers > 0 {
		g.SetLimit(e.Workers)
	}
	for i, t := range triggers {
		g.Go(func() error {
			rng := e.source(uint64(i) + 1)
			out := make([]float64, len(records))
			for j, c := range records {
				if j%4096 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				out[j] = Score(c, t, coo, rng)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scores := make(Scores, len(triggers))
	for i, t := range triggers {
		scores[t.ID] = results[i]
	}
	return scores, nil
}

func (e Engine) source(stream uint64) *rand.Rand {
	if e.Seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(e.Seed, stream))
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
