package scoring

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/aethersegment/backend/internal/models"
)

func population(n int, seed uint64) []models.CustomerRecord {
	rng := rand.New(rand.NewPCG(seed, 7))
	out := make([]models.CustomerRecord, n)
	for i := range out {
		out[i] = models.CustomerRecord{
			CustomerID:              string(rune('a' + i%26)),
			CLVScore:                rng.Float64(),
			DiscountSensitivity:     rng.Float64(),
			FreeShippingSensitivity: rng.Float64(),
			ExclusivitySeeker:       rng.IntN(2) == 0,
			SocialProofAffinity:     rng.Float64(),
		}
	}
	return out
}

func TestCatalogueConstants(t *testing.T) {
	want := map[string]float64{
		"personalized_discount": 0.75,
		"generic_discount":      0.72,
		"free_shipping":         0.68,
		"bundling":              0.63,
		"scarcity":              0.60,
		"exclusivity":           0.58,
		"social_proof":          0.55,
	}
	if len(Catalogue) != len(want) {
		t.Fatalf("expected %d triggers, got %d", len(want), len(Catalogue))
	}
	for _, tr := range Catalogue {
		if tr.BaseEffectiveness != want[tr.ID] {
			t.Fatalf("%s: base %v, want %v", tr.ID, tr.BaseEffectiveness, want[tr.ID])
		}
		if tr.NoiseStdDev < 0.04 || tr.NoiseStdDev > 0.06 {
			t.Fatalf("%s: noise %v outside 4-6%%", tr.ID, tr.NoiseStdDev)
		}
	}
}

func TestBaseFormula(t *testing.T) {
	c := models.CustomerRecord{CLVScore: 0.9, DiscountSensitivity: 0.8}
	tr, _ := Lookup("personalized_discount")
	coo := models.CampaignObjective{ProposedIntervention: "personalized_discount"}
	want := 0.8*0.7 + 0.75*0.3 + (0.9-0.5)*0.15 + 0.08
	if got := Base(c, tr, coo); math.Abs(got-want) > 1e-12 {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := Base(c, tr, models.CampaignObjective{}); math.Abs(got-(want-0.08)) > 1e-12 {
		t.Fatalf("alignment bonus applied without a matching intervention: %v", got)
	}
}

func TestAliasAlignment(t *testing.T) {
	tr, _ := Lookup("generic_discount")
	c := models.CustomerRecord{}
	with := Base(c, tr, models.CampaignObjective{ProposedIntervention: "discount"})
	without := Base(c, tr, models.CampaignObjective{ProposedIntervention: "free_shipping"})
	if math.Abs(with-without-AlignmentBonus) > 1e-12 {
		t.Fatalf("discount alias should align with generic_discount")
	}
}

func TestExclusivityIsBoolean(t *testing.T) {
	tr, _ := Lookup("exclusivity")
	if tr.Sensitivity(models.CustomerRecord{ExclusivitySeeker: true}) != 1 {
		t.Fatalf("expected 1 for exclusivity seekers")
	}
	if tr.Sensitivity(models.CustomerRecord{}) != 0 {
		t.Fatalf("expected 0 otherwise")
	}
}

func TestUnknownTrigger(t *testing.T) {
	tr := Resolve("Loyalty Points")
	if tr.ID != "loyalty_points" || tr.BaseEffectiveness != 0.55 {
		t.Fatalf("unexpected fallback trigger %+v", tr)
	}
	cands := Candidates(models.CampaignObjective{ProposedIntervention: "loyalty points"})
	if len(cands) != len(Catalogue)+1 || cands[len(cands)-1].ID != "loyalty_points" {
		t.Fatalf("unknown intervention should be appended as a candidate")
	}
	if len(Candidates(models.CampaignObjective{ProposedIntervention: "discount"})) != len(Catalogue) {
		t.Fatalf("known intervention should not be duplicated")
	}
}

func TestScoreBounds(t *testing.T) {
	extremes := []models.CustomerRecord{
		{CLVScore: 1, DiscountSensitivity: 1, FreeShippingSensitivity: 1, ExclusivitySeeker: true, SocialProofAffinity: 1},
		{},
	}
	records := append(population(2000, 1), extremes...)
	coo := models.CampaignObjective{ProposedIntervention: "personalized_discount"}
	scores, err := Engine{Seed: 99, Workers: 3}.ScoreAll(context.Background(), records, Candidates(coo), coo)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	for id, vals := range scores {
		if len(vals) != len(records) {
			t.Fatalf("%s: expected %d scores, got %d", id, len(records), len(vals))
		}
		for _, v := range vals {
			if v < 0 || v > MaxScore {
				t.Fatalf("%s: score %v out of bounds", id, v)
			}
		}
	}
}

func TestSeededScoresReproducible(t *testing.T) {
	records := population(500, 3)
	coo := models.CampaignObjective{}
	a, _ := Engine{Seed: 5, Workers: 1}.ScoreAll(context.Background(), records, Catalogue, coo)
	b, _ := Engine{Seed: 5, Workers: 7}.ScoreAll(context.Background(), records, Catalogue, coo)
	for id := range a {
		for i := range a[id] {
			if a[id][i] != b[id][i] {
				t.Fatalf("%s[%d] differs: %v vs %v", id, i, a[id][i], b[id][i])
			}
		}
	}
}

func TestNoiseIsSmall(t *testing.T) {
	c := models.CustomerRecord{CLVScore: 0.5, DiscountSensitivity: 0.5}
	tr, _ := Lookup("generic_discount")
	base := Base(c, tr, models.CampaignObjective{})
	records := make([]models.CustomerRecord, 5000)
	for i := range records {
		records[i] = c
	}
	scores, _ := Engine{Seed: 11}.ScoreAll(context.Background(), records, []Trigger{tr}, models.CampaignObjective{})

	mean := scores.Mean(tr.ID)
	var sq float64
	for _, v := range scores[tr.ID] {
		sq += (v - mean) * (v - mean)
	}
	sd := math.Sqrt(sq / float64(len(records)))
	if math.Abs(mean-base) > 0.01 {
		t.Fatalf("noise should be centered: mean %v base %v", mean, base)
	}
	if sd < 0.03 || sd > 0.07 {
		t.Fatalf("noise sd %v outside expected range", sd)
	}
}

func TestScoreAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Engine{Seed: 1}).ScoreAll(ctx, population(10, 1), Catalogue, models.CampaignObjective{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestBestTieBreaksByDeclarationOrder(t *testing.T) {
	triggers := Catalogue[:3]
	scores := Scores{
		"personalized_discount": {0.5, 0.5},
		"generic_discount":      {0.7, 0.7},
		"free_shipping":         {0.7, 0.7},
	}
	best, mean, ok := Best(triggers, scores, 2)
	if !ok || best.ID != "generic_discount" || mean != 0.7 {
		t.Fatalf("expected generic_discount 0.7, got %s %v %v", best.ID, mean, ok)
	}
	if _, _, ok := Best(triggers, Scores{}, 0); ok {
		t.Fatalf("empty population should have no best trigger")
	}
}

func TestRecommend(t *testing.T) {
	triggers := Catalogue[:3]
	scores := Scores{
		"personalized_discount": {0.9, 0.8, 0.3, 0.2},
		"generic_discount":      {0.7, 0.7, 0.7, 0.7},
		"free_shipping":         {0.4, 0.4, 0.4, 0.4},
	}
	recs := Recommend(triggers, scores, 0.65)
	if recs[0].TriggerID != "generic_discount" || recs[0].ConfidenceScore != 1 {
		t.Fatalf("unexpected top recommendation %+v", recs[0])
	}
	if recs[1].TriggerID != "personalized_discount" || recs[1].ConfidenceScore != 0.5 {
		t.Fatalf("unexpected second recommendation %+v", recs[1])
	}
	if recs[2].TriggerType != CategoryValueDriven || recs[2].Rationale == "" {
		t.Fatalf("expected category and rationale, got %+v", recs[2])
	}
}

func TestRecommendAgreesWithBestWhenRoundedMeansTie(t *testing.T) {
	triggers := Catalogue[:2]
	scores := Scores{
		"personalized_discount": {0.70010},
		"generic_discount":      {0.70040},
	}
	recs := Recommend(triggers, scores, 0.65)
	if recs[0].PredictedUplift != recs[1].PredictedUplift {
		t.Fatalf("expected equal rounded uplift, got %v and %v", recs[0].PredictedUplift, recs[1].PredictedUplift)
	}
	best, _, _ := Best(triggers, scores, 1)
	if recs[0].TriggerID != best.ID || best.ID != "generic_discount" {
		t.Fatalf("top recommendation %s does not match best %s", recs[0].TriggerID, best.ID)
	}
}

func TestRound(t *testing.T) {
	if got := Round(0.12345, 3); got != 0.123 {
		t.Fatalf("expected 0.123, got %v", got)
	}
	if got := Round(-0.0125, 2); got != -0.01 {
		t.Fatalf("expected -0.01, got %v", got)
	}
}
