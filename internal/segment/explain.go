package segment

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aethersegment/backend/internal/models"
	"github.com/aethersegment/backend/internal/scoring"
)

const (
	highConfidenceSize = 500
	maxKeyFactors      = 5
)

func ConfidenceLevel(size int) string {
	if size > highConfidenceSize {
		return "high"
	}
	return "moderate"
}

// Explain describes why a population was selected and which customer
// attributes vary the most inside it.
func Explain(coo models.CampaignObjective, md models.SegmentMetadata, recs []models.TriggerRecommendation, records []models.CustomerRecord) models.Explanation {
	ex := models.Explanation{
		WhyThisSegment:     whyThisSegment(coo, md),
		KeyFactors:         KeyFactors(records, md.RecommendedTrigger),
		RecommendedTrigger: md.RecommendedTrigger,
		SampleSize:         md.EstimatedSize,
		ConfidenceLevel:    ConfidenceLevel(md.EstimatedSize),
	}
	for _, r := range recs {
		if r.TriggerID == md.RecommendedTrigger {
			ex.TriggerRationale = r.Rationale
			break
		}
	}
	return ex
}

func whyThisSegment(coo models.CampaignObjective, md models.SegmentMetadata) string {
	if len(md.AppliedFilters) == 0 {
		return fmt.Sprintf("No filters are defined for behavior %q, so the segment covers all %d customers.", coo.TargetBehavior, md.EstimatedSize)
	}
	descs := make([]string, 0, len(md.AppliedFilters))
	for _, f := range md.AppliedFilters {
		if f.Description == "" {
			continue
		}
		descs = append(descs, strings.ToLower(f.Description[:1])+f.Description[1:])
	}
	return fmt.Sprintf("%d customers match the %s objective: %s.", md.EstimatedSize, coo.CampaignGoal, strings.Join(descs, "; "))
}

// KeyFactors ranks attributes by their spread in the population,
// normalized to sum to 1.
func KeyFactors(records []models.CustomerRecord, trigger string) []models.KeyFactor {
	if len(records) == 0 {
		return []models.KeyFactor{}
	}
	tr := scoring.Resolve(trigger)

	clv := make([]float64, 0, len(records))
	sens := make([]float64, 0, len(records))
	churn := make([]float64, 0, len(records))
	var carts []float64
	var maxCart float64
	for _, r := range records {
		clv = append(clv, r.CLVScore)
		sens = append(sens, tr.Sensitivity(r))
		churn = append(churn, r.ChurnProbability)
		if r.CartValue != nil {
			carts = append(carts, *r.CartValue)
			maxCart = math.Max(maxCart, *r.CartValue)
		}
	}
	if maxCart > 0 {
		for i := range carts {
			carts[i] /= maxCart
		}
	}

	factors := []models.KeyFactor{
		{Feature: "clv_score", Importance: stddev(clv), Description: "Customer lifetime value"},
		{Feature: "trigger_sensitivity", Importance: stddev(sens), Description: fmt.Sprintf("Sensitivity to %s", tr.Name)},
		{Feature: "churn_probability", Importance: stddev(churn), Description: "Likelihood of churning"},
		{Feature: "location", Importance: concentration(records), Description: "Geographic concentration"},
	}
	if len(carts) > 0 {
		factors = append(factors, models.KeyFactor{Feature: "cart_value", Importance: stddev(carts), Description: "Abandoned cart value"})
	}

	var total float64
	for _, f := range factors {
		total += f.Importance
	}
	for i := range factors {
		if total > 0 {
			factors[i].Importance = scoring.Round(factors[i].Importance/total, 3)
		} else {
			factors[i].Importance = 0
		}
	}
	sort.SliceStable(factors, func(i, j int) bool { return factors[i].Importance > factors[j].Importance })
	if len(factors) > maxKeyFactors {
		factors = factors[:maxKeyFactors]
	}
	return factors
}

func stddev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	var sq float64
	for _, v := range vals {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(vals)))
}

// concentration is the share of the population living in the top city.
func concentration(records []models.CustomerRecord) float64 {
	b := Demographics(records)
	if len(b.TopCities) == 0 {
		return 0
	}
	return float64(b.TopCities[0].Count) / float64(len(records))
}
