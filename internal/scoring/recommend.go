package scoring

import (
	"fmt"
	"sort"

	"github.com/aethersegment/backend/internal/models"
)

// Best returns the trigger with the highest mean score. Ties keep the
// earlier trigger. ok is false when there is nothing to rank.
func Best(triggers []Trigger, scores Scores, population int) (Trigger, float64, bool) {
	if population == 0 || len(triggers) == 0 {
		return Trigger{}, 0, false
	}
	best, bestMean := triggers[0], scores.Mean(triggers[0].ID)
	for _, t := range triggers[1:] {
		if m := scores.Mean(t.ID); m > bestMean {
			best, bestMean = t, m
		}
	}
	return best, bestMean, true
}

// Recommend ranks the triggers by predicted uplift. Confidence is the
// share of customers scoring above threshold.
func Recommend(triggers []Trigger, scores Scores, threshold float64) []models.TriggerRecommendation {
	out := make([]models.TriggerRecommendation, 0, len(triggers))
	means := make([]float64, 0, len(triggers))
	for _, t := range triggers {
		vals := scores[t.ID]
		above := 0
		for _, v := range vals {
			if v > threshold {
				above++
			}
		}
		var confidence float64
		if len(vals) > 0 {
			confidence = float64(above) / float64(len(vals))
		}
		mean := scores.Mean(t.ID)
		means = append(means, mean)
		out = append(out, models.TriggerRecommendation{
			TriggerID:       t.ID,
			TriggerType:     t.Category,
			TriggerName:     t.Name,
			ConfidenceScore: Round(confidence, 3),
			PredictedUplift: Round(mean, 3),
			Description:     t.Description,
			Rationale:       Rationale(t, mean, confidence, threshold),
		})
	}
	// Rank on unrounded means so the first entry agrees with Best.
	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return means[order[i]] > means[order[j]] })
	ranked := make([]models.TriggerRecommendation, len(out))
	for i, k := range order {
		ranked[i] = out[k]
	}
	return ranked
}

func Rationale(t Trigger, mean, confidence, threshold float64) string {
	level := "somewhat"
	switch {
	case mean > 0.7:
		level = "highly"
	case mean > 0.5:
		level = "moderately"
	}
	return fmt.Sprintf("%s is %s effective for this segment: average predicted uplift %.2f, %.0f%% of customers score above %.2f.",
		t.Name, level, mean, confidence*100, threshold)
}

// Round rounds half away from zero.
func Round(v float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	if v < 0 {
		return -float64(int64(-v*p+0.5)) / p
	}
	return float64(int64(v*p+0.5)) / p
}
