package segment

import (
	"github.com/aethersegment/backend/internal/models"
	"github.com/aethersegment/backend/internal/scoring"
)

const TopCitiesLimit = 5

// ROIPolicy buckets predicted uplift into a return-on-investment label.
// Uplift strictly above HighThreshold gets HighLabel.
type ROIPolicy struct {
	HighThreshold float64
	HighLabel     string
	LowLabel      string
}

func DefaultROIPolicy() ROIPolicy {
	return ROIPolicy{HighThreshold: 0.6, HighLabel: "4-6x", LowLabel: "2-4x"}
}

func (p ROIPolicy) Label(uplift float64) string {
	if uplift > p.HighThreshold {
		return p.HighLabel
	}
	return p.LowLabel
}

type Aggregator struct {
	ROI           ROIPolicy
	DefaultAvgCLV float64
}

// Aggregate summarizes a scored population. Empty populations get the
// default CLV, zero uplift and no recommended trigger.
func (a Aggregator) Aggregate(records []models.CustomerRecord, triggers []scoring.Trigger, scores scoring.Scores, filters []models.AppliedFilter) models.SegmentMetadata {
	if filters == nil {
		filters = []models.AppliedFilter{}
	}
	md := models.SegmentMetadata{
		EstimatedSize:        len(records),
		AvgCLVScore:          AvgCLV(records, a.DefaultAvgCLV),
		AvgCartValue:         AvgCartValue(records),
		DemographicBreakdown: Demographics(records),
		AppliedFilters:       filters,
	}

	if best, mean, ok := scoring.Best(triggers, scores, len(records)); ok {
		md.RecommendedTrigger = best.ID
		md.PredictedUplift = scoring.Round(mean, 3)
	}
	md.PredictedROI = a.ROI.Label(md.PredictedUplift)
	return md
}

func AvgCLV(records []models.CustomerRecord, def float64) float64 {
	if len(records) == 0 {
		return def
	}
	var sum float64
	for _, r := range records {
		sum += r.CLVScore
	}
	return scoring.Round(sum/float64(len(records)), 3)
}

// AvgCartValue averages the records that carry a cart; nil when none do.
func AvgCartValue(records []models.CustomerRecord) *float64 {
	var sum float64
	n := 0
	for _, r := range records {
		if r.CartValue != nil {
			sum += *r.CartValue
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := scoring.Round(sum/float64(n), 2)
	return &avg
}
