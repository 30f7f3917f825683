package segment

import (
	"fmt"
	"strings"

	"github.com/aethersegment/backend/internal/models"
	"github.com/aethersegment/backend/internal/scoring"
)

// Summarize describes how a created segment was narrowed down, step by step.
func Summarize(coo models.CampaignObjective, md models.SegmentMetadata, trigger scoring.Trigger, threshold float64, refinements []models.FilterImpact) models.SegmentSummary {
	steps := []models.FilteringStep{{
		Step:        "Campaign objective",
		Description: fmt.Sprintf("Goal: %s, behavior: %s", coo.CampaignGoal, coo.TargetBehavior),
	}}
	for _, f := range md.AppliedFilters {
		steps = append(steps, models.FilteringStep{Step: stepName(f.FilterType), Description: f.Description})
	}

	selection := fmt.Sprintf("Selected: %s\nSensitivity threshold: %.0f%%", trigger.Name, threshold*100)
	if md.PredictedUplift > 0 {
		selection += fmt.Sprintf("\nPredicted uplift: %.0f%%", md.PredictedUplift*100)
	}
	steps = append(steps, models.FilteringStep{Step: "Trigger selection", Description: selection})

	for _, r := range refinements {
		steps = append(steps, models.FilteringStep{
			Step:        "Manual refinement",
			Description: fmt.Sprintf("%s (%d -> %d customers)", r.Description, r.Before, r.After),
		})
	}

	location := PrimaryLocation(md.DemographicBreakdown)
	text := fmt.Sprintf("%d customers targeted with %s for a %s campaign. Average CLV %.2f, predicted ROI %s.",
		md.EstimatedSize, trigger.Name, strings.ReplaceAll(coo.CampaignGoal, "_", " "), md.AvgCLVScore, md.PredictedROI)
	if location != "" {
		text += " Largest city: " + location + "."
	}

	return models.SegmentSummary{
		SummaryText:     text,
		FilteringSteps:  steps,
		PrimaryLocation: location,
		ConfidenceLevel: ConfidenceLevel(md.EstimatedSize),
	}
}

func stepName(filterType string) string {
	switch filterType {
	case models.FilterBehavior:
		return "Behavioral filter"
	case models.FilterTiming:
		return "Timing filter"
	case models.FilterValue:
		return "Value filter"
	case models.FilterCartValue:
		return "Cart value filter"
	case models.FilterPreference:
		return "Preference filter"
	default:
		return "Filter"
	}
}
