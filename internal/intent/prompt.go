package intent

import (
	"strings"

	"github.com/aethersegment/backend/internal/ai"
)

const promptTemplate = `You are a marketing analyst. Convert the campaign objective below into a JSON object with exactly these fields:

{
  "campaign_goal": "conversion | win_back | upsell | retention | acquisition",
  "target_behavior": "abandoned_cart | lapsed_customer | high_engagement | cross_sell | new_customer | retention | reactivation",
  "target_subgroup": "optional qualifier such as high_value_shopper",
  "metric_target": {"type": "conversion_rate_increase", "value": 0.15},
  "time_constraint": "optional duration such as 48 hours",
  "proposed_intervention": "personalized_discount | generic_discount | free_shipping | bundling | scarcity | exclusivity | social_proof",
  "underlying_assumptions": ["short statements"]
}

Return only the JSON object. No prose, no markdown.

`

// BuildPrompt renders the interpretation prompt for an objective.
func BuildPrompt(objective string) string {
	var b strings.Builder
	b.WriteString(promptTemplate)
	b.WriteString(ai.ObjectiveMarker)
	b.WriteString(" ")
	b.WriteString(strings.TrimSpace(objective))
	return b.String()
}
