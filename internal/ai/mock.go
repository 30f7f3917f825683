package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/aethersegment/backend/internal/utils"
)

// ObjectiveMarker precedes the user's objective text in interpretation
// prompts. MockCompleter reads only what follows it.
const ObjectiveMarker = "Campaign objective:"

var (
	percentRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(%|percent)`)
	durationRe = regexp.MustCompile(`(\d+)\s*(hour|hr|day|week|month)s?`)
)

type mockRule struct {
	keywords     []string
	goal         string
	behavior     string
	intervention string
}

var mockRules = []mockRule{
	{[]string{"abandon", "cart"}, "conversion", "abandoned_cart", "personalized_discount"},
	{[]string{"reactivat", "dormant", "inactive"}, "win_back", "reactivation", "generic_discount"},
	{[]string{"lapsed", "win back", "win-back", "churn"}, "win_back", "lapsed_customer", "exclusivity"},
	{[]string{"cross-sell", "cross sell", "upsell", "up-sell"}, "upsell", "cross_sell", "bundling"},
	{[]string{"new customer", "first purchase", "onboard", "acquisition"}, "acquisition", "new_customer", "free_shipping"},
	{[]string{"retention", "repeat", "retain"}, "retention", "retention", "free_shipping"},
	{[]string{"engag", "active"}, "upsell", "high_engagement", "social_proof"},
}

// MockCompleter is a deterministic keyword interpreter used when no
// language model is configured.
type MockCompleter struct{}

func (MockCompleter) Complete(_ context.Context, prompt string) (string, error) {
	text := prompt
	if i := strings.LastIndex(prompt, ObjectiveMarker); i >= 0 {
		text = prompt[i+len(ObjectiveMarker):]
	}
	text = strings.ToLower(strings.TrimSpace(text))

	out := map[string]any{
		"campaign_goal":         "conversion",
		"target_behavior":       "general",
		"proposed_intervention": "discount",
	}
	for _, r := range mockRules {
		if containsAny(text, r.keywords) {
			out["campaign_goal"] = r.goal
			out["target_behavior"] = r.behavior
			out["proposed_intervention"] = r.intervention
			break
		}
	}

	if containsAny(text, []string{"high value", "high-value", "vip", "best customers", "premium"}) {
		out["target_subgroup"] = "high_value_shopper"
	}
	if m := durationRe.FindStringSubmatch(text); m != nil {
		out["time_constraint"] = fmt.Sprintf("%s %ss", m[1], normalizeUnit(m[2]))
	}

	metric := map[string]any{"type": "conversion_rate_increase"}
	if m := percentRe.FindStringSubmatch(text); m != nil {
		metric["value"] = m[1] + "%"
	} else {
		defaults := []float64{0.1, 0.15, 0.2}
		metric["value"] = defaults[utils.HashStringToUint64(text)%uint64(len(defaults))]
	}
	out["metric_target"] = metric
	out["underlying_assumptions"] = []string{
		fmt.Sprintf("customers matching %s respond to %s", out["target_behavior"], out["proposed_intervention"]),
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func normalizeUnit(u string) string {
	if u == "hr" {
		return "hour"
	}
	return u
}
