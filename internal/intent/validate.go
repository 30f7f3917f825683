package intent

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aethersegment/backend/internal/models"
)

const (
	DefaultCampaignGoal   = "conversion"
	DefaultTargetBehavior = "general"
	DefaultIntervention   = "discount"
	DefaultMetricType     = "conversion_rate_increase"
	DefaultMetricValue    = 0.1
)

// Warning records a field that was replaced by its default or reshaped.
type Warning struct {
	Field  string
	Raw    any
	Reason string
}

// BuildObjective turns a decoded model response into a CampaignObjective.
// Every field is coerced independently; a bad field is defaulted and
// reported, never fatal.
func BuildObjective(fields map[string]any) (models.CampaignObjective, []Warning) {
	var warns []Warning
	str := func(field, def string, optional bool) string {
		v, w := CoerceString(fields[field], def, optional)
		if w != "" {
			warns = append(warns, Warning{Field: field, Raw: fields[field], Reason: w})
		}
		return v
	}

	coo := models.CampaignObjective{
		CampaignGoal:         str("campaign_goal", DefaultCampaignGoal, false),
		TargetBehavior:       str("target_behavior", DefaultTargetBehavior, false),
		TargetSubgroup:       str("target_subgroup", "", true),
		TimeConstraint:       str("time_constraint", "", true),
		ProposedIntervention: str("proposed_intervention", DefaultIntervention, false),
	}

	metric, mw := CoerceMetricTarget(fields["metric_target"])
	coo.MetricTarget = metric
	warns = append(warns, mw...)

	assumptions, ok := CoerceStringList(fields["underlying_assumptions"])
	if !ok {
		warns = append(warns, Warning{Field: "underlying_assumptions", Raw: fields["underlying_assumptions"], Reason: "not a list, using []"})
	}
	coo.UnderlyingAssumptions = assumptions

	return coo, warns
}

// CoerceString returns a trimmed string for raw. Missing or empty values
// fall back to def; scalars of another type are stringified. The second
// return value is a non-empty reason whenever the raw value was unusable.
func CoerceString(raw any, def string, optional bool) (string, string) {
	switch v := raw.(type) {
	case nil:
		return def, ""
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return def, ""
		}
		return s, ""
	case json.Number:
		return v.String(), "number stringified"
	case float64, bool:
		return fmt.Sprint(v), "scalar stringified"
	default:
		if optional {
			return def, fmt.Sprintf("unexpected type %T, dropped", raw)
		}
		return def, fmt.Sprintf("unexpected type %T, using %q", raw, def)
	}
}

func CoerceMetricTarget(raw any) (models.MetricTarget, []Warning) {
	out := models.MetricTarget{Type: DefaultMetricType, Value: DefaultMetricValue}
	var warns []Warning

	obj, ok := raw.(map[string]any)
	if !ok {
		warns = append(warns, Warning{Field: "metric_target", Raw: raw, Reason: "not an object, using defaults"})
		return out, warns
	}

	t, reason := CoerceString(obj["type"], DefaultMetricType, false)
	if reason != "" {
		warns = append(warns, Warning{Field: "metric_target.type", Raw: obj["type"], Reason: reason})
	}
	out.Type = t

	v, ok := CoerceMetricValue(obj["value"])
	if !ok {
		warns = append(warns, Warning{Field: "metric_target.value", Raw: obj["value"], Reason: fmt.Sprintf("unparseable, using %v", DefaultMetricValue)})
	}
	out.Value = v
	return out, warns
}

// CoerceMetricValue parses a metric value. Strings with a '%' or "percent"
// suffix are divided by 100. Anything unparseable or non-finite yields
// DefaultMetricValue and ok=false.
func CoerceMetricValue(raw any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		f, err = v.Float64()
	case string:
		f, err = parseMetricString(v)
	default:
		return DefaultMetricValue, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return DefaultMetricValue, false
	}
	return f, true
}

func parseMetricString(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	percent := false
	if strings.Contains(s, "%") || strings.Contains(s, "percent") {
		percent = true
		s = strings.ReplaceAll(s, "%", "")
		s = strings.ReplaceAll(s, "percent", "")
		s = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if percent {
		f /= 100
	}
	return f, nil
}

// CoerceStringList accepts a JSON array (non-string items are stringified)
// or a single string. Anything else yields an empty list and ok=false.
func CoerceStringList(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case nil:
		return []string{}, true
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}, true
		}
		return []string{}, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch it := item.(type) {
			case nil:
				continue
			case string:
				if s := strings.TrimSpace(it); s != "" {
					out = append(out, s)
				}
			default:
				out = append(out, fmt.Sprint(it))
			}
		}
		return out, true
	default:
		return []string{}, false
	}
}
