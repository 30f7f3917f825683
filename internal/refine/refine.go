package refine

import (
	"fmt"
	"strings"

	"github.com/aethersegment/backend/internal/models"
	"github.com/aethersegment/backend/internal/scoring"
	"github.com/aethersegment/backend/internal/segment"
)

const (
	StageLocation    = "location"
	StageCLV         = "clv"
	StageCartValue   = "cart_value"
	StageSensitivity = "trigger_sensitivity"
)

// Stage is one step of a refinement run and the population left after it.
type Stage struct {
	Name        string
	Description string
	Candidates  []models.CustomerRecord
}

type Engine struct {
	// Threshold is the exclusive lower bound on trigger sensitivity.
	Threshold     float64
	DefaultAvgCLV float64
}

// Result carries the reported impact and the refined population.
type Result struct {
	models.RefinementResult
	Population []models.CustomerRecord
	Stages     []Stage
}

// Refine narrows base in a fixed order: location, CLV, cart value, then
// trigger sensitivity when a trigger is given. Unset filters are skipped,
// as is the cart value filter when no remaining customer has a cart. base
// is never modified.
func (e Engine) Refine(base []models.CustomerRecord, f models.RefinementFilters, trigger string) Result {
	current := base
	var stages []Stage
	impacts := []models.FilterImpact{}

	apply := func(typ, desc string, keep func(models.CustomerRecord) bool) {
		next := filterCustomers(current, keep)
		impacts = append(impacts, models.FilterImpact{
			Type:        typ,
			Description: desc,
			Before:      len(current),
			After:       len(next),
			Impact:      len(current) - len(next),
		})
		stages = append(stages, Stage{Name: typ, Description: desc, Candidates: next})
		current = next
	}

	if country := strings.TrimSpace(f.LocationCountry); country != "" {
		apply(StageLocation, "Country: "+country, func(c models.CustomerRecord) bool {
			return strings.EqualFold(c.LocationCountry, country)
		})
	}
	if city := strings.TrimSpace(f.LocationCity); city != "" {
		apply(StageLocation, "City: "+city, func(c models.CustomerRecord) bool {
			return strings.EqualFold(c.LocationCity, city)
		})
	}
	if f.CLVMin != nil {
		floor := *f.CLVMin
		apply(StageCLV, fmt.Sprintf("CLV score >= %.2f", floor), func(c models.CustomerRecord) bool {
			return c.CLVScore >= floor
		})
	}
	// Cart value only narrows populations that carry cart data.
	if f.CartValueMin != nil && hasCarts(current) {
		floor := *f.CartValueMin
		apply(StageCartValue, fmt.Sprintf("Cart value >= %.2f", floor), func(c models.CustomerRecord) bool {
			return c.CartValue != nil && *c.CartValue >= floor
		})
	}
	if strings.TrimSpace(trigger) != "" {
		tr := scoring.Resolve(trigger)
		apply(StageSensitivity, fmt.Sprintf("%s sensitivity > %.2f", tr.Name, e.Threshold), func(c models.CustomerRecord) bool {
			return tr.Sensitivity(c) > e.Threshold
		})
	}

	retained := 100.0
	if len(base) > 0 {
		retained = scoring.Round(float64(len(current))/float64(len(base))*100, 1)
	}

	return Result{
		RefinementResult: models.RefinementResult{
			StartingSize:         len(base),
			FinalSize:            len(current),
			PercentageRetained:   retained,
			FiltersApplied:       impacts,
			FinalAvgCLV:          segment.AvgCLV(current, e.DefaultAvgCLV),
			FinalAvgCartValue:    segment.AvgCartValue(current),
			DemographicBreakdown: segment.Demographics(current),
		},
		Population: current,
		Stages:     stages,
	}
}

// AppliedFilters reports each refinement stage as a filter the user may
// change.
func (r Result) AppliedFilters() []models.AppliedFilter {
	out := make([]models.AppliedFilter, 0, len(r.Stages))
	for _, st := range r.Stages {
		out = append(out, models.AppliedFilter{
			FilterType:  st.Name,
			Description: st.Description,
			Predicate:   st.Description,
			CanModify:   true,
		})
	}
	return out
}

func hasCarts(list []models.CustomerRecord) bool {
	for _, c := range list {
		if c.CartValue != nil {
			return true
		}
	}
	return false
}

func filterCustomers(list []models.CustomerRecord, keep func(models.CustomerRecord) bool) []models.CustomerRecord {
	out := make([]models.CustomerRecord, 0, len(list))
	for _, c := range list {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
