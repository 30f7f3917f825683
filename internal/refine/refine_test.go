package refine

import (
	"reflect"
	"testing"

	"github.com/aethersegment/backend/internal/models"
)

func ptr(v float64) *float64 { return &v }

func base() []models.CustomerRecord {
	return []models.CustomerRecord{
		{CustomerID: "1", LocationCountry: "UK", LocationCity: "London", CLVScore: 0.9, DiscountSensitivity: 0.8, CartValue: ptr(120)},
		{CustomerID: "2", LocationCountry: "uk", LocationCity: "Manchester", CLVScore: 0.6, DiscountSensitivity: 0.7, CartValue: ptr(80)},
		{CustomerID: "3", LocationCountry: "France", LocationCity: "Paris", CLVScore: 0.95, DiscountSensitivity: 0.2, CartValue: ptr(300)},
		{CustomerID: "4", LocationCountry: "UK", LocationCity: "london", CLVScore: 0.8, DiscountSensitivity: 0.66},
	}
}

func engine() Engine {
	return Engine{Threshold: 0.65, DefaultAvgCLV: 0.7}
}

func TestRefineEmptyFilters(t *testing.T) {
	res := engine().Refine(base(), models.RefinementFilters{}, "")
	if res.StartingSize != 4 || res.FinalSize != 4 || res.PercentageRetained != 100 {
		t.Fatalf("unexpected result %+v", res.RefinementResult)
	}
	if len(res.FiltersApplied) != 0 {
		t.Fatalf("expected no filter impacts, got %+v", res.FiltersApplied)
	}
}

func TestRefineEmptyBase(t *testing.T) {
	res := engine().Refine(nil, models.RefinementFilters{LocationCountry: "UK"}, "")
	if res.PercentageRetained != 100 || res.FinalAvgCLV != 0.7 || res.FinalAvgCartValue != nil {
		t.Fatalf("unexpected empty result %+v", res.RefinementResult)
	}
}

func TestRefineAppliedFilters(t *testing.T) {
	res := engine().Refine(base(), models.RefinementFilters{LocationCountry: "UK", CLVMin: ptr(0.7)}, "")
	got := res.AppliedFilters()
	if len(got) != 2 || got[0].FilterType != StageLocation || got[1].FilterType != StageCLV {
		t.Fatalf("unexpected applied filters %+v", got)
	}
	for _, f := range got {
		if !f.CanModify || f.Description == "" {
			t.Fatalf("refinement filter should be modifiable and described: %+v", f)
		}
	}
}

func TestRefineSkipsCartValueWithoutCarts(t *testing.T) {
	lapsed := []models.CustomerRecord{
		{CustomerID: "1", LocationCountry: "UK", CLVScore: 0.7},
		{CustomerID: "2", LocationCountry: "UK", CLVScore: 0.4},
	}
	res := engine().Refine(lapsed, models.RefinementFilters{CartValueMin: ptr(50)}, "")
	if res.FinalSize != 2 || len(res.Population) != 2 {
		t.Fatalf("expected population unchanged, got %+v", res.RefinementResult)
	}
	if len(res.FiltersApplied) != 0 {
		t.Fatalf("expected no cart value impact, got %+v", res.FiltersApplied)
	}
}

func TestRefineOrderAndImpacts(t *testing.T) {
	f := models.RefinementFilters{
		LocationCountry: "UK",
		LocationCity:    "LONDON",
		CLVMin:          ptr(0.85),
		CartValueMin:    ptr(100),
	}
	res := engine().Refine(base(), f, "personalized_discount")

	wantTypes := []string{StageLocation, StageLocation, StageCLV, StageCartValue, StageSensitivity}
	wantAfter := []int{3, 2, 1, 1, 1}
	if len(res.FiltersApplied) != len(wantTypes) {
		t.Fatalf("expected %d impacts, got %+v", len(wantTypes), res.FiltersApplied)
	}
	prev := res.StartingSize
	for i, imp := range res.FiltersApplied {
		if imp.Type != wantTypes[i] || imp.After != wantAfter[i] {
			t.Fatalf("step %d: got %s/%d, want %s/%d", i, imp.Type, imp.After, wantTypes[i], wantAfter[i])
		}
		if imp.Before != prev || imp.Impact != imp.Before-imp.After {
			t.Fatalf("step %d: inconsistent counts %+v", i, imp)
		}
		prev = imp.After
	}
	if res.FinalSize != 1 || res.Population[0].CustomerID != "1" {
		t.Fatalf("expected customer 1 only, got %+v", res.Population)
	}
	if res.PercentageRetained != 25 {
		t.Fatalf("expected 25%% retained, got %v", res.PercentageRetained)
	}
}

func TestRefineSensitivityThresholdExclusive(t *testing.T) {
	e := Engine{Threshold: 0.7, DefaultAvgCLV: 0.7}
	res := e.Refine(base(), models.RefinementFilters{}, "generic_discount")
	// 0.7 is not strictly above the threshold
	if res.FinalSize != 1 || res.Population[0].CustomerID != "1" {
		t.Fatalf("expected only customer 1, got %+v", res.Population)
	}
}

func TestRefineMonotonic(t *testing.T) {
	filters := []models.RefinementFilters{
		{LocationCountry: "UK"},
		{LocationCity: "Paris"},
		{CLVMin: ptr(0.7)},
		{CartValueMin: ptr(0)},
		{LocationCountry: "Nowhere"},
	}
	for _, f := range filters {
		res := engine().Refine(base(), f, "free_shipping")
		if res.FinalSize > res.StartingSize {
			t.Fatalf("refinement grew the population for %+v", f)
		}
		for _, imp := range res.FiltersApplied {
			if imp.After > imp.Before {
				t.Fatalf("step grew the population: %+v", imp)
			}
		}
	}
}

func TestRefineIdempotentAndPure(t *testing.T) {
	b := base()
	snapshot := append([]models.CustomerRecord(nil), b...)
	f := models.RefinementFilters{LocationCountry: "UK", CLVMin: ptr(0.7)}

	first := engine().Refine(b, f, "exclusivity")
	second := engine().Refine(b, f, "exclusivity")
	if !reflect.DeepEqual(first.RefinementResult, second.RefinementResult) {
		t.Fatalf("refinement is not idempotent:\n%+v\n%+v", first.RefinementResult, second.RefinementResult)
	}
	if !reflect.DeepEqual(b, snapshot) {
		t.Fatalf("base population was modified")
	}
}
