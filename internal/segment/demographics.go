package segment

import (
	"sort"

	"github.com/aethersegment/backend/internal/models"
)

func Demographics(records []models.CustomerRecord) models.DemographicBreakdown {
	cities := map[string]int{}
	countries := map[string]int{}
	for _, r := range records {
		if r.LocationCity != "" {
			cities[r.LocationCity]++
		}
		if r.LocationCountry != "" {
			countries[r.LocationCountry]++
		}
	}

	top := topN(cities, TopCitiesLimit)
	out := models.DemographicBreakdown{
		TopCities:    make([]models.CityCount, 0, len(top)),
		TopCountries: map[string]int{},
	}
	for _, k := range top {
		out.TopCities = append(out.TopCities, models.CityCount{City: k, Count: cities[k]})
	}
	for _, k := range topN(countries, TopCitiesLimit) {
		out.TopCountries[k] = countries[k]
	}
	return out
}

// topN returns keys by descending count, ties by name.
func topN(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// PrimaryLocation is the most common city, or "" for an empty population.
func PrimaryLocation(b models.DemographicBreakdown) string {
	if len(b.TopCities) == 0 {
		return ""
	}
	return b.TopCities[0].City
}
