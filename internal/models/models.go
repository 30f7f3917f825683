package models

import "time"

type MetricTarget struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// CampaignObjective is the structured form of a free-text campaign intent.
// It is produced once per analysis and never mutated afterwards.
type CampaignObjective struct {
	CampaignGoal          string       `json:"campaign_goal"`
	TargetBehavior        string       `json:"target_behavior"`
	TargetSubgroup        string       `json:"target_subgroup,omitempty"`
	MetricTarget          MetricTarget `json:"metric_target"`
	TimeConstraint        string       `json:"time_constraint,omitempty"`
	ProposedIntervention  string       `json:"proposed_intervention"`
	UnderlyingAssumptions []string     `json:"underlying_assumptions"`
}

const (
	FilterBehavior   = "behavior"
	FilterTiming     = "timing"
	FilterValue      = "value"
	FilterCartValue  = "cart_value"
	FilterPreference = "preference"
)

type AppliedFilter struct {
	FilterType  string `json:"filter_type"`
	Description string `json:"description"`
	Predicate   string `json:"predicate"`
	CanModify   bool   `json:"can_modify"`
}

type CustomerRecord struct {
	CustomerID              string   `json:"customer_id"`
	Email                   string   `json:"email,omitempty"`
	FirstName               string   `json:"first_name,omitempty"`
	CLVScore                float64  `json:"clv_score"`
	LocationCity            string   `json:"location_city"`
	LocationCountry         string   `json:"location_country"`
	DiscountSensitivity     float64  `json:"discount_sensitivity"`
	FreeShippingSensitivity float64  `json:"free_shipping_sensitivity"`
	ExclusivitySeeker       bool     `json:"exclusivity_seeker"`
	SocialProofAffinity     float64  `json:"social_proof_affinity"`
	ContentEngagement       float64  `json:"content_engagement"`
	ChurnProbability        float64  `json:"churn_probability"`
	CartID                  *string  `json:"cart_id,omitempty"`
	CartValue               *float64 `json:"cart_value,omitempty"`
}

type CityCount struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

type DemographicBreakdown struct {
	TopCities    []CityCount    `json:"top_cities"`
	TopCountries map[string]int `json:"top_countries,omitempty"`
}

type SegmentMetadata struct {
	SegmentID            string               `json:"segment_id"`
	EstimatedSize        int                  `json:"estimated_size"`
	AvgCLVScore          float64              `json:"avg_clv_score"`
	AvgCartValue         *float64             `json:"avg_cart_value,omitempty"`
	PredictedUplift      float64              `json:"predicted_uplift"`
	PredictedROI         string               `json:"predicted_roi"`
	RecommendedTrigger   string               `json:"recommended_trigger,omitempty"`
	DemographicBreakdown DemographicBreakdown `json:"demographic_breakdown"`
	AppliedFilters       []AppliedFilter      `json:"applied_filters"`
}

type TriggerRecommendation struct {
	TriggerID       string  `json:"trigger_id"`
	TriggerType     string  `json:"trigger_type"`
	TriggerName     string  `json:"trigger_name"`
	ConfidenceScore float64 `json:"confidence_score"`
	PredictedUplift float64 `json:"predicted_uplift"`
	Description     string  `json:"description"`
	Rationale       string  `json:"rationale"`
}

// RefinementFilters are the ad hoc filters a user layers on top of a
// resolved population. Zero values mean "not set".
type RefinementFilters struct {
	LocationCountry string   `json:"location_country,omitempty"`
	LocationCity    string   `json:"location_city,omitempty"`
	CLVMin          *float64 `json:"clv_min,omitempty" validate:"omitempty,gte=0,lte=1"`
	CartValueMin    *float64 `json:"cart_value_min,omitempty" validate:"omitempty,gte=0"`
}

func (f RefinementFilters) IsEmpty() bool {
	return f.LocationCountry == "" && f.LocationCity == "" && f.CLVMin == nil && f.CartValueMin == nil
}

type FilterImpact struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Before      int    `json:"before"`
	After       int    `json:"after"`
	Impact      int    `json:"impact"`
}

type RefinementResult struct {
	StartingSize         int                  `json:"starting_size"`
	FinalSize            int                  `json:"final_size"`
	PercentageRetained   float64              `json:"percentage_retained"`
	FiltersApplied       []FilterImpact       `json:"filters_applied"`
	FinalAvgCLV          float64              `json:"final_avg_clv"`
	FinalAvgCartValue    *float64             `json:"final_avg_cart_value,omitempty"`
	DemographicBreakdown DemographicBreakdown `json:"demographic_breakdown"`
}

type KeyFactor struct {
	Feature     string  `json:"feature"`
	Importance  float64 `json:"importance"`
	Description string  `json:"description"`
}

type Explanation struct {
	WhyThisSegment     string      `json:"why_this_segment"`
	KeyFactors         []KeyFactor `json:"key_factors"`
	RecommendedTrigger string      `json:"recommended_trigger,omitempty"`
	TriggerRationale   string      `json:"trigger_rationale,omitempty"`
	SampleSize         int         `json:"sample_size"`
	ConfidenceLevel    string      `json:"confidence_level"`
}

type AnalysisResult struct {
	CampaignObjective CampaignObjective       `json:"campaign_objective_object"`
	SegmentPreview    SegmentMetadata         `json:"segment_preview"`
	TriggerCandidates []TriggerRecommendation `json:"trigger_suggestions"`
	Explanation       Explanation             `json:"explainability"`
}

type FilteringStep struct {
	Step        string `json:"step"`
	Description string `json:"description"`
}

type SegmentSummary struct {
	SummaryText     string          `json:"summary_text"`
	FilteringSteps  []FilteringStep `json:"filtering_steps"`
	PrimaryLocation string          `json:"primary_location,omitempty"`
	ConfidenceLevel string          `json:"confidence_level"`
}

// Segment is terminal once created: the population and metadata are frozen.
type Segment struct {
	SegmentID         string            `json:"segment_id"`
	Trigger           string            `json:"trigger"`
	CampaignObjective CampaignObjective `json:"campaign_objective_object"`
	Filters           RefinementFilters `json:"additional_filters"`
	Metadata          SegmentMetadata   `json:"metadata"`
	Summary           SegmentSummary    `json:"summary"`
	Customers         []CustomerRecord  `json:"customers"`
	CreatedAt         time.Time         `json:"created_at"`
}

type CampaignOpportunity struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	SegmentSize     int     `json:"segment_size"`
	PotentialUplift float64 `json:"potential_uplift"`
}

type KeyMetrics struct {
	TotalCustomers   int     `json:"total_customers"`
	AbandonedCarts7d int     `json:"abandoned_carts_7d"`
	AvgCLVScore      float64 `json:"avg_clv_score"`
	AtRiskCustomers  int     `json:"at_risk_customers"`
}

type DataHealth struct {
	TotalEvents      int        `json:"total_events"`
	LatestEvent      *time.Time `json:"latest_event,omitempty"`
	CustomerCoverage float64    `json:"customer_coverage"`
}

type OverviewStats struct {
	Metrics                *KeyMetrics           `json:"metrics,omitempty"`
	GeographicDistribution map[string]int        `json:"geographic_distribution"`
	ValueSegments          map[string]int        `json:"value_segments"`
	Opportunities          []CampaignOpportunity `json:"opportunities"`
	DataHealth             *DataHealth           `json:"data_health,omitempty"`
	Errors                 map[string]string     `json:"errors,omitempty"`
	Cached                 bool                  `json:"cached"`
	LastUpdated            time.Time             `json:"last_updated"`
}
