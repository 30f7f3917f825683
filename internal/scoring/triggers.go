package scoring

import (
	"github.com/aethersegment/backend/internal/models"
	"github.com/aethersegment/backend/internal/predicate"
)

const (
	CategoryValueDriven   = "value_driven"
	CategoryPsychological = "psychological"
	CategoryInformational = "informational"
)

// Trigger is a marketing intervention customers are scored against.
type Trigger struct {
	ID                string
	Name              string
	Category          string
	Description       string
	BaseEffectiveness float64
	// NoiseStdDev is the standard deviation of the per-score noise term.
	NoiseStdDev float64
	Sensitivity func(c models.CustomerRecord) float64
}

func discountSensitivity(c models.CustomerRecord) float64 { return c.DiscountSensitivity }
func shippingSensitivity(c models.CustomerRecord) float64 { return c.FreeShippingSensitivity }
func socialSensitivity(c models.CustomerRecord) float64   { return c.SocialProofAffinity }
func exclusivitySensitivity(c models.CustomerRecord) float64 {
	if c.ExclusivitySeeker {
		return 1
	}
	return 0
}

// Catalogue lists the supported triggers in declaration order, which also
// breaks ties between equally scored triggers.
var Catalogue = []Trigger{
	{"personalized_discount", "Personalized Discount", CategoryValueDriven,
		"Offer tailored to the customer's price sensitivity and history", 0.75, 0.045, discountSensitivity},
	{"generic_discount", "Generic Discount", CategoryValueDriven,
		"Standard percentage discount across the segment", 0.72, 0.048, discountSensitivity},
	{"free_shipping", "Free Shipping", CategoryValueDriven,
		"Waive shipping costs on the next order", 0.68, 0.050, shippingSensitivity},
	{"bundling", "Product Bundling", CategoryValueDriven,
		"Discounted bundle of complementary products", 0.63, 0.050, discountSensitivity},
	{"scarcity", "Scarcity / Urgency", CategoryPsychological,
		"Limited stock or time-boxed availability messaging", 0.60, 0.053, discountSensitivity},
	{"exclusivity", "Exclusive Access", CategoryPsychological,
		"Early or members-only access to products", 0.58, 0.055, exclusivitySensitivity},
	{"social_proof", "Social Proof", CategoryInformational,
		"Reviews, ratings and popularity signals", 0.55, 0.057, socialSensitivity},
}

var triggerAliases = map[string]string{
	"discount":                    "generic_discount",
	"personalized_discount_offer": "personalized_discount",
	"free_expedited_shipping":     "free_shipping",
	"urgency":                     "scarcity",
	"bundle":                      "bundling",
}

// Lookup finds a catalogue trigger by id or alias.
func Lookup(id string) (Trigger, bool) {
	key := predicate.NormalizeKey(id)
	if target, ok := triggerAliases[key]; ok {
		key = target
	}
	for _, t := range Catalogue {
		if t.ID == key {
			return t, true
		}
	}
	return Trigger{}, false
}

// Resolve returns the catalogue trigger for id, or a generic trigger scored
// on discount sensitivity when id is unknown.
func Resolve(id string) Trigger {
	if t, ok := Lookup(id); ok {
		return t
	}
	key := predicate.NormalizeKey(id)
	return Trigger{
		ID:                key,
		Name:              key,
		Category:          CategoryValueDriven,
		Description:       "Custom intervention",
		BaseEffectiveness: 0.55,
		NoiseStdDev:       0.05,
		Sensitivity:       discountSensitivity,
	}
}

// Candidates returns the catalogue plus the proposed intervention when it
// is not part of the catalogue.
func Candidates(coo models.CampaignObjective) []Trigger {
	out := append([]Trigger(nil), Catalogue...)
	if coo.ProposedIntervention == "" {
		return out
	}
	if _, ok := Lookup(coo.ProposedIntervention); !ok {
		out = append(out, Resolve(coo.ProposedIntervention))
	}
	return out
}
