package predicate

import (
	"sort"
	"strings"
	"time"

	"github.com/aethersegment/backend/internal/models"
)

const (
	ChurnThreshold      = 0.6
	EngagementThreshold = 0.7
	HighValueCLV        = 0.75
	CrossSellWindow     = 30 * 24 * time.Hour
	NewCustomerWindow   = 7 * 24 * time.Hour
	RetentionMinAge     = 30 * 24 * time.Hour
	RetentionMaxAge     = 90 * 24 * time.Hour
	ReactivationWindow  = 90 * 24 * time.Hour
	DefaultCartLookback = 7 * 24 * time.Hour
)

// Context carries what a builder needs besides the registry itself.
type Context struct {
	Objective    models.CampaignObjective
	Now          time.Time
	CartLookback time.Duration
}

// Builder produces the predicates for one behavior key.
type Builder func(c Context) []Predicate

// Registry maps behavior keys to predicate builders. Unknown keys resolve
// to no predicates.
type Registry struct {
	builders map[string]Builder
	aliases  map[string]string
}

func NewRegistry() *Registry {
	r := &Registry{builders: map[string]Builder{}, aliases: map[string]string{}}
	r.Register("abandoned_cart", abandonedCart)
	r.Register("lapsed_customer", lapsedCustomer)
	r.Register("high_engagement", highEngagement)
	r.Register("cross_sell", crossSell)
	r.Register("new_customer", newCustomer)
	r.Register("retention", retention)
	r.Register("reactivation", reactivation)

	r.Alias("active_customer", "high_engagement")
	r.Alias("acquisition", "new_customer")
	r.Alias("repeat_purchase", "retention")
	r.Alias("dormant", "reactivation")
	return r
}

func (r *Registry) Register(key string, b Builder) {
	r.builders[NormalizeKey(key)] = b
}

func (r *Registry) Alias(alias, key string) {
	r.aliases[NormalizeKey(alias)] = NormalizeKey(key)
}

// Lookup returns the builder for key, following aliases.
func (r *Registry) Lookup(key string) (Builder, bool) {
	k := NormalizeKey(key)
	if target, ok := r.aliases[k]; ok {
		k = target
	}
	b, ok := r.builders[k]
	return b, ok
}

// Keys lists registered behaviors and aliases, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.builders)+len(r.aliases))
	for k := range r.builders {
		keys = append(keys, k)
	}
	for k := range r.aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve returns every predicate activated by the objective: the behavior
// predicates followed by the orthogonal subgroup predicates.
func (r *Registry) Resolve(c Context) []Predicate {
	if c.CartLookback <= 0 {
		c.CartLookback = DefaultCartLookback
	}
	var out []Predicate
	if b, ok := r.Lookup(c.Objective.TargetBehavior); ok {
		out = append(out, b(c)...)
	}
	if IsHighValueSubgroup(c.Objective.TargetSubgroup) {
		out = append(out, highValue())
	}
	return out
}

func NormalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func IsHighValueSubgroup(subgroup string) bool {
	s := NormalizeKey(subgroup)
	return strings.Contains(s, "high_value") || strings.Contains(s, "vip")
}
