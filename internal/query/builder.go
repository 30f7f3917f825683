package query

import (
	"sort"
	"strings"
	"time"

	"github.com/aethersegment/backend/internal/models"
	"github.com/aethersegment/backend/internal/predicate"
)

const selectColumns = `SELECT c.customer_id, c.email_address, c.first_name, c.clv_score,
       c.location_city, c.location_country,
       cs.discount_sensitivity_score, cs.free_shipping_sensitivity_score,
       cs.exclusivity_seeker_flag, cs.social_proof_affinity,
       cs.content_engagement_score, cs.churn_probability_score`

const cartColumns = `,
       ac.cart_id, ac.cart_value`

const baseFrom = `
FROM customers c
JOIN customer_scores cs ON cs.customer_id = c.customer_id`

// Each join reduces its relation to one row per customer before joining.
var joinSQL = map[predicate.Join]string{
	predicate.JoinCarts: `
JOIN (
    SELECT DISTINCT ON (customer_id) customer_id, cart_id, cart_value, timestamp AS abandoned_at
    FROM abandoned_carts
    WHERE status = 'abandoned'
    ORDER BY customer_id, timestamp DESC, cart_id
) ac ON ac.customer_id = c.customer_id`,
	predicate.JoinLastPurchase: `
LEFT JOIN (
    SELECT customer_id, MAX(timestamp) AS last_purchase_at
    FROM transactions
    GROUP BY customer_id
) tx ON tx.customer_id = c.customer_id`,
	predicate.JoinLastEvent: `
LEFT JOIN (
    SELECT customer_id, MAX(timestamp) AS last_event_at
    FROM behavioral_events
    GROUP BY customer_id
) ev ON ev.customer_id = c.customer_id`,
}

const orderBy = `
ORDER BY c.clv_score DESC, cs.discount_sensitivity_score DESC, c.customer_id`

// Plan is a compiled population query for one objective.
type Plan struct {
	Objective  models.CampaignObjective
	Predicates []predicate.Predicate
	Filters    []models.AppliedFilter
	Joins      []predicate.Join
	Now        time.Time
	SQL        string
	Args       []any
}

// HasJoin reports whether the plan needs the given per-customer relation.
func (p Plan) HasJoin(j predicate.Join) bool {
	for _, x := range p.Joins {
		if x == j {
			return true
		}
	}
	return false
}

// CountSQL wraps the plan in a COUNT(*).
func (p Plan) CountSQL() string {
	return "SELECT COUNT(*) FROM (" + p.SQL + "\n) population"
}

// Match evaluates every predicate against in-process facts.
func (p Plan) Match(f predicate.Facts) bool {
	for _, pr := range p.Predicates {
		if !pr.Match(f) {
			return false
		}
	}
	return true
}

type Builder struct {
	Registry     *predicate.Registry
	CartLookback time.Duration
}

// Build compiles the objective into a single AND-combined query.
func (b Builder) Build(coo models.CampaignObjective, now time.Time) Plan {
	preds := b.Registry.Resolve(predicate.Context{
		Objective:    coo,
		Now:          now,
		CartLookback: b.CartLookback,
	})

	plan := Plan{Objective: coo, Predicates: preds, Now: now, Filters: []models.AppliedFilter{}}
	seen := map[predicate.Join]bool{}
	for _, p := range preds {
		plan.Filters = append(plan.Filters, p.Filter)
		for _, j := range p.Joins {
			if !seen[j] {
				seen[j] = true
				plan.Joins = append(plan.Joins, j)
			}
		}
	}
	sort.Slice(plan.Joins, func(i, j int) bool { return plan.Joins[i] < plan.Joins[j] })

	var args predicate.Args
	var sb strings.Builder
	sb.WriteString(selectColumns)
	if plan.HasJoin(predicate.JoinCarts) {
		sb.WriteString(cartColumns)
	}
	sb.WriteString(baseFrom)
	for _, j := range plan.Joins {
		sb.WriteString(joinSQL[j])
	}

	wheres := make([]string, 0, len(preds))
	for _, p := range preds {
		wheres = append(wheres, p.SQL(&args))
	}
	if len(wheres) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(wheres, "\n  AND "))
	}
	sb.WriteString(orderBy)

	plan.SQL = sb.String()
	plan.Args = args.Values()
	return plan
}
