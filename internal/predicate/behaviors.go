package predicate

import (
	"fmt"
	"time"

	"github.com/aethersegment/backend/internal/models"
)

func abandonedCart(c Context) []Predicate {
	window := lookbackWindow(c.Objective.TimeConstraint, c.CartLookback)
	cutoff := c.Now.Add(-window)

	return []Predicate{
		newPredicate("abandoned_cart.status", models.FilterBehavior,
			"Customers with an abandoned cart", false,
			[]Join{JoinCarts},
			func(a *Args) string { return "ac.cart_id IS NOT NULL" },
			func(f Facts) bool { return f.Cart != nil },
		),
		newPredicate("abandoned_cart.window", models.FilterTiming,
			fmt.Sprintf("Cart abandoned within the last %s", formatWindow(window)), true,
			[]Join{JoinCarts},
			func(a *Args) string { return "ac.abandoned_at >= " + a.Add(cutoff) },
			func(f Facts) bool { return f.Cart != nil && !f.Cart.AbandonedAt.Before(cutoff) },
		),
		newPredicate("abandoned_cart.value", models.FilterCartValue,
			"Cart value above the average abandoned cart", true,
			[]Join{JoinCarts},
			func(a *Args) string {
				return "ac.cart_value > (SELECT AVG(cart_value) FROM abandoned_carts)"
			},
			func(f Facts) bool { return f.Cart != nil && f.Cart.Value > f.AvgCartValue },
		),
	}
}

func lapsedCustomer(c Context) []Predicate {
	out := []Predicate{
		newPredicate("lapsed_customer.churn", models.FilterBehavior,
			fmt.Sprintf("Churn probability above %.1f", ChurnThreshold), false,
			nil,
			func(a *Args) string { return "cs.churn_probability_score > " + a.Add(ChurnThreshold) },
			func(f Facts) bool { return f.Customer.ChurnProbability > ChurnThreshold },
		),
	}
	if NormalizeKey(c.Objective.CampaignGoal) == "win_back" {
		out = append(out, newPredicate("lapsed_customer.exclusivity", models.FilterPreference,
			"Responds to exclusive offers", true,
			nil,
			func(a *Args) string { return "cs.exclusivity_seeker_flag = TRUE" },
			func(f Facts) bool { return f.Customer.ExclusivitySeeker },
		))
	}
	return out
}

func highEngagement(Context) []Predicate {
	return []Predicate{
		newPredicate("high_engagement.content", models.FilterBehavior,
			fmt.Sprintf("Content engagement above %.1f", EngagementThreshold), false,
			nil,
			func(a *Args) string { return "cs.content_engagement_score > " + a.Add(EngagementThreshold) },
			func(f Facts) bool { return f.Customer.ContentEngagement > EngagementThreshold },
		),
	}
}

func crossSell(c Context) []Predicate {
	cutoff := c.Now.Add(-CrossSellWindow)
	return []Predicate{
		newPredicate("cross_sell.recent_purchase", models.FilterBehavior,
			"Purchased within the last 30 days", false,
			[]Join{JoinLastPurchase},
			func(a *Args) string { return "tx.last_purchase_at >= " + a.Add(cutoff) },
			func(f Facts) bool { return f.LastPurchaseAt != nil && !f.LastPurchaseAt.Before(cutoff) },
		),
	}
}

func newCustomer(c Context) []Predicate {
	cutoff := c.Now.Add(-NewCustomerWindow)
	return []Predicate{
		newPredicate("new_customer.created", models.FilterBehavior,
			"Joined within the last 7 days", false,
			nil,
			func(a *Args) string { return "c.creation_date >= " + a.Add(cutoff) },
			func(f Facts) bool { return !f.CreatedAt.Before(cutoff) },
		),
	}
}

func retention(c Context) []Predicate {
	newest := c.Now.Add(-RetentionMinAge)
	oldest := c.Now.Add(-RetentionMaxAge)
	return []Predicate{
		newPredicate("retention.last_purchase", models.FilterBehavior,
			"Last purchase between 30 and 90 days ago", false,
			[]Join{JoinLastPurchase},
			func(a *Args) string {
				return fmt.Sprintf("tx.last_purchase_at BETWEEN %s AND %s", a.Add(oldest), a.Add(newest))
			},
			func(f Facts) bool {
				return f.LastPurchaseAt != nil && inRange(*f.LastPurchaseAt, oldest, newest)
			},
		),
	}
}

func reactivation(c Context) []Predicate {
	cutoff := c.Now.Add(-ReactivationWindow)
	return []Predicate{
		newPredicate("reactivation.no_events", models.FilterBehavior,
			"No activity in the last 90 days", false,
			[]Join{JoinLastEvent},
			func(a *Args) string {
				return "(ev.last_event_at IS NULL OR ev.last_event_at < " + a.Add(cutoff) + ")"
			},
			func(f Facts) bool { return f.LastEventAt == nil || f.LastEventAt.Before(cutoff) },
		),
	}
}

func highValue() Predicate {
	return newPredicate("subgroup.high_value", models.FilterValue,
		fmt.Sprintf("CLV score at least %.2f", HighValueCLV), true,
		nil,
		func(a *Args) string { return "c.clv_score >= " + a.Add(HighValueCLV) },
		func(f Facts) bool { return f.Customer.CLVScore >= HighValueCLV },
	)
}

func inRange(t, lo, hi time.Time) bool {
	return !t.Before(lo) && !t.After(hi)
}
