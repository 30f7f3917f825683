package predicate

import (
	"strings"
	"testing"
	"time"

	"github.com/aethersegment/backend/internal/models"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func resolve(coo models.CampaignObjective) []Predicate {
	return NewRegistry().Resolve(Context{Objective: coo, Now: now, CartLookback: DefaultCartLookback})
}

func TestParseTimeConstraint(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"48 hours", 48 * time.Hour, true},
		{"48_hours_post_abandonment", 48 * time.Hour, true},
		{"7_days", 7 * 24 * time.Hour, true},
		{"within 2 weeks", 14 * 24 * time.Hour, true},
		{"1 month", 30 * 24 * time.Hour, true},
		{"24h", 24 * time.Hour, true},
		{"ASAP", 0, false},
		{"", 0, false},
		{"99999999999 days", 0, false},
		{"0.001 hours", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseTimeConstraint(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseTimeConstraint(%q) = %s %v, want %s %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFormatWindow(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{time.Hour, "1 hour"},
		{24 * time.Hour, "24 hours"},
		{48 * time.Hour, "48 hours"},
		{72 * time.Hour, "3 days"},
		{7 * 24 * time.Hour, "7 days"},
		{100 * time.Hour, "100 hours"},
		{90 * time.Minute, "1h30m0s"},
	}
	for _, tc := range cases {
		if got := formatWindow(tc.in); got != tc.want {
			t.Fatalf("formatWindow(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestOversizedConstraintKeepsDefaultWindow(t *testing.T) {
	if got := lookbackWindow("99999999999 days", DefaultCartLookback); got != DefaultCartLookback {
		t.Fatalf("expected default window, got %s", got)
	}

	preds := resolve(models.CampaignObjective{TargetBehavior: "abandoned_cart", TimeConstraint: "99999999999 days"})
	var window Predicate
	for _, p := range preds {
		if p.Filter.FilterType == models.FilterTiming {
			window = p
		}
	}
	if window.Match == nil {
		t.Fatalf("expected a timing predicate")
	}
	if !strings.Contains(window.Filter.Description, "7 days") {
		t.Fatalf("expected default window in description, got %q", window.Filter.Description)
	}
	old := Facts{Cart: &Cart{ID: "c1", Value: 10, AbandonedAt: now.Add(-30 * 24 * time.Hour)}}
	if window.Match(old) {
		t.Fatalf("cart outside the default window should not match")
	}
}

func TestLookbackOnlyNarrows(t *testing.T) {
	if got := lookbackWindow("48 hours", DefaultCartLookback); got != 48*time.Hour {
		t.Fatalf("expected 48h, got %s", got)
	}
	if got := lookbackWindow("3 weeks", DefaultCartLookback); got != DefaultCartLookback {
		t.Fatalf("wider constraint should not override, got %s", got)
	}
	if got := lookbackWindow("", DefaultCartLookback); got != DefaultCartLookback {
		t.Fatalf("expected default, got %s", got)
	}
}

func TestUnknownBehaviorResolvesEmpty(t *testing.T) {
	if preds := resolve(models.CampaignObjective{TargetBehavior: "foo_bar"}); len(preds) != 0 {
		t.Fatalf("expected no predicates, got %d", len(preds))
	}
}

func TestAbandonedCartPredicates(t *testing.T) {
	preds := resolve(models.CampaignObjective{
		TargetBehavior: "abandoned_cart",
		TimeConstraint: "48 hours",
		TargetSubgroup: "high_value_shopper",
	})
	if len(preds) != 4 {
		t.Fatalf("expected 4 predicates, got %d", len(preds))
	}

	types := []string{models.FilterBehavior, models.FilterTiming, models.FilterCartValue, models.FilterValue}
	for i, p := range preds {
		if p.Filter.FilterType != types[i] {
			t.Fatalf("predicate %d: expected %s, got %s", i, types[i], p.Filter.FilterType)
		}
		if p.Filter.CanModify == (p.Filter.FilterType == models.FilterBehavior) {
			t.Fatalf("predicate %s has wrong can_modify", p.Name)
		}
	}
	if !strings.Contains(preds[1].Filter.Description, "48 hours") {
		t.Fatalf("expected window in description, got %q", preds[1].Filter.Description)
	}

	var args Args
	sql := preds[1].SQL(&args)
	if sql != "ac.abandoned_at >= $1" || args.Values()[0] != now.Add(-48*time.Hour) {
		t.Fatalf("unexpected timing sql %q %v", sql, args.Values())
	}

	recent := Facts{
		Customer:     models.CustomerRecord{CLVScore: 0.9},
		Cart:         &Cart{ID: "c1", Value: 150, AbandonedAt: now.Add(-10 * time.Hour)},
		AvgCartValue: 100,
	}
	for _, p := range preds {
		if !p.Match(recent) {
			t.Fatalf("predicate %s should match recent high-value cart", p.Name)
		}
	}
	stale := recent
	stale.Cart = &Cart{ID: "c2", Value: 150, AbandonedAt: now.Add(-72 * time.Hour)}
	if preds[1].Match(stale) {
		t.Fatalf("timing predicate should reject a 72h old cart")
	}
}

func TestLapsedWinBackAddsExclusivity(t *testing.T) {
	preds := resolve(models.CampaignObjective{TargetBehavior: "lapsed_customer", CampaignGoal: "win_back"})
	if len(preds) != 2 || preds[1].Filter.FilterType != models.FilterPreference {
		t.Fatalf("expected churn + exclusivity predicates, got %+v", preds)
	}
	preds = resolve(models.CampaignObjective{TargetBehavior: "lapsed_customer", CampaignGoal: "conversion"})
	if len(preds) != 1 {
		t.Fatalf("expected churn predicate only, got %d", len(preds))
	}
}

func TestAliases(t *testing.T) {
	cases := map[string]string{
		"active_customer": "high_engagement.content",
		"Acquisition":     "new_customer.created",
		"repeat-purchase": "retention.last_purchase",
		"dormant":         "reactivation.no_events",
	}
	for key, name := range cases {
		preds := resolve(models.CampaignObjective{TargetBehavior: key})
		if len(preds) != 1 || preds[0].Name != name {
			t.Fatalf("%s: expected %s, got %+v", key, name, preds)
		}
	}
}

func TestTransactionPredicatesMatch(t *testing.T) {
	at := func(d time.Duration) *time.Time { v := now.Add(-d); return &v }
	day := 24 * time.Hour

	retentionPred := resolve(models.CampaignObjective{TargetBehavior: "retention"})[0]
	if !retentionPred.Match(Facts{LastPurchaseAt: at(45 * day)}) {
		t.Fatalf("45 day old purchase should be in the retention band")
	}
	if retentionPred.Match(Facts{LastPurchaseAt: at(10 * day)}) || retentionPred.Match(Facts{}) {
		t.Fatalf("recent or missing purchase should not be in the retention band")
	}

	reactivationPred := resolve(models.CampaignObjective{TargetBehavior: "reactivation"})[0]
	if !reactivationPred.Match(Facts{}) || !reactivationPred.Match(Facts{LastEventAt: at(120 * day)}) {
		t.Fatalf("no recent events should match reactivation")
	}
	if reactivationPred.Match(Facts{LastEventAt: at(5 * day)}) {
		t.Fatalf("recent event should not match reactivation")
	}

	crossSellPred := resolve(models.CampaignObjective{TargetBehavior: "cross_sell"})[0]
	if !crossSellPred.Match(Facts{LastPurchaseAt: at(3 * day)}) || crossSellPred.Match(Facts{LastPurchaseAt: at(40 * day)}) {
		t.Fatalf("cross sell window mismatch")
	}
}

func TestRegisterExtendsRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("vip_birthday", func(Context) []Predicate { return []Predicate{highValue()} })
	preds := r.Resolve(Context{Objective: models.CampaignObjective{TargetBehavior: "VIP Birthday"}, Now: now})
	if len(preds) != 1 {
		t.Fatalf("expected registered builder to resolve, got %d", len(preds))
	}
}
