package query

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aethersegment/backend/internal/models"
	"github.com/aethersegment/backend/internal/predicate"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func builder() Builder {
	return Builder{Registry: predicate.NewRegistry(), CartLookback: predicate.DefaultCartLookback}
}

func TestBuildUnknownBehaviorHasNoWhere(t *testing.T) {
	plan := builder().Build(models.CampaignObjective{TargetBehavior: "foo_bar"}, now)
	if strings.Contains(plan.SQL, "WHERE") {
		t.Fatalf("expected no WHERE clause:\n%s", plan.SQL)
	}
	if len(plan.Args) != 0 || len(plan.Filters) != 0 {
		t.Fatalf("expected no args or filters, got %v %v", plan.Args, plan.Filters)
	}
	if plan.Filters == nil {
		t.Fatalf("filters should be an empty list, not nil")
	}
}

func TestBuildAbandonedCart(t *testing.T) {
	plan := builder().Build(models.CampaignObjective{
		TargetBehavior: "abandoned_cart",
		TimeConstraint: "48 hours",
		TargetSubgroup: "high_value_shopper",
	}, now)

	for _, want := range []string{
		"ac.cart_id, ac.cart_value",
		"DISTINCT ON (customer_id)",
		"ac.abandoned_at >= $1",
		"ac.cart_value > (SELECT AVG(cart_value) FROM abandoned_carts)",
		"c.clv_score >= $2",
		"ORDER BY c.clv_score DESC, cs.discount_sensitivity_score DESC",
	} {
		if !strings.Contains(plan.SQL, want) {
			t.Fatalf("expected %q in:\n%s", want, plan.SQL)
		}
	}
	if len(plan.Args) != 2 {
		t.Fatalf("expected 2 args, got %v", plan.Args)
	}
	if len(plan.Filters) != 4 {
		t.Fatalf("expected 4 applied filters, got %d", len(plan.Filters))
	}
}

func TestBuildNeverJoinsRawTransactions(t *testing.T) {
	for _, behavior := range []string{"cross_sell", "retention", "reactivation", "abandoned_cart"} {
		plan := builder().Build(models.CampaignObjective{TargetBehavior: behavior}, now)
		sql := strings.ToUpper(plan.SQL)
		for _, raw := range []string{"JOIN TRANSACTIONS", "JOIN BEHAVIORAL_EVENTS", "JOIN ABANDONED_CARTS"} {
			if strings.Contains(sql, raw) {
				t.Fatalf("%s: one-to-many relation joined directly:\n%s", behavior, plan.SQL)
			}
		}
		if strings.Contains(sql, "FROM TRANSACTIONS") && !strings.Contains(sql, "GROUP BY CUSTOMER_ID") {
			t.Fatalf("%s: transactions must be aggregated per customer:\n%s", behavior, plan.SQL)
		}
	}
}

func TestBuildJoinsDeduplicated(t *testing.T) {
	plan := builder().Build(models.CampaignObjective{TargetBehavior: "abandoned_cart"}, now)
	if len(plan.Joins) != 1 || plan.Joins[0] != predicate.JoinCarts {
		t.Fatalf("expected a single cart join, got %v", plan.Joins)
	}
	if c := strings.Count(plan.SQL, "FROM abandoned_carts\n"); c != 1 {
		t.Fatalf("expected one cart subquery, got %d", c)
	}
}

type fakeWarehouse struct {
	records []models.CustomerRecord
	err     error
}

func (f fakeWarehouse) FetchCandidates(context.Context, Plan) ([]models.CustomerRecord, error) {
	return f.records, f.err
}

func (f fakeWarehouse) Count(context.Context, Plan) (int, error) {
	return len(f.records), f.err
}

func TestResolveDetectsDuplicates(t *testing.T) {
	r := Resolver{
		Builder: builder(),
		Warehouse: fakeWarehouse{records: []models.CustomerRecord{
			{CustomerID: "a"}, {CustomerID: "b"}, {CustomerID: "a"},
		}},
		Logger: zerolog.Nop(),
	}
	_, _, err := r.Resolve(context.Background(), models.CampaignObjective{TargetBehavior: "cross_sell"}, now)
	var dup *DuplicateCustomerError
	if !errors.As(err, &dup) || dup.CustomerID != "a" {
		t.Fatalf("expected duplicate error for a, got %v", err)
	}
}

func TestResolvePropagatesWarehouseError(t *testing.T) {
	boom := errors.New("connection refused")
	r := Resolver{Builder: builder(), Warehouse: fakeWarehouse{err: boom}, Logger: zerolog.Nop()}
	_, _, err := r.Resolve(context.Background(), models.CampaignObjective{}, now)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped warehouse error, got %v", err)
	}
}

func TestPlanMatch(t *testing.T) {
	plan := builder().Build(models.CampaignObjective{TargetBehavior: "lapsed_customer"}, now)
	if !plan.Match(predicate.Facts{Customer: models.CustomerRecord{ChurnProbability: 0.8}}) {
		t.Fatalf("expected churned customer to match")
	}
	if plan.Match(predicate.Facts{Customer: models.CustomerRecord{ChurnProbability: 0.6}}) {
		t.Fatalf("threshold is exclusive")
	}
}
