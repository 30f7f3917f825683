package predicate

import (
	"fmt"
	"time"

	"github.com/aethersegment/backend/internal/models"
)

// Join names a per-customer relation a predicate needs. Every join yields
// at most one row per customer.
type Join int

const (
	// JoinCarts is the latest abandoned cart per customer (inner join).
	JoinCarts Join = iota + 1
	// JoinLastPurchase is MAX(transactions.timestamp) per customer.
	JoinLastPurchase
	// JoinLastEvent is MAX(behavioral_events.timestamp) per customer.
	JoinLastEvent
)

// Args accumulates positional query arguments.
type Args struct {
	values []any
}

// Add appends v and returns its placeholder.
func (a *Args) Add(v any) string {
	a.values = append(a.values, v)
	return fmt.Sprintf("$%d", len(a.values))
}

func (a *Args) Values() []any {
	return a.values
}

// Cart is the most recent abandoned cart of a customer.
type Cart struct {
	ID          string
	Value       float64
	AbandonedAt time.Time
}

// Facts is everything a predicate may look at for one customer. It mirrors
// the columns the SQL rendering can reach.
type Facts struct {
	Customer       models.CustomerRecord
	CreatedAt      time.Time
	Cart           *Cart
	AvgCartValue   float64
	LastPurchaseAt *time.Time
	LastEventAt    *time.Time
}

// Predicate is a single population condition with two equivalent
// renderings: SQL for the warehouse and Match for in-process data.
type Predicate struct {
	Name   string
	Filter models.AppliedFilter
	Joins  []Join
	SQL    func(a *Args) string
	Match  func(f Facts) bool
}

func newPredicate(name, filterType, description string, canModify bool, joins []Join, sql func(*Args) string, match func(Facts) bool) Predicate {
	return Predicate{
		Name: name,
		Filter: models.AppliedFilter{
			FilterType:  filterType,
			Description: description,
			Predicate:   name,
			CanModify:   canModify,
		},
		Joins: joins,
		SQL:   sql,
		Match: match,
	}
}
