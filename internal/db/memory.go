package db

import (
	"context"
	"sort"
	"time"

	"github.com/aethersegment/backend/internal/models"
	"github.com/aethersegment/backend/internal/predicate"
	"github.com/aethersegment/backend/internal/query"
)

const (
	HighValueTier   = 0.75
	MediumValueTier = 0.5
)

// Memory is an in-process warehouse over a Dataset. It evaluates plans with
// the predicates' Match functions and follows the SQL rendering's join
// semantics: latest abandoned cart per customer, MAX timestamps for
// transactions and events.
type Memory struct {
	ds    Dataset
	facts []predicate.Facts
}

func NewMemory(ds Dataset) *Memory {
	m := &Memory{ds: ds}
	m.facts = buildFacts(ds)
	return m
}

func buildFacts(ds Dataset) []predicate.Facts {
	var total float64
	latestCart := map[string]*predicate.Cart{}
	for _, c := range ds.Carts {
		total += c.Value
		if c.Status != CartAbandoned {
			continue
		}
		cur, ok := latestCart[c.CustomerID]
		if !ok || c.Timestamp.After(cur.AbandonedAt) || (c.Timestamp.Equal(cur.AbandonedAt) && c.ID < cur.ID) {
			latestCart[c.CustomerID] = &predicate.Cart{ID: c.ID, Value: c.Value, AbandonedAt: c.Timestamp}
		}
	}
	var avg float64
	if len(ds.Carts) > 0 {
		avg = total / float64(len(ds.Carts))
	}

	lastPurchase := map[string]time.Time{}
	for _, t := range ds.Transactions {
		if cur, ok := lastPurchase[t.CustomerID]; !ok || t.Timestamp.After(cur) {
			lastPurchase[t.CustomerID] = t.Timestamp
		}
	}
	lastEvent := map[string]time.Time{}
	for _, e := range ds.Events {
		if cur, ok := lastEvent[e.CustomerID]; !ok || e.Timestamp.After(cur) {
			lastEvent[e.CustomerID] = e.Timestamp
		}
	}

	facts := make([]predicate.Facts, 0, len(ds.Customers))
	for _, c := range ds.Customers {
		f := predicate.Facts{
			Customer:     c.Record,
			CreatedAt:    c.CreatedAt,
			Cart:         latestCart[c.Record.CustomerID],
			AvgCartValue: avg,
		}
		if t, ok := lastPurchase[c.Record.CustomerID]; ok {
			f.LastPurchaseAt = &t
		}
		if t, ok := lastEvent[c.Record.CustomerID]; ok {
			f.LastEventAt = &t
		}
		facts = append(facts, f)
	}
	return facts
}

func (m *Memory) FetchCandidates(ctx context.Context, plan query.Plan) ([]models.CustomerRecord, error) {
	withCart := plan.HasJoin(predicate.JoinCarts)
	out := []models.CustomerRecord{}
	for i, f := range m.facts {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if withCart && f.Cart == nil {
			continue
		}
		if !plan.Match(f) {
			continue
		}
		rec := f.Customer
		rec.CartID, rec.CartValue = nil, nil
		if withCart {
			id, value := f.Cart.ID, f.Cart.Value
			rec.CartID, rec.CartValue = &id, &value
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CLVScore != b.CLVScore {
			return a.CLVScore > b.CLVScore
		}
		if a.DiscountSensitivity != b.DiscountSensitivity {
			return a.DiscountSensitivity > b.DiscountSensitivity
		}
		return a.CustomerID < b.CustomerID
	})
	return out, nil
}

func (m *Memory) Count(ctx context.Context, plan query.Plan) (int, error) {
	recs, err := m.FetchCandidates(ctx, plan)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

func (m *Memory) KeyMetrics(_ context.Context, now time.Time) (models.KeyMetrics, error) {
	km := models.KeyMetrics{TotalCustomers: len(m.ds.Customers)}
	cutoff := now.Add(-7 * 24 * time.Hour)
	for _, c := range m.ds.Carts {
		if c.Status == CartAbandoned && !c.Timestamp.Before(cutoff) {
			km.AbandonedCarts7d++
		}
	}
	var sum float64
	for _, c := range m.ds.Customers {
		sum += c.Record.CLVScore
		if c.Record.ChurnProbability > predicate.ChurnThreshold {
			km.AtRiskCustomers++
		}
	}
	if len(m.ds.Customers) > 0 {
		km.AvgCLVScore = sum / float64(len(m.ds.Customers))
	}
	return km, nil
}

func (m *Memory) CountryDistribution(_ context.Context, limit int) (map[string]int, error) {
	counts := map[string]int{}
	for _, c := range m.ds.Customers {
		if c.Record.LocationCountry != "" {
			counts[c.Record.LocationCountry]++
		}
	}
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
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make(map[string]int, len(keys))
	for _, k := range keys {
		out[k] = counts[k]
	}
	return out, nil
}

func (m *Memory) ValueSegments(context.Context) (map[string]int, error) {
	out := map[string]int{"high": 0, "medium": 0, "low": 0}
	for _, c := range m.ds.Customers {
		switch clv := c.Record.CLVScore; {
		case clv >= HighValueTier:
			out["high"]++
		case clv >= MediumValueTier:
			out["medium"]++
		default:
			out["low"]++
		}
	}
	return out, nil
}

func (m *Memory) DataHealth(context.Context) (models.DataHealth, error) {
	h := models.DataHealth{TotalEvents: len(m.ds.Events)}
	covered := map[string]struct{}{}
	for _, e := range m.ds.Events {
		covered[e.CustomerID] = struct{}{}
		if h.LatestEvent == nil || e.Timestamp.After(*h.LatestEvent) {
			t := e.Timestamp
			h.LatestEvent = &t
		}
	}
	h.CustomerCoverage = coverage(len(covered), len(m.ds.Customers))
	return h, nil
}

var _ query.Warehouse = (*Memory)(nil)
