package db

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/aethersegment/backend/internal/models"
)

// FixtureOptions shapes a generated warehouse. RecentCartShare of the carts
// are abandoned inside RecentWindow; all of those are still abandoned.
type FixtureOptions struct {
	Seed            uint64
	Now             time.Time
	Customers       int
	Carts           int
	RecentCartShare float64
	RecentWindow    time.Duration
	Transactions    int
	Events          int
	// EventCoverage is the share of customers that ever produce an event.
	EventCoverage float64
}

func DefaultFixture(now time.Time) FixtureOptions {
	return FixtureOptions{
		Seed:            42,
		Now:             now,
		Customers:       10000,
		Carts:           1500,
		RecentCartShare: 0.3,
		RecentWindow:    48 * time.Hour,
		Transactions:    20000,
		Events:          30000,
		EventCoverage:   0.8,
	}
}

type place struct {
	city, country string
}

var (
	places = []place{
		{"London", "UK"}, {"Manchester", "UK"}, {"Berlin", "Germany"}, {"Munich", "Germany"},
		{"Paris", "France"}, {"Lyon", "France"}, {"Madrid", "Spain"}, {"New York", "USA"},
		{"Chicago", "USA"}, {"Toronto", "Canada"}, {"Amsterdam", "Netherlands"}, {"Stockholm", "Sweden"},
	}
	firstNames   = []string{"Alex", "Sam", "Jordan", "Taylor", "Morgan", "Casey", "Riley", "Jamie"}
	sources      = []string{"organic", "paid_search", "social", "referral", "email"}
	categories   = []string{"apparel", "electronics", "home", "beauty", "sports"}
	eventTypes   = []string{"page_view", "product_view", "add_to_cart", "search", "email_open"}
	productNames = []string{"Classic Tee", "Wireless Earbuds", "Ceramic Mug", "Face Serum", "Running Shoes"}
)

// Generate builds a deterministic dataset from opts.Seed.
func Generate(opts FixtureOptions) Dataset {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	now := opts.Now
	day := 24 * time.Hour
	ago := func(max time.Duration) time.Time {
		return now.Add(-time.Duration(rng.Float64() * float64(max)))
	}

	ds := Dataset{}
	for i := 0; i < opts.Customers; i++ {
		p := places[rng.IntN(len(places))]
		id := fmt.Sprintf("CUST_%05d", i)
		ds.Customers = append(ds.Customers, Customer{
			Record: models.CustomerRecord{
				CustomerID:              id,
				Email:                   fmt.Sprintf("customer%05d@example.com", i),
				FirstName:               firstNames[rng.IntN(len(firstNames))],
				CLVScore:                round3(rng.Float64()),
				LocationCity:            p.city,
				LocationCountry:         p.country,
				DiscountSensitivity:     round3(rng.Float64()),
				FreeShippingSensitivity: round3(rng.Float64()),
				ExclusivitySeeker:       rng.Float64() < 0.3,
				SocialProofAffinity:     round3(rng.Float64()),
				ContentEngagement:       round3(rng.Float64()),
				ChurnProbability:        round3(rng.Float64()),
			},
			AcquisitionSource: sources[rng.IntN(len(sources))],
			CreatedAt:         ago(730 * day),
		})
	}
	if opts.Customers == 0 {
		return ds
	}

	recent := int(float64(opts.Carts) * opts.RecentCartShare)
	for i := 0; i < opts.Carts; i++ {
		c := Cart{
			ID:         fmt.Sprintf("CART_%06d", i),
			CustomerID: ds.Customers[rng.IntN(opts.Customers)].Record.CustomerID,
			Value:      round2(20 + rng.Float64()*280),
			Items:      1 + rng.IntN(6),
			Status:     CartAbandoned,
		}
		if i < recent {
			c.Timestamp = ago(opts.RecentWindow - time.Minute)
		} else {
			c.Timestamp = now.Add(-opts.RecentWindow).Add(-time.Duration(rng.Float64() * float64(30*day)))
			if rng.Float64() < 0.15 {
				c.Status = CartRecovered
			}
		}
		ds.Carts = append(ds.Carts, c)
	}

	for i := 0; i < opts.Transactions; i++ {
		ds.Transactions = append(ds.Transactions, Transaction{
			ID:          fmt.Sprintf("TX_%07d", i),
			CustomerID:  ds.Customers[rng.IntN(opts.Customers)].Record.CustomerID,
			OrderValue:  round2(10 + rng.Float64()*390),
			Category:    categories[rng.IntN(len(categories))],
			ProductName: productNames[rng.IntN(len(productNames))],
			Timestamp:   ago(365 * day),
		})
	}

	active := min(opts.Customers, max(1, int(float64(opts.Customers)*opts.EventCoverage)))
	for i := 0; i < opts.Events; i++ {
		ds.Events = append(ds.Events, Event{
			ID:          fmt.Sprintf("EV_%07d", i),
			CustomerID:  ds.Customers[rng.IntN(active)].Record.CustomerID,
			Type:        eventTypes[rng.IntN(len(eventTypes))],
			Category:    categories[rng.IntN(len(categories))],
			ProductName: productNames[rng.IntN(len(productNames))],
			Timestamp:   ago(180 * day),
		})
	}
	return ds
}

func round2(v float64) float64 { return float64(int64(v*100+0.5)) / 100 }
func round3(v float64) float64 { return float64(int64(v*1000+0.5)) / 1000 }
