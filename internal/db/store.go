package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aethersegment/backend/internal/models"
	"github.com/aethersegment/backend/internal/predicate"
	"github.com/aethersegment/backend/internal/query"
)

// Store is the Postgres customer warehouse. It is only read by the
// segmentation pipeline; Seed is an operator tool.
type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) FetchCandidates(ctx context.Context, plan query.Plan) ([]models.CustomerRecord, error) {
	rows, err := s.Pool.Query(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	withCart := plan.HasJoin(predicate.JoinCarts)
	out := []models.CustomerRecord{}
	for rows.Next() {
		var (
			c                  models.CustomerRecord
			email, firstName   *string
			city, country      *string
			discount, shipping *float64
			social, engagement *float64
			churn              *float64
			exclusive          *bool
			cartID             *string
			cartValue          *float64
		)
		dest := []any{
			&c.CustomerID, &email, &firstName, &c.CLVScore, &city, &country,
			&discount, &shipping, &exclusive, &social, &engagement, &churn,
		}
		if withCart {
			dest = append(dest, &cartID, &cartValue)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		c.Email = derefString(email)
		c.FirstName = derefString(firstName)
		c.LocationCity = derefString(city)
		c.LocationCountry = derefString(country)
		c.DiscountSensitivity = derefFloat(discount)
		c.FreeShippingSensitivity = derefFloat(shipping)
		c.ExclusivitySeeker = exclusive != nil && *exclusive
		c.SocialProofAffinity = derefFloat(social)
		c.ContentEngagement = derefFloat(engagement)
		c.ChurnProbability = derefFloat(churn)
		c.CartID = cartID
		c.CartValue = cartValue
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, plan query.Plan) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, plan.CountSQL(), plan.Args...).Scan(&n)
	return n, err
}

func (s *Store) KeyMetrics(ctx context.Context, now time.Time) (models.KeyMetrics, error) {
	var m models.KeyMetrics
	var avg *float64
	err := s.Pool.QueryRow(ctx, `
SELECT
    (SELECT COUNT(*) FROM customers),
    (SELECT COUNT(*) FROM abandoned_carts WHERE status = 'abandoned' AND timestamp >= $1),
    (SELECT AVG(clv_score) FROM customers),
    (SELECT COUNT(*) FROM customer_scores WHERE churn_probability_score > $2)`,
		now.Add(-7*24*time.Hour), predicate.ChurnThreshold,
	).Scan(&m.TotalCustomers, &m.AbandonedCarts7d, &avg, &m.AtRiskCustomers)
	if err != nil {
		return m, err
	}
	m.AvgCLVScore = derefFloat(avg)
	return m, nil
}

func (s *Store) CountryDistribution(ctx context.Context, limit int) (map[string]int, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT location_country, COUNT(*) AS n
FROM customers
WHERE location_country IS NOT NULL
GROUP BY location_country
ORDER BY n DESC, location_country
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var country string
		var n int
		if err := rows.Scan(&country, &n); err != nil {
			return nil, err
		}
		out[country] = n
	}
	return out, rows.Err()
}

func (s *Store) ValueSegments(ctx context.Context) (map[string]int, error) {
	var high, medium, low int
	err := s.Pool.QueryRow(ctx, `
SELECT
    COUNT(*) FILTER (WHERE clv_score >= $1),
    COUNT(*) FILTER (WHERE clv_score >= $2 AND clv_score < $1),
    COUNT(*) FILTER (WHERE clv_score < $2)
FROM customers`, HighValueTier, MediumValueTier).Scan(&high, &medium, &low)
	if err != nil {
		return nil, err
	}
	return map[string]int{"high": high, "medium": medium, "low": low}, nil
}

func (s *Store) DataHealth(ctx context.Context) (models.DataHealth, error) {
	var h models.DataHealth
	var covered, total int
	err := s.Pool.QueryRow(ctx, `
SELECT
    (SELECT COUNT(*) FROM behavioral_events),
    (SELECT MAX(timestamp) FROM behavioral_events),
    (SELECT COUNT(DISTINCT customer_id) FROM behavioral_events),
    (SELECT COUNT(*) FROM customers)`,
	).Scan(&h.TotalEvents, &h.LatestEvent, &covered, &total)
	if err != nil {
		return h, err
	}
	h.CustomerCoverage = coverage(covered, total)
	return h, nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func coverage(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total)
}

var _ query.Warehouse = (*Store)(nil)
