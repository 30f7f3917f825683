package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const schema = `
CREATE TABLE IF NOT EXISTS customers (
    customer_id        TEXT PRIMARY KEY,
    email_address      TEXT,
    first_name         TEXT,
    location_city      TEXT,
    location_country   TEXT,
    acquisition_source TEXT,
    creation_date      TIMESTAMPTZ NOT NULL,
    clv_score          DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS customer_scores (
    customer_id                     TEXT PRIMARY KEY REFERENCES customers(customer_id),
    discount_sensitivity_score      DOUBLE PRECISION,
    free_shipping_sensitivity_score DOUBLE PRECISION,
    exclusivity_seeker_flag         BOOLEAN,
    churn_probability_score         DOUBLE PRECISION,
    social_proof_affinity           DOUBLE PRECISION,
    content_engagement_score        DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS transactions (
    transaction_id   TEXT PRIMARY KEY,
    customer_id      TEXT NOT NULL REFERENCES customers(customer_id),
    order_value      DOUBLE PRECISION NOT NULL,
    product_category TEXT,
    product_name     TEXT,
    timestamp        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS abandoned_carts (
    cart_id     TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL REFERENCES customers(customer_id),
    cart_value  DOUBLE PRECISION NOT NULL,
    items       INTEGER NOT NULL DEFAULT 0,
    timestamp   TIMESTAMPTZ NOT NULL,
    status      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS behavioral_events (
    event_id         TEXT PRIMARY KEY,
    customer_id      TEXT NOT NULL REFERENCES customers(customer_id),
    event_type       TEXT NOT NULL,
    product_category TEXT,
    product_name     TEXT,
    timestamp        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_carts_customer_ts ON abandoned_carts (customer_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_tx_customer_ts ON transactions (customer_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_events_customer_ts ON behavioral_events (customer_id, timestamp);
`

// EnsureSchema creates the warehouse tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	return err
}

// Seed bulk loads a dataset in one transaction.
func (s *Store) Seed(ctx context.Context, ds Dataset) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		customers := make([][]any, 0, len(ds.Customers))
		scores := make([][]any, 0, len(ds.Customers))
		for _, c := range ds.Customers {
			r := c.Record
			customers = append(customers, []any{r.CustomerID, r.Email, r.FirstName, r.LocationCity, r.LocationCountry, c.AcquisitionSource, c.CreatedAt, r.CLVScore})
			scores = append(scores, []any{r.CustomerID, r.DiscountSensitivity, r.FreeShippingSensitivity, r.ExclusivitySeeker, r.ChurnProbability, r.SocialProofAffinity, r.ContentEngagement})
		}
		if err := copyRows(ctx, tx, "customers", []string{"customer_id", "email_address", "first_name", "location_city", "location_country", "acquisition_source", "creation_date", "clv_score"}, customers); err != nil {
			return err
		}
		if err := copyRows(ctx, tx, "customer_scores", []string{"customer_id", "discount_sensitivity_score", "free_shipping_sensitivity_score", "exclusivity_seeker_flag", "churn_probability_score", "social_proof_affinity", "content_engagement_score"}, scores); err != nil {
			return err
		}

		carts := make([][]any, 0, len(ds.Carts))
		for _, c := range ds.Carts {
			carts = append(carts, []any{c.ID, c.CustomerID, c.Value, c.Items, c.Timestamp, c.Status})
		}
		if err := copyRows(ctx, tx, "abandoned_carts", []string{"cart_id", "customer_id", "cart_value", "items", "timestamp", "status"}, carts); err != nil {
			return err
		}

		txs := make([][]any, 0, len(ds.Transactions))
		for _, t := range ds.Transactions {
			txs = append(txs, []any{t.ID, t.CustomerID, t.OrderValue, t.Category, t.ProductName, t.Timestamp})
		}
		if err := copyRows(ctx, tx, "transactions", []string{"transaction_id", "customer_id", "order_value", "product_category", "product_name", "timestamp"}, txs); err != nil {
			return err
		}

		events := make([][]any, 0, len(ds.Events))
		for _, e := range ds.Events {
			events = append(events, []any{e.ID, e.CustomerID, e.Type, e.Category, e.ProductName, e.Timestamp})
		}
		return copyRows(ctx, tx, "behavioral_events", []string{"event_id", "customer_id", "event_type", "product_category", "product_name", "timestamp"}, events)
	})
}

func copyRows(ctx context.Context, tx pgx.Tx, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy %s: %w", table, err)
	}
	return nil
}
