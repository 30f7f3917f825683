package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aethersegment/backend/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS segments (
    segment_id TEXT PRIMARY KEY,
    trigger    TEXT NOT NULL,
    objective  TEXT NOT NULL,
    filters    TEXT NOT NULL DEFAULT '{}',
    metadata   TEXT NOT NULL,
    summary    TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS segment_customers (
    segment_id  TEXT NOT NULL REFERENCES segments(segment_id),
    position    INTEGER NOT NULL,
    customer_id TEXT NOT NULL,
    record      TEXT NOT NULL,
    PRIMARY KEY (segment_id, position),
    UNIQUE (segment_id, customer_id)
);
`

// SQLite is a durable SegmentStore.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating segment store directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening segment store: %w", err)
	}
	return initSQLite(db)
}

// OpenSQLiteMemory opens a private in-memory store, mostly for tests.
func OpenSQLiteMemory() (*SQLite, error) {
	db, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory segment store: %w", err)
	}
	// every new connection would see a different empty database
	db.SetMaxOpenConns(1)
	return initSQLite(db)
}

func initSQLite(db *sql.DB) (*SQLite, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging segment store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Save(ctx context.Context, seg models.Segment) error {
	objective, err := json.Marshal(seg.CampaignObjective)
	if err != nil {
		return err
	}
	filters, err := json.Marshal(seg.Filters)
	if err != nil {
		return err
	}
	metadata, err := json.Marshal(seg.Metadata)
	if err != nil {
		return err
	}
	summary, err := json.Marshal(seg.Summary)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM segments WHERE segment_id = ?`, seg.SegmentID).Scan(&exists)
	switch {
	case err == nil:
		return ErrExists
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO segments (segment_id, trigger, objective, filters, metadata, summary, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		seg.SegmentID, seg.Trigger, string(objective), string(filters), string(metadata), string(summary), seg.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO segment_customers (segment_id, position, customer_id, record) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, c := range seg.Customers {
		raw, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, seg.SegmentID, i, c.CustomerID, string(raw)); err != nil {
			return fmt.Errorf("insert segment customer %s: %w", c.CustomerID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Get(ctx context.Context, id string) (models.Segment, error) {
	var (
		seg                                  models.Segment
		objective, filters, metadata, summary string
		createdAt                            string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT segment_id, trigger, objective, filters, metadata, summary, created_at FROM segments WHERE segment_id = ?`, id,
	).Scan(&seg.SegmentID, &seg.Trigger, &objective, &filters, &metadata, &summary, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Segment{}, ErrNotFound
	}
	if err != nil {
		return models.Segment{}, err
	}

	for _, part := range []struct {
		raw string
		dst any
	}{
		{objective, &seg.CampaignObjective},
		{filters, &seg.Filters},
		{metadata, &seg.Metadata},
		{summary, &seg.Summary},
	} {
		if err := json.Unmarshal([]byte(part.raw), part.dst); err != nil {
			return models.Segment{}, fmt.Errorf("decode segment %s: %w", id, err)
		}
	}
	if seg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return models.Segment{}, fmt.Errorf("decode segment %s created_at: %w", id, err)
	}

	seg.Customers, err = s.customers(ctx, id, 0)
	if err != nil {
		return models.Segment{}, err
	}
	return seg, nil
}

func (s *SQLite) Customers(ctx context.Context, id string, limit int) ([]models.CustomerRecord, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM segments WHERE segment_id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.customers(ctx, id, limit)
}

func (s *SQLite) customers(ctx context.Context, id string, limit int) ([]models.CustomerRecord, error) {
	query := `SELECT record FROM segment_customers WHERE segment_id = ? ORDER BY position`
	args := []any{id}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.CustomerRecord{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var c models.CustomerRecord
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
