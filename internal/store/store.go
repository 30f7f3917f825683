package store

import (
	"context"
	"errors"
	"sync"

	"github.com/aethersegment/backend/internal/models"
)

var (
	ErrNotFound = errors.New("segment not found")
	// ErrExists is returned when saving over a created segment; segments
	// are immutable once created.
	ErrExists = errors.New("segment already exists")
)

// SegmentStore persists created segments: segment_id -> (metadata, population).
type SegmentStore interface {
	Save(ctx context.Context, seg models.Segment) error
	Get(ctx context.Context, id string) (models.Segment, error)
	// Customers returns up to limit customers in population order; limit <= 0
	// returns all of them.
	Customers(ctx context.Context, id string, limit int) ([]models.CustomerRecord, error)
}

type Memory struct {
	mu       sync.RWMutex
	segments map[string]models.Segment
}

func NewMemory() *Memory {
	return &Memory{segments: map[string]models.Segment{}}
}

func (m *Memory) Save(_ context.Context, seg models.Segment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.segments[seg.SegmentID]; ok {
		return ErrExists
	}
	seg.Customers = append([]models.CustomerRecord(nil), seg.Customers...)
	m.segments[seg.SegmentID] = seg
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (models.Segment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seg, ok := m.segments[id]
	if !ok {
		return models.Segment{}, ErrNotFound
	}
	seg.Customers = append([]models.CustomerRecord(nil), seg.Customers...)
	return seg, nil
}

func (m *Memory) Customers(_ context.Context, id string, limit int) ([]models.CustomerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seg, ok := m.segments[id]
	if !ok {
		return nil, ErrNotFound
	}
	n := len(seg.Customers)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]models.CustomerRecord{}, seg.Customers[:n]...), nil
}
