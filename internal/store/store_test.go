package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aethersegment/backend/internal/models"
)

func sampleSegment(id string) models.Segment {
	v := 120.5
	cart := "CART_1"
	return models.Segment{
		SegmentID: id,
		Trigger:   "free_shipping",
		CampaignObjective: models.CampaignObjective{
			CampaignGoal:          "conversion",
			TargetBehavior:        "abandoned_cart",
			MetricTarget:          models.MetricTarget{Type: "conversion_rate_increase", Value: 0.2},
			UnderlyingAssumptions: []string{"a"},
		},
		Metadata: models.SegmentMetadata{SegmentID: id, EstimatedSize: 3, AvgCLVScore: 0.8, PredictedROI: "2-4x"},
		Summary:  models.SegmentSummary{SummaryText: "three customers"},
		Customers: []models.CustomerRecord{
			{CustomerID: "c3", CLVScore: 0.9, CartID: &cart, CartValue: &v},
			{CustomerID: "c1", CLVScore: 0.8},
			{CustomerID: "c2", CLVScore: 0.7},
		},
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func stores(t *testing.T) map[string]SegmentStore {
	mem, err := OpenSQLiteMemory()
	if err != nil {
		t.Fatalf("open sqlite memory: %v", err)
	}
	t.Cleanup(func() { _ = mem.Close() })

	file, err := OpenSQLite(filepath.Join(t.TempDir(), "segments", "segments.db"))
	if err != nil {
		t.Fatalf("open sqlite file: %v", err)
	}
	t.Cleanup(func() { _ = file.Close() })

	return map[string]SegmentStore{"memory": NewMemory(), "sqlite-memory": mem, "sqlite-file": file}
}

func TestSegmentStores(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seg := sampleSegment("SEG_FS_1")
			if err := s.Save(ctx, seg); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := s.Save(ctx, seg); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}

			got, err := s.Get(ctx, "SEG_FS_1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Trigger != "free_shipping" || got.Metadata.EstimatedSize != 3 || !got.CreatedAt.Equal(seg.CreatedAt) {
				t.Fatalf("unexpected segment %+v", got)
			}
			if len(got.Customers) != 3 || got.Customers[0].CustomerID != "c3" || *got.Customers[0].CartValue != 120.5 {
				t.Fatalf("population order or fields lost: %+v", got.Customers)
			}

			top, err := s.Customers(ctx, "SEG_FS_1", 2)
			if err != nil || len(top) != 2 || top[1].CustomerID != "c1" {
				t.Fatalf("unexpected limited customers %+v %v", top, err)
			}
			all, _ := s.Customers(ctx, "SEG_FS_1", 0)
			if len(all) != 3 {
				t.Fatalf("limit 0 should return everyone, got %d", len(all))
			}

			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := s.Customers(ctx, "missing", 5); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	seg := sampleSegment("SEG_X")
	_ = s.Save(ctx, seg)
	seg.Customers[0].CustomerID = "mutated"

	got, _ := s.Get(ctx, "SEG_X")
	if got.Customers[0].CustomerID != "c3" {
		t.Fatalf("stored population should not alias the caller's slice")
	}
}
