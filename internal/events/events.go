package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aethersegment/backend/internal/models"
)

const TypeSegmentCreated = "segment.created"

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
	Close() error
}

// SegmentCreated is emitted once per created segment, keyed by segment id.
type SegmentCreated struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	SegmentID     string    `json:"segment_id"`
	Trigger       string    `json:"trigger"`
	CampaignGoal  string    `json:"campaign_goal"`
	EstimatedSize int       `json:"estimated_size"`
	StoredSize    int       `json:"stored_size"`
	PredictedROI  string    `json:"predicted_roi"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewSegmentCreated(seg models.Segment) SegmentCreated {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return SegmentCreated{
		EventID:       id.String(),
		Type:          TypeSegmentCreated,
		SegmentID:     seg.SegmentID,
		Trigger:       seg.Trigger,
		CampaignGoal:  seg.CampaignObjective.CampaignGoal,
		EstimatedSize: seg.Metadata.EstimatedSize,
		StoredSize:    len(seg.Customers),
		PredictedROI:  seg.Metadata.PredictedROI,
		CreatedAt:     seg.CreatedAt.UTC(),
	}
}

// PublishSegmentCreated encodes and publishes the event for seg.
func PublishSegmentCreated(ctx context.Context, p Publisher, seg models.Segment) error {
	b, err := json.Marshal(NewSegmentCreated(seg))
	if err != nil {
		return err
	}
	return p.Publish(ctx, TypeSegmentCreated, b, seg.SegmentID)
}

type Nop struct{}

func (Nop) Publish(context.Context, string, []byte, string) error { return nil }
func (Nop) Close() error                                          { return nil }

type Message struct {
	Type    string
	Key     string
	Payload []byte
}

// Recorder keeps published messages in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (r *Recorder) Publish(_ context.Context, eventType string, payload []byte, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.messages = append(r.messages, Message{Type: eventType, Key: key, Payload: append([]byte(nil), payload...)})
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}
