package domain

import (
	"context"
	"encoding/json"
	"time"
)

// ShortTermEntry is one raw interaction sitting in the TTL-bounded
// short-term buffer, waiting to be consolidated or to expire.
type ShortTermEntry struct {
	ID           string          `json:"id"`
	DecisionType string          `json:"decision_type"`
	Payload      json.RawMessage `json:"payload"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

// ShortTermBuffer is the externally owned, TTL-bounded key-value store for
// raw interactions. The memory core only lists entries, appends new raw
// interactions on behalf of the HTTP layer, and deletes an entry after it
// has been fully migrated into episodic storage. Expiry is the buffer's
// own concern.
type ShortTermBuffer interface {
	Append(ctx context.Context, e *ShortTermEntry) error
	ListOlderThan(ctx context.Context, age time.Duration) ([]ShortTermEntry, error)
	Delete(ctx context.Context, id string) error
	Len(ctx context.Context) (int, error)
}
