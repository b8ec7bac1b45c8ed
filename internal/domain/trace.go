package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemoryTrace holds the decay-relevant state of one memory unit.
// Current strength is never persisted: it is recomputed on read from the
// creation time, access history, and importance, so it only moves between
// accesses by decay and is re-anchored (capped at 1.0) on each access.
type MemoryTrace struct {
	ID              uuid.UUID `json:"id"`
	InitialStrength float64   `json:"initial_strength"`
	Importance      float64   `json:"importance"`       // 0 to 1
	EmotionalWeight float64   `json:"emotional_weight"` // -1 to 1
	ContextRichness float64   `json:"context_richness"` // 0 to 1
	AccessCount     int       `json:"access_count"`
	LastAccessedAt  time.Time `json:"last_accessed_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// Age returns the time elapsed since the trace was created.
func (t MemoryTrace) Age(now time.Time) time.Duration {
	return now.Sub(t.CreatedAt)
}

// SinceAccess returns the time elapsed since the trace was last accessed,
// falling back to creation time for never-accessed traces.
func (t MemoryTrace) SinceAccess(now time.Time) time.Duration {
	anchor := t.LastAccessedAt
	if anchor.IsZero() {
		anchor = t.CreatedAt
	}
	return now.Sub(anchor)
}
