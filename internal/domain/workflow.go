package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action is one step in a recorded workflow run.
type Action struct {
	Type        string        `json:"type"`
	StateBefore string        `json:"state_before"`
	StateAfter  string        `json:"state_after"`
	Duration    time.Duration `json:"duration"`
	Success     bool          `json:"success"`
	At          time.Time     `json:"at"`
}

// WorkflowSequence is one immutable, append-only record of a past workflow
// run. Aggregate statistics over many sequences are recomputed on demand;
// the sequences themselves are never mutated.
type WorkflowSequence struct {
	ID          uuid.UUID     `json:"id"`
	UserID      string        `json:"user_id"`
	Actions     []Action      `json:"actions"`
	Success     bool          `json:"success"`
	TotalTime   time.Duration `json:"total_time"`
	RecordedAt  time.Time     `json:"recorded_at"`
}

// ActionTypes returns the ordered action type symbols of the sequence.
func (s WorkflowSequence) ActionTypes() []string {
	types := make([]string, len(s.Actions))
	for i, a := range s.Actions {
		types[i] = a.Type
	}
	return types
}

// WorkflowPattern is a mined frequent action sub-sequence with statistics
// recomputed over only the sequences that contain it. Patterns are
// ephemeral: only the raw sequences are durable.
type WorkflowPattern struct {
	Actions     []string      `json:"actions"`
	Support     float64       `json:"support"`
	Frequency   int           `json:"frequency"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}
