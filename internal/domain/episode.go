package domain

import (
	"time"
)

// DecisionType classifies a casting decision.
type DecisionType string

const (
	DecisionTalentSelection     DecisionType = "talent_selection"
	DecisionScheduleChange      DecisionType = "schedule_change"
	DecisionBudgetApproval      DecisionType = "budget_approval"
	DecisionContractNegotiation DecisionType = "contract_negotiation"
	DecisionAuditionReview      DecisionType = "audition_review"
)

func ValidDecisionType(t string) bool {
	switch DecisionType(t) {
	case DecisionTalentSelection, DecisionScheduleChange, DecisionBudgetApproval,
		DecisionContractNegotiation, DecisionAuditionReview:
		return true
	}
	return false
}

// Decision is the structured payload of a casting decision. Known fields
// are typed; Extra carries domain-specific fields without losing forward
// compatibility.
type Decision struct {
	Summary    string         `json:"summary"`
	TalentName string         `json:"talent_name,omitempty"`
	ProjectID  string         `json:"project_id,omitempty"`
	Genre      string         `json:"genre,omitempty"`
	Platform   string         `json:"platform,omitempty"`
	BudgetUSD  float64        `json:"budget_usd,omitempty"`
	DeadlineAt *time.Time     `json:"deadline_at,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Outcome is recorded once the result of a decision becomes known.
type Outcome struct {
	Success          bool           `json:"success"`
	Satisfaction     *float64       `json:"satisfaction,omitempty"`      // 0 to 5
	PerformanceScore *float64       `json:"performance_score,omitempty"` // 0 to 1
	DeadlineMissed   *bool          `json:"deadline_missed,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	Extra            map[string]any `json:"extra,omitempty"`
	RecordedAt       time.Time      `json:"recorded_at"`
}

// EpisodeStatus tracks where an episode sits in the consolidation lifecycle.
// Stored episodes decay; distilled episodes have had their recurring
// structure extracted into the semantic graph. Pruned episodes are deleted.
type EpisodeStatus string

const (
	EpisodeStored    EpisodeStatus = "stored"
	EpisodeDistilled EpisodeStatus = "distilled"
)

func ValidEpisodeStatus(s string) bool {
	switch EpisodeStatus(s) {
	case EpisodeStored, EpisodeDistilled:
		return true
	}
	return false
}

// Episode is one casting decision recorded as a decayable memory.
type Episode struct {
	MemoryTrace

	DecisionType     DecisionType  `json:"decision_type"`
	Decision         Decision      `json:"decision"`
	Outcome          *Outcome      `json:"outcome,omitempty"`
	EmotionalValence float64       `json:"emotional_valence"` // -1 to 1, recomputed when outcome lands
	Status           EpisodeStatus `json:"status"`

	// SourceEntryID is the short-term buffer entry this episode was
	// consolidated from, empty for directly stored decisions. Used to
	// keep consolidation idempotent.
	SourceEntryID string `json:"source_entry_id,omitempty"`

	Embedding []float32 `json:"-"`

	UpdatedAt time.Time `json:"updated_at"`
}

// EpisodeWithScore is an Episode with its recall ranking score.
type EpisodeWithScore struct {
	Episode
	Similarity float64 `json:"similarity"`
	Retention  float64 `json:"retention"`
	Score      float64 `json:"score"`
}
