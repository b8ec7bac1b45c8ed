package domain

import (
	"time"
)

// ConceptType tags a node in the semantic graph.
type ConceptType string

const (
	ConceptActor    ConceptType = "actor"
	ConceptGenre    ConceptType = "genre"
	ConceptPlatform ConceptType = "platform"
	ConceptUser     ConceptType = "user"
	ConceptSkill    ConceptType = "skill"
	ConceptProject  ConceptType = "project"
)

func ValidConceptType(t string) bool {
	switch ConceptType(t) {
	case ConceptActor, ConceptGenre, ConceptPlatform, ConceptUser, ConceptSkill, ConceptProject:
		return true
	}
	return false
}

// RelationType is the typed label on a directed relationship edge.
type RelationType string

const (
	RelationWorkedWith  RelationType = "worked_with"
	RelationPrefers     RelationType = "prefers"
	RelationSucceededIn RelationType = "succeeded_in"
	RelationCastIn      RelationType = "cast_in"
	RelationProducedBy  RelationType = "produced_by"
	RelationSimilarTo   RelationType = "similar_to"
)

func ValidRelationType(t string) bool {
	switch RelationType(t) {
	case RelationWorkedWith, RelationPrefers, RelationSucceededIn,
		RelationCastIn, RelationProducedBy, RelationSimilarTo:
		return true
	}
	return false
}

// SymmetricRelations lists relation types where an edge implies its reverse.
var SymmetricRelations = map[RelationType]bool{
	RelationWorkedWith: true,
	RelationSimilarTo:  true,
}

// ConceptNode is an entity in the semantic graph, unique per
// (type, canonical key of the label).
type ConceptNode struct {
	ID         string         `json:"id"`
	Type       ConceptType    `json:"type"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// RelationshipEdge is a directed, typed edge. Confidence moves toward
// observed evidence by a bounded exponential moving average, never a plain
// increment, so it stays in [0,1].
type RelationshipEdge struct {
	SourceID        string         `json:"source_id"`
	Type            RelationType   `json:"type"`
	TargetID        string         `json:"target_id"`
	Confidence      float64        `json:"confidence"` // 0 to 1
	OccurrenceCount int            `json:"occurrence_count"`
	Properties      map[string]any `json:"properties,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Relationship is one observed co-occurrence used for batch network builds.
type Relationship struct {
	Source string       `json:"source"`
	Target string       `json:"target"`
	Type   RelationType `json:"type"`
	Weight float64      `json:"weight"` // observation confidence, 0 to 1
}

// GenreObservation is one aggregated per-user viewing/casting pattern.
type GenreObservation struct {
	Genre       string  `json:"genre"`
	Platform    string  `json:"platform,omitempty"`
	Frequency   int     `json:"frequency"`
	SuccessRate float64 `json:"success_rate"` // 0 to 1
}

// GraphQuery is a subject/predicate/object pattern. Empty fields match
// anything.
type GraphQuery struct {
	Subject   string `json:"subject,omitempty"`
	Predicate string `json:"predicate,omitempty"`
	Object    string `json:"object,omitempty"`
}

// GraphMatch is one edge matching a GraphQuery, with its endpoints resolved.
type GraphMatch struct {
	Source ConceptNode      `json:"source"`
	Edge   RelationshipEdge `json:"edge"`
	Target ConceptNode      `json:"target"`
}
