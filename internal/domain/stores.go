package domain

import (
	"context"

	"github.com/google/uuid"
)

// EpisodeStore handles durable storage of episodic memories.
type EpisodeStore interface {
	Create(ctx context.Context, e *Episode) error
	GetByID(ctx context.Context, id uuid.UUID) (*Episode, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateOutcome records the outcome and the recomputed valence.
	UpdateOutcome(ctx context.Context, id uuid.UUID, outcome *Outcome, valence float64) error

	// RecordAccess bumps access count and last-access time, re-anchoring
	// the trace for retention computation.
	RecordAccess(ctx context.Context, id uuid.UUID) error

	// FindSimilar runs a vector search over episode embeddings.
	FindSimilar(ctx context.Context, embedding []float32, limit int) ([]EpisodeWithScore, error)

	// ListRecent returns episodes newest first.
	ListRecent(ctx context.Context, limit int) ([]Episode, error)

	// Consolidation support. ListDistillable returns only stored episodes
	// whose outcome is known, oldest first; episodes still waiting on an
	// outcome never occupy the batch window.
	ExistsBySource(ctx context.Context, sourceEntryID string) (bool, error)
	ListDistillable(ctx context.Context, limit int) ([]Episode, error)
	MarkDistilled(ctx context.Context, id uuid.UUID) error

	// Pruning support.
	ListAll(ctx context.Context) ([]Episode, error)
	Count(ctx context.Context) (int, error)
}

// GraphStore persists semantic graph nodes and edges; the in-memory
// adjacency used by graph algorithms is rehydrated from it at startup.
type GraphStore interface {
	UpsertNode(ctx context.Context, n *ConceptNode) error
	UpsertEdge(ctx context.Context, e *RelationshipEdge) error
	ListNodes(ctx context.Context) ([]ConceptNode, error)
	ListEdges(ctx context.Context) ([]RelationshipEdge, error)
}

// SequenceStore persists workflow sequences as an append-only log.
type SequenceStore interface {
	Create(ctx context.Context, s *WorkflowSequence) error
	GetByID(ctx context.Context, id uuid.UUID) (*WorkflowSequence, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]WorkflowSequence, error)
	List(ctx context.Context, limit int) ([]WorkflowSequence, error)
}

// EmbeddingClient turns text into a vector. Identical text must yield a
// usably-similar vector; exact numeric reproducibility is not required.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
