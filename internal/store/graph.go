package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GraphStore persists semantic graph nodes and edges. The in-memory
// adjacency in semgraph is the source of truth for reads; this store is
// write-through plus startup rehydration.
type GraphStore struct {
	db *pgxpool.Pool
}

func NewGraphStore(db *pgxpool.Pool) *GraphStore {
	return &GraphStore{db: db}
}

func (s *GraphStore) UpsertNode(ctx context.Context, n *domain.ConceptNode) error {
	props, err := json.Marshal(n.Properties)
	if err != nil {
		return fmt.Errorf("marshal node properties: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO concept_nodes (id, type, label, properties)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET label = EXCLUDED.label,
		     properties = concept_nodes.properties || EXCLUDED.properties,
		     updated_at = NOW()`,
		n.ID, n.Type, n.Label, props,
	)
	return err
}

func (s *GraphStore) UpsertEdge(ctx context.Context, e *domain.RelationshipEdge) error {
	props, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("marshal edge properties: %w", err)
	}

	// The blended confidence is computed in memory; the row just mirrors
	// the current value.
	_, err = s.db.Exec(ctx,
		`INSERT INTO relationship_edges (source_id, type, target_id, confidence, occurrence_count, properties)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (source_id, type, target_id) DO UPDATE
		 SET confidence = EXCLUDED.confidence,
		     occurrence_count = EXCLUDED.occurrence_count,
		     properties = relationship_edges.properties || EXCLUDED.properties,
		     updated_at = NOW()`,
		e.SourceID, e.Type, e.TargetID, e.Confidence, e.OccurrenceCount, props,
	)
	return err
}

func (s *GraphStore) ListNodes(ctx context.Context) ([]domain.ConceptNode, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, type, label, properties, created_at, updated_at FROM concept_nodes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []domain.ConceptNode
	for rows.Next() {
		var n domain.ConceptNode
		var props []byte
		if err := rows.Scan(&n.ID, &n.Type, &n.Label, &props, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		if len(props) > 0 {
			if err := json.Unmarshal(props, &n.Properties); err != nil {
				return nil, fmt.Errorf("unmarshal node properties: %w", err)
			}
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *GraphStore) ListEdges(ctx context.Context) ([]domain.RelationshipEdge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT source_id, type, target_id, confidence, occurrence_count, properties, created_at, updated_at
		 FROM relationship_edges`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.RelationshipEdge
	for rows.Next() {
		var e domain.RelationshipEdge
		var props []byte
		if err := rows.Scan(&e.SourceID, &e.Type, &e.TargetID, &e.Confidence,
			&e.OccurrenceCount, &props, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if len(props) > 0 {
			if err := json.Unmarshal(props, &e.Properties); err != nil {
				return nil, fmt.Errorf("unmarshal edge properties: %w", err)
			}
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
