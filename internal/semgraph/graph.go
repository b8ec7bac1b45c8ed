// Package semgraph holds the in-memory semantic knowledge graph: concept
// nodes for casting entities and typed, confidence-weighted relationship
// edges. All algorithms run on the in-process adjacency and never block;
// durability is the caller's concern.
package semgraph

import (
	"strings"
	"sync"
	"time"

	"github.com/castellan-ai/castellan/internal/domain"
)

type edgeKey struct {
	source string
	typ    domain.RelationType
	target string
}

// Graph is a mutex-guarded adjacency structure. Writes are serialized
// internally; reads take a snapshot under the read lock.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*domain.ConceptNode
	edges map[edgeKey]*domain.RelationshipEdge
}

func New() *Graph {
	return &Graph{
		nodes: make(map[string]*domain.ConceptNode),
		edges: make(map[edgeKey]*domain.RelationshipEdge),
	}
}

// NodeID derives the canonical node id for a (type, label) pair, so that
// repeated observations of the same entity collapse onto one node.
func NodeID(typ domain.ConceptType, label string) string {
	slug := strings.ToLower(strings.TrimSpace(label))
	slug = strings.Join(strings.Fields(slug), "-")
	return string(typ) + ":" + slug
}

// UpsertNode inserts the node or merges properties into the existing one.
// Idempotent: upserting the same id twice never duplicates. Reports
// whether a new node was created.
func (g *Graph) UpsertNode(n domain.ConceptNode) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	existing, ok := g.nodes[n.ID]
	if !ok {
		node := n
		if node.Properties == nil {
			node.Properties = make(map[string]any)
		}
		node.CreatedAt = now
		node.UpdatedAt = now
		g.nodes[n.ID] = &node
		return true
	}

	if n.Label != "" {
		existing.Label = n.Label
	}
	for k, v := range n.Properties {
		existing.Properties[k] = v
	}
	existing.UpdatedAt = now
	return false
}

// UpsertEdge inserts the edge or blends the observation into the existing
// one. Confidence moves toward the observed value by an exponential moving
// average whose weight is proportional to the observed occurrence count,
// so it converges under repeated identical observations and never leaves
// [0, 1]. Reports whether a new edge was created.
func (g *Graph) UpsertEdge(e domain.RelationshipEdge) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e.OccurrenceCount <= 0 {
		e.OccurrenceCount = 1
	}
	e.Confidence = clamp01(e.Confidence)

	key := edgeKey{source: e.SourceID, typ: e.Type, target: e.TargetID}
	now := time.Now()

	existing, ok := g.edges[key]
	if !ok {
		edge := e
		if edge.Properties == nil {
			edge.Properties = make(map[string]any)
		}
		edge.CreatedAt = now
		edge.UpdatedAt = now
		g.edges[key] = &edge
		return true
	}

	alpha := float64(e.OccurrenceCount) / float64(e.OccurrenceCount+existing.OccurrenceCount)
	existing.Confidence = clamp01(existing.Confidence + alpha*(e.Confidence-existing.Confidence))
	existing.OccurrenceCount += e.OccurrenceCount
	for k, v := range e.Properties {
		existing.Properties[k] = v
	}
	existing.UpdatedAt = now
	return false
}

// GetNode returns a copy of the node, if present.
func (g *Graph) GetNode(id string) (domain.ConceptNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return domain.ConceptNode{}, false
	}
	return *n, true
}

// GetEdge returns a copy of the edge, if present.
func (g *Graph) GetEdge(source string, typ domain.RelationType, target string) (domain.RelationshipEdge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.edges[edgeKey{source: source, typ: typ, target: target}]
	if !ok {
		return domain.RelationshipEdge{}, false
	}
	return *e, true
}

// Nodes returns a snapshot of all nodes.
func (g *Graph) Nodes() []domain.ConceptNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]domain.ConceptNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n)
	}
	return out
}

// Edges returns a snapshot of all edges.
func (g *Graph) Edges() []domain.RelationshipEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]domain.RelationshipEdge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, *e)
	}
	return out
}

// Load rehydrates the graph from persisted nodes and edges, replacing any
// current contents.
func (g *Graph) Load(nodes []domain.ConceptNode, edges []domain.RelationshipEdge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*domain.ConceptNode, len(nodes))
	for i := range nodes {
		n := nodes[i]
		if n.Properties == nil {
			n.Properties = make(map[string]any)
		}
		g.nodes[n.ID] = &n
	}
	g.edges = make(map[edgeKey]*domain.RelationshipEdge, len(edges))
	for i := range edges {
		e := edges[i]
		if e.Properties == nil {
			e.Properties = make(map[string]any)
		}
		g.edges[edgeKey{source: e.SourceID, typ: e.Type, target: e.TargetID}] = &e
	}
}

// Size returns node and edge counts.
func (g *Graph) Size() (nodes, edges int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes), len(g.edges)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
