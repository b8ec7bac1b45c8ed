package semgraph

import (
	"sort"
	"strings"

	"github.com/castellan-ai/castellan/internal/domain"
)

// Query matches edges against a subject/predicate/object pattern. Empty
// fields are wildcards; subject and object match a node's label
// (case-insensitive) or exact id. No matches yields an empty result,
// never an error.
func (g *Graph) Query(q domain.GraphQuery) []domain.GraphMatch {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []domain.GraphMatch
	for _, e := range g.edges {
		source, ok := g.nodes[e.SourceID]
		if !ok {
			continue
		}
		target, ok := g.nodes[e.TargetID]
		if !ok {
			continue
		}

		if q.Subject != "" && !matchesNode(source, q.Subject) {
			continue
		}
		if q.Predicate != "" && !strings.EqualFold(q.Predicate, string(e.Type)) {
			continue
		}
		if q.Object != "" && !matchesNode(target, q.Object) {
			continue
		}

		out = append(out, domain.GraphMatch{Source: *source, Edge: *e, Target: *target})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Edge.Confidence != out[j].Edge.Confidence {
			return out[i].Edge.Confidence > out[j].Edge.Confidence
		}
		if out[i].Edge.SourceID != out[j].Edge.SourceID {
			return out[i].Edge.SourceID < out[j].Edge.SourceID
		}
		return out[i].Edge.TargetID < out[j].Edge.TargetID
	})
	return out
}

func matchesNode(n *domain.ConceptNode, term string) bool {
	return n.ID == term || strings.EqualFold(n.Label, term)
}
