package semgraph

import (
	"testing"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actorNode(label string) domain.ConceptNode {
	return domain.ConceptNode{
		ID:    NodeID(domain.ConceptActor, label),
		Type:  domain.ConceptActor,
		Label: label,
	}
}

func TestNodeID_CanonicalKey(t *testing.T) {
	a := NodeID(domain.ConceptActor, "Maya Chen")
	b := NodeID(domain.ConceptActor, "  maya   chen ")
	assert.Equal(t, a, b, "label normalization must collapse case and whitespace")

	c := NodeID(domain.ConceptGenre, "Maya Chen")
	assert.NotEqual(t, a, c, "same label under a different type is a different node")
}

func TestUpsertNode_Idempotent(t *testing.T) {
	g := New()

	created := g.UpsertNode(actorNode("Maya Chen"))
	assert.True(t, created)

	n := actorNode("Maya Chen")
	n.Properties = map[string]any{"agency": "UTA"}
	created = g.UpsertNode(n)
	assert.False(t, created, "second upsert updates, never duplicates")

	nodes, edges := g.Size()
	assert.Equal(t, 1, nodes)
	assert.Zero(t, edges)

	got, ok := g.GetNode(NodeID(domain.ConceptActor, "Maya Chen"))
	require.True(t, ok)
	assert.Equal(t, "UTA", got.Properties["agency"])
}

func TestUpsertEdge_ConfidenceBlending(t *testing.T) {
	g := New()
	g.UpsertNode(actorNode("Maya Chen"))
	g.UpsertNode(actorNode("Omar Diallo"))

	src := NodeID(domain.ConceptActor, "Maya Chen")
	dst := NodeID(domain.ConceptActor, "Omar Diallo")

	created := g.UpsertEdge(domain.RelationshipEdge{
		SourceID: src, Type: domain.RelationWorkedWith, TargetID: dst,
		Confidence: 0.4, OccurrenceCount: 1,
	})
	assert.True(t, created)

	// Repeated observation at higher confidence pulls the edge up, but
	// as a bounded average, not a sum.
	created = g.UpsertEdge(domain.RelationshipEdge{
		SourceID: src, Type: domain.RelationWorkedWith, TargetID: dst,
		Confidence: 0.8, OccurrenceCount: 1,
	})
	assert.False(t, created)

	e, ok := g.GetEdge(src, domain.RelationWorkedWith, dst)
	require.True(t, ok)
	assert.Greater(t, e.Confidence, 0.4)
	assert.Less(t, e.Confidence, 0.8, "EMA lands between prior and observation")
	assert.Equal(t, 2, e.OccurrenceCount)
}

func TestUpsertEdge_ConfidenceConverges(t *testing.T) {
	g := New()
	src := NodeID(domain.ConceptActor, "a")
	dst := NodeID(domain.ConceptActor, "b")

	for i := 0; i < 50; i++ {
		g.UpsertEdge(domain.RelationshipEdge{
			SourceID: src, Type: domain.RelationWorkedWith, TargetID: dst,
			Confidence: 0.9, OccurrenceCount: 1,
		})
	}

	e, ok := g.GetEdge(src, domain.RelationWorkedWith, dst)
	require.True(t, ok)
	assert.InDelta(t, 0.9, e.Confidence, 0.05, "repeated identical evidence converges")
	assert.LessOrEqual(t, e.Confidence, 1.0, "confidence never passes 1.0")
	assert.Equal(t, 50, e.OccurrenceCount)
}

func buildNetwork(t *testing.T) *Graph {
	t.Helper()
	g := New()

	// Two clusters: {hub, a1, a2, a3} and {b1, b2}; hub touches all of
	// the first cluster.
	for _, label := range []string{"hub", "a1", "a2", "a3", "b1", "b2"} {
		g.UpsertNode(actorNode(label))
	}
	link := func(a, b string) {
		g.UpsertEdge(domain.RelationshipEdge{
			SourceID:   NodeID(domain.ConceptActor, a),
			Type:       domain.RelationWorkedWith,
			TargetID:   NodeID(domain.ConceptActor, b),
			Confidence: 0.8, OccurrenceCount: 1,
		})
	}
	link("hub", "a1")
	link("hub", "a2")
	link("hub", "a3")
	link("b1", "b2")
	return g
}

func TestInfluencers_RanksByWeightedDegree(t *testing.T) {
	g := buildNetwork(t)

	influencers := g.Influencers(3)
	require.NotEmpty(t, influencers)
	assert.Equal(t, NodeID(domain.ConceptActor, "hub"), influencers[0].NodeID)
	assert.Equal(t, 1.0, influencers[0].Score, "top node normalizes to 1.0")
	assert.Len(t, influencers, 3)
}

func TestCommunities_DeterministicComponents(t *testing.T) {
	g := buildNetwork(t)

	first := g.Communities()
	require.Len(t, first, 2)

	// Repeated runs over the same graph must produce identical output.
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, g.Communities())
	}

	var sizes []int
	for _, c := range first {
		sizes = append(sizes, len(c.Members))
	}
	assert.ElementsMatch(t, []int{4, 2}, sizes)
}

func TestQuery_PatternMatching(t *testing.T) {
	g := New()
	g.UpsertNode(actorNode("Maya Chen"))
	g.UpsertNode(domain.ConceptNode{
		ID: NodeID(domain.ConceptGenre, "thriller"), Type: domain.ConceptGenre, Label: "thriller",
	})
	g.UpsertEdge(domain.RelationshipEdge{
		SourceID:   NodeID(domain.ConceptActor, "Maya Chen"),
		Type:       domain.RelationSucceededIn,
		TargetID:   NodeID(domain.ConceptGenre, "thriller"),
		Confidence: 0.9, OccurrenceCount: 3,
	})

	t.Run("exact label match", func(t *testing.T) {
		matches := g.Query(domain.GraphQuery{Subject: "maya chen", Predicate: "succeeded_in"})
		require.Len(t, matches, 1)
		assert.Equal(t, "thriller", matches[0].Target.Label)
	})

	t.Run("wildcard predicate", func(t *testing.T) {
		matches := g.Query(domain.GraphQuery{Object: "thriller"})
		require.Len(t, matches, 1)
	})

	t.Run("no match is empty, not an error", func(t *testing.T) {
		matches := g.Query(domain.GraphQuery{Subject: "nobody"})
		assert.Empty(t, matches)
	})
}

func TestLoad_Rehydrates(t *testing.T) {
	g := buildNetwork(t)
	nodes := g.Nodes()
	edges := g.Edges()

	fresh := New()
	fresh.Load(nodes, edges)

	gotNodes, gotEdges := fresh.Size()
	assert.Equal(t, len(nodes), gotNodes)
	assert.Equal(t, len(edges), gotEdges)
	assert.Equal(t, g.Communities(), fresh.Communities())
}
