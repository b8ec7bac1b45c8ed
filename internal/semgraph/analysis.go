package semgraph

import (
	"sort"
)

// InfluenceScore ranks a node by confidence-weighted degree.
type InfluenceScore struct {
	NodeID string  `json:"node_id"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"` // normalized to [0,1] against the top node
}

// Community is one group of mutually connected nodes, identified by its
// smallest member id so output is deterministic for a fixed graph.
type Community struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
}

// Influencers returns the topN nodes ranked by the sum of confidence over
// incident edges, both directions. Deterministic: ties break on node id.
func (g *Graph) Influencers(topN int) []InfluenceScore {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if topN <= 0 {
		topN = 10
	}

	weights := make(map[string]float64, len(g.nodes))
	for _, e := range g.edges {
		weights[e.SourceID] += e.Confidence
		weights[e.TargetID] += e.Confidence
	}

	scores := make([]InfluenceScore, 0, len(weights))
	var max float64
	for id, w := range weights {
		if w > max {
			max = w
		}
		label := id
		if n, ok := g.nodes[id]; ok {
			label = n.Label
		}
		scores = append(scores, InfluenceScore{NodeID: id, Label: label, Score: w})
	}

	if max > 0 {
		for i := range scores {
			scores[i].Score /= max
		}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].NodeID < scores[j].NodeID
	})

	if len(scores) > topN {
		scores = scores[:topN]
	}
	return scores
}

// Communities groups nodes into connected components over the undirected
// view of the graph. Isolated nodes form singleton communities.
func (g *Graph) Communities() []Community {
	g.mu.RLock()
	defer g.mu.RUnlock()

	adjacency := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		adjacency[e.SourceID] = append(adjacency[e.SourceID], e.TargetID)
		adjacency[e.TargetID] = append(adjacency[e.TargetID], e.SourceID)
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	visited := make(map[string]bool, len(ids))
	var communities []Community

	for _, start := range ids {
		if visited[start] {
			continue
		}
		// BFS from the smallest unvisited id, so the component
		// representative and member order are stable.
		var members []string
		queue := []string{start}
		visited[start] = true
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			members = append(members, id)

			neighbors := append([]string(nil), adjacency[id]...)
			sort.Strings(neighbors)
			for _, next := range neighbors {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		sort.Strings(members)
		communities = append(communities, Community{ID: members[0], Members: members})
	}

	sort.Slice(communities, func(i, j int) bool {
		return communities[i].ID < communities[j].ID
	})
	return communities
}
