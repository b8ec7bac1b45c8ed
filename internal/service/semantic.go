package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/castellan-ai/castellan/internal/semgraph"
	"go.uber.org/zap"
)

var (
	ErrConceptLabelEmpty   = errors.New("concept label is required")
	ErrInvalidConceptType  = errors.New("invalid concept type")
	ErrInvalidRelationType = errors.New("invalid relation type")
	ErrUserIDMissing       = errors.New("user_id is required")
	ErrNoObservations      = errors.New("at least one observation is required")
	ErrNoRelationships     = errors.New("at least one relationship is required")
)

const (
	// NetworkInfluencerLimit bounds how many influencers a network build reports.
	NetworkInfluencerLimit = 10
	// PreferenceRecommendationLimit bounds how many recommendations a
	// preference profile carries.
	PreferenceRecommendationLimit = 3
)

// NetworkStats summarizes one actor-network build.
type NetworkStats struct {
	NodesAdded  int                       `json:"nodes_added"`
	EdgesAdded  int                       `json:"edges_added"`
	Influencers []semgraph.InfluenceScore `json:"influencers"`
	Communities []semgraph.Community      `json:"communities"`
}

// GenreScore is one ranked entry in a preference profile.
type GenreScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// PreferenceProfile aggregates a user's genre and platform preferences,
// weighted by how often a genre was cast and how well it performed.
type PreferenceProfile struct {
	UserID          string       `json:"user_id"`
	TopGenres       []GenreScore `json:"top_genres"`
	TopPlatforms    []GenreScore `json:"top_platforms"`
	Recommendations []string     `json:"recommendations"`
}

// SemanticService maintains the knowledge graph: an in-memory adjacency for
// the algorithms, written through to the durable graph store.
type SemanticService struct {
	graph  *semgraph.Graph
	store  domain.GraphStore
	logger *zap.Logger
}

func NewSemanticService(graph *semgraph.Graph, gs domain.GraphStore, logger *zap.Logger) *SemanticService {
	return &SemanticService{graph: graph, store: gs, logger: logger}
}

// Rehydrate replaces the in-memory graph with the persisted one. Called
// once at startup before the service takes traffic.
func (s *SemanticService) Rehydrate(ctx context.Context) error {
	nodes, err := s.store.ListNodes(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate graph nodes: %w", err)
	}
	edges, err := s.store.ListEdges(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate graph edges: %w", err)
	}
	s.graph.Load(nodes, edges)
	s.logger.Info("semantic graph rehydrated",
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)))
	return nil
}

// AddConcept upserts a concept node. Reports whether the node is new.
func (s *SemanticService) AddConcept(ctx context.Context, typ domain.ConceptType, label string, props map[string]any) (*domain.ConceptNode, bool, error) {
	if strings.TrimSpace(label) == "" {
		return nil, false, ErrConceptLabelEmpty
	}
	if !domain.ValidConceptType(string(typ)) {
		return nil, false, ErrInvalidConceptType
	}

	id := semgraph.NodeID(typ, label)
	created := s.graph.UpsertNode(domain.ConceptNode{
		ID:         id,
		Type:       typ,
		Label:      strings.TrimSpace(label),
		Properties: props,
	})

	node, _ := s.graph.GetNode(id)
	if err := s.store.UpsertNode(ctx, &node); err != nil {
		return nil, false, err
	}
	return &node, created, nil
}

// Relate upserts both endpoint concepts and the typed edge between them,
// blending the observation confidence into any existing edge. Symmetric
// relations are mirrored. Reports whether the forward edge is new.
func (s *SemanticService) Relate(
	ctx context.Context,
	sourceType domain.ConceptType, sourceLabel string,
	relation domain.RelationType,
	targetType domain.ConceptType, targetLabel string,
	confidence float64,
) (*domain.RelationshipEdge, bool, error) {
	if !domain.ValidRelationType(string(relation)) {
		return nil, false, ErrInvalidRelationType
	}

	source, _, err := s.AddConcept(ctx, sourceType, sourceLabel, nil)
	if err != nil {
		return nil, false, err
	}
	target, _, err := s.AddConcept(ctx, targetType, targetLabel, nil)
	if err != nil {
		return nil, false, err
	}

	created, err := s.upsertEdge(ctx, source.ID, relation, target.ID, confidence)
	if err != nil {
		return nil, false, err
	}
	if domain.SymmetricRelations[relation] && source.ID != target.ID {
		if _, err := s.upsertEdge(ctx, target.ID, relation, source.ID, confidence); err != nil {
			return nil, false, err
		}
	}

	edge, _ := s.graph.GetEdge(source.ID, relation, target.ID)
	return &edge, created, nil
}

func (s *SemanticService) upsertEdge(ctx context.Context, sourceID string, relation domain.RelationType, targetID string, confidence float64) (bool, error) {
	created := s.graph.UpsertEdge(domain.RelationshipEdge{
		SourceID:        sourceID,
		Type:            relation,
		TargetID:        targetID,
		Confidence:      confidence,
		OccurrenceCount: 1,
	})
	edge, _ := s.graph.GetEdge(sourceID, relation, targetID)
	if err := s.store.UpsertEdge(ctx, &edge); err != nil {
		return created, err
	}
	return created, nil
}

// BuildActorNetwork ingests a batch of observed collaborations and returns
// the resulting network analysis: top influencers by confidence-weighted
// degree and the connected collaboration communities.
func (s *SemanticService) BuildActorNetwork(ctx context.Context, relationships []domain.Relationship) (*NetworkStats, error) {
	if len(relationships) == 0 {
		return nil, ErrNoRelationships
	}

	stats := &NetworkStats{}
	for _, rel := range relationships {
		relation := rel.Type
		if relation == "" {
			relation = domain.RelationWorkedWith
		}
		if !domain.ValidRelationType(string(relation)) {
			return nil, ErrInvalidRelationType
		}

		sourceID := semgraph.NodeID(domain.ConceptActor, rel.Source)
		targetID := semgraph.NodeID(domain.ConceptActor, rel.Target)
		if s.graph.UpsertNode(domain.ConceptNode{ID: sourceID, Type: domain.ConceptActor, Label: rel.Source}) {
			stats.NodesAdded++
		}
		if s.graph.UpsertNode(domain.ConceptNode{ID: targetID, Type: domain.ConceptActor, Label: rel.Target}) {
			stats.NodesAdded++
		}
		for _, id := range []string{sourceID, targetID} {
			node, _ := s.graph.GetNode(id)
			if err := s.store.UpsertNode(ctx, &node); err != nil {
				return nil, err
			}
		}

		created, err := s.upsertEdge(ctx, sourceID, relation, targetID, rel.Weight)
		if err != nil {
			return nil, err
		}
		if created {
			stats.EdgesAdded++
		}
		if domain.SymmetricRelations[relation] && sourceID != targetID {
			if _, err := s.upsertEdge(ctx, targetID, relation, sourceID, rel.Weight); err != nil {
				return nil, err
			}
		}
	}

	stats.Influencers = s.graph.Influencers(NetworkInfluencerLimit)
	stats.Communities = s.graph.Communities()
	return stats, nil
}

// TrackGenrePreferences records a user's aggregated genre observations as
// preference edges and derives a ranked profile. Preference strength is
// frequency weighted by success rate, so a genre cast often but
// unsuccessfully ranks below one cast less often with strong outcomes.
func (s *SemanticService) TrackGenrePreferences(ctx context.Context, userID string, observations []domain.GenreObservation) (*PreferenceProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserIDMissing
	}
	if len(observations) == 0 {
		return nil, ErrNoObservations
	}

	genreScores := make(map[string]float64)
	platformScores := make(map[string]float64)
	var maxScore float64
	for _, obs := range observations {
		if obs.Genre == "" || obs.Frequency <= 0 {
			continue
		}
		score := float64(obs.Frequency) * obs.SuccessRate
		genreScores[obs.Genre] += score
		if obs.Platform != "" {
			platformScores[obs.Platform] += score
		}
		if genreScores[obs.Genre] > maxScore {
			maxScore = genreScores[obs.Genre]
		}
	}
	if len(genreScores) == 0 {
		return nil, ErrNoObservations
	}

	for genre, score := range genreScores {
		confidence := 1.0
		if maxScore > 0 {
			confidence = score / maxScore
		}
		if _, _, err := s.Relate(ctx, domain.ConceptUser, userID, domain.RelationPrefers, domain.ConceptGenre, genre, confidence); err != nil {
			return nil, err
		}
	}
	for platform, score := range platformScores {
		confidence := 1.0
		if maxScore > 0 {
			confidence = clamp01(score / maxScore)
		}
		if _, _, err := s.Relate(ctx, domain.ConceptUser, userID, domain.RelationPrefers, domain.ConceptPlatform, platform, confidence); err != nil {
			return nil, err
		}
	}

	profile := &PreferenceProfile{
		UserID:       userID,
		TopGenres:    rankScores(genreScores),
		TopPlatforms: rankScores(platformScores),
	}
	for _, g := range profile.TopGenres {
		if len(profile.Recommendations) >= PreferenceRecommendationLimit {
			break
		}
		if len(profile.TopPlatforms) > 0 {
			profile.Recommendations = append(profile.Recommendations,
				fmt.Sprintf("cast more %s projects on %s", g.Name, profile.TopPlatforms[0].Name))
		} else {
			profile.Recommendations = append(profile.Recommendations,
				fmt.Sprintf("cast more %s projects", g.Name))
		}
	}
	return profile, nil
}

// Query matches graph edges against a subject/predicate/object pattern.
// Empty fields are wildcards; no matches yields an empty result.
func (s *SemanticService) Query(q domain.GraphQuery) []domain.GraphMatch {
	return s.graph.Query(q)
}

// Size returns node and edge counts.
func (s *SemanticService) Size() (nodes, edges int) {
	return s.graph.Size()
}

func rankScores(scores map[string]float64) []GenreScore {
	out := make([]GenreScore, 0, len(scores))
	for name, score := range scores {
		out = append(out, GenreScore{Name: name, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}
