package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/castellan-ai/castellan/internal/store"
	"github.com/google/uuid"
)

type mockEpisodeStore struct {
	mu       sync.Mutex
	episodes map[uuid.UUID]*domain.Episode

	createErr   error
	similarErr  error
	deleteCalls int
}

func newMockEpisodeStore() *mockEpisodeStore {
	return &mockEpisodeStore{episodes: make(map[uuid.UUID]*domain.Episode)}
}

func (m *mockEpisodeStore) Create(ctx context.Context, e *domain.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.UpdatedAt = e.CreatedAt
	cp := *e
	m.episodes[e.ID] = &cp
	return nil
}

func (m *mockEpisodeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.episodes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockEpisodeStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if _, ok := m.episodes[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.episodes, id)
	return nil
}

func (m *mockEpisodeStore) UpdateOutcome(ctx context.Context, id uuid.UUID, outcome *domain.Outcome, valence float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.episodes[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Outcome = outcome
	e.EmotionalValence = valence
	e.UpdatedAt = time.Now()
	return nil
}

func (m *mockEpisodeStore) RecordAccess(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.episodes[id]
	if !ok {
		return store.ErrNotFound
	}
	e.AccessCount++
	e.LastAccessedAt = time.Now()
	return nil
}

func (m *mockEpisodeStore) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]domain.EpisodeWithScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.similarErr != nil {
		return nil, m.similarErr
	}
	var out []domain.EpisodeWithScore
	for _, e := range m.episodes {
		if len(e.Embedding) == 0 {
			continue
		}
		out = append(out, domain.EpisodeWithScore{
			Episode:    *e,
			Similarity: cosine(embedding, e.Embedding),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockEpisodeStore) ListRecent(ctx context.Context, limit int) ([]domain.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Episode, 0, len(m.episodes))
	for _, e := range m.episodes {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockEpisodeStore) ExistsBySource(ctx context.Context, sourceEntryID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.episodes {
		if e.SourceEntryID == sourceEntryID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEpisodeStore) ListDistillable(ctx context.Context, limit int) ([]domain.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Episode
	for _, e := range m.episodes {
		if e.Status == domain.EpisodeStored && e.Outcome != nil {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockEpisodeStore) MarkDistilled(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.episodes[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Status = domain.EpisodeDistilled
	return nil
}

func (m *mockEpisodeStore) ListAll(ctx context.Context) ([]domain.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Episode, 0, len(m.episodes))
	for _, e := range m.episodes {
		out = append(out, *e)
	}
	return out, nil
}

func (m *mockEpisodeStore) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.episodes), nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type mockGraphStore struct {
	mu    sync.Mutex
	nodes map[string]domain.ConceptNode
	edges map[string]domain.RelationshipEdge
}

func newMockGraphStore() *mockGraphStore {
	return &mockGraphStore{
		nodes: make(map[string]domain.ConceptNode),
		edges: make(map[string]domain.RelationshipEdge),
	}
}

func (m *mockGraphStore) UpsertNode(ctx context.Context, n *domain.ConceptNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[n.ID] = *n
	return nil
}

func (m *mockGraphStore) UpsertEdge(ctx context.Context, e *domain.RelationshipEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[fmt.Sprintf("%s|%s|%s", e.SourceID, e.Type, e.TargetID)] = *e
	return nil
}

func (m *mockGraphStore) ListNodes(ctx context.Context) ([]domain.ConceptNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ConceptNode, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n)
	}
	return out, nil
}

func (m *mockGraphStore) ListEdges(ctx context.Context) ([]domain.RelationshipEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RelationshipEdge, 0, len(m.edges))
	for _, e := range m.edges {
		out = append(out, e)
	}
	return out, nil
}

type mockSequenceStore struct {
	mu        sync.Mutex
	sequences []domain.WorkflowSequence
}

func newMockSequenceStore() *mockSequenceStore {
	return &mockSequenceStore{}
}

func (m *mockSequenceStore) Create(ctx context.Context, s *domain.WorkflowSequence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.RecordedAt.IsZero() {
		s.RecordedAt = time.Now()
	}
	m.sequences = append(m.sequences, *s)
	return nil
}

func (m *mockSequenceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowSequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sequences {
		if m.sequences[i].ID == id {
			cp := m.sequences[i]
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockSequenceStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.WorkflowSequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WorkflowSequence
	for _, s := range m.sequences {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockSequenceStore) List(ctx context.Context, limit int) ([]domain.WorkflowSequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.WorkflowSequence(nil), m.sequences...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockEmbedder struct {
	err   error
	calls int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	// Deterministic unit vector keyed on the first byte, so identical
	// texts collide and different texts usually do not.
	var b byte
	if len(text) > 0 {
		b = text[0]
	}
	angle := float64(b) / 255 * math.Pi / 2
	return []float32{float32(math.Cos(angle)), float32(math.Sin(angle)), 0}, nil
}
