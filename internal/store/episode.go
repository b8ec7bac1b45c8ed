package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

const episodeColumns = `id, decision_type, decision, outcome, emotional_valence, status,
	source_entry_id, initial_strength, importance, emotional_weight, context_richness,
	access_count, last_accessed_at, created_at, updated_at`

type EpisodeStore struct {
	db *pgxpool.Pool
}

func NewEpisodeStore(db *pgxpool.Pool) *EpisodeStore {
	return &EpisodeStore{db: db}
}

func (s *EpisodeStore) Create(ctx context.Context, e *domain.Episode) error {
	decision, err := json.Marshal(e.Decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	var embedding *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}

	if e.InitialStrength == 0 {
		e.InitialStrength = 1.0
	}
	if e.Status == "" {
		e.Status = domain.EpisodeStored
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO episodes (decision_type, decision, status, source_entry_id,
			initial_strength, importance, emotional_weight, context_richness,
			emotional_valence, embedding, access_count, last_accessed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, NOW())
		 RETURNING id, created_at, updated_at, last_accessed_at`,
		e.DecisionType, decision, e.Status, nullIfEmpty(e.SourceEntryID),
		e.InitialStrength, e.Importance, e.EmotionalWeight, e.ContextRichness,
		e.EmotionalValence, embedding,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt, &e.LastAccessedAt)
}

func (s *EpisodeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Episode, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE id = $1`, id)

	e, err := scanEpisode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *EpisodeStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM episodes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EpisodeStore) UpdateOutcome(ctx context.Context, id uuid.UUID, outcome *domain.Outcome, valence float64) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE episodes SET outcome = $2, emotional_valence = $3, updated_at = NOW()
		 WHERE id = $1`,
		id, payload, valence,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EpisodeStore) RecordAccess(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE episodes
		 SET access_count = access_count + 1, last_accessed_at = NOW(), updated_at = NOW()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EpisodeStore) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]domain.EpisodeWithScore, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT `+episodeColumns+`, 1 - (embedding <=> $1) AS similarity
		 FROM episodes
		 WHERE embedding IS NOT NULL
		 ORDER BY similarity DESC
		 LIMIT $2`,
		vec, limit,
	)
	if err != nil {
		// The vector index is a collaborator: callers degrade rather
		// than fail when it is unreachable.
		return nil, fmt.Errorf("%w: find similar episodes: %v", domain.ErrCollaboratorUnavailable, err)
	}
	defer rows.Close()

	var results []domain.EpisodeWithScore
	for rows.Next() {
		var r domain.EpisodeWithScore
		e, err := scanEpisodeWithExtra(rows, &r.Similarity)
		if err != nil {
			return nil, err
		}
		r.Episode = *e
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *EpisodeStore) ListRecent(ctx context.Context, limit int) ([]domain.Episode, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+episodeColumns+` FROM episodes ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

func (s *EpisodeStore) ExistsBySource(ctx context.Context, sourceEntryID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM episodes WHERE source_entry_id = $1)`, sourceEntryID,
	).Scan(&exists)
	return exists, err
}

// ListDistillable returns stored episodes with a recorded outcome, oldest
// first. Outcome-less episodes are excluded at the query level so a backlog
// of pending outcomes can never crowd distillable episodes out of the batch.
func (s *EpisodeStore) ListDistillable(ctx context.Context, limit int) ([]domain.Episode, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+episodeColumns+` FROM episodes
		 WHERE status = $1 AND outcome IS NOT NULL
		 ORDER BY created_at ASC LIMIT $2`,
		domain.EpisodeStored, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

func (s *EpisodeStore) MarkDistilled(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE episodes SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, domain.EpisodeDistilled,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EpisodeStore) ListAll(ctx context.Context) ([]domain.Episode, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+episodeColumns+` FROM episodes ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

func (s *EpisodeStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM episodes`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (*domain.Episode, error) {
	return scanEpisodeInto(row, nil)
}

func scanEpisodeWithExtra(row rowScanner, similarity *float64) (*domain.Episode, error) {
	return scanEpisodeInto(row, similarity)
}

func scanEpisodeInto(row rowScanner, similarity *float64) (*domain.Episode, error) {
	e := &domain.Episode{}
	var decisionJSON []byte
	var outcomeJSON []byte
	var sourceEntry *string

	dest := []any{
		&e.ID, &e.DecisionType, &decisionJSON, &outcomeJSON, &e.EmotionalValence, &e.Status,
		&sourceEntry, &e.InitialStrength, &e.Importance, &e.EmotionalWeight, &e.ContextRichness,
		&e.AccessCount, &e.LastAccessedAt, &e.CreatedAt, &e.UpdatedAt,
	}
	if similarity != nil {
		dest = append(dest, similarity)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(decisionJSON, &e.Decision); err != nil {
		return nil, fmt.Errorf("unmarshal decision: %w", err)
	}
	if len(outcomeJSON) > 0 {
		e.Outcome = &domain.Outcome{}
		if err := json.Unmarshal(outcomeJSON, e.Outcome); err != nil {
			return nil, fmt.Errorf("unmarshal outcome: %w", err)
		}
	}
	if sourceEntry != nil {
		e.SourceEntryID = *sourceEntry
	}
	return e, nil
}

func collectEpisodes(rows pgx.Rows) ([]domain.Episode, error) {
	var episodes []domain.Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, *e)
	}
	return episodes, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
