package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceStore is the append-only log of workflow runs. Rows are never
// updated after insert.
type SequenceStore struct {
	db *pgxpool.Pool
}

func NewSequenceStore(db *pgxpool.Pool) *SequenceStore {
	return &SequenceStore{db: db}
}

func (s *SequenceStore) Create(ctx context.Context, seq *domain.WorkflowSequence) error {
	actions, err := json.Marshal(seq.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO workflow_sequences (user_id, actions, success, total_time_ms)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, recorded_at`,
		seq.UserID, actions, seq.Success, seq.TotalTime.Milliseconds(),
	).Scan(&seq.ID, &seq.RecordedAt)
}

func (s *SequenceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowSequence, error) {
	seq, err := scanSequence(s.db.QueryRow(ctx,
		`SELECT id, user_id, actions, success, total_time_ms, recorded_at
		 FROM workflow_sequences WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return seq, nil
}

func (s *SequenceStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.WorkflowSequence, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, actions, success, total_time_ms, recorded_at
		 FROM workflow_sequences WHERE user_id = $1
		 ORDER BY recorded_at ASC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSequences(rows)
}

func (s *SequenceStore) List(ctx context.Context, limit int) ([]domain.WorkflowSequence, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, actions, success, total_time_ms, recorded_at
		 FROM workflow_sequences ORDER BY recorded_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSequences(rows)
}

func scanSequence(row rowScanner) (*domain.WorkflowSequence, error) {
	seq := &domain.WorkflowSequence{}
	var actions []byte
	var totalMs int64

	if err := row.Scan(&seq.ID, &seq.UserID, &actions, &seq.Success, &totalMs, &seq.RecordedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(actions, &seq.Actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	seq.TotalTime = millisToDuration(totalMs)
	return seq, nil
}

func millisToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func collectSequences(rows pgx.Rows) ([]domain.WorkflowSequence, error) {
	var out []domain.WorkflowSequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *seq)
	}
	return out, rows.Err()
}
