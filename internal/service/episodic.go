package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/castellan-ai/castellan/internal/forgetting"
	"github.com/castellan-ai/castellan/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEpisodeNotFound      = errors.New("episode not found")
	ErrDecisionSummaryEmpty = errors.New("decision summary is required")
	ErrInvalidDecisionType  = errors.New("invalid decision type")
	ErrInvalidOutcome       = errors.New("invalid outcome")
	ErrQueryEmpty           = errors.New("query text is required")
)

const (
	// DefaultRecallLimit is used when callers pass a non-positive topK.
	DefaultRecallLimit = 10
	// MaxRecallLimit caps how many episodes a single recall can return.
	MaxRecallLimit = 100
)

// decisionTypeWeight is the base importance contribution per decision type.
// Talent and contract calls carry more weight than routine scheduling.
var decisionTypeWeight = map[domain.DecisionType]float64{
	domain.DecisionTalentSelection:     0.55,
	domain.DecisionContractNegotiation: 0.50,
	domain.DecisionBudgetApproval:      0.45,
	domain.DecisionAuditionReview:      0.35,
	domain.DecisionScheduleChange:      0.25,
}

// EpisodicService records casting decisions as decayable memories and
// recalls them by blended similarity and retention.
type EpisodicService struct {
	episodes    domain.EpisodeStore
	embedder    domain.EmbeddingClient
	curve       *forgetting.Curve
	blendWeight float64
	logger      *zap.Logger
}

func NewEpisodicService(
	es domain.EpisodeStore,
	ec domain.EmbeddingClient,
	curve *forgetting.Curve,
	blendWeight float64,
	logger *zap.Logger,
) *EpisodicService {
	if blendWeight < 0 || blendWeight > 1 {
		blendWeight = 0.7
	}
	return &EpisodicService{
		episodes:    es,
		embedder:    ec,
		curve:       curve,
		blendWeight: blendWeight,
		logger:      logger,
	}
}

// StoreDecisionInput is the input for recording a new casting decision.
type StoreDecisionInput struct {
	DecisionType  string
	Decision      domain.Decision
	RecordedAt    time.Time
	SourceEntryID string
}

// StoreDecision validates the decision, derives importance from its context
// signals, embeds it, and persists it as a stored episode. A failed
// embedding is logged and the episode is stored without one: recall
// degrades for that episode but the decision is never lost.
func (s *EpisodicService) StoreDecision(ctx context.Context, input StoreDecisionInput) (*domain.Episode, error) {
	if strings.TrimSpace(input.Decision.Summary) == "" {
		return nil, ErrDecisionSummaryEmpty
	}
	if !domain.ValidDecisionType(input.DecisionType) {
		return nil, ErrInvalidDecisionType
	}

	now := time.Now()
	if input.RecordedAt.IsZero() {
		input.RecordedAt = now
	}

	episode := &domain.Episode{
		MemoryTrace: domain.MemoryTrace{
			InitialStrength: 1.0,
			Importance:      decisionImportance(domain.DecisionType(input.DecisionType), input.Decision, now),
			ContextRichness: decisionRichness(input.Decision),
			CreatedAt:       input.RecordedAt,
		},
		DecisionType:  domain.DecisionType(input.DecisionType),
		Decision:      input.Decision,
		Status:        domain.EpisodeStored,
		SourceEntryID: input.SourceEntryID,
	}

	if s.embedder != nil {
		emb, err := s.embedder.Embed(ctx, embeddingText(input.Decision))
		if err != nil {
			s.logger.Warn("storing decision without embedding",
				zap.String("decision_type", input.DecisionType),
				zap.Error(err))
		} else {
			episode.Embedding = emb
		}
	}

	if err := s.episodes.Create(ctx, episode); err != nil {
		return nil, err
	}
	return episode, nil
}

// RecordOutcome attaches the outcome to an episode and recomputes its
// emotional valence. Successful outcomes always land strictly positive,
// failures strictly negative.
func (s *EpisodicService) RecordOutcome(ctx context.Context, id uuid.UUID, outcome *domain.Outcome) (*domain.Episode, error) {
	if outcome == nil {
		return nil, ErrInvalidOutcome
	}
	if outcome.Satisfaction != nil && (*outcome.Satisfaction < 0 || *outcome.Satisfaction > 5) {
		return nil, ErrInvalidOutcome
	}
	if outcome.PerformanceScore != nil && (*outcome.PerformanceScore < 0 || *outcome.PerformanceScore > 1) {
		return nil, ErrInvalidOutcome
	}

	episode, err := s.episodes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEpisodeNotFound
		}
		return nil, err
	}

	if outcome.RecordedAt.IsZero() {
		outcome.RecordedAt = time.Now()
	}
	valence := outcomeValence(outcome)

	if err := s.episodes.UpdateOutcome(ctx, id, outcome, valence); err != nil {
		return nil, err
	}

	episode.Outcome = outcome
	episode.EmotionalValence = valence
	return episode, nil
}

// FindSimilar recalls episodes relevant to the context text, ranked by
// blendWeight*similarity + (1-blendWeight)*retention. When the embedder or
// vector index is unavailable it degrades to retention-ranked recent
// episodes rather than failing.
func (s *EpisodicService) FindSimilar(ctx context.Context, contextText string, topK int) ([]domain.EpisodeWithScore, error) {
	if strings.TrimSpace(contextText) == "" {
		return nil, ErrQueryEmpty
	}
	if topK <= 0 {
		topK = DefaultRecallLimit
	}
	if topK > MaxRecallLimit {
		topK = MaxRecallLimit
	}

	var embedding []float32
	if s.embedder != nil {
		emb, err := s.embedder.Embed(ctx, contextText)
		if err != nil {
			s.logger.Warn("recall degraded: embedder unavailable", zap.Error(err))
			return s.recallByRetention(ctx, topK)
		}
		embedding = emb
	} else {
		return s.recallByRetention(ctx, topK)
	}

	results, err := s.episodes.FindSimilar(ctx, embedding, topK)
	if err != nil {
		if errors.Is(err, domain.ErrCollaboratorUnavailable) {
			s.logger.Warn("recall degraded: vector search unavailable", zap.Error(err))
			return s.recallByRetention(ctx, topK)
		}
		return nil, err
	}

	now := time.Now()
	for i := range results {
		results[i].Retention = s.curve.TraceRetention(results[i].MemoryTrace, now)
		results[i].Score = s.blendWeight*results[i].Similarity + (1-s.blendWeight)*results[i].Retention
	}
	sortScored(results)
	return results, nil
}

// recallByRetention is the degraded recall path: recent episodes ranked by
// current retention only.
func (s *EpisodicService) recallByRetention(ctx context.Context, topK int) ([]domain.EpisodeWithScore, error) {
	recent, err := s.episodes.ListRecent(ctx, topK*2)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	results := make([]domain.EpisodeWithScore, 0, len(recent))
	for _, e := range recent {
		r := s.curve.TraceRetention(e.MemoryTrace, now)
		results = append(results, domain.EpisodeWithScore{
			Episode:   e,
			Retention: r,
			Score:     r,
		})
	}
	sortScored(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// GetByID fetches one episode.
func (s *EpisodicService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Episode, error) {
	episode, err := s.episodes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEpisodeNotFound
		}
		return nil, err
	}
	return episode, nil
}

// RecordAccess bumps the access count and re-anchors the trace, which both
// strengthens future retention and widens the review spacing.
func (s *EpisodicService) RecordAccess(ctx context.Context, id uuid.UUID) error {
	if err := s.episodes.RecordAccess(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrEpisodeNotFound
		}
		return err
	}
	return nil
}

// Retention returns the episode's current retention.
func (s *EpisodicService) Retention(e *domain.Episode, now time.Time) float64 {
	return s.curve.TraceRetention(e.MemoryTrace, now)
}

func sortScored(results []domain.EpisodeWithScore) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// decisionImportance derives a [0,1] importance from the decision type and
// its context signals: larger budgets and nearer deadlines raise the
// stakes of remembering the decision.
func decisionImportance(t domain.DecisionType, d domain.Decision, now time.Time) float64 {
	imp := decisionTypeWeight[t]

	if d.BudgetUSD > 0 {
		imp += math.Min(0.25, 0.05*math.Log10(1+d.BudgetUSD/1000))
	}
	if d.DeadlineAt != nil {
		until := d.DeadlineAt.Sub(now)
		switch {
		case until <= 7*24*time.Hour:
			imp += 0.15
		case until <= 30*24*time.Hour:
			imp += 0.05
		}
	}
	return clamp01(imp)
}

// decisionRichness is the fraction of optional context fields populated.
func decisionRichness(d domain.Decision) float64 {
	total := 7.0
	var set float64
	if d.TalentName != "" {
		set++
	}
	if d.ProjectID != "" {
		set++
	}
	if d.Genre != "" {
		set++
	}
	if d.Platform != "" {
		set++
	}
	if d.BudgetUSD > 0 {
		set++
	}
	if d.DeadlineAt != nil {
		set++
	}
	if len(d.Extra) > 0 {
		set++
	}
	return set / total
}

// outcomeValence blends the outcome signals into [-1,1]. The success flag
// anchors the sign; satisfaction, performance, and a missed deadline shift
// the magnitude.
func outcomeValence(o *domain.Outcome) float64 {
	v := 0.4
	if !o.Success {
		v = -0.4
	}
	if o.Satisfaction != nil {
		v += 0.4 * (*o.Satisfaction/2.5 - 1)
	}
	if o.PerformanceScore != nil {
		v += 0.2 * (2**o.PerformanceScore - 1)
	}
	if o.DeadlineMissed != nil && *o.DeadlineMissed {
		v -= 0.2
	}

	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	// The sign always follows the success flag.
	if o.Success && v <= 0 {
		v = 0.05
	}
	if !o.Success && v >= 0 {
		v = -0.05
	}
	return v
}

func embeddingText(d domain.Decision) string {
	parts := []string{d.Summary}
	for _, p := range []string{d.TalentName, d.Genre, d.Platform, d.ProjectID} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " | ")
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
