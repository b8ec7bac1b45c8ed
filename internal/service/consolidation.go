package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/castellan-ai/castellan/internal/forgetting"
	"go.uber.org/zap"
)

const (
	// extractBatchSize bounds how many stored episodes one extraction pass
	// scans.
	extractBatchSize = 200

	// minCooccurrence is how many episodes must repeat an entity pairing
	// before it is distilled into the semantic graph.
	minCooccurrence = 2

	// maintenanceCycleTimeout bounds one background maintenance cycle.
	maintenanceCycleTimeout = 10 * time.Minute
)

// ConsolidateStats summarizes one short-term consolidation pass.
type ConsolidateStats struct {
	Processed    int `json:"processed"`
	Consolidated int `json:"consolidated"`
	Discarded    int `json:"discarded"`
	Failed       int `json:"failed"`
}

// ExtractStats summarizes one semantic extraction pass.
type ExtractStats struct {
	Analyzed      int `json:"analyzed"`
	Concepts      int `json:"concepts"`
	Relationships int `json:"relationships"`
}

// PruneStats summarizes one pruning pass.
type PruneStats struct {
	Evaluated       int   `json:"evaluated"`
	Pruned          int   `json:"pruned"`
	SpaceFreedBytes int64 `json:"space_freed_bytes"`
	Failed          int   `json:"failed"`
}

// MaintenanceStats aggregates one full maintenance cycle.
type MaintenanceStats struct {
	Consolidate ConsolidateStats `json:"consolidate"`
	Extract     ExtractStats     `json:"extract"`
	Prune       PruneStats       `json:"prune"`
	Duration    time.Duration    `json:"duration"`
}

// ConsolidationConfig carries the tunable thresholds of the maintenance
// pipeline.
type ConsolidationConfig struct {
	MinDwellTime            time.Duration
	DecayFloor              float64
	ImportanceOverrideFloor float64
	Interval                time.Duration
}

// ConsolidationService runs the maintenance pipeline: migrate dwelled
// short-term entries into episodic memory, distill recurring structure
// from episodes into the semantic graph, then prune decayed episodes.
// Phases always run in that order within a cycle, so nothing is pruned
// before it had its chance to be consolidated and distilled.
type ConsolidationService struct {
	buffer   domain.ShortTermBuffer
	episodic *EpisodicService
	semantic *SemanticService
	episodes domain.EpisodeStore
	curve    *forgetting.Curve
	cfg      ConsolidationConfig
	logger   *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewConsolidationService(
	buffer domain.ShortTermBuffer,
	episodic *EpisodicService,
	semantic *SemanticService,
	episodes domain.EpisodeStore,
	curve *forgetting.Curve,
	cfg ConsolidationConfig,
	logger *zap.Logger,
) *ConsolidationService {
	if cfg.MinDwellTime <= 0 {
		cfg.MinDwellTime = 5 * time.Minute
	}
	if cfg.DecayFloor <= 0 || cfg.DecayFloor >= 1 {
		cfg.DecayFloor = 0.05
	}
	if cfg.ImportanceOverrideFloor <= 0 || cfg.ImportanceOverrideFloor > 1 {
		cfg.ImportanceOverrideFloor = 0.7
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	return &ConsolidationService{
		buffer:   buffer,
		episodic: episodic,
		semantic: semantic,
		episodes: episodes,
		curve:    curve,
		cfg:      cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background maintenance worker.
func (s *ConsolidationService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		s.logger.Info("maintenance worker started", zap.Duration("interval", s.cfg.Interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), maintenanceCycleTimeout)
				if _, err := s.RunMaintenance(ctx); err != nil {
					s.logger.Error("maintenance cycle failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("maintenance worker stopped")
				return
			}
		}
	}()
}

// Stop halts the background worker. An in-flight cycle finishes first.
func (s *ConsolidationService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RunMaintenance executes one cycle: consolidate, extract, prune, in that
// order. A failed phase is reported but does not block later phases, since
// each phase is idempotent and independently safe to re-run.
func (s *ConsolidationService) RunMaintenance(ctx context.Context) (*MaintenanceStats, error) {
	start := time.Now()
	stats := &MaintenanceStats{}
	var errs []error

	consolidate, err := s.ConsolidateShortTerm(ctx)
	if err != nil {
		s.logger.Error("consolidation phase failed", zap.Error(err))
		errs = append(errs, err)
	}
	stats.Consolidate = consolidate

	extract, err := s.ExtractSemanticKnowledge(ctx)
	if err != nil {
		s.logger.Error("extraction phase failed", zap.Error(err))
		errs = append(errs, err)
	}
	stats.Extract = extract

	prune, err := s.PruneIrrelevantMemories(ctx)
	if err != nil {
		s.logger.Error("pruning phase failed", zap.Error(err))
		errs = append(errs, err)
	}
	stats.Prune = prune

	stats.Duration = time.Since(start)
	s.logger.Info("maintenance cycle complete",
		zap.Int("consolidated", stats.Consolidate.Consolidated),
		zap.Int("distilled", stats.Extract.Analyzed),
		zap.Int("pruned", stats.Prune.Pruned),
		zap.Duration("duration", stats.Duration))

	return stats, errors.Join(errs...)
}

// ConsolidateShortTerm migrates buffer entries that have dwelled long
// enough into episodic memory. Each entry is handled independently: the
// buffer entry is deleted only after its episode is durably stored, so a
// crashed or failed run can always be retried, and entries already
// migrated by a previous run are skipped via their source id.
func (s *ConsolidationService) ConsolidateShortTerm(ctx context.Context) (ConsolidateStats, error) {
	stats := ConsolidateStats{}

	entries, err := s.buffer.ListOlderThan(ctx, s.cfg.MinDwellTime)
	if err != nil {
		return stats, err
	}

	for _, entry := range entries {
		stats.Processed++

		var decision domain.Decision
		if err := json.Unmarshal(entry.Payload, &decision); err != nil {
			s.logger.Debug("discarding malformed short-term entry",
				zap.String("entry_id", entry.ID), zap.Error(err))
			s.discard(ctx, entry.ID, &stats)
			continue
		}
		if strings.TrimSpace(decision.Summary) == "" || !domain.ValidDecisionType(entry.DecisionType) {
			s.discard(ctx, entry.ID, &stats)
			continue
		}

		exists, err := s.episodes.ExistsBySource(ctx, entry.ID)
		if err != nil {
			stats.Failed++
			s.logger.Warn("consolidation idempotence check failed",
				zap.String("entry_id", entry.ID), zap.Error(err))
			continue
		}
		if exists {
			// Stored by a previous run that failed before the buffer
			// delete; just finish the migration.
			if err := s.buffer.Delete(ctx, entry.ID); err != nil {
				s.logger.Warn("failed to delete migrated entry",
					zap.String("entry_id", entry.ID), zap.Error(err))
			}
			stats.Consolidated++
			continue
		}

		_, err = s.episodic.StoreDecision(ctx, StoreDecisionInput{
			DecisionType:  entry.DecisionType,
			Decision:      decision,
			RecordedAt:    entry.RecordedAt,
			SourceEntryID: entry.ID,
		})
		if err != nil {
			stats.Failed++
			s.logger.Warn("failed to consolidate entry",
				zap.String("entry_id", entry.ID), zap.Error(err))
			continue
		}

		if err := s.buffer.Delete(ctx, entry.ID); err != nil {
			s.logger.Warn("episode stored but buffer delete failed, will skip on retry",
				zap.String("entry_id", entry.ID), zap.Error(err))
		}
		stats.Consolidated++
	}

	return stats, nil
}

func (s *ConsolidationService) discard(ctx context.Context, entryID string, stats *ConsolidateStats) {
	if err := s.buffer.Delete(ctx, entryID); err != nil {
		stats.Failed++
		s.logger.Warn("failed to discard entry", zap.String("entry_id", entryID), zap.Error(err))
		return
	}
	stats.Discarded++
}

// entityPair is one co-occurrence of two graph entities inside episodes.
type entityPair struct {
	sourceType domain.ConceptType
	source     string
	relation   domain.RelationType
	targetType domain.ConceptType
	target     string
}

// ExtractSemanticKnowledge distills recurring structure from episodes with
// known outcomes into the semantic graph. Entity pairings that repeat
// across enough episodes become relationship edges whose observed
// confidence is the pairing's success rate; episodes are marked distilled
// so re-runs never recount them, and the EMA edge blend keeps repeated
// extraction convergent rather than inflationary. Episodes still waiting
// on an outcome are excluded from the scan entirely, so they never block
// newer distillable episodes from entering the batch window.
func (s *ConsolidationService) ExtractSemanticKnowledge(ctx context.Context) (ExtractStats, error) {
	stats := ExtractStats{}

	episodes, err := s.episodes.ListDistillable(ctx, extractBatchSize)
	if err != nil {
		return stats, err
	}

	type pairCount struct {
		total     int
		successes int
	}
	counts := make(map[entityPair]*pairCount)
	var analyzed []domain.Episode

	for _, e := range episodes {
		stats.Analyzed++
		analyzed = append(analyzed, e)

		for _, pair := range episodePairs(e) {
			c, ok := counts[pair]
			if !ok {
				c = &pairCount{}
				counts[pair] = c
			}
			c.total++
			if e.Outcome.Success {
				c.successes++
			}
		}
	}

	nodesBefore, edgesBefore := s.semantic.Size()
	for pair, c := range counts {
		if c.total < minCooccurrence {
			continue
		}
		confidence := float64(c.successes) / float64(c.total)
		if _, _, err := s.semantic.Relate(ctx,
			pair.sourceType, pair.source,
			pair.relation,
			pair.targetType, pair.target,
			confidence,
		); err != nil {
			s.logger.Warn("failed to distill relationship",
				zap.String("source", pair.source),
				zap.String("target", pair.target),
				zap.Error(err))
		}
	}
	nodesAfter, edgesAfter := s.semantic.Size()
	stats.Concepts = nodesAfter - nodesBefore
	stats.Relationships = edgesAfter - edgesBefore

	for _, e := range analyzed {
		if err := s.episodes.MarkDistilled(ctx, e.ID); err != nil {
			s.logger.Warn("failed to mark episode distilled",
				zap.String("episode_id", e.ID.String()), zap.Error(err))
		}
	}

	return stats, nil
}

// episodePairs lists the graph-worthy entity pairings an episode attests.
func episodePairs(e domain.Episode) []entityPair {
	d := e.Decision
	var pairs []entityPair
	if d.TalentName != "" && d.ProjectID != "" {
		pairs = append(pairs, entityPair{
			sourceType: domain.ConceptActor, source: d.TalentName,
			relation:   domain.RelationCastIn,
			targetType: domain.ConceptProject, target: d.ProjectID,
		})
	}
	if d.TalentName != "" && d.Genre != "" {
		pairs = append(pairs, entityPair{
			sourceType: domain.ConceptActor, source: d.TalentName,
			relation:   domain.RelationSucceededIn,
			targetType: domain.ConceptGenre, target: d.Genre,
		})
	}
	if d.ProjectID != "" && d.Platform != "" {
		pairs = append(pairs, entityPair{
			sourceType: domain.ConceptProject, source: d.ProjectID,
			relation:   domain.RelationProducedBy,
			targetType: domain.ConceptPlatform, target: d.Platform,
		})
	}
	return pairs
}

// PruneIrrelevantMemories deletes episodes whose retention has decayed
// below the floor, unless their importance is high enough to override.
// The short-term buffer is never touched here: entries that have not been
// consolidated cannot be lost to pruning.
func (s *ConsolidationService) PruneIrrelevantMemories(ctx context.Context) (PruneStats, error) {
	stats := PruneStats{}

	episodes, err := s.episodes.ListAll(ctx)
	if err != nil {
		return stats, err
	}

	now := time.Now()
	for _, e := range episodes {
		stats.Evaluated++

		retention := s.curve.TraceRetention(e.MemoryTrace, now)
		if retention >= s.cfg.DecayFloor {
			continue
		}
		if e.Importance >= s.cfg.ImportanceOverrideFloor {
			continue
		}

		size := approxEpisodeSize(e)
		if err := s.episodes.Delete(ctx, e.ID); err != nil {
			stats.Failed++
			s.logger.Warn("failed to prune episode",
				zap.String("episode_id", e.ID.String()), zap.Error(err))
			continue
		}
		stats.Pruned++
		stats.SpaceFreedBytes += size
	}

	return stats, nil
}

func approxEpisodeSize(e domain.Episode) int64 {
	data, err := json.Marshal(e)
	if err != nil {
		return 0
	}
	return int64(len(data)) + int64(len(e.Embedding)*4)
}

// Load reports the current cognitive load over all episodic traces.
func (s *ConsolidationService) Load(ctx context.Context) (forgetting.LoadStats, error) {
	episodes, err := s.episodes.ListAll(ctx)
	if err != nil {
		return forgetting.LoadStats{}, err
	}
	traces := make([]domain.MemoryTrace, len(episodes))
	for i, e := range episodes {
		traces[i] = e.MemoryTrace
	}
	return s.curve.MemoryLoad(traces, time.Now()), nil
}
