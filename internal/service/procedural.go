package service

import (
	"container/heap"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/castellan-ai/castellan/internal/mining"
	"go.uber.org/zap"
)

var (
	ErrActionsEmpty    = errors.New("at least one action is required")
	ErrActionTypeEmpty = errors.New("action type is required")
	ErrStateMissing    = errors.New("current and goal states are required")
)

const (
	// sequenceScanLimit bounds how many recorded sequences pattern mining
	// and path optimization load per call.
	sequenceScanLimit = 500

	// successRateEpsilon keeps transition costs finite for actions that
	// have never succeeded.
	successRateEpsilon = 0.1
)

// ProceduralService learns workflow knowledge from immutable action
// sequence records: frequent patterns, optimized paths between states, and
// next-action predictions.
type ProceduralService struct {
	sequences  domain.SequenceStore
	minSupport float64
	window     time.Duration
	logger     *zap.Logger
}

func NewProceduralService(ss domain.SequenceStore, minSupport float64, window time.Duration, logger *zap.Logger) *ProceduralService {
	if minSupport <= 0 || minSupport > 1 {
		minSupport = 0.3
	}
	return &ProceduralService{
		sequences:  ss,
		minSupport: minSupport,
		window:     window,
		logger:     logger,
	}
}

// RecordActionSequence persists one workflow run. Sequences are append-only:
// aggregate statistics are always recomputed from the raw records.
func (s *ProceduralService) RecordActionSequence(ctx context.Context, userID string, actions []domain.Action) (*domain.WorkflowSequence, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserIDMissing
	}
	if len(actions) == 0 {
		return nil, ErrActionsEmpty
	}

	success := true
	var total time.Duration
	for _, a := range actions {
		if strings.TrimSpace(a.Type) == "" {
			return nil, ErrActionTypeEmpty
		}
		total += a.Duration
		if !a.Success {
			success = false
		}
	}

	seq := &domain.WorkflowSequence{
		UserID:    userID,
		Actions:   actions,
		Success:   success,
		TotalTime: total,
	}
	if err := s.sequences.Create(ctx, seq); err != nil {
		return nil, err
	}
	return seq, nil
}

// DetectWorkflowPatterns mines frequent action sub-sequences from the
// user's recorded runs and attaches success and duration statistics
// computed over only the sequences containing each pattern. An empty
// userID mines across all users.
func (s *ProceduralService) DetectWorkflowPatterns(ctx context.Context, userID string) ([]domain.WorkflowPattern, error) {
	sequences, err := s.listSequences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(sequences) == 0 {
		return nil, nil
	}

	symbolSeqs := make([][]string, len(sequences))
	for i, seq := range sequences {
		symbolSeqs[i] = seq.ActionTypes()
	}

	mined, err := mining.PrefixSpan(symbolSeqs, s.minSupport)
	if err != nil {
		return nil, err
	}

	patterns := make([]domain.WorkflowPattern, 0, len(mined))
	for _, p := range mined {
		var successes int
		var totalDuration time.Duration
		var containing int
		for i, seq := range sequences {
			if !containsOrdered(symbolSeqs[i], p.Items) {
				continue
			}
			containing++
			totalDuration += seq.TotalTime
			if seq.Success {
				successes++
			}
		}
		wp := domain.WorkflowPattern{
			Actions:   p.Items,
			Support:   p.Support,
			Frequency: containing,
		}
		if containing > 0 {
			wp.SuccessRate = float64(successes) / float64(containing)
			wp.AvgDuration = totalDuration / time.Duration(containing)
		}
		patterns = append(patterns, wp)
	}
	return patterns, nil
}

// DetectConcurrentPatterns mines patterns with relaxed ordering: actions
// whose timestamps fall within the configured window count as parallel,
// so interleaved steps of concurrent casting workflows still align. An
// empty userID mines across all users.
func (s *ProceduralService) DetectConcurrentPatterns(ctx context.Context, userID string) ([]domain.WorkflowPattern, error) {
	sequences, err := s.listSequences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(sequences) == 0 {
		return nil, nil
	}

	sessions := make([][]mining.TimedEvent, len(sequences))
	for i, seq := range sequences {
		events := make([]mining.TimedEvent, len(seq.Actions))
		for j, a := range seq.Actions {
			events[j] = mining.TimedEvent{Symbol: a.Type, At: a.At}
		}
		sessions[i] = events
	}

	mined, err := mining.MineParallel(sessions, s.minSupport, s.window)
	if err != nil {
		return nil, err
	}

	patterns := make([]domain.WorkflowPattern, 0, len(mined))
	for _, p := range mined {
		var successes int
		var totalDuration time.Duration
		var containing int
		for i, seq := range sequences {
			if !mining.ContainsWindowed(sessions[i], p.Items, s.window) {
				continue
			}
			containing++
			totalDuration += seq.TotalTime
			if seq.Success {
				successes++
			}
		}
		wp := domain.WorkflowPattern{
			Actions:   p.Items,
			Support:   p.Support,
			Frequency: containing,
		}
		if containing > 0 {
			wp.SuccessRate = float64(successes) / float64(containing)
			wp.AvgDuration = totalDuration / time.Duration(containing)
		}
		patterns = append(patterns, wp)
	}
	return patterns, nil
}

// OptimizeWorkflowPath finds the cheapest observed action path from
// currentState to goalState. Edge cost favors fast, reliable transitions:
// average duration divided by the transition's success rate. Returns an
// empty path when the goal was never reached from the current state.
func (s *ProceduralService) OptimizeWorkflowPath(ctx context.Context, userID, currentState, goalState string) ([]string, error) {
	if strings.TrimSpace(currentState) == "" || strings.TrimSpace(goalState) == "" {
		return nil, ErrStateMissing
	}
	if currentState == goalState {
		return []string{}, nil
	}

	sequences, err := s.listSequences(ctx, userID)
	if err != nil {
		return nil, err
	}

	graph := buildTransitionGraph(sequences)
	return cheapestPath(graph, currentState, goalState), nil
}

// PredictNextAction suggests the most likely next action from the current
// state, with a confidence proportional to how dominant that transition is
// among observed outgoing transitions. Unknown states yield no prediction.
func (s *ProceduralService) PredictNextAction(ctx context.Context, userID, currentState string) (string, float64, error) {
	if strings.TrimSpace(currentState) == "" {
		return "", 0, ErrStateMissing
	}

	sequences, err := s.listSequences(ctx, userID)
	if err != nil {
		return "", 0, err
	}

	graph := buildTransitionGraph(sequences)
	outgoing := graph[currentState]
	if len(outgoing) == 0 {
		return "", 0, nil
	}

	var total float64
	best := outgoing[0]
	bestWeight := -1.0
	for _, t := range outgoing {
		weight := float64(t.count) * t.successRate()
		total += weight
		if weight > bestWeight || (weight == bestWeight && t.action < best.action) {
			best = t
			bestWeight = weight
		}
	}
	if total <= 0 {
		return "", 0, nil
	}
	return best.action, bestWeight / total, nil
}

func (s *ProceduralService) listSequences(ctx context.Context, userID string) ([]domain.WorkflowSequence, error) {
	if strings.TrimSpace(userID) == "" {
		return s.sequences.List(ctx, sequenceScanLimit)
	}
	return s.sequences.ListByUser(ctx, userID, sequenceScanLimit)
}

// containsOrdered reports whether pattern occurs as an in-order
// subsequence of seq.
func containsOrdered(seq, pattern []string) bool {
	i := 0
	for _, sym := range seq {
		if i < len(pattern) && sym == pattern[i] {
			i++
		}
	}
	return i == len(pattern)
}

// transition aggregates every observed occurrence of taking one action
// from one state to another.
type transition struct {
	action        string
	toState       string
	count         int
	successCount  int
	totalDuration time.Duration
}

func (t transition) successRate() float64 {
	if t.count == 0 {
		return 0
	}
	return float64(t.successCount) / float64(t.count)
}

func (t transition) cost() float64 {
	avgSeconds := t.totalDuration.Seconds() / float64(t.count)
	if avgSeconds <= 0 {
		avgSeconds = 1
	}
	return avgSeconds / (successRateEpsilon + t.successRate())
}

func buildTransitionGraph(sequences []domain.WorkflowSequence) map[string][]transition {
	type key struct {
		from, action, to string
	}
	agg := make(map[key]*transition)
	for _, seq := range sequences {
		for _, a := range seq.Actions {
			if a.StateBefore == "" || a.StateAfter == "" {
				continue
			}
			k := key{from: a.StateBefore, action: a.Type, to: a.StateAfter}
			t, ok := agg[k]
			if !ok {
				t = &transition{action: a.Type, toState: a.StateAfter}
				agg[k] = t
			}
			t.count++
			t.totalDuration += a.Duration
			if a.Success {
				t.successCount++
			}
		}
	}

	graph := make(map[string][]transition)
	for k, t := range agg {
		graph[k.from] = append(graph[k.from], *t)
	}
	return graph
}

type pathNode struct {
	state string
	cost  float64
	index int
}

type pathQueue []*pathNode

func (q pathQueue) Len() int            { return len(q) }
func (q pathQueue) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q pathQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *pathQueue) Push(x any)         { n := x.(*pathNode); n.index = len(*q); *q = append(*q, n) }
func (q *pathQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// cheapestPath runs uniform-cost search over the transition graph and
// returns the action types along the cheapest path, or nil when the goal
// is unreachable.
func cheapestPath(graph map[string][]transition, start, goal string) []string {
	dist := map[string]float64{start: 0}
	prevAction := make(map[string]string)
	prevState := make(map[string]string)
	done := make(map[string]bool)

	pq := &pathQueue{{state: start, cost: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		node := heap.Pop(pq).(*pathNode)
		if done[node.state] {
			continue
		}
		done[node.state] = true
		if node.state == goal {
			break
		}

		for _, t := range graph[node.state] {
			next := node.cost + t.cost()
			if d, seen := dist[t.toState]; !seen || next < d {
				dist[t.toState] = next
				prevAction[t.toState] = t.action
				prevState[t.toState] = node.state
				heap.Push(pq, &pathNode{state: t.toState, cost: next})
			}
		}
	}

	if !done[goal] {
		return nil
	}

	var actions []string
	for state := goal; state != start; state = prevState[state] {
		actions = append(actions, prevAction[state])
	}
	for i, j := 0, len(actions)-1; i < j; i, j = i+1, j-1 {
		actions[i], actions[j] = actions[j], actions[i]
	}
	return actions
}
