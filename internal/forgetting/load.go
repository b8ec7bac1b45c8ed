package forgetting

import (
	"time"

	"github.com/castellan-ai/castellan/internal/domain"
)

// LoadStats aggregates decayed strength across a set of traces into a
// pressure signal for the pruning policy.
type LoadStats struct {
	ActiveCount   int     `json:"active_count"`
	CognitiveLoad float64 `json:"cognitive_load"` // 0 to 1
}

// TraceClass buckets a retention value into a memory tier.
type TraceClass string

const (
	ClassActive  TraceClass = "active"  // readily recalled
	ClassFading  TraceClass = "fading"  // recallable with effort
	ClassDormant TraceClass = "dormant" // candidate for pruning review
)

// Classify maps a retention value onto a tier.
func Classify(retention float64) TraceClass {
	switch {
	case retention >= 0.6:
		return ClassActive
	case retention >= activeRetentionFloor:
		return ClassFading
	default:
		return ClassDormant
	}
}

// TraceRetention computes the current retention of a trace, anchored at
// its last access and using its access count as the repetition history.
func (c *Curve) TraceRetention(t domain.MemoryTrace, now time.Time) float64 {
	strength := t.InitialStrength
	if strength <= 0 || strength > 1 {
		strength = 1.0
	}
	importance := clamp01(t.Importance)

	elapsed := t.SinceAccess(now)
	if elapsed < 0 {
		elapsed = 0
	}

	r, err := c.Retention(elapsed, strength, t.AccessCount, importance)
	if err != nil {
		return 0
	}
	return r
}

// MemoryLoad sums decayed strength over all traces and normalizes by the
// capacity constant. A load near 1.0 signals that aggressive pruning is
// warranted.
func (c *Curve) MemoryLoad(traces []domain.MemoryTrace, now time.Time) LoadStats {
	stats := LoadStats{}
	var sum float64
	for _, t := range traces {
		r := c.TraceRetention(t, now)
		if r >= activeRetentionFloor {
			stats.ActiveCount++
		}
		sum += r
	}
	stats.CognitiveLoad = clamp01(sum / c.capacity)
	return stats
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
