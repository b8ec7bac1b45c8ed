// Package mining implements sequential pattern mining over workflow action
// sequences: a PrefixSpan-style projected-database miner, a GSP-style
// candidate-generate-and-test miner producing the identical pattern set,
// and a parallelism-aware variant that relaxes ordering between actions
// whose timestamps fall within a configurable window.
package mining

import (
	"errors"
	"math"
	"sort"
	"time"
)

var ErrInvalidSupport = errors.New("min support must be in (0, 1]")

// Pattern is a frequent action sub-sequence. Support is the fraction of
// input sequences containing it, order-preserving but not necessarily
// contiguous, counted once per sequence.
type Pattern struct {
	Items   []string `json:"items"`
	Support float64  `json:"support"`
	Count   int      `json:"count"`
}

// TimedEvent is one action occurrence with its timestamp, used by the
// parallelism-aware miner.
type TimedEvent struct {
	Symbol string    `json:"symbol"`
	At     time.Time `json:"at"`
}

// minCount converts a fractional support threshold into an absolute
// sequence count, rounding up so that support >= minSupport holds exactly.
func minCount(n int, minSupport float64) int {
	c := int(math.Ceil(minSupport*float64(n) - 1e-9))
	if c < 1 {
		c = 1
	}
	return c
}

func validateSupport(minSupport float64) error {
	if minSupport <= 0 || minSupport > 1 {
		return ErrInvalidSupport
	}
	return nil
}

// containsSubsequence reports whether seq contains pattern as an
// order-preserving, not necessarily contiguous, sub-sequence.
func containsSubsequence(seq, pattern []string) bool {
	i := 0
	for _, s := range seq {
		if i < len(pattern) && s == pattern[i] {
			i++
		}
	}
	return i == len(pattern)
}

// sortPatterns orders patterns deterministically: shortest first, then
// lexicographically by items.
func sortPatterns(patterns []Pattern) {
	sort.Slice(patterns, func(i, j int) bool {
		a, b := patterns[i].Items, patterns[j].Items
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
}
