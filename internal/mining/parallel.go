package mining

import (
	"sort"
	"time"
)

// MineParallel mines frequent patterns over timestamped sessions with
// relaxed ordering: two actions whose timestamps fall within window are
// considered parallel, and ordering between them is not enforced when
// matching. This is a different matching semantics from the strict-order
// miners, not an optimization of them, so the pattern sets can genuinely
// differ.
func MineParallel(sessions [][]TimedEvent, minSupport float64, window time.Duration) ([]Pattern, error) {
	if err := validateSupport(minSupport); err != nil {
		return nil, err
	}
	if window < 0 {
		window = 0
	}
	n := len(sessions)
	if n == 0 {
		return nil, nil
	}
	threshold := minCount(n, minSupport)

	// Time-sort each session once; matching explores out-of-order picks
	// only within the window.
	sorted := make([][]TimedEvent, n)
	for i, sess := range sessions {
		cp := make([]TimedEvent, len(sess))
		copy(cp, sess)
		sort.Slice(cp, func(a, b int) bool { return cp[a].At.Before(cp[b].At) })
		sorted[i] = cp
	}

	var out []Pattern

	// Level 1: frequent symbols.
	counts := make(map[string]int)
	for _, sess := range sorted {
		seen := make(map[string]bool)
		for _, e := range sess {
			if !seen[e.Symbol] {
				seen[e.Symbol] = true
				counts[e.Symbol]++
			}
		}
	}
	var level [][]string
	for sym, c := range counts {
		if c >= threshold {
			level = append(level, []string{sym})
			out = append(out, Pattern{
				Items:   []string{sym},
				Count:   c,
				Support: float64(c) / float64(n),
			})
		}
	}
	sortItemSlices(level)

	for len(level) > 0 {
		candidates := joinLevel(level)

		var next [][]string
		for _, cand := range candidates {
			c := 0
			for _, sess := range sorted {
				if matchesWindowed(sess, cand, window) {
					c++
				}
			}
			if c >= threshold {
				next = append(next, cand)
				out = append(out, Pattern{
					Items:   cand,
					Count:   c,
					Support: float64(c) / float64(n),
				})
			}
		}
		sortItemSlices(next)
		level = next
	}

	sortPatterns(out)
	return out, nil
}

// ContainsWindowed reports whether the session matches the pattern under
// the relaxed window-ordering semantics used by MineParallel.
func ContainsWindowed(session []TimedEvent, pattern []string, window time.Duration) bool {
	if window < 0 {
		window = 0
	}
	cp := make([]TimedEvent, len(session))
	copy(cp, session)
	sort.Slice(cp, func(a, b int) bool { return cp[a].At.Before(cp[b].At) })
	return matchesWindowed(cp, pattern, window)
}

// matchesWindowed reports whether pattern can be assigned to distinct
// events such that each consecutive pair is either in timestamp order or
// reversed by no more than window.
func matchesWindowed(events []TimedEvent, pattern []string, window time.Duration) bool {
	used := make([]bool, len(events))

	var dfs func(pi int, lastAt time.Time, started bool) bool
	dfs = func(pi int, lastAt time.Time, started bool) bool {
		if pi == len(pattern) {
			return true
		}
		for i := range events {
			if used[i] || events[i].Symbol != pattern[pi] {
				continue
			}
			if started && events[i].At.Before(lastAt.Add(-window)) {
				continue
			}
			used[i] = true
			if dfs(pi+1, events[i].At, true) {
				return true
			}
			used[i] = false
		}
		return false
	}

	return dfs(0, time.Time{}, false)
}
