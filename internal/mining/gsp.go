package mining

import "sort"

// GSP mines the same frequent sub-sequences as PrefixSpan via level-wise
// candidate generation: length-k candidates are joined from length-(k-1)
// survivors whose overlapping parts agree, then counted by a containment
// scan. Kept as an independent implementation so the two miners can
// cross-check each other.
func GSP(sequences [][]string, minSupport float64) ([]Pattern, error) {
	if err := validateSupport(minSupport); err != nil {
		return nil, err
	}
	n := len(sequences)
	if n == 0 {
		return nil, nil
	}
	threshold := minCount(n, minSupport)

	var out []Pattern

	// Level 1: frequent symbols.
	counts := make(map[string]int)
	for _, seq := range sequences {
		seen := make(map[string]bool)
		for _, sym := range seq {
			if !seen[sym] {
				seen[sym] = true
				counts[sym]++
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
			for _, seq := range sequences {
				if containsSubsequence(seq, cand) {
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

// joinLevel produces length-(k+1) candidates from length-k survivors:
// p1 joins p2 when dropping p1's first item equals dropping p2's last.
// Every frequent (k+1)-sequence has both its k-prefix and k-suffix
// frequent, so the join generates a complete candidate set.
func joinLevel(level [][]string) [][]string {
	seen := make(map[string]bool)
	var candidates [][]string

	for _, p1 := range level {
		for _, p2 := range level {
			if !equalItems(p1[1:], p2[:len(p2)-1]) {
				continue
			}
			cand := make([]string, len(p1)+1)
			copy(cand, p1)
			cand[len(p1)] = p2[len(p2)-1]

			key := joinKey(cand)
			if !seen[key] {
				seen[key] = true
				candidates = append(candidates, cand)
			}
		}
	}
	return candidates
}

func equalItems(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinKey(items []string) string {
	key := ""
	for _, it := range items {
		key += it + "\x00"
	}
	return key
}

func sortItemSlices(items [][]string) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
}
