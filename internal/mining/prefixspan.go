package mining

import "sort"

// projection points into one sequence's suffix after the current prefix's
// first occurrence.
type projection struct {
	seq int
	pos int
}

// PrefixSpan mines every frequent sub-sequence (not only maximal ones) at
// or above minSupport by recursive projected-database growth. Support
// never increases as a pattern lengthens, so pruning a prefix below
// minSupport is safe and complete; recursion terminates when no
// single-symbol extension stays frequent.
func PrefixSpan(sequences [][]string, minSupport float64) ([]Pattern, error) {
	if err := validateSupport(minSupport); err != nil {
		return nil, err
	}
	n := len(sequences)
	if n == 0 {
		return nil, nil
	}
	threshold := minCount(n, minSupport)

	var out []Pattern

	var grow func(prefix []string, db []projection)
	grow = func(prefix []string, db []projection) {
		// Count each candidate extension once per projected sequence.
		counts := make(map[string]int)
		for _, p := range db {
			seen := make(map[string]bool)
			suffix := sequences[p.seq][p.pos:]
			for _, sym := range suffix {
				if !seen[sym] {
					seen[sym] = true
					counts[sym]++
				}
			}
		}

		frequent := make([]string, 0, len(counts))
		for sym, c := range counts {
			if c >= threshold {
				frequent = append(frequent, sym)
			}
		}
		sort.Strings(frequent)

		for _, sym := range frequent {
			extended := make([]string, len(prefix)+1)
			copy(extended, prefix)
			extended[len(prefix)] = sym

			out = append(out, Pattern{
				Items:   extended,
				Count:   counts[sym],
				Support: float64(counts[sym]) / float64(n),
			})

			// Project each sequence past the first occurrence of sym.
			next := make([]projection, 0, counts[sym])
			for _, p := range db {
				s := sequences[p.seq]
				for i := p.pos; i < len(s); i++ {
					if s[i] == sym {
						next = append(next, projection{seq: p.seq, pos: i + 1})
						break
					}
				}
			}
			grow(extended, next)
		}
	}

	initial := make([]projection, n)
	for i := range sequences {
		initial[i] = projection{seq: i, pos: 0}
	}
	grow(nil, initial)

	sortPatterns(out)
	return out, nil
}
