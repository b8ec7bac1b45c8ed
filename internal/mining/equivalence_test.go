package mining

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// PrefixSpan and GSP solve the identical well-defined problem, so their
// (pattern, support) output must agree on any input.
func TestProperty_PrefixSpanEqualsGSP(t *testing.T) {
	symbols := []string{"a", "b", "c", "d", "e"}

	rapid.Check(t, func(rt *rapid.T) {
		numSeqs := rapid.IntRange(1, 8).Draw(rt, "numSeqs")
		sequences := make([][]string, numSeqs)
		for i := range sequences {
			length := rapid.IntRange(0, 7).Draw(rt, "length")
			seq := make([]string, length)
			for j := range seq {
				seq[j] = rapid.SampledFrom(symbols).Draw(rt, "symbol")
			}
			sequences[i] = seq
		}
		minSupport := rapid.Float64Range(0.1, 1.0).Draw(rt, "minSupport")

		ps, err := PrefixSpan(sequences, minSupport)
		require.NoError(rt, err)
		gsp, err := GSP(sequences, minSupport)
		require.NoError(rt, err)

		require.Equal(rt, ps, gsp)
	})
}

// Extending a pattern by one symbol can never raise its support.
func TestProperty_SupportAntiMonotonicity(t *testing.T) {
	symbols := []string{"a", "b", "c", "d"}

	rapid.Check(t, func(rt *rapid.T) {
		numSeqs := rapid.IntRange(1, 8).Draw(rt, "numSeqs")
		sequences := make([][]string, numSeqs)
		for i := range sequences {
			length := rapid.IntRange(0, 6).Draw(rt, "length")
			seq := make([]string, length)
			for j := range seq {
				seq[j] = rapid.SampledFrom(symbols).Draw(rt, "symbol")
			}
			sequences[i] = seq
		}

		patterns, err := PrefixSpan(sequences, 0.1)
		require.NoError(rt, err)

		supports := make(map[string]float64, len(patterns))
		for _, p := range patterns {
			supports[joinKey(p.Items)] = p.Support
		}
		for _, p := range patterns {
			if len(p.Items) < 2 {
				continue
			}
			parent, ok := supports[joinKey(p.Items[:len(p.Items)-1])]
			require.True(rt, ok)
			require.LessOrEqual(rt, p.Support, parent)
		}
	})
}
