package forgetting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestProperty_Retention_DecayMonotonicity(t *testing.T) {
	c := New()

	rapid.Check(t, func(rt *rapid.T) {
		strength := rapid.Float64Range(0.01, 1.0).Draw(rt, "strength")
		importance := rapid.Float64Range(0, 1).Draw(rt, "importance")
		reps := rapid.IntRange(0, 20).Draw(rt, "reps")

		t1 := time.Duration(rapid.Int64Range(0, int64(90*24*time.Hour)).Draw(rt, "t1"))
		gap := time.Duration(rapid.Int64Range(int64(time.Second), int64(30*24*time.Hour)).Draw(rt, "gap"))
		t2 := t1 + gap

		r1, err := c.Retention(t1, strength, reps, importance)
		require.NoError(rt, err)
		r2, err := c.Retention(t2, strength, reps, importance)
		require.NoError(rt, err)

		require.Greater(rt, r1, r2, "retention must strictly decrease with elapsed time")
	})
}

func TestProperty_Retention_ReinforcementMonotonicity(t *testing.T) {
	c := New()

	rapid.Check(t, func(rt *rapid.T) {
		strength := rapid.Float64Range(0.01, 1.0).Draw(rt, "strength")
		elapsed := time.Duration(rapid.Int64Range(int64(time.Second), int64(90*24*time.Hour)).Draw(rt, "elapsed"))
		reps := rapid.IntRange(0, 20).Draw(rt, "reps")
		imp := rapid.Float64Range(0, 0.99).Draw(rt, "imp")

		base, err := c.Retention(elapsed, strength, reps, imp)
		require.NoError(rt, err)

		moreReps, err := c.Retention(elapsed, strength, reps+1, imp)
		require.NoError(rt, err)
		require.Greater(rt, moreReps, base, "extra repetition must raise retention")

		moreImportant, err := c.Retention(elapsed, strength, reps, imp+0.01)
		require.NoError(rt, err)
		require.Greater(rt, moreImportant, base, "higher importance must raise retention")
	})
}

func TestProperty_OptimalReviewTime_RoundTrips(t *testing.T) {
	c := New()

	rapid.Check(t, func(rt *rapid.T) {
		current := rapid.Float64Range(0.2, 1.0).Draw(rt, "current")
		target := rapid.Float64Range(0.01, current*0.95).Draw(rt, "target")
		reps := rapid.IntRange(0, 10).Draw(rt, "reps")
		imp := rapid.Float64Range(0, 1).Draw(rt, "imp")

		interval, err := c.OptimalReviewTime(current, target, reps, imp)
		require.NoError(rt, err)
		require.Greater(rt, interval, time.Duration(0))

		r, err := c.Retention(interval, current, reps, imp)
		require.NoError(rt, err)
		require.InDelta(rt, target, r, 0.01)
	})
}
