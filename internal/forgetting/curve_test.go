package forgetting

import (
	"math"
	"testing"
	"time"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetention_ZeroElapsedReturnsInitialStrength(t *testing.T) {
	c := New()

	for _, importance := range []float64{0, 0.25, 0.5, 0.75, 1} {
		for _, strength := range []float64{0.1, 0.5, 1.0} {
			r, err := c.Retention(0, strength, 0, importance)
			require.NoError(t, err)
			assert.Equal(t, strength, r)
		}
	}
}

func TestRetention_BaseDecayTimeIsEFoldingTime(t *testing.T) {
	c := New()

	// At zero repetitions and zero importance, tau is exactly the base
	// decay time, so retention there is 1/e, not one half.
	r, err := c.Retention(DefaultBaseDecayTime, 1.0, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1/math.E, r, 1e-9)
}

func TestRetention_StrictlyDecreasingInElapsed(t *testing.T) {
	c := New()

	elapsed := []time.Duration{
		time.Minute, time.Hour, 6 * time.Hour, 24 * time.Hour,
		3 * 24 * time.Hour, 7 * 24 * time.Hour, 30 * 24 * time.Hour,
	}

	prev := 1.1
	for _, e := range elapsed {
		r, err := c.Retention(e, 1.0, 0, 0.5)
		require.NoError(t, err)
		assert.Less(t, r, prev, "retention at %v must be below retention at shorter elapsed", e)
		prev = r
	}
}

func TestRetention_IncreasingInRepetitionsAndImportance(t *testing.T) {
	c := New()
	elapsed := 48 * time.Hour

	prev := -1.0
	for reps := 0; reps < 6; reps++ {
		r, err := c.Retention(elapsed, 1.0, reps, 0.5)
		require.NoError(t, err)
		assert.Greater(t, r, prev)
		prev = r
	}

	prev = -1.0
	for _, imp := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0} {
		r, err := c.Retention(elapsed, 1.0, 0, imp)
		require.NoError(t, err)
		assert.Greater(t, r, prev)
		prev = r
	}
}

func TestRetention_SevenDaysVsOneHour(t *testing.T) {
	c := New()

	oneHour, err := c.Retention(time.Hour, 1.0, 0, 0.5)
	require.NoError(t, err)
	sevenDays, err := c.Retention(7*24*time.Hour, 1.0, 0, 0.5)
	require.NoError(t, err)

	assert.Greater(t, oneHour, 0.8, "an hour-old memory should still be strongly retained")
	assert.Less(t, sevenDays, oneHour)
	assert.Less(t, sevenDays, 0.5, "a week-old unreinforced memory should have decayed materially")
}

func TestRetention_InvalidInput(t *testing.T) {
	c := New()

	tests := []struct {
		name       string
		elapsed    time.Duration
		strength   float64
		reps       int
		importance float64
		wantErr    error
	}{
		{"negative elapsed", -time.Second, 1.0, 0, 0.5, ErrNegativeElapsed},
		{"zero strength", time.Hour, 0, 0, 0.5, ErrStrengthOutOfRange},
		{"strength above one", time.Hour, 1.5, 0, 0.5, ErrStrengthOutOfRange},
		{"negative repetitions", time.Hour, 1.0, -1, 0.5, ErrNegativeRepetitions},
		{"importance below zero", time.Hour, 1.0, 0, -0.1, ErrImportanceOutOfRange},
		{"importance above one", time.Hour, 1.0, 0, 1.1, ErrImportanceOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Retention(tt.elapsed, tt.strength, tt.reps, tt.importance)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOptimalReviewTime_InvertsDecay(t *testing.T) {
	c := New()

	interval, err := c.OptimalReviewTime(1.0, 0.7, 0, 0.5)
	require.NoError(t, err)
	require.Greater(t, interval, time.Duration(0))

	// Retention after exactly that interval should land on the target.
	r, err := c.Retention(interval, 1.0, 0, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, r, 0.001)
}

func TestOptimalReviewTime_TargetAtOrAboveCurrent(t *testing.T) {
	c := New()

	_, err := c.OptimalReviewTime(0.6, 0.6, 0, 0.5)
	assert.ErrorIs(t, err, ErrTargetNotBelowCurrent)

	_, err = c.OptimalReviewTime(0.6, 0.9, 0, 0.5)
	assert.ErrorIs(t, err, ErrTargetNotBelowCurrent)
}

func TestReviewSchedule_IntervalsWiden(t *testing.T) {
	c := New()

	schedule := c.ReviewSchedule(0, 0.5, 5)
	require.Len(t, schedule, 5)

	for i := 1; i < len(schedule); i++ {
		assert.Greater(t, schedule[i], schedule[i-1],
			"spaced repetition intervals must widen with each review")
	}
}

func TestMemoryLoad(t *testing.T) {
	c := New()
	now := time.Now()

	fresh := func() domain.MemoryTrace {
		return domain.MemoryTrace{
			ID:              uuid.New(),
			InitialStrength: 1.0,
			Importance:      0.5,
			CreatedAt:       now,
			LastAccessedAt:  now,
		}
	}
	stale := func() domain.MemoryTrace {
		old := now.Add(-90 * 24 * time.Hour)
		return domain.MemoryTrace{
			ID:              uuid.New(),
			InitialStrength: 1.0,
			Importance:      0,
			CreatedAt:       old,
			LastAccessedAt:  old,
		}
	}

	t.Run("empty set has zero load", func(t *testing.T) {
		stats := c.MemoryLoad(nil, now)
		assert.Zero(t, stats.ActiveCount)
		assert.Zero(t, stats.CognitiveLoad)
	})

	t.Run("stale traces do not count as active", func(t *testing.T) {
		stats := c.MemoryLoad([]domain.MemoryTrace{fresh(), fresh(), stale()}, now)
		assert.Equal(t, 2, stats.ActiveCount)
		assert.Greater(t, stats.CognitiveLoad, 0.0)
	})

	t.Run("load is clamped to one", func(t *testing.T) {
		traces := make([]domain.MemoryTrace, 500)
		for i := range traces {
			traces[i] = fresh()
		}
		stats := c.MemoryLoad(traces, now)
		assert.Equal(t, 1.0, stats.CognitiveLoad)
		assert.Equal(t, 500, stats.ActiveCount)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		retention float64
		want      TraceClass
	}{
		{1.0, ClassActive},
		{0.6, ClassActive},
		{0.59, ClassFading},
		{0.1, ClassFading},
		{0.09, ClassDormant},
		{0.0, ClassDormant},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.retention), "retention %v", tt.retention)
	}
}
