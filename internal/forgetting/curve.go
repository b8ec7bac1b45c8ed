// Package forgetting implements the retention scoring used by episodic
// memory: an Ebbinghaus-style exponential decay whose characteristic time
// stretches with spaced repetition and importance.
package forgetting

import (
	"errors"
	"math"
	"time"
)

var (
	ErrNegativeElapsed       = errors.New("elapsed time must be non-negative")
	ErrStrengthOutOfRange    = errors.New("strength must be in (0, 1]")
	ErrImportanceOutOfRange  = errors.New("importance must be in [0, 1]")
	ErrNegativeRepetitions   = errors.New("repetitions must be non-negative")
	ErrTargetNotBelowCurrent = errors.New("target strength must be below current strength")
)

const (
	// DefaultBaseDecayTime is the e-folding time for a fresh, unreinforced
	// trace of zero importance: retention falls to 1/e after it. With the
	// default importance boost, a trace at importance 0.5 retains >0.99
	// after one hour and ~0.31 after seven days.
	DefaultBaseDecayTime = 72 * time.Hour

	// DefaultSpacingFactor multiplies the decay time per prior review,
	// modeling spaced repetition.
	DefaultSpacingFactor = 1.6

	// DefaultImportanceBoost linearly stretches the decay time with
	// importance: tau *= 1 + boost*importance.
	DefaultImportanceBoost = 2.0

	// DefaultCapacity is the cognitive-load normalization constant: the
	// decayed-strength sum at which load saturates at 1.0.
	DefaultCapacity = 100.0

	// activeRetentionFloor is the retention below which a trace no longer
	// counts as active for load purposes.
	activeRetentionFloor = 0.1
)

// Curve computes retention probabilities. The zero value is not usable;
// construct with New or NewWithParams.
type Curve struct {
	baseDecayTime    time.Duration
	spacingFactor   float64
	importanceBoost float64
	capacity        float64
}

func New() *Curve {
	return &Curve{
		baseDecayTime:    DefaultBaseDecayTime,
		spacingFactor:   DefaultSpacingFactor,
		importanceBoost: DefaultImportanceBoost,
		capacity:        DefaultCapacity,
	}
}

func NewWithParams(baseDecayTime time.Duration, spacingFactor, importanceBoost, capacity float64) *Curve {
	if baseDecayTime <= 0 {
		baseDecayTime = DefaultBaseDecayTime
	}
	if spacingFactor <= 1 {
		spacingFactor = DefaultSpacingFactor
	}
	if importanceBoost < 0 {
		importanceBoost = DefaultImportanceBoost
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Curve{
		baseDecayTime:    baseDecayTime,
		spacingFactor:   spacingFactor,
		importanceBoost: importanceBoost,
		capacity:        capacity,
	}
}

// tau is the characteristic decay time for a trace with the given review
// history and importance. Strictly increasing in both.
func (c *Curve) tau(repetitions int, importance float64) float64 {
	spacing := math.Pow(c.spacingFactor, float64(repetitions))
	boost := 1 + c.importanceBoost*importance
	return c.baseDecayTime.Seconds() * spacing * boost
}

// Retention computes R = S * exp(-elapsed/tau). At elapsed zero it returns
// exactly the initial strength. Strictly decreasing in elapsed, strictly
// increasing in repetitions and importance for elapsed > 0.
func (c *Curve) Retention(elapsed time.Duration, initialStrength float64, repetitions int, importance float64) (float64, error) {
	if elapsed < 0 {
		return 0, ErrNegativeElapsed
	}
	if initialStrength <= 0 || initialStrength > 1 {
		return 0, ErrStrengthOutOfRange
	}
	if repetitions < 0 {
		return 0, ErrNegativeRepetitions
	}
	if importance < 0 || importance > 1 {
		return 0, ErrImportanceOutOfRange
	}
	if elapsed == 0 {
		return initialStrength, nil
	}
	return initialStrength * math.Exp(-elapsed.Seconds()/c.tau(repetitions, importance)), nil
}

// OptimalReviewTime inverts the decay formula: the elapsed time at which a
// trace at currentStrength will have decayed to targetStrength. Returns
// ErrTargetNotBelowCurrent when the target is not strictly below the
// current strength, since decay alone can never raise retention.
func (c *Curve) OptimalReviewTime(currentStrength, targetStrength float64, repetitions int, importance float64) (time.Duration, error) {
	if currentStrength <= 0 || currentStrength > 1 {
		return 0, ErrStrengthOutOfRange
	}
	if targetStrength <= 0 {
		return 0, ErrStrengthOutOfRange
	}
	if repetitions < 0 {
		return 0, ErrNegativeRepetitions
	}
	if importance < 0 || importance > 1 {
		return 0, ErrImportanceOutOfRange
	}
	if targetStrength >= currentStrength {
		return 0, ErrTargetNotBelowCurrent
	}
	seconds := c.tau(repetitions, importance) * math.Log(currentStrength/targetStrength)
	return time.Duration(seconds * float64(time.Second)), nil
}

// ReviewSchedule returns the next review intervals for a trace, one per
// upcoming repetition: each interval is the time for retention to fall
// from full strength to the review target, so intervals widen as the
// trace is reinforced.
func (c *Curve) ReviewSchedule(repetitions int, importance float64, reviews int) []time.Duration {
	const reviewTarget = 0.7

	if reviews <= 0 || repetitions < 0 || importance < 0 || importance > 1 {
		return nil
	}
	schedule := make([]time.Duration, 0, reviews)
	for i := 0; i < reviews; i++ {
		interval, err := c.OptimalReviewTime(1.0, reviewTarget, repetitions+i, importance)
		if err != nil {
			return schedule
		}
		schedule = append(schedule, interval)
	}
	return schedule
}
