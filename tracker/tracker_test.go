package tracker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussianField(az, el float64) float64 {
	return math.Exp(-(az*az + el*el) / (2 * 0.05 * 0.05))
}

func newTestTracker(t testing.TB, az0, el0 float64) *BeamTracker {
	t.Helper()
	tr, err := New(az0, el0, -0.3, 0.3, -0.3, 0.3, 61, 61, Config{
		StepInit:               0.01,
		StepMin:                1e-5,
		StepMax:                0.02,
		Gamma:                  1.1,
		Beta:                   0.5,
		Epsilon:                1e-4,
		ConvergenceThreshold:   10,
		MisalignmentThreshold:  0.2,
		KP:                     0.5,
		KI:                     0.01,
		KD:                     0.05,
		ILimit:                 1.0,
		UpdateRateHz:           100,
	})
	require.NoError(t, err)
	return tr
}

// TestScenarioS7 — beam tracker convergence on a Gaussian test field.
func TestScenarioS7(t *testing.T) {
	tr := newTestTracker(t, 0.05, 0.03)

	err := tr.Scan(0.2, 0.2, 0.01, gaussianField)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		az, el := tr.Position()
		tr.Update(gaussianField(az, el))
	}

	az, el := tr.Position()
	assert.Less(t, math.Hypot(az, el), 0.01)
	assert.True(t, tr.IsConverged())
}

// TestInvariantConvergesFromVariousStarts checks spec.md §8 invariant 8
// from multiple starting points within the map.
func TestInvariantConvergesFromVariousStarts(t *testing.T) {
	starts := [][2]float64{{0.1, -0.1}, {-0.15, 0.05}, {0.02, 0.2}}
	for _, start := range starts {
		tr := newTestTracker(t, start[0], start[1])
		require.NoError(t, tr.Scan(0.25, 0.25, 0.015, gaussianField))
		for i := 0; i < 200 && !tr.IsConverged(); i++ {
			az, el := tr.Position()
			tr.Update(gaussianField(az, el))
		}
		az, el := tr.Position()
		assert.Less(t, math.Hypot(az, el), 0.02, "start=%v", start)
		assert.True(t, tr.IsConverged(), "start=%v", start)
	}
}

// TestInvariantMisalignmentStateMachine checks spec.md §8 invariant 9:
// only threshold-crossing transitions occur.
func TestInvariantMisalignmentStateMachine(t *testing.T) {
	tr := newTestTracker(t, 0, 0)
	assert.False(t, tr.IsMisaligned())

	tr.CheckMisalignment(0.1)
	assert.True(t, tr.IsMisaligned())

	tr.CheckMisalignment(0.05) // still below threshold, no re-transition
	assert.True(t, tr.IsMisaligned())

	tr.CheckMisalignment(0.9)
	assert.False(t, tr.IsMisaligned())

	tr.CheckMisalignment(0.5) // still above threshold, no re-transition
	assert.False(t, tr.IsMisaligned())
}

// TestInvariantSignalMapRoundTrip checks spec.md §8 invariant 10.
func TestInvariantSignalMapRoundTrip(t *testing.T) {
	sm, err := NewSignalMap(-1, 1, -1, 1, 5, 5)
	require.NoError(t, err)

	azStep := sm.azStep()
	elStep := sm.elStep()
	azC := -1 + 2*azStep
	elC := -1 + 1*elStep

	require.NoError(t, sm.Set(azC, elC, 0.77))
	got, err := sm.Get(azC, elC)
	require.NoError(t, err)
	assert.InDelta(t, 0.77, got, 1e-9)
}

func TestSignalMapOutOfBounds(t *testing.T) {
	sm, err := NewSignalMap(-1, 1, -1, 1, 5, 5)
	require.NoError(t, err)
	_, err = sm.Get(5, 5)
	require.Error(t, err)
}

func TestReacquireSucceedsWhenProbeIsAboveThreshold(t *testing.T) {
	tr := newTestTracker(t, 0.2, 0.2)
	tr.CheckMisalignment(0.0)
	require.True(t, tr.IsMisaligned())

	err := tr.Reacquire(0.25, 0.25, 0.015, gaussianField)
	require.NoError(t, err)
}
