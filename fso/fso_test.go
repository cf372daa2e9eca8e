package fso

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorWrapsAndFormats(t *testing.T) {
	cause := errors.New("boom")
	err := New(InvalidParam, "galois.New", cause)

	assert.ErrorIs(t, err, errors.Unwrap(err))
	assert.Equal(t, "galois.New: invalid_param: boom", err.Error())
	assert.True(t, errors.Is(err, Sentinel(InvalidParam)))
	assert.False(t, errors.Is(err, Sentinel(NotConverged)))
}

func TestSentinelHasNoCause(t *testing.T) {
	s := Sentinel(NotConverged)
	assert.Nil(t, s.Unwrap())
	assert.Equal(t, "not_converged", NotConverged.String())
}

func TestDefaultRNGUniformRange(t *testing.T) {
	rng := NewRNG(42, 0)
	for i := 0; i < 1000; i++ {
		v := rng.Uniform()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestDefaultRNGIntNBounds(t *testing.T) {
	rng := NewRNG(42, 1)
	assert.Equal(t, 0, rng.IntN(0))
	for i := 0; i < 1000; i++ {
		v := rng.IntN(7)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 7)
	}
}

// TestDefaultRNGGaussianIsRoughlyStandardNormal checks the Box-Muller
// implementation produces a mean near 0 and variance near 1 over many
// samples, rather than asserting exact values from a fixed seed.
func TestDefaultRNGGaussianIsRoughlyStandardNormal(t *testing.T) {
	rng := NewRNG(7, 0)
	const n = 20000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		v := rng.Gaussian()
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	assert.InDelta(t, 0.0, mean, 0.05)
	assert.InDelta(t, 1.0, variance, 0.1)
}

func TestNewRNGSeedZeroDiverges(t *testing.T) {
	a := NewRNG(0, 1)
	b := NewRNG(0, 2)
	// Different taskIDs must not collide even when both derive from the
	// same wall-clock instant.
	diff := false
	for i := 0; i < 10; i++ {
		if math.Abs(a.Uniform()-b.Uniform()) > 1e-12 {
			diff = true
			break
		}
	}
	assert.True(t, diff)
}
