package ldpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newHalfRate(t testing.TB) *Codec {
	t.Helper()
	c, err := New(12, 6, Config{MaxIterations: 50})
	require.NoError(t, err)
	return c
}

func TestRejectsNonStandardRate(t *testing.T) {
	_, err := New(10, 7, Config{})
	require.Error(t, err)
}

// TestInvariantSyndromeIsZero checks spec.md §8 invariant 4: every
// encoded codeword satisfies H * encode(u) = 0 mod 2.
func TestInvariantSyndromeIsZero(t *testing.T) {
	c := newHalfRate(t)
	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.SliceOfN(rapid.IntRange(0, 1), c.K(), c.K()).Draw(t, "bits")
		cw, err := c.Encode(bits)
		require.NoError(t, err)

		syn := make([]int, c.M())
		c.Syndrome(cw, syn)
		for _, s := range syn {
			assert.Equal(t, 0, s)
		}
	})
}

func TestSystematicPrefix(t *testing.T) {
	c := newHalfRate(t)
	bits := make([]int, c.K())
	for i := range bits {
		bits[i] = i % 2
	}
	cw, err := c.Encode(bits)
	require.NoError(t, err)
	assert.Equal(t, bits, cw[:c.K()])
}

// TestDecodeCleanChannel exercises scenario S3's no-noise base case: BP
// must converge immediately and report zero corrections.
func TestDecodeCleanChannel(t *testing.T) {
	c := newHalfRate(t)
	bits := make([]int, c.K())
	for i := range bits {
		bits[i] = (i + 1) % 2
	}
	cw, err := c.Encode(bits)
	require.NoError(t, err)

	out, corrected, converged, err := c.Decode(cw)
	require.NoError(t, err)
	assert.True(t, converged)
	assert.Equal(t, 0, corrected)
	assert.Equal(t, bits, out)
}

// TestDecodeCorrectsSingleFlip exercises the decoder's correction
// behavior for a light single-bit corruption.
func TestDecodeCorrectsSingleFlip(t *testing.T) {
	c := newHalfRate(t)
	bits := make([]int, c.K())
	for i := range bits {
		bits[i] = i % 3 % 2
	}
	cw, err := c.Encode(bits)
	require.NoError(t, err)

	received := make([]int, len(cw))
	copy(received, cw)
	received[0] ^= 1

	out, _, converged, err := c.Decode(received)
	require.NoError(t, err)
	assert.True(t, converged)
	assert.Equal(t, bits, out)
}

func TestDegreesForRate(t *testing.T) {
	dv, dc, err := degreesForRate(12, 6)
	require.NoError(t, err)
	assert.Equal(t, 3, dv)
	assert.Equal(t, 6, dc)

	dv, dc, err = degreesForRate(24, 16)
	require.NoError(t, err)
	assert.Equal(t, 4, dv)
	assert.Equal(t, 8, dc)
}
