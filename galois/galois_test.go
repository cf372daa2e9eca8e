package galois

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFieldRejectsBadDegree(t *testing.T) {
	_, err := New(2, 0x7)
	require.Error(t, err)

	_, err = New(8, 0x1d) // degree too low for m=8
	require.Error(t, err)
}

func TestFieldGF256Basics(t *testing.T) {
	f, err := New(8, 0x11d)
	require.NoError(t, err)
	assert.Equal(t, 256, f.Size())
	assert.Equal(t, 1, f.Mul(1, 1))
	assert.Equal(t, 0, f.Mul(0, 200))
	assert.Equal(t, byte(5)^byte(9), byte(f.Add(5, 9)))
}

// TestInvariantMulInverseIsOne checks spec.md §8 invariant 1: for every
// GaloisField(m, poly), mul(x, inv(x)) = 1 and div(x, x) = 1 for all
// nonzero x.
func TestInvariantMulInverseIsOne(t *testing.T) {
	fields := map[int]int{
		3: 0xb,   // x^3+x+1
		4: 0x13,  // x^4+x+1
		8: 0x11d, // x^8+x^4+x^3+x^2+1
	}

	for m, poly := range fields {
		f, err := New(m, poly)
		require.NoError(t, err)

		rapid.Check(t, func(t *rapid.T) {
			x := rapid.IntRange(1, f.Size()-1).Draw(t, "x")
			assert.Equal(t, 1, f.Mul(x, f.Inv(x)))
			assert.Equal(t, 1, f.Div(x, x))
		})
	}
}

func TestExpLogRoundTrip(t *testing.T) {
	f, err := New(8, 0x11d)
	require.NoError(t, err)

	for i := 0; i < f.Size()-1; i++ {
		x := f.Exp(i)
		require.NotZero(t, x)
		assert.Equal(t, i, f.Log(x))
	}
}

func TestPowMatchesRepeatedMul(t *testing.T) {
	f, err := New(8, 0x11d)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		x := rapid.IntRange(1, f.Size()-1).Draw(t, "x")
		n := rapid.IntRange(0, 20).Draw(t, "n")

		want := 1
		for i := 0; i < n; i++ {
			want = f.Mul(want, x)
		}
		assert.Equal(t, want, f.Pow(x, n))
	})
}
