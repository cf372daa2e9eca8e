package modulation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestScenarioS4 — OOK bit fidelity.
func TestScenarioS4(t *testing.T) {
	m := NewOOK()
	data := []byte{0xA5, 0x5A}
	symbols := m.Modulate(data)

	want := []float64{1, 0, 1, 0, 0, 1, 0, 1, 0, 1, 0, 1, 1, 0, 1, 0}
	require.Len(t, symbols, 16)
	for i, w := range want {
		assert.Equal(t, w, real(symbols[i]))
	}

	out, err := m.Demodulate(symbols, 20)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

// TestScenarioS5 — 4-PPM symbol placement.
func TestScenarioS5(t *testing.T) {
	m, err := NewPPM(4)
	require.NoError(t, err)

	data := []byte{0x9C} // 0b10_01_11_00
	symbols := m.Modulate(data)
	require.Len(t, symbols, 16)

	wantSlots := []int{2, 1, 3, 0}
	for c, slot := range wantSlots {
		for s := 0; s < 4; s++ {
			v := real(symbols[c*4+s])
			if s == slot {
				assert.Equal(t, 1.0, v)
			} else {
				assert.Equal(t, 0.0, v)
			}
		}
	}

	out, err := m.Demodulate(symbols, 20)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

// TestInvariantRoundTripOOK checks spec.md §8 invariant 5 for OOK.
func TestInvariantRoundTripOOK(t *testing.T) {
	m := NewOOK()
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		data := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, "data")
		out, err := m.Demodulate(m.Modulate(data), math.Inf(1))
		require.NoError(t, err)
		assert.Equal(t, data, out)
	})
}

// TestInvariantRoundTripPPM checks spec.md §8 invariant 5 for PPM, order
// drawn from the allowed set and data length chosen so symbol counts
// satisfy the §4.D alignment precondition.
func TestInvariantRoundTripPPM(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		order := rapid.SampledFrom([]int{2, 4, 8, 16}).Draw(t, "order")
		m, err := NewPPM(order)
		require.NoError(t, err)

		n := rapid.IntRange(1, 8).Draw(t, "n")
		data := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, "data")
		out, err := m.Demodulate(m.Modulate(data), math.Inf(1))
		require.NoError(t, err)
		assert.Equal(t, data, out)
	})
}

// TestInvariantRoundTripDPSK checks spec.md §8 invariant 5 for DPSK with
// fresh modulator/demodulator state (no shared phase carry, since each
// side starts from its own zero reference — §4.D only requires the same
// Modulator instance to carry phase across its own calls).
func TestInvariantRoundTripDPSK(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		data := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, "data")

		mod := NewDPSK()
		demod := NewDPSK()
		out, err := demod.Demodulate(mod.Modulate(data), math.Inf(1))
		require.NoError(t, err)
		assert.Equal(t, data, out)
	})
}

// TestInvariantDPSKSingleFlipIsolated checks spec.md §8 invariant 6: a
// single bit flip changes exactly one symbol-to-symbol phase relation.
// The flip shifts every downstream symbol's absolute phase by a
// constant offset, but differential decoding cancels any constant
// offset between consecutive symbols, so only the decoded bit at the
// flip position differs.
func TestInvariantDPSKSingleFlipIsolated(t *testing.T) {
	data := []byte{0x3C}
	baseOut, err := NewDPSK().Demodulate(NewDPSK().Modulate(data), math.Inf(1))
	require.NoError(t, err)

	flipPos := 3
	flipped := make([]byte, len(data))
	copy(flipped, data)
	flipped[flipPos/8] ^= 1 << uint(7-flipPos%8)

	flipOut, err := NewDPSK().Demodulate(NewDPSK().Modulate(flipped), math.Inf(1))
	require.NoError(t, err)

	baseBits := bytesToBits(baseOut)
	flipBits := bytesToBits(flipOut)
	diffCount := 0
	for i := range baseBits {
		if baseBits[i] != flipBits[i] {
			diffCount++
		}
	}
	assert.Equal(t, 1, diffCount)
}

// TestInvariantRoundTripDPSKSharedInstance checks spec.md §8 invariant 5
// still holds when a single Modulator does both sides, the usage
// cmd/fsosim/runner.go's Simulator.RunFrame relies on: Modulate and
// Demodulate carry independent tx/rx differential chains, so one
// instance's Modulate having already run must not desync the first
// Demodulate call's seed.
func TestInvariantRoundTripDPSKSharedInstance(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		data := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, "data")

		shared := NewDPSK()
		out, err := shared.Demodulate(shared.Modulate(data), math.Inf(1))
		require.NoError(t, err)
		assert.Equal(t, data, out)
	})
}

func TestPPMRejectsBadOrder(t *testing.T) {
	_, err := NewPPM(3)
	require.Error(t, err)
}

func TestOOKDemodulateRejectsBadLength(t *testing.T) {
	m := NewOOK()
	_, err := m.Demodulate(make([]complex128, 5), 20)
	require.Error(t, err)
}
