package channel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fso-sim/fsolink/fso"
)

func newClearLink(t testing.TB, seed int64) *Model {
	t.Helper()
	rng := fso.NewRNG(seed, 0)
	m, err := New(Params{
		DistanceM:    1000,
		WavelengthNM: 1550,
		Weather:      Clear,
		Cn2:          1e-15,
		Humidity:     0.5,
		CorrelationS: 1e-3,
	}, rng)
	require.NoError(t, err)
	return m
}

// TestScenarioS6 — channel path loss and mean received power.
func TestScenarioS6(t *testing.T) {
	m := newClearLink(t, 1)
	m.UpdateCalculations()

	wantPathLoss := 20 * math.Log10(4*math.Pi*1000/1.55e-6)
	assert.InDelta(t, wantPathLoss, m.PathLossDB(), 0.1)

	totalLossDB := m.PathLossDB() + m.AttenuationDBKm()*1.0 + m.AbsorptionDB()
	want := 1e-3 * math.Pow(10, -totalLossDB/10)

	const n = 10000
	sum := 0.0
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		p := m.ApplyEffects(1e-3, 0, 0)
		values[i] = p
		sum += p
	}
	mean := sum / n
	assert.InEpsilon(t, want, mean, 0.05)

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= n
	assert.Greater(t, variance, 0.0)
}

// TestInvariantMonotonicAttenuation checks spec.md §8 invariant 7:
// strictly larger attenuation yields strictly smaller expected P_rx.
func TestInvariantMonotonicAttenuation(t *testing.T) {
	rng := fso.NewRNG(7, 0)
	low, err := New(Params{DistanceM: 500, WavelengthNM: 1550, Weather: Clear, Cn2: 1e-15, CorrelationS: 1e-3}, rng)
	require.NoError(t, err)
	low.UpdateCalculations()

	rng2 := fso.NewRNG(7, 0)
	high, err := New(Params{DistanceM: 500, WavelengthNM: 1550, Weather: Rain, Cn2: 1e-15, RainRateMMH: 25, CorrelationS: 1e-3}, rng2)
	require.NoError(t, err)
	high.UpdateCalculations()

	require.Greater(t, high.AttenuationDBKm(), low.AttenuationDBKm())

	const n = 4000
	var sumLow, sumHigh float64
	for i := 0; i < n; i++ {
		sumLow += low.ApplyEffects(1e-3, 0, 0)
		sumHigh += high.ApplyEffects(1e-3, 0, 0)
	}
	assert.Less(t, sumHigh/n, sumLow/n)
}

func TestRejectsOutOfRangeDistance(t *testing.T) {
	rng := fso.NewRNG(1, 0)
	_, err := New(Params{DistanceM: 50, WavelengthNM: 1550, Cn2: 1e-15}, rng)
	require.Error(t, err)
}

func TestWeatherAttenuationFormulas(t *testing.T) {
	assert.InDelta(t, 0.1, weatherAttenuationDBKm(Params{Weather: Clear}), 1e-9)
	fogAtt := weatherAttenuationDBKm(Params{Weather: Fog, VisibilityKM: 2, WavelengthNM: 1550})
	assert.InDelta(t, (3.91/2.0)*math.Pow(1550.0/550, -1.3), fogAtt, 1e-9)
}

func TestDefaultCn2Presets(t *testing.T) {
	assert.Equal(t, 1e-15, DefaultCn2(Clear))
	assert.Equal(t, 1e-13, DefaultCn2(HighTurbulence))
}
