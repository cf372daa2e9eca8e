package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreInternallyConsistent(t *testing.T) {
	d := Defaults()
	assert.Equal(t, FECReedSolomon, d.FEC.Kind)
	assert.Less(t, d.FEC.K, d.FEC.N)
	assert.Equal(t, ModOOK, d.Modulation.Kind)
	assert.Greater(t, d.Frames, 0)
	assert.Greater(t, d.Tracker.UpdateRateHz, 0.0)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	want := Defaults()
	want.Name = "roundtrip"
	want.Atmosphere.Weather = "fog"
	want.FEC.Kind = FECLDPC
	want.FEC.N = 576
	want.FEC.K = 288

	require.NoError(t, Save(path, want))
	assert.FileExists(t, path)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// TestLoadOverlaysDefaults checks that a scenario file only needs to
// specify the fields it cares about; everything else falls back to
// Defaults().
func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	err := os.WriteFile(path, []byte("name: partial\natmosphere:\n  weather: rain\n"), 0644)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "partial", got.Name)
	assert.Equal(t, "rain", got.Atmosphere.Weather)
	assert.Equal(t, Defaults().FEC, got.FEC)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}
