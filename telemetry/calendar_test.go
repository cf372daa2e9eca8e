package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRunDate(t *testing.T) {
	got, err := ParseRunDate(2026, 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseRunDate(2026, 60)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestParseRunDateLeapYear(t *testing.T) {
	got, err := ParseRunDate(2024, 60)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), got)
}

func TestParseRunDateRejectsOutOfRange(t *testing.T) {
	_, err := ParseRunDate(2026, 0)
	require.Error(t, err)
	_, err = ParseRunDate(2026, 367)
	require.Error(t, err)
}

func TestRotatingName(t *testing.T) {
	ts := time.Date(2026, time.July, 31, 14, 5, 9, 0, time.UTC)
	name, err := RotatingName("scenario-%Y%m%d-%H%M%S.csv", ts)
	require.NoError(t, err)
	assert.Equal(t, "scenario-20260731-140509.csv", name)
}
