package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tzneal/coordconv"
)

func TestHemisphere(t *testing.T) {
	assert.Equal(t, coordconv.HemisphereNorth, Station{LatDeg: 10}.Hemisphere())
	assert.Equal(t, coordconv.HemisphereSouth, Station{LatDeg: -10}.Hemisphere())
}

func TestLineOfSightDueNorth(t *testing.T) {
	origin := Station{LatDeg: 0, LonDeg: 0, AltM: 0}
	// ~1km due north, flat.
	target := Station{LatDeg: 1000.0 / earthRadiusM * 180 / math.Pi, LonDeg: 0, AltM: 0}

	rangeM, azimuthRad, elevationRad := LineOfSight(origin, target)
	assert.InDelta(t, 1000.0, rangeM, 1.0)
	assert.InDelta(t, 0.0, azimuthRad, 1e-6)
	assert.InDelta(t, 0.0, elevationRad, 1e-6)
}

func TestLineOfSightDueEastAndAbove(t *testing.T) {
	origin := Station{LatDeg: 0, LonDeg: 0, AltM: 0}
	target := Station{LatDeg: 0, LonDeg: 1000.0 / earthRadiusM * 180 / math.Pi, AltM: 1000}

	rangeM, azimuthRad, elevationRad := LineOfSight(origin, target)
	assert.InDelta(t, math.Pi/2, azimuthRad, 1e-6)
	assert.Greater(t, elevationRad, 0.0)
	assert.Greater(t, rangeM, 1000.0)
}

func TestLineOfSightStraightUp(t *testing.T) {
	origin := Station{LatDeg: 10, LonDeg: 20, AltM: 0}
	target := Station{LatDeg: 10, LonDeg: 20, AltM: 500}

	rangeM, _, elevationRad := LineOfSight(origin, target)
	assert.InDelta(t, 500.0, rangeM, 1e-6)
	assert.InDelta(t, math.Pi/2, elevationRad, 1e-6)
}
