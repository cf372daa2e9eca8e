// Package geo converts ground-station/platform positions into the
// line-of-sight range and pointing angles the optical link core
// consumes: ChannelModel's distance L and BeamTracker's initial
// azimuth/elevation target. Grounded on
// doismellburning-samoyed/src/coordconv.go (the Hemisphere tagging
// convention for reporting station latitude) and
// doismellburning-samoyed/src/xmit.go / tq.go's use of
// github.com/golang/geo's r3.Vector for bearing arithmetic, generalized
// from that repo's packet radio geometry to an optical ground-to-relay
// link. This package is peripheral (§1): the core never imports it,
// it only feeds a ChannelModel/BeamTracker constructor.
package geo

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/tzneal/coordconv"
)

const earthRadiusM = 6371000.0

// Station is a ground or relay station position in geodetic
// coordinates: latitude/longitude in degrees, altitude in meters.
type Station struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
}

// Hemisphere reports the coordconv.Hemisphere tag for the station's
// latitude, the same north/south convention
// HemisphereRuneToCoordconvHemisphere/HemisphereToRune use for a
// packet's reported position.
func (s Station) Hemisphere() coordconv.Hemisphere {
	if s.LatDeg < 0 {
		return coordconv.HemisphereSouth
	}
	return coordconv.HemisphereNorth
}

// enu approximates a local East-North-Up vector in meters from origin
// to s, valid for the short baselines (<=10km) spec.md §3.5 bounds
// ChannelModel's distance to.
func enu(origin, s Station) r3.Vector {
	latRad := origin.LatDeg * math.Pi / 180
	dLat := (s.LatDeg - origin.LatDeg) * math.Pi / 180
	dLon := (s.LonDeg - origin.LonDeg) * math.Pi / 180

	north := dLat * earthRadiusM
	east := dLon * earthRadiusM * math.Cos(latRad)
	up := s.AltM - origin.AltM

	return r3.Vector{X: east, Y: north, Z: up}
}

// LineOfSight returns the slant range (meters), azimuth (radians,
// 0=north, clockwise positive) and elevation (radians above the local
// horizontal) from origin to target — the geometry ChannelModel's
// DistanceM and BeamTracker's initial pointing target are derived
// from.
func LineOfSight(origin, target Station) (rangeM, azimuthRad, elevationRad float64) {
	v := enu(origin, target)
	horizontal := r3.Vector{X: v.X, Y: v.Y, Z: 0}
	rangeM = v.Norm()
	azimuthRad = math.Atan2(v.X, v.Y) // atan2(east, north)
	if azimuthRad < 0 {
		azimuthRad += 2 * math.Pi
	}
	horizNorm := horizontal.Norm()
	if horizNorm < 1e-9 {
		elevationRad = math.Pi / 2 * sign(v.Z)
	} else {
		elevationRad = math.Atan2(v.Z, horizNorm)
	}
	return rangeM, azimuthRad, elevationRad
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
