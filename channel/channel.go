// Package channel implements the atmospheric channel model of spec.md
// §3.5/§4.E: Rytov-theory scintillation, Kim/Carbonneau weather
// attenuation, free-space path loss, wavelength/humidity absorption,
// AR(1)-correlated log-normal fading, and AWGN. Grounded on
// original_source/src/turbulence/channel.c's ChannelModel struct and
// its update_calculations/apply_effects entry points, reworked from the
// C source's manual malloc'd ring buffer into a Go-owned fixed-size
// array.
package channel

import (
	"fmt"
	"math"

	"github.com/fso-sim/fsolink/fso"
)

// Weather is the atmospheric condition enum of spec.md §3.5.
type Weather int

const (
	Clear Weather = iota
	Fog
	Rain
	Snow
	HighTurbulence
)

func (w Weather) String() string {
	switch w {
	case Clear:
		return "clear"
	case Fog:
		return "fog"
	case Rain:
		return "rain"
	case Snow:
		return "snow"
	case HighTurbulence:
		return "high_turbulence"
	default:
		return "unknown"
	}
}

// fadeHistoryLen is the nominal circular-buffer length of spec §3.5/§9.
const fadeHistoryLen = 100

// Params are the link-geometry and atmospheric inputs of spec §3.5.
// DistanceM in [100,10000], WavelengthNM in [500,2000], Cn2 in
// [1e-17,1e-12].
type Params struct {
	DistanceM    float64
	WavelengthNM float64
	BeamDivRad   float64
	Weather      Weather
	Cn2          float64
	TemperatureC float64
	Humidity     float64 // fraction [0,1]
	VisibilityKM float64
	RainRateMMH  float64
	SnowRateMMH  float64
	CorrelationS float64 // tau_c
}

// RNG is the Gaussian-draw collaborator the channel needs; satisfied
// by fso.RNG.
type RNG interface {
	Gaussian() float64
}

// Model is ChannelModel: link geometry, atmospheric state, fade
// history, and cached derived scalars, valid iff UpdateCalculations
// has run since the last parameter mutation (spec §3.5).
type Model struct {
	params Params

	rytovVariance      float64
	scintillationIndex float64
	pathLossDB         float64
	attenuationDBKm    float64
	absorptionDB       float64

	history    [fadeHistoryLen]float64
	historyLen int
	writeIdx   int
	lastFade   float64
	lastLogAmp float64

	rng RNG
}

// New constructs a ChannelModel from validated parameters (spec §3.5).
func New(p Params, rng RNG) (*Model, error) {
	const op = "channel.New"
	if p.DistanceM < 100 || p.DistanceM > 10000 {
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("distance %g m outside [100,10000]", p.DistanceM))
	}
	if p.WavelengthNM < 500 || p.WavelengthNM > 2000 {
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("wavelength %g nm outside [500,2000]", p.WavelengthNM))
	}
	if p.Cn2 < 1e-17 || p.Cn2 > 1e-12 {
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("Cn2 %g outside [1e-17,1e-12]", p.Cn2))
	}
	if p.CorrelationS <= 0 {
		p.CorrelationS = 1e-3
	}
	m := &Model{params: p, rng: rng, lastFade: 1.0}
	return m, nil
}

// SetWeather mutates the weather enum; derived scalars become stale
// until UpdateCalculations runs again (spec §3.5 invariant).
func (m *Model) SetWeather(w Weather) { m.params.Weather = w }

// SetDistance mutates the link distance (meters).
func (m *Model) SetDistance(distM float64) { m.params.DistanceM = distM }

// SetCn2 mutates the turbulence strength.
func (m *Model) SetCn2(cn2 float64) { m.params.Cn2 = cn2 }

// UpdateCalculations recomputes every derived scalar from the current
// parameters (spec §4.E).
func (m *Model) UpdateCalculations() {
	p := m.params
	wavelengthM := p.WavelengthNM * 1e-9
	k := 2 * math.Pi / wavelengthM
	L := p.DistanceM

	m.rytovVariance = 0.5 * p.Cn2 * math.Pow(k, 7.0/6.0) * math.Pow(L, 11.0/6.0)

	if m.rytovVariance < 0.3 {
		m.scintillationIndex = 4 * m.rytovVariance
	} else {
		m.scintillationIndex = math.Min(math.Exp(4*m.rytovVariance)-1, 10)
	}

	m.pathLossDB = 20 * math.Log10(4*math.Pi*L/wavelengthM)
	m.attenuationDBKm = weatherAttenuationDBKm(p)
	m.absorptionDB = absorptionDB(p.WavelengthNM, p.Humidity, L)
}

// weatherAttenuationDBKm implements spec §4.E's weather table.
func weatherAttenuationDBKm(p Params) float64 {
	switch p.Weather {
	case Fog:
		v := p.VisibilityKM
		if v <= 0 {
			v = 0.01
		}
		return (3.91 / v) * math.Pow(p.WavelengthNM/550, -1.3)
	case Rain:
		return 1.076*math.Pow(p.RainRateMMH, 0.67) + 0.1
	case Snow:
		return 1.023*math.Pow(p.SnowRateMMH, 0.72) + 0.1
	case Clear, HighTurbulence:
		return 0.1
	default:
		return 0.1
	}
}

// absorptionDB implements spec §4.E's wavelength/humidity band table.
func absorptionDB(wavelengthNM, humidity, distanceM float64) float64 {
	lKm := distanceM / 1000
	switch {
	case wavelengthNM >= 1400 && wavelengthNM <= 1600:
		return (0.05 + 0.1*humidity) * lKm
	case wavelengthNM >= 700 && wavelengthNM <= 1000:
		return (0.03 + 0.05*humidity) * lKm
	default:
		return (0.02 + 0.03*humidity) * lKm
	}
}

// RytovVariance returns the cached sigma_chi^2.
func (m *Model) RytovVariance() float64 { return m.rytovVariance }

// ScintillationIndex returns the cached sigma_I^2.
func (m *Model) ScintillationIndex() float64 { return m.scintillationIndex }

// PathLossDB returns the cached free-space path loss.
func (m *Model) PathLossDB() float64 { return m.pathLossDB }

// AttenuationDBKm returns the cached weather attenuation.
func (m *Model) AttenuationDBKm() float64 { return m.attenuationDBKm }

// AbsorptionDB returns the cached atmospheric absorption.
func (m *Model) AbsorptionDB() float64 { return m.absorptionDB }

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// uncorrelatedFade draws X ~ N(0, sigma_chi^2); fade = clamp(exp(2X -
// 2*sigma_chi^2), [0.01,100]) (spec §4.E).
func (m *Model) uncorrelatedFade() float64 {
	x := m.rng.Gaussian() * math.Sqrt(m.rytovVariance)
	fade := math.Exp(2*x - 2*m.rytovVariance)
	return clamp(fade, 0.01, 100)
}

// correlatedFade advances the AR(1) log-amplitude process by dt
// seconds and returns the new fade value (spec §4.E).
func (m *Model) correlatedFade(dt float64) float64 {
	rho := math.Exp(-dt / m.params.CorrelationS)
	w := m.rng.Gaussian() * math.Sqrt(m.rytovVariance)
	x := rho*m.lastLogAmp + math.Sqrt(1-rho*rho)*w
	m.lastLogAmp = x
	fade := math.Exp(2*x - 2*m.rytovVariance)
	return clamp(fade, 0.01, 100)
}

func (m *Model) recordFade(fade float64) {
	m.history[m.writeIdx] = fade
	m.writeIdx = (m.writeIdx + 1) % fadeHistoryLen
	if m.historyLen < fadeHistoryLen {
		m.historyLen++
	}
	m.lastFade = fade
}

// FadeHistoryLen reports how many fade samples have been recorded so
// far, capped at the ring's nominal length.
func (m *Model) FadeHistoryLen() int { return m.historyLen }

// LastFade returns the most recently recorded fade value.
func (m *Model) LastFade() float64 { return m.lastFade }

// ApplyEffects computes P_rx from P_tx, N0 and dt (spec §4.E): fade is
// drawn correlated if dt>0, else uncorrelated; total loss combines
// free-space path loss, weather attenuation over the link distance, and
// absorption; AWGN of variance N0 is added when N0>0; result clamps to
// >= 0.
func (m *Model) ApplyEffects(pTx, n0, dt float64) float64 {
	var fade float64
	if dt > 0 {
		fade = m.correlatedFade(dt)
	} else {
		fade = m.uncorrelatedFade()
	}
	m.recordFade(fade)

	lKm := m.params.DistanceM / 1000
	totalLossDB := m.pathLossDB + m.attenuationDBKm*lKm + m.absorptionDB

	pRx := pTx * fade / math.Pow(10, totalLossDB/10)
	if n0 > 0 {
		pRx += m.rng.Gaussian() * math.Sqrt(n0)
	}
	if pRx < 0 {
		pRx = 0
	}
	return pRx
}
