package channel

// DefaultCn2 returns the weather-specific default turbulence strength,
// grounded on channel_get_default_cn2 in
// original_source/src/turbulence/channel.c — a convenience the
// distilled spec dropped but which lets callers build a Params value
// from weather alone, the way the original constructor does.
func DefaultCn2(w Weather) float64 {
	switch w {
	case Clear:
		return 1e-15
	case Fog:
		return 5e-15
	case Rain:
		return 1e-14
	case Snow:
		return 2e-14
	case HighTurbulence:
		return 1e-13
	default:
		return 1e-15
	}
}

// NewWithWeatherDefaults builds a Params value seeded with the weather
// condition's default Cn2, 20C/50%-humidity/1km-visibility ambient
// defaults, and the nominal correlation time, mirroring
// channel_init()'s two-stage default-then-override construction in the
// original source. Callers still override any field before New.
func NewWithWeatherDefaults(w Weather, distanceM, wavelengthNM float64) Params {
	return Params{
		DistanceM:    distanceM,
		WavelengthNM: wavelengthNM,
		BeamDivRad:   1e-3,
		Weather:      w,
		Cn2:          DefaultCn2(w),
		TemperatureC: 20,
		Humidity:     0.5,
		VisibilityKM: 1,
		CorrelationS: 1e-3,
	}
}
