// Package config loads a simulation scenario file: link geometry,
// weather, FEC choice, modulation choice, and tracker gains. Grounded
// on doismellburning-samoyed/src/deviceid.go's gopkg.in/yaml.v3 use
// (there: an open map.v3 unmarshal of tocalls.yaml; here: a
// struct-tagged unmarshal, since a scenario file has a fixed known
// shape rather than an open vendor/model table). The core never reads
// this package — it is consumed only by cmd/fsosim, which translates a
// Scenario into the core's constructor parameters.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FECKind selects the forward error correction codec a scenario uses.
type FECKind string

const (
	FECReedSolomon FECKind = "reed_solomon"
	FECLDPC        FECKind = "ldpc"
	FECNone        FECKind = "none"
)

// ModulationKind selects the optical modulation scheme.
type ModulationKind string

const (
	ModOOK  ModulationKind = "ook"
	ModPPM  ModulationKind = "ppm"
	ModDPSK ModulationKind = "dpsk"
)

// LinkGeometry mirrors channel.Params' distance/wavelength/divergence
// inputs (spec.md §3.5).
type LinkGeometry struct {
	DistanceM    float64 `yaml:"distance_m"`
	WavelengthNM float64 `yaml:"wavelength_nm"`
	BeamDivRad   float64 `yaml:"beam_divergence_rad"`
}

// Atmosphere mirrors channel.Params' weather/turbulence inputs.
type Atmosphere struct {
	Weather      string  `yaml:"weather"` // clear|fog|rain|snow|high_turbulence
	Cn2          float64 `yaml:"cn2"`
	TemperatureC float64 `yaml:"temperature_c"`
	Humidity     float64 `yaml:"humidity"`
	VisibilityKM float64 `yaml:"visibility_km"`
	RainRateMMH  float64 `yaml:"rain_rate_mm_per_h"`
	SnowRateMMH  float64 `yaml:"snow_rate_mm_per_h"`
	CorrelationS float64 `yaml:"correlation_s"`
}

// FEC selects and parameterizes the codec (spec.md §4.B/§4.C).
type FEC struct {
	Kind          FECKind `yaml:"kind"`
	N             int     `yaml:"n"`
	K             int     `yaml:"k"`
	SymbolSize    int     `yaml:"symbol_size,omitempty"`     // RS only
	PrimitivePoly int     `yaml:"primitive_poly,omitempty"`  // RS only
	FCR           int     `yaml:"fcr,omitempty"`             // RS only
	MaxIterations int     `yaml:"max_iterations,omitempty"`  // LDPC only
}

// Modulation selects and parameterizes the modem (spec.md §4.D).
type Modulation struct {
	Kind  ModulationKind `yaml:"kind"`
	Order int            `yaml:"order,omitempty"` // PPM only
}

// TrackerGains mirrors BeamTracker's gradient-descent and PID tuning
// (spec.md §3.6/§4.F).
type TrackerGains struct {
	Gamma                 float64 `yaml:"gamma"`
	Beta                  float64 `yaml:"beta"`
	Epsilon               float64 `yaml:"epsilon"`
	ConvergenceThreshold  int     `yaml:"convergence_threshold"`
	MisalignmentThreshold float64 `yaml:"misalignment_threshold"`
	KP                    float64 `yaml:"kp"`
	KI                    float64 `yaml:"ki"`
	KD                    float64 `yaml:"kd"`
	ILimit                float64 `yaml:"i_limit"`
	UpdateRateHz          float64 `yaml:"update_rate_hz"`
	StepInitCfg           float64 `yaml:"step_init"`
	StepMinCfg            float64 `yaml:"step_min"`
	StepMaxCfg            float64 `yaml:"step_max"`
}

// Scenario is the top-level scenario file (spec.md's "scenario file
// (link geometry, weather, FEC choice, modulation choice, tracker
// gains)" from §4's ambient configuration surface).
type Scenario struct {
	Name        string       `yaml:"name"`
	Frames      int          `yaml:"frames"`
	Seed        int64        `yaml:"seed"`
	Link        LinkGeometry `yaml:"link"`
	Atmosphere  Atmosphere   `yaml:"atmosphere"`
	FEC         FEC          `yaml:"fec"`
	Modulation  Modulation   `yaml:"modulation"`
	Tracker     TrackerGains `yaml:"tracker"`
	NoisePowerW float64      `yaml:"noise_power_w"`
	TxPowerW    float64      `yaml:"tx_power_w"`
}

// Defaults returns a scenario seeded with the numeric constants named
// in spec.md §4.E/§4.F: a 1km clear-weather RS(255,223) OOK link with a
// mid-range beam tracker.
func Defaults() Scenario {
	return Scenario{
		Name:   "default",
		Frames: 1000,
		Seed:   1,
		Link: LinkGeometry{
			DistanceM:    1000,
			WavelengthNM: 1550,
			BeamDivRad:   1e-3,
		},
		Atmosphere: Atmosphere{
			Weather:      "clear",
			Cn2:          1e-15,
			TemperatureC: 20,
			Humidity:     0.5,
			VisibilityKM: 10,
			CorrelationS: 1e-3,
		},
		FEC: FEC{
			Kind:          FECReedSolomon,
			N:             255,
			K:             223,
			SymbolSize:    8,
			PrimitivePoly: 0x11d,
			FCR:           1,
		},
		Modulation: Modulation{Kind: ModOOK},
		Tracker: TrackerGains{
			Gamma:                  1.1,
			Beta:                   0.5,
			Epsilon:                1e-4,
			ConvergenceThreshold:   10,
			MisalignmentThreshold:  0.2,
			KP:                     0.5,
			KI:                     0.01,
			KD:                     0.05,
			ILimit:                 1.0,
			UpdateRateHz:           100,
			StepInitCfg:            0.01,
			StepMinCfg:             1e-5,
			StepMaxCfg:             0.02,
		},
		NoisePowerW: 1e-9,
		TxPowerW:    1e-3,
	}
}

// Load reads and parses a scenario file, starting from Defaults() so a
// file needs only override the fields it cares about.
func Load(path string) (Scenario, error) {
	s := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("config.Load: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("config.Load: parsing %s: %w", path, err)
	}
	return s, nil
}

// Save writes a scenario back to disk, e.g. to capture the defaults
// as a starting template.
func Save(path string, s Scenario) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
