package tracker

import (
	"fmt"
	"math"

	"github.com/fso-sim/fsolink/fso"
	"github.com/fso-sim/fsolink/logx"
)

// ProbeFunc samples signal strength at a candidate pointing, supplied
// by the caller for Scan/Reacquire/Calibrate (spec §4.F.5, §9: this is
// the one hidden-thread-local-like callback boundary the core allows).
type ProbeFunc func(az, el float64) float64

// Config configures a BeamTracker's gradient-descent and PID tuning
// (spec §3.6, §4.F).
type Config struct {
	StepInit, StepMin, StepMax float64
	Gamma                      float64 // step adaptation factor, spec leaves unspecified; tuned default
	Beta                       float64 // momentum coefficient
	Epsilon                    float64 // displacement epsilon
	ConvergenceThreshold       int     // default 10

	MisalignmentThreshold float64

	KP, KI, KD, ILimit, UpdateRateHz float64

	Logger logx.Logger
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Gamma == 0 {
		out.Gamma = 1.1
	}
	if out.Epsilon == 0 {
		out.Epsilon = 1e-4
	}
	if out.ConvergenceThreshold == 0 {
		out.ConvergenceThreshold = 10
	}
	if out.StepMax == 0 {
		out.StepMax = 0.05
	}
	if out.StepMin == 0 {
		out.StepMin = 1e-5
	}
	if out.StepInit == 0 {
		out.StepInit = out.StepMax / 2
	}
	if out.Logger == nil {
		out.Logger = logx.Null
	}
	return out
}

// BeamTracker owns the pointing state, gradient-descent tuning, signal
// map, PID controller and misalignment state machine of spec §3.6.
type BeamTracker struct {
	cfg Config

	az, el          float64
	signalStrength  float64
	step            float64
	vAz, vEl        float64
	convergeCounter int

	signalMap *SignalMap
	pid       *PIDController

	misaligned        bool
	reacquisitionMode bool

	updateCount int
	scanCount   int

	log logx.Logger
}

// New constructs a BeamTracker at (az0, el0) with the given signal-map
// grid dimensions/range (spec §6).
func New(az0, el0 float64, azMin, azMax, elMin, elMax float64, nAz, nEl int, cfg Config) (*BeamTracker, error) {
	const op = "tracker.New"
	cfg = cfg.withDefaults()

	sm, err := NewSignalMap(azMin, azMax, elMin, elMax, nAz, nEl)
	if err != nil {
		return nil, fso.New(fso.InvalidParam, op, err)
	}

	pid := NewPID(cfg.KP, cfg.KI, cfg.KD, cfg.ILimit, cfg.UpdateRateHz)

	return &BeamTracker{
		cfg:       cfg,
		az:        az0,
		el:        el0,
		step:      cfg.StepInit,
		signalMap: sm,
		pid:       pid,
		log:       cfg.Logger,
	}, nil
}

// Position returns the current (az, el) pointing.
func (t *BeamTracker) Position() (az, el float64) { return t.az, t.el }

// IsConverged reports whether the gradient-descent convergence counter
// has reached its threshold (spec §4.F.3 step 3).
func (t *BeamTracker) IsConverged() bool {
	return t.convergeCounter >= t.cfg.ConvergenceThreshold
}

// IsMisaligned reports the misalignment flag (spec §4.F.7).
func (t *BeamTracker) IsMisaligned() bool { return t.misaligned }

// UpdateCount returns the number of gradient-descent updates applied.
func (t *BeamTracker) UpdateCount() int { return t.updateCount }

// ScanCount returns the number of scans performed.
func (t *BeamTracker) ScanCount() int { return t.scanCount }

// gradient estimates (dS/daz, dS/del) at the current pointing via
// central differences with half-step probes, substituting the cached
// center strength for any out-of-bounds probe (spec §4.F.2).
func (t *BeamTracker) gradient() (dAz, dEl float64) {
	delta := 0.5 * t.step
	sample := func(az, el float64) float64 {
		v, err := t.signalMap.Get(az, el)
		if err != nil {
			return t.signalStrength
		}
		return v
	}
	sAzPlus := sample(t.az+delta, t.el)
	sAzMinus := sample(t.az-delta, t.el)
	sElPlus := sample(t.az, t.el+delta)
	sElMinus := sample(t.az, t.el-delta)

	dAz = (sAzPlus - sAzMinus) / (2 * delta)
	dEl = (sElPlus - sElMinus) / (2 * delta)
	return dAz, dEl
}

// Update runs one gradient-descent step given a fresh measurement
// s_now (spec §4.F.3).
func (t *BeamTracker) Update(sNow float64) {
	sPrev := t.signalStrength
	t.signalStrength = sNow
	_ = t.signalMap.Set(t.az, t.el, sNow)
	t.updateCount++

	delta := sNow - sPrev
	switch {
	case delta > 0:
		t.step = clamp(t.step*t.cfg.Gamma, t.cfg.StepMin, t.cfg.StepMax)
		t.convergeCounter = 0
	case delta < -t.cfg.Epsilon:
		t.step = clamp(t.step/t.cfg.Gamma, t.cfg.StepMin, t.cfg.StepMax)
		t.convergeCounter = 0
	default:
		t.convergeCounter++
	}

	dAz, dEl := t.gradient()
	gradNorm := math.Hypot(dAz, dEl)
	if gradNorm < 1e-6 {
		t.convergeCounter++
		return
	}

	t.vAz = t.cfg.Beta*t.vAz + t.step*dAz
	t.vEl = t.cfg.Beta*t.vEl + t.step*dEl
	t.az += t.vAz
	t.el += t.vEl

	if math.Hypot(t.vAz, t.vEl) < t.cfg.Epsilon {
		t.convergeCounter++
	} else {
		t.convergeCounter = 0
	}
}

// PIDUpdate applies one PID feedback step toward (azTarget, elTarget)
// given measurement s (spec §4.F.4).
func (t *BeamTracker) PIDUpdate(azTarget, elTarget, s float64) {
	controlAz, controlEl := t.pid.Update(azTarget, elTarget, t.az, t.el)
	t.az += controlAz
	t.el += controlEl
	t.signalStrength = s
	if math.Hypot(controlAz, controlEl) < t.cfg.Epsilon {
		t.convergeCounter++
	} else {
		t.convergeCounter = 0
	}
}

// CheckMisalignment runs the single-flag misalignment state machine of
// spec §4.F.7 / §8 invariant 9.
func (t *BeamTracker) CheckMisalignment(s float64) {
	if s < t.cfg.MisalignmentThreshold && !t.misaligned {
		t.misaligned = true
		t.log.Warnf("tracker", "misaligned: signal %.4f below threshold %.4f", s, t.cfg.MisalignmentThreshold)
		return
	}
	if s >= t.cfg.MisalignmentThreshold && t.misaligned {
		t.misaligned = false
		t.log.Infof("tracker", "realigned: signal %.4f", s)
	}
}

// Scan clears the map, sweeps a rectangular grid of spacing res
// centered on the current pointing within +/-(dAz,dEl), probes each
// cell, then adopts the peak as the current pointing (spec §4.F.5).
func (t *BeamTracker) Scan(dAz, dEl, res float64, probe ProbeFunc) error {
	const op = "tracker.Scan"
	if res <= 0 {
		return fso.New(fso.InvalidParam, op, fmt.Errorf("resolution must be > 0"))
	}
	t.signalMap.Clear()
	t.scanCount++

	azMin, azMax, elMin, elMax := t.signalMap.Bounds()
	startAz := math.Max(azMin, t.az-dAz)
	endAz := math.Min(azMax, t.az+dAz)
	startEl := math.Max(elMin, t.el-dEl)
	endEl := math.Min(elMax, t.el+dEl)

	for az := startAz; az <= endAz; az += res {
		for el := startEl; el <= endEl; el += res {
			s := probe(az, el)
			_ = t.signalMap.Set(az, el, s)
		}
	}

	peakAz, peakEl, peakVal := t.signalMap.PeakFind()
	t.az, t.el = peakAz, peakEl
	t.signalStrength = peakVal
	return nil
}

// Reacquire runs a single fixed-window rescan after misalignment and
// restores lock if the rescanned peak clears threshold, resetting
// PID/convergence state first (spec §4.F.7). It does not widen the
// window or retry on failure.
func (t *BeamTracker) Reacquire(dAz, dEl, res float64, probe ProbeFunc) error {
	const op = "tracker.Reacquire"
	t.reacquisitionMode = true
	t.pid.Reset()
	t.convergeCounter = 0

	if err := t.Scan(dAz, dEl, res, probe); err != nil {
		t.reacquisitionMode = false
		return err
	}

	if t.signalStrength >= t.cfg.MisalignmentThreshold {
		t.misaligned = false
		t.reacquisitionMode = false
		return nil
	}

	t.reacquisitionMode = false
	return fso.New(fso.NotConverged, op, fmt.Errorf("reacquisition signal %.4f below threshold %.4f", t.signalStrength, t.cfg.MisalignmentThreshold))
}

// Calibrate runs a coarse scan then a fine scan around the coarse peak,
// falling back to the coarse peak on fine-scan failure, and verifies
// the post-calibration strength meets threshold (spec §4.F.7).
func (t *BeamTracker) Calibrate(dAz, dEl, resCoarse, resFine float64, probe ProbeFunc) error {
	const op = "tracker.Calibrate"

	if err := t.Scan(dAz, dEl, resCoarse, probe); err != nil {
		return err
	}
	coarseAz, coarseEl, coarseVal := t.az, t.el, t.signalStrength

	if err := t.Scan(2*resCoarse, 2*resCoarse, resFine, probe); err != nil {
		t.az, t.el, t.signalStrength = coarseAz, coarseEl, coarseVal
	} else if t.signalStrength < coarseVal {
		t.az, t.el, t.signalStrength = coarseAz, coarseEl, coarseVal
	}

	t.convergeCounter = 0
	t.vAz, t.vEl = 0, 0
	t.pid.Reset()

	if t.signalStrength < t.cfg.MisalignmentThreshold {
		return fso.New(fso.NotConverged, op, fmt.Errorf("post-calibration signal %.4f below threshold %.4f", t.signalStrength, t.cfg.MisalignmentThreshold))
	}
	return nil
}
