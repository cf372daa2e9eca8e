package tracker

// PIDController holds gains, per-axis integral/derivative state and the
// update rate, per spec §3.6/§4.F.4. Grounded on
// original_source/src/beam_tracking/pid_control.c's PIDController
// struct.
type PIDController struct {
	kp, ki, kd float64
	iLimit     float64
	dt         float64

	integralAz, integralEl float64
	prevErrAz, prevErrEl   float64
}

// NewPID constructs a PID controller with update rate fu (Hz) and
// anti-windup limit iLimit.
func NewPID(kp, ki, kd, iLimit, fu float64) *PIDController {
	dt := 1.0
	if fu > 0 {
		dt = 1.0 / fu
	}
	return &PIDController{kp: kp, ki: ki, kd: kd, iLimit: iLimit, dt: dt}
}

// Reset clears integral and previous-error state, as required before a
// reacquisition attempt (spec §4.F.7).
func (p *PIDController) Reset() {
	p.integralAz, p.integralEl = 0, 0
	p.prevErrAz, p.prevErrEl = 0, 0
}

// updateAxis computes the control delta for one axis given target error and
// advances that axis's integral/derivative state (spec §4.F.4).
func (p *PIDController) updateAxis(errVal float64, integral, prevErr *float64) float64 {
	*integral += errVal * p.dt
	*integral = clamp(*integral, -p.iLimit, p.iLimit)
	derivative := (errVal - *prevErr) / p.dt
	control := p.kp*errVal + p.ki*(*integral) + p.kd*derivative
	*prevErr = errVal
	return control
}

// Update computes (control_az, control_el) given the current error
// relative to (azTarget, elTarget) and the present pointing (spec
// §4.F.4).
func (p *PIDController) Update(azTarget, elTarget, az, el float64) (controlAz, controlEl float64) {
	errAz := azTarget - az
	errEl := elTarget - el
	controlAz = p.updateAxis(errAz, &p.integralAz, &p.prevErrAz)
	controlEl = p.updateAxis(errEl, &p.integralEl, &p.prevErrEl)
	return controlAz, controlEl
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
