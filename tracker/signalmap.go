// Package tracker implements the closed-loop beam-pointing subsystem of
// spec.md §3.6/§4.F: a bilinear-interpolated signal map, gradient
// descent with momentum, a PID controller, scanning/peak-finding, and a
// misalignment/reacquisition state machine. Grounded on
// original_source/src/beam_tracking/beam_tracking.c's top-level
// BeamTracker struct and dispatch, with gradient_descent.c,
// pid_control.c, misalignment.c, and beam_scanning.c each contributing
// the subsystem their name implies; SignalMap's flattened 2-D layout is
// reworked into a Go-owned slice.
package tracker

import (
	"fmt"

	"github.com/fso-sim/fsolink/fso"
)

// SignalMap is a rectangular grid in (azimuth, elevation) storing a
// flattened scalar field, per spec §3.6/§9 (manual 2-D array
// flattening is preserved for cache-friendliness).
type SignalMap struct {
	azMin, azMax float64
	elMin, elMax float64
	nAz, nEl     int
	field        []float64 // row-major, index = row*nAz + col
}

// NewSignalMap constructs a grid with at least 2 samples per axis
// (spec §4.F.1).
func NewSignalMap(azMin, azMax, elMin, elMax float64, nAz, nEl int) (*SignalMap, error) {
	const op = "tracker.NewSignalMap"
	if nAz < 2 || nEl < 2 {
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("grid must have >= 2 samples per axis, got nAz=%d nEl=%d", nAz, nEl))
	}
	if azMax <= azMin || elMax <= elMin {
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("invalid grid bounds"))
	}
	return &SignalMap{
		azMin: azMin, azMax: azMax,
		elMin: elMin, elMax: elMax,
		nAz: nAz, nEl: nEl,
		field: make([]float64, nAz*nEl),
	}, nil
}

func (m *SignalMap) azStep() float64 { return (m.azMax - m.azMin) / float64(m.nAz-1) }
func (m *SignalMap) elStep() float64 { return (m.elMax - m.elMin) / float64(m.nEl-1) }

func (m *SignalMap) cellIndex(az, el float64) (int, int, bool) {
	if az < m.azMin || az > m.azMax || el < m.elMin || el > m.elMax {
		return 0, 0, false
	}
	col := int((az-m.azMin)/m.azStep() + 0.5)
	row := int((el-m.elMin)/m.elStep() + 0.5)
	if col < 0 {
		col = 0
	}
	if col >= m.nAz {
		col = m.nAz - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= m.nEl {
		row = m.nEl - 1
	}
	return row, col, true
}

// Set rounds (az, el) to the nearest grid cell and stores s there
// (spec §4.F.1).
func (m *SignalMap) Set(az, el, s float64) error {
	row, col, ok := m.cellIndex(az, el)
	if !ok {
		return fso.New(fso.InvalidParam, "SignalMap.Set", fmt.Errorf("(%g,%g) out of grid bounds", az, el))
	}
	m.field[row*m.nAz+col] = s
	return nil
}

// Get bilinearly interpolates across the four enclosing cells.
// Out-of-bounds queries return 0 with an InvalidParam error (spec
// §4.F.1).
func (m *SignalMap) Get(az, el float64) (float64, error) {
	if az < m.azMin || az > m.azMax || el < m.elMin || el > m.elMax {
		return 0, fso.New(fso.InvalidParam, "SignalMap.Get", fmt.Errorf("(%g,%g) out of grid bounds", az, el))
	}

	azStep, elStep := m.azStep(), m.elStep()
	colF := (az - m.azMin) / azStep
	rowF := (el - m.elMin) / elStep

	col0 := int(colF)
	row0 := int(rowF)
	if col0 >= m.nAz-1 {
		col0 = m.nAz - 2
	}
	if row0 >= m.nEl-1 {
		row0 = m.nEl - 2
	}
	col1, row1 := col0+1, row0+1

	fx := colF - float64(col0)
	fy := rowF - float64(row0)

	v00 := m.field[row0*m.nAz+col0]
	v10 := m.field[row0*m.nAz+col1]
	v01 := m.field[row1*m.nAz+col0]
	v11 := m.field[row1*m.nAz+col1]

	top := v00*(1-fx) + v10*fx
	bottom := v01*(1-fx) + v11*fx
	return top*(1-fy) + bottom*fy, nil
}

// Clear zeroes the field (spec §4.F.1).
func (m *SignalMap) Clear() {
	for i := range m.field {
		m.field[i] = 0
	}
}

// Bounds returns the grid's azimuth/elevation extents.
func (m *SignalMap) Bounds() (azMin, azMax, elMin, elMax float64) {
	return m.azMin, m.azMax, m.elMin, m.elMax
}

// PeakFind does a linear scan of all grid cells and returns the argmax
// cell center and its value (spec §4.F.6).
func (m *SignalMap) PeakFind() (az, el, value float64) {
	bestRow, bestCol := 0, 0
	best := m.field[0]
	for row := 0; row < m.nEl; row++ {
		for col := 0; col < m.nAz; col++ {
			v := m.field[row*m.nAz+col]
			if v > best {
				best = v
				bestRow, bestCol = row, col
			}
		}
	}
	az = m.azMin + float64(bestCol)*m.azStep()
	el = m.elMin + float64(bestRow)*m.elStep()
	return az, el, best
}
