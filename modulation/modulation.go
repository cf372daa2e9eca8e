// Package modulation implements the optical modulation/demodulation
// schemes of spec.md §4.D: OOK, M-PPM, and DPSK. Grounded on
// original_source/src/modulation/modulation.c (dispatch) and its
// ook.c/ppm.c/dpsk.c for the threshold/ML/differential receiver
// formulas, reworked from the C source's tagged union (Scheme enum +
// void* state) into one Go type per scheme behind a shared Modulator
// interface, per spec.md §9's guidance to use a closed sum type rather
// than a dynamic-dispatch table.
package modulation

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/fso-sim/fsolink/fso"
)

// Modulator is the uniform encode/receive surface shared by every
// scheme (spec §4.D, §6). OOK and PPM traffic in real-valued symbols;
// DPSK in complex-valued ones, so symbols are passed as []complex128
// throughout and OOK/PPM simply carry a zero imaginary part.
type Modulator interface {
	BitsPerSymbol() int
	Modulate(data []byte) []complex128
	Demodulate(symbols []complex128, snrDB float64) ([]byte, error)
}

func bytesToBits(data []byte) []int {
	bits := make([]int, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, int((b>>uint(i))&1))
		}
	}
	return bits
}

func bitsToBytes(bits []int) []byte {
	out := make([]byte, len(bits)/8)
	for i := range out {
		var b byte
		for j := 0; j < 8; j++ {
			b = (b << 1) | byte(bits[i*8+j])
		}
		out[i] = b
	}
	return out
}

// OOK is on-off keying: one bit per symbol, '1' -> 1.0, '0' -> 0.0
// (spec §4.D).
type OOK struct{}

// NewOOK constructs an OOK modulator.
func NewOOK() *OOK { return &OOK{} }

// BitsPerSymbol is always 1 for OOK.
func (o *OOK) BitsPerSymbol() int { return 1 }

// Modulate encodes data MSB-first, one bit per symbol.
func (o *OOK) Modulate(data []byte) []complex128 {
	bits := bytesToBits(data)
	out := make([]complex128, len(bits))
	for i, b := range bits {
		out[i] = complex(float64(b), 0)
	}
	return out
}

// Demodulate applies the adaptive threshold T(SNR) of spec §4.D: 0.5
// for SNR >= 10dB, otherwise clamp(0.5 + 0.1*N/S_linear, 0.3, 0.7).
// Symbol count must be a multiple of 8.
func (o *OOK) Demodulate(symbols []complex128, snrDB float64) ([]byte, error) {
	const op = "OOK.Demodulate"
	if len(symbols)%8 != 0 {
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("symbol count %d is not a multiple of 8", len(symbols)))
	}

	threshold := 0.5
	if snrDB < 10 {
		snrLinear := math.Pow(10, snrDB/10)
		noiseToSignal := 1 / snrLinear
		threshold = clamp(0.5+0.1*noiseToSignal, 0.3, 0.7)
	}

	bits := make([]int, len(symbols))
	for i, s := range symbols {
		if real(s) >= threshold {
			bits[i] = 1
		} else {
			bits[i] = 0
		}
	}
	return bitsToBytes(bits), nil
}

// PPM is M-ary pulse position modulation, M in {2,4,8,16} (spec §4.D).
type PPM struct {
	order      int
	bitsPerSym int
}

// NewPPM constructs a PPM modulator of the given order. order must be
// one of {2,4,8,16}.
func NewPPM(order int) (*PPM, error) {
	const op = "modulation.NewPPM"
	switch order {
	case 2, 4, 8, 16:
	default:
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("ppm order %d not in {2,4,8,16}", order))
	}
	return &PPM{order: order, bitsPerSym: int(math.Log2(float64(order)))}, nil
}

// BitsPerSymbol returns log2(order).
func (p *PPM) BitsPerSymbol() int { return p.bitsPerSym }

// Modulate consumes bits_per_symbol-bit chunks MSB-first, zero-padding
// a final partial chunk, and emits `order` slots per chunk with a
// single 1.0 at the slot equal to the chunk's value (spec §4.D, §9).
func (p *PPM) Modulate(data []byte) []complex128 {
	bits := bytesToBits(data)
	if rem := len(bits) % p.bitsPerSym; rem != 0 {
		bits = append(bits, make([]int, p.bitsPerSym-rem)...)
	}

	nChunks := len(bits) / p.bitsPerSym
	out := make([]complex128, nChunks*p.order)
	for c := 0; c < nChunks; c++ {
		chunk := 0
		for i := 0; i < p.bitsPerSym; i++ {
			chunk = (chunk << 1) | bits[c*p.bitsPerSym+i]
		}
		out[c*p.order+chunk] = complex(1, 0)
	}
	return out
}

// Demodulate arg-maxes each order-wide slot window and reassembles
// bits MSB-first. Symbol count must be a multiple of order (spec §4.D).
func (p *PPM) Demodulate(symbols []complex128, snrDB float64) ([]byte, error) {
	const op = "PPM.Demodulate"
	if len(symbols)%p.order != 0 {
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("symbol count %d is not a multiple of order %d", len(symbols), p.order))
	}

	nChunks := len(symbols) / p.order
	bits := make([]int, 0, nChunks*p.bitsPerSym)
	for c := 0; c < nChunks; c++ {
		best := 0
		bestVal := real(symbols[c*p.order])
		for slot := 1; slot < p.order; slot++ {
			v := real(symbols[c*p.order+slot])
			if v > bestVal {
				bestVal = v
				best = slot
			}
		}
		for i := p.bitsPerSym - 1; i >= 0; i-- {
			bits = append(bits, (best>>uint(i))&1)
		}
	}

	if rem := len(bits) % 8; rem != 0 {
		bits = bits[:len(bits)-rem]
	}
	return bitsToBytes(bits), nil
}

// DPSK is differential phase-shift keying. Phase accumulates across
// successive Modulate/Demodulate calls so that frames share a
// differential reference (spec §3.4, §4.D).
type DPSK struct {
	lastPhase float64

	lastSymbol  complex128
	demodSeeded bool // Demodulate has run at least once on this instance; lastSymbol is live
}

// NewDPSK constructs a DPSK modulator with no prior phase reference.
func NewDPSK() *DPSK { return &DPSK{} }

// BitsPerSymbol is always 1 for DPSK.
func (d *DPSK) BitsPerSymbol() int { return 1 }

// Modulate accumulates phi_n = phi_{n-1} + bit_n*pi, wrapped into
// (-pi, pi], emitting e^{j*phi_n} (spec §4.D).
func (d *DPSK) Modulate(data []byte) []complex128 {
	bits := bytesToBits(data)
	out := make([]complex128, len(bits))
	phase := d.lastPhase
	for i, b := range bits {
		if b == 1 {
			phase += math.Pi
		}
		phase = wrapPhase(phase)
		out[i] = cmplx.Exp(complex(0, phase))
	}
	d.lastPhase = phase
	return out
}

// Demodulate multiplies symbol_n by the conjugate of symbol_{n-1} and
// takes the sign of the real part: negative -> 1, non-negative -> 0
// (spec §4.D). The first call to Demodulate on this instance seeds
// symbol_{-1} at the reference phase 0, independently of whether and
// how many times Modulate has run on it: a real receiver never
// observes the transmitter's phase accumulator, so a shared Modulator
// still carries two independent differential chains, one per
// direction.
func (d *DPSK) Demodulate(symbols []complex128, snrDB float64) ([]byte, error) {
	if len(symbols)%8 != 0 {
		return nil, fso.New(fso.InvalidParam, "DPSK.Demodulate", fmt.Errorf("symbol count %d is not a multiple of 8", len(symbols)))
	}

	prev := d.lastSymbol
	if !d.demodSeeded {
		prev = complex(1, 0)
	}

	bits := make([]int, len(symbols))
	for i, s := range symbols {
		diff := s * cmplx.Conj(prev)
		if real(diff) < 0 {
			bits[i] = 1
		} else {
			bits[i] = 0
		}
		prev = s
	}
	if len(symbols) > 0 {
		d.lastSymbol = symbols[len(symbols)-1]
		d.demodSeeded = true
	}
	return bitsToBytes(bits), nil
}

func wrapPhase(phase float64) float64 {
	for phase > math.Pi {
		phase -= 2 * math.Pi
	}
	for phase <= -math.Pi {
		phase += 2 * math.Pi
	}
	return phase
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
