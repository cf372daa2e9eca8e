// Package reedsolomon implements a systematic Reed-Solomon RS(n,k) codec
// over GF(2^m) with Berlekamp-Massey / Chien / Forney decoding.
// Grounded on spec.md §4.B and the table layout of
// original_source/src/fec/reed_solomon.{h,c} (GaloisField + RSCodec
// workspace arrays reused across frames), generalized from the C
// malloc'd workspace to Go-owned slices sized once at construction.
package reedsolomon

import (
	"fmt"

	"github.com/fso-sim/fsolink/fso"
	"github.com/fso-sim/fsolink/galois"
	"github.com/fso-sim/fsolink/logx"
	"github.com/fso-sim/fsolink/parallel"
)

// Config mirrors the C RSConfig: first-consecutive-root index, symbol
// size and primitive polynomial. Logger is optional (defaults to
// logx.Null).
type Config struct {
	FCR           int
	SymbolSize    int
	PrimitivePoly int
	Logger        logx.Logger
}

// Stats reports the outcome of a Decode call, per spec §4.B/§7.
type Stats struct {
	Detected      int
	Corrected     int
	Uncorrectable bool
}

// Codec is an RS(n,k) codec over GF(2^symbol_size). It owns its field
// and all decode workspace arrays, reused across frames (spec §3.2).
type Codec struct {
	gf  *galois.Field
	n   int
	k   int
	r   int // parity length, n-k
	t   int // correction capacity, r/2
	fcr int
	log logx.Logger

	genPoly []int // generator polynomial, length r+1, low-to-high degree
	encGen  []int // genPoly reversed (high-to-low) for the division loop in Encode

	// Reused workspace, sized once.
	syndrome []int
	errLoc   []int // Lambda(x), length up to t+1
	errEval  []int // Omega(x), length up to t
	errPos   []int
	errVal   []int
}

// New constructs RSCodec(n, k, cfg). k == n is rejected (spec §4.B edge
// cases); parity length r = n-k must be >= 2 for t >= 1.
func New(n, k int, cfg Config) (*Codec, error) {
	const op = "reedsolomon.New"
	if n <= 0 || k <= 0 || k >= n {
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("require 0 < k < n, got n=%d k=%d", n, k))
	}
	gf, err := galois.New(cfg.SymbolSize, cfg.PrimitivePoly)
	if err != nil {
		return nil, fso.New(fso.InvalidParam, op, err)
	}
	if n >= gf.Size() {
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("n=%d must be < field size %d", n, gf.Size()))
	}

	r := n - k
	t := r / 2
	log := cfg.Logger
	if log == nil {
		log = logx.Null
	}

	c := &Codec{
		gf:       gf,
		n:        n,
		k:        k,
		r:        r,
		t:        t,
		fcr:      cfg.FCR,
		log:      log,
		syndrome: make([]int, r),
		errLoc:   make([]int, t+1),
		errEval:  make([]int, t),
		errPos:   make([]int, t),
		errVal:   make([]int, t),
	}
	c.genPoly = c.buildGenerator()
	c.encGen = make([]int, len(c.genPoly))
	for i, v := range c.genPoly {
		c.encGen[len(c.genPoly)-1-i] = v
	}
	return c, nil
}

// N returns the codeword length.
func (c *Codec) N() int { return c.n }

// K returns the information-symbol count.
func (c *Codec) K() int { return c.k }

// T returns the correction capacity floor((n-k)/2).
func (c *Codec) T() int { return c.t }

// buildGenerator computes g(x) = prod_{i=0}^{r-1} (x - alpha^(fcr+i))
// over GF(2^m), per spec §4.B. Representation is low-to-high degree,
// length r+1, monic (leading coefficient 1).
func (c *Codec) buildGenerator() []int {
	g := []int{1}
	for i := 0; i < c.r; i++ {
		root := c.gf.Exp(c.fcr + i)
		next := make([]int, len(g)+1)
		next[0] = c.gf.Mul(g[0], root)
		for j := 1; j < len(g); j++ {
			next[j] = c.gf.Add(g[j-1], c.gf.Mul(g[j], root))
		}
		next[len(g)] = g[len(g)-1]
		g = next
	}
	return g
}

// Encode places k information symbols systematically into the first k
// positions of an n-symbol codeword and computes r parity symbols by
// polynomial long division (spec §4.B).
func (c *Codec) Encode(data []int) ([]int, error) {
	const op = "reedsolomon.Encode"
	if len(data) != c.k {
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("need %d data symbols, got %d", c.k, len(data)))
	}

	buf := make([]int, c.n)
	copy(buf, data)

	// encGen[0] is the generator's monic leading coefficient, so
	// buf[i] ^= f*encGen[0] == buf[i] ^ f cancels to zero — this is the
	// standard shift-register division: by the time i reaches k, buf[:k]
	// holds zeros and buf[k:] holds the remainder (parity).
	for i := 0; i < c.k; i++ {
		f := buf[i]
		if f == 0 {
			continue
		}
		for j := 0; j <= c.r; j++ {
			buf[i+j] = c.gf.Add(buf[i+j], c.gf.Mul(f, c.encGen[j]))
		}
	}
	copy(buf[:c.k], data)

	c.log.Debugf("reedsolomon", "encoded %d symbols -> %d (r=%d)", c.k, c.n, c.r)
	return buf, nil
}

// EncodeBatch encodes a batch of independent k-symbol frames, using the
// parallel package's worker pool across frames (spec §5: encode is over
// data-independent ranges and may be parallelized).
func (c *Codec) EncodeBatch(frames [][]int) ([][]int, error) {
	out := make([][]int, len(frames))
	var firstErr error
	parallel.ForEachRange(len(frames), func(i int) {
		cw, err := c.Encode(frames[i])
		if err != nil {
			firstErr = err
			return
		}
		out[i] = cw
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// computeSyndrome evaluates the received polynomial at alpha^(fcr+i)
// for i in [0,r), storing into c.syndrome and reporting whether every
// syndrome is zero (no detected errors). received[0] is the
// highest-degree coefficient, the same order Encode writes.
func (c *Codec) computeSyndrome(received []int) bool {
	allZero := true
	for i := 0; i < c.r; i++ {
		alphaPower := c.gf.Exp(c.fcr + i)
		s := 0
		for j := 0; j < c.n; j++ {
			s = c.gf.Add(c.gf.Mul(s, alphaPower), received[j])
		}
		c.syndrome[i] = s
		if s != 0 {
			allZero = false
		}
	}
	return allZero
}

// berlekampMassey computes the error-locator polynomial Lambda(x) from
// c.syndrome. Returns Lambda (low-to-high degree) and its degree nu.
func (c *Codec) berlekampMassey() ([]int, int) {
	gf := c.gf
	cPoly := make([]int, c.r+2)
	bPoly := make([]int, c.r+2)
	cPoly[0] = 1
	bPoly[0] = 1
	l := 0
	m := 1
	b := 1

	for n := 0; n < c.r; n++ {
		delta := c.syndrome[n]
		for i := 1; i <= l; i++ {
			delta = gf.Add(delta, gf.Mul(cPoly[i], c.syndrome[n-i]))
		}

		if delta == 0 {
			m++
			continue
		}

		t := make([]int, len(cPoly))
		copy(t, cPoly)

		coef := gf.Div(delta, b)
		for i := 0; i+m < len(cPoly); i++ {
			cPoly[i+m] = gf.Add(cPoly[i+m], gf.Mul(coef, bPoly[i]))
		}

		if 2*l <= n {
			l = n + 1 - l
			copy(bPoly, t)
			b = delta
			m = 1
		} else {
			m++
		}
	}

	lambda := make([]int, l+1)
	copy(lambda, cPoly[:l+1])
	return lambda, l
}

// chienSearch evaluates Lambda(x) at x = alpha^-i for i in [0,n) and
// returns the error positions found (spec §4.B).
func (c *Codec) chienSearch(lambda []int) []int {
	gf := c.gf
	var positions []int
	for i := 0; i < c.n; i++ {
		x := gf.Exp(-i)
		v := 0
		xp := 1
		for _, coef := range lambda {
			v = gf.Add(v, gf.Mul(coef, xp))
			xp = gf.Mul(xp, x)
		}
		if v == 0 {
			positions = append(positions, i)
		}
	}
	return positions
}

// formalDerivative returns Lambda'(x): over GF(2) characteristic, only
// odd-degree terms survive, shifted down by one degree.
func formalDerivative(lambda []int) []int {
	if len(lambda) <= 1 {
		return []int{0}
	}
	deriv := make([]int, len(lambda)-1)
	for i := 1; i < len(lambda); i += 2 {
		deriv[i-1] = lambda[i]
	}
	return deriv
}

func evalPoly(gf *galois.Field, poly []int, x int) int {
	v := 0
	xp := 1
	for _, coef := range poly {
		v = gf.Add(v, gf.Mul(coef, xp))
		xp = gf.Mul(xp, x)
	}
	return v
}

// forney computes error magnitudes for the given error positions, per
// spec §4.B: Omega(x) = (S(x)*Lambda(x)) mod x^r; e_j = Omega(alpha^-j) /
// Lambda'(alpha^-j).
func (c *Codec) forney(lambda []int, positions []int) []int {
	gf := c.gf

	omega := make([]int, c.r)
	for i := 0; i < c.r; i++ {
		sum := 0
		for j := 0; j <= i && j < len(lambda); j++ {
			if i-j < c.r {
				sum = gf.Add(sum, gf.Mul(c.syndrome[i-j], lambda[j]))
			}
		}
		omega[i] = sum
	}

	deriv := formalDerivative(lambda)

	values := make([]int, len(positions))
	for idx, pos := range positions {
		xInv := gf.Exp(-pos)
		num := evalPoly(gf, omega, xInv)
		den := evalPoly(gf, deriv, xInv)
		if den == 0 {
			values[idx] = 0
			continue
		}
		values[idx] = gf.Div(num, den)
	}
	return values
}

// Decode corrects up to t symbol errors in received (length n) and
// returns the k information symbols plus Stats. On uncorrectable input
// (spec §4.B/§7) it returns the first k received symbols unmodified with
// Stats.Uncorrectable = true, promoted to a nil error: this matches
// standard FEC practice, not a failure of the operation itself.
func (c *Codec) Decode(received []int) ([]int, Stats, error) {
	const op = "reedsolomon.Decode"
	if len(received) != c.n {
		return nil, Stats{}, fso.New(fso.InvalidParam, op, fmt.Errorf("need %d received symbols, got %d", c.n, len(received)))
	}

	if c.computeSyndrome(received) {
		out := make([]int, c.k)
		copy(out, received[:c.k])
		return out, Stats{}, nil
	}

	lambda, nu := c.berlekampMassey()
	if nu > c.t {
		c.log.Warnf("reedsolomon", "uncorrectable: locator degree %d exceeds t=%d", nu, c.t)
		out := make([]int, c.k)
		copy(out, received[:c.k])
		return out, Stats{Detected: nu, Uncorrectable: true}, nil
	}

	positions := c.chienSearch(lambda)
	if len(positions) != nu {
		c.log.Warnf("reedsolomon", "uncorrectable: chien search found %d roots, expected %d", len(positions), nu)
		out := make([]int, c.k)
		copy(out, received[:c.k])
		return out, Stats{Detected: nu, Uncorrectable: true}, nil
	}

	values := c.forney(lambda, positions)

	// positions are polynomial degrees; degree d sits at index n-1-d.
	corrected := make([]int, c.n)
	copy(corrected, received)
	for i, pos := range positions {
		idx := c.n - 1 - pos
		corrected[idx] = c.gf.Add(corrected[idx], values[i])
	}

	out := make([]int, c.k)
	copy(out, corrected[:c.k])
	return out, Stats{Detected: nu, Corrected: nu}, nil
}

// DecodeBatch decodes a batch of independent n-symbol frames in
// parallel across a worker pool (spec §5).
func (c *Codec) DecodeBatch(frames [][]int) ([][]int, []Stats, error) {
	out := make([][]int, len(frames))
	stats := make([]Stats, len(frames))
	var firstErr error
	parallel.ForEachRange(len(frames), func(i int) {
		data, st, err := c.Decode(frames[i])
		if err != nil {
			firstErr = err
			return
		}
		out[i] = data
		stats[i] = st
	})
	if firstErr != nil {
		return nil, nil, firstErr
	}
	return out, stats, nil
}
