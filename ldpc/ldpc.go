// Package ldpc implements a regular sparse-matrix LDPC(n,k) codec with
// systematic encoding and sum-product (belief-propagation) decoding.
// Grounded on spec.md §4.C and the matrix layout of
// original_source/src/fec/ldpc.{h,c} (SparseMatrix CSR, edge
// connectivity lists, GF(2) Gaussian elimination for the generator).
// Per spec.md §9, per-edge messages are stored compressed to nnz-sized
// arrays indexed through the edge lists (representation (b)), rather
// than the C source's dense n*m layout.
package ldpc

import (
	"fmt"
	"math"

	"github.com/fso-sim/fsolink/fso"
	"github.com/fso-sim/fsolink/logx"
	"github.com/samber/lo"
)

// rateTable maps standard code rates to the (d_v, d_c) regular-graph
// degree pair of spec.md §4.C.
var rateTable = map[string][2]int{
	"1/2": {3, 6},
	"2/3": {4, 8},
	"3/4": {5, 10},
	"5/6": {6, 12},
}

// channelLLR0 is the hard-decision channel LLR magnitude L0 ~ 10 of
// spec.md §4.C; a soft demodulator interface would replace this with
// a computed LLR.
const channelLLR0 = 10.0

// clampEps and clampMax bound BP message magnitudes into [epsilon, M].
const (
	clampEps = 1e-6
	clampMax = 10.0
)

// Config configures the BP decoder loop.
type Config struct {
	MaxIterations int // default 50
	Logger        logx.Logger
}

// edge is one nonzero entry of H, connecting check node C to variable
// node V.
type edge struct {
	check int
	vrbl  int
}

// Codec owns H (CSR + edge list), G (CSR), the bipartite connectivity
// lists, and the BP message/LLR workspace, all sized once at
// construction and reused across frames (spec §3.3).
type Codec struct {
	n, k, m int
	dv, dc  int
	log     logx.Logger
	maxIter int

	edges []edge

	// varEdges[v] / checkEdges[c] list indices into edges for the
	// node's incident edges.
	varEdges   [][]int
	checkEdges [][]int

	// G in CSR-ish form: for each information row i in [0,k), the list
	// of parity-column indices (relative to the last m columns) set to
	// 1. Columns [0,k) are always identity and are not stored.
	parityRows [][]int

	// BP workspace, one entry per edge, reused across Decode calls.
	msgVtoC []float64
	msgCtoV []float64
	channel []float64 // per-variable channel LLR
	post    []float64 // per-variable posterior LLR
	hard    []int     // per-variable hard decision
	syn     []int     // per-check syndrome
}

// New constructs LDPCCodec(n, k, cfg). rate = k/n must land on one of
// spec.md §4.C's standard rates {1/2, 2/3, 3/4, 5/6}.
func New(n, k int, cfg Config) (*Codec, error) {
	const op = "ldpc.New"
	if n <= 0 || k <= 0 || k >= n {
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("require 0 < k < n, got n=%d k=%d", n, k))
	}
	m := n - k

	dv, dc, err := degreesForRate(n, k)
	if err != nil {
		return nil, fso.New(fso.InvalidParam, op, err)
	}
	if n*dv != m*dc {
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("n*dv(%d) != m*dc(%d) for n=%d k=%d", n*dv, m*dc, n, k))
	}

	log := cfg.Logger
	if log == nil {
		log = logx.Null
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 50
	}

	c := &Codec{
		n: n, k: k, m: m, dv: dv, dc: dc,
		log:     log,
		maxIter: maxIter,
	}
	c.buildParityCheck()
	c.buildGenerator()

	c.msgVtoC = make([]float64, len(c.edges))
	c.msgCtoV = make([]float64, len(c.edges))
	c.channel = make([]float64, n)
	c.post = make([]float64, n)
	c.hard = make([]int, n)
	c.syn = make([]int, m)

	return c, nil
}

func degreesForRate(n, k int) (int, int, error) {
	rate := float64(k) / float64(n)
	best := ""
	bestDiff := math.MaxFloat64
	for name, dvdc := range rateTable {
		var num, den int
		fmt.Sscanf(name, "%d/%d", &num, &den)
		diff := math.Abs(rate - float64(num)/float64(den))
		if diff < bestDiff {
			bestDiff = diff
			best = name
			_ = dvdc
		}
	}
	if best == "" || bestDiff > 1e-6 {
		return 0, 0, fmt.Errorf("rate k/n=%d/%d is not one of {1/2,2/3,3/4,5/6}", k, n)
	}
	dvdc := rateTable[best]
	return dvdc[0], dvdc[1], nil
}

// N returns the codeword length.
func (c *Codec) N() int { return c.n }

// K returns the information-bit count.
func (c *Codec) K() int { return c.k }

// M returns the parity-bit count n-k.
func (c *Codec) M() int { return c.m }

// buildParityCheck constructs H per spec.md §4.C's shift-increment
// regular construction, probing forward modulo m on collision.
func (c *Codec) buildParityCheck() {
	m := c.m
	seen := make(map[[2]int]bool, c.n*c.dv)
	edges := make([]edge, 0, c.n*c.dv)

	shiftDenom := m / c.dv
	if shiftDenom == 0 {
		shiftDenom = 1
	}

	for v := 0; v < c.n; v++ {
		for e := 0; e < c.dv; e++ {
			check := (v*c.dv + e + e*shiftDenom) % m
			for seen[[2]int{check, v}] {
				check = (check + 1) % m
			}
			seen[[2]int{check, v}] = true
			edges = append(edges, edge{check: check, vrbl: v})
		}
	}
	c.edges = edges

	c.varEdges = make([][]int, c.n)
	c.checkEdges = make([][]int, m)
	for idx, e := range edges {
		c.varEdges[e.vrbl] = append(c.varEdges[e.vrbl], idx)
		c.checkEdges[e.check] = append(c.checkEdges[e.check], idx)
	}
}

// isSetH reports whether H has a 1 at (check, v) by scanning the
// variable's (short, d_v-length) edge list.
func (c *Codec) isSetH(check, v int) bool {
	for _, idx := range c.varEdges[v] {
		if c.edges[idx].check == check {
			return true
		}
	}
	return false
}

// buildGenerator densifies H, runs GF(2) Gaussian elimination to bring
// the last m columns to identity (H = [P^T | I]), and extracts
// G = [I_k | P] (spec §4.C / §9).
func (c *Codec) buildGenerator() {
	m, n, k := c.m, c.n, c.k

	dense := make([][]bool, m)
	for i := range dense {
		dense[i] = make([]bool, n)
	}
	for _, e := range c.edges {
		dense[e.check][e.vrbl] = true
	}

	pivotRow := 0
	pivotCol := make([]int, 0, m) // pivotCol[row] = column pivoted in that row
	for col := k; col < n && pivotRow < m; col++ {
		found := -1
		for row := pivotRow; row < m; row++ {
			if dense[row][col] {
				found = row
				break
			}
		}
		if found == -1 {
			continue
		}
		dense[pivotRow], dense[found] = dense[found], dense[pivotRow]
		for row := 0; row < m; row++ {
			if row != pivotRow && dense[row][col] {
				for cc := 0; cc < n; cc++ {
					dense[row][cc] = dense[row][cc] != dense[pivotRow][cc]
				}
			}
		}
		pivotCol = append(pivotCol, col)
		pivotRow++
	}

	// P[j][i] = H[i][j] for j<k, i in [0,m): row i of P^T is column j of
	// the systematic H; G's row j (j<k) carries P's row j in the parity
	// columns.
	c.parityRows = make([][]int, k)
	for j := 0; j < k; j++ {
		var cols []int
		for i := 0; i < m; i++ {
			if dense[i][j] {
				cols = append(cols, i)
			}
		}
		c.parityRows[j] = cols
	}
}

// Encode places k information bits systematically into the first k
// positions and XORs each set information bit's parity row into the
// last m positions (spec §4.C).
func (c *Codec) Encode(bits []int) ([]int, error) {
	const op = "ldpc.Encode"
	if len(bits) != c.k {
		return nil, fso.New(fso.InvalidParam, op, fmt.Errorf("need %d info bits, got %d", c.k, len(bits)))
	}
	out := make([]int, c.n)
	copy(out, bits)
	for i, b := range bits {
		if b == 0 {
			continue
		}
		for _, col := range c.parityRows[i] {
			out[c.k+col] ^= 1
		}
	}
	return out, nil
}

// Syndrome computes H*codeword mod 2 into dst (len m). Used by tests to
// verify spec §8 invariant 4.
func (c *Codec) Syndrome(codeword []int, dst []int) {
	for i := range dst {
		dst[i] = 0
	}
	for _, e := range c.edges {
		dst[e.check] ^= codeword[e.vrbl]
	}
}

// phi is the sum-product check-node nonlinearity phi(x) = -log(tanh(x/2)),
// self-inverse, with the small/large-x asymptotes of spec.md §9 to avoid
// log(0) and tanh saturation.
func phi(x float64) float64 {
	switch {
	case x < 1e-10:
		return clampMax
	case x > 10:
		return math.Exp(-x)
	default:
		v := -math.Log(math.Tanh(x / 2))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return clampMax
		}
		return clamp(v, clampEps, clampMax)
	}
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

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// Decode runs up to cfg.MaxIterations rounds of sum-product BP on hard
// channel decisions and returns the best available k-bit hard decision
// together with the number of corrected bits (vs. the received hard
// decisions) and whether the syndrome converged to zero. Non-convergence
// is reported, not an error (spec §7).
func (c *Codec) Decode(received []int) (bits []int, corrected int, converged bool, err error) {
	const op = "ldpc.Decode"
	if len(received) != c.n {
		return nil, 0, false, fso.New(fso.InvalidParam, op, fmt.Errorf("need %d received bits, got %d", c.n, len(received)))
	}

	for v := 0; v < c.n; v++ {
		if received[v] == 0 {
			c.channel[v] = channelLLR0
		} else {
			c.channel[v] = -channelLLR0
		}
	}
	for idx, e := range c.edges {
		c.msgVtoC[idx] = c.channel[e.vrbl]
	}

	for iter := 0; iter < c.maxIter; iter++ {
		// Check update: for every edge (c,v), combine all other
		// incoming variable messages into c.
		for check := 0; check < c.m; check++ {
			incident := c.checkEdges[check]
			for _, idx := range incident {
				prodSign := 1.0
				sumPhi := 0.0
				for _, other := range incident {
					if other == idx {
						continue
					}
					mv := c.msgVtoC[other]
					prodSign *= sign(mv)
					sumPhi += phi(math.Abs(mv))
				}
				mag := phi(sumPhi) // phi is self-inverse
				c.msgCtoV[idx] = prodSign * clamp(mag, clampEps, clampMax)
			}
		}

		// Variable update: for every edge (v,c), L_v plus all other
		// incoming check messages.
		for v := 0; v < c.n; v++ {
			incident := c.varEdges[v]
			total := c.channel[v]
			for _, idx := range incident {
				total += c.msgCtoV[idx]
			}
			for _, idx := range incident {
				c.msgVtoC[idx] = total - c.msgCtoV[idx]
			}
		}

		// Posterior + hard decision.
		for v := 0; v < c.n; v++ {
			total := c.channel[v]
			for _, idx := range c.varEdges[v] {
				total += c.msgCtoV[idx]
			}
			c.post[v] = total
			if total < 0 {
				c.hard[v] = 1
			} else {
				c.hard[v] = 0
			}
		}

		c.Syndrome(c.hard, c.syn)
		if lo.EveryBy(c.syn, func(s int) bool { return s == 0 }) {
			converged = true
			break
		}
	}

	if !converged {
		c.log.Warnf("ldpc", "BP did not converge within %d iterations", c.maxIter)
	}

	corrected = 0
	for v := 0; v < c.n; v++ {
		if c.hard[v] != received[v] {
			corrected++
		}
	}

	out := make([]int, c.k)
	copy(out, c.hard[:c.k])
	return out, corrected, converged, nil
}
