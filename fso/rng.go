package fso

import (
	"math"
	"math/rand"
	"time"
)

// RNG is the host-provided random source every stochastic core component
// (channel fading and AWGN) draws from. It is per-task: a single RNG must not be shared across
// concurrently-running tasks. A zero seed means "derive from wall-clock".
type RNG interface {
	// Uniform returns a value in [0, 1).
	Uniform() float64
	// Gaussian returns a draw from N(0, 1).
	Gaussian() float64
	// IntN returns a uniform integer in [0, n).
	IntN(n int) int
}

// DefaultRNG is a math/rand-backed RNG with a cached Box-Muller spare,
// implementing Gaussian draws via Box-Muller with one cached spare
// rather than discarding the second independent sample each call.
type DefaultRNG struct {
	src        *rand.Rand
	haveSpare  bool
	spare      float64
}

// NewRNG constructs a per-task RNG. seed == 0 derives a seed from
// wall-clock time plus taskID, so two tasks calling NewRNG(0, id) at the
// same instant with different ids still diverge.
func NewRNG(seed int64, taskID int64) *DefaultRNG {
	if seed == 0 {
		seed = time.Now().UnixNano() + taskID
	}
	return &DefaultRNG{src: rand.New(rand.NewSource(seed))}
}

func (r *DefaultRNG) Uniform() float64 { return r.src.Float64() }

func (r *DefaultRNG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return r.src.Intn(n)
}

// Gaussian implements Box-Muller, caching the second independent draw
// for the next call instead of discarding it.
func (r *DefaultRNG) Gaussian() float64 {
	if r.haveSpare {
		r.haveSpare = false
		return r.spare
	}
	var u1, u2 float64
	for {
		u1 = r.src.Float64()
		if u1 > 1e-300 {
			break
		}
	}
	u2 = r.src.Float64()
	mag := math.Sqrt(-2.0 * math.Log(u1))
	z0 := mag * math.Cos(2*math.Pi*u2)
	z1 := mag * math.Sin(2*math.Pi*u2)
	r.spare = z1
	r.haveSpare = true
	return z0
}
