// Package galois implements GF(2^m) finite-field arithmetic: table
// construction once per field, then O(1) multiply/divide/power/inverse
// lookups and XOR addition. Grounded on spec.md §4.A and
// original_source/src/fec/reed_solomon.{h,c}'s GaloisField struct,
// reworked as an owned value type instead of a malloc'd table triple.
package galois

import (
	"fmt"

	"github.com/fso-sim/fsolink/fso"
)

// Field is GF(2^m), m in [3,16], built from a primitive polynomial of
// degree m. Once constructed its tables never change.
type Field struct {
	m    int
	q    int // field size, 2^m
	poly int

	// exp is stored doubled-length (2q-2) so Mul never needs a
	// conditional subtract when indexing exp[log_a + log_b].
	exp []int
	log []int
	inv []int
}

// New builds GF(2^m) from primitive polynomial poly (degree m). Returns
// an *fso.Error with Kind InvalidParam if m is out of range or poly has
// the wrong degree.
func New(m int, poly int) (*Field, error) {
	if m < 3 || m > 16 {
		return nil, fso.New(fso.InvalidParam, "galois.New", fmt.Errorf("m=%d out of range [3,16]", m))
	}
	q := 1 << uint(m)
	if poly < q || poly >= (q<<1) {
		return nil, fso.New(fso.InvalidParam, "galois.New", fmt.Errorf("primitive_poly=0x%x has wrong degree for m=%d", poly, m))
	}

	f := &Field{
		m:    m,
		q:    q,
		poly: poly,
		exp:  make([]int, 2*q-2),
		log:  make([]int, q),
		inv:  make([]int, q),
	}

	f.exp[0] = 1
	for i := 1; i < q-1; i++ {
		v := f.exp[i-1] << 1
		if v >= q {
			v ^= poly
		}
		f.exp[i] = v
		f.log[f.exp[i]] = i
	}
	f.log[0] = 0 // unused sentinel index; 0 has no logarithm
	for i := q - 1; i < 2*q-2; i++ {
		f.exp[i] = f.exp[i-(q-1)]
	}

	f.inv[0] = 0 // reserved sentinel, never consumed
	for x := 1; x < q; x++ {
		f.inv[x] = f.exp[(q-1)-f.log[x]]
	}

	return f, nil
}

// Size returns the field size q = 2^m.
func (f *Field) Size() int { return f.q }

// M returns the field's extension degree.
func (f *Field) M() int { return f.m }

// Add is XOR; also used for subtraction since GF(2^m) addition is its
// own inverse.
func (f *Field) Add(a, b int) int { return a ^ b }

// Mul multiplies a and b in GF(2^m).
func (f *Field) Mul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return f.exp[f.log[a]+f.log[b]]
}

// Div divides a by b in GF(2^m). Dividing by zero returns 0.
func (f *Field) Div(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	idx := f.log[a] - f.log[b]
	if idx < 0 {
		idx += f.q - 1
	}
	return f.exp[idx]
}

// Pow raises a to the n-th power, n >= 0.
func (f *Field) Pow(a int, n int) int {
	if a == 0 {
		if n == 0 {
			return 1
		}
		return 0
	}
	idx := (f.log[a] * n) % (f.q - 1)
	if idx < 0 {
		idx += f.q - 1
	}
	return f.exp[idx]
}

// Inv returns the multiplicative inverse of a. Inv(0) is the reserved
// sentinel 0 and must not be consumed by callers.
func (f *Field) Inv(a int) int {
	if a == 0 {
		return 0
	}
	return f.inv[a]
}

// Exp returns alpha^i, wrapping i into the doubled exp table so callers
// never need to reduce modulo q-1 themselves.
func (f *Field) Exp(i int) int {
	n := f.q - 1
	i %= n
	if i < 0 {
		i += n
	}
	return f.exp[i]
}

// Log returns log_alpha(x) for x != 0.
func (f *Field) Log(x int) int { return f.log[x] }
