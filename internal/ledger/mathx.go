package ledger

import "math/bits"

// All amounts are unsigned minor units. Products go through 128-bit
// intermediates; results that do not fit in 64 bits are reported, never wrapped.

func mul(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

func add(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// mulDivRem returns floor(a*b/d) and (a*b) mod d.
func mulDivRem(a, b, d uint64) (q, r uint64, ok bool) {
	if d == 0 {
		return 0, 0, false
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, 0, false
	}
	q, r = bits.Div64(hi, lo, d)
	return q, r, true
}

func mulDiv(a, b, d uint64) (uint64, bool) {
	q, _, ok := mulDivRem(a, b, d)
	return q, ok
}

// ceilDiv returns ceil(a/b) for b > 0.
func ceilDiv(a, b uint64) uint64 {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}
