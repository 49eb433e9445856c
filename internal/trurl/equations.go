// Package trurl implements the equation-guided bound derivation the engine
// uses to narrow the search for a semiprime's smaller factor: the y(x),
// constraint(x), critical-x, and x-at-y-equals-one functions, plus the
// inverse-monotonicity checks that justify treating the region below
// critical_x as a valid search space.
//
// Every function here is pure: given N (and, for some, x or y), it returns a
// value with no hidden state. N need not actually be prime-free; the solver
// works on the assumption that N = x*y for some factor pair near the curve,
// which the engine uses as a heuristic, not a proof.
package trurl

import (
	"math"
	"math/big"

	"github.com/Deenyoro/SubPrimeDivide/internal/bigint"
)

var (
	bigTwo = big.NewInt(2)
)

// YOfX computes y_of_x(x) = floor((N^2/x + x^2) / N).
//
// Identity: if N = x*y, then YOfX(N, x) = y + floor(x/y). When x <= y this
// collapses to exactly y (floor(x/y) = 0).
func YOfX(n, x *big.Int) *big.Int {
	nSq := bigint.Mul(n, n)
	term1, _ := bigint.Div(nSq, x)
	term2 := bigint.Mul(x, x)
	sum := bigint.Add(term1, term2)
	result, _ := bigint.Div(sum, n)
	return result
}

// Constraint computes constraint(x) = floor(floor((N^2/x + x^2)/x) / N).
//
// When x exactly divides N, this is (algebraically, not necessarily exactly
// under floor division) y/x + 1/y; otherwise it is an approximation used
// only as a secondary diagnostic, never as a primality or divisibility
// proof.
func Constraint(n, x *big.Int) *big.Int {
	nSq := bigint.Mul(n, n)
	term1, _ := bigint.Div(nSq, x)
	term2 := bigint.Mul(x, x)
	sum := bigint.Add(term1, term2)
	inner, _ := bigint.Div(sum, x)
	result, _ := bigint.Div(inner, n)
	return result
}

// CriticalX returns floor((N^2/2)^(1/3)), the unique x at which y_of_x stops
// being monotone decreasing. Search ranges must lie strictly below this
// value for VerifyInverse to hold.
func CriticalX(n *big.Int) *big.Int {
	nSq := bigint.Mul(n, n)
	half, _ := bigint.Div(nSq, bigTwo)
	return bigint.ICbrt(half)
}

// XAtYEqualsOne finds the root of x^3 - N*x^2 + N^2 = 0 via Newton's method,
// starting from x0 ~= 10^((2/3) log10 N). Convergence is declared when
// |delta x| <= max(1, x/10^6); the iteration is capped at 100 steps. ok is
// false if the cap is reached without convergence.
func XAtYEqualsOne(n *big.Int) (x *big.Int, ok bool) {
	logN := bigint.Log10(n)
	seedExp := (2.0 / 3.0) * logN
	x = seedFromLog10(seedExp)
	if x.Sign() == 0 {
		x = big.NewInt(1)
	}

	nSq := bigint.Mul(n, n)
	million := big.NewInt(1_000_000)

	for i := 0; i < 100; i++ {
		// f(x)  = x^3 - N*x^2 + N^2
		// f'(x) = 3x^2 - 2*N*x
		x2 := bigint.Mul(x, x)
		x3 := bigint.Mul(x2, x)
		nx2 := bigint.Mul(n, x2)
		fx := bigint.Add(bigint.Sub(x3, nx2), nSq)

		fpx := bigint.Sub(bigint.Mul(big.NewInt(3), x2), bigint.Mul(big.NewInt(2), bigint.Mul(n, x)))
		if fpx.Sign() == 0 {
			break
		}
		delta, _ := bigint.Div(fx, fpx)
		next := bigint.Sub(x, delta)
		if next.Sign() <= 0 {
			next = big.NewInt(1)
		}

		absDelta := new(big.Int).Abs(bigint.Sub(next, x))
		threshold, _ := bigint.Div(next, million)
		if threshold.Cmp(big.NewInt(1)) < 0 {
			threshold = big.NewInt(1)
		}
		x = next
		if absDelta.Cmp(threshold) <= 0 {
			return x, true
		}
	}
	return x, false
}

// seedFromLog10 converts an approximate base-10 exponent into a *big.Int
// seed, 10^exp, built digit-by-digit so it never overflows float64 even for
// very large exponents.
func seedFromLog10(exp float64) *big.Int {
	if exp <= 0 {
		return big.NewInt(1)
	}
	intPart := int64(exp)
	frac := exp - float64(intPart)
	lead := int64(math.Pow(10, frac) * 1e9) // 9-10 significant digits of the mantissa
	seed := big.NewInt(lead)
	// seed currently represents mantissa * 10^9; shift to reach 10^exp.
	shift := intPart - 9
	ten := big.NewInt(10)
	if shift > 0 {
		seed.Mul(seed, new(big.Int).Exp(ten, big.NewInt(shift), nil))
	} else if shift < 0 {
		seed.Quo(seed, new(big.Int).Exp(ten, big.NewInt(-shift), nil))
	}
	if seed.Sign() <= 0 {
		seed.SetInt64(1)
	}
	return seed
}
