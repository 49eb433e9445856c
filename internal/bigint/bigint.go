// Package bigint is the arbitrary-precision arithmetic façade shared by the
// engine's packages. It adds the operations math/big lacks and wraps
// division so that a zero divisor returns ErrDivByZero instead of panicking.
// Other packages still call math/big methods directly for plain arithmetic.
package bigint

import (
	"crypto/rand"
	"errors"
	"math"
	"math/big"
)

// ErrDivByZero is returned by Div/Mod/DivMod in place of the panic math/big
// would otherwise raise.
var ErrDivByZero = errors.New("bigint: division by zero")

// Int is an alias kept local so call sites read naturally (bigint.Int instead
// of big.Int) without introducing a second type.
type Int = big.Int

// New wraps an int64 as an *Int.
func New(v int64) *Int { return big.NewInt(v) }

// FromString parses a decimal string into an *Int. ok is false for malformed
// input.
func FromString(s string) (*Int, bool) {
	return new(big.Int).SetString(s, 10)
}

// Add returns a+b.
func Add(a, b *Int) *Int { return new(big.Int).Add(a, b) }

// Sub returns a-b.
func Sub(a, b *Int) *Int { return new(big.Int).Sub(a, b) }

// Mul returns a*b.
func Mul(a, b *Int) *Int { return new(big.Int).Mul(a, b) }

// DivMod returns (a/b, a%b) using Euclidean division (b's sign does not
// affect the sign of the remainder), or ErrDivByZero if b is zero.
func DivMod(a, b *Int) (q, r *Int, err error) {
	if b.Sign() == 0 {
		return nil, nil, ErrDivByZero
	}
	q, r = new(big.Int), new(big.Int)
	q.DivMod(a, b, r)
	return q, r, nil
}

// Div returns a/b (floor division), or ErrDivByZero.
func Div(a, b *Int) (*Int, error) {
	q, _, err := DivMod(a, b)
	return q, err
}

// Mod returns a mod b (non-negative for positive b), or ErrDivByZero.
func Mod(a, b *Int) (*Int, error) {
	_, r, err := DivMod(a, b)
	return r, err
}

// ModPow computes a^e mod n. Mirrors spec's mod_pow(a,e,n).
func ModPow(a, e, n *Int) (*Int, error) {
	if n.Sign() == 0 {
		return nil, ErrDivByZero
	}
	return new(big.Int).Exp(a, e, n), nil
}

// GCD returns gcd(|a|,|b|).
func GCD(a, b *Int) *Int {
	return new(big.Int).GCD(nil, nil, new(big.Int).Abs(a), new(big.Int).Abs(b))
}

// ISqrt returns the integer (floor) square root of n. Panics if n is
// negative, matching math/big.Int.Sqrt's contract.
func ISqrt(n *Int) *Int {
	return new(big.Int).Sqrt(n)
}

// IsSquare reports whether n is a perfect square.
func IsSquare(n *Int) bool {
	if n.Sign() < 0 {
		return false
	}
	r := ISqrt(n)
	return Mul(r, r).Cmp(n) == 0
}

// Jacobi returns the Jacobi symbol (a/n) for odd n > 0.
func Jacobi(a, n *Int) int {
	return big.Jacobi(a, n)
}

// NextPrime returns the smallest probable prime strictly greater than n,
// using n.ProbablyPrime(20) as the underlying test. For candidates this
// large the engine relies on the primality package's stronger tests before
// trusting a result as definitive; this is a convenience stepper, not an
// oracle.
func NextPrime(n *Int) *Int {
	c := Add(n, New(1))
	if c.Bit(0) == 0 {
		c = Add(c, New(1))
	}
	for !c.ProbablyPrime(20) {
		c = Add(c, New(2))
	}
	return c
}

// RandRange returns a cryptographically seeded uniform random integer in
// [lo, hi]. hi must be >= lo.
func RandRange(lo, hi *Int) (*Int, error) {
	if hi.Cmp(lo) < 0 {
		return nil, errors.New("bigint: RandRange: hi < lo")
	}
	span := Add(Sub(hi, lo), New(1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return nil, err
	}
	return Add(n, lo), nil
}

// Log10 returns an approximate base-10 logarithm of n, computed from the
// digit count and leading digits rather than a direct float64 conversion, so
// it never overflows regardless of n's magnitude. This is the one place the
// façade allows a floating-point result, reserved for logarithmic progress
// computation and Newton seed estimation, per the engine's design notes.
func Log10(n *Int) float64 {
	abs := new(big.Int).Abs(n)
	if abs.Sign() == 0 {
		return 0
	}
	s := abs.Text(10)
	const precisionDigits = 15
	lead := s
	if len(lead) > precisionDigits {
		lead = lead[:precisionDigits]
	}
	leadVal := 0.0
	for _, c := range lead {
		leadVal = leadVal*10 + float64(c-'0')
	}
	// leadVal represents the first len(lead) digits as an integer; dividing
	// by 10^(len(lead)-1) puts the decimal point after the first digit.
	mantissa := leadVal
	for i := 1; i < len(lead); i++ {
		mantissa /= 10
	}
	return math.Log10(mantissa) + float64(len(s)-1)
}

// ICbrt returns the integer (floor) cube root of n via Newton's method on
// exact big.Int arithmetic. n must be non-negative.
func ICbrt(n *Int) *Int {
	if n.Sign() == 0 {
		return New(0)
	}
	// Seed the Newton iteration from a float estimate of n^(1/3); the
	// iteration itself is exact big.Int arithmetic and corrects any seed
	// error within a handful of steps.
	bits := n.BitLen()
	seedBits := bits/3 + 1
	x := new(big.Int).Lsh(big.NewInt(1), uint(seedBits))

	three := big.NewInt(3)
	two := big.NewInt(2)
	for i := 0; i < 200; i++ {
		// x_{k+1} = (2*x_k + n/x_k^2) / 3
		xSq := new(big.Int).Mul(x, x)
		q := new(big.Int).Quo(n, xSq)
		next := new(big.Int).Mul(x, two)
		next.Add(next, q)
		next.Quo(next, three)
		if next.Cmp(x) == 0 {
			break
		}
		if next.Sign() <= 0 {
			next.SetInt64(1)
		}
		x = next
	}
	// Correct off-by-one drift from integer truncation in either direction.
	for new(big.Int).Exp(x, three, nil).Cmp(n) > 0 {
		x.Sub(x, big.NewInt(1))
	}
	for new(big.Int).Exp(Add(x, New(1)), three, nil).Cmp(n) <= 0 {
		x.Add(x, big.NewInt(1))
	}
	return x
}

// Digits returns the number of decimal digits of |n|. n=0 has 1 digit. Used
// as a proxy for logarithmic scaling so the engine never converts an
// arbitrary-precision value to float64 except for this decimal-length proxy.
func Digits(n *Int) int {
	if n.Sign() == 0 {
		return 1
	}
	abs := new(big.Int).Abs(n)
	return len(abs.Text(10))
}
