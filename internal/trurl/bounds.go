package trurl

import (
	"math"
	"math/big"

	"github.com/Deenyoro/SubPrimeDivide/internal/bigint"
)

// Bounds is the [lower, upper] search range the equation-guided stage scans
// over, plus a flag recording whether Newton's method converged when
// deriving it.
type Bounds struct {
	Lower, Upper      *big.Int
	NewtonConverged   bool
	UsedFallbackGuess bool
}

// InitialBounds derives [lo, hi] for the equation-guided prime search.
// upper = floor(sqrt(N)); lower defaults to floor(0.7 * x_at_y_eq_1),
// clamped to [2, upper-1]; if Newton fails to converge, falls back to
// 10^floor(0.35*digits(N)).
func InitialBounds(n *big.Int) Bounds {
	upper := bigint.ISqrt(n)

	x1, converged := XAtYEqualsOne(n)
	var lower *big.Int
	usedFallback := false
	if converged {
		lower = scaleByTenths(x1, 7)
	} else {
		usedFallback = true
		digits := bigint.Digits(n)
		exp := int64(math.Floor(0.35 * float64(digits)))
		lower = new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
	}

	lowClamp := big.NewInt(2)
	highClamp := new(big.Int).Sub(upper, big.NewInt(1))
	if lower.Cmp(lowClamp) < 0 {
		lower = lowClamp
	}
	if lower.Cmp(highClamp) > 0 {
		lower = highClamp
	}
	if lower.Sign() < 0 {
		lower = lowClamp
	}

	return Bounds{Lower: lower, Upper: upper, NewtonConverged: converged, UsedFallbackGuess: usedFallback}
}

// scaleByTenths returns floor(x * tenths / 10) without converting x to
// float64, preserving arbitrary precision.
func scaleByTenths(x *big.Int, tenths int64) *big.Int {
	scaled := bigint.Mul(x, big.NewInt(tenths))
	result, _ := bigint.Div(scaled, big.NewInt(10))
	return result
}

// VerifyInverse reports whether y_of_x is strictly decreasing between x1 and
// x2, i.e. YOfX(n,x1) > YOfX(n,x2). Callers should only rely on this holding
// when both x1 < x2 < CriticalX(n).
func VerifyInverse(n, x1, x2 *big.Int) bool {
	return YOfX(n, x1).Cmp(YOfX(n, x2)) > 0
}

// VerifyAllConstraints checks that a candidate factor pair (x, y) is
// consistent: N = x*y, |y_of_x(x) - y| <= 1, x <= y, and (when x > 100)
// local inverse monotonicity at x-1 and x+1.
func VerifyAllConstraints(n, x, y *big.Int) bool {
	if bigint.Mul(x, y).Cmp(n) != 0 {
		return false
	}
	if x.Cmp(y) > 0 {
		return false
	}
	diff := new(big.Int).Abs(bigint.Sub(YOfX(n, x), y))
	if diff.Cmp(big.NewInt(1)) > 0 {
		return false
	}
	hundred := big.NewInt(100)
	if x.Cmp(hundred) > 0 {
		xMinus1 := bigint.Sub(x, big.NewInt(1))
		xPlus1 := bigint.Add(x, big.NewInt(1))
		if !VerifyInverse(n, xMinus1, x) || !VerifyInverse(n, x, xPlus1) {
			return false
		}
	}
	return true
}

// Progress computes the logarithmic completion percentage of curr within
// [lo, hi]: (log10(curr)-log10(lo)) / (log10(hi)-log10(lo)) * 100, clamped
// to [0, 100].
func Progress(curr, lo, hi *big.Int) float64 {
	logLo := bigint.Log10(lo)
	logHi := bigint.Log10(hi)
	logCurr := bigint.Log10(curr)
	span := logHi - logLo
	if span <= 0 {
		return 100
	}
	pct := (logCurr - logLo) / span * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
