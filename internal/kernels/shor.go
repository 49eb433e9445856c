package kernels

import (
	"fmt"
	"math"
	"math/big"

	"github.com/Deenyoro/SubPrimeDivide/internal/bigint"
	"github.com/Deenyoro/SubPrimeDivide/internal/cancel"
	"github.com/Deenyoro/SubPrimeDivide/internal/sieve"
)

// ShorAttempt is one (base, smoothness bound) trial of the classical order-
// finding squeeze, recorded for diagnostics regardless of outcome.
type ShorAttempt struct {
	Base      *big.Int
	B         int64
	Order     *big.Int // nil if no order was isolated
	Condition string    // "lucky_gcd" | "pminus1_style" | "even_order" | "no_order" | "odd_order" | "trivial_residue"
}

// ShorDiagnostics records every attempt the multi-attempt sweep made.
type ShorDiagnostics struct {
	Attempts []ShorAttempt
}

// DefaultShorBounds is the smoothness-bound sweep the multi-attempt wrapper
// iterates over.
var DefaultShorBounds = []int64{10_000, 50_000, 200_000, 1_000_000}

// DefaultShorAttemptsPerBound is how many random bases are tried at each
// bound before moving to the next.
const DefaultShorAttemptsPerBound = 5

// Shor runs the classical (non-quantum) Shor-style order-finding squeeze:
// for a random base a coprime to n, compute M = prod_{q prime <= B}
// q^floor(log_q(B)), check the p-1-style gcd(a^M-1 mod n, n), and otherwise
// "squeeze" M down to the true order of a mod n by greedily dividing out
// primes q <= B while a^(M/q) == 1 mod n. An even order r yields a
// candidate factor via gcd(a^(r/2) +/- 1, n).
func Shor(tok *cancel.Token, n *big.Int, progress ProgressFunc) (Outcome, ShorDiagnostics) {
	diag := ShorDiagnostics{}
	one := big.NewInt(1)
	nMinus1 := new(big.Int).Sub(n, one)

	for _, b := range DefaultShorBounds {
		primesAtB := sievePrimesForBound(b)
		m := smoothExponent(b, primesAtB)

		for attempt := 0; attempt < DefaultShorAttemptsPerBound; attempt++ {
			if tok != nil {
				if err := tok.CheckPoint(); err != nil {
					return OutcomeTimeout("cancelled during shor"), diag
				}
			}

			a, err := bigint.RandRange(big.NewInt(2), new(big.Int).Sub(n, big.NewInt(2)))
			if err != nil {
				return OutcomeError(err), diag
			}

			g := bigint.GCD(a, n)
			if g.Cmp(one) > 0 && g.Cmp(n) < 0 {
				diag.Attempts = append(diag.Attempts, ShorAttempt{Base: a, B: b, Condition: "lucky_gcd"})
				return OutcomeFound(g, "shor_lucky_gcd"), diag
			}

			aToM, err := bigint.ModPow(a, m, n)
			if err != nil {
				return OutcomeError(err), diag
			}
			pMinus1Candidate := new(big.Int).Sub(aToM, one)
			pMinus1Candidate.Mod(pMinus1Candidate, n)
			if pMinus1Candidate.Sign() != 0 {
				g2 := bigint.GCD(pMinus1Candidate, n)
				if g2.Cmp(one) > 0 && g2.Cmp(n) < 0 {
					diag.Attempts = append(diag.Attempts, attemptRecord(a, b, nil, "pminus1_style"))
					return OutcomeFound(g2, "shor_pminus1_style"), diag
				}
			}

			if aToM.Cmp(one) != 0 {
				diag.Attempts = append(diag.Attempts, attemptRecord(a, b, nil, "no_order"))
				if progress != nil {
					progress(a, fmt.Sprintf("shor B=%d base did not reach identity", b))
				}
				continue
			}

			order := squeezeOrder(a, m, primesAtB, n)
			if order.Sign() <= 0 {
				diag.Attempts = append(diag.Attempts, attemptRecord(a, b, nil, "no_order"))
				continue
			}

			if order.Bit(0) != 0 {
				diag.Attempts = append(diag.Attempts, attemptRecord(a, b, order, "odd_order"))
				continue
			}

			half := new(big.Int).Rsh(order, 1)
			aHalf, err := bigint.ModPow(a, half, n)
			if err != nil {
				return OutcomeError(err), diag
			}
			if aHalf.Cmp(nMinus1) == 0 || aHalf.Cmp(one) == 0 {
				diag.Attempts = append(diag.Attempts, attemptRecord(a, b, order, "trivial_residue"))
				continue
			}

			minus := new(big.Int).Sub(aHalf, one)
			minus.Mod(minus, n)
			plus := new(big.Int).Add(aHalf, one)
			plus.Mod(plus, n)

			gMinus := bigint.GCD(minus, n)
			if gMinus.Cmp(one) > 0 && gMinus.Cmp(n) < 0 {
				diag.Attempts = append(diag.Attempts, attemptRecord(a, b, order, "even_order"))
				return OutcomeFound(gMinus, "shor_even_order"), diag
			}
			gPlus := bigint.GCD(plus, n)
			if gPlus.Cmp(one) > 0 && gPlus.Cmp(n) < 0 {
				diag.Attempts = append(diag.Attempts, attemptRecord(a, b, order, "even_order"))
				return OutcomeFound(gPlus, "shor_even_order"), diag
			}
			diag.Attempts = append(diag.Attempts, attemptRecord(a, b, order, "trivial_residue"))
		}
	}
	return OutcomeNotFound("shor sweep exhausted all bounds and attempts"), diag
}

func attemptRecord(a *big.Int, b int64, order *big.Int, condition string) ShorAttempt {
	return ShorAttempt{Base: a, B: b, Order: order, Condition: condition}
}

// sievePrimesForBound returns every prime <= b.
func sievePrimesForBound(b int64) []uint64 {
	it := sieve.NewSegmented(uint64(b))
	var primes []uint64
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		primes = append(primes, p)
	}
	return primes
}

// smoothExponent computes M = prod_{q in primes} q^floor(log_q(b)).
func smoothExponent(b int64, primes []uint64) *big.Int {
	logB := math.Log(float64(b))
	m := big.NewInt(1)
	for _, p := range primes {
		k := int(logB / math.Log(float64(p)))
		if k < 1 {
			k = 1
		}
		pk := new(big.Int).Exp(big.NewInt(int64(p)), big.NewInt(int64(k)), nil)
		m.Mul(m, pk)
	}
	return m
}

// squeezeOrder takes M with a^M == 1 mod n and greedily divides out each
// prime q <= B from the exponent while a^(M/q) mod n remains 1, leaving the
// true multiplicative order of a mod n (assuming it divides the original M;
// otherwise the squeeze settles on the largest B-smooth divisor of the order
// it can prove, which the caller still treats as a best-effort order).
func squeezeOrder(a, m *big.Int, primes []uint64, n *big.Int) *big.Int {
	order := new(big.Int).Set(m)
	for _, p := range primes {
		pBig := big.NewInt(int64(p))
		for {
			candidate := new(big.Int).Div(order, pBig)
			rem := new(big.Int).Mod(order, pBig)
			if rem.Sign() != 0 {
				break
			}
			val, err := bigint.ModPow(a, candidate, n)
			if err != nil || val.Cmp(big.NewInt(1)) != 0 {
				break
			}
			order = candidate
		}
	}
	return order
}
