package kernels

import (
	"math/big"

	"github.com/Deenyoro/SubPrimeDivide/internal/bigint"
	"github.com/Deenyoro/SubPrimeDivide/internal/cancel"
)

// PollardRhoDiagnostics records how many restarts were needed and how many
// iterations were run in total.
type PollardRhoDiagnostics struct {
	Restarts   int
	Iterations int64
}

// PollardRhoBrent factors n via Pollard's rho with Brent's cycle detection.
// Even n returns 2 immediately. On d == n (cycle collapsed onto a trivial
// divisor), it restarts with a fresh (x0, c) and a halved iteration budget;
// once the budget is exhausted it reports NotFound. A progress callback
// fires every checkInterval steps.
func PollardRhoBrent(tok *cancel.Token, n *big.Int, maxIterations int64, progress ProgressFunc, checkInterval int64) (Outcome, PollardRhoDiagnostics) {
	diag := PollardRhoDiagnostics{}
	if n.Bit(0) == 0 {
		return OutcomeFound(big.NewInt(2), "pollard_rho_brent"), diag
	}
	if maxIterations <= 0 {
		maxIterations = 1_000_000
	}

	budget := maxIterations
	nMinus2 := new(big.Int).Sub(n, big.NewInt(2))

	for budget > 0 {
		diag.Restarts++
		x0, err := bigint.RandRange(big.NewInt(2), nMinus2)
		if err != nil {
			return OutcomeError(err), diag
		}
		c, err := bigint.RandRange(big.NewInt(1), new(big.Int).Sub(n, big.NewInt(1)))
		if err != nil {
			return OutcomeError(err), diag
		}
		outcome, iters, restartNeeded := brentCycle(tok, n, x0, c, budget, progress, checkInterval)
		diag.Iterations += iters
		if outcome.Kind != NotFound {
			return outcome, diag
		}
		if !restartNeeded {
			// genuine exhaustion without a trivial-divisor collapse
			return OutcomeNotFound("pollard rho exhausted iteration budget"), diag
		}
		budget /= 2
	}
	return OutcomeNotFound("pollard rho exhausted restart budget"), diag
}

// brentCycle runs Brent's cycle-detection variant of Pollard's rho for up to
// budget iterations starting from (x0, c). restartNeeded is true when the
// gcd collapsed onto n itself (d == n), signaling the caller should retry
// with fresh randomization rather than treat this as a hard NotFound.
func brentCycle(tok *cancel.Token, n, x0, c *big.Int, budget int64, progress ProgressFunc, checkInterval int64) (outcome Outcome, iterations int64, restartNeeded bool) {
	f := func(x *big.Int) *big.Int {
		x2 := new(big.Int).Mul(x, x)
		x2.Add(x2, c)
		return x2.Mod(x2, n)
	}

	y := new(big.Int).Set(x0)
	r := int64(1)
	q := big.NewInt(1)
	var g *big.Int
	var x, ys *big.Int

	for iterations < budget {
		x = new(big.Int).Set(y)
		for i := int64(0); i < r; i++ {
			y = f(y)
		}
		k := int64(0)
		for k < r && iterations < budget {
			ys = new(big.Int).Set(y)
			m := min64(128, r-k)
			for i := int64(0); i < m; i++ {
				y = f(y)
				diff := new(big.Int).Sub(x, y)
				diff.Abs(diff)
				q.Mul(q, diff)
				q.Mod(q, n)
			}
			iterations += m
			g = bigint.GCD(q, n)

			if checkInterval > 0 && iterations%checkInterval < m {
				if progress != nil {
					progress(y, "pollard_rho_brent")
				}
				if tok != nil {
					if err := tok.CheckPoint(); err != nil {
						return OutcomeTimeout("cancelled during pollard rho"), iterations, false
					}
				}
			}

			if g.Cmp(big.NewInt(1)) != 0 {
				k += m
				break
			}
			k += m
		}
		r *= 2
		if g != nil && g.Cmp(big.NewInt(1)) != 0 {
			break
		}
	}

	if g == nil {
		return OutcomeNotFound("pollard rho budget exhausted"), iterations, false
	}
	if g.Cmp(n) == 0 {
		// backtrack using ys, retrying gcd one multiplier at a time, bounded
		// so a degenerate cycle can't spin forever.
		backtrackCap := int64(n.BitLen())*10000 + 1000
		for i := int64(0); i < backtrackCap; i++ {
			ys = f(ys)
			diff := new(big.Int).Sub(x, ys)
			diff.Abs(diff)
			g = bigint.GCD(diff, n)
			if g.Cmp(big.NewInt(1)) != 0 {
				break
			}
		}
		if g.Cmp(big.NewInt(1)) == 0 || g.Cmp(n) == 0 {
			return OutcomeNotFound("pollard rho collapsed onto n"), iterations, true
		}
	}
	if g.Cmp(big.NewInt(1)) > 0 && g.Cmp(n) < 0 {
		return OutcomeFound(g, "pollard_rho_brent"), iterations, false
	}
	return OutcomeNotFound("pollard rho found no non-trivial divisor"), iterations, false
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
