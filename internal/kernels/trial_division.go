package kernels

import (
	"math/big"

	"github.com/Deenyoro/SubPrimeDivide/internal/bigint"
	"github.com/Deenyoro/SubPrimeDivide/internal/cancel"
	"github.com/Deenyoro/SubPrimeDivide/internal/sieve"
)

// DefaultTrialDivisionLimit matches spec: trial divide by primes p <=
// min(limit, floor(sqrt(n))), default limit 10^7.
const DefaultTrialDivisionLimit = 10_000_000

// TrialDivisionDiagnostics records how far the kernel searched.
type TrialDivisionDiagnostics struct {
	LimitUsed      uint64
	CandidatesTried uint64
}

// TrialDivision enumerates primes p <= min(limit, floor(sqrt(n))) via the
// segmented sieve and returns the first that divides n.
func TrialDivision(tok *cancel.Token, n *big.Int, limit uint64, progress ProgressFunc, checkInterval uint64) (Outcome, TrialDivisionDiagnostics) {
	diag := TrialDivisionDiagnostics{}
	if limit == 0 {
		limit = DefaultTrialDivisionLimit
	}
	sqrtN := bigint.ISqrt(n)
	effectiveLimit := limit
	if sqrtN.IsUint64() && sqrtN.Uint64() < limit {
		effectiveLimit = sqrtN.Uint64()
	}
	diag.LimitUsed = effectiveLimit

	it := sieve.NewSegmented(effectiveLimit)
	var count uint64
	for {
		if tok != nil {
			if err := tok.CheckPoint(); err != nil {
				return OutcomeTimeout("cancelled during trial division"), diag
			}
		}
		p, ok := it.Next()
		if !ok {
			break
		}
		count++
		diag.CandidatesTried = count
		pBig := new(big.Int).SetUint64(p)
		if new(big.Int).Mod(n, pBig).Sign() == 0 {
			return OutcomeFound(pBig, "trial_division"), diag
		}
		if progress != nil && checkInterval > 0 && count%checkInterval == 0 {
			progress(pBig, "trial_division")
		}
	}
	return OutcomeNotFound("no factor below trial division limit"), diag
}
