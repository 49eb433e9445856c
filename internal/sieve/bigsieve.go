package sieve

import (
	"log/slog"
	"math/big"

	"github.com/Deenyoro/SubPrimeDivide/internal/primality"
)

// NextPrimeBig returns the smallest probable prime strictly greater than p,
// using IsPrimeFast.
func NextPrimeBig(p *big.Int) *big.Int {
	cand := new(big.Int).Add(p, big.NewInt(1))
	if cand.Bit(0) == 0 {
		cand.Add(cand, big.NewInt(1))
	}
	for !primality.IsPrimeFast(cand) {
		cand.Add(cand, big.NewInt(2))
	}
	return cand
}

// WarnSlowdown logs, at WARNING level, that the arbitrary-precision backend
// is in use for a range beyond the fast segmented sieve's reach. Call once
// per stage, not per step.
func WarnSlowdown(logger *slog.Logger, upper *big.Int) {
	if logger == nil {
		return
	}
	logger.Warn("prime iteration exceeds fast segmented sieve range; falling back to arbitrary-precision next_prime",
		"upper_digits", len(upper.Text(10)))
}

// Iterator unifies the two L5 backends behind one interface, so the engine's
// equation-guided search stage does not need to know which is in play.
type Iterator interface {
	// Next returns the next prime as a *big.Int, or ok=false when exhausted.
	Next() (*big.Int, bool)
	// SkipTo advances the iterator so Next() returns the first prime >= k.
	SkipTo(k *big.Int)
}

// segmentedAdapter adapts *Segmented (uint64-based) to the big.Int-based
// Iterator interface.
type segmentedAdapter struct{ s *Segmented }

func (a *segmentedAdapter) Next() (*big.Int, bool) {
	v, ok := a.s.Next()
	if !ok {
		return nil, false
	}
	return new(big.Int).SetUint64(v), true
}

func (a *segmentedAdapter) SkipTo(k *big.Int) {
	if !k.IsUint64() {
		return
	}
	a.s.SkipTo(k.Uint64())
}

// bigAdapter implements Iterator using NextPrimeBig for ranges beyond the
// segmented sieve's reach.
type bigAdapter struct {
	cur    *big.Int
	logger *slog.Logger
	warned bool
}

func (a *bigAdapter) Next() (*big.Int, bool) {
	if !a.warned {
		WarnSlowdown(a.logger, a.cur)
		a.warned = true
	}
	a.cur = NextPrimeBig(a.cur)
	return new(big.Int).Set(a.cur), true
}

func (a *bigAdapter) SkipTo(k *big.Int) {
	a.cur = new(big.Int).Sub(k, big.NewInt(1))
}

// NewIterator selects the segmented backend when upper fits in 2^64-1, and
// the arbitrary-precision stepper otherwise, starting the iteration at lo.
func NewIterator(lo, upper *big.Int, logger *slog.Logger) Iterator {
	if FitsSegmented(upper) {
		seg := NewSegmented(upper.Uint64())
		a := &segmentedAdapter{s: seg}
		a.SkipTo(lo)
		return a
	}
	start := new(big.Int).Sub(lo, big.NewInt(1))
	return &bigAdapter{cur: start, logger: logger}
}
