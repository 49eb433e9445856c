// Package sieve implements the two prime-iterator backends named in spec
// L5: a fast segmented sieve for ranges up to 2^64-1, and an arbitrary
// precision probable-prime stepper beyond that.
package sieve

import (
	"math"
	"math/big"
)

const segmentSize = 1 << 20 // 1Mi candidates per segment

// Segmented is a forward-only prime iterator over [2, limit], implemented as
// a sieve of Eratosthenes over fixed-size segments aligned to segmentSize so
// memory stays bounded regardless of how large limit is (up to 2^64-1).
type Segmented struct {
	limit      uint64
	basePrimes []uint64 // primes up to sqrt(limit), used to cross off each segment

	segIndex  uint64 // current segment's index (segment covers [segIndex*segmentSize, +segmentSize-1])
	segBits   []bool // true = composite, indexed by (candidate - segIndex*segmentSize)
	idx       int    // next in-segment offset to examine
	exhausted bool
}

// NewSegmented creates a Segmented iterator over [2, limit].
func NewSegmented(limit uint64) *Segmented {
	s := &Segmented{limit: limit}
	sqrtLimit := uint64(math.Sqrt(float64(limit))) + 1
	s.basePrimes = sieveBase(sqrtLimit)
	s.loadSegment(0)
	return s
}

func sieveBase(n uint64) []uint64 {
	if n < 2 {
		return nil
	}
	composite := make([]bool, n+1)
	var primes []uint64
	for i := uint64(2); i <= n; i++ {
		if composite[i] {
			continue
		}
		primes = append(primes, i)
		for j := i * i; j <= n; j += i {
			composite[j] = true
		}
	}
	return primes
}

// loadSegment loads the segment with the given index (covering
// [segIndex*segmentSize, segIndex*segmentSize+segmentSize-1], clipped to
// s.limit).
func (s *Segmented) loadSegment(segIndex uint64) {
	start := segIndex * segmentSize
	if start > s.limit {
		s.segBits = nil
		s.exhausted = true
		return
	}
	end := start + segmentSize - 1
	if end > s.limit {
		end = s.limit
	}
	size := end - start + 1
	bits := make([]bool, size)
	if start < 2 {
		for v := start; v < 2 && v-start < size; v++ {
			bits[v-start] = true
		}
	}
	for _, p := range s.basePrimes {
		first := p * p
		if first < start {
			rem := start % p
			if rem == 0 {
				first = start
			} else {
				first = start + (p - rem)
			}
		}
		for m := first; m <= end; m += p {
			bits[m-start] = true
		}
	}
	s.segIndex = segIndex
	s.segBits = bits
	s.idx = 0
	s.exhausted = false
}

// Next returns the next prime in the iteration, advancing internal state.
// ok is false once the iterator is exhausted (past limit).
func (s *Segmented) Next() (p uint64, ok bool) {
	for {
		if s.exhausted {
			return 0, false
		}
		for s.idx < len(s.segBits) {
			if !s.segBits[s.idx] {
				cand := s.segIndex*segmentSize + uint64(s.idx)
				s.idx++
				return cand, true
			}
			s.idx++
		}
		if s.segIndex*segmentSize+segmentSize > s.limit {
			s.exhausted = true
			return 0, false
		}
		s.loadSegment(s.segIndex + 1)
	}
}

// SkipTo advances the iterator so the next call to Next() returns the first
// prime >= k.
func (s *Segmented) SkipTo(k uint64) {
	if k < 2 {
		k = 2
	}
	segIndex := k / segmentSize
	s.loadSegment(segIndex)
	if s.exhausted {
		return
	}
	s.idx = int(k - segIndex*segmentSize)
}

// BigLimit reports the largest limit value the fast segmented backend can
// address (2^64 - 1).
const BigLimit = ^uint64(0)

// FitsSegmented reports whether n fits within the fast segmented sieve's
// addressable range.
func FitsSegmented(n *big.Int) bool {
	return n.IsUint64()
}
