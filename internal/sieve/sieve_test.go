package sieve

import (
	"math/big"
	"testing"
)

func TestSegmentedMatchesKnownPrimes(t *testing.T) {
	s := NewSegmented(100)
	want := []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71, 73, 79, 83, 89, 97}
	var got []uint64
	for {
		p, ok := s.Next()
		if !ok {
			break
		}
		got = append(got, p)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d primes, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("prime[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSegmentedSkipTo(t *testing.T) {
	s := NewSegmented(1000)
	s.SkipTo(500)
	p, ok := s.Next()
	if !ok {
		t.Fatal("expected a prime >= 500")
	}
	if p < 500 {
		t.Fatalf("SkipTo(500) then Next() = %d, want >= 500", p)
	}
	if p != 503 {
		t.Fatalf("first prime >= 500 should be 503, got %d", p)
	}
}

func TestSegmentedTinyLimitMasksZeroAndOne(t *testing.T) {
	// A limit of 3 stays inside the first segment and exercises
	// loadSegment's start<2 masking of 0 and 1.
	s := NewSegmented(3)
	var got []uint64
	for {
		p, ok := s.Next()
		if !ok {
			break
		}
		got = append(got, p)
	}
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("got %v, want [2 3]", got)
	}
}

func TestNextPrimeBig(t *testing.T) {
	got := NextPrimeBig(big.NewInt(14))
	if got.Int64() != 17 {
		t.Fatalf("NextPrimeBig(14) = %d, want 17", got.Int64())
	}
}

func TestNewIteratorSelectsBackend(t *testing.T) {
	it := NewIterator(big.NewInt(2), big.NewInt(1000), nil)
	if _, ok := it.(*segmentedAdapter); !ok {
		t.Fatal("expected segmented backend for small upper bound")
	}
	p, ok := it.Next()
	if !ok || p.Int64() != 2 {
		t.Fatalf("first prime = %v, ok=%v, want 2", p, ok)
	}
}
