// Package primality implements the probabilistic and compound primality
// tests the engine's gate and kernels depend on: Miller-Rabin, strong Lucas
// with Selfridge parameter selection, their BPSW composition, and the
// adaptive IsPrimeFast oracle.
package primality

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/big"
	"math/rand"
)

// NewSecureRand returns a math/rand source seeded from crypto/rand, for
// callers that need repeated randomized trials (Miller-Rabin bases, kernel
// starting points) without paying crypto/rand's cost on every draw.
func NewSecureRand() *rand.Rand {
	var seed [8]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand failure is exceptionally rare; fall back to a fixed
		// seed rather than panicking.
		return rand.New(rand.NewSource(0xC0FFEE))
	}
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))
}

var (
	two  = big.NewInt(2)
	one  = big.NewInt(1)
	zero = big.NewInt(0)
)

// smallPrimes is the trial-division table used to cheaply reject most
// composites before paying for Miller-Rabin or Lucas.
var smallPrimes = sievePrimesUpTo(10000)

func sievePrimesUpTo(limit int) []int64 {
	isComposite := make([]bool, limit+1)
	var primes []int64
	for i := 2; i <= limit; i++ {
		if isComposite[i] {
			continue
		}
		primes = append(primes, int64(i))
		for j := i * i; j <= limit; j += i {
			isComposite[j] = true
		}
	}
	return primes
}

// MillerRabin runs `rounds` Miller-Rabin trials against n with randomly
// chosen bases drawn from rnd. It rejects n < 2 and even n != 2 immediately.
// rnd may be nil, in which case a fresh NewSecureRand source is used.
func MillerRabin(n *big.Int, rounds int, rnd *rand.Rand) bool {
	if n.Cmp(two) < 0 {
		return false
	}
	if n.Cmp(two) == 0 {
		return true
	}
	if n.Bit(0) == 0 {
		return false
	}
	if rnd == nil {
		rnd = NewSecureRand()
	}

	// n-1 = 2^s * d, d odd
	nMinus1 := new(big.Int).Sub(n, one)
	d := new(big.Int).Set(nMinus1)
	s := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		s++
	}

	nMinus2 := new(big.Int).Sub(n, two)
	for i := 0; i < rounds; i++ {
		a := randBigInt(rnd, two, nMinus2)
		if !millerRabinWitness(n, nMinus1, a, d, s) {
			return false
		}
	}
	return true
}

// millerRabinBase2 runs a single deterministic Miller-Rabin trial with base 2,
// as required by the BPSW composition.
func millerRabinBase2(n *big.Int) bool {
	if n.Cmp(two) < 0 {
		return false
	}
	if n.Cmp(two) == 0 {
		return true
	}
	if n.Bit(0) == 0 {
		return false
	}
	nMinus1 := new(big.Int).Sub(n, one)
	d := new(big.Int).Set(nMinus1)
	s := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		s++
	}
	return millerRabinWitness(n, nMinus1, two, d, s)
}

// millerRabinWitness reports whether base a fails to prove n composite, i.e.
// a is not a witness of compositeness for n.
func millerRabinWitness(n, nMinus1, a, d *big.Int, s int) bool {
	x := new(big.Int).Exp(a, d, n)
	if x.Cmp(one) == 0 || x.Cmp(nMinus1) == 0 {
		return true
	}
	for r := 1; r < s; r++ {
		x.Mul(x, x)
		x.Mod(x, n)
		if x.Cmp(nMinus1) == 0 {
			return true
		}
		if x.Cmp(one) == 0 {
			return false
		}
	}
	return false
}

// randBigInt returns a uniform random integer in [lo, hi] using rnd.
func randBigInt(rnd *rand.Rand, lo, hi *big.Int) *big.Int {
	span := new(big.Int).Sub(hi, lo)
	if span.Sign() <= 0 {
		return new(big.Int).Set(lo)
	}
	span.Add(span, one)
	bitLen := span.BitLen()
	for {
		buf := make([]byte, (bitLen+7)/8)
		rnd.Read(buf)
		cand := new(big.Int).SetBytes(buf)
		// Mask off excess high bits to keep rejection sampling cheap.
		if extra := uint(len(buf)*8 - bitLen); extra > 0 {
			cand.Rsh(cand, extra)
		}
		if cand.Cmp(span) < 0 {
			return cand.Add(cand, lo)
		}
	}
}
