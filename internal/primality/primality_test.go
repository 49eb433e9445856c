package primality

import (
	"math/big"
	"testing"
)

func TestIsPrimeBPSWSmallPrimes(t *testing.T) {
	primes := []int64{2, 3, 5, 7, 11, 13, 97, 997, 104729}
	for _, p := range primes {
		if !IsPrimeBPSW(big.NewInt(p)) {
			t.Errorf("IsPrimeBPSW(%d) = false, want true", p)
		}
	}
}

func TestIsPrimeBPSWComposites(t *testing.T) {
	composites := []int64{1, 4, 6, 8, 9, 15, 21, 25, 49, 100, 9999999, 10403}
	for _, c := range composites {
		if IsPrimeBPSW(big.NewInt(c)) {
			t.Errorf("IsPrimeBPSW(%d) = true, want false", c)
		}
	}
}

func TestIsPrimeBPSWUpTo200000(t *testing.T) {
	// Sieve of Eratosthenes reference up to 2*10^5 for a fast cross-check.
	const limit = 200000
	isComposite := make([]bool, limit+1)
	for i := 2; i <= limit; i++ {
		if isComposite[i] {
			continue
		}
		for j := i * i; j <= limit; j += i {
			isComposite[j] = true
		}
	}
	for i := 2; i <= limit; i++ {
		want := !isComposite[i]
		got := IsPrimeBPSW(big.NewInt(int64(i)))
		if got != want {
			t.Fatalf("IsPrimeBPSW(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestIsPrimeFast(t *testing.T) {
	if !IsPrimeFast(big.NewInt(97)) {
		t.Error("97 should be prime")
	}
	if IsPrimeFast(big.NewInt(10403)) { // 101*103
		t.Error("10403 should be composite")
	}
	big64, _ := new(big.Int).SetString("18446744073709551557", 10) // 2^64-59, the largest prime below 2^64
	if !IsPrimeFast(big64) {
		t.Error("expected large known prime to report prime")
	}
}

func TestMillerRabinRejectsEvenAndSmall(t *testing.T) {
	if MillerRabin(big.NewInt(1), 10, nil) {
		t.Error("1 should not be prime")
	}
	if MillerRabin(big.NewInt(4), 10, nil) {
		t.Error("4 should not be prime")
	}
	if !MillerRabin(big.NewInt(2), 10, nil) {
		t.Error("2 should be prime")
	}
}

func TestStrongLucasKnownPrime(t *testing.T) {
	if !StrongLucas(big.NewInt(97)) {
		t.Error("97 should pass strong Lucas")
	}
	if StrongLucas(big.NewInt(9)) {
		t.Error("9 should fail strong Lucas")
	}
}

func TestStrongLucasPerfectSquare(t *testing.T) {
	// A perfect square never has Jacobi(D,n) = -1 for any D; must report composite.
	if StrongLucas(big.NewInt(121)) {
		t.Error("121 (11^2) should fail strong Lucas")
	}
}
