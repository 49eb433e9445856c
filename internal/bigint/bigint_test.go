package bigint

import "testing"

func TestDivModZero(t *testing.T) {
	if _, _, err := DivMod(New(10), New(0)); err != ErrDivByZero {
		t.Fatalf("expected ErrDivByZero, got %v", err)
	}
}

func TestModPow(t *testing.T) {
	got, err := ModPow(New(4), New(13), New(497))
	if err != nil {
		t.Fatal(err)
	}
	if got.Int64() != 445 {
		t.Fatalf("4^13 mod 497 = %d, want 445", got.Int64())
	}
}

func TestGCD(t *testing.T) {
	if got := GCD(New(54), New(24)); got.Int64() != 6 {
		t.Fatalf("gcd(54,24) = %d, want 6", got.Int64())
	}
}

func TestISqrtAndIsSquare(t *testing.T) {
	if got := ISqrt(New(99)); got.Int64() != 9 {
		t.Fatalf("isqrt(99) = %d, want 9", got.Int64())
	}
	if !IsSquare(New(144)) {
		t.Fatal("144 should be a perfect square")
	}
	if IsSquare(New(143)) {
		t.Fatal("143 should not be a perfect square")
	}
}

func TestJacobi(t *testing.T) {
	if got := Jacobi(New(5), New(21)); got != 1 {
		t.Fatalf("jacobi(5,21) = %d, want 1", got)
	}
}

func TestNextPrime(t *testing.T) {
	if got := NextPrime(New(10)); got.Int64() != 11 {
		t.Fatalf("next_prime(10) = %d, want 11", got.Int64())
	}
	if got := NextPrime(New(14)); got.Int64() != 17 {
		t.Fatalf("next_prime(14) = %d, want 17", got.Int64())
	}
}

func TestRandRange(t *testing.T) {
	lo, hi := New(5), New(5)
	got, err := RandRange(lo, hi)
	if err != nil {
		t.Fatal(err)
	}
	if got.Int64() != 5 {
		t.Fatalf("RandRange(5,5) = %d, want 5", got.Int64())
	}
}

func TestICbrt(t *testing.T) {
	cases := map[int64]int64{0: 0, 1: 1, 7: 1, 8: 2, 26: 2, 27: 3, 999: 9, 1000: 10}
	for v, want := range cases {
		if got := ICbrt(New(v)).Int64(); got != want {
			t.Fatalf("ICbrt(%d) = %d, want %d", v, got, want)
		}
	}
}

func TestLog10(t *testing.T) {
	got := Log10(New(1000))
	if got < 2.99 || got > 3.01 {
		t.Fatalf("Log10(1000) = %f, want ~3", got)
	}
}

func TestDigits(t *testing.T) {
	cases := map[int64]int{0: 1, 9: 1, 10: 2, 999: 3, 1000: 4}
	for v, want := range cases {
		if got := Digits(New(v)); got != want {
			t.Fatalf("Digits(%d) = %d, want %d", v, got, want)
		}
	}
}
