package primality

import "math/big"

// IsPrimeBPSW runs the Baillie-PSW compound test: small-prime trial
// division, then Miller-Rabin base 2, then strong Lucas. Both must pass for
// n to be reported prime. No composite below 2^64 is known to pass BPSW.
func IsPrimeBPSW(n *big.Int) bool {
	if n.Cmp(two) < 0 {
		return false
	}
	for _, p := range smallPrimes {
		pb := big.NewInt(p)
		if n.Cmp(pb) == 0 {
			return true
		}
		if new(big.Int).Mod(n, pb).Sign() == 0 {
			return false
		}
	}
	if !millerRabinBase2(n) {
		return false
	}
	return StrongLucas(n)
}
