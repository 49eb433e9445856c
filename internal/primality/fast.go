package primality

import (
	"math/big"
)

// maxUint64 is the largest value representable in 64 bits, used as the BPSW
// cutover point: BPSW has no known counterexample below 2^64.
var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// IsPrimeFast is the adaptive oracle: BPSW for n <= 2^64, otherwise 40 rounds
// of Miller-Rabin (error probability <= 2^-80).
func IsPrimeFast(n *big.Int) bool {
	if n.CmpAbs(maxUint64) <= 0 {
		return IsPrimeBPSW(n)
	}
	return MillerRabin(n, 40, NewSecureRand())
}
