package primality

import "math/big"

// selfridgeD selects D from Selfridge's sequence 5, -7, 9, -11, 13, ... until
// Jacobi(D, n) = -1. It returns ok=false if n is a perfect square and no
// suitable D is found by |D| = 1e6: a perfect square has Jacobi(D,n) in
// {0,1} for every D, so the search must be bounded.
//
// If Jacobi(D,n) == 0 and |D| != n, n shares a factor with D and is
// composite; this is reported via the foundFactor return.
func selfridgeD(n *big.Int) (d int64, ok bool, foundFactor bool) {
	d = 5
	absD := big.NewInt(0)
	for i := 0; i < 500_000; i++ { // |D| = 5+2i stays below 1e6
		absD.SetInt64(d)
		if absD.Sign() < 0 {
			absD.Neg(absD)
		}
		j := big.Jacobi(big.NewInt(d), n)
		if j == 0 {
			if absD.Cmp(n) != 0 {
				return d, false, true
			}
			return d, false, false
		}
		if j == -1 {
			return d, true, false
		}
		if d > 0 {
			d = -(d + 2)
		} else {
			d = -d + 2
		}
	}
	return 0, false, false
}

// lucasUV computes (U_k, V_k, Q^k mod n) for the Lucas sequence with
// parameters P, Q modulo n, using the standard double-and-add recurrence:
//
//	U_{2m}   = U_m * V_m
//	V_{2m}   = V_m^2 - 2*Q^m
//	U_{2m+1} = ((P*U_m + V_m) * inv2)
//	V_{2m+1} = ((D*U_m + P*V_m) * inv2)
//
// n must be odd so that 2 is invertible mod n.
func lucasUV(k int64, n *big.Int, p int64, q, d *big.Int) (u, v, qk *big.Int) {
	inv2 := new(big.Int).ModInverse(big.NewInt(2), n)
	P := big.NewInt(p)

	u = big.NewInt(1)
	v = big.NewInt(p)
	qk = new(big.Int).Mod(q, n)

	// bits of k after the leading 1, MSB-first
	bits := make([]byte, 0, 64)
	for t := k; t > 1; t >>= 1 {
		bits = append(bits, byte(t&1))
	}
	for i, j := 0, len(bits)-1; i < j; i, j = i+1, j-1 {
		bits[i], bits[j] = bits[j], bits[i]
	}

	tmpU, tmpV := new(big.Int), new(big.Int)
	for _, bit := range bits {
		// double
		tmpU.Mul(u, v)
		tmpU.Mod(tmpU, n)

		tmpV.Mul(v, v)
		tmpV.Sub(tmpV, new(big.Int).Lsh(qk, 1))
		tmpV.Mod(tmpV, n)

		qk.Mul(qk, qk)
		qk.Mod(qk, n)

		u.Set(tmpU)
		v.Set(tmpV)

		if bit == 1 {
			nu := new(big.Int).Mul(P, u)
			nu.Add(nu, v)
			nu.Mul(nu, inv2)
			nu.Mod(nu, n)

			nv := new(big.Int).Mul(d, u)
			nv.Add(nv, new(big.Int).Mul(P, v))
			nv.Mul(nv, inv2)
			nv.Mod(nv, n)

			u, v = nu, nv
			qk.Mul(qk, q)
			qk.Mod(qk, n)
		}
	}
	u.Mod(u, n)
	v.Mod(v, n)
	return u, v, qk
}

// StrongLucas runs the strong Lucas probable-prime test on n with
// Selfridge-selected D, P=1, Q=(1-D)/4. Assumes n is odd and n >= 3 (callers
// should have already handled n<2 and even n via trial division/MR base 2).
func StrongLucas(n *big.Int) bool {
	if n.Cmp(big.NewInt(3)) < 0 {
		return n.Cmp(two) == 0
	}
	if n.Bit(0) == 0 {
		return false
	}

	d, ok, foundFactor := selfridgeD(n)
	if foundFactor {
		return false
	}
	if !ok {
		// n is a perfect square (or D search exhausted): composite.
		return false
	}

	dBig := big.NewInt(d)
	p := int64(1)
	// Q = (1-D)/4
	qNum := big.NewInt(1 - d)
	q := new(big.Int).Quo(qNum, big.NewInt(4))

	// n+1 = 2^s * dd, dd odd
	nPlus1 := new(big.Int).Add(n, one)
	dd := new(big.Int).Set(nPlus1)
	s := 0
	for dd.Bit(0) == 0 {
		dd.Rsh(dd, 1)
		s++
	}

	if !dd.IsInt64() {
		// Extremely large n: fall back to computing with dd via repeated
		// squaring keyed off dd's bit length rather than an int64 subscript.
		return strongLucasLargeD(n, dd, s, p, q, dBig)
	}

	u, v, qk := lucasUV(dd.Int64(), n, p, q, dBig)
	if u.Sign() == 0 {
		return true
	}
	for r := 0; r < s; r++ {
		if v.Sign() == 0 {
			return true
		}
		if r < s-1 {
			v.Mul(v, v)
			v.Sub(v, new(big.Int).Lsh(qk, 1))
			v.Mod(v, n)
			qk.Mul(qk, qk)
			qk.Mod(qk, n)
		}
	}
	return false
}

// strongLucasLargeD handles the case where n+1's odd part does not fit an
// int64 subscript, using dd's bits directly instead of lucasUV's int64 k.
func strongLucasLargeD(n, dd *big.Int, s int, p int64, q, d *big.Int) bool {
	inv2 := new(big.Int).ModInverse(big.NewInt(2), n)
	P := big.NewInt(p)

	u := big.NewInt(1)
	v := big.NewInt(p)
	qk := new(big.Int).Mod(q, n)

	for i := dd.BitLen() - 2; i >= 0; i-- {
		tmpU := new(big.Int).Mul(u, v)
		tmpU.Mod(tmpU, n)

		tmpV := new(big.Int).Mul(v, v)
		tmpV.Sub(tmpV, new(big.Int).Lsh(qk, 1))
		tmpV.Mod(tmpV, n)

		qk.Mul(qk, qk)
		qk.Mod(qk, n)

		u, v = tmpU, tmpV

		if dd.Bit(i) == 1 {
			nu := new(big.Int).Mul(P, u)
			nu.Add(nu, v)
			nu.Mul(nu, inv2)
			nu.Mod(nu, n)

			nv := new(big.Int).Mul(d, u)
			nv.Add(nv, new(big.Int).Mul(P, v))
			nv.Mul(nv, inv2)
			nv.Mod(nv, n)

			u, v = nu, nv
			qk.Mul(qk, q)
			qk.Mod(qk, n)
		}
	}

	if u.Sign() == 0 {
		return true
	}
	for r := 0; r < s; r++ {
		if v.Sign() == 0 {
			return true
		}
		if r < s-1 {
			v.Mul(v, v)
			v.Sub(v, new(big.Int).Lsh(qk, 1))
			v.Mod(v, n)
			qk.Mul(qk, qk)
			qk.Mod(qk, n)
		}
	}
	return false
}
