package kernels

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/Deenyoro/SubPrimeDivide/internal/bigint"
	"github.com/Deenyoro/SubPrimeDivide/internal/cancel"
	"github.com/Deenyoro/SubPrimeDivide/internal/sieve"
)

// ECMStage is one (B1, curves) pair in a staged ECM schedule.
type ECMStage struct {
	B1     int64
	Curves int
}

// DefaultECMSchedule is the default staircase: (10^4,25), (5*10^4,100),
// (2.5*10^5,200).
var DefaultECMSchedule = []ECMStage{
	{B1: 10_000, Curves: 25},
	{B1: 50_000, Curves: 100},
	{B1: 250_000, Curves: 200},
}

// ECMSuggestion maps an expected factor digit length to suggested (B1,
// curves, estimated wall time).
type ECMSuggestion struct {
	Digits        int
	B1            int64
	Curves        int
	EstimatedWall time.Duration
}

// ECMSuggestionTable is consulted by the engine to scale the "advanced ECM"
// stage's B1/curve count to the expected factor size, roughly digits(N)/2.
var ECMSuggestionTable = []ECMSuggestion{
	{Digits: 20, B1: 11_000, Curves: 90, EstimatedWall: 1 * time.Second},
	{Digits: 25, B1: 50_000, Curves: 300, EstimatedWall: 5 * time.Second},
	{Digits: 30, B1: 250_000, Curves: 700, EstimatedWall: 30 * time.Second},
	{Digits: 35, B1: 1_000_000, Curves: 1800, EstimatedWall: 2 * time.Minute},
	{Digits: 40, B1: 3_000_000, Curves: 5100, EstimatedWall: 10 * time.Minute},
	{Digits: 45, B1: 11_000_000, Curves: 10600, EstimatedWall: 45 * time.Minute},
	{Digits: 50, B1: 43_000_000, Curves: 19300, EstimatedWall: 3 * time.Hour},
}

// SuggestECM returns the schedule entry for the smallest table digit length
// >= expectedDigits, or the last (largest) entry if expectedDigits exceeds
// the table.
func SuggestECM(expectedDigits int) ECMSuggestion {
	for _, s := range ECMSuggestionTable {
		if expectedDigits <= s.Digits {
			return s
		}
	}
	return ECMSuggestionTable[len(ECMSuggestionTable)-1]
}

// ECMCheckpoint is recorded in ECMDiagnostics.LastCheckpoint every
// CheckpointEvery curves in "enhanced" mode; passing it back as
// ECMParams.Resume lets a later run skip completed curves and used sigmas.
// The kernel does not persist it itself.
type ECMCheckpoint struct {
	N               string
	B1              int64
	B2              int64
	CurvesTotal     int
	CurvesCompleted int
	SigmaValuesUsed []int64
	Elapsed         time.Duration
}

// ECMParams configures one call to ECM.
type ECMParams struct {
	Schedule        []ECMStage
	B2Multiplier    int64 // default 100: B2 = B2Multiplier * B1
	PerStageTimeout time.Duration
	MaxCurves       int // 0 = unbounded (bounded by Schedule's curve counts)
	Enhanced        bool
	CheckpointEvery int // curves between checkpoint snapshots, enhanced mode only
	Resume          *ECMCheckpoint
}

// ECMDiagnostics reports what the staged search actually did.
type ECMDiagnostics struct {
	StagesRun     int
	CurvesTried   int
	LastCheckpoint *ECMCheckpoint
}

// ECM runs Lenstra's elliptic-curve method over params.Schedule (or
// DefaultECMSchedule) against n, returning the first non-trivial factor
// found, or NotFound once every stage's curve budget is exhausted.
func ECM(tok *cancel.Token, n *big.Int, params ECMParams, progress ProgressFunc) (Outcome, ECMDiagnostics) {
	diag := ECMDiagnostics{}
	schedule := params.Schedule
	if len(schedule) == 0 {
		schedule = DefaultECMSchedule
	}
	b2Mult := params.B2Multiplier
	if b2Mult == 0 {
		b2Mult = 100
	}

	var resumeSigmas map[int64]bool
	startCurve := 0
	if params.Resume != nil {
		resumeSigmas = make(map[int64]bool, len(params.Resume.SigmaValuesUsed))
		for _, s := range params.Resume.SigmaValuesUsed {
			resumeSigmas[s] = true
		}
		startCurve = params.Resume.CurvesCompleted
	}

	usedSigmas := make([]int64, 0, 64)
	start := time.Now()

	for _, stage := range schedule {
		diag.StagesRun++
		curves := stage.Curves
		if params.MaxCurves > 0 && curves > params.MaxCurves {
			curves = params.MaxCurves
		}
		exponent := stage1Exponent(stage.B1)

		deadline := time.Time{}
		if params.PerStageTimeout > 0 {
			deadline = time.Now().Add(params.PerStageTimeout)
		}

		for c := startCurve; c < curves; c++ {
			if tok != nil {
				if err := tok.CheckPoint(); err != nil {
					return OutcomeTimeout("cancelled during ECM"), diag
				}
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				return OutcomeTimeout(fmt.Sprintf("ECM stage B1=%d timed out after %d curves", stage.B1, c)), diag
			}

			sigma, err := nextSigma(resumeSigmas)
			if err != nil {
				return OutcomeError(err), diag
			}
			usedSigmas = append(usedSigmas, sigma)
			diag.CurvesTried++

			factor, curveErr := ecmCurveStage1(n, sigma, exponent)
			if curveErr != nil {
				return OutcomeError(curveErr), diag
			}
			if factor != nil {
				return OutcomeFound(factor, fmt.Sprintf("ecm_stage1_b1=%d", stage.B1)), diag
			}

			if progress != nil {
				progress(big.NewInt(sigma), fmt.Sprintf("ecm B1=%d curve %d/%d", stage.B1, c+1, curves))
			}

			if params.Enhanced && params.CheckpointEvery > 0 && (c+1)%params.CheckpointEvery == 0 {
				diag.LastCheckpoint = &ECMCheckpoint{
					N: n.String(), B1: stage.B1, B2: stage.B1 * b2Mult,
					CurvesTotal: curves, CurvesCompleted: c + 1,
					SigmaValuesUsed: append([]int64(nil), usedSigmas...),
					Elapsed:         time.Since(start),
				}
			}
		}
		startCurve = 0 // only the first (possibly resumed) stage honors startCurve
	}
	return OutcomeNotFound("ECM exhausted configured schedule"), diag
}

// stage1Exponent computes prod_{q prime <= B1} q^floor(log_q(B1)), the Stage
// 1 scalar.
func stage1Exponent(b1 int64) *big.Int {
	if b1 > (1 << 31) {
		b1 = 1 << 31 // guard against pathological configuration
	}
	it := sieve.NewSegmented(uint64(b1))
	e := big.NewInt(1)
	logB1 := math.Log(float64(b1))
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		k := int(logB1 / math.Log(float64(p)))
		if k < 1 {
			k = 1
		}
		pk := new(big.Int).Exp(big.NewInt(int64(p)), big.NewInt(int64(k)), nil)
		e.Mul(e, pk)
	}
	return e
}

// nextSigma draws a fresh 32-bit Suyama sigma not already present in used.
func nextSigma(used map[int64]bool) (int64, error) {
	for i := 0; i < 1000; i++ {
		v, err := bigint.RandRange(big.NewInt(6), big.NewInt(1<<31-1))
		if err != nil {
			return 0, err
		}
		s := v.Int64()
		if used == nil || !used[s] {
			return s, nil
		}
	}
	return 0, fmt.Errorf("ecm: exhausted sigma search without finding an unused value")
}

// ecmCurveStage1 derives a Montgomery curve and starting point from sigma via
// Suyama's parameterization, performs Stage 1 scalar multiplication by
// exponent using a Montgomery ladder, and tests gcd(Z, n). It returns a
// non-nil factor when 1 < gcd(Z,n) < n, nil otherwise (including when the
// curve is degenerate for this n, which is itself how ECM sometimes reveals
// a factor through a failed modular inverse).
func ecmCurveStage1(n *big.Int, sigma int64, exponent *big.Int) (*big.Int, error) {
	sig := big.NewInt(sigma)
	u := new(big.Int).Mul(sig, sig)
	u.Sub(u, big.NewInt(5))
	u.Mod(u, n)
	v := new(big.Int).Mul(sig, big.NewInt(4))
	v.Mod(v, n)
	if u.Sign() == 0 || v.Sign() == 0 {
		return nil, nil // degenerate sigma, skip this curve
	}

	x0 := modPow3(u, n)
	z0 := modPow3(v, n)

	vMinusU := new(big.Int).Sub(v, u)
	vMinusU.Mod(vMinusU, n)
	c := modPow3(vMinusU, n)
	threeUPlusV := new(big.Int).Mul(u, big.NewInt(3))
	threeUPlusV.Add(threeUPlusV, v)
	threeUPlusV.Mod(threeUPlusV, n)
	c.Mul(c, threeUPlusV)
	c.Mod(c, n)

	denom := new(big.Int).Mul(u, u)
	denom.Mul(denom, u)
	denom.Mul(denom, v)
	denom.Mul(denom, big.NewInt(4))
	denom.Mod(denom, n)

	g := bigint.GCD(denom, n)
	if g.Cmp(big.NewInt(1)) > 0 && g.Cmp(n) < 0 {
		return g, nil
	}
	inv := new(big.Int).ModInverse(denom, n)
	if inv == nil {
		// denom shares a nontrivial factor with n (and GCD above found it's
		// not strictly between 1 and n, meaning g==n): this curve gives no
		// information; skip it.
		return nil, nil
	}

	a24 := new(big.Int).Mul(c, inv)
	a24.Mod(a24, n)

	X, Z := montgomeryLadder(exponent, x0, z0, a24, n)

	factor := bigint.GCD(Z, n)
	if factor.Cmp(big.NewInt(1)) > 0 && factor.Cmp(n) < 0 {
		return factor, nil
	}
	if factor.Cmp(n) == 0 {
		// the whole group order was smooth for every prime factor at once;
		// degenerate for this sigma, not informative.
		return nil, nil
	}
	_ = X
	return nil, nil
}

func modPow3(x, n *big.Int) *big.Int {
	r := new(big.Int).Mul(x, x)
	r.Mul(r, x)
	r.Mod(r, n)
	return r
}

// montgomeryLadder computes k*(X1:Z1) on the Montgomery curve with
// coefficient a24 = (A+2)/4 mod n, using the constant-time x-only ladder.
func montgomeryLadder(k, x1, z1, a24, n *big.Int) (x, z *big.Int) {
	x2, z2 := big.NewInt(1), big.NewInt(0) // point at infinity
	x3, z3 := new(big.Int).Set(x1), new(big.Int).Set(z1)

	for i := k.BitLen() - 1; i >= 0; i-- {
		if k.Bit(i) == 0 {
			x3, z3 = xAdd(x3, z3, x2, z2, x1, z1, n)
			x2, z2 = xDbl(x2, z2, a24, n)
		} else {
			x2, z2 = xAdd(x2, z2, x3, z3, x1, z1, n)
			x3, z3 = xDbl(x3, z3, a24, n)
		}
	}
	return x2, z2
}

func xDbl(x1, z1, a24, n *big.Int) (x, z *big.Int) {
	a := new(big.Int).Add(x1, z1)
	a.Mod(a, n)
	aa := new(big.Int).Mul(a, a)
	aa.Mod(aa, n)

	b := new(big.Int).Sub(x1, z1)
	b.Mod(b, n)
	bb := new(big.Int).Mul(b, b)
	bb.Mod(bb, n)

	e := new(big.Int).Sub(aa, bb)
	e.Mod(e, n)

	x = new(big.Int).Mul(aa, bb)
	x.Mod(x, n)

	t := new(big.Int).Mul(a24, e)
	t.Add(t, bb)
	t.Mod(t, n)

	z = new(big.Int).Mul(e, t)
	z.Mod(z, n)
	return x, z
}

func xAdd(x2, z2, x3, z3, x1, z1, n *big.Int) (x, z *big.Int) {
	da := new(big.Int).Sub(x3, z3)
	da.Mod(da, n)
	cb := new(big.Int).Sub(x2, z2)
	cb.Mod(cb, n)

	t1 := new(big.Int).Add(x2, z2)
	t1.Mod(t1, n)
	t2 := new(big.Int).Add(x3, z3)
	t2.Mod(t2, n)

	da.Mul(da, t1)
	da.Mod(da, n)
	cb.Mul(cb, t2)
	cb.Mod(cb, n)

	sum := new(big.Int).Add(da, cb)
	sum.Mod(sum, n)
	sum.Mul(sum, sum)
	sum.Mod(sum, n)

	diff := new(big.Int).Sub(da, cb)
	diff.Mod(diff, n)
	diff.Mul(diff, diff)
	diff.Mod(diff, n)

	x = new(big.Int).Mul(z1, sum)
	x.Mod(x, n)
	z = new(big.Int).Mul(x1, diff)
	z.Mod(z, n)
	return x, z
}
